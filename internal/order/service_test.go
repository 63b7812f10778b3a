package order_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/order-fulfillment/internal"
	orderDatamodel "github.com/frahmantamala/order-fulfillment/internal/core/datamodel/order"
	orderpkg "github.com/frahmantamala/order-fulfillment/internal/order"
	"github.com/frahmantamala/order-fulfillment/internal/razorpay"
)

func TestOrderService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Order Service Suite")
}

// Mock repository for testing
type mockOrderRepository struct {
	ordersByID      map[int64]*orderDatamodel.Order
	ordersByKey     map[string]*orderDatamodel.Order
	createError     error
	getError        error
	keyMissesLeft   int
	statusUpdates   map[int64]string
	providerOrders  map[int64]string
	metadataMerges  map[int64]map[string]interface{}
	sellerUpdates   map[int64]int64
	snapshotError   error
	nextID          int64
	createCallCount int
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{
		ordersByID:     make(map[int64]*orderDatamodel.Order),
		ordersByKey:    make(map[string]*orderDatamodel.Order),
		statusUpdates:  make(map[int64]string),
		providerOrders: make(map[int64]string),
		metadataMerges: make(map[int64]map[string]interface{}),
		sellerUpdates:  make(map[int64]int64),
		nextID:         1,
	}
}

func (m *mockOrderRepository) Create(o *orderDatamodel.Order) error {
	m.createCallCount++
	if m.createError != nil {
		return m.createError
	}
	if _, exists := m.ordersByKey[o.IdempotencyKey]; exists {
		return orderpkg.ErrDuplicateKey
	}
	o.ID = m.nextID
	m.nextID++
	m.ordersByID[o.ID] = o
	m.ordersByKey[o.IdempotencyKey] = o
	return nil
}

func (m *mockOrderRepository) GetByID(id int64) (*orderDatamodel.Order, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	o, exists := m.ordersByID[id]
	if !exists {
		return nil, orderpkg.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepository) GetByIdempotencyKey(key string) (*orderDatamodel.Order, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	if m.keyMissesLeft > 0 {
		m.keyMissesLeft--
		return nil, orderpkg.ErrNotFound
	}
	o, exists := m.ordersByKey[key]
	if !exists {
		return nil, orderpkg.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepository) GetByProviderOrderID(providerOrderID string) (*orderDatamodel.Order, error) {
	for _, o := range m.ordersByID {
		if o.ProviderOrderID != nil && *o.ProviderOrderID == providerOrderID {
			return o, nil
		}
	}
	return nil, orderpkg.ErrNotFound
}

func (m *mockOrderRepository) SetProviderOrder(id int64, providerOrderID string, snapshot json.RawMessage) error {
	if m.snapshotError != nil {
		return m.snapshotError
	}
	m.providerOrders[id] = providerOrderID
	if o, exists := m.ordersByID[id]; exists && o.ProviderOrderID == nil {
		o.ProviderOrderID = &providerOrderID
		o.ProviderResponse = snapshot
	}
	return nil
}

func (m *mockOrderRepository) UpdateStatus(id int64, status string) error {
	m.statusUpdates[id] = status
	if o, exists := m.ordersByID[id]; exists {
		o.Status = status
	}
	return nil
}

func (m *mockOrderRepository) SetSeller(id int64, sellerID int64) error {
	m.sellerUpdates[id] = sellerID
	if o, exists := m.ordersByID[id]; exists {
		o.SellerID = &sellerID
	}
	return nil
}

func (m *mockOrderRepository) MergeMetadata(id int64, fields map[string]interface{}) error {
	merged, exists := m.metadataMerges[id]
	if !exists {
		merged = make(map[string]interface{})
		m.metadataMerges[id] = merged
	}
	for k, v := range fields {
		merged[k] = v
	}
	return nil
}

// Mock gateway for testing
type mockGateway struct {
	createOrderError error
	createCallCount  int
	lastNotes        map[string]interface{}
	nextOrderID      string
}

func (m *mockGateway) CreateOrder(amount int64, currency, receipt string, notes map[string]interface{}) (*razorpay.ProviderOrder, error) {
	m.createCallCount++
	m.lastNotes = notes
	if m.createOrderError != nil {
		return nil, m.createOrderError
	}
	id := m.nextOrderID
	if id == "" {
		id = "order_mock123"
	}
	return &razorpay.ProviderOrder{
		ID:       id,
		Amount:   amount,
		Currency: currency,
		Status:   "created",
		Raw:      json.RawMessage(`{"id":"` + id + `"}`),
	}, nil
}

type mockCatalog struct {
	sellerID     int64
	resolveError error
}

func (m *mockCatalog) ResolveSellerID(productID int64) (int64, error) {
	if m.resolveError != nil {
		return 0, m.resolveError
	}
	return m.sellerID, nil
}

var _ = Describe("Order Service", func() {
	var (
		service *orderpkg.Service
		repo    *mockOrderRepository
		gateway *mockGateway
		catalog *mockCatalog
	)

	BeforeEach(func() {
		repo = newMockOrderRepository()
		gateway = &mockGateway{}
		catalog = &mockCatalog{sellerID: 7}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = orderpkg.NewService(repo, gateway, catalog, logger)
	})

	Describe("CreateOrder", func() {
		validRequest := func() *orderpkg.CreateOrderRequest {
			return &orderpkg.CreateOrderRequest{
				Amount:         50000,
				Currency:       "INR",
				IdempotencyKey: "key-1",
			}
		}

		Context("first request for a key", func() {
			It("inserts the order and attaches a provider order", func() {
				resp, err := service.CreateOrder("user-1", validRequest())

				Expect(err).NotTo(HaveOccurred())
				Expect(resp.Idempotent).To(BeFalse())
				Expect(resp.ProviderOrderID).To(Equal("order_mock123"))
				Expect(gateway.createCallCount).To(Equal(1))
				Expect(repo.providerOrders[resp.OrderID]).To(Equal("order_mock123"))
			})

			It("passes consignee details from metadata as gateway notes", func() {
				req := validRequest()
				req.Metadata = json.RawMessage(`{"full_name":"Asha Rao","phone":"9876543210","address":"1 MG Road","city":"Bengaluru","state":"KA","pincode":"560001"}`)

				_, err := service.CreateOrder("user-1", req)

				Expect(err).NotTo(HaveOccurred())
				Expect(gateway.lastNotes).To(HaveKeyWithValue("customer_name", "Asha Rao"))
				Expect(gateway.lastNotes).To(HaveKeyWithValue("phone", "9876543210"))
			})

			It("rejects metadata that is not a JSON object", func() {
				req := validRequest()
				req.Metadata = json.RawMessage(`"not an object"`)

				_, err := service.CreateOrder("user-1", req)

				Expect(err).To(HaveOccurred())
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
				Expect(gateway.createCallCount).To(BeZero())
			})
		})

		Context("replay with the same idempotency key", func() {
			It("returns the existing order without contacting the gateway", func() {
				first, err := service.CreateOrder("user-1", validRequest())
				Expect(err).NotTo(HaveOccurred())

				replay, err := service.CreateOrder("user-1", validRequest())

				Expect(err).NotTo(HaveOccurred())
				Expect(replay.Idempotent).To(BeTrue())
				Expect(replay.OrderID).To(Equal(first.OrderID))
				Expect(replay.ProviderOrderID).To(Equal(first.ProviderOrderID))
				Expect(gateway.createCallCount).To(Equal(1))
			})
		})

		Context("prior attempt crashed before the gateway call", func() {
			It("reuses the existing row and completes the gateway step", func() {
				existing := &orderDatamodel.Order{
					ID:             42,
					IdempotencyKey: "key-1",
					Amount:         50000,
					Currency:       "INR",
					Status:         orderDatamodel.StatusPending,
				}
				repo.ordersByID[42] = existing
				repo.ordersByKey["key-1"] = existing

				resp, err := service.CreateOrder("user-1", validRequest())

				Expect(err).NotTo(HaveOccurred())
				Expect(resp.OrderID).To(Equal(int64(42)))
				Expect(resp.Idempotent).To(BeFalse())
				Expect(resp.ProviderOrderID).To(Equal("order_mock123"))
				Expect(repo.createCallCount).To(BeZero())
			})
		})

		Context("losing the insert race", func() {
			It("re-reads the winner and returns it as a replay", func() {
				winnerProviderID := "order_winner"
				winner := &orderDatamodel.Order{
					ID:              9,
					IdempotencyKey:  "key-1",
					Amount:          50000,
					Currency:        "INR",
					Status:          orderDatamodel.StatusPending,
					ProviderOrderID: &winnerProviderID,
				}
				repo.createError = orderpkg.ErrDuplicateKey
				repo.ordersByID[9] = winner
				repo.ordersByKey["key-1"] = winner
				// the winner's row only becomes visible after our insert fails
				repo.keyMissesLeft = 1

				resp, err := service.CreateOrder("user-1", validRequest())

				Expect(err).NotTo(HaveOccurred())
				Expect(resp.OrderID).To(Equal(int64(9)))
				Expect(resp.Idempotent).To(BeTrue())
				Expect(repo.createCallCount).To(Equal(1))
				Expect(gateway.createCallCount).To(BeZero())
			})
		})

		Context("gateway rejects order creation", func() {
			It("marks the order failed and surfaces a provider error", func() {
				gateway.createOrderError = errors.New("gateway unavailable")

				_, err := service.CreateOrder("user-1", validRequest())

				Expect(err).To(HaveOccurred())
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.StatusCode).To(Equal(502))
				Expect(repo.statusUpdates[1]).To(Equal(orderDatamodel.StatusFailed))
			})

			It("keeps the local row for audit and retry", func() {
				gateway.createOrderError = errors.New("gateway unavailable")

				_, err := service.CreateOrder("user-1", validRequest())
				Expect(err).To(HaveOccurred())

				row, getErr := repo.GetByIdempotencyKey("key-1")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(row.HasProviderOrder()).To(BeFalse())
			})
		})

		Context("seller resolution", func() {
			It("resolves the seller from the product reference", func() {
				req := validRequest()
				req.Metadata = json.RawMessage(`{"product_id":101,"address":"1 MG Road"}`)

				resp, err := service.CreateOrder("user-1", req)

				Expect(err).NotTo(HaveOccurred())
				Expect(repo.sellerUpdates[resp.OrderID]).To(Equal(int64(7)))
				Expect(repo.metadataMerges[resp.OrderID]).To(HaveKeyWithValue("seller_id", int64(7)))
			})

			It("prefers an explicit seller_id in metadata over catalog lookup", func() {
				req := validRequest()
				req.Metadata = json.RawMessage(`{"product_id":101,"seller_id":3}`)

				resp, err := service.CreateOrder("user-1", req)

				Expect(err).NotTo(HaveOccurred())
				Expect(repo.sellerUpdates[resp.OrderID]).To(Equal(int64(3)))
			})

			It("never blocks intake when resolution fails", func() {
				catalog.resolveError = errors.New("catalog down")
				req := validRequest()
				req.Metadata = json.RawMessage(`{"product_id":101}`)

				resp, err := service.CreateOrder("user-1", req)

				Expect(err).NotTo(HaveOccurred())
				Expect(resp.ProviderOrderID).To(Equal("order_mock123"))
			})
		})
	})

	Describe("GetOrder", func() {
		It("maps a missing order to the not-found contract", func() {
			_, err := service.GetOrder(999)

			Expect(err).To(Equal(internal.ErrOrderNotFound))
		})
	})
})
