package shipping_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/order-fulfillment/internal"
	orderDatamodel "github.com/frahmantamala/order-fulfillment/internal/core/datamodel/order"
	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/shipment"
	"github.com/frahmantamala/order-fulfillment/internal/core/events"
	shippingpkg "github.com/frahmantamala/order-fulfillment/internal/shipping"
)

var _ = Describe("Shipping EventHandler", func() {
	var (
		handler  *shippingpkg.EventHandler
		provider *mockProvider
		repo     *mockShipmentRepository
		orders   *mockOrderStore
	)

	BeforeEach(func() {
		provider = &mockProvider{}
		repo = newMockShipmentRepository()
		orders = newMockOrderStore()
		catalog := &mockCatalog{pickups: map[int64]string{}}
		gateway := &mockNotesGateway{}
		cfg := internal.ShippingConfig{
			BaseURL:          "http://provider.test",
			APIToken:         "token",
			DefaultPickup:    "Primary",
			DefaultWeightKg:  0.5,
			DefaultLengthCm:  10,
			DefaultBreadthCm: 10,
			DefaultHeightCm:  5,
		}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service := shippingpkg.NewService(provider, repo, orders, catalog, gateway, events.NewEventBus(logger), cfg, logger)
		handler = shippingpkg.NewEventHandler(service, orders, logger)

		orders.orders[1] = &orderDatamodel.Order{
			ID:         1,
			Amount:     50000,
			AmountUnit: orderDatamodel.AmountUnitMinor,
			Currency:   "INR",
			Status:     orderDatamodel.StatusPaid,
			Metadata: json.RawMessage(`{
				"full_name": "Asha Rao",
				"address": "1 MG Road",
				"city": "Bengaluru",
				"state": "KA",
				"pincode": "560001",
				"phone": "9876543210"
			}`),
		}
	})

	It("provisions a prepaid shipment off a payment verified event", func() {
		event := events.NewPaymentVerifiedEvent(1, "order_prov1", "pay_1", 50000, "webhook")

		err := handler.HandlePaymentVerified(context.Background(), event)

		Expect(err).NotTo(HaveOccurred())
		Expect(provider.callCount).To(Equal(1))
		Expect(repo.byOrderID[1].PaymentMode).To(Equal(shipment.PaymentModePrepaid))
	})

	It("ignores duplicate events for an already-fulfilled order", func() {
		repo.byOrderID[1] = &shipment.Shipment{ID: 5, OrderID: 1, TrackingID: "AWB-OLD"}
		event := events.NewPaymentVerifiedEvent(1, "order_prov1", "pay_1", 50000, "fast_path")

		err := handler.HandlePaymentVerified(context.Background(), event)

		Expect(err).NotTo(HaveOccurred())
		Expect(provider.callCount).To(BeZero())
	})

	It("surfaces provisioning failures for the bus to log", func() {
		provider.createError = errors.New("provider down")
		event := events.NewPaymentVerifiedEvent(1, "order_prov1", "pay_1", 50000, "webhook")

		err := handler.HandlePaymentVerified(context.Background(), event)

		Expect(err).To(HaveOccurred())
	})

	It("rejects events of the wrong concrete type", func() {
		event := events.NewCODPlacedEvent(1, 500, "AWB900")

		err := handler.HandlePaymentVerified(context.Background(), event)

		Expect(err).To(HaveOccurred())
	})
})
