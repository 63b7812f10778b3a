package payment_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	orderDatamodel "github.com/frahmantamala/order-fulfillment/internal/core/datamodel/order"
	paymentDatamodel "github.com/frahmantamala/order-fulfillment/internal/core/datamodel/payment"
	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/webhook"
	"github.com/frahmantamala/order-fulfillment/internal/core/events"
	paymentpkg "github.com/frahmantamala/order-fulfillment/internal/payment"
	"github.com/frahmantamala/order-fulfillment/internal/razorpay"
	"github.com/frahmantamala/order-fulfillment/internal/transport"
)

const testWebhookSecret = "whsec_test"

func capturedEventBody(eventID, providerOrderID, providerPaymentID string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"id":    eventID,
		"event": "payment.captured",
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":       providerPaymentID,
					"order_id": providerOrderID,
					"status":   "captured",
					"amount":   50000,
					"method":   "upi",
				},
			},
		},
	})
	return body
}

func signedWebhookRequest(body []byte) *http.Request {
	req := httptest.NewRequest("POST", "/api/v1/payments/webhook", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Razorpay-Signature", razorpay.SignWebhook(body, testWebhookSecret))
	return req
}

var _ = Describe("WebhookHandler", func() {
	var (
		handler       *paymentpkg.WebhookHandler
		orders        *mockOrderStore
		payments      *mockPaymentRepository
		webhookEvents *mockWebhookEventRepository
		shipper       *mockShipper
		recorder      *httptest.ResponseRecorder
	)

	providerOrderID := "order_prov1"

	BeforeEach(func() {
		orders = newMockOrderStore()
		payments = newMockPaymentRepository()
		webhookEvents = newMockWebhookEventRepository()
		gateway := &mockSignatureGateway{paymentSignatureOK: true, webhookSecret: testWebhookSecret}
		shipper = &mockShipper{}
		logger := newTestLogger()
		service := paymentpkg.NewService(orders, payments, webhookEvents, gateway, shipper, events.NewEventBus(logger), logger)
		handler = paymentpkg.NewWebhookHandler(transport.NewBaseHandler(logger), service, gateway, logger)
		recorder = httptest.NewRecorder()

		orders.add(&orderDatamodel.Order{
			ID:              1,
			IdempotencyKey:  "key-1",
			Amount:          50000,
			AmountUnit:      orderDatamodel.AmountUnitMinor,
			Currency:        "INR",
			Status:          orderDatamodel.StatusPending,
			ProviderOrderID: &providerOrderID,
		})
	})

	Context("signature checks", func() {
		It("rejects a request without a signature header", func() {
			body := capturedEventBody("evt_1", providerOrderID, "pay_1")
			req := httptest.NewRequest("POST", "/api/v1/payments/webhook", bytes.NewBuffer(body))

			handler.HandleWebhook(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
			Expect(webhookEvents.events).To(BeEmpty())
		})

		It("rejects a signature computed over a different body", func() {
			body := capturedEventBody("evt_1", providerOrderID, "pay_1")
			req := httptest.NewRequest("POST", "/api/v1/payments/webhook", bytes.NewBuffer(body))
			req.Header.Set("X-Razorpay-Signature", razorpay.SignWebhook([]byte("other body"), testWebhookSecret))

			handler.HandleWebhook(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
			Expect(orders.statusUpdates).To(BeEmpty())
		})
	})

	Context("event contract", func() {
		It("rejects a body without an event id", func() {
			body, _ := json.Marshal(map[string]interface{}{"event": "payment.captured"})

			handler.HandleWebhook(recorder, signedWebhookRequest(body))

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects a body without an event type", func() {
			body, _ := json.Marshal(map[string]interface{}{"id": "evt_1"})

			handler.HandleWebhook(recorder, signedWebhookRequest(body))

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})

		It("falls back to the event id header when the body omits it", func() {
			body, _ := json.Marshal(map[string]interface{}{"event": "payment.captured"})
			req := signedWebhookRequest(body)
			req.Header.Set("X-Razorpay-Event-Id", "evt_hdr")

			handler.HandleWebhook(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(webhookEvents.events).To(HaveKey("evt_hdr"))
		})

		It("rejects a body that is not valid JSON", func() {
			handler.HandleWebhook(recorder, signedWebhookRequest([]byte("not json")))

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("payment.captured", func() {
		It("records the event, upserts the payment and marks the order paid", func() {
			body := capturedEventBody("evt_1", providerOrderID, "pay_1")

			handler.HandleWebhook(recorder, signedWebhookRequest(body))

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(webhookEvents.events).To(HaveKey("evt_1"))
			Expect(orders.statusUpdates[1]).To(Equal(orderDatamodel.StatusPaid))
			Expect(payments.upserts).To(HaveLen(1))
			Expect(payments.upserts[0].Status).To(Equal(paymentDatamodel.StatusCaptured))
			Expect(*payments.upserts[0].Method).To(Equal("upi"))

			var resp map[string]interface{}
			Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp).To(HaveKeyWithValue("status", "ok"))
		})

		It("replays idempotently on redelivery of the same event id", func() {
			body := capturedEventBody("evt_1", providerOrderID, "pay_1")
			handler.HandleWebhook(recorder, signedWebhookRequest(body))
			Expect(recorder.Code).To(Equal(http.StatusOK))

			second := httptest.NewRecorder()
			handler.HandleWebhook(second, signedWebhookRequest(body))

			Expect(second.Code).To(Equal(http.StatusOK))
			Expect(payments.upserts).To(HaveLen(1))

			var resp map[string]interface{}
			Expect(json.Unmarshal(second.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp).To(HaveKeyWithValue("idempotent", true))
		})

		It("answers 200 and marks the event row when reconciliation fails", func() {
			body := capturedEventBody("evt_1", "order_unknown", "pay_1")

			handler.HandleWebhook(recorder, signedWebhookRequest(body))

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(webhookEvents.errorMarks).To(HaveKey("evt_1"))
			Expect(webhookEvents.events["evt_1"].Status).To(Equal(webhook.StatusError))
			Expect(orders.statusUpdates).To(BeEmpty())
		})
	})

	Context("payment.failed", func() {
		It("marks the order failed", func() {
			body, _ := json.Marshal(map[string]interface{}{
				"id":    "evt_f",
				"event": "payment.failed",
				"payload": map[string]interface{}{
					"payment": map[string]interface{}{
						"entity": map[string]interface{}{
							"id":       "pay_f",
							"order_id": providerOrderID,
							"status":   "failed",
						},
					},
				},
			})

			handler.HandleWebhook(recorder, signedWebhookRequest(body))

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(orders.statusUpdates[1]).To(Equal(orderDatamodel.StatusFailed))
			Expect(payments.upserts[0].Status).To(Equal(paymentDatamodel.StatusFailed))
		})
	})

	Context("payment.authorized", func() {
		It("records the payment without touching the order status", func() {
			body, _ := json.Marshal(map[string]interface{}{
				"id":    "evt_a",
				"event": "payment.authorized",
				"payload": map[string]interface{}{
					"payment": map[string]interface{}{
						"entity": map[string]interface{}{
							"id":       "pay_a",
							"order_id": providerOrderID,
							"status":   "authorized",
						},
					},
				},
			})

			handler.HandleWebhook(recorder, signedWebhookRequest(body))

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(payments.upserts).To(HaveLen(1))
			Expect(payments.upserts[0].Status).To(Equal(paymentDatamodel.StatusAuthorized))
			Expect(orders.statusUpdates).To(BeEmpty())
		})
	})

	Context("refund.processed", func() {
		It("marks the payment refunded", func() {
			payments.byProviderID["pay_1"] = &paymentDatamodel.Payment{
				OrderID:           1,
				ProviderPaymentID: "pay_1",
				Status:            paymentDatamodel.StatusCaptured,
			}
			body, _ := json.Marshal(map[string]interface{}{
				"id":    "evt_r",
				"event": "refund.processed",
				"payload": map[string]interface{}{
					"refund": map[string]interface{}{
						"entity": map[string]interface{}{
							"id":         "rfnd_1",
							"payment_id": "pay_1",
						},
					},
				},
			})

			handler.HandleWebhook(recorder, signedWebhookRequest(body))

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(payments.byProviderID["pay_1"].Status).To(Equal(paymentDatamodel.StatusRefunded))
		})
	})

	Context("unknown event types", func() {
		It("acknowledges without reconciling", func() {
			body, _ := json.Marshal(map[string]interface{}{
				"id":    "evt_u",
				"event": "order.paid",
			})

			handler.HandleWebhook(recorder, signedWebhookRequest(body))

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(webhookEvents.events).To(HaveKey("evt_u"))
			Expect(orders.statusUpdates).To(BeEmpty())

			var resp map[string]interface{}
			Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp).To(HaveKeyWithValue("status", "accepted"))
		})
	})
})
