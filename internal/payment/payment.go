package payment

import (
	"context"
	"errors"

	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/order"
	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/payment"
	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/webhook"
	"github.com/frahmantamala/order-fulfillment/internal/shipping"
)

// Sentinel errors surfaced by the repositories.
var (
	ErrNotFound       = errors.New("payment not found")
	ErrDuplicateEvent = errors.New("webhook event already processed")
)

// OrderDataAPI is the slice of order persistence the verification paths need.
type OrderDataAPI interface {
	GetByID(id int64) (*order.Order, error)
	GetByProviderOrderID(providerOrderID string) (*order.Order, error)
	UpdateStatus(id int64, status string) error
}

// RepositoryAPI persists payments. Writes are upserts keyed by the provider
// payment id so webhook redelivery and client retries converge instead of
// duplicating rows.
type RepositoryAPI interface {
	Upsert(p *payment.Payment) error
	GetByProviderPaymentID(providerPaymentID string) (*payment.Payment, error)
	UpdateStatusByProviderPaymentID(providerPaymentID, status string) error
}

// WebhookEventRepositoryAPI is the dedup store for inbound notifications.
// Insert rides on the primary-key constraint: a second delivery of the same
// event id returns ErrDuplicateEvent, never a second row.
type WebhookEventRepositoryAPI interface {
	Insert(e *webhook.Event) error
	MarkError(id, message string) error
}

// GatewayAPI is the signature-verification surface of the gateway adapter.
// Both checks are local HMAC recomputation, no network calls.
type GatewayAPI interface {
	VerifyPaymentSignature(providerOrderID, providerPaymentID, signature string) bool
	VerifyWebhookSignature(rawBody []byte, signature string) bool
}

// ShipperAPI provisions the shipment once payment is settled. Provisioning
// failures never reverse the payment state.
type ShipperAPI interface {
	CreateShipment(ctx context.Context, o *order.Order, paymentMode string, codAmount *float64) (*shipping.CreateResult, error)
}
