package order

import (
	"encoding/json"
	"errors"

	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/order"
	"github.com/frahmantamala/order-fulfillment/internal/razorpay"
)

// Sentinel errors surfaced by the repository so the service can tell an
// idempotency race from a real failure.
var (
	ErrNotFound     = errors.New("order not found")
	ErrDuplicateKey = errors.New("duplicate idempotency key")
)

// RepositoryAPI is the full order persistence surface. Orders are the single
// source of truth mutated by intake, fast-path verification and webhook
// reconciliation, so every write is keyed by a stable identifier.
type RepositoryAPI interface {
	Create(o *order.Order) error
	GetByID(id int64) (*order.Order, error)
	GetByIdempotencyKey(key string) (*order.Order, error)
	GetByProviderOrderID(providerOrderID string) (*order.Order, error)
	SetProviderOrder(id int64, providerOrderID string, snapshot json.RawMessage) error
	UpdateStatus(id int64, status string) error
	SetSeller(id int64, sellerID int64) error
	MergeMetadata(id int64, fields map[string]interface{}) error
}

// GatewayAPI is the slice of the payment gateway the intake path needs.
type GatewayAPI interface {
	CreateOrder(amount int64, currency, receipt string, notes map[string]interface{}) (*razorpay.ProviderOrder, error)
}

// CatalogAPI resolves product references to sellers; lookups are best effort
// and never block intake.
type CatalogAPI interface {
	ResolveSellerID(productID int64) (int64, error)
}
