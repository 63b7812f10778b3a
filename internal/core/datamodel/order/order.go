package order

import (
	"encoding/json"
	"time"
)

// Order statuses. An order is created pending and only moves to paid via a
// verified signature or a reconciled webhook event.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusFailed    = "failed"
	StatusCODPlaced = "cod_placed"
	StatusCancelled = "cancelled"
)

// Amount units. Orders created before the explicit unit field rely on the
// magnitude fallback in CashAmount.
const (
	AmountUnitMinor = "minor"
	AmountUnitMajor = "major"
)

type Order struct {
	ID               int64           `gorm:"primaryKey"`
	UserID           *string         `gorm:"column:user_id"`
	IdempotencyKey   string          `gorm:"column:idempotency_key;not null;uniqueIndex"`
	Amount           int64           `gorm:"column:amount;not null"`
	AmountUnit       string          `gorm:"column:amount_unit;default:minor"`
	Currency         string          `gorm:"column:currency;not null"`
	Status           string          `gorm:"column:status;default:pending"`
	ProviderOrderID  *string         `gorm:"column:provider_order_id;uniqueIndex"`
	SellerID         *int64          `gorm:"column:seller_id"`
	Metadata         json.RawMessage `gorm:"column:metadata;type:jsonb"`
	ProviderResponse json.RawMessage `gorm:"column:provider_response;type:jsonb"`
	CreatedAt        time.Time       `gorm:"column:created_at;default:now()"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;default:now()"`
}

// CashAmount returns the order amount in major currency units. The explicit
// amount_unit field wins; the magnitude heuristic (>= 1000 means minor units)
// only covers rows written before the field existed.
func (o *Order) CashAmount() float64 {
	switch o.AmountUnit {
	case AmountUnitMinor:
		return float64(o.Amount) / 100
	case AmountUnitMajor:
		return float64(o.Amount)
	}
	if o.Amount >= 1000 {
		return float64(o.Amount) / 100
	}
	return float64(o.Amount)
}

// HasProviderOrder reports whether the gateway order was already created.
// provider_order_id is set at most once and never changes afterwards.
func (o *Order) HasProviderOrder() bool {
	return o.ProviderOrderID != nil && *o.ProviderOrderID != ""
}
