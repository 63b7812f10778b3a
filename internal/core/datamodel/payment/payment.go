package payment

import (
	"encoding/json"
	"time"
)

// Payment statuses as reported by the gateway.
const (
	StatusAuthorized = "authorized"
	StatusCaptured   = "captured"
	StatusFailed     = "failed"
	StatusRefunded   = "refunded"
)

// Payment is one attempt to settle an order via the gateway. Upserts are keyed
// by provider_payment_id so webhook redelivery and client retries never create
// duplicate rows.
type Payment struct {
	ID                int64           `gorm:"primaryKey"`
	OrderID           int64           `gorm:"column:order_id;not null"`
	ProviderPaymentID string          `gorm:"column:provider_payment_id;not null;uniqueIndex"`
	Status            string          `gorm:"column:status;not null"`
	Amount            int64           `gorm:"column:amount;not null"`
	Method            *string         `gorm:"column:method"`
	GatewayResponse   json.RawMessage `gorm:"column:gateway_response;type:jsonb"`
	CreatedAt         time.Time       `gorm:"column:created_at;default:now()"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;default:now()"`
}
