package order

import (
	"encoding/json"

	"github.com/frahmantamala/order-fulfillment/internal/core/common/validation"
)

// CreateOrderRequest is the intake payload. The idempotency key is caller
// supplied; retries with the same key converge on one order.
type CreateOrderRequest struct {
	Amount         int64           `json:"amount"`
	Currency       string          `json:"currency"`
	IdempotencyKey string          `json:"idempotencyKey"`
	AmountUnit     string          `json:"amountUnit,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

type CreateOrderResponse struct {
	OrderID         int64  `json:"orderId"`
	ProviderOrderID string `json:"providerOrderId,omitempty"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
	Idempotent      bool   `json:"idempotent"`
}

func (r *CreateOrderRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("amount", r.Amount).Required().MinInt(1, "INVALID_AMOUNT")
	validator.Field("currency", r.Currency).Required().Currency()
	validator.Field("idempotency_key", r.IdempotencyKey).Required().MaxLength(128)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}
