package payment

import (
	"github.com/frahmantamala/order-fulfillment/internal/core/common/validation"
)

// VerifyRequest is the verification endpoint body. Prepaid callers send the
// gateway triplet; COD callers send the local order id with cod=true.
type VerifyRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`

	OrderID int64 `json:"orderId"`
	COD     bool  `json:"cod"`
}

func (r *VerifyRequest) Validate() error {
	validator := validation.NewValidator()

	if r.COD {
		validator.Field("orderId", r.OrderID).Required().MinInt(1, "VALIDATION_FAILED")
	} else {
		validator.Field("razorpay_order_id", r.RazorpayOrderID).Required()
		validator.Field("razorpay_payment_id", r.RazorpayPaymentID).Required()
		validator.Field("razorpay_signature", r.RazorpaySignature).Required()
	}

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// VerifyResponse is the success body for the prepaid path.
type VerifyResponse struct {
	Verified        bool   `json:"verified"`
	OrderID         int64  `json:"order_id"`
	ProviderOrderID string `json:"provider_order_id"`
	Status          string `json:"status"`
	TrackingID      string `json:"tracking_id,omitempty"`
}

// CODResponse is the success body for the COD short-circuit.
type CODResponse struct {
	OrderID    int64   `json:"order_id"`
	Status     string  `json:"status"`
	AWB        string  `json:"awb"`
	CashAmount float64 `json:"cash_amount"`
}

// webhookEnvelope is the provider notification shape. Only the fields the
// reconciler dispatches on are bound; the raw body stays authoritative for
// fingerprinting and signature checks.
type webhookEnvelope struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity webhookPaymentEntity `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity webhookRefundEntity `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

type webhookPaymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Amount  int64  `json:"amount"`
	Method  string `json:"method"`
}

type webhookRefundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
}
