package payment

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/order-fulfillment/internal"
	"github.com/frahmantamala/order-fulfillment/internal/transport"
)

type ServiceAPI interface {
	VerifyPayment(ctx context.Context, req *VerifyRequest) (*VerifyResponse, error)
	PlaceCOD(ctx context.Context, orderID int64) (*CODResponse, error)
}

type Handler struct {
	transport.BaseHandler
	Service ServiceAPI
	Logger  *slog.Logger
}

func NewHandler(service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  logger,
	}
}

// VerifyPayment handles POST /api/v1/payments/verify. One endpoint serves
// both flavors: the prepaid gateway triplet and the COD short-circuit.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("VerifyPayment: failed to parse request body", "error", err)
		h.writeFailure(w, errors.NewValidationError("invalid request body", errors.ErrCodeInvalidBody))
		return
	}

	if err := req.Validate(); err != nil {
		h.Logger.Error("VerifyPayment: validation error", "error", err)
		h.writeServiceFailure(w, err)
		return
	}

	if req.COD {
		resp, err := h.Service.PlaceCOD(r.Context(), req.OrderID)
		if err != nil {
			h.Logger.Error("VerifyPayment: COD placement failed", "error", err, "order_id", req.OrderID)
			h.writeServiceFailure(w, err)
			return
		}
		h.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"awb":     resp.AWB,
			"order":   resp,
		})
		return
	}

	resp, err := h.Service.VerifyPayment(r.Context(), &req)
	if err != nil {
		h.Logger.Error("VerifyPayment: verification failed",
			"error", err,
			"provider_order_id", req.RazorpayOrderID)
		h.writeServiceFailure(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"verification": resp,
	})
}

// writeFailure emits the verification error contract:
// {success:false, code, error} with the AppError's status.
func (h *Handler) writeFailure(w http.ResponseWriter, appErr *errors.AppError) {
	h.WriteJSON(w, appErr.StatusCode, map[string]interface{}{
		"success": false,
		"code":    appErr.Code,
		"error":   appErr.GetDetailedMessage(),
	})
}

func (h *Handler) writeServiceFailure(w http.ResponseWriter, err error) {
	if appErr, ok := errors.IsAppError(err); ok {
		h.writeFailure(w, appErr)
		return
	}
	h.writeFailure(w, errors.NewInternalError("internal server error", err))
}
