package shipping

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/order-fulfillment/internal"
	"github.com/frahmantamala/order-fulfillment/internal/transport"
)

type ServiceAPI interface {
	CancelShipment(ctx context.Context, trackingID string) (*CancelResult, error)
}

// Handler exposes the cancellation endpoint. Internal tooling only; shipment
// creation has no endpoint of its own, it is driven by payment outcomes.
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

// CancelShipment handles POST /api/v1/shipments/{awb}/cancel
func (h *Handler) CancelShipment(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "awb")
	if trackingID == "" {
		h.HandleError(w, errors.NewValidationError("tracking id is required", errors.ErrCodeInvalidBody))
		return
	}

	result, err := h.Service.CancelShipment(r.Context(), trackingID)
	if err != nil {
		h.Logger.Error("CancelShipment: service error", "error", err, "tracking_id", trackingID)
		h.HandleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	h.WriteJSON(w, status, result)
}
