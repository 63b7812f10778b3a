package order

import (
	"encoding/json"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/order-fulfillment/internal"
	"github.com/frahmantamala/order-fulfillment/internal/transport"
	"github.com/frahmantamala/order-fulfillment/internal/transport/middleware"
)

type ServiceAPI interface {
	CreateOrder(userID string, req *CreateOrderRequest) (*CreateOrderResponse, error)
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

// CreateOrder handles POST /api/v1/orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("CreateOrder: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeInvalidBody))
		return
	}

	if err := req.Validate(); err != nil {
		h.Logger.Error("CreateOrder: validation error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())

	resp, err := h.Service.CreateOrder(userID, &req)
	if err != nil {
		h.Logger.Error("CreateOrder: service error",
			"error", err,
			"idempotency_key", req.IdempotencyKey)
		h.HandleServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if resp.Idempotent {
		status = http.StatusOK
	}
	h.WriteJSON(w, status, resp)
}
