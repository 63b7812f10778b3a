package shipping

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/order-fulfillment/internal"
	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/shipment"
	"github.com/frahmantamala/order-fulfillment/internal/core/events"
)

// EventHandler provisions shipments off payment events. Both the fast path
// and the webhook reconciler publish payment.verified, so this handler must
// tolerate duplicates: an order that already has a shipment is a no-op.
type EventHandler struct {
	service *Service
	orders  OrderDataAPI
	logger  *slog.Logger
}

func NewEventHandler(service *Service, orders OrderDataAPI, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		orders:  orders,
		logger:  logger,
	}
}

func (h *EventHandler) HandlePaymentVerified(ctx context.Context, event events.Event) error {
	verified, ok := event.(*events.PaymentVerifiedEvent)
	if !ok {
		h.logger.Error("invalid event type for payment verified handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentVerifiedEvent, got %T", event)
	}

	h.logger.Info("handling payment verified event for shipment provisioning",
		"order_id", verified.OrderID,
		"source", verified.Source,
		"event_id", verified.EventID())

	row, err := h.orders.GetByID(verified.OrderID)
	if err != nil {
		h.logger.Error("failed to load order for shipment provisioning",
			"order_id", verified.OrderID,
			"error", err)
		return fmt.Errorf("order load failed for shipment provisioning: %w", err)
	}

	result, err := h.service.CreateShipment(ctx, row, shipment.PaymentModePrepaid, nil)
	if err != nil {
		if stderrors.Is(err, internal.ErrShipmentExists) {
			h.logger.Debug("order already fulfilled, ignoring duplicate payment event",
				"order_id", verified.OrderID,
				"event_id", verified.EventID())
			return nil
		}
		// payment stays verified regardless; provisioning failures are left
		// for manual reconciliation
		h.logger.Error("shipment provisioning failed after payment verification",
			"order_id", verified.OrderID,
			"error", err)
		return fmt.Errorf("shipment provisioning failed for order %d: %w", verified.OrderID, err)
	}

	h.logger.Info("shipment provisioned from payment event",
		"order_id", verified.OrderID,
		"tracking_id", result.TrackingID)

	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentVerified, h.HandlePaymentVerified)

	h.logger.Info("shipping event handlers registered",
		"handlers", []string{events.EventTypePaymentVerified})
}
