package payment

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	errors "github.com/frahmantamala/order-fulfillment/internal"
	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/order"
	paymentdm "github.com/frahmantamala/order-fulfillment/internal/core/datamodel/payment"
	shipmentdm "github.com/frahmantamala/order-fulfillment/internal/core/datamodel/shipment"
	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/webhook"
	"github.com/frahmantamala/order-fulfillment/internal/core/events"
	orderpkg "github.com/frahmantamala/order-fulfillment/internal/order"
)

// Service owns payment settlement: the client-reported fast path, the COD
// short-circuit and webhook reconciliation. The fast path and the reconciler
// converge on the same final state; both are idempotent upserts keyed by
// stable provider ids, so arrival order does not matter.
type Service struct {
	orders        OrderDataAPI
	payments      RepositoryAPI
	webhookEvents WebhookEventRepositoryAPI
	gateway       GatewayAPI
	shipper       ShipperAPI
	eventBus      *events.EventBus
	logger        *slog.Logger
}

func NewService(
	orders OrderDataAPI,
	payments RepositoryAPI,
	webhookEvents WebhookEventRepositoryAPI,
	gateway GatewayAPI,
	shipper ShipperAPI,
	eventBus *events.EventBus,
	logger *slog.Logger,
) *Service {
	return &Service{
		orders:        orders,
		payments:      payments,
		webhookEvents: webhookEvents,
		gateway:       gateway,
		shipper:       shipper,
		eventBus:      eventBus,
		logger:        logger,
	}
}

// VerifyPayment is the client-reported fast path. It is an optimization, not
// the final word: the webhook reconciler re-applies the same transition
// independently, so everything here must be safe to run twice.
func (s *Service) VerifyPayment(ctx context.Context, req *VerifyRequest) (*VerifyResponse, error) {
	if !s.gateway.VerifyPaymentSignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		s.logger.Warn("payment signature mismatch",
			"provider_order_id", req.RazorpayOrderID,
			"provider_payment_id", req.RazorpayPaymentID)
		s.markOrderFailed(req.RazorpayOrderID, "signature mismatch")
		return nil, errors.ErrSignatureMismatch
	}

	o, err := s.orders.GetByProviderOrderID(req.RazorpayOrderID)
	if err != nil {
		if stderrors.Is(err, orderpkg.ErrNotFound) {
			return nil, errors.ErrOrderNotFound
		}
		return nil, errors.NewInternalError("order lookup failed", err)
	}

	p := &paymentdm.Payment{
		OrderID:           o.ID,
		ProviderPaymentID: req.RazorpayPaymentID,
		Status:            paymentdm.StatusCaptured,
		Amount:            o.Amount,
	}
	if err := s.payments.Upsert(p); err != nil {
		return nil, errors.NewInternalError("failed to persist payment", err)
	}

	if err := s.orders.UpdateStatus(o.ID, order.StatusPaid); err != nil {
		return nil, errors.NewInternalError("failed to mark order paid", err)
	}
	o.Status = order.StatusPaid

	s.logger.Info("payment verified via fast path",
		"order_id", o.ID,
		"provider_payment_id", req.RazorpayPaymentID)

	resp := &VerifyResponse{
		Verified:        true,
		OrderID:         o.ID,
		ProviderOrderID: req.RazorpayOrderID,
		Status:          order.StatusPaid,
	}

	// synchronous best-effort provisioning; failure is logged for manual
	// reconciliation and never reverses the payment
	result, shipErr := s.shipper.CreateShipment(ctx, o, shipmentdm.PaymentModePrepaid, nil)
	switch {
	case shipErr == nil:
		resp.TrackingID = result.TrackingID
	case stderrors.Is(shipErr, errors.ErrShipmentExists):
		s.logger.Debug("order already has a shipment", "order_id", o.ID)
	default:
		s.logger.Error("shipment provisioning failed after payment verification",
			"order_id", o.ID,
			"error", shipErr)
	}

	s.publish(events.NewPaymentVerifiedEvent(o.ID, req.RazorpayOrderID, req.RazorpayPaymentID, o.Amount, "fast_path"))

	return resp, nil
}

// PlaceCOD is the cash-on-delivery short-circuit: no gateway order, no
// signature, the order goes straight to fulfillment and cod_placed.
func (s *Service) PlaceCOD(ctx context.Context, orderID int64) (*CODResponse, error) {
	o, err := s.orders.GetByID(orderID)
	if err != nil {
		if stderrors.Is(err, orderpkg.ErrNotFound) {
			return nil, errors.ErrOrderNotFound
		}
		return nil, errors.NewInternalError("order lookup failed", err)
	}

	cash := o.CashAmount()

	result, err := s.shipper.CreateShipment(ctx, o, shipmentdm.PaymentModeCOD, &cash)
	if err != nil {
		// unlike the prepaid path nothing is settled yet, so a COD order
		// without a shipment stays where it was
		return nil, err
	}

	if err := s.orders.UpdateStatus(o.ID, order.StatusCODPlaced); err != nil {
		s.logger.Error("shipment created but COD status update failed",
			"order_id", o.ID,
			"tracking_id", result.TrackingID,
			"error", err)
		return nil, errors.NewInternalError("failed to mark order cod_placed", err)
	}

	s.publish(events.NewCODPlacedEvent(o.ID, cash, result.TrackingID))

	s.logger.Info("COD order placed",
		"order_id", o.ID,
		"tracking_id", result.TrackingID,
		"cash_amount", cash)

	return &CODResponse{
		OrderID:    o.ID,
		Status:     order.StatusCODPlaced,
		AWB:        result.TrackingID,
		CashAmount: cash,
	}, nil
}

// ProcessWebhook dedups and reconciles one parsed notification. The event row
// is inserted before reconciliation runs, so a crash mid-reconciliation cannot
// cause a redelivery storm; reconciliation errors are recorded on the row and
// swallowed, because the provider retries on non-2xx and a retry cannot fix a
// malformed internal state.
func (s *Service) ProcessWebhook(env *webhookEnvelope, fingerprint string) (idempotent bool, err error) {
	row := &webhook.Event{
		ID:                 env.ID,
		Type:               env.Event,
		PayloadFingerprint: fingerprint,
		Status:             webhook.StatusProcessed,
	}
	if err := s.webhookEvents.Insert(row); err != nil {
		if stderrors.Is(err, ErrDuplicateEvent) {
			s.logger.Info("webhook event replayed, skipping",
				"event_id", env.ID,
				"event_type", env.Event)
			return true, nil
		}
		return false, errors.NewInternalError("failed to record webhook event", err)
	}

	if reconcileErr := s.reconcileEvent(env); reconcileErr != nil {
		s.logger.Error("webhook reconciliation failed",
			"event_id", env.ID,
			"event_type", env.Event,
			"error", reconcileErr)
		if markErr := s.webhookEvents.MarkError(env.ID, reconcileErr.Error()); markErr != nil {
			s.logger.Error("failed to record reconciliation error on event row",
				"event_id", env.ID,
				"error", markErr)
		}
	}

	return false, nil
}

// IsKnownEventType reports whether the reconciler dispatches on this type.
// Unknown types are acknowledged but not processed.
func IsKnownEventType(eventType string) bool {
	switch eventType {
	case "payment.authorized", "payment.captured", "payment.failed", "refund.processed":
		return true
	}
	return false
}

// reconcileEvent applies one webhook notification. Called exactly once per
// event id; errors are recorded on the event row by the caller, never
// surfaced to the provider.
func (s *Service) reconcileEvent(env *webhookEnvelope) error {
	switch env.Event {
	case "payment.authorized", "payment.captured", "payment.failed":
		return s.reconcilePayment(env.Event, &env.Payload.Payment.Entity)
	case "refund.processed":
		return s.reconcileRefund(&env.Payload.Refund.Entity)
	default:
		s.logger.Info("ignoring unknown webhook event type", "event_type", env.Event)
		return nil
	}
}

func (s *Service) reconcilePayment(eventType string, entity *webhookPaymentEntity) error {
	if entity.ID == "" || entity.OrderID == "" {
		return fmt.Errorf("webhook payment entity missing id or order_id")
	}

	o, err := s.orders.GetByProviderOrderID(entity.OrderID)
	if err != nil {
		return fmt.Errorf("no local order for provider order %s: %w", entity.OrderID, err)
	}

	paymentStatus := paymentdm.StatusAuthorized
	switch eventType {
	case "payment.captured":
		paymentStatus = paymentdm.StatusCaptured
	case "payment.failed":
		paymentStatus = paymentdm.StatusFailed
	}

	amount := entity.Amount
	if amount == 0 {
		amount = o.Amount
	}

	p := &paymentdm.Payment{
		OrderID:           o.ID,
		ProviderPaymentID: entity.ID,
		Status:            paymentStatus,
		Amount:            amount,
	}
	if entity.Method != "" {
		p.Method = &entity.Method
	}
	if err := s.payments.Upsert(p); err != nil {
		return fmt.Errorf("payment upsert failed: %w", err)
	}

	// authorized leaves the order alone: paid is only reachable through
	// captured, and a late-arriving authorized must not regress a paid order
	switch paymentStatus {
	case paymentdm.StatusCaptured:
		if err := s.orders.UpdateStatus(o.ID, order.StatusPaid); err != nil {
			return fmt.Errorf("failed to mark order paid: %w", err)
		}
		s.publish(events.NewPaymentVerifiedEvent(o.ID, entity.OrderID, entity.ID, amount, "webhook"))
	case paymentdm.StatusFailed:
		if err := s.orders.UpdateStatus(o.ID, order.StatusFailed); err != nil {
			return fmt.Errorf("failed to mark order failed: %w", err)
		}
		s.publish(events.NewPaymentFailedEvent(o.ID, entity.OrderID, "gateway reported failure"))
	}

	s.logger.Info("webhook payment reconciled",
		"order_id", o.ID,
		"provider_payment_id", entity.ID,
		"payment_status", paymentStatus)

	return nil
}

func (s *Service) reconcileRefund(entity *webhookRefundEntity) error {
	if entity.PaymentID == "" {
		return fmt.Errorf("webhook refund entity missing payment_id")
	}

	if err := s.payments.UpdateStatusByProviderPaymentID(entity.PaymentID, paymentdm.StatusRefunded); err != nil {
		return fmt.Errorf("failed to mark payment refunded: %w", err)
	}

	s.logger.Info("payment marked refunded", "provider_payment_id", entity.PaymentID)
	return nil
}

// markOrderFailed is best effort: a failed order lookup must not turn a
// signature rejection into a different error.
func (s *Service) markOrderFailed(providerOrderID, reason string) {
	o, err := s.orders.GetByProviderOrderID(providerOrderID)
	if err != nil {
		s.logger.Warn("could not load order to mark failed",
			"provider_order_id", providerOrderID,
			"error", err)
		return
	}
	if err := s.orders.UpdateStatus(o.ID, order.StatusFailed); err != nil {
		s.logger.Warn("failed to mark order failed",
			"order_id", o.ID,
			"error", err)
		return
	}
	s.publish(events.NewPaymentFailedEvent(o.ID, providerOrderID, reason))
}

func (s *Service) publish(event events.Event) {
	if err := s.eventBus.Publish(context.Background(), event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
