package shipping

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/order-fulfillment/internal"
	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/order"
	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/shipment"
	"github.com/frahmantamala/order-fulfillment/internal/core/events"
)

// Service provisions shipments once payment is confirmed (or COD is chosen)
// and owns cancellation. A shipment row is only persisted when the provider
// handed back a tracking id; failed attempts are snapshotted onto the order
// metadata instead.
type Service struct {
	provider ProviderAPI
	repo     RepositoryAPI
	orders   OrderDataAPI
	catalog  CatalogAPI
	gateway  GatewayAPI
	eventBus *events.EventBus
	cfg      internal.ShippingConfig
	logger   *slog.Logger
}

func NewService(
	provider ProviderAPI,
	repo RepositoryAPI,
	orders OrderDataAPI,
	catalog CatalogAPI,
	gateway GatewayAPI,
	eventBus *events.EventBus,
	cfg internal.ShippingConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		provider: provider,
		repo:     repo,
		orders:   orders,
		catalog:  catalog,
		gateway:  gateway,
		eventBus: eventBus,
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateShipment builds the provider request from the order, calls the
// provider and persists the resulting tracking id. A response without both a
// 2xx status and a tracking id is a hard failure, not a partial success.
func (s *Service) CreateShipment(ctx context.Context, o *order.Order, paymentMode string, codAmount *float64) (*CreateResult, error) {
	existing, err := s.repo.GetByOrderID(o.ID)
	if err != nil && !stderrors.Is(err, ErrNotFound) {
		return nil, internal.NewInternalError("shipment lookup failed", err)
	}
	if existing != nil {
		s.logger.Info("order already has a shipment, skipping provisioning",
			"order_id", o.ID,
			"tracking_id", existing.TrackingID)
		return nil, internal.ErrShipmentExists
	}

	consignee, parcel, err := s.buildConsignee(o, paymentMode, codAmount)
	if err != nil {
		return nil, err
	}

	payload := s.buildPayload(o, consignee, parcel, paymentMode, codAmount)

	resp, err := s.provider.CreateShipment(ctx, payload)
	if err != nil {
		s.snapshotFailure(o.ID, nil, err.Error())
		return nil, internal.NewProviderError("shipment provider unreachable", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || resp.TrackingID == "" {
		s.logger.Error("shipment provisioning rejected",
			"order_id", o.ID,
			"status_code", resp.StatusCode,
			"tracking_id", resp.TrackingID)
		s.snapshotFailure(o.ID, resp.Body, "provider response missing tracking id or non-2xx")
		return nil, internal.NewProviderError("shipment provider did not return a tracking id", nil)
	}

	status := resp.Status
	if status == "" {
		status = shipment.StatusCreated
	}

	row := &shipment.Shipment{
		OrderID:       o.ID,
		SellerID:      o.SellerID,
		TrackingID:    resp.TrackingID,
		Status:        status,
		PaymentMode:   paymentMode,
		CODAmount:     codAmount,
		Consignee:     consignee.marshal(),
		WeightKg:      parcel.WeightKg,
		LengthCm:      parcel.LengthCm,
		BreadthCm:     parcel.BreadthCm,
		HeightCm:      parcel.HeightCm,
		DeclaredValue: parcel.DeclaredValue,
	}
	if err := s.repo.Create(row); err != nil {
		s.logger.Error("failed to persist shipment",
			"order_id", o.ID,
			"tracking_id", resp.TrackingID,
			"error", err)
		return nil, internal.NewInternalError("failed to persist shipment", err)
	}

	// audit snapshot on the order so troubleshooting never needs a join;
	// best effort, the shipment row is already the source of truth
	if err := s.orders.MergeMetadata(o.ID, map[string]interface{}{
		"shipment_awb":        resp.TrackingID,
		"shipment_status":     status,
		"shipment_created_at": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		s.logger.Warn("failed to merge shipment snapshot into order metadata",
			"order_id", o.ID,
			"error", err)
	}

	// handlers run async and must outlive the request context
	if err := s.eventBus.Publish(context.Background(), events.NewShipmentCreatedEvent(o.ID, resp.TrackingID, paymentMode)); err != nil {
		s.logger.Warn("failed to publish shipment created event", "order_id", o.ID, "error", err)
	}

	s.logger.Info("shipment created",
		"order_id", o.ID,
		"tracking_id", resp.TrackingID,
		"payment_mode", paymentMode)

	return &CreateResult{
		TrackingID:     resp.TrackingID,
		ProviderStatus: status,
		Raw:            resp.Body,
	}, nil
}

// CancelShipment runs the strategy executor against the provider and marks
// the local row cancelled when the provider accepted any variant.
func (s *Service) CancelShipment(ctx context.Context, trackingID string) (*CancelResult, error) {
	row, err := s.repo.GetByTrackingID(trackingID)
	if err != nil && !stderrors.Is(err, ErrNotFound) {
		return nil, internal.NewInternalError("shipment lookup failed", err)
	}

	result, err := s.provider.CancelShipment(ctx, trackingID)
	if err != nil {
		return nil, internal.NewProviderError("shipment cancellation failed", err)
	}

	if result.Success && row != nil {
		if err := s.repo.UpdateStatus(row.ID, shipment.StatusCancelled); err != nil {
			s.logger.Warn("provider cancelled shipment but local status update failed",
				"tracking_id", trackingID,
				"error", err)
		}
	}

	return result, nil
}

// buildConsignee derives the recipient from normalized order metadata. An
// explicit full name wins, then joined first/last; prepaid orders with no
// name in metadata fall back to the gateway order notes. COD never touches
// the gateway, even when intake already created a provider order. Missing
// required fields are a hard failure before any provider call.
func (s *Service) buildConsignee(o *order.Order, paymentMode string, codAmount *float64) (*Consignee, *Parcel, error) {
	info, err := order.ParseShippingInfo(o.Metadata)
	if err != nil {
		return nil, nil, internal.NewValidationError("order metadata is not valid JSON", internal.ErrCodeInvalidBody).WithCause(err)
	}

	name := info.ConsigneeName()
	if name == "" && paymentMode == shipment.PaymentModePrepaid && o.HasProviderOrder() {
		name = s.nameFromGatewayNotes(*o.ProviderOrderID)
	}

	missing := info.MissingConsigneeFields()
	if name == "" {
		missing = append([]string{"name"}, missing...)
	}
	if len(missing) > 0 {
		s.logger.Error("order metadata missing required shipping fields",
			"order_id", o.ID,
			"missing", missing)
		return nil, nil, internal.NewValidationError(
			"order metadata is missing required shipping fields",
			internal.ErrCodeMissingShippingFields,
		).WithDetails(map[string]interface{}{"missing_fields": missing})
	}

	consignee := &Consignee{
		Name:         name,
		Address:      info.Address,
		AddressLine2: info.AddressLine2,
		City:         info.City,
		State:        info.State,
		Pincode:      info.Pincode,
		Phone:        info.Phone,
		Email:        info.Email,
	}

	parcel := &Parcel{
		WeightKg:      orDefault(info.WeightKg, s.cfg.DefaultWeightKg),
		LengthCm:      orDefault(info.LengthCm, s.cfg.DefaultLengthCm),
		BreadthCm:     orDefault(info.BreadthCm, s.cfg.DefaultBreadthCm),
		HeightCm:      orDefault(info.HeightCm, s.cfg.DefaultHeightCm),
		DeclaredValue: info.DeclaredValue,
	}
	if parcel.DeclaredValue == 0 {
		if codAmount != nil {
			parcel.DeclaredValue = *codAmount
		} else {
			parcel.DeclaredValue = o.CashAmount()
		}
	}

	return consignee, parcel, nil
}

func (s *Service) buildPayload(o *order.Order, consignee *Consignee, parcel *Parcel, paymentMode string, codAmount *float64) map[string]interface{} {
	payload := map[string]interface{}{
		"order_id":        o.ID,
		"pickup_location": s.pickupLocation(o),
		"payment_mode":    paymentMode,
		"consignee":       consignee,
		"parcel":          parcel,
	}
	if codAmount != nil {
		payload["cod_amount"] = *codAmount
	}
	return payload
}

// pickupLocation prefers the seller's registered pickup point and falls back
// to the configured default.
func (s *Service) pickupLocation(o *order.Order) string {
	if o.SellerID != nil {
		pickup, err := s.catalog.PickupLocation(*o.SellerID)
		if err == nil && pickup != "" {
			return pickup
		}
		s.logger.Warn("seller pickup lookup failed, using default",
			"order_id", o.ID,
			"seller_id", *o.SellerID,
			"error", err)
	}
	return s.cfg.DefaultPickup
}

func (s *Service) nameFromGatewayNotes(providerOrderID string) string {
	notes, err := s.gateway.FetchOrderNotes(providerOrderID)
	if err != nil {
		s.logger.Warn("gateway notes lookup failed",
			"provider_order_id", providerOrderID,
			"error", err)
		return ""
	}
	for _, key := range []string{"customer_name", "name"} {
		if name, ok := notes[key].(string); ok && name != "" {
			return name
		}
	}
	return ""
}

// snapshotFailure stores the failed attempt on the order metadata for
// diagnosis. Best effort only.
func (s *Service) snapshotFailure(orderID int64, body []byte, reason string) {
	fields := map[string]interface{}{
		"shipment_error":        reason,
		"shipment_attempted_at": time.Now().UTC().Format(time.RFC3339),
	}
	if len(body) > 0 {
		fields["shipment_error_response"] = string(body)
	}
	if err := s.orders.MergeMetadata(orderID, fields); err != nil {
		s.logger.Warn("failed to snapshot shipment failure onto order",
			"order_id", orderID,
			"error", err)
	}
}

func orDefault(value, fallback float64) float64 {
	if value > 0 {
		return value
	}
	return fallback
}
