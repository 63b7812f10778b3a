package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentVerified = "payment.verified"
	EventTypePaymentFailed   = "payment.failed"
	EventTypeCODPlaced       = "order.cod_placed"
	EventTypeShipmentCreated = "shipment.created"
)

// PaymentVerifiedEvent fires when an order reaches paid, whether via the
// client-reported fast path or the reconciled webhook. Both paths publish it,
// so subscribers must tolerate duplicates.
type PaymentVerifiedEvent struct {
	BaseEvent
	OrderID           int64  `json:"order_id"`
	ProviderOrderID   string `json:"provider_order_id"`
	ProviderPaymentID string `json:"provider_payment_id"`
	Amount            int64  `json:"amount"`
	Source            string `json:"source"`
}

func NewPaymentVerifiedEvent(orderID int64, providerOrderID, providerPaymentID string, amount int64, source string) *PaymentVerifiedEvent {
	return &PaymentVerifiedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentVerified,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"order_id":            orderID,
				"provider_order_id":   providerOrderID,
				"provider_payment_id": providerPaymentID,
				"amount":              amount,
				"source":              source,
			},
		},
		OrderID:           orderID,
		ProviderOrderID:   providerOrderID,
		ProviderPaymentID: providerPaymentID,
		Amount:            amount,
		Source:            source,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	OrderID         int64  `json:"order_id"`
	ProviderOrderID string `json:"provider_order_id"`
	Reason          string `json:"reason"`
}

func NewPaymentFailedEvent(orderID int64, providerOrderID, reason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"order_id":          orderID,
				"provider_order_id": providerOrderID,
				"reason":            reason,
			},
		},
		OrderID:         orderID,
		ProviderOrderID: providerOrderID,
		Reason:          reason,
	}
}

type CODPlacedEvent struct {
	BaseEvent
	OrderID    int64   `json:"order_id"`
	CashAmount float64 `json:"cash_amount"`
	TrackingID string  `json:"tracking_id"`
}

func NewCODPlacedEvent(orderID int64, cashAmount float64, trackingID string) *CODPlacedEvent {
	return &CODPlacedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeCODPlaced,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"order_id":    orderID,
				"cash_amount": cashAmount,
				"tracking_id": trackingID,
			},
		},
		OrderID:    orderID,
		CashAmount: cashAmount,
		TrackingID: trackingID,
	}
}

type ShipmentCreatedEvent struct {
	BaseEvent
	OrderID    int64  `json:"order_id"`
	TrackingID string `json:"tracking_id"`
	Mode       string `json:"mode"`
}

func NewShipmentCreatedEvent(orderID int64, trackingID, mode string) *ShipmentCreatedEvent {
	return &ShipmentCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeShipmentCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"order_id":    orderID,
				"tracking_id": trackingID,
				"mode":        mode,
			},
		},
		OrderID:    orderID,
		TrackingID: trackingID,
		Mode:       mode,
	}
}
