package shipment

import (
	"encoding/json"
	"time"
)

// Shipment statuses as tracked against the logistics provider.
const (
	StatusCreated         = "created"
	StatusPickupScheduled = "pickup_scheduled"
	StatusCancelled       = "cancelled"
	StatusDelivered       = "delivered"
)

// Payment modes accepted by the logistics provider.
const (
	PaymentModePrepaid = "Prepaid"
	PaymentModeCOD     = "COD"
)

// Shipment is one fulfillment request sent to the logistics provider. A row is
// only valid with a tracking id; failed creation attempts are snapshotted onto
// the order instead of persisted here.
type Shipment struct {
	ID            int64           `gorm:"primaryKey"`
	OrderID       int64           `gorm:"column:order_id;not null;uniqueIndex"`
	SellerID      *int64          `gorm:"column:seller_id"`
	TrackingID    string          `gorm:"column:tracking_id;not null"`
	Status        string          `gorm:"column:status;default:created"`
	PaymentMode   string          `gorm:"column:payment_mode;not null"`
	CODAmount     *float64        `gorm:"column:cod_amount"`
	Consignee     json.RawMessage `gorm:"column:consignee;type:jsonb"`
	WeightKg      float64         `gorm:"column:weight_kg"`
	LengthCm      float64         `gorm:"column:length_cm"`
	BreadthCm     float64         `gorm:"column:breadth_cm"`
	HeightCm      float64         `gorm:"column:height_cm"`
	DeclaredValue float64         `gorm:"column:declared_value"`
	CreatedAt     time.Time       `gorm:"column:created_at;default:now()"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;default:now()"`
}
