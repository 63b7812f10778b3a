package postgres

import (
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/shipment"
	shippingpkg "github.com/frahmantamala/order-fulfillment/internal/shipping"
)

type ShipmentRepository struct {
	db *gorm.DB
}

func NewShipmentRepository(db *gorm.DB) shippingpkg.RepositoryAPI {
	return &ShipmentRepository{
		db: db,
	}
}

func (r *ShipmentRepository) Create(sh *shipment.Shipment) error {
	return r.db.Create(sh).Error
}

func (r *ShipmentRepository) GetByOrderID(orderID int64) (*shipment.Shipment, error) {
	var sh shipment.Shipment
	err := r.db.Where("order_id = ?", orderID).First(&sh).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &sh, nil
}

func (r *ShipmentRepository) GetByTrackingID(trackingID string) (*shipment.Shipment, error) {
	var sh shipment.Shipment
	err := r.db.Where("tracking_id = ?", trackingID).First(&sh).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &sh, nil
}

func (r *ShipmentRepository) UpdateStatus(id int64, status string) error {
	return r.db.Model(&shipment.Shipment{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}).Error
}

func mapNotFound(err error) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return shippingpkg.ErrNotFound
	}
	return err
}
