package postgres

import (
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/order"
	orderpkg "github.com/frahmantamala/order-fulfillment/internal/order"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) orderpkg.RepositoryAPI {
	return &OrderRepository{
		db: db,
	}
}

func (r *OrderRepository) Create(o *order.Order) error {
	err := r.db.Create(o).Error
	if isUniqueViolation(err) {
		return orderpkg.ErrDuplicateKey
	}
	return err
}

func (r *OrderRepository) GetByID(id int64) (*order.Order, error) {
	var o order.Order
	err := r.db.First(&o, id).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &o, nil
}

func (r *OrderRepository) GetByIdempotencyKey(key string) (*order.Order, error) {
	var o order.Order
	err := r.db.Where("idempotency_key = ?", key).First(&o).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &o, nil
}

func (r *OrderRepository) GetByProviderOrderID(providerOrderID string) (*order.Order, error) {
	var o order.Order
	err := r.db.Where("provider_order_id = ?", providerOrderID).First(&o).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &o, nil
}

// SetProviderOrder attaches the gateway order id exactly once; a row that
// already has one is left untouched.
func (r *OrderRepository) SetProviderOrder(id int64, providerOrderID string, snapshot json.RawMessage) error {
	updates := map[string]interface{}{
		"provider_order_id": providerOrderID,
		"updated_at":        time.Now(),
	}
	if snapshot != nil {
		updates["provider_response"] = snapshot
	}
	return r.db.Model(&order.Order{}).
		Where("id = ? AND provider_order_id IS NULL", id).
		Updates(updates).Error
}

func (r *OrderRepository) UpdateStatus(id int64, status string) error {
	return r.db.Model(&order.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}).Error
}

func (r *OrderRepository) SetSeller(id int64, sellerID int64) error {
	return r.db.Model(&order.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"seller_id":  sellerID,
		"updated_at": time.Now(),
	}).Error
}

// MergeMetadata folds the given fields into the metadata bag without
// disturbing unrelated keys.
func (r *OrderRepository) MergeMetadata(id int64, fields map[string]interface{}) error {
	var o order.Order
	if err := r.db.First(&o, id).Error; err != nil {
		return mapNotFound(err)
	}

	bag := map[string]interface{}{}
	if len(o.Metadata) > 0 {
		if err := json.Unmarshal(o.Metadata, &bag); err != nil {
			return err
		}
	}
	for k, v := range fields {
		bag[k] = v
	}

	merged, err := json.Marshal(bag)
	if err != nil {
		return err
	}

	return r.db.Model(&order.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"metadata":   json.RawMessage(merged),
		"updated_at": time.Now(),
	}).Error
}

func mapNotFound(err error) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return orderpkg.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
