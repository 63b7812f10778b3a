package postgres

import (
	stderrors "errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/payment"
	paymentpkg "github.com/frahmantamala/order-fulfillment/internal/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) paymentpkg.RepositoryAPI {
	return &PaymentRepository{
		db: db,
	}
}

// Upsert writes the payment keyed by provider_payment_id. Replays update the
// existing row in place instead of creating duplicates.
func (r *PaymentRepository) Upsert(p *payment.Payment) error {
	p.UpdatedAt = time.Now()
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_payment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "amount", "method", "gateway_response", "updated_at",
		}),
	}).Create(p).Error
}

func (r *PaymentRepository) GetByProviderPaymentID(providerPaymentID string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.Where("provider_payment_id = ?", providerPaymentID).First(&p).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, paymentpkg.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) UpdateStatusByProviderPaymentID(providerPaymentID, status string) error {
	result := r.db.Model(&payment.Payment{}).
		Where("provider_payment_id = ?", providerPaymentID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return paymentpkg.ErrNotFound
	}
	return nil
}
