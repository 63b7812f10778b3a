package postgres

import (
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/webhook"
	paymentpkg "github.com/frahmantamala/order-fulfillment/internal/payment"
)

type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) paymentpkg.WebhookEventRepositoryAPI {
	return &WebhookEventRepository{
		db: db,
	}
}

// Insert records a first-seen event. The primary key is the provider event
// id, so a concurrent or replayed delivery loses the insert and gets
// ErrDuplicateEvent, guaranteeing at-most-once reconciliation per event.
func (r *WebhookEventRepository) Insert(e *webhook.Event) error {
	err := r.db.Create(e).Error
	if isUniqueViolation(err) {
		return paymentpkg.ErrDuplicateEvent
	}
	return err
}

func (r *WebhookEventRepository) MarkError(id, message string) error {
	return r.db.Model(&webhook.Event{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        webhook.StatusError,
		"error_message": message,
		"updated_at":    time.Now(),
	}).Error
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
