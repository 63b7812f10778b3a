package webhook

import "time"

// Processing outcomes. A row exists per first-seen provider event id; the row
// is never deleted, only its status/error are updated in place.
const (
	StatusProcessed = "processed"
	StatusError     = "error"
)

// Event is the deduplication record for an inbound provider notification.
// The primary key is the provider-assigned event id, so the existence check
// plus insert ride on the unique constraint rather than check-then-insert.
type Event struct {
	ID                 string    `gorm:"primaryKey;column:id"`
	Type               string    `gorm:"column:type;not null"`
	PayloadFingerprint string    `gorm:"column:payload_fingerprint;not null"`
	Status             string    `gorm:"column:status;default:processed"`
	ErrorMessage       *string   `gorm:"column:error_message"`
	CreatedAt          time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt          time.Time `gorm:"column:updated_at;default:now()"`
}

func (Event) TableName() string {
	return "webhook_events"
}
