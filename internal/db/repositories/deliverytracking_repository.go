package repositories

import (
	"fmt"
	"time"

	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/logger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// DeliveryTrackingRepository is written by the Session Supervisor: Send
// creates a row per dispatched message and the ack handler updates it.
type DeliveryTrackingRepository interface {
	Create(tracking *models.DeliveryTracking) error
	MarkDelivered(sessionID, messageID string) error
	MarkRead(sessionID, messageID string) error
}

type deliveryTrackingRepository struct {
	db *sqlx.DB
	logger logger.Logger
}

func NewDeliveryTrackingRepository(db *sqlx.DB) DeliveryTrackingRepository {
	return &deliveryTrackingRepository{db: db, logger: logger.Get()}
}

func (r *deliveryTrackingRepository) Create(tracking *models.DeliveryTracking) error {
	if tracking.ID == uuid.Nil {
		tracking.ID = uuid.New()
	}
	if tracking.SentAt.IsZero() {
		tracking.SentAt = time.Now()
	}
	if tracking.Status == "" {
		tracking.Status = models.DeliveryStatusSent
	}
	query := `
 INSERT INTO delivery_tracking (id, session_id, message_id, recipient, status, sent_at)
 VALUES (:id,:session_id,:message_id,:recipient,:status,:sent_at)
	`
	if _, err := r.db.NamedExec(query, tracking); err != nil {
		return fmt.Errorf("failed to create delivery tracking: %w", err)
	}
	return nil
}

func (r *deliveryTrackingRepository) MarkDelivered(sessionID, messageID string) error {
	now := time.Now()
	query := `
 UPDATE delivery_tracking SET status = $3, delivered_at = $4
 WHERE session_id = $1 AND message_id = $2
	`
	_, err := r.db.Exec(query, sessionID, messageID, models.DeliveryStatusDelivered, now)
	if err != nil {
		return fmt.Errorf("failed to mark delivered: %w", err)
	}
	return nil
}

func (r *deliveryTrackingRepository) MarkRead(sessionID, messageID string) error {
	now := time.Now()
	query := `
 UPDATE delivery_tracking SET status = $3, read_at = $4
 WHERE session_id = $1 AND message_id = $2
	`
	_, err := r.db.Exec(query, sessionID, messageID, models.DeliveryStatusRead, now)
	if err != nil {
		return fmt.Errorf("failed to mark read: %w", err)
	}
	return nil
}
