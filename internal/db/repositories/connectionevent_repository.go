package repositories

import (
	"fmt"
	"time"

	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/logger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ConnectionEventRepository persists the supervisor's audit trail.
type ConnectionEventRepository interface {
	Record(sessionID, userID string, eventType models.ConnectionEventType, details models.Metadata) error
	ListBySession(sessionID string, limit int) ([]models.ConnectionEvent, error)
}

type connectionEventRepository struct {
	db *sqlx.DB
	logger logger.Logger
}

func NewConnectionEventRepository(db *sqlx.DB) ConnectionEventRepository {
	return &connectionEventRepository{db: db, logger: logger.Get()}
}

func (r *connectionEventRepository) Record(sessionID, userID string, eventType models.ConnectionEventType, details models.Metadata) error {
	event := &models.ConnectionEvent{
		ID: uuid.New(),
		SessionID: sessionID,
		UserID: userID,
		Type: eventType,
		Details: details,
		CreatedAt: time.Now(),
	}
	query := `
 INSERT INTO connection_events (id, session_id, user_id, type, details, created_at)
 VALUES (:id,:session_id,:user_id,:type,:details,:created_at)
	`
	if _, err := r.db.NamedExec(query, event); err != nil {
		return fmt.Errorf("failed to record connection event: %w", err)
	}
	return nil
}

func (r *connectionEventRepository) ListBySession(sessionID string, limit int) ([]models.ConnectionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.ConnectionEvent
	query := `
 SELECT id, session_id, user_id, type, details, created_at FROM connection_events
 WHERE session_id = $1 ORDER BY created_at DESC LIMIT $2
	`
	if err := r.db.Select(&events, query, sessionID, limit); err != nil {
		return nil, fmt.Errorf("failed to list connection events: %w", err)
	}
	return events, nil
}
