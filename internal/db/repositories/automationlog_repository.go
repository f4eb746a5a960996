package repositories

import (
	"fmt"
	"time"

	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/logger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AutomationLogRepository is the append-only audit trail; its table is also
// what rate-limit window counts read. No account-strength metrics are
// computed from it.
type AutomationLogRepository interface {
	Create(log *models.AutomationLog) error
	ListBySession(sessionID string, page, perPage int) ([]models.AutomationLog, int, error)
	CountByUserAndType(userID string, logType models.AutomationLogType, since time.Time) (int, error)
}

type automationLogRepository struct {
	db *sqlx.DB
	logger logger.Logger
}

func NewAutomationLogRepository(db *sqlx.DB) AutomationLogRepository {
	return &automationLogRepository{db: db, logger: logger.Get()}
}

func (r *automationLogRepository) Create(log *models.AutomationLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	log.CreatedAt = time.Now()
	query := `
 INSERT INTO automation_logs (id, user_id, session_id, type, recipients, message, status, error_detail, created_at)
 VALUES (:id,:user_id,:session_id,:type,:recipients,:message,:status,:error_detail,:created_at)
	`
	if _, err := r.db.NamedExec(query, log); err != nil {
		return fmt.Errorf("failed to create automation log: %w", err)
	}
	return nil
}

func (r *automationLogRepository) ListBySession(sessionID string, page, perPage int) ([]models.AutomationLog, int, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	var total int
	if err := r.db.Get(&total, "SELECT COUNT(*) FROM automation_logs WHERE session_id = $1", sessionID); err != nil {
		return nil, 0, fmt.Errorf("failed to count automation logs: %w", err)
	}
	var logs []models.AutomationLog
	offset := (page - 1) * perPage
	query := `
 SELECT id, user_id, session_id, type, recipients, message, status, error_detail, created_at
 FROM automation_logs WHERE session_id = $1
 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`
	if err := r.db.Select(&logs, query, sessionID, perPage, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list automation logs: %w", err)
	}
	return logs, total, nil
}

func (r *automationLogRepository) CountByUserAndType(userID string, logType models.AutomationLogType, since time.Time) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM automation_logs WHERE user_id = $1 AND type = $2 AND created_at >= $3"
	if err := r.db.Get(&count, query, userID, logType, since); err != nil {
		return 0, fmt.Errorf("failed to count automation logs: %w", err)
	}
	return count, nil
}
