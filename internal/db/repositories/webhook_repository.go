package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/logger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// WebhookRepository backs the Webhook Fan-out Engine's subscription lookup
// and the `update_webhook_stats` remote procedure against the row store.
type WebhookRepository interface {
	Create(webhook *models.Webhook) error
	GetByID(id uuid.UUID) (*models.Webhook, error)
	ListByUser(userID string) ([]models.Webhook, error)
	ListSubscribed(userID, sessionID string, eventType models.WebhookEventType) ([]models.Webhook, error)
	Update(webhook *models.Webhook) error
	Delete(id uuid.UUID) error
	RecordAttempt(log *models.WebhookLog) error
	ListLogs(webhookID uuid.UUID, page, perPage int) ([]models.WebhookLog, int, error)
	UpdateStats(webhookID uuid.UUID, success bool) error
}

type webhookRepository struct {
	db *sqlx.DB
	logger logger.Logger
}

func NewWebhookRepository(db *sqlx.DB) WebhookRepository {
	return &webhookRepository{db: db, logger: logger.Get()}
}

func (r *webhookRepository) Create(webhook *models.Webhook) error {
	if webhook.ID == uuid.Nil {
		webhook.ID = uuid.New()
	}
	now := time.Now()
	webhook.CreatedAt = now
	webhook.UpdatedAt = now
	query := `
 INSERT INTO webhooks (id, user_id, session_id, webhook_type, url, success_webhook_url, failure_webhook_url,
 custom_payload, headers, max_retries, retry_delay_seconds, retry_on_failure, is_active,
 total_calls, success_calls, failed_calls, created_at, updated_at)
 VALUES (:id,:user_id,:session_id,:webhook_type,:url,:success_webhook_url,:failure_webhook_url,
:custom_payload,:headers,:max_retries,:retry_delay_seconds,:retry_on_failure,:is_active,
:total_calls,:success_calls,:failed_calls,:created_at,:updated_at)
	`
	if _, err := r.db.NamedExec(query, webhook); err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}
	return nil
}

var webhookColumns = `user_id, session_id, webhook_type, url, success_webhook_url, failure_webhook_url,
	custom_payload, headers, max_retries, retry_delay_seconds, retry_on_failure, is_active,
	total_calls, success_calls, failed_calls, last_called_at, last_success_at, last_failure_at, created_at, updated_at`

func (r *webhookRepository) GetByID(id uuid.UUID) (*models.Webhook, error) {
	webhook := &models.Webhook{}
	query := fmt.Sprintf("SELECT id, %s FROM webhooks WHERE id = $1", webhookColumns)
	if err := r.db.Get(webhook, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("webhook not found")
		}
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}
	return webhook, nil
}

func (r *webhookRepository) ListByUser(userID string) ([]models.Webhook, error) {
	var webhooks []models.Webhook
	query := fmt.Sprintf("SELECT id, %s FROM webhooks WHERE user_id = $1 ORDER BY created_at DESC", webhookColumns)
	if err := r.db.Select(&webhooks, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	return webhooks, nil
}

// ListSubscribed implements the subscription lookup: webhooks with
// webhook_type = eventType OR webhook_type = "all", active, for this
// (user, session).
func (r *webhookRepository) ListSubscribed(userID, sessionID string, eventType models.WebhookEventType) ([]models.Webhook, error) {
	var webhooks []models.Webhook
	query := fmt.Sprintf(`
 SELECT id, %s FROM webhooks
 WHERE user_id = $1 AND session_id = $2 AND is_active = true AND (webhook_type = $3 OR webhook_type = $4)
	`, webhookColumns)
	if err := r.db.Select(&webhooks, query, userID, sessionID, eventType, models.EventAll); err != nil {
		return nil, fmt.Errorf("failed to list subscribed webhooks: %w", err)
	}
	return webhooks, nil
}

func (r *webhookRepository) Update(webhook *models.Webhook) error {
	webhook.UpdatedAt = time.Now()
	query := `
 UPDATE webhooks SET url =:url, success_webhook_url =:success_webhook_url,
 failure_webhook_url =:failure_webhook_url, custom_payload =:custom_payload, headers =:headers,
 max_retries =:max_retries, retry_delay_seconds =:retry_delay_seconds,
 retry_on_failure =:retry_on_failure, is_active =:is_active, updated_at =:updated_at
 WHERE id =:id
	`
	result, err := r.db.NamedExec(query, webhook)
	if err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("webhook not found")
	}
	return nil
}

func (r *webhookRepository) Delete(id uuid.UUID) error {
	result, err := r.db.Exec("DELETE FROM webhooks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("webhook not found")
	}
	return nil
}

func (r *webhookRepository) RecordAttempt(log *models.WebhookLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	log.CreatedAt = time.Now()
	query := `
 INSERT INTO webhook_logs (id, webhook_id, event_type, payload, response_status, response_body,
 success, error_message, attempt, is_retry, created_at)
 VALUES (:id,:webhook_id,:event_type,:payload,:response_status,:response_body,
:success,:error_message,:attempt,:is_retry,:created_at)
	`
	if _, err := r.db.NamedExec(query, log); err != nil {
		return fmt.Errorf("failed to record webhook log: %w", err)
	}
	return nil
}

func (r *webhookRepository) ListLogs(webhookID uuid.UUID, page, perPage int) ([]models.WebhookLog, int, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	var total int
	if err := r.db.Get(&total, "SELECT COUNT(*) FROM webhook_logs WHERE webhook_id = $1", webhookID); err != nil {
		return nil, 0, fmt.Errorf("failed to count webhook logs: %w", err)
	}
	var logs []models.WebhookLog
	offset := (page - 1) * perPage
	query := `
 SELECT id, webhook_id, event_type, payload, response_status, response_body, success, error_message, attempt, is_retry, created_at
 FROM webhook_logs WHERE webhook_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`
	if err := r.db.Select(&logs, query, webhookID, perPage, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list webhook logs: %w", err)
	}
	return logs, total, nil
}

// UpdateStats implements the `update_webhook_stats` remote procedure: one
// statement bumping cumulative counters and the relevant timestamp,
// applied once per event's final outcome.
func (r *webhookRepository) UpdateStats(webhookID uuid.UUID, success bool) error {
	now := time.Now()
	var query string
	if success {
		query = `
 UPDATE webhooks SET total_calls = total_calls + 1, success_calls = success_calls + 1,
 last_called_at = $2, last_success_at = $2 WHERE id = $1
 `
	} else {
		query = `
 UPDATE webhooks SET total_calls = total_calls + 1, failed_calls = failed_calls + 1,
 last_called_at = $2, last_failure_at = $2 WHERE id = $1
 `
	}
	_, err := r.db.Exec(query, webhookID, now)
	if err != nil {
		return fmt.Errorf("failed to update webhook stats: %w", err)
	}
	return nil
}
