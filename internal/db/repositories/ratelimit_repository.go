package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/felipe/wagateway/internal/config"
	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/logger"
	"github.com/jmoiron/sqlx"
)

// RateLimitRepository resolves per-user settings and counts messages within
// a sliding window: the sum of each automation-log row's recipients, with a
// row whose recipient list is empty counting as one.
type RateLimitRepository interface {
	GetSettings(userID string) (*models.RateLimitSettings, error)
	CountInWindow(userID string, window models.RateLimitWindow) (int, error)
}

type rateLimitRepository struct {
	db *sqlx.DB
	defaults config.RateLimitConfig
	logger logger.Logger
}

func NewRateLimitRepository(db *sqlx.DB, defaults config.RateLimitConfig) RateLimitRepository {
	return &rateLimitRepository{db: db, defaults: defaults, logger: logger.Get()}
}

func (r *rateLimitRepository) GetSettings(userID string) (*models.RateLimitSettings, error) {
	settings := &models.RateLimitSettings{}
	query := "SELECT user_id, per_minute, per_hour, per_day, updated_at FROM rate_limit_settings WHERE user_id = $1"
	err := r.db.Get(settings, query, userID)
	if err == nil {
		return settings, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get rate limit settings: %w", err)
	}
	return &models.RateLimitSettings{
		UserID: userID,
		PerMinute: r.defaults.DefaultPerMinute,
		PerHour: r.defaults.DefaultPerHour,
		PerDay: r.defaults.DefaultPerDay,
		UpdatedAt: time.Now(),
	}, nil
}

func (r *rateLimitRepository) CountInWindow(userID string, window models.RateLimitWindow) (int, error) {
	var count int
	query := `
 SELECT COALESCE(SUM(jsonb_array_length(recipients::jsonb) + CASE WHEN jsonb_array_length(recipients::jsonb) = 0 THEN 1 ELSE 0 END), 0)
 FROM automation_logs
 WHERE user_id = $1 AND created_at >= $2
	`
	since := time.Now().Add(-window.Duration())
	if err := r.db.Get(&count, query, userID, since); err != nil {
		return 0, fmt.Errorf("failed to count automation logs in window: %w", err)
	}
	return count, nil
}
