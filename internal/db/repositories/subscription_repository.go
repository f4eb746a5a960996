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

// SubscriptionRepository implements the `check_subscription_limits` and
// `increment_subscription_usage` remote procedures against the row store.
type SubscriptionRepository interface {
	GetActiveByUser(userID string) (*models.Subscription, error)
	CheckLimits(userID string, messagesNeeded, numbersNeeded int) (models.AdmissionResult, error)
	IncrementUsage(userID string, messagesSent, numbersSent int) error
	// IncrementNumbersUsedOnce increments numbers_used exactly once for a
	// distinct phone number, satisfying the open-question decision: a
	// unique constraint on (user_id, phone_number) backs the check-and-
	// increment so concurrent restoration and fresh-connect races cannot
	// double count.
	IncrementNumbersUsedOnce(userID, phoneNumber string) error
	// Subscribe deactivates any current subscription and starts a fresh one
	// on the given tier, used by the dashboard's tier-assignment endpoint.
	Subscribe(userID string, tier models.SubscriptionTier) (*models.Subscription, error)
}

type subscriptionRepository struct {
	db *sqlx.DB
	logger logger.Logger
}

func NewSubscriptionRepository(db *sqlx.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db, logger: logger.Get()}
}

func (r *subscriptionRepository) GetActiveByUser(userID string) (*models.Subscription, error) {
	sub := &models.Subscription{}
	query := `
 SELECT id, user_id, tier, messages_used, numbers_used, is_active, started_at, expires_at, created_at, updated_at
 FROM subscriptions WHERE user_id = $1 AND is_active = true
	`
	if err := r.db.Get(sub, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no active subscription")
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// CheckLimits evaluates whether messagesNeeded/numbersNeeded fit within the
// subscription's remaining quota, never enforcing a limit for premium
// tiers marked Unlimited.
func (r *subscriptionRepository) CheckLimits(userID string, messagesNeeded, numbersNeeded int) (models.AdmissionResult, error) {
	sub, err := r.GetActiveByUser(userID)
	if err != nil {
		return models.AdmissionResult{Allowed: false, Reason: "no_active_subscription"}, nil
	}
	limits := sub.Limits()
	if limits.Unlimited {
		return models.AdmissionResult{Allowed: true}, nil
	}
	if sub.ExpiresAt != nil && time.Now().After(*sub.ExpiresAt) {
		return models.AdmissionResult{Allowed: false, Reason: "subscription_expired"}, nil
	}
	if sub.MessagesUsed+messagesNeeded > limits.MessagesAllowed {
		return models.AdmissionResult{Allowed: false, Reason: "messages_quota_exceeded"}, nil
	}
	if sub.NumbersUsed+numbersNeeded > limits.NumbersAllowed {
		return models.AdmissionResult{Allowed: false, Reason: "numbers_quota_exceeded"}, nil
	}
	return models.AdmissionResult{Allowed: true}, nil
}

func (r *subscriptionRepository) IncrementUsage(userID string, messagesSent, numbersSent int) error {
	query := `
 UPDATE subscriptions SET messages_used = messages_used + $2, numbers_used = numbers_used + $3, updated_at = $4
 WHERE user_id = $1 AND is_active = true
	`
	_, err := r.db.Exec(query, userID, messagesSent, numbersSent, time.Now())
	if err != nil {
		return fmt.Errorf("failed to increment subscription usage: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) IncrementNumbersUsedOnce(userID, phoneNumber string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
 INSERT INTO subscription_numbers (id, user_id, phone_number, created_at)
 VALUES ($1, $2, $3, $4)
 ON CONFLICT (user_id, phone_number) DO NOTHING
	`, uuid.New(), userID, phoneNumber, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record subscription number: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		// phone number already counted toward numbers_used; nothing to do.
		return tx.Commit()
	}
	_, err = tx.Exec(`
 UPDATE subscriptions SET numbers_used = numbers_used + 1, updated_at = $2
 WHERE user_id = $1 AND is_active = true
	`, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to increment numbers_used: %w", err)
	}
	return tx.Commit()
}

func (r *subscriptionRepository) Subscribe(userID string, tier models.SubscriptionTier) (*models.Subscription, error) {
	limits, ok := models.TierCatalog[tier]
	if !ok {
		return nil, fmt.Errorf("unknown tier %q", tier)
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE subscriptions SET is_active = false, updated_at = $2 WHERE user_id = $1 AND is_active = true`, userID, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to deactivate current subscription: %w", err)
	}

	sub := &models.Subscription{
		ID: uuid.New(),
		UserID: userID,
		Tier: tier,
		IsActive: true,
		StartedAt: time.Now(),
	}
	if limits.DurationDays > 0 {
		expires := sub.StartedAt.AddDate(0, 0, limits.DurationDays)
		sub.ExpiresAt = &expires
	}

	query := `
 INSERT INTO subscriptions (id, user_id, tier, messages_used, numbers_used, is_active, started_at, expires_at, created_at, updated_at)
 VALUES ($1, $2, $3, 0, 0, true, $4, $5, $4, $4)
	`
	if _, err := tx.Exec(query, sub.ID, sub.UserID, sub.Tier, sub.StartedAt, sub.ExpiresAt); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit subscription: %w", err)
	}
	sub.CreatedAt, sub.UpdatedAt = sub.StartedAt, sub.StartedAt
	return sub, nil
}
