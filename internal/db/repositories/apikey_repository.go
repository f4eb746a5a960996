package repositories

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/logger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// APIKeyRepository manages the api_keys table. GenerateKey/GenerateSecret
// are the local fallback implementations for the `generate_api_key` /
// `generate_api_secret` remote procedures the Admission Pipeline calls
// through its Procedures interface.
type APIKeyRepository interface {
	Create(key *models.APIKey) error
	GetByKey(key string) (*models.APIKey, error)
	GetBySessionID(sessionID string) (*models.APIKey, error)
	Revoke(sessionID string) error
	TouchUsage(key string) error
	GenerateKey() (string, error)
	GenerateSecret() (string, error)
}

type apiKeyRepository struct {
	db *sqlx.DB
	logger logger.Logger
}

func NewAPIKeyRepository(db *sqlx.DB) APIKeyRepository {
	return &apiKeyRepository{db: db, logger: logger.Get()}
}

func (r *apiKeyRepository) Create(key *models.APIKey) error {
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	key.CreatedAt = time.Now()
	query := `
 INSERT INTO api_keys (id, key, secret, user_id, session_id, is_active, usage_count, created_at)
 VALUES (:id,:key,:secret,:user_id,:session_id,:is_active,:usage_count,:created_at)
	`
	if _, err := r.db.NamedExec(query, key); err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

func (r *apiKeyRepository) GetByKey(key string) (*models.APIKey, error) {
	row := &models.APIKey{}
	query := `SELECT id, key, secret, user_id, session_id, is_active, last_used_at, usage_count, created_at
 FROM api_keys WHERE key = $1 AND is_active = true`
	if err := r.db.Get(row, query, key); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("api key not found")
		}
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return row, nil
}

func (r *apiKeyRepository) GetBySessionID(sessionID string) (*models.APIKey, error) {
	row := &models.APIKey{}
	query := `SELECT id, key, secret, user_id, session_id, is_active, last_used_at, usage_count, created_at
 FROM api_keys WHERE session_id = $1 AND is_active = true`
	if err := r.db.Get(row, query, sessionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("api key not found")
		}
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return row, nil
}

func (r *apiKeyRepository) Revoke(sessionID string) error {
	_, err := r.db.Exec("UPDATE api_keys SET is_active = false WHERE session_id = $1", sessionID)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	return nil
}

func (r *apiKeyRepository) TouchUsage(key string) error {
	query := `UPDATE api_keys SET last_used_at = $1, usage_count = usage_count + 1 WHERE key = $2`
	_, err := r.db.Exec(query, time.Now(), key)
	if err != nil {
		return fmt.Errorf("failed to touch api key usage: %w", err)
	}
	return nil
}

// GenerateKey produces a fresh key of the shape "wass_" + url-safe base64
// of 32 random bytes.
func (r *apiKeyRepository) GenerateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return models.APIKeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateSecret produces an independent random secret paired with a key.
func (r *apiKeyRepository) GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
