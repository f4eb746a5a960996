package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is the triple: an opaque key bound to exactly one (user, session)
// pair. Generated the first time a session reaches connected.
type APIKey struct {
	ID uuid.UUID `json:"id" db:"id"`
	Key string `json:"key" db:"key"`
	Secret string `json:"-" db:"secret"`
	UserID string `json:"user_id" db:"user_id"`
	SessionID string `json:"session_id" db:"session_id"`
	IsActive bool `json:"is_active" db:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	UsageCount int64 `json:"usage_count" db:"usage_count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// APIKeyPrefix is the fixed prefix every generated key carries.
const APIKeyPrefix = "wass_"
