package dto

import "time"

// APIKeyResponse is the dashboard's read shape for one session's API key.
// The secret is issued once at generation time and never returned again.
type APIKeyResponse struct {
	SessionID  string     `json:"session_id"`
	Key        string     `json:"key"`
	Secret     string     `json:"secret,omitempty"`
	IsActive   bool       `json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	UsageCount int64      `json:"usage_count"`
	CreatedAt  time.Time  `json:"created_at"`
}
