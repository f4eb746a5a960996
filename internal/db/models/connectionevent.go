package models

import (
	"time"

	"github.com/google/uuid"
)

// ConnectionEventType classifies a supervisor transition worth an audit
// trail entry.
type ConnectionEventType string

const (
	ConnEventConnected ConnectionEventType = "connected"
	ConnEventDisconnected ConnectionEventType = "disconnected"
	ConnEventReconnecting ConnectionEventType = "reconnecting"
	ConnEventError ConnectionEventType = "error"
)

// ConnectionEvent is an append-only row the supervisor writes on every
// transition, independent of the session row's current snapshot state.
type ConnectionEvent struct {
	ID uuid.UUID `json:"id" db:"id"`
	SessionID string `json:"session_id" db:"session_id"`
	UserID string `json:"user_id" db:"user_id"`
	Type ConnectionEventType `json:"type" db:"type"`
	Details Metadata `json:"details,omitempty" db:"details"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
