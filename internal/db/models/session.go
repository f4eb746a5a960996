package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the Session Supervisor's state machine position.
type SessionStatus string

const (
	SessionStatusInitializing SessionStatus = "initializing"
	SessionStatusQRPending SessionStatus = "qr_pending"
	SessionStatusConnecting SessionStatus = "connecting"
	SessionStatusConnected SessionStatus = "connected"
	SessionStatusDisconnected SessionStatus = "disconnected"
	SessionStatusFailed SessionStatus = "failed"
)

// IsTerminal reports whether the supervisor owning this status has exited.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusDisconnected || s == SessionStatusFailed
}

// Session is the top-level entity: one browser-automation identity
// owned by one user, carrying the supervisor's current lifecycle state.
type Session struct {
	ID uuid.UUID `json:"id" db:"id"`
	SessionID string `json:"session_id" db:"session_id"`
	UserID string `json:"user_id" db:"user_id"`
	PhoneNumber *string `json:"phone_number,omitempty" db:"phone_number"`
	JID *string `json:"jid,omitempty" db:"jid"`
	Status SessionStatus `json:"status" db:"status"`
	QRCode *string `json:"qr_code,omitempty" db:"qr_code"`
	LastActivity *time.Time `json:"last_activity,omitempty" db:"last_activity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	LastConnectedAt *time.Time `json:"last_connected_at,omitempty" db:"last_connected_at"`
	Metadata Metadata `json:"metadata" db:"metadata"`
}

// Metadata is a free-form JSON bag attached to several tables.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = make(Metadata)
		return nil
	}
	switch v := value.(type) {
		case []byte:
		if len(v) == 0 {
			*m = make(Metadata)
			return nil
		}
		return json.Unmarshal(v, m)
		case string:
		if v == "" {
			*m = make(Metadata)
			return nil
		}
		return json.Unmarshal([]byte(v), m)
		default:
		return fmt.Errorf("cannot scan %T into Metadata", value)
	}
}

// CreateSessionRequest is a camelCase session-connect body. The
// `POST /sessions` handler binds dto.CreateSessionRequest, not this type.
type CreateSessionRequest struct {
	UserID string `json:"userId" validate:"required"`
	SessionID string `json:"sessionId" validate:"required,min=3,max=255"`
}

// SessionFilter constrains a session listing.
type SessionFilter struct {
	UserID *string `json:"user_id,omitempty"`
	Status *SessionStatus `json:"status,omitempty"`
	Page int `json:"page"`
	PerPage int `json:"per_page"`
	OrderBy string `json:"order_by"`
	OrderDir string `json:"order_dir"`
}

// SessionListResponse is a paginated session listing.
type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
	Total int `json:"total"`
	Page int `json:"page"`
	PerPage int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

// QRCodeResponse wraps the current QR payload for display by a caller.
type QRCodeResponse struct {
	QRCode string `json:"qr_code"`
	Timeout int `json:"timeout_seconds"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) Validate() error {
	if s.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if s.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	return nil
}

func (s *Session) IsConnected() bool {
	return s.Status == SessionStatusConnected
}

// UpdateStatus transitions the row's status and stamps UpdatedAt, and
// LastConnectedAt when the new status is connected.
func (s *Session) UpdateStatus(status SessionStatus) {
	s.Status = status
	s.UpdatedAt = time.Now()
	if status == SessionStatusConnected {
		now := time.Now()
		s.LastConnectedAt = &now
	}
}
