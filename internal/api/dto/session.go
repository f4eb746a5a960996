package dto

import "time"

// CreateSessionRequest starts a new session for a user, issued by an admin
// on the user's behalf.
type CreateSessionRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	SessionID string `json:"session_id" validate:"required,alphanum,min=3,max=50"`
}

// SessionResponse is the dashboard's read shape for one session.
type SessionResponse struct {
	SessionID       string     `json:"session_id"`
	UserID          string     `json:"user_id"`
	Status          string     `json:"status"`
	PhoneNumber     string     `json:"phone_number,omitempty"`
	JID             string     `json:"jid,omitempty"`
	LastConnectedAt *time.Time `json:"last_connected_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// SessionListResponse is the paginated session listing.
type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Total    int               `json:"total"`
}

// QRCodeResponse carries the current pairing QR as a displayable PNG data
// URL so the dashboard can render it directly without a second fetch.
type QRCodeResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	QRDataURL string `json:"qr_data_url,omitempty"`
}
