package dto

import "time"

// SendTextRequest sends a single plain-text message through the
// Admission Pipeline.
type SendTextRequest struct {
	To   string `json:"to" validate:"required"`
	Text string `json:"text" validate:"required,max=4096"`
}

// SendOTPRequest sends a one-time-password message built from a
// language-specific template.
type SendOTPRequest struct {
	To       string `json:"to" validate:"required"`
	Code     string `json:"code" validate:"required,max=20"`
	Language string `json:"language,omitempty" validate:"omitempty,oneof=en ar ku"`
}

// SendAnnouncementRequest fans a single message out to many recipients in
// one admission batch.
type SendAnnouncementRequest struct {
	Recipients []string `json:"recipients" validate:"required,min=1,max=1000,dive,required"`
	Text       string   `json:"text" validate:"required,max=4096"`
}

// SendTestMessageRequest sends a timestamped test message to the recipient
// in To, useful for verifying a fresh connection end to end.
type SendTestMessageRequest struct {
	To string `json:"to" validate:"required"`
}

// SendResponse is the outcome of one admitted (or rejected) send.
type SendResponse struct {
	MessageID string    `json:"message_id,omitempty"`
	To        string    `json:"to"`
	Status    string    `json:"status"`
	SentAt    time.Time `json:"sent_at"`
}

// BulkSendResponse reports per-recipient outcomes for an announcement.
type BulkSendResponse struct {
	TotalCount   int            `json:"total_count"`
	SuccessCount int            `json:"success_count"`
	FailedCount  int            `json:"failed_count"`
	Results      []SendResponse `json:"results"`
}
