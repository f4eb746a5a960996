package models

import (
	"time"

	"github.com/google/uuid"
)

// AutomationLogType classifies the kind of outbound send an AutomationLog
// row records.
type AutomationLogType string

const (
	LogTypeOTP AutomationLogType = "otp"
	LogTypeAnnouncement AutomationLogType = "announcement"
	LogTypeAPIMessage AutomationLogType = "api_message"
	LogTypeStrengthening AutomationLogType = "strengthening"
)

// AutomationLogStatus is the terminal outcome of a send attempt.
type AutomationLogStatus string

const (
	LogStatusSent AutomationLogStatus = "sent"
	LogStatusFailed AutomationLogStatus = "failed"
	LogStatusPartial AutomationLogStatus = "partial"
)

// AutomationLog is the append-only record: the source of truth for
// audit, rate-limit counting, and account-strength metrics.
type AutomationLog struct {
	ID uuid.UUID `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	SessionID string `json:"session_id" db:"session_id"`
	Type AutomationLogType `json:"type" db:"type"`
	Recipients StringSlice `json:"recipients" db:"recipients"`
	Message string `json:"message" db:"message"`
	Status AutomationLogStatus `json:"status" db:"status"`
	ErrorDetail StringSlice `json:"error_detail,omitempty" db:"error_detail"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RecipientCount returns how many recipients this log row represents, for
// rate-limit window counting.
func (a *AutomationLog) RecipientCount() int {
	if len(a.Recipients) == 0 {
		return 1
	}
	return len(a.Recipients)
}
