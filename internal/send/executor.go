package send

import (
	"context"
	"fmt"
	"time"

	"github.com/felipe/wagateway/internal/admission"
	"github.com/felipe/wagateway/internal/db/models"
)

// otpTemplates holds the fixed per-language OTP body, parameterized by the
// one-time code. English is the fallback for an unknown/empty language.
var otpTemplates = map[string]string{
	"en": "Your verification code is %s. It expires in 5 minutes.",
	"ar": "رمز التحقق الخاص بك هو %s. تنتهي صلاحيته خلال 5 دقائق.",
	"ku": "کۆدی پشتڕاستکردنەوەی تۆ %s ـە. دوای 5 خولەک بەسەردەچێت.",
}

// Executor runs admitted sends: single text, OTP, and bulk announcements.
// Every send still passes through the same Admission Pipeline gate order;
// Executor only composes the payload and iterates recipients.
type Executor struct {
	pipeline          *admission.Pipeline
	costPerMessageIQD int64
}

func NewExecutor(pipeline *admission.Pipeline, costPerMessageIQD int64) *Executor {
	return &Executor{pipeline: pipeline, costPerMessageIQD: costPerMessageIQD}
}

// SendText admits and dispatches one plain-text message.
func (e *Executor) SendText(ctx context.Context, userID, sessionID, to, text string) (admission.Result, error) {
	return e.pipeline.Send(ctx, admission.Request{
		UserID:      userID,
		SessionID:   sessionID,
		Recipient:   to,
		Payload:     text,
		Kind:        models.LogTypeAPIMessage,
		CostPerUnit: e.costPerMessageIQD,
	})
}

// SendOTP renders the language-specific template and admits it as an OTP-
// typed send, so it is distinguishable in the automation log / webhooks.
func (e *Executor) SendOTP(ctx context.Context, userID, sessionID, to, code, language string) (admission.Result, error) {
	tpl, ok := otpTemplates[language]
	if !ok {
		tpl = otpTemplates["en"]
	}
	text := fmt.Sprintf(tpl, code)
	return e.pipeline.Send(ctx, admission.Request{
		UserID:      userID,
		SessionID:   sessionID,
		Recipient:   to,
		Payload:     text,
		Kind:        models.LogTypeOTP,
		CostPerUnit: e.costPerMessageIQD,
	})
}

// SendAnnouncement admits the whole recipient batch as one bulk send: one
// subscription check and one wallet debit sized to the full count, then a
// readiness-checked dispatch per recipient.
func (e *Executor) SendAnnouncement(ctx context.Context, userID, sessionID, text string, recipients []string) (admission.BulkResult, error) {
	return e.pipeline.SendBulk(ctx, admission.BulkRequest{
		UserID:      userID,
		SessionID:   sessionID,
		Recipients:  recipients,
		Payload:     text,
		Kind:        models.LogTypeAnnouncement,
		CostPerUnit: e.costPerMessageIQD,
	})
}

// SendTestMessage is the supplemented "verify a fresh connection" helper:
// a normal admitted send, tagged distinctly in the automation log.
func (e *Executor) SendTestMessage(ctx context.Context, userID, sessionID, to string) (admission.Result, error) {
	text := fmt.Sprintf("Test message from wagateway at %s", time.Now().UTC().Format(time.RFC3339))
	return e.pipeline.Send(ctx, admission.Request{
		UserID:      userID,
		SessionID:   sessionID,
		Recipient:   to,
		Payload:     text,
		Kind:        models.LogTypeAPIMessage,
		CostPerUnit: e.costPerMessageIQD,
	})
}
