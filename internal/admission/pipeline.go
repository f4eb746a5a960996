package admission

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/felipe/wagateway/internal/apierr"
	"github.com/felipe/wagateway/internal/config"
	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/db/repositories"
	"github.com/felipe/wagateway/internal/logger"
	"github.com/felipe/wagateway/internal/session"
	"github.com/felipe/wagateway/internal/worker"
)

var recipientPattern = regexp.MustCompile(`^\d{9,15}$`)

// Request is one admission decision's worth of input: a single send on
// behalf of a session-owning user.
type Request struct {
	UserID      string
	SessionID   string
	Recipient   string
	Payload     string
	Kind        models.AutomationLogType
	CostPerUnit int64
}

// Result is what the caller gets back: either the dispatched message id, or
// the reason the request was rejected before it reached the worker.
type Result struct {
	MessageID string
	Rejected  bool
	Reason    string
}

// BulkRequest is one admission decision's worth of input for a bulk
// announcement: many recipients, one wallet debit, one log row.
type BulkRequest struct {
	UserID      string
	SessionID   string
	Recipients  []string
	Payload     string
	Kind        models.AutomationLogType
	CostPerUnit int64
}

// BulkOutcome is one recipient's result within a bulk announcement.
type BulkOutcome struct {
	Recipient string
	MessageID string
	Rejected  bool
	Reason    string
}

// BulkResult is what the caller gets back from SendBulk.
type BulkResult struct {
	Outcomes []BulkOutcome
	Sent     int
	Failed   int
}

// Pipeline runs every send through the ordered gate stack: session
// readiness, recipient validation, subscription admission, rate limit,
// wallet debit, then dispatch. A failure at any gate short-circuits the
// rest; a failure after the wallet debit triggers a compensating refund.
type Pipeline struct {
	registry           *session.Registry
	sessions           repositories.SessionRepository
	factory            *worker.Factory
	sessionDeps        session.Deps
	rateLimits         repositories.RateLimitRepository
	automationLog      repositories.AutomationLogRepository
	procedures         Procedures
	webhooks           session.WebhookPublisher
	readinessPollEvery time.Duration
	readinessPollFor   time.Duration
	logger             *logger.ComponentLogger
}

func NewPipeline(
	registry *session.Registry,
	sessions repositories.SessionRepository,
	factory *worker.Factory,
	sessionDeps session.Deps,
	rateLimits repositories.RateLimitRepository,
	automationLog repositories.AutomationLogRepository,
	procedures Procedures,
	webhooks session.WebhookPublisher,
	workerCfg config.WorkerConfig,
) *Pipeline {
	pollEvery := workerCfg.ReadinessPollEvery
	if pollEvery <= 0 {
		pollEvery = 500 * time.Millisecond
	}
	pollFor := workerCfg.ReadinessPollFor
	if pollFor <= 0 {
		pollFor = 15 * time.Second
	}
	return &Pipeline{
		registry:           registry,
		sessions:           sessions,
		factory:            factory,
		sessionDeps:        sessionDeps,
		rateLimits:         rateLimits,
		automationLog:      automationLog,
		procedures:         procedures,
		webhooks:           webhooks,
		readinessPollEvery: pollEvery,
		readinessPollFor:   pollFor,
		logger:             logger.ForComponent("admission_pipeline"),
	}
}

// Send runs req through every gate in order and, if admitted, dispatches
// through the session's supervisor.
func (p *Pipeline) Send(ctx context.Context, req Request) (Result, error) {
	sup, err := p.resolveSession(ctx, req.UserID, req.SessionID)
	if err != nil {
		return Result{}, err
	}
	if !p.ensureReady(ctx, sup) {
		return Result{}, apierr.NotReady("session_not_ready", fmt.Sprintf("session is %s, not connected", sup.Status()))
	}

	recipient, err := normalizeRecipient(req.Recipient)
	if err != nil {
		return Result{}, err
	}

	admission, err := p.procedures.CheckSubscriptionLimits(req.UserID, 1, 0)
	if err != nil {
		return Result{}, apierr.Unexpected("subscription_check_failed", "failed to evaluate subscription limits", err)
	}
	if !admission.Allowed {
		return Result{}, apierr.QuotaExceeded("subscription_quota_exceeded", admission.Reason)
	}

	if verdict, limited := p.checkRateLimit(req.UserID); limited {
		return Result{}, apierr.RateLimited("rate_limit_exceeded",
			fmt.Sprintf("rate limit exceeded: %d/%d per %s", verdict.Current, verdict.Limit, verdict.Window))
	}

	cost := req.CostPerUnit
	referenceID := fmt.Sprintf("send_%s_%s", req.SessionID, recipient)
	_, err = p.procedures.DeductWalletBalance(req.UserID, cost, &req.SessionID, "message send", referenceID)
	if err != nil {
		if apiErr, ok := apierr.As(err); ok {
			return Result{}, apiErr
		}
		return Result{}, apierr.Unexpected("wallet_debit_failed", "failed to debit wallet", err)
	}

	outcome := sup.Send(ctx, session.Envelope{ChatID: recipient, Payload: req.Payload, ExpectedRecipient: recipient})
	p.recordLog(req, recipient, outcome)
	p.publishSingleOutcome(req, recipient, outcome)

	if outcome.Kind != session.OutcomeSent {
		if _, refundErr := p.procedures.RefundWalletBalance(req.UserID, cost, &req.SessionID, "send failed, refund", referenceID); refundErr != nil {
			p.logger.Error().Err(refundErr).Str("session_id", req.SessionID).Msg("failed to refund wallet after failed send")
		}
		return Result{Rejected: true, Reason: string(outcome.Kind)}, p.outcomeError(outcome)
	}

	if err := p.procedures.IncrementSubscriptionUsage(req.UserID, 1, 0); err != nil {
		p.logger.Warn().Err(err).Str("user_id", req.UserID).Msg("failed to increment subscription usage after send")
	}

	return Result{MessageID: outcome.MessageID}, nil
}

// SendBulk runs one announcement through the gate stack once for the whole
// recipient batch: a single subscription check against the full count, a
// single wallet debit for the full cost, and a single compensating refund
// sized to the recipients that failed. Each recipient still gets its own
// readiness recheck and dispatch, since the supervisor can drop mid-batch.
func (p *Pipeline) SendBulk(ctx context.Context, req BulkRequest) (BulkResult, error) {
	if len(req.Recipients) == 0 {
		return BulkResult{}, apierr.BadInput("recipients_required", "at least one recipient is required")
	}

	sup, err := p.resolveSession(ctx, req.UserID, req.SessionID)
	if err != nil {
		return BulkResult{}, err
	}
	if !p.ensureReady(ctx, sup) {
		return BulkResult{}, apierr.NotReady("session_not_ready", fmt.Sprintf("session is %s, not connected", sup.Status()))
	}

	count := len(req.Recipients)
	admission, err := p.procedures.CheckSubscriptionLimits(req.UserID, count, 0)
	if err != nil {
		return BulkResult{}, apierr.Unexpected("subscription_check_failed", "failed to evaluate subscription limits", err)
	}
	if !admission.Allowed {
		return BulkResult{}, apierr.QuotaExceeded("subscription_quota_exceeded", admission.Reason)
	}

	if verdict, limited := p.checkRateLimit(req.UserID); limited {
		return BulkResult{}, apierr.RateLimited("rate_limit_exceeded",
			fmt.Sprintf("rate limit exceeded: %d/%d per %s", verdict.Current, verdict.Limit, verdict.Window))
	}

	totalCost := req.CostPerUnit * int64(count)
	referenceID := fmt.Sprintf("announcement_%s_%d", req.SessionID, time.Now().UnixNano())
	_, err = p.procedures.DeductWalletBalance(req.UserID, totalCost, &req.SessionID, "announcement send", referenceID)
	if err != nil {
		if apiErr, ok := apierr.As(err); ok {
			return BulkResult{}, apiErr
		}
		return BulkResult{}, apierr.Unexpected("wallet_debit_failed", "failed to debit wallet", err)
	}

	outcomes := make([]BulkOutcome, 0, count)
	recipients := make([]string, 0, count)
	var errDetails []string
	sent := 0

	for _, raw := range req.Recipients {
		recipient, normErr := normalizeRecipient(raw)
		if normErr != nil {
			outcomes = append(outcomes, BulkOutcome{Recipient: raw, Rejected: true, Reason: normErr.Error()})
			errDetails = append(errDetails, fmt.Sprintf("%s: %s", raw, normErr.Error()))
			continue
		}
		recipients = append(recipients, recipient)

		if !sup.IsReady() {
			reason := fmt.Sprintf("session is %s, not connected", sup.Status())
			outcomes = append(outcomes, BulkOutcome{Recipient: recipient, Rejected: true, Reason: reason})
			errDetails = append(errDetails, fmt.Sprintf("%s: %s", recipient, reason))
			continue
		}

		outcome := sup.Send(ctx, session.Envelope{ChatID: recipient, Payload: req.Payload, ExpectedRecipient: recipient})
		if outcome.Kind != session.OutcomeSent {
			outcomes = append(outcomes, BulkOutcome{Recipient: recipient, Rejected: true, Reason: outcome.Reason})
			errDetails = append(errDetails, fmt.Sprintf("%s: %s", recipient, outcome.Reason))
			continue
		}
		sent++
		outcomes = append(outcomes, BulkOutcome{Recipient: recipient, MessageID: outcome.MessageID})
	}

	failed := count - sent
	if failed > 0 {
		refundAmount := req.CostPerUnit * int64(failed)
		if _, refundErr := p.procedures.RefundWalletBalance(req.UserID, refundAmount, &req.SessionID, "announcement partial failure refund", referenceID); refundErr != nil {
			p.logger.Error().Err(refundErr).Str("session_id", req.SessionID).Msg("failed to refund wallet after partial announcement failure")
		}
	}
	if sent > 0 {
		if err := p.procedures.IncrementSubscriptionUsage(req.UserID, sent, 0); err != nil {
			p.logger.Warn().Err(err).Str("user_id", req.UserID).Msg("failed to increment subscription usage after announcement")
		}
	}

	p.recordBulkLog(req, recipients, errDetails, sent, failed)
	p.publishBulkOutcome(req, count, sent, failed, errDetails)

	return BulkResult{Outcomes: outcomes, Sent: sent, Failed: failed}, nil
}

// resolveSession returns the session's active supervisor, restoring it
// on-demand from the row store when the registry has no entry for it (the
// process restarted, or the session was never explicitly started this run).
func (p *Pipeline) resolveSession(ctx context.Context, userID, sessionID string) (*session.Supervisor, error) {
	if sup, ok := p.registry.Get(sessionID); ok {
		if sup.UserID() != userID {
			return nil, apierr.NotFound("session_not_found", "session not found for this user")
		}
		return sup, nil
	}

	row, err := p.sessions.GetByUserAndSessionID(userID, sessionID)
	if err != nil {
		return nil, apierr.NotFound("session_not_found", "session not found for this user")
	}
	if row.Status != models.SessionStatusConnected {
		return nil, apierr.NotReady("session_not_ready", fmt.Sprintf("session is %s, not connected", row.Status))
	}

	savedJID := ""
	if row.JID != nil {
		savedJID = *row.JID
	}
	sup, err := session.Start(ctx, sessionID, userID, p.factory, p.registry, p.sessionDeps, savedJID)
	if err != nil {
		return nil, apierr.Unexpected("session_restore_failed", "failed to restore session supervisor", err)
	}
	return sup, nil
}

// ensureReady polls a just-restored (or still-initializing) supervisor until
// it reports ready or the poll budget runs out.
func (p *Pipeline) ensureReady(ctx context.Context, sup *session.Supervisor) bool {
	if sup.IsReady() {
		return true
	}

	deadline := time.Now().Add(p.readinessPollFor)
	ticker := time.NewTicker(p.readinessPollEvery)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return sup.IsReady()
		case <-ticker.C:
			if sup.IsReady() {
				return true
			}
		}
	}
	return sup.IsReady()
}

func (p *Pipeline) outcomeError(outcome session.SendOutcome) error {
	switch outcome.Kind {
	case session.OutcomeNotReady:
		return apierr.NotReady("session_not_ready", outcome.Reason)
	case session.OutcomeUnreachableRecipient:
		return apierr.BadInput("recipient_unreachable", outcome.Reason)
	case session.OutcomeSessionClosed:
		return apierr.SessionBad("session_closed", outcome.Reason)
	default:
		return apierr.Unexpected("send_failed", outcome.Reason, nil)
	}
}

// checkRateLimit evaluates the minute/hour/day windows in ascending order
// so the tightest applicable limit is the one reported.
func (p *Pipeline) checkRateLimit(userID string) (models.RateLimitVerdict, bool) {
	settings, err := p.rateLimits.GetSettings(userID)
	if err != nil {
		p.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to load rate limit settings, allowing request")
		return models.RateLimitVerdict{}, false
	}

	windows := []struct {
		window models.RateLimitWindow
		limit  int
	}{
		{models.WindowMinute, settings.PerMinute},
		{models.WindowHour, settings.PerHour},
		{models.WindowDay, settings.PerDay},
	}
	for _, w := range windows {
		if w.limit <= 0 {
			continue
		}
		count, err := p.rateLimits.CountInWindow(userID, w.window)
		if err != nil {
			p.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to count rate limit window, allowing request")
			continue
		}
		if count >= w.limit {
			return models.RateLimitVerdict{Window: w.window, Limit: w.limit, Current: count}, true
		}
	}
	return models.RateLimitVerdict{}, false
}

func (p *Pipeline) recordLog(req Request, recipient string, outcome session.SendOutcome) {
	status := models.LogStatusSent
	var errDetail models.StringSlice
	if outcome.Kind != session.OutcomeSent {
		status = models.LogStatusFailed
		errDetail = models.StringSlice{outcome.Reason}
	}
	logType := req.Kind
	if logType == "" {
		logType = models.LogTypeAPIMessage
	}
	entry := &models.AutomationLog{
		UserID:      req.UserID,
		SessionID:   req.SessionID,
		Type:        logType,
		Recipients:  models.StringSlice{recipient},
		Message:     req.Payload,
		Status:      status,
		ErrorDetail: errDetail,
	}
	if err := p.automationLog.Create(entry); err != nil {
		p.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("failed to record automation log")
	}
}

// recordBulkLog writes the whole announcement as one row: every attempted
// recipient and every per-recipient error, rather than one row per message.
func (p *Pipeline) recordBulkLog(req BulkRequest, recipients, errDetails []string, sent, failed int) {
	status := models.LogStatusSent
	switch {
	case sent == 0:
		status = models.LogStatusFailed
	case failed > 0:
		status = models.LogStatusPartial
	}
	logType := req.Kind
	if logType == "" {
		logType = models.LogTypeAnnouncement
	}
	entry := &models.AutomationLog{
		UserID:      req.UserID,
		SessionID:   req.SessionID,
		Type:        logType,
		Recipients:  models.StringSlice(recipients),
		Message:     req.Payload,
		Status:      status,
		ErrorDetail: models.StringSlice(errDetails),
	}
	if err := p.automationLog.Create(entry); err != nil {
		p.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("failed to record automation log")
	}
}

func (p *Pipeline) publishSingleOutcome(req Request, recipient string, outcome session.SendOutcome) {
	if p.webhooks == nil || req.Kind != models.LogTypeOTP {
		return
	}
	if outcome.Kind == session.OutcomeSent {
		p.webhooks.Publish(session.WebhookEvent{
			UserID:    req.UserID,
			SessionID: req.SessionID,
			Type:      "otp_sent",
			Success:   boolPtr(true),
			Fields:    map[string]interface{}{"recipient": recipient, "message_id": outcome.MessageID},
			At:        time.Now(),
		})
		return
	}
	p.webhooks.Publish(session.WebhookEvent{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Type:      "otp_failed",
		Success:   boolPtr(false),
		Fields:    map[string]interface{}{"recipient": recipient, "reason": outcome.Reason},
		At:        time.Now(),
	})
}

func (p *Pipeline) publishBulkOutcome(req BulkRequest, total, sent, failed int, errDetails []string) {
	if p.webhooks == nil {
		return
	}
	p.webhooks.Publish(session.WebhookEvent{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Type:      "announcement_sent",
		Success:   boolPtr(failed == 0),
		Fields: map[string]interface{}{
			"total":  total,
			"sent":   sent,
			"failed": failed,
			"errors": errDetails,
		},
		At: time.Now(),
	})
}

func boolPtr(b bool) *bool { return &b }

func normalizeRecipient(raw string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if !recipientPattern.MatchString(digits) {
		return "", apierr.BadInput("recipient_invalid", "recipient must be 9 to 15 digits")
	}
	return digits, nil
}
