// Package session implements the Session Supervisor and Session Registry
// implement the Browser Worker Interface's session lifecycle: one
// supervisor owns a session's browser worker for its
// entire lifetime, translates worker events into row-store mutations and
// webhook events, and exposes a send operation safe to call once the
// session is connected.
package session

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/felipe/wagateway/internal/config"
	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/db/repositories"
	"github.com/felipe/wagateway/internal/logger"
	"github.com/felipe/wagateway/internal/sessionstore"
	"github.com/felipe/wagateway/internal/worker"
)

var recipientPattern = regexp.MustCompile(`^\d{9,15}$`)

// SendOutcomeKind classifies the result of Supervisor.Send.
type SendOutcomeKind string

const (
	OutcomeSent                 SendOutcomeKind = "sent"
	OutcomeNotReady              SendOutcomeKind = "not-ready"
	OutcomeUnreachableRecipient  SendOutcomeKind = "unreachable-recipient"
	OutcomeSessionClosed         SendOutcomeKind = "session-closed"
	OutcomeSendFailed            SendOutcomeKind = "send-failed"
)

// Envelope is a single outbound send request handed to a Supervisor.
type Envelope struct {
	ChatID            string
	Payload           string
	ExpectedRecipient string
}

// SendOutcome is what Supervisor.Send returns.
type SendOutcome struct {
	Kind      SendOutcomeKind
	MessageID string
	Reason    string
}

// Deps bundles the Supervisor's row-store and service collaborators.
type Deps struct {
	Sessions         repositories.SessionRepository
	ConnectionEvents repositories.ConnectionEventRepository
	APIKeys          repositories.APIKeyRepository
	Subscriptions    repositories.SubscriptionRepository
	Delivery         repositories.DeliveryTrackingRepository
	Store            *sessionstore.Service
	Webhooks         WebhookPublisher
	WorkerConfig     config.WorkerConfig
}

// Supervisor owns one session's browser worker for its entire lifetime.
type Supervisor struct {
	mu         sync.RWMutex
	sessionID  string
	userID     string
	status     models.SessionStatus
	phone      string
	jid        string
	worker     worker.Worker
	lastUpdate time.Time
	restoring  bool

	deps     Deps
	registry *Registry
	logger   *logger.ComponentLogger

	stopCh chan struct{}
	once   sync.Once
}

func newSupervisor(sessionID, userID string, registry *Registry, deps Deps) *Supervisor {
	return &Supervisor{
		sessionID:  sessionID,
		userID:     userID,
		status:     models.SessionStatusInitializing,
		lastUpdate: time.Now(),
		deps:       deps,
		registry:   registry,
		logger:     logger.ForComponent("session_supervisor").WithSession(sessionID),
		stopCh:     make(chan struct{}),
	}
}

// Start implements the initialization policy: restore the auth
// directory, construct the worker, and begin background initialization,
// bounded by a deadline depending on whether this is a restoration
// (existing auth material found) or a fresh connect.
func Start(ctx context.Context, sessionID, userID string, factory *worker.Factory, registry *Registry, deps Deps, savedJID string) (*Supervisor, error) {
	sup := newSupervisor(sessionID, userID, registry, deps)
	installed, ok := registry.CreateIfAbsent(sessionID, sup)
	if !ok {
		return installed, nil
	}

	if err := deps.Store.Restore(ctx, sessionID); err != nil {
		sup.logger.Warn().Err(err).Msg("auth directory restore failed, proceeding as first-time auth")
	}
	sup.mu.Lock()
	sup.restoring = savedJID != ""
	sup.mu.Unlock()

	w, err := factory.New(ctx, sessionID, savedJID)
	if err != nil {
		registry.Remove(sessionID)
		return nil, fmt.Errorf("session supervisor: build worker: %w", err)
	}
	sup.worker = w

	go sup.run()
	go sup.enforceDeadline()

	if err := w.Connect(ctx); err != nil {
		sup.transitionTerminal(models.SessionStatusFailed, "connect failed: "+err.Error())
		return sup, nil
	}
	return sup, nil
}

func (s *Supervisor) SessionID() string { return s.sessionID }
func (s *Supervisor) UserID() string    { return s.userID }

func (s *Supervisor) Status() models.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// IsReady reports whether this session is ready to send: a worker exists,
// reports a non-empty identity, and is connected.
func (s *Supervisor) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.worker != nil && s.status == models.SessionStatusConnected && s.worker.JID() != ""
}

func (s *Supervisor) touch() {
	s.mu.Lock()
	s.lastUpdate = time.Now()
	s.mu.Unlock()
}

func (s *Supervisor) setStatus(status models.SessionStatus) {
	s.mu.Lock()
	s.status = status
	s.lastUpdate = time.Now()
	s.mu.Unlock()
	if err := s.deps.Sessions.UpdateStatus(s.sessionID, status); err != nil {
		s.logger.Error().Err(err).Str("status", string(status)).Msg("failed to persist status transition")
	}
}

func (s *Supervisor) recordEvent(eventType models.ConnectionEventType, details models.Metadata) {
	if s.deps.ConnectionEvents == nil {
		return
	}
	if err := s.deps.ConnectionEvents.Record(s.sessionID, s.userID, eventType, details); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record connection event")
	}
}

// run consumes the worker's event stream and drives the state machine
// through initializing, qr_pending, connecting, connected, and
// disconnected/failed.
func (s *Supervisor) run() {
	for {
		select {
		case evt, ok := <-s.worker.Events():
			if !ok {
				return
			}
			s.handle(evt)
		case <-s.stopCh:
			return
		}
	}
}

func (s *Supervisor) handle(evt worker.Event) {
	s.touch()
	switch evt.Type {
	case worker.EventQR:
		s.mu.Lock()
		s.status = models.SessionStatusQRPending
		s.mu.Unlock()
		qr := evt.QRCode
		if err := s.deps.Sessions.UpdateQRCode(s.sessionID, &qr); err != nil {
			s.logger.Error().Err(err).Msg("failed to persist qr code")
		}
		if err := s.deps.Sessions.UpdateStatus(s.sessionID, models.SessionStatusQRPending); err != nil {
			s.logger.Error().Err(err).Msg("failed to persist qr_pending status")
		}

	case worker.EventAuthenticated:
		s.mu.Lock()
		s.status = models.SessionStatusConnecting
		s.jid = evt.JID
		s.mu.Unlock()
		if err := s.deps.Sessions.UpdateStatus(s.sessionID, models.SessionStatusConnecting); err != nil {
			s.logger.Error().Err(err).Msg("failed to persist connecting status")
		}
		go s.backupAsync()

	case worker.EventReady:
		s.onReady(evt)

	case worker.EventAuthFailure:
		reason := "auth failure"
		if evt.Err != nil {
			reason = evt.Err.Error()
		}
		s.transitionTerminal(models.SessionStatusFailed, reason)

	case worker.EventDisconnected:
		s.transitionTerminal(models.SessionStatusDisconnected, "worker disconnected")

	case worker.EventMessage:
		s.onInboundMessage(evt)

	case worker.EventMessageAck:
		s.onAck(evt)
	}
}

// onReady persists the connected state and provisions the session's first
// API key and number-usage increment.
func (s *Supervisor) onReady(evt worker.Event) {
	jid := evt.JID
	phone := phoneFromJID(jid)

	s.mu.Lock()
	s.status = models.SessionStatusConnected
	s.jid = jid
	s.phone = phone
	s.lastUpdate = time.Now()
	s.mu.Unlock()

	nilQR := (*string)(nil)
	_ = s.deps.Sessions.UpdateQRCode(s.sessionID, nilQR)
	if err := s.deps.Sessions.UpdateStatusAndJID(s.sessionID, models.SessionStatusConnected, &jid, &phone); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist ready state")
	}
	s.recordEvent(models.ConnEventConnected, models.Metadata{"jid": jid})

	wasFirstConnected := true
	if s.registry != nil {
		s.registry.ForEachForUser(s.userID, func(other *Supervisor) {
			if other.SessionID() == s.sessionID {
				return
			}
			if other.Status() == models.SessionStatusConnected {
				wasFirstConnected = false
				other.ForceDisconnect("superseded by newly connected session for the same user")
			}
		})
	}

	if s.deps.APIKeys != nil {
		if existing, err := s.deps.APIKeys.GetBySessionID(s.sessionID); err != nil || existing == nil {
			key, keyErr := s.deps.APIKeys.GenerateKey()
			secret, secretErr := s.deps.APIKeys.GenerateSecret()
			if keyErr != nil || secretErr != nil {
				s.logger.Error().Msg("failed to generate api key material on ready")
			} else {
				apiKey := &models.APIKey{
					Key:       key,
					Secret:    secret,
					UserID:    s.userID,
					SessionID: s.sessionID,
					IsActive:  true,
				}
				if err := s.deps.APIKeys.Create(apiKey); err != nil {
					s.logger.Error().Err(err).Msg("failed to create api key on ready")
				}
			}
		}
	}

	if wasFirstConnected && s.deps.Subscriptions != nil && phone != "" {
		if err := s.deps.Subscriptions.IncrementNumbersUsedOnce(s.userID, phone); err != nil {
			s.logger.Warn().Err(err).Msg("failed to increment numbers_used on first connect")
		}
	}
}

// onInboundMessage publishes the event(s) matching an inbound message's
// content: exactly one of incoming_media/incoming_location/incoming_text,
// followed always by the generic incoming_message fallback so consumers
// that only care about "something arrived" don't need to know every
// specific type.
func (s *Supervisor) onInboundMessage(evt worker.Event) {
	if evt.Message == nil {
		return
	}
	if strings.Contains(evt.Message.From, "status@broadcast") {
		return
	}
	if s.deps.Webhooks == nil {
		return
	}

	msg := evt.Message
	base := map[string]interface{}{
		"from":       msg.From,
		"push_name":  msg.PushName,
		"message_id": msg.ID,
	}

	switch {
	case msg.MediaType != "":
		fields := cloneFields(base)
		fields["media_type"] = msg.MediaType
		fields["caption"] = msg.Caption
		if msg.FileName != "" {
			fields["file_name"] = msg.FileName
		}
		s.publishInbound("incoming_media", fields)

	case msg.HasLocation:
		fields := cloneFields(base)
		fields["latitude"] = msg.Latitude
		fields["longitude"] = msg.Longitude
		s.publishInbound("incoming_location", fields)

	default:
		fields := cloneFields(base)
		fields["text"] = msg.Text
		s.publishInbound("incoming_text", fields)
	}

	s.publishInbound("incoming_message", cloneFields(base))
}

func cloneFields(base map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base))
	for k, v := range base {
		out[k] = v
	}
	return out
}

func (s *Supervisor) publishInbound(eventType string, fields map[string]interface{}) {
	s.deps.Webhooks.Publish(WebhookEvent{
		UserID:    s.userID,
		SessionID: s.sessionID,
		Type:      eventType,
		Fields:    fields,
		At:        time.Now(),
	})
}

func (s *Supervisor) onAck(evt worker.Event) {
	if evt.Ack == nil || s.deps.Delivery == nil {
		return
	}
	var err error
	var eventType string
	switch evt.Ack.Code {
	case 3:
		err = s.deps.Delivery.MarkRead(s.sessionID, evt.Ack.MessageID)
		eventType = "message_read"
	case 2:
		err = s.deps.Delivery.MarkDelivered(s.sessionID, evt.Ack.MessageID)
		eventType = "message_delivered"
	default:
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to update delivery tracking")
		return
	}
	if s.deps.Webhooks != nil {
		s.deps.Webhooks.Publish(WebhookEvent{
			UserID:    s.userID,
			SessionID: s.sessionID,
			Type:      eventType,
			Fields:    map[string]interface{}{"message_id": evt.Ack.MessageID, "recipient": evt.Ack.Recipient},
			At:        time.Now(),
		})
	}
}

func (s *Supervisor) backupAsync() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := s.deps.Store.Backup(ctx, s.sessionID); err != nil {
		s.logger.Warn().Err(err).Msg("auth directory backup failed")
	}
}

// transitionTerminal persists a terminal status, records the event, clears
// the registry entry, and — for an explicit disconnect — schedules deletion
// of the auth directory.
func (s *Supervisor) transitionTerminal(status models.SessionStatus, reason string) {
	s.mu.Lock()
	alreadyTerminal := s.status.IsTerminal()
	s.status = status
	s.mu.Unlock()
	if alreadyTerminal {
		return
	}

	if err := s.deps.Sessions.UpdateStatus(s.sessionID, status); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist terminal status")
	}
	eventType := models.ConnEventError
	if status == models.SessionStatusDisconnected {
		eventType = models.ConnEventDisconnected
	}
	s.recordEvent(eventType, models.Metadata{"reason": reason})
	s.registry.Remove(s.sessionID)
	s.once.Do(func() { close(s.stopCh) })

	if status == models.SessionStatusDisconnected {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := s.deps.Store.Delete(ctx, s.sessionID); err != nil {
				s.logger.Warn().Err(err).Msg("failed to delete auth directory on disconnect")
			}
		}()
	}
}

// ForceDisconnect is used when a sibling session for the same user becomes
// the sole connected one.
func (s *Supervisor) ForceDisconnect(reason string) {
	if s.worker != nil {
		s.worker.Disconnect()
	}
	s.transitionTerminal(models.SessionStatusDisconnected, reason)
}

// enforceDeadline implements the "5 minutes since last update with no
// ready" forced transition, using a shorter 120s bound for restorations.
func (s *Supervisor) enforceDeadline() {
	s.mu.RLock()
	restoring := s.restoring
	cfg := s.deps.WorkerConfig
	s.mu.RUnlock()

	deadline := cfg.FreshConnectTimeout
	if restoring {
		deadline = cfg.RestoreDeadline
	}
	if deadline <= 0 {
		deadline = 5 * time.Minute
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.RLock()
			elapsed := time.Since(s.lastUpdate)
			status := s.status
			s.mu.RUnlock()
			if status == models.SessionStatusConnected || status.IsTerminal() {
				return
			}
			if elapsed >= deadline {
				if restoring {
					s.transitionTerminal(models.SessionStatusDisconnected, "restoration deadline exceeded")
				} else {
					s.transitionTerminal(models.SessionStatusFailed, "initialization deadline exceeded")
				}
				return
			}
		case <-s.stopCh:
			return
		}
	}
}

// Send implements the supervisor's send(envelope) operation. Before
// dispatch it resolves the recipient against WhatsApp's number registry;
// a recipient with no WhatsApp account never reaches the worker's send
// call at all.
func (s *Supervisor) Send(ctx context.Context, env Envelope) SendOutcome {
	if !s.IsReady() {
		return SendOutcome{Kind: OutcomeNotReady, Reason: "session is not ready"}
	}

	recipient := normalizeRecipient(env.ExpectedRecipient)
	if recipient == "" {
		return SendOutcome{Kind: OutcomeUnreachableRecipient, Reason: "recipient failed validation"}
	}

	target := recipient
	if resolved, ok, err := s.worker.ResolveNumber(ctx, recipient); err != nil {
		s.logger.Warn().Err(err).Str("recipient", recipient).Msg("number resolution failed, sending to raw recipient")
	} else if !ok {
		return SendOutcome{Kind: OutcomeUnreachableRecipient, Reason: "recipient is not on WhatsApp"}
	} else {
		target = resolved
	}

	result, err := s.worker.SendText(ctx, target, env.Payload)
	if err != nil {
		if strings.Contains(err.Error(), "Session closed") {
			s.transitionTerminal(models.SessionStatusDisconnected, "session closed during send")
			return SendOutcome{Kind: OutcomeSessionClosed, Reason: err.Error()}
		}
		return SendOutcome{Kind: OutcomeSendFailed, Reason: err.Error()}
	}

	if s.deps.Delivery != nil {
		_ = s.deps.Delivery.Create(&models.DeliveryTracking{
			SessionID: s.sessionID,
			MessageID: result.MessageID,
			Recipient: recipient,
		})
	}

	return SendOutcome{Kind: OutcomeSent, MessageID: result.MessageID}
}

func normalizeRecipient(raw string) string {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "+")
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	out := digits.String()
	if !recipientPattern.MatchString(out) {
		return ""
	}
	return out
}

func phoneFromJID(jid string) string {
	if idx := strings.Index(jid, "@"); idx >= 0 {
		jid = jid[:idx]
	}
	if idx := strings.Index(jid, ":"); idx >= 0 {
		jid = jid[:idx]
	}
	return jid
}
