// Package worker wraps go.mau.fi/whatsmeow behind an opaque interface so
// the rest of the gateway never imports whatsmeow types directly. The
// Session Supervisor drives a Worker through its lifecycle; everything
// downstream of Connect/Disconnect only sees the Event stream.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mau.fi/whatsmeow"
	waE2E "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/felipe/wagateway/internal/logger"
)

// EventType enumerates the handler set the Session Supervisor registers
// for, per the initialization policy.
type EventType string

const (
	EventQR            EventType = "qr"
	EventAuthenticated EventType = "authenticated"
	EventReady         EventType = "ready"
	EventAuthFailure   EventType = "auth_failure"
	EventDisconnected  EventType = "disconnected"
	EventMessage       EventType = "message"
	EventMessageAck    EventType = "message_ack"
)

// Event is a single occurrence delivered on a Worker's event channel.
type Event struct {
	Type      EventType
	SessionID string
	JID       string
	QRCode    string
	Message   *IncomingMessage
	Ack       *MessageAck
	Err       error
	At        time.Time
}

// IncomingMessage is the normalized shape of an inbound WhatsApp message.
// Exactly one of Text, MediaType, or HasLocation describes the message's
// actual content; a plain text message leaves MediaType empty and
// HasLocation false.
type IncomingMessage struct {
	ID          string
	From        string
	Text        string
	PushName    string
	MediaType   string // "image", "video", "audio", "document", "sticker"; empty for text/location
	Caption     string
	FileName    string
	HasLocation bool
	Latitude    float64
	Longitude   float64
}

// MessageAck reports a delivery/read acknowledgment for a previously sent
// message, keyed the way delivery tracking expects.
type MessageAck struct {
	MessageID string
	Recipient string
	Code      int
}

// SendResult is returned by SendText once the outbound message has been
// accepted by the WhatsApp network.
type SendResult struct {
	MessageID string
	Timestamp time.Time
}

// Worker is the opaque Browser Worker Interface. One Worker
// instance corresponds to exactly one session's device state.
type Worker interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
	IsLoggedIn() bool
	JID() string
	SendText(ctx context.Context, recipient, text string) (*SendResult, error)
	Events() <-chan Event
	Logout(ctx context.Context) error
	// ResolveNumber checks whether phone is a registered WhatsApp number,
	// returning its canonical JID when it is. ok is false when the number
	// is not on WhatsApp at all.
	ResolveNumber(ctx context.Context, phone string) (jid string, ok bool, err error)
}

// Factory constructs Workers bound to a shared whatsmeow device store.
type Factory struct {
	container *sqlstore.Container
	logger    *logger.ComponentLogger
}

func NewFactory(container *sqlstore.Container) *Factory {
	return &Factory{container: container, logger: logger.ForComponent("worker")}
}

// New builds a Worker for sessionID. When savedJID is non-empty it tries to
// recover() the matching device from the sql store (a restored session);
// otherwise, or on lookup failure, it allocates a fresh device.
func (f *Factory) New(ctx context.Context, sessionID, savedJID string) (Worker, error) {
	var deviceStore *store.Device
	if savedJID != "" {
		if jid, err := types.ParseJID(savedJID); err == nil {
			if d, err := f.container.GetDevice(ctx, jid); err == nil && d != nil {
				deviceStore = d
			}
		}
	}
	if deviceStore == nil {
		deviceStore = f.container.NewDevice()
	}

	waLogger := logger.GetWorkerLogger(sessionID)
	client := whatsmeow.NewClient(deviceStore, waLogger)

	w := &whatsmeowWorker{
		sessionID: sessionID,
		client:    client,
		events:    make(chan Event, 64),
		logger:    logger.ForComponent("worker").WithSession(sessionID),
	}
	client.AddEventHandler(w.handle)
	return w, nil
}

type whatsmeowWorker struct {
	mu          sync.RWMutex
	sessionID   string
	client      *whatsmeow.Client
	events      chan Event
	isConnected bool
	logger      *logger.ComponentLogger
}

func (w *whatsmeowWorker) Connect(ctx context.Context) error {
	if w.client.Store.ID != nil {
		return w.client.Connect()
	}

	qrChan, err := w.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("worker: get qr channel: %w", err)
	}
	if err := w.client.Connect(); err != nil {
		return fmt.Errorf("worker: connect: %w", err)
	}

	go func() {
		for evt := range qrChan {
			switch evt.Event {
			case "code":
				w.emit(Event{Type: EventQR, SessionID: w.sessionID, QRCode: evt.Code, At: time.Now()})
			case "success":
				w.emit(Event{Type: EventAuthenticated, SessionID: w.sessionID, JID: w.JID(), At: time.Now()})
			case "timeout":
				w.emit(Event{Type: EventAuthFailure, SessionID: w.sessionID, Err: fmt.Errorf("qr timeout"), At: time.Now()})
			}
		}
	}()
	return nil
}

func (w *whatsmeowWorker) Disconnect() {
	w.client.Disconnect()
	w.mu.Lock()
	w.isConnected = false
	w.mu.Unlock()
}

func (w *whatsmeowWorker) Logout(ctx context.Context) error {
	return w.client.Logout(ctx)
}

func (w *whatsmeowWorker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.isConnected
}

func (w *whatsmeowWorker) IsLoggedIn() bool {
	return w.client.IsLoggedIn()
}

func (w *whatsmeowWorker) JID() string {
	if w.client.Store.ID == nil {
		return ""
	}
	return w.client.Store.ID.String()
}

func (w *whatsmeowWorker) SendText(ctx context.Context, recipient, text string) (*SendResult, error) {
	jid, err := types.ParseJID(recipient)
	if err != nil {
		return nil, fmt.Errorf("worker: invalid recipient %q: %w", recipient, err)
	}
	messageID := uuid.NewString()
	msg := buildTextMessage(text)
	resp, err := w.client.SendMessage(ctx, jid, msg, whatsmeow.SendRequestExtra{ID: messageID})
	if err != nil {
		return nil, fmt.Errorf("worker: send message: %w", err)
	}
	return &SendResult{MessageID: messageID, Timestamp: resp.Timestamp}, nil
}

func (w *whatsmeowWorker) Events() <-chan Event {
	return w.events
}

// ResolveNumber implements the number-id resolution step: whatsmeow's
// IsOnWhatsApp batch lookup, called with a single phone so the Session
// Supervisor can check one recipient before dispatch.
func (w *whatsmeowWorker) ResolveNumber(ctx context.Context, phone string) (string, bool, error) {
	results, err := w.client.IsOnWhatsApp([]string{phone})
	if err != nil {
		return "", false, fmt.Errorf("worker: resolve number: %w", err)
	}
	if len(results) == 0 || !results[0].IsIn {
		return "", false, nil
	}
	return results[0].JID.String(), true, nil
}

func (w *whatsmeowWorker) emit(evt Event) {
	select {
	case w.events <- evt:
	default:
		w.logger.Warn().Str("event", string(evt.Type)).Msg("worker event channel full, dropping event")
	}
}

func (w *whatsmeowWorker) handle(evt interface{}) {
	switch v := evt.(type) {
	case *events.Connected:
		w.mu.Lock()
		w.isConnected = true
		w.mu.Unlock()
		w.emit(Event{Type: EventReady, SessionID: w.sessionID, JID: w.JID(), At: time.Now()})
	case *events.Disconnected:
		w.mu.Lock()
		w.isConnected = false
		w.mu.Unlock()
		w.emit(Event{Type: EventDisconnected, SessionID: w.sessionID, At: time.Now()})
	case *events.LoggedOut:
		w.mu.Lock()
		w.isConnected = false
		w.mu.Unlock()
		w.emit(Event{Type: EventAuthFailure, SessionID: w.sessionID, Err: fmt.Errorf("logged out: %v", v.Reason), At: time.Now()})
	case *events.Message:
		w.emit(Event{
			Type:      EventMessage,
			SessionID: w.sessionID,
			Message:   buildIncomingMessage(v),
			At:        time.Now(),
		})
	case *events.Receipt:
		var code int
		switch v.Type {
		case types.ReceiptTypeDelivered:
			code = 2
		case types.ReceiptTypeRead:
			code = 3
		default:
			return
		}
		for _, id := range v.MessageIDs {
			w.emit(Event{
				Type:      EventMessageAck,
				SessionID: w.sessionID,
				Ack:       &MessageAck{MessageID: id, Recipient: v.Chat.String(), Code: code},
				At:        time.Now(),
			})
		}
	}
}

func buildTextMessage(text string) *waE2E.Message {
	return &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(text),
		},
	}
}

// buildIncomingMessage classifies a raw whatsmeow message event into the
// normalized IncomingMessage shape: plain text, one of the media kinds, or
// a location share, in that priority order.
func buildIncomingMessage(v *events.Message) *IncomingMessage {
	msg := &IncomingMessage{
		ID:       v.Info().ID,
		From:     v.Info().Sender.String(),
		PushName: v.Info().PushName,
	}

	switch {
	case v.Message.GetConversation() != "":
		msg.Text = v.Message.GetConversation()
	case v.Message.GetExtendedTextMessage() != nil:
		msg.Text = v.Message.GetExtendedTextMessage().GetText()
	case v.Message.GetImageMessage() != nil:
		msg.MediaType = "image"
		msg.Caption = v.Message.GetImageMessage().GetCaption()
	case v.Message.GetVideoMessage() != nil:
		msg.MediaType = "video"
		msg.Caption = v.Message.GetVideoMessage().GetCaption()
	case v.Message.GetAudioMessage() != nil:
		msg.MediaType = "audio"
	case v.Message.GetDocumentMessage() != nil:
		msg.MediaType = "document"
		msg.Caption = v.Message.GetDocumentMessage().GetCaption()
		msg.FileName = v.Message.GetDocumentMessage().GetFileName()
	case v.Message.GetStickerMessage() != nil:
		msg.MediaType = "sticker"
	case v.Message.GetLocationMessage() != nil:
		loc := v.Message.GetLocationMessage()
		msg.HasLocation = true
		msg.Latitude = loc.GetDegreesLatitude()
		msg.Longitude = loc.GetDegreesLongitude()
	}

	return msg
}
