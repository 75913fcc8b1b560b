// Package whatsmeow adapts the go.mau.fi/whatsmeow protocol library to the
// single-session ProtocolClient boundary described in §6.3. It owns exactly
// one device and one underlying *whatsmeow.Client; the rest of the core
// never imports whatsmeow directly.
package whatsmeow

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"wabridge/internal/domain/entity"
	"wabridge/internal/domain/errors"
	"wabridge/internal/domain/repository"
	"wabridge/internal/infrastructure/logger"

	"github.com/skip2/go-qrcode"
	waWhatsmeow "go.mau.fi/whatsmeow"
	waCompanionReg "go.mau.fi/whatsmeow/proto/waCompanionReg"
	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	_ "modernc.org/sqlite"
)

// Config holds the configuration the device-store container and client
// startup need.
type Config struct {
	DBPath                string
	QRTimeout             time.Duration
	ReconnectDelay        time.Duration
	MaxReconnects         int
	CircuitBreakerEnabled bool
	CircuitBreakerConfig  CircuitBreakerConfig
}

// DefaultConfig returns sane defaults.
func DefaultConfig() Config {
	return Config{
		DBPath:                "./data/wabridge.db",
		QRTimeout:             2 * time.Minute,
		ReconnectDelay:        2 * time.Second,
		MaxReconnects:         5,
		CircuitBreakerEnabled: true,
		CircuitBreakerConfig:  DefaultCircuitBreakerConfig(),
	}
}

// Client implements repository.ProtocolClient over a single whatsmeow
// device/session. It is a thin translation layer: admission, rate limiting,
// warmup, variation, and timing all happen above it in the send pipeline.
type Client struct {
	config Config
	log    logger.Logger

	container *sqlstore.Container
	waLogger  waLog.Logger

	mu  sync.RWMutex
	wmc *waWhatsmeow.Client

	circuitBreaker *CircuitBreaker

	events chan repository.ProtocolEvent
}

// New builds a Client and opens (but does not connect) the device store.
func New(ctx context.Context, config Config, log logger.Logger) (*Client, error) {
	waLogger := waLog.Stdout("whatsmeow", "WARN", true)

	store.DeviceProps.Os = proto.String("wabridge")
	store.DeviceProps.PlatformType = waCompanionReg.DeviceProps_DESKTOP.Enum()

	dsn := config.DBPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	container, err := sqlstore.New(ctx, "sqlite", dsn, waLogger)
	if err != nil {
		return nil, errors.ErrProtocolError.WithCause(err).WithMessage("failed to open whatsmeow device store")
	}

	c := &Client{
		config:    config,
		log:       log,
		container: container,
		waLogger:  waLogger,
		events:    make(chan repository.ProtocolEvent, 64),
	}

	if config.CircuitBreakerEnabled {
		c.circuitBreaker = NewCircuitBreaker(config.CircuitBreakerConfig)
	}

	return c, nil
}

// Events returns the channel of translated protocol events. Callers should
// start draining it before calling Connect.
func (c *Client) Events() <-chan repository.ProtocolEvent {
	return c.events
}

// Connect opens (or creates) the single device and connects the underlying
// whatsmeow client, retrying transient failures with backoff.
func (c *Client) Connect(ctx context.Context) error {
	if c.circuitBreaker != nil {
		_, err := c.circuitBreaker.Execute(ctx, func() (any, error) {
			return nil, c.connectInternal(ctx)
		})
		return err
	}
	return c.connectInternal(ctx)
}

func (c *Client) connectInternal(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.wmc != nil && c.wmc.IsConnected() {
		return nil
	}

	device, err := c.getOrCreateDeviceLocked(ctx)
	if err != nil {
		return err
	}

	wmc := waWhatsmeow.NewClient(device, c.waLogger)
	wmc.AddEventHandler(c.handleEvent)

	retryPolicy := NewRetryPolicy(RetryConfig{
		MaxAttempts:  c.config.MaxReconnects,
		InitialDelay: c.config.ReconnectDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.2,
	})

	if wmc.Store.ID == nil {
		// Unpaired device: give the caller a QR channel via connection-update
		// events instead of blocking here; NeedsQR/AWAITING_PAIRING is driven
		// from the "code" events on the channel whatsmeow hands back.
		qrChan, err := wmc.GetQRChannel(ctx)
		if err != nil {
			return errors.ErrProtocolError.WithCause(err).WithMessage("failed to open QR channel")
		}
		if err := wmc.Connect(); err != nil {
			return errors.ErrProtocolError.WithCause(err).WithMessage("failed to start pairing connect")
		}
		go c.drainQR(qrChan)
	} else {
		err := retryPolicy.Execute(ctx, func() error {
			return wmc.Connect()
		})
		if err != nil {
			return errors.ErrProtocolError.WithCause(err).WithMessage(
				fmt.Sprintf("failed to connect after %d attempts", c.config.MaxReconnects+1))
		}
	}

	c.wmc = wmc
	return nil
}

func (c *Client) drainQR(qrChan <-chan waWhatsmeow.QRChannelItem) {
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			c.emit(repository.ProtocolEvent{Kind: repository.EventQRCode, QRCode: encodeQRPNG(evt.Code, c.log)})
			c.log.Info("qr code ready")
		case "success":
			c.emit(repository.ProtocolEvent{Kind: repository.EventConnectionUpdate, Connected: true})
		case "timeout":
			c.emit(repository.ProtocolEvent{Kind: repository.EventConnectionUpdate, Connected: false, Retryable: true})
		}
	}
}

// encodeQRPNG renders the pairing string whatsmeow hands back into a
// base64 PNG for the websocket dashboard collaborator. Falls back to the
// raw pairing string if rendering fails.
func encodeQRPNG(code string, log logger.Logger) string {
	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		log.Warn("qr png encoding failed, falling back to raw code", logger.Err(err))
		return code
	}
	return base64.StdEncoding.EncodeToString(png)
}

func (c *Client) getOrCreateDeviceLocked(ctx context.Context) (*store.Device, error) {
	devices, err := c.container.GetAllDevices(ctx)
	if err != nil {
		return nil, errors.ErrProtocolError.WithCause(err).WithMessage("failed to list devices")
	}
	if len(devices) > 0 {
		return devices[0], nil
	}
	return c.container.NewDevice(), nil
}

// Logout logs the device out of WhatsApp and clears its local session.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.wmc == nil {
		return errors.ErrNotConnected
	}
	if err := c.wmc.Logout(ctx); err != nil {
		return errors.ErrProtocolError.WithCause(err).WithMessage("logout failed")
	}
	return nil
}

// DeviceInfo returns the paired device's phone number and push name, both
// empty before pairing completes.
func (c *Client) DeviceInfo() (phone, displayName string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.wmc == nil || c.wmc.Store == nil {
		return "", ""
	}
	if c.wmc.Store.ID != nil {
		phone = c.wmc.Store.ID.User
	}
	return phone, c.wmc.Store.PushName
}

// SendMessage sends a plain text message, optionally quoting replyTo.
func (c *Client) SendMessage(ctx context.Context, jid, text, replyTo string) (string, error) {
	c.mu.RLock()
	wmc := c.wmc
	c.mu.RUnlock()

	if wmc == nil || !wmc.IsConnected() {
		return "", errors.ErrNotConnected
	}

	recipient, err := types.ParseJID(jid)
	if err != nil {
		return "", errors.ErrInvalidJID.WithCause(err)
	}

	msg := &waE2E.Message{Conversation: proto.String(text)}
	if replyTo != "" {
		msg = &waE2E.Message{
			ExtendedTextMessage: &waE2E.ExtendedTextMessage{
				Text: proto.String(text),
				ContextInfo: &waE2E.ContextInfo{
					StanzaID:    proto.String(replyTo),
					Participant: proto.String(recipient.String()),
				},
			},
		}
	}

	var resp waWhatsmeow.SendResponse
	send := func() (any, error) {
		r, err := wmc.SendMessage(ctx, recipient, msg)
		return r, err
	}

	var result any
	if c.circuitBreaker != nil {
		result, err = c.circuitBreaker.Execute(ctx, send)
	} else {
		result, err = send()
	}
	if err != nil {
		return "", errors.ErrProtocolError.WithCause(err).WithMessage("send failed")
	}
	resp = result.(waWhatsmeow.SendResponse)
	return resp.ID, nil
}

// PresenceSubscribe subscribes to a contact's presence updates, a
// prerequisite for receiving their typing/online notifications.
func (c *Client) PresenceSubscribe(ctx context.Context, jid string) error {
	c.mu.RLock()
	wmc := c.wmc
	c.mu.RUnlock()
	if wmc == nil || !wmc.IsConnected() {
		return errors.ErrNotConnected
	}
	recipient, err := types.ParseJID(jid)
	if err != nil {
		return errors.ErrInvalidJID.WithCause(err)
	}
	if err := wmc.SubscribePresence(ctx, recipient); err != nil {
		return errors.ErrProtocolError.WithCause(err).WithMessage("presence subscribe failed")
	}
	return nil
}

// PresenceUpdate sends a composing/paused/online/offline beacon, scoped to
// jid when non-empty, or globally otherwise.
func (c *Client) PresenceUpdate(ctx context.Context, state entity.PresenceState, jid string) error {
	c.mu.RLock()
	wmc := c.wmc
	c.mu.RUnlock()
	if wmc == nil || !wmc.IsConnected() {
		return errors.ErrNotConnected
	}

	switch state {
	case entity.PresenceOnline, entity.PresenceOffline:
		var p types.Presence
		if state == entity.PresenceOnline {
			p = types.PresenceAvailable
		} else {
			p = types.PresenceUnavailable
		}
		if err := wmc.SendPresence(ctx, p); err != nil {
			return errors.ErrProtocolError.WithCause(err).WithMessage("presence update failed")
		}
		return nil
	case entity.PresenceComposing, entity.PresencePaused:
		recipient, err := types.ParseJID(jid)
		if err != nil {
			return errors.ErrInvalidJID.WithCause(err)
		}
		var p types.ChatPresence
		if state == entity.PresenceComposing {
			p = types.ChatPresenceComposing
		} else {
			p = types.ChatPresencePaused
		}
		if err := wmc.SendChatPresence(ctx, recipient, p, types.ChatPresenceMediaText); err != nil {
			return errors.ErrProtocolError.WithCause(err).WithMessage("chat presence failed")
		}
		return nil
	default:
		return errors.ErrProtocolError.WithMessage("unknown presence state")
	}
}

// ReadMessages marks the given message keys as read.
func (c *Client) ReadMessages(ctx context.Context, keys []repository.MessageKey) error {
	c.mu.RLock()
	wmc := c.wmc
	c.mu.RUnlock()
	if wmc == nil || !wmc.IsConnected() {
		return errors.ErrNotConnected
	}
	if len(keys) == 0 {
		return nil
	}

	byChat := make(map[string][]types.MessageID)
	for _, k := range keys {
		byChat[k.FromJID] = append(byChat[k.FromJID], types.MessageID(k.ID))
	}

	for chatJID, ids := range byChat {
		jid, err := types.ParseJID(chatJID)
		if err != nil {
			continue
		}
		if err := wmc.MarkRead(ctx, ids, keys[0].Timestamp, jid, jid, types.ReceiptTypeRead); err != nil {
			return errors.ErrProtocolError.WithCause(err).WithMessage("mark-read failed")
		}
	}
	return nil
}

func (c *Client) emit(evt repository.ProtocolEvent) {
	select {
	case c.events <- evt:
	default:
		c.log.Warn("protocol event channel full, dropping event")
	}
}

func (c *Client) handleEvent(raw interface{}) {
	switch v := raw.(type) {
	case *events.Connected:
		c.emit(repository.ProtocolEvent{Kind: repository.EventConnectionUpdate, Connected: true})
	case *events.Disconnected:
		c.emit(repository.ProtocolEvent{Kind: repository.EventConnectionUpdate, Connected: false, Retryable: true})
	case *events.LoggedOut:
		c.mu.Lock()
		c.wmc = nil
		c.mu.Unlock()
		c.emit(repository.ProtocolEvent{Kind: repository.EventConnectionUpdate, Connected: false, Retryable: false})
	case *events.StreamError:
		disp := classifyDisconnect(v.Code)
		c.emit(repository.ProtocolEvent{
			Kind:       repository.EventConnectionUpdate,
			Connected:  false,
			Retryable:  !disp.IsFatal(),
			CloseError: fmt.Errorf("stream error: %s", v.Code),
		})
	case *events.Message:
		c.handleMessage(v)
	case *events.Receipt:
		c.handleReceipt(v)
	}
}

func (c *Client) handleMessage(msg *events.Message) {
	text := extractText(msg.Message)
	if text == "" {
		return
	}
	var quoted *string
	if ctx := extractContextInfo(msg.Message); ctx != nil && ctx.StanzaID != nil {
		q := *ctx.StanzaID
		quoted = &q
	}

	c.emit(repository.ProtocolEvent{
		Kind: repository.EventMessagesUpsert,
		Message: &entity.InboundMessage{
			From:          msg.Info.Sender.String(),
			Text:          text,
			MessageID:     msg.Info.ID,
			IsGroup:       msg.Info.IsGroup,
			GroupID:       groupIDOf(msg),
			QuotedMessage: quoted,
		},
	})
}

func groupIDOf(msg *events.Message) string {
	if msg.Info.IsGroup {
		return msg.Info.Chat.String()
	}
	return ""
}

func (c *Client) handleReceipt(receipt *events.Receipt) {
	var status entity.DeliveryStatus
	switch receipt.Type {
	case types.ReceiptTypeDelivered:
		status = entity.DeliveryStatusDelivered
	case types.ReceiptTypeRead:
		status = entity.DeliveryStatusRead
	default:
		return
	}
	for _, id := range receipt.MessageIDs {
		c.emit(repository.ProtocolEvent{Kind: repository.EventMessagesUpdate, MessageID: id, Status: status})
	}
}

func extractText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if msg.GetConversation() != "" {
		return msg.GetConversation()
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	return ""
}

func extractContextInfo(msg *waE2E.Message) *waE2E.ContextInfo {
	if msg == nil {
		return nil
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetContextInfo()
	}
	return nil
}

// Disposition classifies a terminal disconnect for the reconnection manager.
type Disposition string

const (
	DispositionLoggedOut  Disposition = "LOGGED_OUT"
	DispositionBadSession Disposition = "BAD_SESSION"
	DispositionRetryable  Disposition = "RETRYABLE"
)

// IsFatal reports whether the disposition should never be retried.
func (d Disposition) IsFatal() bool {
	return d == DispositionLoggedOut || d == DispositionBadSession
}

// classifyDisconnect inspects a disconnect cause string for the substrings
// whatsmeow itself uses to distinguish a deliberate logout from a
// transient network drop.
func classifyDisconnect(cause string) Disposition {
	lower := strings.ToLower(cause)
	switch {
	case strings.Contains(lower, "logged out"):
		return DispositionLoggedOut
	case strings.Contains(lower, "bad session") || strings.Contains(lower, "405"):
		return DispositionBadSession
	default:
		return DispositionRetryable
	}
}

var _ repository.ProtocolClient = (*Client)(nil)
