package repository

import (
	"context"
	"time"

	"wabridge/internal/domain/entity"
)

// ProtocolClient is the collaborator boundary onto the external WhatsApp
// protocol library (§6.3). The whatsmeow infrastructure adapter implements
// this; the supervisor and send pipeline depend only on this interface.
type ProtocolClient interface {
	Connect(ctx context.Context) error
	Logout(ctx context.Context) error

	// Events returns the channel of connection and message events the
	// supervisor and receive path consume. Closed when the client is
	// torn down.
	Events() <-chan ProtocolEvent

	SendMessage(ctx context.Context, jid, text, replyTo string) (messageID string, err error)
	PresenceSubscribe(ctx context.Context, jid string) error
	PresenceUpdate(ctx context.Context, state entity.PresenceState, jid string) error
	ReadMessages(ctx context.Context, keys []MessageKey) error

	// DeviceInfo returns the paired device's phone number and push name, for
	// status() (§6.1). Both are empty before pairing completes.
	DeviceInfo() (phone, displayName string)
}

// MessageKey identifies a previously received message for a read receipt.
type MessageKey struct {
	ID        string
	FromJID   string
	Timestamp time.Time
}

// ProtocolEventKind discriminates the event union the protocol library
// raises (§6.3: connection.update, messages.upsert, messages.update).
type ProtocolEventKind string

const (
	EventConnectionUpdate ProtocolEventKind = "connection.update"
	EventMessagesUpsert   ProtocolEventKind = "messages.upsert"
	EventMessagesUpdate   ProtocolEventKind = "messages.update"
	// EventQRCode carries a fresh pairing code while the device awaits
	// scanning (§4.8 CONNECTING -> AWAITING_PAIRING, "expose QR to collaborator").
	EventQRCode ProtocolEventKind = "qr.code"
)

// ProtocolEvent is the single event type delivered over
// ProtocolClient.Events. Only the fields relevant to Kind are populated.
type ProtocolEvent struct {
	Kind ProtocolEventKind

	// EventConnectionUpdate
	Connected  bool
	Retryable  bool
	CloseError error

	// EventQRCode
	QRCode string

	// EventMessagesUpsert
	Message *entity.InboundMessage

	// EventMessagesUpdate
	MessageID string
	Status    entity.DeliveryStatus
}

// Webhook is the single upstream collaborator the core notifies on receive
// (§6.2). At-least-once delivery is the caller's responsibility; the core
// does not retry a failed OnMessage call.
type Webhook interface {
	OnMessage(ctx context.Context, event entity.InboundMessage) error
}

// EventPublisher fans status and QR/connection-state changes out to
// dashboard subscribers (e.g. the websocket hub). It never blocks the
// send pipeline or the supervisor on a slow subscriber.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any)
}
