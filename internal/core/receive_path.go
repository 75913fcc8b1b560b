package core

import (
	"context"
	"sync"
	"time"

	"wabridge/internal/domain/entity"
	"wabridge/internal/domain/repository"
	"wabridge/internal/domain/valueobject"
	"wabridge/internal/infrastructure/activity"
	"wabridge/internal/infrastructure/banwarning"
	"wabridge/internal/infrastructure/logger"
	"wabridge/internal/infrastructure/timing"
	"wabridge/internal/platform/clock"
)

// suspiciousLatencyWindow is the §4.7 grace period: a sent message with no
// READ/DELIVERED status update inside this window records SUSPICIOUS_LATENCY.
const suspiciousLatencyWindow = 10 * time.Minute

// ReceivePath implements spec.md §4.7: on each inbound message it computes
// a read delay, marks the message read, forwards it to the upstream
// webhook, and records activity. It also watches outbound messages for
// delayed delivery/read confirmation.
type ReceivePath struct {
	protocol repository.ProtocolClient
	webhook  repository.Webhook
	activity *activity.Tracker
	banwarn  *banwarning.System

	clock clock.Clock
	rng   clock.RNG
	log   logger.Logger

	mu      sync.Mutex
	pending map[string]context.CancelFunc
}

// NewReceivePath builds a receive path. webhook may be nil if no upstream
// collaborator is configured.
func NewReceivePath(
	protocol repository.ProtocolClient,
	webhook repository.Webhook,
	act *activity.Tracker,
	banwarn *banwarning.System,
	c clock.Clock,
	rng clock.RNG,
	log logger.Logger,
) *ReceivePath {
	return &ReceivePath{
		protocol: protocol,
		webhook:  webhook,
		activity: act,
		banwarn:  banwarn,
		clock:    c,
		rng:      rng,
		log:      log,
		pending:  make(map[string]context.CancelFunc),
	}
}

// HandleMessage processes one inbound message asynchronously so the
// supervisor's event loop is never blocked on a read delay sleep or a slow
// webhook call.
func (r *ReceivePath) HandleMessage(ctx context.Context, msg entity.InboundMessage) {
	go r.processMessage(ctx, msg)
}

func (r *ReceivePath) processMessage(ctx context.Context, msg entity.InboundMessage) {
	delay := timing.ReadDelay(r.rng, msg.Text)
	if !clock.SleepContext(r.clock, delay, ctx.Done()) {
		return
	}

	key := repository.MessageKey{ID: msg.MessageID, FromJID: msg.From, Timestamp: r.clock.Now()}
	if err := r.protocol.ReadMessages(ctx, []repository.MessageKey{key}); err != nil {
		r.log.Warn("mark read failed", logger.String("message_id", msg.MessageID), logger.Err(err))
	}

	if r.webhook != nil {
		if err := r.webhook.OnMessage(ctx, msg); err != nil {
			r.log.Warn("webhook onMessage failed", logger.String("message_id", msg.MessageID), logger.Err(err))
		}
	}

	if err := r.activity.RecordReceived(context.Background()); err != nil {
		r.log.Warn("activity record received failed", logger.Err(err))
	}
}

// TrackSent registers a freshly sent message for the SUSPICIOUS_LATENCY
// watch. Call after a successful send pipeline delivery.
func (r *ReceivePath) TrackSent(messageID string) {
	if messageID == "" {
		return
	}
	watchCtx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.pending[messageID] = cancel
	r.mu.Unlock()
	go r.watchLatency(watchCtx, messageID)
}

func (r *ReceivePath) watchLatency(ctx context.Context, messageID string) {
	if !clock.SleepContext(r.clock, suspiciousLatencyWindow, ctx.Done()) {
		return
	}
	r.mu.Lock()
	_, ok := r.pending[messageID]
	delete(r.pending, messageID)
	r.mu.Unlock()
	if !ok {
		return
	}
	if err := r.banwarn.Record(context.Background(), valueobject.RiskSuspiciousLatency); err != nil {
		r.log.Warn("failed to record suspicious latency risk event", logger.Err(err))
	}
}

// HandleStatus processes a delivery-status update for a previously sent
// message, canceling any pending SUSPICIOUS_LATENCY watch on READ/DELIVERED.
func (r *ReceivePath) HandleStatus(messageID string, status entity.DeliveryStatus) {
	if status != entity.DeliveryStatusDelivered && status != entity.DeliveryStatusRead {
		return
	}
	r.mu.Lock()
	cancel, ok := r.pending[messageID]
	if ok {
		delete(r.pending, messageID)
	}
	r.mu.Unlock()
	if ok {
		cancel()
	}
}
