package core

import (
	"context"
	"sync"
	"time"

	"wabridge/internal/domain/entity"
	"wabridge/internal/domain/errors"
	"wabridge/internal/domain/repository"
	"wabridge/internal/domain/valueobject"
	"wabridge/internal/infrastructure/activity"
	"wabridge/internal/infrastructure/banwarning"
	"wabridge/internal/infrastructure/logger"
	"wabridge/internal/infrastructure/ratelimit"
	"wabridge/internal/infrastructure/timing"
	"wabridge/internal/infrastructure/variator"
	"wabridge/internal/infrastructure/warmup"
	"wabridge/internal/platform/clock"
)

// SendResult is the outcome of a successful send pipeline run.
type SendResult struct {
	MessageID string
}

// jidLocks serializes concurrent sends to the same recipient (§5: holding a
// jid lock also holds the presence state for that jid until the send
// concludes).
type jidLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newJIDLocks() *jidLocks {
	return &jidLocks{locks: make(map[string]*sync.Mutex)}
}

func (j *jidLocks) acquire(jid string) *sync.Mutex {
	j.mu.Lock()
	l, ok := j.locks[jid]
	if !ok {
		l = &sync.Mutex{}
		j.locks[jid] = l
	}
	j.mu.Unlock()
	l.Lock()
	return l
}

// SendPipeline implements spec.md §4.6: the twelve-step admission, shaping,
// and delivery algorithm for a single outbound message.
type SendPipeline struct {
	protocol repository.ProtocolClient
	limiter  *ratelimit.Limiter
	warmup   *warmup.Registry
	banwarn  *banwarning.System
	variator *variator.Variator
	activity *activity.Tracker
	receiver *ReceivePath

	connState func() valueobject.ConnectionState

	clock clock.Clock
	rng   clock.RNG
	log   logger.Logger

	jids *jidLocks
	sem  chan struct{}
}

// NewSendPipeline builds a send pipeline. concurrency bounds the number of
// sends that may be in flight across all recipients at once (default 4).
func NewSendPipeline(
	protocol repository.ProtocolClient,
	limiter *ratelimit.Limiter,
	warmupReg *warmup.Registry,
	banwarn *banwarning.System,
	vr *variator.Variator,
	act *activity.Tracker,
	receiver *ReceivePath,
	connState func() valueobject.ConnectionState,
	c clock.Clock,
	rng clock.RNG,
	log logger.Logger,
	concurrency int,
) *SendPipeline {
	if concurrency < 1 {
		concurrency = 4
	}
	return &SendPipeline{
		protocol:  protocol,
		limiter:   limiter,
		warmup:    warmupReg,
		banwarn:   banwarn,
		variator:  vr,
		activity:  act,
		receiver:  receiver,
		connState: connState,
		clock:     c,
		rng:       rng,
		log:       log,
		jids:      newJIDLocks(),
		sem:       make(chan struct{}, concurrency),
	}
}

// Send runs the full admission-and-delivery pipeline for one outbound
// message. ctx governs cancellation: once step 10's protocol call succeeds,
// ctx cancellation is ignored for the remaining commit steps (§5).
func (p *SendPipeline) Send(ctx context.Context, to, text string, replyTo string) (SendResult, error) {
	// Step 1: normalize jid.
	jid, err := valueobject.NewJID(to)
	if err != nil {
		return SendResult{}, err
	}
	jidStr := jid.String()

	// Step 2: connection state gate.
	if !p.connState().IsUsable() {
		return SendResult{}, errors.ErrNotConnected
	}

	// Step 3: ban warning gate.
	if gate := p.banwarn.Gate(); !gate.Admit {
		return SendResult{}, errors.ErrHibernating
	}

	// Step 4: warmup gate.
	if d := p.warmup.MayMessage(jidStr); !d.Allow {
		return SendResult{}, errors.ErrWarmupLimit
	}

	// Step 5: rate limiter gate, with the one-shot INTERVAL<30s internal wait.
	if err := p.admitRateLimit(ctx, jidStr); err != nil {
		return SendResult{}, err
	}

	// Step 6: variator.
	sendText := text
	if ctx.Err() != nil {
		return SendResult{}, errors.ErrCanceled
	}
	result := p.variator.Vary(jidStr, text)
	if result.Varied {
		sendText = result.Text
	} else if result.NoVariantFound {
		p.log.Debug("no variant available for hot jid, sending original", logger.String("jid", jidStr))
		if recErr := p.banwarn.Record(context.Background(), valueobject.RiskSuspiciousLatency); recErr != nil {
			p.log.Warn("failed to record suspicious latency risk event", logger.Err(recErr))
		}
	}

	// Steps 7-11 serialize per jid.
	lock := p.jids.acquire(jidStr)
	defer lock.Unlock()

	p.sem <- struct{}{}
	defer func() { <-p.sem }()

	if err := p.protocol.PresenceSubscribe(ctx, jidStr); err != nil {
		p.log.Warn("presence subscribe failed", logger.String("jid", jidStr), logger.Err(err))
	}
	if !p.sleepCancellable(ctx, timing.HumanDelay(p.rng, 100*time.Millisecond, 0.5)) {
		return SendResult{}, errors.ErrCanceled
	}
	_ = p.protocol.PresenceUpdate(ctx, entity.PresenceComposing, jidStr)

	// Step 8.
	if !p.sleepCancellable(ctx, timing.TypingDuration(p.rng, sendText, 0, 0)) {
		return SendResult{}, errors.ErrCanceled
	}

	// Step 9: hesitation.
	if !p.sleepCancellable(ctx, timing.HumanDelay(p.rng, 300*time.Millisecond, 0.5)) {
		return SendResult{}, errors.ErrCanceled
	}

	// Step 10: the protocol call. Past this point cancellation is ignored.
	messageID, sendErr := p.protocol.SendMessage(context.Background(), jidStr, sendText, replyTo)
	if sendErr != nil {
		_ = p.protocol.PresenceUpdate(context.Background(), entity.PresencePaused, jidStr)
		if recErr := p.banwarn.Record(context.Background(), valueobject.RiskDeliveryFailure); recErr != nil {
			p.log.Warn("failed to record delivery failure risk event", logger.Err(recErr))
		}
		return SendResult{}, errors.NewProtocolError(sendErr, true)
	}

	// Step 11: non-cancellable tail.
	p.clock.Sleep(timing.HumanDelay(p.rng, 200*time.Millisecond, 0.3))
	_ = p.protocol.PresenceUpdate(context.Background(), entity.PresencePaused, jidStr)

	// Step 12: commit counters. commit() happens-before return (§5).
	if err := p.limiter.Commit(context.Background(), jidStr); err != nil {
		p.log.Warn("rate limiter commit failed", logger.Err(err))
	}
	if err := p.warmup.RecordSend(context.Background(), jidStr); err != nil {
		p.log.Warn("warmup record failed", logger.Err(err))
	}
	if err := p.activity.RecordSent(context.Background()); err != nil {
		p.log.Warn("activity record failed", logger.Err(err))
	}
	if p.receiver != nil {
		p.receiver.TrackSent(messageID)
	}

	return SendResult{MessageID: messageID}, nil
}

// admitRateLimit implements step 5, including the Open-Question-pinned
// one-shot internal wait for a sub-30s INTERVAL denial.
func (p *SendPipeline) admitRateLimit(ctx context.Context, jid string) error {
	d := p.limiter.CheckAndReserve(jid)
	if d.Allow {
		return nil
	}
	if d.Scope == errors.ScopeInterval && d.WaitMs > 0 && d.WaitMs < 30000 {
		if !p.sleepCancellable(ctx, time.Duration(d.WaitMs)*time.Millisecond) {
			return errors.ErrCanceled
		}
		d = p.limiter.CheckAndReserve(jid)
		if d.Allow {
			return nil
		}
	}
	if recErr := p.banwarn.Record(context.Background(), valueobject.RiskRateLimitHit); recErr != nil {
		p.log.Warn("failed to record rate limit risk event", logger.Err(recErr))
	}
	return errors.NewRateLimitedError(d.Scope, time.Duration(d.WaitMs)*time.Millisecond)
}

// sleepCancellable sleeps for d, returning false if ctx is canceled first.
func (p *SendPipeline) sleepCancellable(ctx context.Context, d time.Duration) bool {
	return clock.SleepContext(p.clock, d, ctx.Done())
}
