// Package core wires the twelve components of spec.md §2 into the single
// process-wide Core value described in §9: constructed once at startup and
// handed to the HTTP router and the protocol event handlers.
package core

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"wabridge/internal/domain/entity"
	"wabridge/internal/domain/errors"
	"wabridge/internal/domain/repository"
	"wabridge/internal/domain/valueobject"
	"wabridge/internal/infrastructure/activity"
	"wabridge/internal/infrastructure/banwarning"
	"wabridge/internal/infrastructure/fingerprint"
	"wabridge/internal/infrastructure/jobs"
	"wabridge/internal/infrastructure/logger"
	"wabridge/internal/infrastructure/metrics"
	"wabridge/internal/infrastructure/presence"
	"wabridge/internal/infrastructure/ratelimit"
	"wabridge/internal/infrastructure/reconnect"
	"wabridge/internal/infrastructure/variator"
	"wabridge/internal/infrastructure/warmup"
	"wabridge/internal/platform/clock"
)

// Core composes every anti-ban component behind the §6.1 operation set.
type Core struct {
	protocol repository.ProtocolClient

	rateLimiter *ratelimit.Limiter
	warmup      *warmup.Registry
	banWarning  *banwarning.System
	variator    *variator.Variator
	activity    *activity.Tracker
	fingerprint *fingerprint.Store
	presence    *presence.Cycler
	supervisor  *Supervisor
	sendPipe    *SendPipeline
	receive     *ReceivePath
	flushJob    *jobs.FlushJob

	clock     clock.Clock
	log       logger.Logger
	startedAt time.Time
	metrics   *metrics.Metrics
}

// New assembles a Core from its already-constructed collaborators. Callers
// (the fx wiring layer) are responsible for building each leaf component
// first; New only wires them together and does not itself hydrate state —
// call Start to load persisted state and begin background work.
func New(
	protocol repository.ProtocolClient,
	rateLimiter *ratelimit.Limiter,
	warmupReg *warmup.Registry,
	banWarning *banwarning.System,
	vr *variator.Variator,
	act *activity.Tracker,
	fp *fingerprint.Store,
	reconnectMgr *reconnect.Manager,
	publish repository.EventPublisher,
	webhook repository.Webhook,
	activeWindow presence.ActiveWindow,
	c clock.Clock,
	rng clock.RNG,
	log logger.Logger,
	sendConcurrency int,
	m *metrics.Metrics,
) *Core {
	core := &Core{
		protocol:    protocol,
		rateLimiter: rateLimiter,
		warmup:      warmupReg,
		banWarning:  banWarning,
		variator:    vr,
		activity:    act,
		fingerprint: fp,
		clock:       c,
		log:         log,
		startedAt:   c.Now(),
		metrics:     m,
	}

	core.receive = NewReceivePath(protocol, webhook, act, banWarning, c, rng, log)
	core.supervisor = NewSupervisor(protocol, reconnectMgr, banWarning, publish, core.receive, c, log, m)
	core.sendPipe = NewSendPipeline(protocol, rateLimiter, warmupReg, banWarning, vr, act, core.receive, core.supervisor.State, c, rng, log, sendConcurrency)
	core.presence = presence.New(&presenceBeacon{protocol: protocol, metrics: m}, c, rng, activeWindow,
		func() bool { return core.supervisor.State().IsUsable() },
		func() bool { return !core.banWarning.Gate().Admit },
	)
	core.flushJob = jobs.NewFlushJob(rateLimiter, 0, log)

	return core
}

// presenceBeacon adapts ProtocolClient to presence.Beacon, driving the
// global (jid-less) presence signal the cycler controls.
type presenceBeacon struct {
	protocol repository.ProtocolClient
	metrics  *metrics.Metrics
}

func (b *presenceBeacon) PresenceUpdate(ctx context.Context, state entity.PresenceState) error {
	if b.metrics != nil {
		b.metrics.RecordPresenceCycle(string(state))
	}
	return b.protocol.PresenceUpdate(ctx, state, "")
}

// Start hydrates every component's persisted state and launches the
// supervisor and presence cycler background loops. It returns once loading
// completes; the background loops run until ctx is canceled.
func (c *Core) Start(ctx context.Context) error {
	if err := c.rateLimiter.Load(ctx); err != nil {
		return err
	}
	if err := c.warmup.Load(ctx); err != nil {
		return err
	}
	if err := c.banWarning.Load(ctx); err != nil {
		return err
	}
	if err := c.activity.Load(ctx); err != nil {
		return err
	}
	if _, err := c.fingerprint.Get(ctx); err != nil {
		return err
	}

	go func() {
		if err := c.supervisor.Run(ctx); err != nil {
			c.log.Warn("supervisor stopped", logger.Err(err))
		}
	}()
	go c.presence.Run(ctx)
	c.flushJob.Start(ctx)

	return nil
}

// Send implements §6.1 send(to, text, replyTo?).
func (c *Core) Send(ctx context.Context, to, text, replyTo string) (SendResult, error) {
	start := c.clock.Now()
	result, err := c.sendPipe.Send(ctx, to, text, replyTo)
	if c.metrics == nil {
		return result, err
	}
	if err != nil {
		reason := "protocol_error"
		if domainErr := errors.GetDomainError(err); domainErr != nil {
			reason = domainErr.Code
		}
		c.metrics.RecordSendDenied(reason)
	} else {
		c.metrics.RecordSendAdmitted(c.clock.Now().Sub(start).Seconds())
	}
	return result, err
}

// connectionStates lists every §4.8 state for the connection_state gauge's
// zeroing pass.
var connectionStates = []string{
	string(valueobject.StateDisconnected),
	string(valueobject.StateConnecting),
	string(valueobject.StateAwaitingPaired),
	string(valueobject.StateOpen),
	string(valueobject.StateClosedRetrying),
	string(valueobject.StateClosedFatal),
}

// StatusSnapshot is the §6.1 status() response shape.
type StatusSnapshot struct {
	ConnectionState    valueobject.ConnectionState
	Phone              string
	DisplayName        string
	Uptime             string
	Sent               int64
	Received           int64
	ResponseRatio      float64
	RiskLevel          valueobject.RiskLevel
	RiskScore          float64
	Hibernating        bool
	ReconnectAttempts  int
	ReconnectGaveUp    bool
	WarmupTier         valueobject.Tier
}

// Status implements §6.1 status().
func (c *Core) Status() StatusSnapshot {
	phone, displayName := c.protocol.DeviceInfo()
	banStatus := c.banWarning.Status()
	activitySnapshot := c.activity.Snapshot()
	tier := c.rateLimiter.Tier()

	if c.metrics != nil {
		c.metrics.SetRiskScore(banStatus.Score)
		c.metrics.SetHibernating(banStatus.Hibernating)
		c.metrics.SetConnectionState(connectionStates, string(c.supervisor.State()))
		c.metrics.SetWarmupTier(string(tier))
	}

	return StatusSnapshot{
		ConnectionState:   c.supervisor.State(),
		Phone:             phone,
		DisplayName:       displayName,
		Uptime:            humanize.Time(c.startedAt),
		Sent:              activitySnapshot.Sent,
		Received:          activitySnapshot.Received,
		ResponseRatio:     activitySnapshot.ResponseRatio(),
		RiskLevel:         banStatus.Level,
		RiskScore:         banStatus.Score,
		Hibernating:       banStatus.Hibernating,
		ReconnectAttempts: c.supervisor.Attempts(),
		ReconnectGaveUp:   c.supervisor.GaveUp(),
		WarmupTier:        c.rateLimiter.Tier(),
	}
}

// PersistenceDegraded reports whether any of the four on-disk collaborators
// (rate limiter, warmup registry, ban warning system, activity tracker) has
// degraded to in-memory-only operation after two consecutive save failures
// (§7). The readiness probe surfaces this without treating it as fatal —
// the process keeps serving sends, it just stops persisting state.
func (c *Core) PersistenceDegraded() bool {
	return c.rateLimiter.Degraded() || c.warmup.Degraded() || c.banWarning.Degraded() || c.activity.Degraded()
}

// RateLimitStatus implements §6.1 rateLimitStatus().
func (c *Core) RateLimitStatus() ratelimit.Status {
	return c.rateLimiter.Status()
}

// SetAccountAge implements §6.1 setAccountAge(weeks).
func (c *Core) SetAccountAge(weeks int) valueobject.Tier {
	c.rateLimiter.SetAccountAge(weeks)
	return c.rateLimiter.Tier()
}

// Reconnect implements §6.1 reconnect().
func (c *Core) Reconnect(ctx context.Context) {
	c.supervisor.Reconnect(ctx)
}

// BanWarningStatus implements §6.1 banWarningStatus().
func (c *Core) BanWarningStatus() banwarning.Status {
	return c.banWarning.Status()
}

// ExitHibernation implements §6.1 exitHibernation().
func (c *Core) ExitHibernation() error {
	return c.banWarning.ExitHibernation()
}

// ResetBanWarning implements §6.1 resetBanWarning().
func (c *Core) ResetBanWarning(ctx context.Context) error {
	return c.banWarning.Reset(ctx)
}

// PresenceOverride implements §6.1 presenceOverride(online). It bypasses
// the cycler's own cadence for one immediate update; the cycler resumes its
// normal schedule on its next loop iteration.
func (c *Core) PresenceOverride(ctx context.Context, online bool) error {
	state := entity.PresenceOffline
	if online {
		state = entity.PresenceOnline
	}
	if err := c.protocol.PresenceUpdate(ctx, state, ""); err != nil {
		return errors.NewProtocolError(err, true)
	}
	return nil
}
