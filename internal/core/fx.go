package core

import (
	"context"

	"wabridge/internal/domain/repository"
	"wabridge/internal/infrastructure/activity"
	"wabridge/internal/infrastructure/banwarning"
	"wabridge/internal/infrastructure/config"
	"wabridge/internal/infrastructure/fingerprint"
	"wabridge/internal/infrastructure/logger"
	"wabridge/internal/infrastructure/metrics"
	"wabridge/internal/infrastructure/presence"
	"wabridge/internal/infrastructure/ratelimit"
	"wabridge/internal/infrastructure/reconnect"
	"wabridge/internal/infrastructure/variator"
	"wabridge/internal/infrastructure/warmup"
	"wabridge/internal/infrastructure/websocket"
	"wabridge/internal/platform/clock"

	"go.uber.org/fx"
)

// NewCore assembles the process-wide Core from its leaf collaborators.
func NewCore(
	protocol repository.ProtocolClient,
	rateLimiter *ratelimit.Limiter,
	warmupReg *warmup.Registry,
	banWarning *banwarning.System,
	vr *variator.Variator,
	act *activity.Tracker,
	fp *fingerprint.Store,
	reconnectMgr *reconnect.Manager,
	publish repository.EventPublisher,
	wh repository.Webhook,
	activeWindow presence.ActiveWindow,
	c clock.Clock,
	rng clock.RNG,
	log logger.Logger,
	cfg *config.Config,
	m *metrics.Metrics,
) *Core {
	return New(protocol, rateLimiter, warmupReg, banWarning, vr, act, fp, reconnectMgr,
		publish, wh, activeWindow, c, rng, log, cfg.AntiBan.SendConcurrency, m)
}

// registerLifecycle starts the event hub and the core's background loops
// on fx.Start, and lets both run until fx.Stop, which cancels the loops'
// context and stops the hub; neither exposes a blocking Stop worth waiting
// on beyond that.
func registerLifecycle(lc fx.Lifecycle, c *Core, hub *websocket.EventHub) {
	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go hub.Run()
			return c.Start(runCtx)
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			hub.Stop()
			return nil
		},
	})
}

// Module wires the core.Core value and starts its background loops.
var Module = fx.Module("core",
	fx.Provide(NewCore),
	fx.Invoke(registerLifecycle),
)
