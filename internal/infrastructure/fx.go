// Package infrastructure wires every leaf adapter of §2/§6 into the fx
// dependency graph: logger, metrics, persistence, the protocol client, and
// every anti-ban component, culminating in the process-wide core.Core.
package infrastructure

import (
	"context"
	"time"

	"wabridge/internal/domain/repository"
	"wabridge/internal/domain/valueobject"
	"wabridge/internal/infrastructure/activity"
	"wabridge/internal/infrastructure/banwarning"
	"wabridge/internal/infrastructure/config"
	"wabridge/internal/infrastructure/fingerprint"
	"wabridge/internal/infrastructure/logger"
	"wabridge/internal/infrastructure/metrics"
	"wabridge/internal/infrastructure/persistence"
	"wabridge/internal/infrastructure/presence"
	"wabridge/internal/infrastructure/ratelimit"
	"wabridge/internal/infrastructure/reconnect"
	"wabridge/internal/infrastructure/variator"
	"wabridge/internal/infrastructure/warmup"
	"wabridge/internal/infrastructure/webhook"
	"wabridge/internal/infrastructure/websocket"
	"wabridge/internal/infrastructure/whatsmeow"
	"wabridge/internal/platform/clock"

	"go.uber.org/fx"
)

// NewLogger builds the structured logger every collaborator shares.
func NewLogger(cfg *config.Config) logger.Logger {
	return logger.NewStructuredLogger(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
}

// NewMetrics builds the Prometheus instrument set.
func NewMetrics(cfg *config.Config) *metrics.Metrics {
	return metrics.NewMetrics(metrics.Config{
		Enabled:   cfg.Metrics.Enabled,
		Path:      cfg.Metrics.Path,
		Namespace: cfg.Metrics.Namespace,
	})
}

// NewAuditLogger builds the structured audit trail for ban-warning/
// hibernation transitions and fingerprint rotations.
func NewAuditLogger(log logger.Logger) *logger.AuditLogger {
	return logger.NewAuditLogger(log)
}

// NewClock returns the production clock.
func NewClock() clock.Clock { return clock.Real() }

// NewRNG seeds the production RNG from the current time.
func NewRNG(c clock.Clock) clock.RNG { return clock.NewRNG(c.Now().UnixNano()) }

// NewStateStore builds the JSON-file state store described in §6.4.
func NewStateStore(cfg *config.Config, log logger.Logger) repository.StateStore {
	return persistence.New(cfg.Persistence.Dir, log)
}

// NewProtocolClient opens (but does not connect) the whatsmeow device
// store. Connect is invoked by core.Core.Start via the session supervisor.
func NewProtocolClient(cfg *config.Config, log logger.Logger) (repository.ProtocolClient, error) {
	wmCfg := whatsmeow.Config{
		DBPath:                cfg.WhatsApp.DBPath,
		QRTimeout:             cfg.WhatsApp.QRTimeout,
		ReconnectDelay:        cfg.WhatsApp.ReconnectDelay,
		MaxReconnects:         cfg.WhatsApp.MaxReconnects,
		CircuitBreakerEnabled: cfg.CircuitBreaker.Enabled,
		CircuitBreakerConfig: whatsmeow.CircuitBreakerConfig{
			Name:             "whatsmeow",
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         cfg.CircuitBreaker.Interval,
			Timeout:          cfg.CircuitBreaker.Timeout,
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
			SuccessThreshold: cfg.CircuitBreaker.SuccessThreshold,
		},
	}
	return whatsmeow.New(context.Background(), wmCfg, log)
}

// NewEventHub builds the dashboard websocket push channel (§6.1).
func NewEventHub(cfg *config.Config) *websocket.EventHub {
	return websocket.NewEventHub(websocket.Config{
		APIKey:       cfg.WebSocket.APIKey,
		PingInterval: cfg.WebSocket.PingInterval,
		WriteTimeout: cfg.WebSocket.WriteTimeout,
		AuthTimeout:  cfg.WebSocket.AuthTimeout,
	})
}

// NewEventPublisher adapts the EventHub to repository.EventPublisher.
func NewEventPublisher(hub *websocket.EventHub) repository.EventPublisher { return hub }

// NewWebhook builds the §6.2 inbound-message collaborator, or a no-op if
// none is configured.
func NewWebhook(cfg *config.Config, log logger.Logger) repository.Webhook {
	if !cfg.Webhook.Enabled || cfg.Webhook.URL == "" {
		return webhook.Noop{}
	}
	return webhook.New(webhook.Config{URL: cfg.Webhook.URL, Secret: cfg.Webhook.Secret}, log)
}

// NewRateLimiter builds the §4.2 tiered rate limiter.
func NewRateLimiter(cfg *config.Config, state repository.StateStore, c clock.Clock, rng clock.RNG, log logger.Logger) *ratelimit.Limiter {
	tier := valueobject.TierForAccountAge(cfg.AntiBan.AccountAgeWeeks)
	return ratelimit.New(tier, state, c, rng, log)
}

// NewWarmupRegistry builds the §4.3 contact warmup registry.
func NewWarmupRegistry(state repository.StateStore, c clock.Clock, log logger.Logger) *warmup.Registry {
	return warmup.New(state, c, log)
}

// NewBanWarningSystem builds the §4.4 ban warning system.
func NewBanWarningSystem(state repository.StateStore, c clock.Clock, log logger.Logger, audit *logger.AuditLogger) *banwarning.System {
	return banwarning.New(state, c, log, audit)
}

// NewVariator builds the §4.5 message text variator.
func NewVariator(rng clock.RNG) *variator.Variator { return variator.New(rng) }

// NewActivityTracker builds the §4.7 activity tracker.
func NewActivityTracker(state repository.StateStore, c clock.Clock, log logger.Logger) *activity.Tracker {
	return activity.New(state, c, log)
}

// NewFingerprintStore builds the §4.1 device fingerprint store.
func NewFingerprintStore(state repository.StateStore, c clock.Clock, rng clock.RNG, log logger.Logger, m *metrics.Metrics, audit *logger.AuditLogger) *fingerprint.Store {
	return fingerprint.New(state, c, rng, log, m, audit)
}

// NewReconnectManager builds the §4.8 reconnection state machine.
func NewReconnectManager(cfg *config.Config, c clock.Clock, rng clock.RNG) *reconnect.Manager {
	return reconnect.New(reconnect.Config{
		Initial:     time.Duration(cfg.Reconnect.InitialMs) * time.Millisecond,
		Cap:         time.Duration(cfg.Reconnect.CapMs) * time.Millisecond,
		GiveUpAfter: cfg.Reconnect.GiveUpAfter,
	}, c, rng)
}

// NewActiveWindow derives the presence cycler's active-hours window from
// the configured local HH:MM bounds.
func NewActiveWindow(cfg *config.Config) (presence.ActiveWindow, error) {
	start, err := config.ParseClockOffset(cfg.AntiBan.ActiveHoursStart)
	if err != nil {
		return presence.ActiveWindow{}, err
	}
	end, err := config.ParseClockOffset(cfg.AntiBan.ActiveHoursEnd)
	if err != nil {
		return presence.ActiveWindow{}, err
	}
	return presence.ActiveWindow{Start: start, End: end}, nil
}

// Module wires every infrastructure leaf component into the fx provide graph.
var Module = fx.Module("infrastructure",
	fx.Provide(
		NewLogger,
		NewAuditLogger,
		NewMetrics,
		NewClock,
		NewRNG,
		NewStateStore,
		NewProtocolClient,
		NewEventHub,
		NewEventPublisher,
		NewWebhook,
		NewRateLimiter,
		NewWarmupRegistry,
		NewBanWarningSystem,
		NewVariator,
		NewActivityTracker,
		NewFingerprintStore,
		NewReconnectManager,
		NewActiveWindow,
	),
)
