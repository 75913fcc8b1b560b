package core

import (
	"context"

	"wabridge/internal/domain/repository"
	"wabridge/internal/domain/valueobject"
	"wabridge/internal/infrastructure/banwarning"
	"wabridge/internal/infrastructure/logger"
	"wabridge/internal/infrastructure/metrics"
	"wabridge/internal/infrastructure/reconnect"
	"wabridge/internal/platform/clock"
)

// Supervisor owns the protocol client's lifecycle (§4.8): it drives
// reconnect.Manager off the client's event stream, schedules backoff
// timers, pushes QR/connection-state changes to the dashboard collaborator,
// and forwards message events to the receive path.
type Supervisor struct {
	protocol repository.ProtocolClient
	manager  *reconnect.Manager
	banwarn  *banwarning.System
	publish  repository.EventPublisher
	receiver *ReceivePath

	clock clock.Clock
	log   logger.Logger

	timerFired chan struct{}
	metrics    *metrics.Metrics
}

// NewSupervisor builds a session supervisor. m may be nil.
func NewSupervisor(
	protocol repository.ProtocolClient,
	manager *reconnect.Manager,
	banwarn *banwarning.System,
	publish repository.EventPublisher,
	receiver *ReceivePath,
	c clock.Clock,
	log logger.Logger,
	m *metrics.Metrics,
) *Supervisor {
	return &Supervisor{
		protocol:   protocol,
		manager:    manager,
		banwarn:    banwarn,
		publish:    publish,
		receiver:   receiver,
		clock:      c,
		log:        log,
		timerFired: make(chan struct{}, 1),
		metrics:    m,
	}
}

// State returns the current connection state.
func (s *Supervisor) State() valueobject.ConnectionState {
	return s.manager.State()
}

// Attempts returns the current consecutive reconnection attempt count.
func (s *Supervisor) Attempts() int {
	return s.manager.Attempts()
}

// GaveUp reports whether the supervisor has reached the give-up threshold
// without reaching OPEN (it keeps retrying regardless, per §4.8).
func (s *Supervisor) GaveUp() bool {
	return s.manager.GaveUp()
}

// Run drives the supervisor's event loop until ctx is canceled. It issues
// the initial connect attempt and then reacts to protocol events and
// backoff timers.
func (s *Supervisor) Run(ctx context.Context) error {
	s.manager.Start()
	go s.attemptConnect(ctx)

	events := s.protocol.Events()
	for {
		select {
		case <-ctx.Done():
			s.manager.Shutdown()
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, evt)
		case <-s.timerFired:
			s.manager.TimerFired()
			s.publishState()
			go s.attemptConnect(ctx)
		}
	}
}

// Reconnect requests a manual transition toward CONNECTING. No-op if
// already OPEN (§6.1 reconnect()).
func (s *Supervisor) Reconnect(ctx context.Context) {
	if s.manager.State() == valueobject.StateOpen {
		return
	}
	s.manager.Shutdown()
	s.manager.Start()
	s.publishState()
	go s.attemptConnect(ctx)
}

func (s *Supervisor) attemptConnect(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.RecordReconnectAttempt()
	}
	if err := s.protocol.Connect(ctx); err != nil {
		s.log.Warn("connect attempt failed", logger.Err(err))
		s.onClosed(ctx, true)
	}
}

func (s *Supervisor) handleEvent(ctx context.Context, evt repository.ProtocolEvent) {
	switch evt.Kind {
	case repository.EventQRCode:
		s.manager.NeedsQR()
		s.publish.Publish(ctx, "qr.code", evt.QRCode)
		s.publishState()
	case repository.EventConnectionUpdate:
		if evt.Connected {
			s.manager.Opened()
			s.publishState()
			return
		}
		s.onClosed(ctx, evt.Retryable)
	case repository.EventMessagesUpsert:
		if s.receiver != nil && evt.Message != nil {
			s.receiver.HandleMessage(ctx, *evt.Message)
		}
	case repository.EventMessagesUpdate:
		if s.receiver != nil {
			s.receiver.HandleStatus(evt.MessageID, evt.Status)
		}
	}
}

func (s *Supervisor) onClosed(ctx context.Context, retryable bool) {
	if retryable {
		s.manager.ClosedRetryable()
		if err := s.banwarn.Record(ctx, valueobject.RiskConnectionDrop); err != nil {
			s.log.Warn("failed to record connection drop risk event", logger.Err(err))
		}
		s.publishState()
		s.scheduleTimer(ctx)
		return
	}
	s.manager.ClosedFatal()
	s.publishState()
	if err := s.protocol.Logout(ctx); err != nil {
		s.log.Warn("logout after fatal closure failed", logger.Err(err))
	}
}

func (s *Supervisor) scheduleTimer(ctx context.Context) {
	delay := s.manager.NextDelay()
	go func() {
		if !clock.SleepContext(s.clock, delay, ctx.Done()) {
			return
		}
		select {
		case s.timerFired <- struct{}{}:
		case <-ctx.Done():
		}
	}()
}

func (s *Supervisor) publishState() {
	s.publish.Publish(context.Background(), "connection.state", string(s.manager.State()))
	if s.manager.GaveUp() {
		s.publish.Publish(context.Background(), "reconnect.give_up", s.manager.Attempts())
	}
}
