// Package banwarning implements the event-weighted risk score and
// hibernation controller described in §4.3.
package banwarning

import (
	"context"
	"sync"
	"time"

	"wabridge/internal/domain/entity"
	"wabridge/internal/domain/errors"
	"wabridge/internal/domain/repository"
	"wabridge/internal/domain/valueobject"
	"wabridge/internal/infrastructure/logger"
	"wabridge/internal/infrastructure/persistence"
	"wabridge/internal/platform/clock"
)

const (
	hibernationMinDuration = 30 * time.Minute
	burstWindow            = 5 * time.Minute
)

// Status is the result of status().
type Status struct {
	Score          float64
	Level          valueobject.RiskLevel
	Hibernating    bool
	Recommendation string
}

// Gate is the result of gate(): whether the pipeline may admit a send.
type Gate struct {
	Admit bool
}

// System is the process-wide ban warning system. Safe for concurrent use;
// events and the hibernation lock share one mutex, matching the spec's
// description of shared state under a single lock.
type System struct {
	mu sync.Mutex

	state repository.StateStore
	clock clock.Clock
	audit *logger.AuditLogger
	guard *persistence.DegradeGuard

	events []entity.RiskEvent
	lock   entity.HibernationLock
}

// New returns a System backed by the given persistence layer. audit may be nil.
func New(state repository.StateStore, c clock.Clock, log logger.Logger, audit *logger.AuditLogger) *System {
	return &System{state: state, clock: c, audit: audit, guard: persistence.NewDegradeGuard("banwarning", log)}
}

// Load hydrates retained risk events from disk. The hibernation lock is
// in-memory only and always starts disengaged on process start.
func (s *System) Load(ctx context.Context) error {
	events, err := s.state.LoadRiskEvents(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.events = retain(events, now)
	return nil
}

func retain(events []entity.RiskEvent, now time.Time) []entity.RiskEvent {
	out := events[:0:0]
	for _, e := range events {
		if e.Retained(now) {
			out = append(out, e)
		}
	}
	return out
}

// Record appends a risk event of the given kind, persists, and evaluates
// whether the new level crosses into CRITICAL (auto-hibernation).
func (s *System) Record(ctx context.Context, kind valueobject.RiskEventKind) error {
	s.mu.Lock()
	now := s.clock.Now()
	fromLevel := s.levelLocked(now)
	s.events = append(retain(s.events, now), entity.NewRiskEvent(kind, now))
	toLevel := s.levelLocked(now)
	enteringHibernation := toLevel == valueobject.RiskCritical && !s.lock.Engaged
	if enteringHibernation {
		s.lock = entity.HibernationLock{Engaged: true, EnteredAt: now, MinimumDuration: hibernationMinDuration}
		s.events = append(s.events, entity.NewRiskEvent(valueobject.RiskHibernationStarted, now))
	}
	score := s.scoreLocked(now)
	snapshot := append([]entity.RiskEvent(nil), s.events...)
	s.mu.Unlock()

	if s.audit != nil && (toLevel != fromLevel || enteringHibernation) {
		s.audit.LogBanWarningTransition(ctx, string(fromLevel), string(toLevel), enteringHibernation, score)
	}

	return s.save(ctx, snapshot)
}

// Degraded reports whether persistence has been abandoned after two
// consecutive save failures (§7).
func (s *System) Degraded() bool {
	return s.guard.Degraded()
}

func (s *System) save(ctx context.Context, events []entity.RiskEvent) error {
	if s.guard.Degraded() {
		return nil
	}
	err := s.state.SaveRiskEvents(ctx, events)
	s.guard.Observe(err)
	return err
}

// scoreLocked computes the decayed score under the caller's held lock.
func (s *System) scoreLocked(now time.Time) float64 {
	score := 0.0
	for _, e := range s.events {
		score += e.DecayedWeight(now)
	}
	return score
}

// levelLocked computes the risk level, applying the burst override: a
// single RECIPIENT_BLOCK or two DELIVERY_FAILURE within burstWindow forces
// at least HIGH regardless of the decayed score.
func (s *System) levelLocked(now time.Time) valueobject.RiskLevel {
	score := 0.0
	var blocks, failures int
	for _, e := range s.events {
		score += e.DecayedWeight(now)
		if now.Sub(e.Timestamp) > burstWindow {
			continue
		}
		switch e.Kind {
		case valueobject.RiskRecipientBlock:
			blocks++
		case valueobject.RiskDeliveryFailure:
			failures++
		}
	}

	level := valueobject.LevelForScore(score)
	if blocks >= 1 || failures >= 2 {
		if level == valueobject.RiskNormal || level == valueobject.RiskElevated {
			level = valueobject.RiskHigh
		}
	}
	return level
}

// Status reports the current score, level and hibernation state.
func (s *System) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	score := 0.0
	for _, e := range retain(s.events, now) {
		score += e.DecayedWeight(now)
	}
	level := s.levelLocked(now)

	return Status{
		Score:          score,
		Level:          level,
		Hibernating:    s.lock.Engaged,
		Recommendation: recommendationFor(level, s.lock.Engaged),
	}
}

func recommendationFor(level valueobject.RiskLevel, hibernating bool) string {
	if hibernating {
		return "pipeline hibernating; wait for minimum duration before resuming sends"
	}
	switch level {
	case valueobject.RiskCritical:
		return "halt sends immediately"
	case valueobject.RiskHigh:
		return "reduce send volume and review recent failures"
	case valueobject.RiskElevated:
		return "monitor closely"
	default:
		return "no action needed"
	}
}

// Gate reports whether the pipeline may admit a send.
func (s *System) Gate() Gate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Gate{Admit: !s.lock.Engaged}
}

// EnterHibernation manually engages the hibernation lock for the given
// duration.
func (s *System) EnterHibernation(d time.Duration) {
	s.mu.Lock()
	now := s.clock.Now()
	level := s.levelLocked(now)
	score := s.scoreLocked(now)
	s.lock = entity.HibernationLock{Engaged: true, EnteredAt: now, MinimumDuration: d}
	s.mu.Unlock()

	if s.audit != nil {
		s.audit.LogBanWarningTransition(context.Background(), string(level), string(level), true, score)
	}
}

// ExitHibernation honors the request only if the minimum duration has
// elapsed since entry; otherwise it returns ErrHibernationTooEarly.
func (s *System) ExitHibernation() error {
	s.mu.Lock()
	if !s.lock.Engaged {
		s.mu.Unlock()
		return nil
	}
	now := s.clock.Now()
	if !s.lock.CanExit(now) {
		s.mu.Unlock()
		return errors.ErrHibernationTooEarly
	}
	s.lock = entity.HibernationLock{}
	level := s.levelLocked(now)
	score := s.scoreLocked(now)
	s.mu.Unlock()

	if s.audit != nil {
		s.audit.LogBanWarningTransition(context.Background(), string(level), string(level), false, score)
	}
	return nil
}

// Reset clears all risk events and disengages hibernation, used by the
// resetBanWarning() HTTP operation.
func (s *System) Reset(ctx context.Context) error {
	s.mu.Lock()
	wasHibernating := s.lock.Engaged
	s.events = nil
	s.lock = entity.HibernationLock{}
	s.mu.Unlock()

	if s.audit != nil && wasHibernating {
		s.audit.LogBanWarningTransition(ctx, string(valueobject.RiskCritical), string(valueobject.RiskNormal), false, 0)
	}
	return s.save(ctx, nil)
}
