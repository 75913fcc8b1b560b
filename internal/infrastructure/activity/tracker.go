// Package activity tracks symmetric sent/received counters and response-time
// sampling (§2.5), exposing the response-ratio signal used by status().
package activity

import (
	"context"
	"sync"

	"wabridge/internal/domain/entity"
	"wabridge/internal/domain/repository"
	"wabridge/internal/infrastructure/logger"
	"wabridge/internal/infrastructure/persistence"
	"wabridge/internal/platform/clock"
)

// Tracker is the process-wide activity tracker.
type Tracker struct {
	mu       sync.Mutex
	state    repository.StateStore
	clock    clock.Clock
	guard    *persistence.DegradeGuard
	counters entity.ActivityCounters
}

// New returns a Tracker backed by the given persistence layer.
func New(state repository.StateStore, c clock.Clock, log logger.Logger) *Tracker {
	return &Tracker{state: state, clock: c, guard: persistence.NewDegradeGuard("activity", log)}
}

// Load hydrates counters from disk.
func (t *Tracker) Load(ctx context.Context) error {
	counters, err := t.state.LoadActivity(ctx)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters = *counters
	return nil
}

// RecordSent increments the sent counter and persists.
func (t *Tracker) RecordSent(ctx context.Context) error {
	t.mu.Lock()
	t.counters.RecordSent(t.clock.Now())
	snapshot := t.counters
	t.mu.Unlock()
	return t.save(ctx, &snapshot)
}

// RecordReceived increments the received counter and persists.
func (t *Tracker) RecordReceived(ctx context.Context) error {
	t.mu.Lock()
	t.counters.RecordReceived(t.clock.Now())
	snapshot := t.counters
	t.mu.Unlock()
	return t.save(ctx, &snapshot)
}

// AddResponseSample records a response latency in seconds and persists.
func (t *Tracker) AddResponseSample(ctx context.Context, seconds float64) error {
	t.mu.Lock()
	t.counters.AddResponseSample(seconds)
	snapshot := t.counters
	t.mu.Unlock()
	return t.save(ctx, &snapshot)
}

// Degraded reports whether persistence has been abandoned after two
// consecutive save failures (§7).
func (t *Tracker) Degraded() bool {
	return t.guard.Degraded()
}

func (t *Tracker) save(ctx context.Context, snapshot *entity.ActivityCounters) error {
	if t.guard.Degraded() {
		return nil
	}
	err := t.state.SaveActivity(ctx, snapshot)
	t.guard.Observe(err)
	return err
}

// Snapshot returns a copy of the current counters for status reporting.
func (t *Tracker) Snapshot() entity.ActivityCounters {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counters
}
