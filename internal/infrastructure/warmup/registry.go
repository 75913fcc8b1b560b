// Package warmup implements the contact warmup registry (§4.2): per-recipient
// first-contact tracking with progressive daily send ceilings independent of
// the global rate limiter.
package warmup

import (
	"context"
	"sync"
	"time"

	"wabridge/internal/domain/entity"
	"wabridge/internal/domain/repository"
	"wabridge/internal/infrastructure/logger"
	"wabridge/internal/infrastructure/persistence"
	"wabridge/internal/platform/clock"
)

const window = 24 * time.Hour

// Decision is the result of mayMessage.
type Decision struct {
	Allow           bool
	Reason          string
	PerDayRemaining int
}

// Registry is the process-wide contact warmup registry, keyed by canonical jid.
type Registry struct {
	mu       sync.Mutex
	state    repository.StateStore
	clock    clock.Clock
	guard    *persistence.DegradeGuard
	contacts map[string]*entity.ContactRecord
}

// New returns a Registry backed by the given persistence layer.
func New(state repository.StateStore, c clock.Clock, log logger.Logger) *Registry {
	return &Registry{
		state:    state,
		clock:    c,
		guard:    persistence.NewDegradeGuard("warmup", log),
		contacts: map[string]*entity.ContactRecord{},
	}
}

// Load hydrates contact records from disk.
func (r *Registry) Load(ctx context.Context) error {
	contacts, err := r.state.LoadContacts(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts = contacts
	return nil
}

// MayMessage evaluates whether jid may receive another message right now.
func (r *Registry) MayMessage(jid string) Decision {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	rec, ok := r.contacts[jid]
	if !ok {
		ceiling, _ := (&entity.ContactRecord{}).PerDayCeiling(now)
		return Decision{Allow: true, PerDayRemaining: ceiling}
	}

	windowSent := r.windowSentLocked(rec, now)
	ceiling, unlimited := rec.PerDayCeiling(now)
	if unlimited {
		return Decision{Allow: true, PerDayRemaining: -1}
	}

	remaining := ceiling - windowSent
	if remaining <= 0 {
		return Decision{Allow: false, Reason: "WARMUP_LIMIT", PerDayRemaining: 0}
	}
	return Decision{Allow: true, PerDayRemaining: remaining}
}

// windowSentLocked returns the contact's send count within the current
// fixed 24h window, or 0 once that window has fully elapsed (RecordSend
// opens the next one). It is not a sliding window.
func (r *Registry) windowSentLocked(rec *entity.ContactRecord, now time.Time) int {
	if now.Sub(rec.WindowStart) >= window {
		return 0
	}
	return rec.WindowSent
}

// RecordSend records a send to jid, setting FirstSeen on first contact and
// opening a new 24h window at now when the previous one has fully elapsed,
// then persists.
func (r *Registry) RecordSend(ctx context.Context, jid string) error {
	r.mu.Lock()
	now := r.clock.Now()
	rec, ok := r.contacts[jid]
	if !ok {
		rec = &entity.ContactRecord{JID: jid, FirstSeen: now}
		r.contacts[jid] = rec
	}
	if now.Sub(rec.WindowStart) >= window {
		rec.WindowStart = now
		rec.WindowSent = 0
	}
	rec.WindowSent++
	rec.TotalSent++
	snapshot := cloneContacts(r.contacts)
	r.mu.Unlock()

	if r.guard.Degraded() {
		return nil
	}
	err := r.state.SaveContacts(ctx, snapshot)
	r.guard.Observe(err)
	return err
}

// Degraded reports whether persistence has been abandoned after two
// consecutive save failures (§7).
func (r *Registry) Degraded() bool {
	return r.guard.Degraded()
}

func cloneContacts(src map[string]*entity.ContactRecord) map[string]*entity.ContactRecord {
	out := make(map[string]*entity.ContactRecord, len(src))
	for k, v := range src {
		rec := *v
		out[k] = &rec
	}
	return out
}
