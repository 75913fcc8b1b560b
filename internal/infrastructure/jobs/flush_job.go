// Package jobs runs periodic background work that no single request drives:
// the §4.1 rate limiter flush that durably persists counters coalesced
// between commits.
package jobs

import (
	"context"
	"time"

	"wabridge/internal/infrastructure/logger"
)

// Flusher is satisfied by any component whose writes are coalesced and
// need a periodic unconditional flush. ratelimit.Limiter is the only
// current implementation; the other anti-ban stores persist synchronously
// on every write and have no coalescing to flush.
type Flusher interface {
	Flush(ctx context.Context) error
}

// FlushJob ticks a Flusher on a fixed interval, regardless of per-commit
// coalescing, so a crash between sends never loses more than one interval's
// worth of counters.
type FlushJob struct {
	flusher  Flusher
	interval time.Duration
	log      logger.Logger

	ticker  *time.Ticker
	stopCh  chan struct{}
	running bool
}

// NewFlushJob builds a FlushJob. interval defaults to 60s if zero.
func NewFlushJob(flusher Flusher, interval time.Duration, log logger.Logger) *FlushJob {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &FlushJob{flusher: flusher, interval: interval, log: log, stopCh: make(chan struct{})}
}

// Start launches the ticker loop. Safe to call once; a second call is a no-op.
func (j *FlushJob) Start(ctx context.Context) {
	if j.running {
		return
	}
	j.running = true
	j.ticker = time.NewTicker(j.interval)
	go j.run(ctx)
}

// Stop halts the ticker loop.
func (j *FlushJob) Stop() {
	if !j.running {
		return
	}
	j.running = false
	j.ticker.Stop()
	close(j.stopCh)
}

func (j *FlushJob) run(ctx context.Context) {
	for {
		select {
		case <-j.ticker.C:
			if err := j.flusher.Flush(ctx); err != nil {
				j.log.Warn("background flush failed", logger.Err(err))
			}
		case <-j.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// IsRunning reports whether the job's ticker loop is active.
func (j *FlushJob) IsRunning() bool {
	return j.running
}
