package persistence

import "wabridge/internal/infrastructure/logger"

// DegradeGuard implements §7's persistence failure policy: a single failed
// write is non-fatal and retried on the component's next flush, but a
// second straight failure degrades that component to in-memory-only
// operation for the rest of the process lifetime, logged once as a
// warning. Grounded on the same consecutive-failure-trips-a-breaker shape
// as gobreaker's ConsecutiveFailures ReadyToTrip, narrowed to a one-shot,
// non-resetting trip since nothing in spec.md calls for a half-open probe.
type DegradeGuard struct {
	component string
	log       logger.Logger

	consecutive int
	degraded    bool
}

// NewDegradeGuard returns a guard that logs under the given component name.
func NewDegradeGuard(component string, log logger.Logger) *DegradeGuard {
	return &DegradeGuard{component: component, log: log}
}

// Degraded reports whether persistence has already been abandoned for this
// component; callers should skip the write entirely once true.
func (g *DegradeGuard) Degraded() bool {
	return g.degraded
}

// Observe records the outcome of a persistence attempt and trips the guard
// on the second consecutive failure.
func (g *DegradeGuard) Observe(err error) {
	if err == nil {
		g.consecutive = 0
		return
	}
	g.consecutive++
	if g.consecutive >= 2 && !g.degraded {
		g.degraded = true
		g.log.Warn("persistence degraded to in-memory-only after consecutive failures",
			logger.String("component", g.component),
			logger.Int("consecutive_failures", g.consecutive))
	}
}
