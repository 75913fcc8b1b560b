package entity

import (
	"time"

	"wabridge/internal/domain/valueobject"
)

// RiskEvent is a single adverse signal observed by the ban warning system.
// Events are retained for 24h and decay linearly to zero over that window.
type RiskEvent struct {
	Kind      valueobject.RiskEventKind `json:"kind"`
	Weight    float64                   `json:"weight"`
	Timestamp time.Time                 `json:"timestamp"`
}

// NewRiskEvent builds a RiskEvent at now with the kind's standard weight.
func NewRiskEvent(kind valueobject.RiskEventKind, now time.Time) RiskEvent {
	return RiskEvent{Kind: kind, Weight: kind.Weight(), Timestamp: now}
}

// Decay returns the fraction of the event's weight still contributing to
// the score at elapsed time delta: max(0, 1 - delta/24h).
func Decay(delta time.Duration) float64 {
	frac := 1 - float64(delta)/float64(24*time.Hour)
	if frac < 0 {
		return 0
	}
	return frac
}

// DecayedWeight returns this event's contribution to the risk score at now.
func (e RiskEvent) DecayedWeight(now time.Time) float64 {
	return e.Weight * Decay(now.Sub(e.Timestamp))
}

// Retained reports whether the event is still within the 24h retention window.
func (e RiskEvent) Retained(now time.Time) bool {
	return now.Sub(e.Timestamp) < 24*time.Hour
}

// HibernationLock is the in-memory latch that, while engaged, makes the
// send pipeline reject every outbound request.
type HibernationLock struct {
	Engaged           bool          `json:"engaged"`
	EnteredAt         time.Time     `json:"entered_at"`
	MinimumDuration   time.Duration `json:"minimum_duration"`
}

// CanExit reports whether now is past the lock's minimum duration.
func (h *HibernationLock) CanExit(now time.Time) bool {
	return now.Sub(h.EnteredAt) >= h.MinimumDuration
}
