package entity

import "time"

// ReconnectionCounter tracks the in-memory backoff state for the
// reconnection manager. It resets on any transition into OPEN.
type ReconnectionCounter struct {
	Attempts     int           `json:"attempts"`
	NextDelay    time.Duration `json:"next_delay"`
	GaveUp       bool          `json:"gave_up"`
}

// Reset returns the counter to its initial state, called when the
// connection transitions into OPEN.
func (r *ReconnectionCounter) Reset(initial time.Duration) {
	r.Attempts = 0
	r.NextDelay = initial
	r.GaveUp = false
}
