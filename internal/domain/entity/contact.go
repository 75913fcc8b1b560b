package entity

import "time"

// ContactStatus is the warmup bucket a recipient falls into based on how
// long ago the core first sent it a message.
type ContactStatus string

const (
	ContactNew     ContactStatus = "NEW"
	ContactWarming ContactStatus = "WARMING"
	ContactWarmed  ContactStatus = "WARMED"
)

// ContactRecord tracks per-recipient warmup state: first-contact timestamp
// and a 24h send counter, independent of the global rate limiter. The
// counter covers a fixed window that opens at WindowStart; sends are not
// aged out one by one as in a sliding window.
type ContactRecord struct {
	JID         string    `json:"jid"`
	FirstSeen   time.Time `json:"first_seen"`
	TotalSent   int       `json:"total_sent"`
	WindowSent  int       `json:"window_sent"`
	WindowStart time.Time `json:"window_start"`
}

// Status derives the contact's warmup bucket relative to now.
// NEW for the first 72h, WARMING through 168h (7 days), WARMED after.
func (c *ContactRecord) Status(now time.Time) ContactStatus {
	if c.FirstSeen.IsZero() {
		return ContactNew
	}
	age := now.Sub(c.FirstSeen)
	switch {
	case age < 72*time.Hour:
		return ContactNew
	case age < 168*time.Hour:
		return ContactWarming
	default:
		return ContactWarmed
	}
}

// PerDayCeiling returns the recipient-scoped daily send ceiling for the
// contact's current status. WARMED has no ceiling of its own; the global
// rate limiter still applies.
func (c *ContactRecord) PerDayCeiling(now time.Time) (ceiling int, unlimited bool) {
	switch c.Status(now) {
	case ContactNew:
		return 3, false
	case ContactWarming:
		return 10, false
	default:
		return 0, true
	}
}
