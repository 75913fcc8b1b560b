package entity

import "time"

// Fingerprint is the emulated device identity presented at connection time:
// the (os, browser product, version) triple WhatsApp Web clients report.
type Fingerprint struct {
	OS            string    `json:"os"`
	Product       string    `json:"product"`
	Version       string    `json:"version"`
	EstablishedAt time.Time `json:"established_at"`
	RotationCount int       `json:"rotation_count"`
	// RotationWindow is the jittered 24-48h interval, chosen when this
	// triple was written, after which the next read rotates it.
	RotationWindow time.Duration `json:"rotation_window"`
}

// DueForRotation reports whether the fingerprint has aged past its rotation window.
func (f *Fingerprint) DueForRotation(now time.Time) bool {
	return now.Sub(f.EstablishedAt) >= f.RotationWindow
}
