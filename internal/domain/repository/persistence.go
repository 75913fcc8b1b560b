package repository

import (
	"context"

	"wabridge/internal/domain/entity"
)

// StateStore persists the five files that make up the state directory
// (§6.4): fingerprint, rate-limits, contacts, risk-events, activity. Each
// file is JSON, atomically rewritten, versioned via a top-level "v" field.
// An unknown version resets that file only; it never fails the whole store.
type StateStore interface {
	LoadFingerprint(ctx context.Context) (*entity.Fingerprint, error)
	SaveFingerprint(ctx context.Context, fp *entity.Fingerprint) error

	LoadRateLimits(ctx context.Context) (*RateLimitSnapshot, error)
	SaveRateLimits(ctx context.Context, snap *RateLimitSnapshot) error

	LoadContacts(ctx context.Context) (map[string]*entity.ContactRecord, error)
	SaveContacts(ctx context.Context, contacts map[string]*entity.ContactRecord) error

	LoadRiskEvents(ctx context.Context) ([]entity.RiskEvent, error)
	SaveRiskEvents(ctx context.Context, events []entity.RiskEvent) error

	LoadActivity(ctx context.Context) (*entity.ActivityCounters, error)
	SaveActivity(ctx context.Context, counters *entity.ActivityCounters) error
}

// RateLimitSnapshot is the persisted shape of the rate limiter's
// sliding-window log plus last-send timestamps (§6.4 "rate-limits").
type RateLimitSnapshot struct {
	HourlyTimestamps []int64          `json:"hourly_timestamps"`
	DailyTimestamps  []int64          `json:"daily_timestamps"`
	LastSendByJID    map[string]int64 `json:"last_send_by_jid"`
}
