// Package fingerprint persists and rotates the emulated device identity
// presented at connection time (§4.10).
package fingerprint

import (
	"context"
	"sync"
	"time"

	"wabridge/internal/domain/entity"
	"wabridge/internal/domain/repository"
	"wabridge/internal/infrastructure/logger"
	"wabridge/internal/infrastructure/metrics"
	"wabridge/internal/platform/clock"
)

const (
	minRotationWindow = 24 * time.Hour
	maxRotationWindow = 48 * time.Hour
)

// Store is the fingerprint rotation store. Get is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	state   repository.StateStore
	clock   clock.Clock
	rng     clock.RNG
	log     logger.Logger
	current *entity.Fingerprint
	metrics *metrics.Metrics
	audit   *logger.AuditLogger
}

// New returns a Store backed by the given persistence layer. m and audit may be nil.
func New(state repository.StateStore, c clock.Clock, rng clock.RNG, log logger.Logger, m *metrics.Metrics, audit *logger.AuditLogger) *Store {
	return &Store{state: state, clock: c, rng: rng, log: log, metrics: m, audit: audit}
}

// Get returns the current fingerprint, loading from disk on first call and
// rotating in place once the rotation window has elapsed.
func (s *Store) Get(ctx context.Context) (entity.Fingerprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		fp, err := s.state.LoadFingerprint(ctx)
		if err != nil {
			return entity.Fingerprint{}, err
		}
		if fp == nil {
			fp = s.newTriple(legacyTriple, 0)
			if err := s.state.SaveFingerprint(ctx, fp); err != nil {
				return entity.Fingerprint{}, err
			}
		}
		s.current = fp
	}

	if s.current.DueForRotation(s.clock.Now()) {
		prev := *s.current
		rotated := s.rotate(prev)
		if err := s.state.SaveFingerprint(ctx, &rotated); err != nil {
			s.log.Warn("fingerprint rotation write failed", logger.Err(err))
			return *s.current, nil
		}
		s.current = &rotated
		if s.metrics != nil {
			s.metrics.RecordFingerprintRotation()
		}
		if s.audit != nil {
			s.audit.LogFingerprintRotation(ctx, prev.OS, rotated.OS, rotated.RotationCount)
		}
	}

	return *s.current, nil
}

func (s *Store) newTriple(base entity.Fingerprint, rotationCount int) *entity.Fingerprint {
	fp := base
	fp.EstablishedAt = s.clock.Now()
	fp.RotationCount = rotationCount
	fp.RotationWindow = s.randomWindow()
	return &fp
}

func (s *Store) rotate(prev entity.Fingerprint) entity.Fingerprint {
	next := s.pickDifferent(prev)
	return *s.newTriple(next, prev.RotationCount+1)
}

// pickDifferent draws uniformly from the catalog excluding the current triple.
func (s *Store) pickDifferent(current entity.Fingerprint) entity.Fingerprint {
	candidates := make([]entity.Fingerprint, 0, len(catalog)-1)
	for _, c := range catalog {
		if c.OS == current.OS && c.Product == current.Product && c.Version == current.Version {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return current
	}
	return candidates[s.rng.Intn(len(candidates))]
}

func (s *Store) randomWindow() time.Duration {
	span := maxRotationWindow - minRotationWindow
	return minRotationWindow + time.Duration(s.rng.Float64()*float64(span))
}
