package persistence

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"wabridge/internal/domain/entity"
	"wabridge/internal/domain/repository"
	"wabridge/internal/infrastructure/logger"
)

const currentVersion = 1

const (
	fileFingerprint = "fingerprint"
	fileRateLimits  = "rate-limits"
	fileContacts    = "contacts"
	fileRiskEvents  = "risk-events"
	fileActivity    = "activity"
)

// envelope wraps every persisted file with a version tag so a future format
// change can detect and reset old files instead of misreading them.
type envelope[T any] struct {
	V     int `json:"v"`
	Value T   `json:"value"`
}

// Store is the JSON-file-backed implementation of repository.StateStore.
// Every Load/Save pair operates on its own file under dir; an unknown
// version or corrupt file resets that single file and logs a warning,
// never failing the whole store.
type Store struct {
	dir string
	log logger.Logger

	mu sync.Mutex
}

var _ repository.StateStore = (*Store)(nil)

// New returns a Store rooted at dir. The directory is created on first write.
func New(dir string, log logger.Logger) *Store {
	return &Store{dir: dir, log: log}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func loadEnveloped[T any](s *Store, name string, empty T) T {
	s.mu.Lock()
	defer s.mu.Unlock()

	var env envelope[T]
	err := readJSON(s.path(name), &env)
	switch {
	case err == nil && env.V == currentVersion:
		return env.Value
	case err == nil:
		s.log.Warn("resetting state file: unknown version", logger.String("file", name), logger.Int("version", env.V))
		return empty
	case os.IsNotExist(err):
		return empty
	default:
		s.log.Warn("resetting state file: read failed", logger.String("file", name), logger.Err(err))
		return empty
	}
}

func saveEnveloped[T any](s *Store, name string, value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.path(name), envelope[T]{V: currentVersion, Value: value})
}

func (s *Store) LoadFingerprint(ctx context.Context) (*entity.Fingerprint, error) {
	fp := loadEnveloped(s, fileFingerprint, entity.Fingerprint{})
	if fp.OS == "" {
		return nil, nil
	}
	return &fp, nil
}

func (s *Store) SaveFingerprint(ctx context.Context, fp *entity.Fingerprint) error {
	return saveEnveloped(s, fileFingerprint, *fp)
}

func (s *Store) LoadRateLimits(ctx context.Context) (*repository.RateLimitSnapshot, error) {
	snap := loadEnveloped(s, fileRateLimits, repository.RateLimitSnapshot{})
	if snap.LastSendByJID == nil {
		snap.LastSendByJID = map[string]int64{}
	}
	return &snap, nil
}

func (s *Store) SaveRateLimits(ctx context.Context, snap *repository.RateLimitSnapshot) error {
	return saveEnveloped(s, fileRateLimits, *snap)
}

func (s *Store) LoadContacts(ctx context.Context) (map[string]*entity.ContactRecord, error) {
	contacts := loadEnveloped(s, fileContacts, map[string]*entity.ContactRecord{})
	if contacts == nil {
		contacts = map[string]*entity.ContactRecord{}
	}
	return contacts, nil
}

func (s *Store) SaveContacts(ctx context.Context, contacts map[string]*entity.ContactRecord) error {
	return saveEnveloped(s, fileContacts, contacts)
}

func (s *Store) LoadRiskEvents(ctx context.Context) ([]entity.RiskEvent, error) {
	return loadEnveloped(s, fileRiskEvents, []entity.RiskEvent{}), nil
}

func (s *Store) SaveRiskEvents(ctx context.Context, events []entity.RiskEvent) error {
	return saveEnveloped(s, fileRiskEvents, events)
}

func (s *Store) LoadActivity(ctx context.Context) (*entity.ActivityCounters, error) {
	counters := loadEnveloped(s, fileActivity, entity.ActivityCounters{})
	return &counters, nil
}

func (s *Store) SaveActivity(ctx context.Context, counters *entity.ActivityCounters) error {
	return saveEnveloped(s, fileActivity, *counters)
}
