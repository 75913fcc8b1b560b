package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wabridge/internal/domain/entity"
	"wabridge/internal/domain/repository"
	"wabridge/internal/domain/valueobject"
	"wabridge/internal/infrastructure/activity"
	"wabridge/internal/infrastructure/banwarning"
	"wabridge/internal/infrastructure/fingerprint"
	"wabridge/internal/infrastructure/logger"
	"wabridge/internal/infrastructure/persistence"
	"wabridge/internal/infrastructure/presence"
	"wabridge/internal/infrastructure/ratelimit"
	"wabridge/internal/infrastructure/reconnect"
	"wabridge/internal/infrastructure/variator"
	"wabridge/internal/infrastructure/warmup"
	"wabridge/internal/infrastructure/webhook"
	"wabridge/internal/platform/clock"
)

// fakeProtocol is a minimal repository.ProtocolClient for Core tests: sends
// always succeed, device info is fixed, and no events are ever raised.
type fakeProtocol struct {
	events    chan repository.ProtocolEvent
	sentCount int
}

func newFakeProtocol() *fakeProtocol {
	return &fakeProtocol{events: make(chan repository.ProtocolEvent)}
}

func (f *fakeProtocol) Connect(ctx context.Context) error { return nil }
func (f *fakeProtocol) Logout(ctx context.Context) error  { return nil }
func (f *fakeProtocol) Events() <-chan repository.ProtocolEvent {
	return f.events
}
func (f *fakeProtocol) SendMessage(ctx context.Context, jid, text, replyTo string) (string, error) {
	f.sentCount++
	return "msg-1", nil
}
func (f *fakeProtocol) PresenceSubscribe(ctx context.Context, jid string) error { return nil }
func (f *fakeProtocol) PresenceUpdate(ctx context.Context, state entity.PresenceState, jid string) error {
	return nil
}
func (f *fakeProtocol) ReadMessages(ctx context.Context, keys []repository.MessageKey) error {
	return nil
}
func (f *fakeProtocol) DeviceInfo() (string, string) { return "15551234567", "Test Device" }

type fakePublisher struct{}

func (fakePublisher) Publish(ctx context.Context, eventType string, payload any) {}

func newTestCore(t *testing.T) (*Core, *fakeProtocol) {
	t.Helper()

	store := persistence.New(t.TempDir(), logger.NewNop())
	// A real clock is required here: the send pipeline performs genuine
	// (short) sleeps for typing/presence shaping that a Fake clock would
	// block on forever without a driving Advance call.
	c := clock.Real()
	rng := clock.NewFakeRNG(0.1)
	log := logger.NewNop()

	tier := valueobject.TierForAccountAge(52)
	rl := ratelimit.New(tier, store, c, rng, log)
	wu := warmup.New(store, c, log)
	bw := banwarning.New(store, c, log, nil)
	vr := variator.New(rng)
	act := activity.New(store, c, log)
	fp := fingerprint.New(store, c, rng, log, nil, nil)
	reconnectMgr := reconnect.New(reconnect.DefaultConfig(), c, rng)

	protocol := newFakeProtocol()
	window := presence.ActiveWindow{Start: 0, End: 24 * time.Hour}

	core := New(protocol, rl, wu, bw, vr, act, fp, reconnectMgr,
		fakePublisher{}, webhook.Noop{}, window, c, rng, log, 2, nil)

	require.NoError(t, core.Start(context.Background()))

	// the send pipeline only admits sends once the connection is OPEN
	reconnectMgr.Start()
	reconnectMgr.Opened()

	return core, protocol
}

func TestCoreSendHappyPath(t *testing.T) {
	core, protocol := newTestCore(t)

	result, err := core.Send(context.Background(), "15559876543", "hello there", "")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", result.MessageID)
	assert.Equal(t, 1, protocol.sentCount)
}

func TestCoreSendRejectsInvalidJID(t *testing.T) {
	core, _ := newTestCore(t)

	_, err := core.Send(context.Background(), "abc", "hello", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_JID")
}

func TestCoreStatusReflectsConnectionAndActivity(t *testing.T) {
	core, _ := newTestCore(t)

	_, err := core.Send(context.Background(), "15559876543", "hello there", "")
	require.NoError(t, err)

	snap := core.Status()
	assert.Equal(t, valueobject.StateOpen, snap.ConnectionState)
	assert.Equal(t, "15551234567", snap.Phone)
	assert.Equal(t, int64(1), snap.Sent)
	assert.False(t, snap.Hibernating)
}

// failingActivityStore fails every SaveActivity call so the activity
// tracker's persistence guard trips, exercising §7's readiness signal.
type failingActivityStore struct {
	repository.StateStore
}

func (failingActivityStore) SaveActivity(ctx context.Context, counters *entity.ActivityCounters) error {
	return errors.New("disk full")
}

func TestCorePersistenceDegradedAggregatesCollaborators(t *testing.T) {
	core, _ := newTestCore(t)
	assert.False(t, core.PersistenceDegraded())

	// swap the activity tracker's store for one that always fails, then
	// trip it with two consecutive writes.
	failing := failingActivityStore{StateStore: persistence.New(t.TempDir(), logger.NewNop())}
	core.activity = activity.New(failing, clock.Real(), logger.NewNop())

	require.Error(t, core.activity.RecordSent(context.Background()))
	require.Error(t, core.activity.RecordSent(context.Background()))
	assert.True(t, core.PersistenceDegraded())
}

func TestCoreSetAccountAgeChangesTier(t *testing.T) {
	core, _ := newTestCore(t)

	tier := core.SetAccountAge(0)
	assert.Equal(t, valueobject.TierFresh, tier)
}

func TestCorePresenceOverride(t *testing.T) {
	core, _ := newTestCore(t)

	err := core.PresenceOverride(context.Background(), true)
	assert.NoError(t, err)
}
