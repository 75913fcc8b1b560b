package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wabridge/internal/core"
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

type stubProtocol struct {
	events chan repository.ProtocolEvent
}

func (f *stubProtocol) Connect(ctx context.Context) error { return nil }
func (f *stubProtocol) Logout(ctx context.Context) error  { return nil }
func (f *stubProtocol) Events() <-chan repository.ProtocolEvent {
	return f.events
}
func (f *stubProtocol) SendMessage(ctx context.Context, jid, text, replyTo string) (string, error) {
	return "msg-http-1", nil
}
func (f *stubProtocol) PresenceSubscribe(ctx context.Context, jid string) error { return nil }
func (f *stubProtocol) PresenceUpdate(ctx context.Context, state entity.PresenceState, jid string) error {
	return nil
}
func (f *stubProtocol) ReadMessages(ctx context.Context, keys []repository.MessageKey) error {
	return nil
}
func (f *stubProtocol) DeviceInfo() (string, string) { return "15551230000", "Handler Test Device" }

type stubPublisher struct{}

func (stubPublisher) Publish(ctx context.Context, eventType string, payload any) {}

// newTestRouter wires a real core.Core (real clock: the send pipeline's
// shaping delays would hang under a fake clock with no driving Advance)
// behind the actual router, so these tests exercise JSON binding, domain
// error mapping, and the full gin middleware chain together.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	store := persistence.New(t.TempDir(), logger.NewNop())
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

	protocol := &stubProtocol{events: make(chan repository.ProtocolEvent)}
	window := presence.ActiveWindow{Start: 0, End: 24 * time.Hour}

	co := core.New(protocol, rl, wu, bw, vr, act, fp, reconnectMgr,
		stubPublisher{}, webhook.Noop{}, window, c, rng, log, 2, nil)

	require.NoError(t, co.Start(context.Background()))
	reconnectMgr.Start()
	reconnectMgr.Opened()

	handler := NewHandler(co)
	return NewRouter(handler, DefaultRouterConfig())
}

func TestHandlerSendReturns202OnSuccess(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/send", strings.NewReader(`{"to":"15559876543","text":"hi there"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, 202, rec.Code)
	assert.Contains(t, rec.Body.String(), "msg-http-1")
}

func TestHandlerSendReturns400OnMissingFields(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/send", strings.NewReader(`{"to":""}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_JSON")
}

func TestHandlerSendReturns400OnInvalidJID(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/send", strings.NewReader(`{"to":"not-a-phone","text":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_JID")
}

func TestHandlerStatusReportsConnectionState(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/status", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"connection_state":"OPEN"`)
}

func TestHandlerHealthAlwaysOK(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
}

func TestHandlerReadyReflectsUsableConnection(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ready", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ready"`)
}
