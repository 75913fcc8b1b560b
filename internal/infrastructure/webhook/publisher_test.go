package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wabridge/internal/domain/entity"
	"wabridge/internal/infrastructure/logger"
)

func TestNoopDiscardsMessages(t *testing.T) {
	var n Noop
	err := n.OnMessage(context.Background(), entity.InboundMessage{})
	assert.NoError(t, err)
}

func TestPublisherSignsPayloadAndSucceeds(t *testing.T) {
	secret := "s3cr3t"
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Webhook-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(Config{URL: srv.URL, Secret: secret}, logger.NewNop())
	msg := entity.InboundMessage{From: "12345@s.whatsapp.net", Text: "hi"}

	err := p.OnMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.NotEmpty(t, gotSig)

	mac := hmac.New(sha256.New, []byte(secret))
	assert.Len(t, gotSig, hex.EncodedLen(mac.Size()))
}

func TestPublisherDoesNotRetry4xx(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := New(Config{URL: srv.URL}, logger.NewNop())
	err := p.OnMessage(context.Background(), entity.InboundMessage{})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestPublisherCancelsOnContextDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(Config{URL: srv.URL}, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.OnMessage(ctx, entity.InboundMessage{})
	require.Error(t, err)
}
