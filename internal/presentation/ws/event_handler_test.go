package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraWs "wabridge/internal/infrastructure/websocket"
)

func newTestServer(t *testing.T, hub *infraWs.EventHub, cfg EventHandlerConfig) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewEventHandler(hub, cfg)
	handler.RegisterRoutes(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestEventsBroadcastToAuthenticatedClient(t *testing.T) {
	hub := infraWs.NewEventHub(infraWs.Config{PingInterval: time.Minute, WriteTimeout: 5 * time.Second, AuthTimeout: 5 * time.Second})
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv := newTestServer(t, hub, DefaultEventHandlerConfig())
	conn := dial(t, srv)

	// no API key configured: server should accept without requiring an auth
	// handshake message, and deliver a subsequent broadcast.
	time.Sleep(20 * time.Millisecond)
	hub.Publish(context.Background(), "connection.state", map[string]string{"state": "OPEN"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "connection.state")
}

func TestEventsRejectsWrongAPIKey(t *testing.T) {
	hub := infraWs.NewEventHub(infraWs.Config{APIKey: "secret", PingInterval: time.Minute, WriteTimeout: 5 * time.Second, AuthTimeout: 5 * time.Second})
	go hub.Run()
	t.Cleanup(hub.Stop)

	cfg := DefaultEventHandlerConfig()
	srv := newTestServer(t, hub, cfg)
	conn := dial(t, srv)

	err := conn.WriteJSON(infraWs.AuthMessage{Type: "auth", APIKey: "wrong"})
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "auth_response")
	assert.Contains(t, string(msg), "false")

	// server closes the connection after a failed auth attempt
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestEventsAcceptsCorrectAPIKey(t *testing.T) {
	hub := infraWs.NewEventHub(infraWs.Config{APIKey: "secret", PingInterval: time.Minute, WriteTimeout: 5 * time.Second, AuthTimeout: 5 * time.Second})
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv := newTestServer(t, hub, DefaultEventHandlerConfig())
	conn := dial(t, srv)

	err := conn.WriteJSON(infraWs.AuthMessage{Type: "auth", APIKey: "secret"})
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "auth_response")
	assert.Contains(t, string(msg), "true")

	hub.Publish(context.Background(), "qr.code", map[string]string{"code": "abc123"})
	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "qr.code")
}
