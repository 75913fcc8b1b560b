// Package websocket broadcasts QR-pairing and connection-state events to
// the dashboard collaborator (§6.1's websocket push channel), fanning out
// from the bridge's single process-wide EventPublisher to every
// authenticated subscriber.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Config holds configuration for the EventHub.
type Config struct {
	APIKey       string
	PingInterval time.Duration
	WriteTimeout time.Duration
	AuthTimeout  time.Duration
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		APIKey:       "",
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
		AuthTimeout:  10 * time.Second,
	}
}

// AuthMessage is an authentication message sent by a client.
type AuthMessage struct {
	Type   string `json:"type"`
	APIKey string `json:"api_key"`
}

// AuthResponse is the authentication response sent to a client.
type AuthResponse struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Event is the envelope broadcast to every authenticated client. Type
// mirrors the eventType passed to Publish ("qr.code", "connection.state",
// "reconnect.give_up"); Payload is whatever the supervisor handed in.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Client is a connected WebSocket dashboard subscriber.
type Client struct {
	conn          *websocket.Conn
	hub           *EventHub
	send          chan []byte
	authenticated bool
	mu            sync.RWMutex
}

// NewClient creates a new client.
func NewClient(conn *websocket.Conn, hub *EventHub) *Client {
	return &Client{
		conn: conn,
		hub:  hub,
		send: make(chan []byte, 256),
	}
}

// IsAuthenticated returns whether the client is authenticated.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

// SetAuthenticated sets the client's authentication status.
func (c *Client) SetAuthenticated(auth bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authenticated = auth
}

// Close closes the client's send channel.
func (c *Client) Close() {
	close(c.send)
}

// EventHub fans Publish calls out to every authenticated websocket
// subscriber. It implements repository.EventPublisher.
type EventHub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	config     Config
	done       chan struct{}
}

// NewEventHub creates a new event hub.
func NewEventHub(config Config) *EventHub {
	return &EventHub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		config:     config,
		done:       make(chan struct{}),
	}
}

// Publish implements repository.EventPublisher. It never blocks the
// caller: a full broadcast channel drops the event.
func (h *EventHub) Publish(ctx context.Context, eventType string, payload any) {
	select {
	case h.broadcast <- Event{Type: eventType, Payload: payload}:
	default:
	}
}

// Run starts the event hub's main loop and blocks until Stop is called.
func (h *EventHub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				h.removeClient(client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.removeClient(client)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// Stop stops the event hub.
func (h *EventHub) Stop() {
	close(h.done)
}

// Register registers a client with the hub.
func (h *EventHub) Register(client *Client) {
	h.register <- client
}

// Unregister unregisters a client from the hub.
func (h *EventHub) Unregister(client *Client) {
	h.unregister <- client
}

// ClientCount returns the number of connected clients.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *EventHub) removeClient(client *Client) {
	delete(h.clients, client)
	client.Close()
	_ = client.conn.Close()
}

func (h *EventHub) broadcastEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.IsAuthenticated() {
			continue
		}
		select {
		case client.send <- data:
		default:
		}
	}
}

// AuthenticateClient validates a client's API key. If no key is
// configured, every connection is authenticated.
func (h *EventHub) AuthenticateClient(client *Client, apiKey string) bool {
	if h.config.APIKey == "" {
		client.SetAuthenticated(true)
		return true
	}
	if apiKey == h.config.APIKey {
		client.SetAuthenticated(true)
		return true
	}
	return false
}

// SendAuthResponse sends an authentication response to a client.
func (h *EventHub) SendAuthResponse(client *Client, success bool, message string) error {
	response := AuthResponse{Type: "auth_response", Success: success, Message: message}
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}
	_ = client.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
	return client.conn.WriteMessage(websocket.TextMessage, data)
}

// CloseWithError closes a client connection with an error code and message.
func (h *EventHub) CloseWithError(client *Client, code int, message string) {
	closeMsg := websocket.FormatCloseMessage(code, message)
	_ = client.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
	_ = client.conn.WriteMessage(websocket.CloseMessage, closeMsg)
	_ = client.conn.Close()
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.hub.config.WriteTimeout)); err != nil {
				return
			}
		}
	}
}

// ReadPump pumps messages from the websocket connection to the hub. It
// handles the client's authentication handshake and otherwise just keeps
// the connection alive until it closes.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.config.PingInterval + c.hub.config.WriteTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		if !c.IsAuthenticated() {
			var authMsg AuthMessage
			if err := json.Unmarshal(message, &authMsg); err != nil {
				continue
			}
			if authMsg.Type == "auth" {
				if c.hub.AuthenticateClient(c, authMsg.APIKey) {
					_ = c.hub.SendAuthResponse(c, true, "authentication successful")
				} else {
					_ = c.hub.SendAuthResponse(c, false, "invalid api key")
					c.hub.CloseWithError(c, 4001, "invalid api key")
					return
				}
			}
		}
	}
}
