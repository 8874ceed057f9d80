package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType represents the type of a hub payload.
type MessageType string

const (
	MessageTaskCreated   MessageType = "TaskCreated"
	MessageTaskUpdated   MessageType = "TaskUpdated"
	MessageTaskCompleted MessageType = "TaskCompleted"
	MessageTimerStarted  MessageType = "TimerStarted"
	MessageTimerStopped  MessageType = "TimerStopped"
	MessageLevelUp       MessageType = "LevelUp"
)

// Event is the envelope written to connected clients.
type Event struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// BroadcastMessage packages a payload for a user-scoped broadcast.
type BroadcastMessage struct {
	UserID  string
	Payload []byte
}

// Hub manages active clients and user-scoped broadcasts.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan BroadcastMessage
	logger     *zap.Logger
}

// NewHub builds a new Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan BroadcastMessage),
		logger:     logger,
	}
}

// Run starts the hub loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				if client.userID != message.UserID {
					continue
				}
				select {
				case client.Send <- message.Payload:
				default:
					delete(h.clients, client)
					close(client.Send)
				}
			}
		}
	}
}

// Broadcast sends a raw payload to all of a user's connections.
func (h *Hub) Broadcast(userID string, payload []byte) {
	h.broadcast <- BroadcastMessage{UserID: userID, Payload: payload}
}

// Publish marshals data into an Event envelope and broadcasts it to the
// user's connections. Marshal failures are logged and dropped; live
// updates are best-effort.
func (h *Hub) Publish(userID string, messageType MessageType, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Warn("failed to marshal ws payload",
			zap.String("type", string(messageType)),
			zap.Error(err))
		return
	}

	event, err := json.Marshal(Event{
		Type:      messageType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.logger.Warn("failed to marshal ws event", zap.Error(err))
		return
	}

	h.Broadcast(userID, event)
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// Client represents a websocket connection bound to one user.
type Client struct {
	Conn   *websocket.Conn
	Hub    *Hub
	Send   chan []byte
	userID string
}

// NewClient returns a client ready for registration. The user id is
// fixed at upgrade time from the verified token.
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan []byte, 256),
		userID: userID,
	}
}

// UserID returns the authenticated user the connection belongs to.
func (c *Client) UserID() string {
	return c.userID
}
