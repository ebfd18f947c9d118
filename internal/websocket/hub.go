package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/voiceast/server/domain/repositories"
	"github.com/voiceast/server/internal/dispatch"
	"github.com/voiceast/server/internal/fastpath"
	"github.com/voiceast/server/internal/intent"
	"github.com/voiceast/server/internal/metrics"
	"github.com/voiceast/server/internal/synthesis"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 16 * 1024 * 1024 // camera frames and whole WAV recordings

	// Outbound buffer per client.
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Services bundles the collaborators a session needs to run turns.
// Recognizer, Vision and History may be nil.
type Services struct {
	Matcher    *fastpath.Matcher
	Resolver   *intent.Resolver
	Dispatcher *dispatch.Dispatcher
	Gate       *synthesis.Gate
	Recognizer repositories.SpeechRecognizer
	Vision     repositories.Vision
	History    repositories.CommandRepository
	Metrics    *metrics.Metrics

	// AudioFramesPerSecond limits audio_stream frames per connection. Zero disables the limit.
	AudioFramesPerSecond int
}

// Hub maintains the set of active clients and broadcasts messages to the clients.
type Hub struct {
	// Registered clients keyed by connection ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Outbound messages for every client.
	broadcast chan []byte

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	services *Services
	logger   *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(services *Services, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, sendBufferSize),
		services:   services,
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.services.Metrics.ConnectionOpened()
			h.logger.Info("Client registered", zap.String("connectionID", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				client.closeSend()
				h.services.Metrics.ConnectionClosed()
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("connectionID", client.id))

		case payload := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				if !client.trySend(WriteData{Type: websocket.TextMessage, Payload: payload}) {
					// a client that cannot keep up is dropped instead of stalling the others
					delete(h.clients, id)
					client.closeSend()
					h.services.Metrics.ConnectionClosed()
					h.logger.Warn("Dropped slow client", zap.String("connectionID", id))
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a message for every connected client
func (h *Hub) Broadcast(message interface{}) {
	payload, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
		return
	}
	h.broadcast <- payload
}

// ActiveConnections returns the IDs of connected clients
func (h *Hub) ActiveConnections() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// WriteData is one outbound frame
type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}
