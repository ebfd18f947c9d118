package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/voiceast/server/domain/entities"
	"github.com/voiceast/server/internal/recognizer"
)

// Client is a middleman between the websocket connection and the hub.
// It also owns the session state of its connection.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// Connection ID for this client
	id string

	// Logger
	logger *zap.Logger

	// Session state, only touched by the read goroutine
	handle   *recognizer.Handle
	language entities.Language
	limiter  *rate.Limiter

	// ctx is cancelled when the connection goes away and aborts the running turn
	ctx    context.Context
	cancel context.CancelFunc

	// done is closed when the write side stops
	done     chan struct{}
	doneOnce sync.Once

	closed bool
	mutex  sync.Mutex
}

// HandleWebSocket upgrades the request and starts serving the connection.
// subject identifies the authenticated peer in logs and may be empty.
func HandleWebSocket(hub *Hub, c echo.Context, subject string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := newClient(hub, conn, logger)
	if subject != "" {
		client.logger = client.logger.With(zap.String("subject", subject))
	}

	client.hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

func newClient(hub *Hub, conn *websocket.Conn, logger *zap.Logger) *Client {
	id := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())

	var limiter *rate.Limiter
	if fps := hub.services.AudioFramesPerSecond; fps > 0 {
		limiter = rate.NewLimiter(rate.Limit(fps), fps)
	}

	clientLogger := logger.With(zap.String("connectionID", id))
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan WriteData, sendBufferSize),
		id:       id,
		logger:   clientLogger,
		handle:   recognizer.New(hub.services.Recognizer, clientLogger),
		language: entities.LanguageEnglish,
		limiter:  limiter,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// readPump reads inbound messages and runs turns in arrival order, so a
// session never runs two turns at once.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.handle.Close()
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c.sendJSON(connectedMessage())

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}
		// a turn may have taken longer than pongWait
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			// raw PCM frames are treated like audio_stream chunks
			c.handleAudioStream(&AudioStreamMessage{
				BaseMessage: BaseMessage{Type: MessageTypeAudioStream},
				Data:        message,
			})
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}

		if c.ctx.Err() != nil {
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// stop marks the write side as gone and aborts the running turn
func (c *Client) stop() {
	c.doneOnce.Do(func() {
		close(c.done)
		c.cancel()
	})
}

// sendJSON queues a message for the peer. It waits for buffer space but
// gives up silently once the connection is gone.
func (c *Client) sendJSON(message interface{}) bool {
	payload, err := json.Marshal(message)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return false
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
		return true
	case <-c.done:
		return false
	}
}

// trySend queues without waiting and reports whether there was room
func (c *Client) trySend(data WriteData) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the outbound channel once
func (c *Client) closeSend() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
