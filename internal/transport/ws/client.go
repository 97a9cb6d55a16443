package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/galleryspace/relay/internal/model"
	"github.com/galleryspace/relay/internal/services/relay"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong before the connection is
	// considered dead
	pongWait = 60 * time.Second

	// Ping interval, must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound message size in bytes
	maxMessageSize = 64 * 1024

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Client is one session's transport: a websocket connection with a read
// pump feeding the relay loop and a write pump draining the send buffer.
// Delivery is best-effort; a slow consumer drops messages rather than
// stalling the relay.
type Client struct {
	id         model.SessionID
	conn       *websocket.Conn
	dispatcher *relay.Dispatcher
	logger     *slog.Logger

	send      chan model.Envelope
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient wraps an upgraded connection
func NewClient(id model.SessionID, conn *websocket.Conn, dispatcher *relay.Dispatcher, logger *slog.Logger) *Client {
	return &Client{
		id:         id,
		conn:       conn,
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("session_id", string(id))),
		send:       make(chan model.Envelope, sendBufferSize),
		done:       make(chan struct{}),
	}
}

// Ensure Client implements the relay's sender boundary
var _ relay.Sender = (*Client)(nil)

// Send queues an envelope for delivery, dropping it if the buffer is full
func (c *Client) Send(env model.Envelope) {
	select {
	case c.send <- env:
	default:
		c.logger.Warn("message dropped - client buffer full",
			slog.String("event", env.Event))
	}
}

// Close tears the connection down. Safe to call more than once and from
// the relay loop.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Run starts the pumps and blocks until the connection goes away
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump decodes inbound envelopes and posts them into the relay loop.
// On exit the disconnect is posted through the same loop, so departure is
// just another event in sequence.
func (c *Client) readPump() {
	defer func() {
		c.dispatcher.Post(relay.Event{Kind: relay.KindDisconnect, Session: c.id})
		c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info("connection error", slog.String("error", err.Error()))
			}
			return
		}

		var env model.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Debug("malformed envelope dropped")
			continue
		}

		c.dispatcher.Post(relay.Event{
			Kind:     relay.KindMessage,
			Session:  c.id,
			Envelope: env,
		})
	}
}

// writePump drains the send buffer and keeps the connection alive with
// pings. It owns all writes to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case env := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
