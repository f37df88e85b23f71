// Package chat manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package chat

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// Client represents one WebSocket connection in the chat system. It carries
// an opaque connection id, the socket, a buffered send channel drained by the
// write pump, and the per-connection rate limiter.
type Client struct {
	id          string
	conn        *websocket.Conn
	send        chan []byte
	hub         *Hub
	addr        string
	log         *zap.Logger
	rateLimiter *rateLimiter
	rateLimit   RateLimitConfig

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// NewClient creates a client for an upgraded WebSocket connection. The send
// channel is buffered so the dispatcher never blocks on a slow reader; a full
// buffer drops the frame instead.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := hub.cfg
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		id:          uuid.NewString(),
		conn:        conn,
		send:        make(chan []byte, cfg.SendBufferSize),
		hub:         hub,
		addr:        addr,
		log:         hub.log,
		rateLimiter: newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:   cfg.RateLimit,
	}
}

// ID returns the opaque connection identifier.
func (c *Client) ID() string {
	return c.id
}

// Send queues an outbound event on the connection. It returns false when the
// connection is closed or its buffer is full; callers treat that as a dropped
// frame, never an error.
func (c *Client) Send(ev Event) bool {
	payload, err := json.Marshal(ev)
	if err != nil {
		c.log.Error("failed to marshal outbound event", zap.String("conn", c.id), zap.Error(err))
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// close marks the client closed and closes its send channel, which makes the
// write pump flush a close frame and exit. Safe to call more than once.
func (c *Client) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// closeSocket closes the underlying connection directly; used on hub shutdown
// to unblock a read pump waiting on the socket.
func (c *Client) closeSocket() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("error closing client socket", zap.String("addr", c.addr), zap.Error(err))
	}
}

// setupReadConnection configures read deadlines and the pong handler.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("error setting initial read deadline", zap.String("addr", c.addr), zap.Error(err))
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Warn("error setting read deadline in pong handler", zap.String("addr", c.addr), zap.Error(err))
		}
		return nil
	})
}

// handleReadError logs an appropriate message for a read failure and reports
// whether the read loop should stop.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("message exceeded maximum size",
			zap.String("addr", c.addr), zap.Int64("limit", c.hub.cfg.MaxMessageSize))
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Info("client disconnected", zap.String("addr", c.addr), zap.Error(err))
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Info("client connection closed", zap.String("addr", c.addr), zap.Error(err))
	default:
		c.log.Warn("websocket read error", zap.String("addr", c.addr), zap.Error(err))
	}
	return true
}

// checkRateLimit reports whether the next inbound frame may be processed.
// Rate-limited frames are discarded before dispatch, so they produce no ack
// and mutate nothing.
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		c.log.Warn("rate limit exceeded; discarding message",
			zap.String("addr", c.addr),
			zap.Int("burst", c.rateLimit.Burst),
			zap.Duration("interval", c.rateLimit.RefillInterval))
		return false
	}
	return true
}

// processFrame decodes one inbound envelope and forwards it to the hub loop.
// Malformed JSON is logged and dropped; it never closes the connection.
func (c *Client) processFrame(raw []byte) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		c.log.Warn("invalid frame", zap.String("addr", c.addr), zap.Error(err))
		return
	}
	if ev.Name == "" {
		c.log.Warn("frame without event name", zap.String("addr", c.addr))
		return
	}

	select {
	case c.hub.inbound <- inboundEvent{client: c, event: ev}:
	case <-c.hub.ctx.Done():
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.closeSocket()
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				break
			}
		}

		if !c.checkRateLimit() {
			continue
		}

		c.processFrame(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.closeSocket()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case payload, ok := <-c.send:
		return c.handleOutbound(payload, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// handleOutbound writes one outbound frame, or the close frame when the send
// channel was closed.
func (c *Client) handleOutbound(payload []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("error setting write deadline", zap.String("addr", c.addr), zap.Error(err))
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("error writing close message", zap.String("addr", c.addr), zap.Error(err))
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("error writing message", zap.String("addr", c.addr), zap.Error(err))
		}
		return false
	}
	return true
}

// handlePing sends a ping frame to keep the connection alive.
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("error setting write deadline for ping", zap.String("addr", c.addr), zap.Error(err))
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("error writing ping message", zap.String("addr", c.addr), zap.Error(err))
		}
		return false
	}
	return true
}
