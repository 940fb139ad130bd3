package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"synergy/domain"
	"synergy/domain/event"

	"github.com/gorilla/websocket"
)

var errConnectionClosed = fmt.Errorf("connection closed")

// connection is the WebSocket side of one session.
// Only writePump writes to the socket once the connection is admitted.
// The outbound queue is never closed: broadcasters may still hold a reference to it.
type connection struct {
	ws        *websocket.Conn
	log       *slog.Logger
	send      chan event.Envelope
	done      chan struct{}
	closeOnce sync.Once
	writeWait time.Duration
	pongWait  time.Duration

	mu    sync.Mutex
	state domain.SessionState
}

func newConnection(ws *websocket.Conn, log *slog.Logger, opts Options) *connection {
	return &connection{
		ws:        ws,
		log:       log,
		send:      make(chan event.Envelope, opts.BufferSize),
		done:      make(chan struct{}),
		writeWait: opts.WriteTimeout,
		pongWait:  opts.PongTimeout,
		state:     domain.Connecting,
	}
}

// Consume queues e for the writer. It gives up when ctx ends or the connection closes.
func (c *connection) Consume(ctx context.Context, e event.Envelope) error {
	select {
	case <-c.done:
		return errConnectionClosed
	default:
	}
	select {
	case c.send <- e:
		return nil
	case <-c.done:
		return errConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// transition moves the connection state machine forward and reports illegal moves.
func (c *connection) transition(next domain.SessionState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.CanTransition(next) {
		c.log.Warn("Illegal connection state transition", "from", c.state, "to", next)
		return false
	}
	c.state = next
	return true
}

func (c *connection) State() domain.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// reject writes the single error event of a failed admission, then closes the socket.
func (c *connection) reject(message string) {
	c.transition(domain.Disconnected)
	deadline := time.Now().Add(c.writeWait)
	_ = c.ws.SetWriteDeadline(deadline)
	if err := c.ws.WriteJSON(event.NewError(message)); err != nil {
		c.log.Debug("Failed to write admission error", "error", err)
	}
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message), deadline)
	c.close()
	_ = c.ws.Close()
}

// close stops the writer. Safe to call many times.
func (c *connection) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writePump drains the queue to the socket and keeps the peer alive with pings.
func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod(c.pongWait))
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case e := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.ws.WriteJSON(e); err != nil {
				c.log.Debug("Failed to write event", "event", e.Event, "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			c.flush()
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.writeWait))
			return
		}
	}
}

// flush writes what is already queued, without waiting for more.
func (c *connection) flush() {
	for {
		select {
		case e := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.ws.WriteJSON(e); err != nil {
				return
			}
		default:
			return
		}
	}
}

// readFrames yields inbound frames one at a time until the socket fails.
func (c *connection) readFrames(maxMessageSize int64, handle func(event.Inbound)) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Debug("WebSocket read error", "error", err)
			}
			return
		}
		// Any inbound traffic proves the peer is alive
		_ = c.ws.SetReadDeadline(time.Now().Add(c.pongWait))

		var in event.Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			c.log.Debug("Dropping malformed frame", "error", err)
			continue
		}
		handle(in)
	}
}

// Send pings to peer with this period. Must be less than pongWait.
func pingPeriod(pongWait time.Duration) time.Duration {
	return (pongWait * 9) / 10
}
