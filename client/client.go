// Package client is a Go client of the realtime chat: it performs the admission
// handshake, correlates sends with their acknowledgments and streams group events.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"synergy/domain/event"

	"github.com/gorilla/websocket"
)

const (
	writeWait   = 10 * time.Second
	eventBuffer = 256
)

var ErrClosed = fmt.Errorf("client closed")

// AdmissionError is the server refusal received instead of the connected event.
type AdmissionError struct {
	Message string
}

func (e *AdmissionError) Error() string {
	return "connection refused: " + e.Message
}

// Event is a group event pushed by the server. Exactly one payload is set.
type Event struct {
	Name     string
	Message  *event.MessagePayload
	UserLeft *event.UserLeftPayload
	Error    *event.ErrorPayload
}

type Client struct {
	log       *slog.Logger
	ws        *websocket.Conn
	connected event.ConnectedPayload
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	nextID    atomic.Uint64

	writeMu sync.Mutex
	mu      sync.Mutex
	pending map[uint64]chan event.AckPayload
}

// Dial opens the realtime connection of projectID and waits for the admission outcome.
// addr is the server base URL, http(s) or ws(s).
func Dial(ctx context.Context, log *slog.Logger, addr, token, projectID string) (*Client, error) {
	endpoint, err := websocketURL(addr, projectID)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	first, err := readFirst(ctx, ws)
	if err != nil {
		_ = ws.Close()
		return nil, err
	}

	c := &Client{
		log:       log,
		ws:        ws,
		connected: first,
		events:    make(chan Event, eventBuffer),
		done:      make(chan struct{}),
		pending:   make(map[uint64]chan event.AckPayload),
	}
	go c.readLoop()
	return c, nil
}

func readFirst(ctx context.Context, ws *websocket.Conn) (event.ConnectedPayload, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = ws.SetReadDeadline(deadline)
		defer func() { _ = ws.SetReadDeadline(time.Time{}) }()
	}
	var in event.Inbound
	if err := ws.ReadJSON(&in); err != nil {
		return event.ConnectedPayload{}, fmt.Errorf("handshake: %w", err)
	}
	switch in.Event {
	case event.Connected:
		var payload event.ConnectedPayload
		if err := json.Unmarshal(in.Data, &payload); err != nil {
			return event.ConnectedPayload{}, fmt.Errorf("handshake: %w", err)
		}
		return payload, nil
	case event.Error:
		var payload event.ErrorPayload
		_ = json.Unmarshal(in.Data, &payload)
		return event.ConnectedPayload{}, &AdmissionError{Message: payload.Message}
	default:
		return event.ConnectedPayload{}, fmt.Errorf("handshake: unexpected event %q", in.Event)
	}
}

// Connected is the identity echo received at admission.
func (c *Client) Connected() event.ConnectedPayload {
	return c.connected
}

// Events streams group events until the connection ends. It must be drained.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Send posts content and waits for its acknowledgment.
func (c *Client) Send(ctx context.Context, content string) (event.AckPayload, error) {
	return c.SendPayload(ctx, event.SendPayload{Content: content})
}

// SendPayload posts an arbitrary message payload; the server decides whether it is valid.
func (c *Client) SendPayload(ctx context.Context, payload any) (event.AckPayload, error) {
	id := c.nextID.Add(1)
	ack := make(chan event.AckPayload, 1)

	c.mu.Lock()
	c.pending[id] = ack
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(event.Envelope{Event: event.Message, ID: &id, Data: payload}); err != nil {
		return event.AckPayload{}, err
	}

	select {
	case result := <-ack:
		return result, nil
	case <-ctx.Done():
		return event.AckPayload{}, ctx.Err()
	case <-c.done:
		return event.AckPayload{}, ErrClosed
	}
}

// Close says goodbye to the server and releases the socket.
func (c *Client) Close() error {
	_ = c.writeControl(websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.shutdown()
	return c.ws.Close()
}

func (c *Client) write(e event.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(e)
}

func (c *Client) writeControl(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteControl(websocket.CloseMessage, data, time.Now().Add(writeWait))
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) readLoop() {
	defer func() {
		c.shutdown()
		close(c.events)
	}()

	for {
		var in event.Inbound
		if err := c.ws.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("Read failed", "error", err)
			}
			return
		}

		if in.Event == event.Ack {
			c.resolve(in)
			continue
		}

		e, err := decodeEvent(in)
		if err != nil {
			c.log.Debug("Dropping undecodable event", "event", in.Event, "error", err)
			continue
		}
		select {
		case c.events <- e:
		case <-c.done:
			return
		}
	}
}

func (c *Client) resolve(in event.Inbound) {
	if in.ID == nil {
		return
	}
	var ack event.AckPayload
	if err := json.Unmarshal(in.Data, &ack); err != nil {
		c.log.Debug("Dropping undecodable ack", "error", err)
		return
	}
	c.mu.Lock()
	ch, ok := c.pending[*in.ID]
	c.mu.Unlock()
	if ok {
		ch <- ack
	}
}

func decodeEvent(in event.Inbound) (Event, error) {
	e := Event{Name: in.Event}
	var err error
	switch in.Event {
	case event.Message:
		e.Message = &event.MessagePayload{}
		err = json.Unmarshal(in.Data, e.Message)
	case event.UserLeft:
		e.UserLeft = &event.UserLeftPayload{}
		err = json.Unmarshal(in.Data, e.UserLeft)
	case event.Error:
		e.Error = &event.ErrorPayload{}
		err = json.Unmarshal(in.Data, e.Error)
	default:
		err = fmt.Errorf("unknown event %q", in.Event)
	}
	return e, err
}

func websocketURL(addr, projectID string) (string, error) {
	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("invalid server address %q: %w", addr, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"projectId": {projectID}}.Encode()
	return u.String(), nil
}
