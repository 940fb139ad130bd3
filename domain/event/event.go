// Package event defines the frames exchanged on the realtime channel.
// Every frame is a JSON envelope {"event": name, "id": correlation, "data": payload}.
package event

import (
	"encoding/json"
	"time"

	"synergy/domain"
)

const (
	Connected = "connected"
	Error     = "error"
	Message   = "message"
	Ack       = "ack"
	UserLeft  = "user_left"
)

// TimestampLayout renders instants as ISO-8601 UTC with milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Envelope is an outbound frame.
type Envelope struct {
	Event string  `json:"event"`
	ID    *uint64 `json:"id,omitempty"`
	Data  any     `json:"data"`
}

// Inbound is a frame as read from the wire; Data is decoded by the handler of Event.
type Inbound struct {
	Event string          `json:"event"`
	ID    *uint64         `json:"id,omitempty"`
	Data  json.RawMessage `json:"data"`
}

type ConnectedPayload struct {
	Message   string `json:"message"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	ProjectID string `json:"projectId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// AckPayload answers one send of the sender only.
type AckPayload struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// MessagePayload is the serialized Chat Message, used both for broadcast and backfill.
type MessagePayload struct {
	ID        string `json:"_id"`
	ProjectID string `json:"projectId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type UserLeftPayload struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

// SendPayload is the only accepted shape of a client "message" frame.
type SendPayload struct {
	Content string `json:"content"`
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func NewMessagePayload(m domain.Message) MessagePayload {
	return MessagePayload{
		ID:        m.ID,
		ProjectID: m.ProjectID,
		UserID:    m.UserID,
		Username:  m.Username,
		Content:   m.Content,
		Timestamp: FormatTimestamp(m.Timestamp),
	}
}

func NewConnected(s domain.Session) Envelope {
	return Envelope{Event: Connected, Data: ConnectedPayload{
		Message:   "Successfully connected to chat",
		UserID:    s.Identity.ID,
		Username:  s.Identity.Name,
		ProjectID: s.ProjectID,
	}}
}

func NewError(message string) Envelope {
	return Envelope{Event: Error, Data: ErrorPayload{Message: message}}
}

func NewMessage(m domain.Message) Envelope {
	return Envelope{Event: Message, Data: NewMessagePayload(m)}
}

func NewUserLeft(identity domain.Identity, at time.Time) Envelope {
	return Envelope{Event: UserLeft, Data: UserLeftPayload{
		UserID:    identity.ID,
		Username:  identity.Name,
		Timestamp: FormatTimestamp(at),
	}}
}

func NewAck(id *uint64, ack AckPayload) Envelope {
	return Envelope{Event: Ack, ID: id, Data: ack}
}
