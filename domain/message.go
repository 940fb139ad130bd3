// Package domain contains core concepts of the chat system.
// This file defines chat Message records and their ordering rule.
// Messages are immutable once persisted.
package domain

import (
	"time"
)

// Message is a persisted chat message of one project conversation.
// Username is copied from the author identity at write time and never re-resolved.
type Message struct {
	ID        string
	ProjectID string
	UserID    string
	Username  string
	Content   string
	Timestamp time.Time
	// Sequence breaks ties between messages sharing the same timestamp.
	Sequence uint64
}

// Before reports whether m was persisted before other.
func (m Message) Before(other Message) bool {
	if !m.Timestamp.Equal(other.Timestamp) {
		return m.Timestamp.Before(other.Timestamp)
	}
	return m.Sequence < other.Sequence
}
