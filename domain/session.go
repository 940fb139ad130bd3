package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the position of a live connection in its lifecycle.
type SessionState int

const (
	Connecting SessionState = iota
	Authenticating
	Authorizing
	Admitted
	Active
	Sending
	Disconnected
)

func (s SessionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Authenticating:
		return "authenticating"
	case Authorizing:
		return "authorizing"
	case Admitted:
		return "admitted"
	case Active:
		return "active"
	case Sending:
		return "sending"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// CanTransition lists the allowed moves of the connection state machine.
// Any state may fall to Disconnected.
func (s SessionState) CanTransition(next SessionState) bool {
	if next == Disconnected {
		return s != Disconnected
	}
	switch s {
	case Connecting:
		return next == Authenticating
	case Authenticating:
		return next == Authorizing
	case Authorizing:
		return next == Admitted
	case Admitted:
		return next == Active
	case Active:
		return next == Sending
	case Sending:
		return next == Active
	default:
		return false
	}
}

// Session is the ephemeral server-side state of one admitted connection.
// It is bound to a single project for its whole lifetime.
type Session struct {
	ConnectionID string
	Identity     Identity
	ProjectID    string
	OpenedAt     time.Time
}

func NewSession(identity Identity, projectID string, openedAt time.Time) Session {
	return Session{
		ConnectionID: uuid.NewString(),
		Identity:     identity,
		ProjectID:    projectID,
		OpenedAt:     openedAt,
	}
}
