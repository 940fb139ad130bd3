package channel

import (
	"context"
	"log/slog"
	"time"

	"synergy/contract"
	"synergy/domain"
	"synergy/domain/event"
)

// Lifecycle owns the group registry: it is the only component adding or removing
// connections, and announces departures to the remaining members.
type Lifecycle struct {
	registry        contract.IRegistry
	log             *slog.Logger
	deliveryTimeout time.Duration
	now             func() time.Time
}

func NewLifecycle(registry contract.IRegistry, log *slog.Logger, deliveryTimeout time.Duration) *Lifecycle {
	return &Lifecycle{registry: registry, log: log, deliveryTimeout: deliveryTimeout, now: time.Now}
}

// Join echoes the identity to the connection, then admits it to its project group.
// The connected event is queued before the sink is visible to broadcasts, so it is always first.
func (l *Lifecycle) Join(ctx context.Context, session domain.Session, sink contract.EventSink) error {
	if err := l.deliver(ctx, sink, event.NewConnected(session)); err != nil {
		return err
	}
	l.registry.Join(session.ProjectID, session.ConnectionID, sink)
	l.log.Info("Connection admitted",
		"project_id", session.ProjectID,
		"user_id", session.Identity.ID,
		"connection_id", session.ConnectionID,
		"group_size", l.registry.Size(session.ProjectID))
	return nil
}

// Leave removes the connection and broadcasts user_left to the peers still connected.
// Calling it twice for the same session is harmless.
func (l *Lifecycle) Leave(ctx context.Context, session domain.Session) {
	if !l.registry.Leave(session.ProjectID, session.ConnectionID) {
		return
	}
	l.log.Info("Connection left",
		"project_id", session.ProjectID,
		"user_id", session.Identity.ID,
		"connection_id", session.ConnectionID)
	l.Broadcast(ctx, session.ProjectID, event.NewUserLeft(session.Identity, l.now()))
}

// Broadcast delivers e to every connection of the project group and returns how many accepted it.
// A slow or closed connection never blocks the others longer than the delivery timeout.
func (l *Lifecycle) Broadcast(ctx context.Context, projectID string, e event.Envelope) int {
	delivered := 0
	for _, sink := range l.registry.Sinks(projectID) {
		if err := l.deliver(ctx, sink, e); err != nil {
			l.log.Warn("Failed to deliver event", "event", e.Event, "project_id", projectID, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// Connections counts live connections across all projects.
func (l *Lifecycle) Connections() int {
	return l.registry.Connections()
}

func (l *Lifecycle) deliver(ctx context.Context, sink contract.EventSink, e event.Envelope) error {
	deliveryCtx, cancel := context.WithTimeout(ctx, l.deliveryTimeout)
	defer cancel()
	return sink.Consume(deliveryCtx, e)
}
