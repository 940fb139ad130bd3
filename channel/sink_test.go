package channel

import (
	"context"
	"sync"

	"synergy/domain/event"
)

// recordingSink keeps every event it accepts.
type recordingSink struct {
	mu     sync.Mutex
	events []event.Envelope
	err    error
	block  bool
}

func (s *recordingSink) Consume(ctx context.Context, e event.Envelope) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) received() []event.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Envelope(nil), s.events...)
}

func (s *recordingSink) names() []string {
	var names []string
	for _, e := range s.received() {
		names = append(names, e.Event)
	}
	return names
}
