// Package projection builds the local timeline of a project conversation on the client side.
// Handles ordering and deduplication between the history backfill and live broadcasts.
// Does not emit events or interact with the terminal directly.
package projection

import (
	"sort"
	"sync"

	"synergy/domain/event"

	"github.com/samber/lo"
)

// Timeline holds the messages of one project, oldest first, each id once.
// A message may arrive both in the backfill and live when the two overlap.
type Timeline struct {
	ProjectID string

	mu       sync.Mutex
	messages []event.MessagePayload
	seen     map[string]struct{}
}

func NewTimeline(projectID string) *Timeline {
	return &Timeline{ProjectID: projectID, seen: make(map[string]struct{})}
}

// Add merges one message and reports whether it was new to the timeline.
func (t *Timeline) Add(m event.MessagePayload) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.add(m)
}

// Backfill merges a history page and returns the messages that were not known yet.
func (t *Timeline) Backfill(history []event.MessagePayload) []event.MessagePayload {
	t.mu.Lock()
	defer t.mu.Unlock()
	return lo.Filter(history, func(m event.MessagePayload, _ int) bool {
		return t.add(m)
	})
}

// Messages returns a copy of the timeline.
func (t *Timeline) Messages() []event.MessagePayload {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]event.MessagePayload(nil), t.messages...)
}

func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

func (t *Timeline) add(m event.MessagePayload) bool {
	if m.ProjectID != t.ProjectID {
		return false
	}
	if _, ok := t.seen[m.ID]; ok {
		return false
	}
	t.seen[m.ID] = struct{}{}

	// Timestamps share one fixed-width UTC layout, so they sort as strings.
	// Equal timestamps keep arrival order.
	i := sort.Search(len(t.messages), func(i int) bool {
		return t.messages[i].Timestamp > m.Timestamp
	})
	t.messages = append(t.messages, event.MessagePayload{})
	copy(t.messages[i+1:], t.messages[i:])
	t.messages[i] = m
	return true
}
