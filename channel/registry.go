package channel

import (
	"sync"

	"synergy/contract"
)

type group map[string]contract.EventSink

// Registry maps a project id to the live connections admitted to its conversation.
// Join and Leave are its only mutators; broadcasts read snapshots.
type Registry struct {
	mu     sync.RWMutex
	groups map[string]group
}

func NewRegistry() *Registry {
	return &Registry{groups: make(map[string]group)}
}

// Join adds a connection to the project group, creating the group on the fly.
func (r *Registry) Join(projectID, connectionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[projectID]
	if !ok {
		g = make(group)
		r.groups[projectID] = g
	}
	g[connectionID] = sink
}

// Leave removes a connection and drops empty groups.
// It reports whether the connection was present.
func (r *Registry) Leave(projectID, connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[projectID]
	if !ok {
		return false
	}
	if _, ok = g[connectionID]; !ok {
		return false
	}
	delete(g, connectionID)
	if len(g) == 0 {
		delete(r.groups, projectID)
	}
	return true
}

// Sinks returns a snapshot of the sinks of a project group.
func (r *Registry) Sinks(projectID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g := r.groups[projectID]
	sinks := make([]contract.EventSink, 0, len(g))
	for _, sink := range g {
		sinks = append(sinks, sink)
	}
	return sinks
}

// Size returns the number of connections of a project group.
func (r *Registry) Size(projectID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[projectID])
}

// Connections returns the number of connections across every group.
func (r *Registry) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, g := range r.groups {
		total += len(g)
	}
	return total
}
