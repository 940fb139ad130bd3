package channel

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_JoinLeave(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Join("P1", "c1", &recordingSink{})
	registry.Join("P1", "c2", &recordingSink{})
	registry.Join("P2", "c3", &recordingSink{})

	req.Equal(2, registry.Size("P1"))
	req.Equal(1, registry.Size("P2"))
	req.Equal(3, registry.Connections())
	req.Len(registry.Sinks("P1"), 2)

	req.True(registry.Leave("P1", "c1"))
	req.False(registry.Leave("P1", "c1"), "second leave is a no-op")
	req.False(registry.Leave("unknown", "c1"))

	req.True(registry.Leave("P2", "c3"))
	req.Equal(0, registry.Size("P2"))
	req.Empty(registry.Sinks("P2"))
	req.Equal(1, registry.Connections())
}

func TestRegistry_Snapshot_Is_Detached(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Join("P1", "c1", &recordingSink{})

	// Given a snapshot taken before a new member joins
	sinks := registry.Sinks("P1")
	registry.Join("P1", "c2", &recordingSink{})

	// Then the snapshot is not affected
	req.Len(sinks, 1)
	req.Len(registry.Sinks("P1"), 2)
}

func TestRegistry_Concurrent_Access(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			registry.Join("P1", id, &recordingSink{})
			_ = registry.Sinks("P1")
			if i%2 == 0 {
				registry.Leave("P1", id)
			}
		}(i)
	}
	wg.Wait()

	req.Equal(25, registry.Size("P1"))
}
