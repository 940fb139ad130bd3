package channel

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"synergy/contract"
	"synergy/domain"
	"synergy/domain/event"
	"synergy/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestLifecycle() *Lifecycle {
	return NewLifecycle(NewRegistry(), logs.GetLoggerFromString("ERROR"), 50*time.Millisecond)
}

func TestLifecycle_Join_Sends_Connected_To_Newcomer_Only(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	lifecycle := newTestLifecycle()

	alice := domain.NewSession(domain.Identity{ID: "alice-id", Name: "alice"}, "P1", time.Now())
	bob := domain.NewSession(domain.Identity{ID: "bob-id", Name: "bob"}, "P1", time.Now())
	aliceSink, bobSink := &recordingSink{}, &recordingSink{}

	req.NoError(lifecycle.Join(ctx, alice, aliceSink))
	req.NoError(lifecycle.Join(ctx, bob, bobSink))

	req.Equal([]string{event.Connected}, aliceSink.names())
	req.Equal([]string{event.Connected}, bobSink.names())

	payload, ok := bobSink.received()[0].Data.(event.ConnectedPayload)
	req.True(ok)
	req.Equal("bob-id", payload.UserID)
	req.Equal("bob", payload.Username)
	req.Equal("P1", payload.ProjectID)
	req.Equal(2, lifecycle.Connections())
}

func TestLifecycle_Leave_Notifies_Remaining_Members(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	lifecycle := newTestLifecycle()

	alice := domain.NewSession(domain.Identity{ID: "alice-id", Name: "alice"}, "P1", time.Now())
	bob := domain.NewSession(domain.Identity{ID: "bob-id", Name: "bob"}, "P1", time.Now())
	carol := domain.NewSession(domain.Identity{ID: "carol-id", Name: "carol"}, "P2", time.Now())
	aliceSink, bobSink, carolSink := &recordingSink{}, &recordingSink{}, &recordingSink{}
	req.NoError(lifecycle.Join(ctx, alice, aliceSink))
	req.NoError(lifecycle.Join(ctx, bob, bobSink))
	req.NoError(lifecycle.Join(ctx, carol, carolSink))

	// When bob leaves twice
	lifecycle.Leave(ctx, bob)
	lifecycle.Leave(ctx, bob)

	// Then alice is told once, bob and the other project never
	req.Equal([]string{event.Connected, event.UserLeft}, aliceSink.names())
	req.Equal([]string{event.Connected}, bobSink.names())
	req.Equal([]string{event.Connected}, carolSink.names())

	left, ok := aliceSink.received()[1].Data.(event.UserLeftPayload)
	req.True(ok)
	req.Equal("bob-id", left.UserID)
	req.Equal("bob", left.Username)
	req.Equal(2, lifecycle.Connections())
}

func TestLifecycle_Broadcast_Skips_Failing_Sinks(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	lifecycle := newTestLifecycle()

	healthy := &recordingSink{}
	broken := &recordingSink{err: fmt.Errorf("connection closed")}
	stuck := &recordingSink{block: true}
	lifecycle.registry.Join("P1", "c1", healthy)
	lifecycle.registry.Join("P1", "c2", broken)
	lifecycle.registry.Join("P1", "c3", stuck)

	start := time.Now()
	delivered := lifecycle.Broadcast(ctx, "P1", event.NewError("ping"))

	req.Equal(1, delivered)
	req.Len(healthy.received(), 1)
	req.Less(time.Since(start), time.Second, "a stuck sink is bounded by the delivery timeout")
}

func TestLifecycle_Leave_Twice_Broadcasts_Once(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	peer := mocks.NewMockEventSink(ctrl)
	lifecycle := NewLifecycle(registry, logs.GetLoggerFromString("ERROR"), 50*time.Millisecond)
	session := domain.NewSession(domain.Identity{ID: "alice-id", Name: "alice"}, "P1", time.Now())

	// Given a connection that is removed once, then already gone
	gomock.InOrder(
		registry.EXPECT().Leave("P1", session.ConnectionID).Return(true),
		registry.EXPECT().Sinks("P1").Return([]contract.EventSink{peer}),
		registry.EXPECT().Leave("P1", session.ConnectionID).Return(false),
	)

	// Then user_left reaches the peer exactly once
	peer.EXPECT().Consume(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e event.Envelope) error {
		req.Equal(event.UserLeft, e.Event)
		return nil
	}).Times(1)

	lifecycle.Leave(context.Background(), session)
	lifecycle.Leave(context.Background(), session)
}

func TestLifecycle_Connected_Comes_First_Under_Concurrent_Broadcasts(t *testing.T) {
	req := require.New(t)
	lifecycle := newTestLifecycle()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Given broadcasts running on the project group
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				lifecycle.Broadcast(ctx, "P1", event.NewError("noise"))
			}
		}()
	}

	// When connections keep joining
	const joins = 1000
	sinks := make([]*recordingSink, joins)
	for i := range sinks {
		sinks[i] = &recordingSink{}
		session := domain.NewSession(domain.Identity{ID: fmt.Sprintf("u%d", i)}, "P1", time.Now())
		req.NoError(lifecycle.Join(context.Background(), session, sinks[i]))
	}
	cancel()
	wg.Wait()

	// Then every newcomer saw its connected event before anything else
	for i, sink := range sinks {
		names := sink.names()
		req.NotEmpty(names, "join %d", i)
		req.Equal(event.Connected, names[0], "join %d", i)
	}
}

func TestLifecycle_Join_Failure_Keeps_Registry_Untouched(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	lifecycle := NewLifecycle(registry, logs.GetLoggerFromString("ERROR"), 50*time.Millisecond)
	session := domain.NewSession(domain.Identity{ID: "alice-id"}, "P1", time.Now())

	// Given a connection that cannot take the connected event, the registry is never called
	err := lifecycle.Join(context.Background(), session, &recordingSink{err: fmt.Errorf("connection closed")})

	req.Error(err)
}
