package server

import (
	"context"
	"testing"
	"time"

	"synergy/domain"
	"synergy/domain/event"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestConnection_State_Machine(t *testing.T) {
	req := require.New(t)
	conn := newConnection(nil, logs.GetLoggerFromString("ERROR"), Options{BufferSize: 1})

	req.Equal(domain.Connecting, conn.State())
	req.False(conn.transition(domain.Active), "cannot skip admission")
	req.True(conn.transition(domain.Authenticating))
	req.True(conn.transition(domain.Authorizing))
	req.True(conn.transition(domain.Admitted))
	req.True(conn.transition(domain.Active))
	req.True(conn.transition(domain.Sending))
	req.True(conn.transition(domain.Active))
	req.True(conn.transition(domain.Disconnected))
	req.False(conn.transition(domain.Disconnected))
	req.Equal(domain.Disconnected, conn.State())
}

func TestConnection_Consume_Is_Bounded(t *testing.T) {
	req := require.New(t)
	conn := newConnection(nil, logs.GetLoggerFromString("ERROR"), Options{BufferSize: 1})

	// Given a full queue
	req.NoError(conn.Consume(context.Background(), event.NewError("first")))

	// Then the next delivery waits no longer than its context
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req.ErrorIs(conn.Consume(ctx, event.NewError("second")), context.DeadlineExceeded)

	// And a closed connection refuses immediately
	conn.close()
	conn.close()
	req.ErrorIs(conn.Consume(context.Background(), event.NewError("third")), errConnectionClosed)
}
