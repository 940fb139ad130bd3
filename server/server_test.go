package server

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"synergy/auth"
	"synergy/channel"
	"synergy/client"
	"synergy/repositories"
	"synergy/runtime/workers"
	"synergy/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const (
	testPassword         = "Passw0rdStrong"
	testMaxContentLength = 2000
)

var testParams = auth.PasswordParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type testEnv struct {
	addr    string
	api     *client.API
	tokens  *auth.Tokens
	alice   client.Auth
	bob     client.Auth
	carol   client.Auth
	project client.Project
}

// newTestEnv starts a full server on a temporary badger and seeds
// alice (owner), bob (member) and carol (outsider) around one project.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	req := require.New(t)
	ctx := context.Background()

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromString("ERROR")
	users := repositories.NewUserRepository(db)
	projects := repositories.NewProjectRepository(db)
	messages := repositories.NewMessageRepository(db, log, nil)
	t.Cleanup(func() { _ = messages.Close() })

	tokens := auth.NewTokens("test-secret", "synergy", time.Hour)
	lifecycle := channel.NewLifecycle(channel.NewRegistry(), log, time.Second)
	guard := channel.NewGuard(projects)
	ch := channel.NewChannel(log, auth.NewAuthenticator(tokens, users), guard, messages, lifecycle, testMaxContentLength)

	srv := NewServer(log, Options{
		BufferSize:      64,
		WriteTimeout:    time.Second,
		PongTimeout:     10 * time.Second,
		MaxMessageSize:  FrameLimit(testMaxContentLength),
		ShutdownTimeout: time.Second,
	}, ch,
		services.NewAuthService(users, tokens, testParams),
		services.NewProjectService(projects),
		services.NewChatService(guard, messages),
		workers.NewHealthWorker(log, lifecycle, time.Second))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	env := &testEnv{addr: ts.URL, api: client.NewAPI(ts.URL, ts.Client()), tokens: tokens}
	env.alice, err = env.api.Register(ctx, "alice", "alice@synergy.io", testPassword)
	req.NoError(err)
	env.bob, err = env.api.Register(ctx, "bob", "bob@synergy.io", testPassword)
	req.NoError(err)
	env.carol, err = env.api.Register(ctx, "carol", "carol@synergy.io", testPassword)
	req.NoError(err)

	env.project, err = env.api.CreateProject(ctx, env.alice.Token, "Apollo", "moon landing")
	req.NoError(err)
	env.project, err = env.api.AddMember(ctx, env.alice.Token, env.project.ID, "Bob@Synergy.io")
	req.NoError(err)
	return env
}

func (e *testEnv) dial(t *testing.T, token, projectID string) (*client.Client, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := client.Dial(ctx, logs.GetLoggerFromString("ERROR"), e.addr, token, projectID)
	if err == nil {
		t.Cleanup(func() { _ = c.Close() })
	}
	return c, err
}

func (e *testEnv) mustDial(t *testing.T, token string) *client.Client {
	t.Helper()
	c, err := e.dial(t, token, e.project.ID)
	require.NoError(t, err)
	return c
}

func nextEvent(t *testing.T, c *client.Client) client.Event {
	t.Helper()
	select {
	case e, ok := <-c.Events():
		require.True(t, ok, "connection closed while waiting for an event")
		return e
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no event received")
	}
	return client.Event{}
}

func noEvent(t *testing.T, c *client.Client) {
	t.Helper()
	select {
	case e, ok := <-c.Events():
		if ok {
			require.Failf(t, "unexpected event", "%+v", e)
		}
	case <-time.After(150 * time.Millisecond):
	}
}

func sendCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}
