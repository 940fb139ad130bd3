package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"synergy/domain"
	"synergy/domain/event"
	"synergy/errors"
	"synergy/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type wordCensor struct{}

func (wordCensor) Censor(content string) string {
	return strings.ReplaceAll(content, "darn", "****")
}

type fixture struct {
	channel       *Channel
	lifecycle     *Lifecycle
	authenticator *mocks.MockIAuthenticator
	projects      *mocks.MockIProjectRepository
	messages      *mocks.MockIMessageRepository
}

func newFixture(t *testing.T, opts ...Option) fixture {
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromString("ERROR")
	f := fixture{
		lifecycle:     NewLifecycle(NewRegistry(), log, 50*time.Millisecond),
		authenticator: mocks.NewMockIAuthenticator(ctrl),
		projects:      mocks.NewMockIProjectRepository(ctrl),
		messages:      mocks.NewMockIMessageRepository(ctrl),
	}
	f.channel = NewChannel(log, f.authenticator, NewGuard(f.projects), f.messages, f.lifecycle, 20, opts...)
	return f
}

var (
	alice   = domain.Identity{ID: "alice-id", Name: "alice", Email: "alice@x.com"}
	bob     = domain.Identity{ID: "bob-id", Name: "bob", Email: "bob@x.com"}
	eve     = domain.Identity{ID: "eve-id", Name: "eve", Email: "eve@x.com"}
	project = domain.Project{ID: "P1", OwnerID: alice.ID, OwnerEmail: alice.Email, Members: []string{bob.Email}}
)

func TestChannel_Admit(t *testing.T) {
	ctx := context.Background()

	t.Run("should bind the session to the identity and the project", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		f.authenticator.EXPECT().Authenticate(ctx, "tok").Return(bob, nil)
		f.projects.EXPECT().GetProject("P1").Return(project, nil)

		session, err := f.channel.Admit(ctx, "tok", "P1")

		req.NoError(err)
		req.Equal(bob, session.Identity)
		req.Equal("P1", session.ProjectID)
		req.NotEmpty(session.ConnectionID)
	})

	t.Run("should stop at authentication", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		f.authenticator.EXPECT().Authenticate(ctx, "").Return(domain.Identity{}, errors.ErrAuthenticationRequired)
		f.projects.EXPECT().GetProject(gomock.Any()).Times(0)

		_, err := f.channel.Admit(ctx, "", "P1")

		req.ErrorIs(err, errors.ErrAuthenticationRequired)
		req.Equal("Authentication required", AdmissionMessage(err))
	})

	t.Run("should refuse a non member", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		f.authenticator.EXPECT().Authenticate(ctx, "tok").Return(eve, nil)
		f.projects.EXPECT().GetProject("P1").Return(project, nil)

		_, err := f.channel.Admit(ctx, "tok", "P1")

		req.ErrorIs(err, errors.ErrNotAuthorized)
		req.Equal("Not authorized to access this project chat", AdmissionMessage(err))
	})

	t.Run("should hide unexpected failures", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		f.authenticator.EXPECT().Authenticate(ctx, "tok").Return(domain.Identity{}, fmt.Errorf("identity lookup failed: io"))

		_, err := f.channel.Admit(ctx, "tok", "P1")

		req.Error(err)
		req.Equal("Connection failed", AdmissionMessage(err))
	})
}

func TestChannel_Send_Persists_Then_Broadcasts_To_Everyone(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	aliceSession := domain.NewSession(alice, "P1", time.Now())
	bobSession := domain.NewSession(bob, "P1", time.Now())
	aliceSink, bobSink := &recordingSink{}, &recordingSink{}
	req.NoError(f.channel.Join(ctx, aliceSession, aliceSink))
	req.NoError(f.channel.Join(ctx, bobSession, bobSink))

	at := time.Date(2026, 3, 4, 9, 20, 30, 0, time.UTC)
	f.messages.EXPECT().
		StoreMessage(domain.Message{ProjectID: "P1", UserID: "alice-id", Username: "alice", Content: "hello"}).
		DoAndReturn(func(m domain.Message) (domain.Message, error) {
			// Nobody has seen the message before it is stored
			req.Len(bobSink.received(), 1)
			m.ID, m.Timestamp = "m1", at
			return m, nil
		})

	result := f.channel.Send(ctx, aliceSession, json.RawMessage(`{"content":"hello"}`))

	req.True(result.OK())
	req.Equal(event.AckPayload{Success: true, MessageID: "m1"}, result.Ack())
	for _, sink := range []*recordingSink{aliceSink, bobSink} {
		received := sink.received()
		req.Len(received, 2)
		req.Equal(event.Message, received[1].Event)
		payload := received[1].Data.(event.MessagePayload)
		req.Equal("m1", payload.ID)
		req.Equal("alice-id", payload.UserID)
		req.Equal("2026-03-04T09:20:30.000Z", payload.Timestamp)
	}
}

func TestChannel_Send_Ignores_Asserted_Author(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.messages.EXPECT().StoreMessage(gomock.Any()).Times(0)

	session := domain.NewSession(bob, "P1", time.Now())
	result := f.channel.Send(context.Background(), session,
		json.RawMessage(`{"content":"hi","userId":"alice-id","username":"alice"}`))

	req.False(result.OK())
	req.ErrorIs(result.Err, errors.ErrInvalidPayload)
	req.False(result.Ack().Success)
}

func TestChannel_Send_Rejects_Bad_Content(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		err     error
	}{
		{name: "blank", payload: `{"content":"   "}`, err: errors.ErrEmptyContent},
		{name: "missing", payload: `{}`, err: errors.ErrEmptyContent},
		{name: "too long", payload: `{"content":"` + strings.Repeat("a", 21) + `"}`, err: errors.ErrContentTooLong},
		{name: "not a string", payload: `{"content":42}`, err: errors.ErrInvalidPayload},
		{name: "null", payload: `null`, err: errors.ErrInvalidPayload},
		{name: "trailing", payload: `{"content":"a"}{"content":"b"}`, err: errors.ErrInvalidPayload},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			f := newFixture(t)
			f.messages.EXPECT().StoreMessage(gomock.Any()).Times(0)

			result := f.channel.Send(context.Background(), domain.NewSession(bob, "P1", time.Now()), json.RawMessage(tc.payload))

			req.ErrorIs(result.Err, tc.err)
			req.Equal(tc.err.Error(), result.Ack().Error)
		})
	}
}

func TestChannel_Send_Storage_Failure_Broadcasts_Nothing(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	session := domain.NewSession(bob, "P1", time.Now())
	sink := &recordingSink{}
	req.NoError(f.channel.Join(ctx, session, sink))
	f.messages.EXPECT().StoreMessage(gomock.Any()).Return(domain.Message{}, fmt.Errorf("badger: closed"))

	result := f.channel.Send(ctx, session, json.RawMessage(`{"content":"hello"}`))

	req.ErrorIs(result.Err, errors.ErrSendFailed)
	req.Equal(event.AckPayload{Success: false, Error: "failed to save message"}, result.Ack())
	req.Equal([]string{event.Connected}, sink.names())
}

func TestChannel_Send_Applies_Censor(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, WithCensor(wordCensor{}))
	f.messages.EXPECT().
		StoreMessage(gomock.Any()).
		DoAndReturn(func(m domain.Message) (domain.Message, error) {
			req.Equal("oh **** it", m.Content)
			m.ID = "m1"
			return m, nil
		})

	result := f.channel.Send(context.Background(), domain.NewSession(bob, "P1", time.Now()), json.RawMessage(`{"content":"oh darn it"}`))

	req.True(result.OK())
}

func TestChannel_Send_After_Disconnect_Is_Dropped(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.messages.EXPECT().StoreMessage(gomock.Any()).Times(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := f.channel.Send(ctx, domain.NewSession(bob, "P1", time.Now()), json.RawMessage(`{"content":"late"}`))

	req.ErrorIs(result.Err, context.Canceled)
}

func TestChannel_Leave_Survives_Canceled_Context(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	aliceSession := domain.NewSession(alice, "P1", time.Now())
	bobSession := domain.NewSession(bob, "P1", time.Now())
	aliceSink := &recordingSink{}
	req.NoError(f.channel.Join(context.Background(), aliceSession, aliceSink))
	req.NoError(f.channel.Join(context.Background(), bobSession, &recordingSink{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.channel.Leave(ctx, bobSession)

	req.Equal([]string{event.Connected, event.UserLeft}, aliceSink.names())
	req.Equal(1, f.lifecycle.Connections())
}
