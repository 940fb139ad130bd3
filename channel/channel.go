// Package channel implements the realtime project conversation: admission of a
// connection, persisted sends with acknowledgment, and fan-out to the project group.
package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"synergy/auth"
	"synergy/contract"
	"synergy/domain"
	"synergy/domain/event"
	"synergy/errors"
	"synergy/repositories"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Censor masks forbidden words. Implemented by moderation.Filter.
type Censor interface {
	Censor(content string) string
}

type Option func(*Channel)

// WithCensor plugs content moderation in front of persistence.
func WithCensor(censor Censor) Option {
	return func(c *Channel) { c.censor = censor }
}

// WithClock replaces the time source used to stamp sessions.
func WithClock(now func() time.Time) Option {
	return func(c *Channel) { c.now = now }
}

type Channel struct {
	log              *slog.Logger
	authenticator    auth.IAuthenticator
	guard            *Guard
	messages         repositories.IMessageRepository
	lifecycle        *Lifecycle
	censor           Censor
	maxContentLength int
	now              func() time.Time
}

func NewChannel(log *slog.Logger, authenticator auth.IAuthenticator, guard *Guard,
	messages repositories.IMessageRepository, lifecycle *Lifecycle,
	maxContentLength int, opts ...Option) *Channel {
	c := &Channel{
		log:              log,
		authenticator:    authenticator,
		guard:            guard,
		messages:         messages,
		lifecycle:        lifecycle,
		maxContentLength: maxContentLength,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticate is the first admission step.
func (c *Channel) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	return c.authenticator.Authenticate(ctx, token)
}

// Authorize is the second admission step; on success the session is bound to projectID for good.
// Membership is checked here only, never again per message.
func (c *Channel) Authorize(ctx context.Context, identity domain.Identity, projectID string) (domain.Session, error) {
	project, err := c.guard.Authorize(ctx, identity, projectID)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.NewSession(identity, project.ID, c.now().UTC()), nil
}

// Admit runs both admission steps.
func (c *Channel) Admit(ctx context.Context, token, projectID string) (domain.Session, error) {
	identity, err := c.Authenticate(ctx, token)
	if err != nil {
		return domain.Session{}, err
	}
	return c.Authorize(ctx, identity, projectID)
}

// Join registers an admitted session in its project group and sends it the connected event.
func (c *Channel) Join(ctx context.Context, session domain.Session, sink contract.EventSink) error {
	return c.lifecycle.Join(ctx, session, sink)
}

// Leave unregisters the session and notifies the remaining members.
// It runs even when ctx is already canceled by the disconnect.
func (c *Channel) Leave(ctx context.Context, session domain.Session) {
	c.lifecycle.Leave(context.WithoutCancel(ctx), session)
}

// Send validates the raw payload, persists the message attributed to the session identity,
// then broadcasts the persisted record to the whole group, sender included.
// Nothing is broadcast when persistence fails.
func (c *Channel) Send(ctx context.Context, session domain.Session, data json.RawMessage) SendResult {
	payload, err := c.decode(data)
	if err != nil {
		c.log.Debug("Rejected message payload", "user_id", session.Identity.ID, "error", err)
		return Failed(err)
	}
	if err = ctx.Err(); err != nil {
		return Failed(err)
	}

	content := payload.Content
	if c.censor != nil {
		content = c.censor.Censor(content)
	}

	stored, err := c.messages.StoreMessage(domain.Message{
		ProjectID: session.ProjectID,
		UserID:    session.Identity.ID,
		Username:  session.Identity.Name,
		Content:   content,
	})
	if err != nil {
		c.log.Error("Failed to persist message",
			"project_id", session.ProjectID,
			"user_id", session.Identity.ID,
			"error", err)
		return Failed(fmt.Errorf("%w: %v", errors.ErrSendFailed, err))
	}

	// Past persistence the broadcast always happens, even if the sender is gone
	delivered := c.lifecycle.Broadcast(context.WithoutCancel(ctx), session.ProjectID, event.NewMessage(stored))
	c.log.Debug("Message broadcast", "message_id", stored.ID, "project_id", session.ProjectID, "delivered", delivered)
	return Succeeded(stored.ID)
}

// decode accepts exactly {"content": string}; any other field is rejected,
// so a client can never assert an author.
func (c *Channel) decode(data json.RawMessage) (event.SendPayload, error) {
	var payload event.SendPayload
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return payload, errors.ErrInvalidPayload
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		return payload, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	if decoder.More() {
		return payload, fmt.Errorf("%w: trailing data", errors.ErrInvalidPayload)
	}

	if err := validate.Var(strings.TrimSpace(payload.Content), "required"); err != nil {
		return payload, errors.ErrEmptyContent
	}
	if c.maxContentLength > 0 {
		if err := validate.Var(payload.Content, fmt.Sprintf("max=%d", c.maxContentLength)); err != nil {
			return payload, errors.ErrContentTooLong
		}
	}
	return payload, nil
}
