package server

import (
	"context"
	"net/http"
	"strings"

	"synergy/channel"
	"synergy/domain"
	"synergy/domain/event"
	"synergy/errors"

	"github.com/julienschmidt/httprouter"
)

// handleWebSocket upgrades first, then admits: a refused client still gets
// a readable error event before the close.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("Failed to upgrade WebSocket", "error", err)
		return
	}
	ctx := r.Context()
	conn := newConnection(ws, s.log, s.opts)

	conn.transition(domain.Authenticating)
	identity, err := s.channel.Authenticate(ctx, credential(r))
	if err != nil {
		s.refuse(conn, err)
		return
	}

	conn.transition(domain.Authorizing)
	session, err := s.channel.Authorize(ctx, identity, r.URL.Query().Get("projectId"))
	if err != nil {
		s.refuse(conn, err)
		return
	}

	conn.transition(domain.Admitted)
	go conn.writePump()
	go func() {
		select {
		case <-ctx.Done():
			conn.close()
		case <-conn.done:
		}
	}()

	if err = s.channel.Join(ctx, session, conn); err != nil {
		s.log.Warn("Failed to greet connection", "connection_id", session.ConnectionID, "error", err)
		s.disconnect(ctx, conn, session)
		return
	}
	conn.transition(domain.Active)

	conn.readFrames(s.opts.MaxMessageSize, func(in event.Inbound) {
		s.handleFrame(ctx, conn, session, in)
	})
	s.disconnect(ctx, conn, session)
}

// handleFrame processes one inbound frame; frames of a connection never overlap,
// so acknowledgments follow the order of the sends.
func (s *Server) handleFrame(ctx context.Context, conn *connection, session domain.Session, in event.Inbound) {
	var result channel.SendResult
	switch in.Event {
	case event.Message:
		conn.transition(domain.Sending)
		result = s.channel.Send(ctx, session, in.Data)
		conn.transition(domain.Active)
	default:
		s.log.Debug("Unknown event", "event", in.Event, "connection_id", session.ConnectionID)
		if in.ID == nil {
			return
		}
		result = channel.Failed(errors.ErrUnknownEvent)
	}

	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.WriteTimeout)
	defer cancel()
	if err := conn.Consume(ackCtx, event.NewAck(in.ID, result.Ack())); err != nil {
		s.log.Debug("Failed to queue ack", "connection_id", session.ConnectionID, "error", err)
	}
}

func (s *Server) refuse(conn *connection, err error) {
	message := channel.AdmissionMessage(err)
	if message == errors.ErrConnectionFailed.Error() {
		s.log.Error("Connection admission failed", "error", err)
	} else {
		s.log.Info("Connection refused", "reason", message)
	}
	conn.reject(message)
}

func (s *Server) disconnect(ctx context.Context, conn *connection, session domain.Session) {
	conn.transition(domain.Disconnected)
	s.channel.Leave(ctx, session)
	conn.close()
}

// credential finds the token in the query, the Authorization header or x-auth-token.
func credential(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	return headerCredential(r)
}

func headerCredential(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get("x-auth-token")); token != "" {
		return token
	}
	return strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
}
