// Package server exposes the chat over HTTP: the realtime WebSocket endpoint
// and the REST API used for accounts, projects and history backfill.
package server

import (
	"context"
	goerrors "errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"synergy/channel"
	"synergy/runtime/workers"
	"synergy/services"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/samber/lo"
)

// Options tunes the listener and the per-connection transport.
type Options struct {
	Addr            string
	BufferSize      int
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
	MaxMessageSize  int64
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

const (
	// escapedRuneSize is the widest JSON form of one rune: a \uXXXX surrogate pair.
	escapedRuneSize = 12
	frameOverhead   = 4 << 10
	unboundedFrame  = 1 << 20
)

// FrameLimit is the read limit of a WebSocket frame able to carry maxContentLength runes
// however the client escapes them. Zero content length means no content limit.
func FrameLimit(maxContentLength int) int64 {
	if maxContentLength <= 0 {
		return unboundedFrame
	}
	return int64(maxContentLength)*escapedRuneSize + frameOverhead
}

// HealthReporter gives the latest process sample.
type HealthReporter interface {
	Snapshot() workers.Health
}

type Server struct {
	log            *slog.Logger
	opts           Options
	router         *httprouter.Router
	upgrader       websocket.Upgrader
	channel        *channel.Channel
	authService    services.IAuthService
	projectService services.IProjectService
	chatService    services.IChatService
	health         HealthReporter
	now            func() time.Time
}

func NewServer(log *slog.Logger, opts Options, ch *channel.Channel,
	authService services.IAuthService, projectService services.IProjectService,
	chatService services.IChatService, health HealthReporter) *Server {
	s := &Server{
		log:            log,
		opts:           opts,
		router:         httprouter.New(),
		channel:        ch,
		authService:    authService,
		projectService: projectService,
		chatService:    chatService,
		health:         health,
		now:            time.Now,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/ws", s.handleWebSocket)

	s.router.GET("/api/health", s.handleHealth)

	s.router.POST("/api/auth/register", s.handleRegister)
	s.router.POST("/api/auth/login", s.handleLogin)
	s.router.GET("/api/users/me", s.authenticated(s.handleMe))

	s.router.POST("/api/projects", s.authenticated(s.handleCreateProject))
	s.router.GET("/api/projects/:projectId", s.authenticated(s.handleGetProject))
	s.router.POST("/api/projects/:projectId/members", s.authenticated(s.handleAddMember))

	s.router.GET("/api/messages/projects/:projectId/messages", s.authenticated(s.handleHistory))

	s.router.NotFound = http.HandlerFunc(s.handleNotFound)
	s.router.MethodNotAllowed = http.HandlerFunc(s.handleNotFound)
	s.router.PanicHandler = s.handlePanic
}

// Handler is the root HTTP handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully.
// Live WebSocket connections are closed through their request context.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", s.opts.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if goerrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// checkOrigin accepts any origin when none is configured.
// Non-browser clients send no Origin header and are always accepted.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	return lo.Contains(s.opts.AllowedOrigins, origin)
}
