package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"synergy/auth"
	"synergy/channel"
	"synergy/moderation"
	"synergy/repositories"
	"synergy/runtime/workers"
	"synergy/server"
	"synergy/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the chat server and blocks until SIGINT or SIGTERM.
// Returning instead of exiting lets every defer (badger first) run.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	userRepository := repositories.NewUserRepository(db)
	projectRepository := repositories.NewProjectRepository(db)
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	defer func() { _ = messageRepository.Close() }()

	// 3. Realtime channel
	tokens := auth.NewTokens(config.JWTSecret, config.JWTIssuer, config.AuthTokenDuration)
	authenticator := auth.NewAuthenticator(tokens, userRepository)
	guard := channel.NewGuard(projectRepository)
	lifecycle := channel.NewLifecycle(channel.NewRegistry(), log, config.SinkTimeout)

	var opts []channel.Option
	if config.CensoredWordsPath != "" {
		filter, err := loadFilter(config, log)
		if err != nil {
			return fmt.Errorf("moderation setup failed: %w", err)
		}
		opts = append(opts, channel.WithCensor(filter))
	}
	chat := channel.NewChannel(log, authenticator, guard, messageRepository, lifecycle, config.MaxContentLength, opts...)

	// 4. HTTP + WebSocket server
	health := workers.NewHealthWorker(log, lifecycle, config.HealthInterval)
	srv := server.NewServer(log, server.Options{
		Addr:            fmt.Sprintf("%s:%d", config.Host, config.Port),
		BufferSize:      config.ConnectionBufferSize,
		WriteTimeout:    config.WriteTimeout,
		PongTimeout:     config.PongTimeout,
		MaxMessageSize:  server.FrameLimit(config.MaxContentLength),
		AllowedOrigins:  config.Origins(),
		ShutdownTimeout: config.ShutdownTimeout,
	}, chat,
		services.NewAuthService(userRepository, tokens, auth.DefaultPasswordParams),
		services.NewProjectService(projectRepository),
		services.NewChatService(guard, messageRepository),
		health)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Supervision blocks until every worker is gone
	sup := workers.NewSupervisor(log).WithRestartDelay(config.RestartInterval)
	sup.Add(health, srv).Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}

func loadFilter(config Config, log *slog.Logger) (*moderation.Filter, error) {
	dictionary, err := moderation.LoadDictionary(os.DirFS(config.CensoredWordsPath), ".")
	if err != nil {
		return nil, err
	}
	log.Info("Censored words loaded", "words", len(dictionary.Words), "languages", dictionary.Languages)
	return moderation.NewFilter(dictionary.Words, config.Replacement(), log)
}
