package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"synergy/client"
	"synergy/domain/event"
	"synergy/projection"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
	exitRefused = 3
)

// Config defines the client-side environment variables.
// Without CHAT_TOKEN the client logs in with CHAT_EMAIL and CHAT_PASSWORD.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	ProjectID     string `env:"CHAT_PROJECT_ID,required=true"`
	Token         string `env:"CHAT_TOKEN"`
	Email         string `env:"CHAT_EMAIL"`
	Password      string `env:"CHAT_PASSWORD"`
	LogLevel      string `env:"LOG_LEVEL,default=ERROR"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run prints the project history, then relays stdin lines as messages
// and server events to stdout until Ctrl+C or disconnection.
func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.NewAPI(config.ServerAddress, nil)
	token := config.Token
	if token == "" {
		if config.Email == "" {
			return exitConfig, fmt.Errorf("config error: CHAT_TOKEN or CHAT_EMAIL is required")
		}
		auth, err := api.Login(ctx, config.Email, config.Password)
		if err != nil {
			return exitRuntime, fmt.Errorf("login failed: %w", err)
		}
		token = auth.Token
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := client.Dial(dialCtx, log, config.ServerAddress, token, config.ProjectID)
	if err != nil {
		return exitRefused, err
	}
	defer func() { _ = conn.Close() }()

	hello := conn.Connected()
	color.Green.Printf(">>> %s as %s on project %s (Ctrl+C to quit)\n", hello.Message, hello.Username, hello.ProjectID)

	// Live messages may arrive while the history loads; the timeline drops the overlap.
	timeline := projection.NewTimeline(config.ProjectID)
	go printEvents(conn, timeline)

	history, err := api.History(ctx, token, config.ProjectID)
	if err != nil {
		return exitRuntime, fmt.Errorf("history failed: %w", err)
	}
	for _, m := range timeline.Backfill(history) {
		printMessage(m)
	}

	go readInput(ctx, conn)

	select {
	case <-ctx.Done():
		color.Gray.Println("Bye.")
		return exitOK, nil
	case <-conn.Done():
		return exitRuntime, fmt.Errorf("connection closed by server")
	}
}

func readInput(ctx context.Context, conn *client.Client) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		ack, err := conn.Send(sendCtx, line)
		cancel()
		switch {
		case err != nil:
			color.Red.Printf("!!! send failed: %v\n", err)
		case !ack.Success:
			color.Red.Printf("!!! message rejected: %s\n", ack.Error)
		}
	}
}

func printEvents(conn *client.Client, timeline *projection.Timeline) {
	for e := range conn.Events() {
		switch {
		case e.Message != nil:
			if timeline.Add(*e.Message) {
				printMessage(*e.Message)
			}
		case e.UserLeft != nil:
			color.Yellow.Printf("<<< %s left at %s\n", e.UserLeft.Username, e.UserLeft.Timestamp)
		case e.Error != nil:
			color.Red.Printf("!!! %s\n", e.Error.Message)
		}
	}
}

func printMessage(m event.MessagePayload) {
	color.Gray.Printf("[%s] ", m.Timestamp)
	color.Cyan.Printf("%s: ", m.Username)
	fmt.Println(m.Content)
}
