package main

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
)

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	JWTSecret            string        `env:"JWT_SECRET,required=true"`
	JWTIssuer            string        `env:"JWT_ISSUER,default=synergy"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=2000"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	PongTimeout          time.Duration `env:"PONG_TIMEOUT,default=60s"`
	AllowedOrigins       string        `env:"ALLOWED_ORIGINS"`
	CensoredWordsPath    string        `env:"CENSORED_WORDS_PATH"`
	CharacterReplacement string        `env:"CHARACTER_REPLACEMENT,default=*"`
	HealthInterval       time.Duration `env:"HEALTH_INTERVAL,default=15s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
}

// Origins splits ALLOWED_ORIGINS on commas. Empty means any origin.
func (c Config) Origins() []string {
	origins := lo.Map(strings.Split(c.AllowedOrigins, ","), func(o string, _ int) string {
		return strings.TrimSpace(o)
	})
	return lo.Compact(origins)
}

// Replacement is the rune masking censored characters.
func (c Config) Replacement() rune {
	r, _ := utf8.DecodeRuneInString(c.CharacterReplacement)
	if r == utf8.RuneError {
		return '*'
	}
	return r
}
