package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/park285/cheese-board-stream/internal/lichessfast"
	"github.com/park285/cheese-board-stream/internal/retry"
)

const (
	TransportNDJSON = "ndjson"
	TransportWS     = "ws"
)

type AppConfig struct {
	LichessBaseURL  string `env:"LICHESS_BASE_URL" envDefault:"https://lichess.org"`
	LichessWSURL    string `env:"LICHESS_WS_URL"`
	LichessToken    string `env:"LICHESS_TOKEN"`
	LichessUsername string `env:"LICHESS_USERNAME"`

	StreamTransport      string        `env:"STREAM_TRANSPORT" envDefault:"ndjson"`
	ReconnectMaxAttempts int           `env:"RECONNECT_MAX_ATTEMPTS" envDefault:"3"`
	ReconnectStep        time.Duration `env:"RECONNECT_STEP" envDefault:"2s"`
	CommandTimeout       time.Duration `env:"COMMAND_TIMEOUT" envDefault:"10s"`
	SeekTimeout          time.Duration `env:"SEEK_TIMEOUT" envDefault:"5m"`

	DryRun         bool `env:"DRY_RUN"`
	LocalMoveCheck bool `env:"LOCAL_MOVE_CHECK" envDefault:"true"`

	RedisURL    string `env:"REDIS_URL"`
	StatusAddr  string `env:"STATUS_ADDR"`
	MessagesDir string `env:"MESSAGES_DIR"`

	SeekRated     bool   `env:"SEEK_RATED"`
	SeekMinutes   int    `env:"SEEK_MINUTES" envDefault:"10"`
	SeekIncrement int    `env:"SEEK_INCREMENT" envDefault:"0"`
	SeekColor     string `env:"SEEK_COLOR" envDefault:"random"`
}

// Load reads the process environment.
func Load() (*AppConfig, error) {
	return load(env.Options{})
}

// LoadFrom reads vars instead of the process environment.
func LoadFrom(vars map[string]string) (*AppConfig, error) {
	return load(env.Options{Environment: vars})
}

func load(opts env.Options) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) normalize() {
	c.LichessBaseURL = strings.TrimRight(strings.TrimSpace(c.LichessBaseURL), "/")
	c.LichessWSURL = strings.TrimRight(strings.TrimSpace(c.LichessWSURL), "/")
	c.LichessToken = strings.TrimSpace(c.LichessToken)
	c.LichessUsername = strings.TrimSpace(c.LichessUsername)
	c.StreamTransport = strings.ToLower(strings.TrimSpace(c.StreamTransport))
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.StatusAddr = strings.TrimSpace(c.StatusAddr)
	c.MessagesDir = strings.TrimSpace(c.MessagesDir)

	if c.StreamTransport == TransportWS && c.LichessWSURL == "" {
		c.LichessWSURL = wsFromHTTP(c.LichessBaseURL)
	}
}

func (c *AppConfig) Validate() error {
	if c.LichessBaseURL == "" {
		return errors.New("LICHESS_BASE_URL is required")
	}
	if c.LichessToken == "" {
		return errors.New("LICHESS_TOKEN is required")
	}
	switch c.StreamTransport {
	case TransportNDJSON:
	case TransportWS:
		if c.LichessWSURL == "" {
			return errors.New("LICHESS_WS_URL is required for the ws transport")
		}
	default:
		return fmt.Errorf("STREAM_TRANSPORT must be %s or %s, got %q", TransportNDJSON, TransportWS, c.StreamTransport)
	}
	if c.ReconnectMaxAttempts < 1 {
		return errors.New("RECONNECT_MAX_ATTEMPTS must be at least 1")
	}
	if c.ReconnectStep <= 0 {
		return errors.New("RECONNECT_STEP must be positive")
	}
	if c.SeekMinutes < 0 || c.SeekIncrement < 0 {
		return errors.New("SEEK_MINUTES and SEEK_INCREMENT must not be negative")
	}
	return nil
}

// RetryPolicy is the reconnection policy shared by both channels.
func (c *AppConfig) RetryPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: c.ReconnectMaxAttempts, Step: c.ReconnectStep}
}

func (c *AppConfig) SeekParams() lichessfast.SeekParams {
	return lichessfast.SeekParams{
		Rated:     c.SeekRated,
		Minutes:   c.SeekMinutes,
		Increment: c.SeekIncrement,
		Color:     lichessfast.ParseColorChoice(c.SeekColor),
	}
}

func wsFromHTTP(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return ""
	}
}
