package config

import (
	"fmt"
	"net"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Dispatch  DispatchConfig
	Renderer  RendererConfig
	Stitch    StitchConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Stream    StreamConfig
	Store     StoreConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// DispatchConfig bounds concurrent capture jobs.
type DispatchConfig struct {
	MaxConcurrent int `envconfig:"MAX_CONCURRENT_TASKS" default:"5"`
}

// RendererConfig holds browser configuration.
type RendererConfig struct {
	// ControlURL is a DevTools ws:// endpoint or an http:// address to
	// resolve one from. Empty launches a local browser.
	ControlURL     string `envconfig:"RENDERER_CONTROL_URL"`
	Headless       bool   `envconfig:"RENDERER_HEADLESS" default:"true"`
	ViewportWidth  int    `envconfig:"RENDERER_VIEWPORT_WIDTH" default:"1280"`
	ViewportHeight int    `envconfig:"RENDERER_VIEWPORT_HEIGHT" default:"800"`
	JPEGQuality    int    `envconfig:"RENDERER_JPEG_QUALITY" default:"75"`
}

// StitchConfig holds composite encoding configuration.
type StitchConfig struct {
	JPEGQuality int `envconfig:"STITCH_JPEG_QUALITY" default:"92"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds HTTP rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// StreamConfig limits inbound WebSocket messages per connection.
type StreamConfig struct {
	MessagesPerSecond float64 `envconfig:"WS_MESSAGES_PER_SECOND" default:"20"`
	MessageBurst      int     `envconfig:"WS_MESSAGE_BURST" default:"40"`
}

// StoreConfig holds the optional Redis status store configuration.
type StoreConfig struct {
	RedisAddr string        `envconfig:"REDIS_ADDR"`
	Prefix    string        `envconfig:"REDIS_PREFIX" default:"capture:job:"`
	TTL       time.Duration `envconfig:"REDIS_TTL" default:"24h"`
}

// Enabled reports whether a Redis address was configured.
func (s StoreConfig) Enabled() bool {
	return s.RedisAddr != ""
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			ShutdownTimeout: 30 * time.Second,
		},
		Dispatch: DispatchConfig{
			MaxConcurrent: 5,
		},
		Renderer: RendererConfig{
			Headless:       true,
			ViewportWidth:  1280,
			ViewportHeight: 800,
			JPEGQuality:    75,
		},
		Stitch: StitchConfig{
			JPEGQuality: 92,
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Stream: StreamConfig{
			MessagesPerSecond: 20,
			MessageBurst:      40,
		},
		Store: StoreConfig{
			Prefix: "capture:job:",
			TTL:    24 * time.Hour,
		},
	}
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.Dispatch.MaxConcurrent < 1 {
		return fmt.Errorf("MAX_CONCURRENT_TASKS must be >= 1, got %d", c.Dispatch.MaxConcurrent)
	}
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.Server.ShutdownTimeout)
	}
	if c.Renderer.ViewportWidth < 1 || c.Renderer.ViewportHeight < 1 {
		return fmt.Errorf("renderer viewport must be positive, got %dx%d",
			c.Renderer.ViewportWidth, c.Renderer.ViewportHeight)
	}
	if q := c.Renderer.JPEGQuality; q < 1 || q > 100 {
		return fmt.Errorf("RENDERER_JPEG_QUALITY must be in [1,100], got %d", q)
	}
	if q := c.Stitch.JPEGQuality; q < 1 || q > 100 {
		return fmt.Errorf("STITCH_JPEG_QUALITY must be in [1,100], got %d", q)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond < 1 || c.RateLimit.Burst < 1) {
		return fmt.Errorf("rate limit needs positive RATE_LIMIT_RPS and RATE_LIMIT_BURST")
	}
	if c.Stream.MessagesPerSecond <= 0 || c.Stream.MessageBurst < 1 {
		return fmt.Errorf("stream limit needs positive WS_MESSAGES_PER_SECOND and WS_MESSAGE_BURST")
	}
	if c.Store.Enabled() && c.Store.TTL <= 0 {
		return fmt.Errorf("REDIS_TTL must be positive, got %s", c.Store.TTL)
	}
	return nil
}
