// Package config loads all service configuration from the environment once at
// startup. Required secrets are validated here so a misconfigured process
// refuses to accept traffic instead of silently disabling verification.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration.
type Config struct {
	Addr     string   `env:"SKILLSIM_ADDR" envDefault:":8080"`
	Env      string   `env:"SKILLSIM_ENV" envDefault:"development"`
	LTI      LTI      `envPrefix:"LTI_"`
	Session  Session  `envPrefix:"SESSION_"`
	Stream   Stream   `envPrefix:"STREAM_"`
	Replay   Replay   `envPrefix:"REPLAY_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	Database Database `envPrefix:"DATABASE_"`
	Audit    Audit    `envPrefix:"AUDIT_"`
}

// LTI holds the shared-secret credentials for the LMS launch protocol.
type LTI struct {
	ConsumerKey    string `env:"CONSUMER_KEY"`
	ConsumerSecret string `env:"CONSUMER_SECRET"`
}

// Session holds the cookie-credential signing key and per-login-path TTLs.
type Session struct {
	SigningKey string        `env:"SIGNING_KEY"`
	LTITTL     time.Duration `env:"LTI_TTL" envDefault:"8h"`
	TeacherTTL time.Duration `env:"TEACHER_TTL" envDefault:"24h"`
	AdminTTL   time.Duration `env:"ADMIN_TTL" envDefault:"1h"`
}

// Stream holds the keypair and scope for the short-lived access credential
// handed to the compute-streaming capability.
type Stream struct {
	PrivateKeyFile string        `env:"PRIVATE_KEY_FILE"`
	PublicKeyFile  string        `env:"PUBLIC_KEY_FILE"`
	Audience       string        `env:"AUDIENCE" envDefault:"skillsim-stream"`
	TTL            time.Duration `env:"TTL" envDefault:"20m"`
}

// Replay selects the nonce-replay backend and retention window.
type Replay struct {
	Backend string        `env:"BACKEND" envDefault:"memory"`
	TTL     time.Duration `env:"TTL" envDefault:"10m"`
}

// Redis holds connection parameters for the shared replay store.
type Redis struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// Database holds the identity store DSN. Empty means in-memory storage.
type Database struct {
	DSN string `env:"DSN"`
}

// Audit configures the security-event sink fan-out.
type Audit struct {
	KafkaBrokers []string `env:"KAFKA_BROKERS"`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"skillsim.security.audit"`
}

// Production reports whether the process runs in production mode, which makes
// every signing secret mandatory and marks cookies Secure.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load parses configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fails fast on missing or contradictory settings. Verification must
// fail closed: an absent signing secret is a startup error, never a disabled
// check.
func (c *Config) Validate() error {
	if c.LTI.ConsumerKey == "" {
		return fmt.Errorf("config: LTI_CONSUMER_KEY is required")
	}
	if c.LTI.ConsumerSecret == "" {
		return fmt.Errorf("config: LTI_CONSUMER_SECRET is required")
	}
	if c.Session.SigningKey == "" {
		return fmt.Errorf("config: SESSION_SIGNING_KEY is required")
	}
	switch c.Replay.Backend {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("config: REPLAY_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("config: unknown REPLAY_BACKEND %q", c.Replay.Backend)
	}
	if c.Replay.TTL <= 0 {
		return fmt.Errorf("config: REPLAY_TTL must be positive")
	}
	if c.Production() {
		if c.Stream.PrivateKeyFile == "" || c.Stream.PublicKeyFile == "" {
			return fmt.Errorf("config: stream keypair files are required in production")
		}
	}
	return nil
}
