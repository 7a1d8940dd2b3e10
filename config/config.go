// Package config loads runtime settings from CATALOG_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-monolith/mono"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every variable name, e.g. CATALOG_STORE.
const Prefix = "CATALOG"

// Config holds all runtime settings.
type Config struct {
	Store        string `envconfig:"STORE" default:"sqlite"`
	SQLitePath   string `envconfig:"SQLITE_PATH" default:"./catalog.db"`
	SQLiteDebug  bool   `envconfig:"SQLITE_DEBUG" default:"false"`
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	MaxConns     int32  `envconfig:"MAX_CONNS" default:"10"`
	BucketPrefix string `envconfig:"BUCKET_PREFIX" default:"catalog"`

	NATSPort     int    `envconfig:"NATS_PORT" default:"4222"`
	NATSURL      string `envconfig:"NATS_URL"`
	JetStreamDir string `envconfig:"JETSTREAM_DIR" default:"./data/jetstream"`

	RedisAddr   string        `envconfig:"REDIS_ADDR"`
	ClickLimit  int           `envconfig:"CLICK_LIMIT" default:"5"`
	ClickWindow time.Duration `envconfig:"CLICK_WINDOW" default:"10s"`
	APILimit    int           `envconfig:"API_LIMIT" default:"100"`

	HTTPAddr        string `envconfig:"HTTP_ADDR" default:":3000"`
	ShopChannel     string `envconfig:"SHOP_CHANNEL" default:"shop"`
	FreeChannel     string `envconfig:"FREE_CHANNEL" default:"free"`
	ProjectsChannel string `envconfig:"PROJECTS_CHANNEL" default:"projects"`

	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.Store {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("CATALOG_SQLITE_PATH is required for the sqlite store")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("CATALOG_DATABASE_URL is required for the postgres store")
		}
	case "jetstream":
	default:
		return fmt.Errorf("unknown CATALOG_STORE %q (want sqlite, postgres or jetstream)", c.Store)
	}
	if c.ClickLimit > 0 && c.ClickWindow <= 0 {
		return fmt.Errorf("CATALOG_CLICK_WINDOW must be positive")
	}
	if _, err := c.MonoLogLevel(); err != nil {
		return err
	}
	return nil
}

// ClientURL returns the NATS URL that clients of the embedded server use.
func (c *Config) ClientURL() string {
	if c.NATSURL != "" {
		return c.NATSURL
	}
	return fmt.Sprintf("nats://127.0.0.1:%d", c.NATSPort)
}

// MonoLogLevel maps LogLevel onto the framework's levels. Only info and
// error are distinguished.
func (c *Config) MonoLogLevel() (mono.LogLevel, error) {
	switch strings.ToLower(c.LogLevel) {
	case "info", "":
		return mono.LogLevelInfo, nil
	case "error":
		return mono.LogLevelError, nil
	default:
		return mono.LogLevelInfo, fmt.Errorf("unknown CATALOG_LOG_LEVEL %q (want info or error)", c.LogLevel)
	}
}
