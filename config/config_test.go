package config

import (
	"testing"
	"time"

	"github.com/go-monolith/mono"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, "./catalog.db", cfg.SQLitePath)
	assert.Equal(t, 4222, cfg.NATSPort)
	assert.Equal(t, 5, cfg.ClickLimit)
	assert.Equal(t, 10*time.Second, cfg.ClickWindow)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.ClientURL())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("CATALOG_STORE", "postgres")
	t.Setenv("CATALOG_DATABASE_URL", "postgres://localhost/catalog")
	t.Setenv("CATALOG_CLICK_WINDOW", "1m")
	t.Setenv("CATALOG_NATS_URL", "nats://nats:4222")
	t.Setenv("CATALOG_LOG_LEVEL", "error")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store)
	assert.Equal(t, time.Minute, cfg.ClickWindow)
	assert.Equal(t, "nats://nats:4222", cfg.ClientURL())

	level, err := cfg.MonoLogLevel()
	require.NoError(t, err)
	assert.Equal(t, mono.LogLevelError, level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown store", map[string]string{"CATALOG_STORE": "mongo"}},
		{"postgres without url", map[string]string{"CATALOG_STORE": "postgres"}},
		{"bad duration", map[string]string{"CATALOG_CLICK_WINDOW": "soon"}},
		{"bad log level", map[string]string{"CATALOG_LOG_LEVEL": "chatty"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
