// Package ratelimit throttles clicks and API calls with a redis sliding window.
package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// ModuleConfig configures the limiter module.
type ModuleConfig struct {
	RedisAddr string
	Click     Config
	API       Config
	KeyPrefix string
}

// Module owns the redis client and the click and API limiters.
type Module struct {
	config ModuleConfig
	client *redis.Client
	clicks atomic.Pointer[SlidingWindowLimiter]
	api    atomic.Pointer[SlidingWindowLimiter]
	logger types.Logger
}

var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the limiter module. The redis connection is opened on Start.
func NewModule(config ModuleConfig, logger types.Logger) *Module {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "catalog:ratelimit:"
	}
	return &Module{
		config: config,
		logger: logger.WithModule("ratelimit"),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "ratelimit"
}

// Start connects to redis and builds the limiters.
func (m *Module) Start(ctx context.Context) error {
	m.client = redis.NewClient(&redis.Options{Addr: m.config.RedisAddr})
	if err := m.client.Ping(ctx).Err(); err != nil {
		_ = m.client.Close()
		m.client = nil
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	m.clicks.Store(NewSlidingWindowLimiter(m.client, m.config.Click, m.config.KeyPrefix+"click:"))
	m.api.Store(NewSlidingWindowLimiter(m.client, m.config.API, m.config.KeyPrefix+"ip:"))

	m.logger.Info("Rate limiter started",
		"redis", m.config.RedisAddr,
		"click_limit", m.config.Click.Limit,
		"click_window", m.config.Click.Window.String(),
	)
	return nil
}

// Stop closes the redis connection.
func (m *Module) Stop(_ context.Context) error {
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			m.logger.Warn("Error closing Redis connection", "error", err)
		}
	}
	m.logger.Info("Rate limiter stopped")
	return nil
}

// Health pings redis.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.client == nil {
		return mono.HealthStatus{Healthy: false, Message: "Redis client not initialized"}
	}
	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("redis ping failed: %v", err)}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"redis": m.config.RedisAddr},
	}
}

// AllowClick reports whether the user may click again. Zero or negative
// click limits disable throttling.
func (m *Module) AllowClick(ctx context.Context, userID string) (bool, error) {
	limiter := m.clicks.Load()
	if limiter == nil || m.config.Click.Limit <= 0 {
		return true, nil
	}
	res, err := limiter.Allow(ctx, userID)
	if err != nil {
		return true, err
	}
	return res.Allowed, nil
}

// Middleware returns the per-IP API middleware. Requests pass through
// until the module has started, and always when API limiting is disabled.
func (m *Module) Middleware() fiber.Handler {
	if m.config.API.Limit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return func(c *fiber.Ctx) error {
		limiter := m.api.Load()
		if limiter == nil {
			return c.Next()
		}
		return IPRateLimit(limiter)(c)
	}
}
