package ratelimit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)         {}
func (m *mockLogger) Info(msg string, args ...any)          {}
func (m *mockLogger) Warn(msg string, args ...any)          {}
func (m *mockLogger) Error(msg string, args ...any)         {}
func (m *mockLogger) With(args ...any) types.Logger         { return m }
func (m *mockLogger) WithError(err error) types.Logger      { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

const testRedisAddr = "localhost:6379"

func redisOrSkip(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Skip("Redis not available, skipping integration test")
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSlidingWindowLimiter_Allow(t *testing.T) {
	client := redisOrSkip(t)
	ctx := context.Background()
	prefix := "test:catalog:" + uuid.NewString() + ":"
	defer client.Del(ctx, prefix+"u1", prefix+"u1:seq")

	limiter := NewSlidingWindowLimiter(client, Config{Limit: 3, Window: time.Minute}, prefix)

	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d", i+1)
		assert.Equal(t, 3-i-1, res.Remaining)
	}

	res, err := limiter.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
}

func TestSlidingWindowLimiter_WindowSlides(t *testing.T) {
	client := redisOrSkip(t)
	ctx := context.Background()
	prefix := "test:catalog:" + uuid.NewString() + ":"

	limiter := NewSlidingWindowLimiter(client, Config{Limit: 1, Window: 200 * time.Millisecond}, prefix)

	res, err := limiter.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	time.Sleep(250 * time.Millisecond)

	res, err = limiter.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestModule_AllowClick(t *testing.T) {
	redisOrSkip(t)
	ctx := context.Background()

	m := NewModule(ModuleConfig{
		RedisAddr: testRedisAddr,
		Click:     Config{Limit: 2, Window: time.Minute},
		KeyPrefix: "test:catalog:" + uuid.NewString() + ":",
	}, &mockLogger{})
	require.NoError(t, m.Start(ctx))
	defer m.Stop(ctx)

	assert.True(t, m.Health(ctx).Healthy)

	for i := 0; i < 2; i++ {
		ok, err := m.AllowClick(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := m.AllowClick(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.AllowClick(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestModule_StartFailsWithoutRedis(t *testing.T) {
	m := NewModule(ModuleConfig{RedisAddr: "127.0.0.1:1"}, &mockLogger{})
	assert.Error(t, m.Start(context.Background()))
	assert.False(t, m.Health(context.Background()).Healthy)

	ok, err := m.AllowClick(context.Background(), "u1")
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestIPRateLimit(t *testing.T) {
	client := redisOrSkip(t)
	limiter := NewSlidingWindowLimiter(client, Config{Limit: 2, Window: time.Minute}, "test:catalog:"+uuid.NewString()+":")

	app := fiber.New()
	app.Use(IPRateLimit(limiter))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}
