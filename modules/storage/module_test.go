package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/go-monolith/mono/pkg/types"
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

func TestModule_SQLiteLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewModule(Config{
		Backend:    BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "catalog.db"),
	}, &mockLogger{})

	health := m.Health(ctx)
	assert.False(t, health.Healthy)

	require.NoError(t, m.Start(ctx))
	require.NotNil(t, m.Store())

	health = m.Health(ctx)
	assert.True(t, health.Healthy)
	assert.Equal(t, BackendSQLite, health.Details["backend"])

	p := &catalog.Product{Name: "Website Pro", Description: "d", Price: "199.90", Stock: 2}
	require.NoError(t, m.Store().CreateProduct(ctx, p))
	require.NoError(t, m.Store().AddCartEntry(ctx, &catalog.CartEntry{UserID: "u1", ProductID: p.ID, ProductName: p.Name, Price: p.Price}))

	stats, err := CollectStats(ctx, m.Store(), BackendSQLite)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Products)
	assert.Equal(t, 1, stats.CartEntries)
	assert.Equal(t, 0, stats.Purchases)

	require.NoError(t, m.Stop(ctx))
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Config{Backend: "mongo"})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
}
