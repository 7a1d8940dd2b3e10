package notification

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/example/catalog-engine/events"
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

func TestModule_RecordsEvents(t *testing.T) {
	ctx := context.Background()
	m := NewModule(&mockLogger{})

	require.NoError(t, m.handleCartItemAdded(ctx, events.CartItemAddedEvent{
		UserID: "u1", ProductID: "prod_0001", ProductName: "Website Pro", Price: "199.90",
	}, nil))
	two := 2
	require.NoError(t, m.handleFreeItemRedeemed(ctx, events.FreeItemRedeemedEvent{
		UserID: "u2", ItemID: "free_0001", Name: "Icons", Remaining: &two,
	}, nil))
	require.NoError(t, m.handlePurchaseRecorded(ctx, events.PurchaseRecordedEvent{
		PurchaseID: "NDB-0001", BuyerID: "u1", ProductDescription: "Website Pro", Amount: "199.90", RecordedBy: "admin",
	}, nil))

	entries := m.Entries()
	require.Len(t, entries, 3)

	assert.Equal(t, "cart_item_added", entries[0].Action)
	assert.Equal(t, "u1", entries[0].Actor)
	assert.Equal(t, "prod_0001", entries[0].EntityID)
	assert.NotEmpty(t, entries[0].ID)

	assert.Equal(t, "free_item_redeemed", entries[1].Action)
	assert.Contains(t, entries[1].Message, "2 left")

	assert.Equal(t, "NDB-0001", entries[2].EntityID)
	assert.Equal(t, "admin", entries[2].Actor)

	// Entries returns a copy.
	entries[0].Action = "changed"
	assert.Equal(t, "cart_item_added", m.Entries()[0].Action)
}

func TestModule_BoundedLog(t *testing.T) {
	ctx := context.Background()
	m := NewModuleWithCapacity(5, &mockLogger{})

	for i := 1; i <= 8; i++ {
		require.NoError(t, m.handleProductAdded(ctx, events.ProductAddedEvent{
			ProductID: fmt.Sprintf("prod_%04d", i), Name: "p", Price: "1.00",
		}, nil))
	}

	entries := m.Entries()
	require.Len(t, entries, 5)
	assert.Equal(t, "prod_0004", entries[0].EntityID)
	assert.Equal(t, "prod_0008", entries[4].EntityID)

	resp, err := m.listAudit(ctx, ListAuditRequest{Limit: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Total)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "prod_0007", resp.Entries[0].EntityID)
}

func TestModule_ConcurrentRecord(t *testing.T) {
	ctx := context.Background()
	m := NewModuleWithCapacity(50, &mockLogger{})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = m.handleCartCleared(ctx, events.CartClearedEvent{UserID: fmt.Sprintf("u%d", i), Removed: 1}, nil)
		}(i)
	}
	wg.Wait()

	assert.Len(t, m.Entries(), 50)
}
