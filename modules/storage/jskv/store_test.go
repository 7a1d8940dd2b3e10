package jskv

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/example/catalog-engine/modules/storage/storetest"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runTestServer starts an embedded JetStream-enabled NATS server.
func runTestServer(t *testing.T) *server.Server {
	t.Helper()

	ns, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	})
	require.NoError(t, err)

	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(ns.Shutdown)
	return ns
}

func setupTestStore(t *testing.T) catalog.Store {
	t.Helper()

	ns := runTestServer(t)
	s, err := Open(context.Background(), ns.ClientURL(), Config{BucketPrefix: "test", Memory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, setupTestStore)
}

func TestStore_ReopenKeepsCounters(t *testing.T) {
	ctx := context.Background()
	ns := runTestServer(t)

	first, err := Open(ctx, ns.ClientURL(), Config{BucketPrefix: "reopen"})
	require.NoError(t, err)

	p := &catalog.Product{Name: "Website Pro", Description: "d", Price: "199.90", Stock: 2}
	require.NoError(t, first.CreateProduct(ctx, p))
	assert.Equal(t, "prod_0001", p.ID)
	require.NoError(t, first.Close())

	second, err := Open(ctx, ns.ClientURL(), Config{BucketPrefix: "reopen"})
	require.NoError(t, err)
	defer second.Close()

	got, err := second.GetProduct(ctx, "prod_0001")
	require.NoError(t, err)
	assert.Equal(t, "Website Pro", got.Name)

	next := &catalog.Product{Name: "Landing", Description: "d", Price: "10.00", Stock: 1}
	require.NoError(t, second.CreateProduct(ctx, next))
	assert.Equal(t, "prod_0002", next.ID)
}

func TestStore_DeletedIDNotReusedWhenCounterLags(t *testing.T) {
	ctx := context.Background()
	ns := runTestServer(t)

	s, err := Open(ctx, ns.ClientURL(), Config{BucketPrefix: "lag", Memory: true})
	require.NoError(t, err)
	defer s.Close()

	// A document written without advancing the counter, as left behind by a
	// writer that crashed between its commit and the counter update.
	data, err := json.Marshal(catalog.Product{ID: "prod_0001", Name: "Orphan", Description: "d", Price: "1.00", Stock: 1})
	require.NoError(t, err)
	_, err = s.products.Create(ctx, "prod_0001", data)
	require.NoError(t, err)

	current, _, err := s.readCounter(ctx, catalog.CounterProduct)
	require.NoError(t, err)
	require.Equal(t, int64(0), current)

	require.NoError(t, s.DeleteProduct(ctx, "prod_0001"))

	p := &catalog.Product{Name: "Website Pro", Description: "d", Price: "199.90", Stock: 2}
	require.NoError(t, s.CreateProduct(ctx, p))
	assert.NotEqual(t, "prod_0001", p.ID)
	assert.Equal(t, "prod_0002", p.ID)

	_, err = s.GetProduct(ctx, "prod_0001")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestCartKey_EncodesUserID(t *testing.T) {
	key := cartKey("user with spaces/and:symbols", "prod_0001")
	assert.NotContains(t, key, " ")
	assert.NotContains(t, key, "/")
	assert.NotContains(t, key, ":")
	assert.Equal(t, cartUserPrefix("user with spaces/and:symbols")+"prod_0001", key)
}
