package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/example/catalog-engine/modules/storage/storetest"
)

// setupTestStore creates an in-memory SQLite store for testing.
func setupTestStore(t *testing.T) catalog.Store {
	t.Helper()

	s, err := Open(":memory:", false)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, setupTestStore)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	s, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	p := &catalog.Product{Name: "Website Pro", Description: "d", Price: "199.90", Stock: 2}
	if err := s.CreateProduct(ctx, p); err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(path, false)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProduct after reopen failed: %v", err)
	}
	if got.Name != "Website Pro" {
		t.Errorf("unexpected product: %+v", got)
	}

	next := &catalog.Product{Name: "Second", Description: "d", Price: "1.00", Stock: 1}
	if err := reopened.CreateProduct(ctx, next); err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	if next.ID != "prod_0002" {
		t.Errorf("counter must survive restarts, got %s", next.ID)
	}
}
