// Package storetest holds the behavioural suite every catalog.Store backend must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/catalog-engine/domain/catalog"
	"golang.org/x/sync/errgroup"
)

// Factory returns a fresh, empty store. The factory registers its own cleanup.
type Factory func(t *testing.T) catalog.Store

// Run executes the full contract suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("NextSequence", func(t *testing.T) { testNextSequence(t, newStore(t)) })
	t.Run("ProductCRUD", func(t *testing.T) { testProductCRUD(t, newStore(t)) })
	t.Run("ConcurrentProductIDs", func(t *testing.T) { testConcurrentProductIDs(t, newStore(t)) })
	t.Run("FreeItemStock", func(t *testing.T) { testFreeItemStock(t, newStore(t)) })
	t.Run("ConcurrentRedeem", func(t *testing.T) { testConcurrentDecrement(t, newStore(t)) })
	t.Run("UnlimitedFreeItem", func(t *testing.T) { testUnlimitedFreeItem(t, newStore(t)) })
	t.Run("CartDedup", func(t *testing.T) { testCartDedup(t, newStore(t)) })
	t.Run("ConcurrentCartAdd", func(t *testing.T) { testConcurrentCartAdd(t, newStore(t)) })
	t.Run("ConcurrentPurchases", func(t *testing.T) { testConcurrentPurchases(t, newStore(t)) })
	t.Run("Projects", func(t *testing.T) { testProjects(t, newStore(t)) })
	t.Run("Ping", func(t *testing.T) {
		if err := newStore(t).Ping(context.Background()); err != nil {
			t.Fatalf("Ping failed: %v", err)
		}
	})
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func newProduct(name string, stock int) *catalog.Product {
	ts := now()
	return &catalog.Product{
		Name:        name,
		Description: name + " description",
		Price:       "199.90",
		Stock:       stock,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

func newFreeItem(name string, stock *int) *catalog.FreeItem {
	ts := now()
	return &catalog.FreeItem{
		Name:         name,
		Description:  name + " description",
		DownloadLink: "https://example.com/" + name,
		Stock:        stock,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
}

func testNextSequence(t *testing.T, s catalog.Store) {
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.NextSequence(ctx, "custom")
		if err != nil {
			t.Fatalf("NextSequence failed: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}

	other, err := s.NextSequence(ctx, "other")
	if err != nil {
		t.Fatalf("NextSequence failed: %v", err)
	}
	if other != 1 {
		t.Errorf("counters must be independent, got %d", other)
	}
}

func testProductCRUD(t *testing.T, s catalog.Store) {
	ctx := context.Background()

	p := newProduct("Website Pro", 2)
	if err := s.CreateProduct(ctx, p); err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	if p.ID != "prod_0001" {
		t.Fatalf("expected prod_0001, got %s", p.ID)
	}

	got, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if got.Name != "Website Pro" || got.Price != "199.90" || got.Stock != 2 {
		t.Errorf("unexpected product: %+v", got)
	}

	updated, err := s.UpdateProduct(ctx, p.ID, catalog.ProductPatch{
		Stock:     catalog.IntPtr(5),
		MessageID: catalog.StringPtr("msg-1"),
	})
	if err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}
	if updated.Stock != 5 || updated.MessageID != "msg-1" || updated.Name != "Website Pro" {
		t.Errorf("unexpected updated product: %+v", updated)
	}

	if _, err := s.UpdateProduct(ctx, "prod_9999", catalog.ProductPatch{}); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("expected ErrNotFound updating unknown product, got %v", err)
	}

	second := newProduct("Landing Page", 1)
	if err := s.CreateProduct(ctx, second); err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	list, err := s.ListProducts(ctx)
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 products, got %d", len(list))
	}

	if err := s.DeleteProduct(ctx, "prod_9999"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting unknown product, got %v", err)
	}
	list, _ = s.ListProducts(ctx)
	if len(list) != 2 {
		t.Errorf("failed delete must not change the catalog, got %d products", len(list))
	}

	if err := s.DeleteProduct(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProduct failed: %v", err)
	}
	if _, err := s.GetProduct(ctx, p.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Ids are never reused after a delete.
	third := newProduct("Store", 1)
	if err := s.CreateProduct(ctx, third); err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	if third.ID != "prod_0003" {
		t.Errorf("expected prod_0003, got %s", third.ID)
	}
}

func testConcurrentProductIDs(t *testing.T, s catalog.Store) {
	const n = 20
	ctx := context.Background()

	ids := make([]string, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			p := newProduct(fmt.Sprintf("product-%d", i), 1)
			if err := s.CreateProduct(ctx, p); err != nil {
				return err
			}
			ids[i] = p.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent CreateProduct failed: %v", err)
	}

	sort.Strings(ids)
	for i, id := range ids {
		want := catalog.FormatID(catalog.CounterProduct, int64(i+1))
		if id != want {
			t.Fatalf("expected unbroken sequence, position %d is %s want %s (all: %v)", i, id, want, ids)
		}
	}
}

func testFreeItemStock(t *testing.T, s catalog.Store) {
	ctx := context.Background()

	item := newFreeItem("pack", catalog.IntPtr(1))
	if err := s.CreateFreeItem(ctx, item); err != nil {
		t.Fatalf("CreateFreeItem failed: %v", err)
	}
	if item.ID != "free_0001" {
		t.Fatalf("expected free_0001, got %s", item.ID)
	}

	after, err := s.DecrementFreeItemStock(ctx, item.ID)
	if err != nil {
		t.Fatalf("DecrementFreeItemStock failed: %v", err)
	}
	if after.Stock == nil || *after.Stock != 0 {
		t.Fatalf("expected stock 0, got %v", after.Stock)
	}

	if _, err := s.DecrementFreeItemStock(ctx, item.ID); !errors.Is(err, catalog.ErrOutOfStock) {
		t.Errorf("expected ErrOutOfStock, got %v", err)
	}
	if _, err := s.DecrementFreeItemStock(ctx, "free_9999"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	restocked, err := s.UpdateFreeItem(ctx, item.ID, catalog.FreeItemPatch{Stock: catalog.IntPtr(4)})
	if err != nil {
		t.Fatalf("UpdateFreeItem failed: %v", err)
	}
	if restocked.Stock == nil || *restocked.Stock != 4 {
		t.Errorf("expected stock 4, got %v", restocked.Stock)
	}

	unlimited, err := s.UpdateFreeItem(ctx, item.ID, catalog.FreeItemPatch{ClearStock: true})
	if err != nil {
		t.Fatalf("UpdateFreeItem failed: %v", err)
	}
	if !unlimited.Unlimited() {
		t.Errorf("expected unlimited stock, got %v", *unlimited.Stock)
	}

	if err := s.DeleteFreeItem(ctx, item.ID); err != nil {
		t.Fatalf("DeleteFreeItem failed: %v", err)
	}
	if err := s.DeleteFreeItem(ctx, item.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func testConcurrentDecrement(t *testing.T, s catalog.Store) {
	ctx := context.Background()

	item := newFreeItem("limited", catalog.IntPtr(3))
	if err := s.CreateFreeItem(ctx, item); err != nil {
		t.Fatalf("CreateFreeItem failed: %v", err)
	}

	var ok, outOfStock atomic.Int32
	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			_, err := s.DecrementFreeItemStock(ctx, item.ID)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, catalog.ErrOutOfStock):
				outOfStock.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ok.Load() != 3 || outOfStock.Load() != 7 {
		t.Fatalf("expected 3 successes and 7 out of stock, got %d and %d", ok.Load(), outOfStock.Load())
	}

	final, err := s.GetFreeItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetFreeItem failed: %v", err)
	}
	if final.Stock == nil || *final.Stock != 0 {
		t.Fatalf("expected final stock 0, got %v", final.Stock)
	}
}

func testUnlimitedFreeItem(t *testing.T, s catalog.Store) {
	ctx := context.Background()

	item := newFreeItem("open", nil)
	if err := s.CreateFreeItem(ctx, item); err != nil {
		t.Fatalf("CreateFreeItem failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		got, err := s.DecrementFreeItemStock(ctx, item.ID)
		if err != nil {
			t.Fatalf("redeem %d failed: %v", i, err)
		}
		if !got.Unlimited() {
			t.Fatalf("unlimited item gained a stock value: %v", *got.Stock)
		}
	}

	items, err := s.ListFreeItems(ctx)
	if err != nil {
		t.Fatalf("ListFreeItems failed: %v", err)
	}
	if len(items) != 1 || !items[0].Unlimited() {
		t.Errorf("unexpected free items: %+v", items)
	}
}

func testCartDedup(t *testing.T, s catalog.Store) {
	ctx := context.Background()

	entry := &catalog.CartEntry{
		UserID:      "user-1",
		ProductID:   "prod_0001",
		ProductName: "Website Pro",
		Price:       "199.90",
		AddedAt:     now(),
	}
	if err := s.AddCartEntry(ctx, entry); err != nil {
		t.Fatalf("AddCartEntry failed: %v", err)
	}
	if err := s.AddCartEntry(ctx, entry); !errors.Is(err, catalog.ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}

	other := *entry
	other.UserID = "user with spaces/and:symbols"
	if err := s.AddCartEntry(ctx, &other); err != nil {
		t.Fatalf("AddCartEntry for second user failed: %v", err)
	}

	entries, err := s.ListCartEntries(ctx)
	if err != nil {
		t.Fatalf("ListCartEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	removed, err := s.ClearCart(ctx, "user-1")
	if err != nil {
		t.Fatalf("ClearCart failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed entry, got %d", removed)
	}

	removed, err = s.ClearCart(ctx, "user-1")
	if err != nil {
		t.Fatalf("ClearCart on empty cart failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected 0 removed entries, got %d", removed)
	}

	// A cleared pair can be added again.
	if err := s.AddCartEntry(ctx, entry); err != nil {
		t.Fatalf("AddCartEntry after clear failed: %v", err)
	}
}

func testConcurrentCartAdd(t *testing.T, s catalog.Store) {
	ctx := context.Background()

	var ok, dup atomic.Int32
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			err := s.AddCartEntry(ctx, &catalog.CartEntry{
				UserID:      "user-1",
				ProductID:   "prod_0001",
				ProductName: "Website Pro",
				Price:       "199.90",
				AddedAt:     now(),
			})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, catalog.ErrDuplicateEntry):
				dup.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok.Load() != 1 || dup.Load() != 7 {
		t.Fatalf("expected 1 success and 7 duplicates, got %d and %d", ok.Load(), dup.Load())
	}
}

func testConcurrentPurchases(t *testing.T, s catalog.Store) {
	const n = 50
	ctx := context.Background()

	seqs := make([]int64, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			r := &catalog.PurchaseRecord{
				BuyerID:            fmt.Sprintf("buyer-%d", i),
				ProductDescription: "Website Pro",
				Amount:             "199.90",
				CreatedAt:          now(),
			}
			if err := s.CreatePurchase(ctx, r); err != nil {
				return err
			}
			if r.ID != catalog.FormatID(catalog.CounterPurchase, r.Sequence) {
				return fmt.Errorf("id %s does not match sequence %d", r.ID, r.Sequence)
			}
			seqs[i] = r.Sequence
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent CreatePurchase failed: %v", err)
	}

	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	for i, seq := range seqs {
		if seq != int64(i+1) {
			t.Fatalf("expected gap-free sequence, position %d is %d (all: %v)", i, seq, seqs)
		}
	}

	records, err := s.ListPurchases(ctx)
	if err != nil {
		t.Fatalf("ListPurchases failed: %v", err)
	}
	if len(records) != n {
		t.Fatalf("expected %d records, got %d", n, len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].Sequence <= records[i-1].Sequence {
			t.Fatalf("ledger must be strictly increasing: %d then %d", records[i-1].Sequence, records[i].Sequence)
		}
	}

	got, err := s.GetPurchase(ctx, "NDB-0001")
	if err != nil {
		t.Fatalf("GetPurchase failed: %v", err)
	}
	if got.Sequence != 1 {
		t.Errorf("expected sequence 1, got %d", got.Sequence)
	}
	if _, err := s.GetPurchase(ctx, "NDB-9999"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testProjects(t *testing.T, s catalog.Store) {
	ctx := context.Background()

	p := &catalog.Project{Name: "Bakery site", Description: "Landing page", Client: "Bakery", CreatedAt: now()}
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if p.ID != "proj_0001" {
		t.Fatalf("expected proj_0001, got %s", p.ID)
	}

	got, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if got.Client != "Bakery" {
		t.Errorf("unexpected project: %+v", got)
	}

	list, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 project, got %d", len(list))
	}

	if err := s.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	if err := s.DeleteProject(ctx, p.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
