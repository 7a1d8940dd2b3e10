// Package jskv implements catalog.Store as JSON documents in NATS JetStream
// key-value buckets. Atomicity comes from revision-checked writes.
package jskv

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Config controls bucket naming and storage.
type Config struct {
	// BucketPrefix is prepended to every bucket name, e.g. "catalog".
	BucketPrefix string
	// Memory keeps buckets in memory instead of on disk.
	Memory bool
}

// Store is a catalog.Store backed by JetStream KV.
type Store struct {
	conn     *nats.Conn
	ownsConn bool
	js       jetstream.JetStream

	products  jetstream.KeyValue
	freeItems jetstream.KeyValue
	carts     jetstream.KeyValue
	purchases jetstream.KeyValue
	projects  jetstream.KeyValue
	counters  jetstream.KeyValue
}

var _ catalog.Store = (*Store)(nil)

// Open connects to natsURL and prepares the buckets.
func Open(ctx context.Context, natsURL string, cfg Config) (*Store, error) {
	conn, err := nats.Connect(natsURL, nats.Name("catalog-store"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	s, err := New(ctx, conn, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	s.ownsConn = true
	return s, nil
}

// New prepares the buckets on an existing connection. Close will not close conn.
func New(ctx context.Context, conn *nats.Conn, cfg Config) (*Store, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	prefix := cfg.BucketPrefix
	if prefix == "" {
		prefix = "catalog"
	}
	storage := jetstream.FileStorage
	if cfg.Memory {
		storage = jetstream.MemoryStorage
	}

	s := &Store{conn: conn, js: js}
	buckets := []struct {
		target      *jetstream.KeyValue
		name        string
		description string
	}{
		{&s.products, "products", "Catalog products"},
		{&s.freeItems, "free-items", "Giveaway items"},
		{&s.carts, "carts", "Cart entries keyed by user and product"},
		{&s.purchases, "purchases", "Purchase ledger"},
		{&s.projects, "projects", "Portfolio projects"},
		{&s.counters, "counters", "Sequence counters"},
	}
	for _, b := range buckets {
		kv, err := s.getOrCreateBucket(ctx, prefix+"-"+b.name, b.description, storage)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s bucket: %w", b.name, err)
		}
		*b.target = kv
	}
	return s, nil
}

func (s *Store) getOrCreateBucket(ctx context.Context, name, description string, storage jetstream.StorageType) (jetstream.KeyValue, error) {
	bucket, err := s.js.KeyValue(ctx, name)
	if err == nil {
		return bucket, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, err
	}

	return s.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: description,
		History:     1,
		Storage:     storage,
	})
}

// Ping checks the JetStream account is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if !s.conn.IsConnected() {
		return fmt.Errorf("ping: %w: nats connection is %s", catalog.ErrPersistence, s.conn.Status())
	}
	_, err := s.js.AccountInfo(ctx)
	return wrap("ping", err)
}

// Close closes the NATS connection if the store opened it.
func (s *Store) Close() error {
	if s.ownsConn {
		s.conn.Close()
	}
	return nil
}

// isConflict reports whether a revision-checked write lost a race.
func isConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
	}
	return false
}

// readCounter returns the counter value and its revision; zero revision means absent.
func (s *Store) readCounter(ctx context.Context, counter string) (int64, uint64, error) {
	entry, err := s.counters.Get(ctx, counter)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	v, err := strconv.ParseInt(string(entry.Value()), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("corrupt counter %s: %w", counter, err)
	}
	return v, entry.Revision(), nil
}

// casCounter moves the counter from revision rev to value. It reports false
// when another writer got there first.
func (s *Store) casCounter(ctx context.Context, counter string, rev uint64, value int64) (bool, error) {
	data := []byte(strconv.FormatInt(value, 10))
	var err error
	if rev == 0 {
		_, err = s.counters.Create(ctx, counter, data)
	} else {
		_, err = s.counters.Update(ctx, counter, data, rev)
	}
	if err == nil {
		return true, nil
	}
	if isConflict(err) {
		return false, nil
	}
	return false, err
}

// raiseCounter advances the counter to at least target.
func (s *Store) raiseCounter(ctx context.Context, counter string, target int64) error {
	for {
		current, rev, err := s.readCounter(ctx, counter)
		if err != nil {
			return err
		}
		if current >= target {
			return nil
		}
		ok, err := s.casCounter(ctx, counter, rev, target)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// NextSequence increments the named counter and returns the new value.
func (s *Store) NextSequence(ctx context.Context, counter string) (int64, error) {
	for {
		current, rev, err := s.readCounter(ctx, counter)
		if err != nil {
			return 0, wrap("next sequence", err)
		}
		ok, err := s.casCounter(ctx, counter, rev, current+1)
		if err != nil {
			return 0, wrap("next sequence", err)
		}
		if ok {
			return current + 1, nil
		}
		if err := ctx.Err(); err != nil {
			return 0, wrap("next sequence", err)
		}
	}
}

// claim allocates the next id of counter by writing its document to
// bucket with an expected last revision of zero. That write is the commit
// point: whoever writes key N first owns N. A delete marker is a revision
// too, so the id of a deleted document is never handed out again. The
// counter is then raised to N; a writer that loses helps raise the counter
// before retrying, so no number is skipped or reused.
func (s *Store) claim(ctx context.Context, bucket jetstream.KeyValue, counter string, build func(id string, seq int64) ([]byte, error)) (string, int64, error) {
	for {
		current, _, err := s.readCounter(ctx, counter)
		if err != nil {
			return "", 0, err
		}
		seq := current + 1
		id := catalog.FormatID(counter, seq)

		data, err := build(id, seq)
		if err != nil {
			return "", 0, err
		}

		_, err = bucket.Update(ctx, id, data, 0)
		if err == nil {
			if err := s.raiseCounter(ctx, counter, seq); err != nil {
				return "", 0, err
			}
			return id, seq, nil
		}
		if !isConflict(err) {
			return "", 0, err
		}
		if err := s.raiseCounter(ctx, counter, seq); err != nil {
			return "", 0, err
		}
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
	}
}

func getDoc[T any](ctx context.Context, bucket jetstream.KeyValue, key string) (*T, uint64, error) {
	entry, err := bucket.Get(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	var v T
	if err := json.Unmarshal(entry.Value(), &v); err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return &v, entry.Revision(), nil
}

// listDocs loads every document in bucket. Keys deleted while listing are skipped.
func listDocs[T any](ctx context.Context, bucket jetstream.KeyValue) ([]T, error) {
	keys, err := bucket.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, err
	}

	docs := make([]T, 0, len(keys))
	for _, key := range keys {
		doc, _, err := getDoc[T](ctx, bucket, key)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// updateDoc applies mutate under a revision check, retrying on conflict.
func updateDoc[T any](ctx context.Context, bucket jetstream.KeyValue, key string, mutate func(*T) error) (*T, error) {
	for {
		doc, rev, err := getDoc[T](ctx, bucket, key)
		if err != nil {
			return nil, err
		}
		if err := mutate(doc); err != nil {
			return nil, err
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		_, err = bucket.Update(ctx, key, data, rev)
		if err == nil {
			return doc, nil
		}
		if !isConflict(err) {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// deleteDoc deletes key only if it currently exists.
func deleteDoc(ctx context.Context, bucket jetstream.KeyValue, key string) error {
	entry, err := bucket.Get(ctx, key)
	if err != nil {
		return err
	}
	err = bucket.Delete(ctx, key, jetstream.LastRevision(entry.Revision()))
	if isConflict(err) {
		// Changed under us; it still exists, so retry once against the new revision.
		return deleteDoc(ctx, bucket, key)
	}
	return err
}

// CreateProduct allocates the next product id and inserts p atomically.
func (s *Store) CreateProduct(ctx context.Context, p *catalog.Product) error {
	id, _, err := s.claim(ctx, s.products, catalog.CounterProduct, func(id string, _ int64) ([]byte, error) {
		doc := *p
		doc.ID = id
		return json.Marshal(doc)
	})
	if err != nil {
		return wrap("create product", err)
	}
	p.ID = id
	return nil
}

// GetProduct returns the product with the given id.
func (s *Store) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	p, _, err := getDoc[catalog.Product](ctx, s.products, id)
	if err != nil {
		return nil, wrap("get product", err)
	}
	return p, nil
}

// ListProducts returns all products ordered by id.
func (s *Store) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	products, err := listDocs[catalog.Product](ctx, s.products)
	if err != nil {
		return nil, wrap("list products", err)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// UpdateProduct applies patch under a revision check.
func (s *Store) UpdateProduct(ctx context.Context, id string, patch catalog.ProductPatch) (*catalog.Product, error) {
	p, err := updateDoc(ctx, s.products, id, func(p *catalog.Product) error {
		patch.Apply(p)
		p.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, wrap("update product", err)
	}
	return p, nil
}

// DeleteProduct removes the product with the given id.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return wrap("delete product", deleteDoc(ctx, s.products, id))
}

// CreateFreeItem allocates the next free item id and inserts f atomically.
func (s *Store) CreateFreeItem(ctx context.Context, f *catalog.FreeItem) error {
	id, _, err := s.claim(ctx, s.freeItems, catalog.CounterFreeItem, func(id string, _ int64) ([]byte, error) {
		doc := *f
		doc.ID = id
		return json.Marshal(doc)
	})
	if err != nil {
		return wrap("create free item", err)
	}
	f.ID = id
	return nil
}

// GetFreeItem returns the free item with the given id.
func (s *Store) GetFreeItem(ctx context.Context, id string) (*catalog.FreeItem, error) {
	f, _, err := getDoc[catalog.FreeItem](ctx, s.freeItems, id)
	if err != nil {
		return nil, wrap("get free item", err)
	}
	return f, nil
}

// ListFreeItems returns all free items ordered by id.
func (s *Store) ListFreeItems(ctx context.Context) ([]catalog.FreeItem, error) {
	items, err := listDocs[catalog.FreeItem](ctx, s.freeItems)
	if err != nil {
		return nil, wrap("list free items", err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// UpdateFreeItem applies patch under a revision check.
func (s *Store) UpdateFreeItem(ctx context.Context, id string, patch catalog.FreeItemPatch) (*catalog.FreeItem, error) {
	f, err := updateDoc(ctx, s.freeItems, id, func(f *catalog.FreeItem) error {
		patch.Apply(f)
		f.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, wrap("update free item", err)
	}
	return f, nil
}

// DeleteFreeItem removes the free item with the given id.
func (s *Store) DeleteFreeItem(ctx context.Context, id string) error {
	return wrap("delete free item", deleteDoc(ctx, s.freeItems, id))
}

// DecrementFreeItemStock takes one unit; the revision check makes the
// stock test and the write one atomic step.
func (s *Store) DecrementFreeItemStock(ctx context.Context, id string) (*catalog.FreeItem, error) {
	var unlimited *catalog.FreeItem
	f, err := updateDoc(ctx, s.freeItems, id, func(f *catalog.FreeItem) error {
		if f.Unlimited() {
			unlimited = f
			return errUnchanged
		}
		if *f.Stock <= 0 {
			return catalog.ErrOutOfStock
		}
		*f.Stock--
		f.UpdatedAt = time.Now().UTC()
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return unlimited, nil
	}
	if err != nil {
		return nil, wrap("decrement free item stock", err)
	}
	return f, nil
}

var errUnchanged = errors.New("document unchanged")

// cartKey encodes the user id so any characters are valid in a KV key.
func cartKey(userID, productID string) string {
	return cartUserPrefix(userID) + productID
}

func cartUserPrefix(userID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(userID)) + "."
}

// AddCartEntry creates the entry; Create fails if the key already exists.
func (s *Store) AddCartEntry(ctx context.Context, e *catalog.CartEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return wrap("add cart entry", err)
	}
	_, err = s.carts.Create(ctx, cartKey(e.UserID, e.ProductID), data)
	if err != nil {
		if isConflict(err) {
			return catalog.ErrDuplicateEntry
		}
		return wrap("add cart entry", err)
	}
	return nil
}

// ListCartEntries returns every cart entry ordered by user and time added.
func (s *Store) ListCartEntries(ctx context.Context) ([]catalog.CartEntry, error) {
	entries, err := listDocs[catalog.CartEntry](ctx, s.carts)
	if err != nil {
		return nil, wrap("list cart entries", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		if !a.AddedAt.Equal(b.AddedAt) {
			return a.AddedAt.Before(b.AddedAt)
		}
		return a.ProductID < b.ProductID
	})
	return entries, nil
}

// ClearCart removes every entry of the user.
func (s *Store) ClearCart(ctx context.Context, userID string) (int, error) {
	keys, err := s.carts.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return 0, nil
	}
	if err != nil {
		return 0, wrap("clear cart", err)
	}

	prefix := cartUserPrefix(userID)
	removed := 0
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		err := deleteDoc(ctx, s.carts, key)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return removed, wrap("clear cart", err)
		}
		removed++
	}
	return removed, nil
}

// CreatePurchase numbers and inserts the record; the ledger key is the commit point.
func (s *Store) CreatePurchase(ctx context.Context, r *catalog.PurchaseRecord) error {
	id, seq, err := s.claim(ctx, s.purchases, catalog.CounterPurchase, func(id string, seq int64) ([]byte, error) {
		doc := *r
		doc.ID = id
		doc.Sequence = seq
		return json.Marshal(doc)
	})
	if err != nil {
		return wrap("create purchase", err)
	}
	r.ID = id
	r.Sequence = seq
	return nil
}

// GetPurchase returns the purchase with the given id.
func (s *Store) GetPurchase(ctx context.Context, id string) (*catalog.PurchaseRecord, error) {
	r, _, err := getDoc[catalog.PurchaseRecord](ctx, s.purchases, id)
	if err != nil {
		return nil, wrap("get purchase", err)
	}
	return r, nil
}

// ListPurchases returns all purchases in ledger order.
func (s *Store) ListPurchases(ctx context.Context) ([]catalog.PurchaseRecord, error) {
	records, err := listDocs[catalog.PurchaseRecord](ctx, s.purchases)
	if err != nil {
		return nil, wrap("list purchases", err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Sequence < records[j].Sequence })
	return records, nil
}

// CreateProject allocates the next project id and inserts p atomically.
func (s *Store) CreateProject(ctx context.Context, p *catalog.Project) error {
	id, _, err := s.claim(ctx, s.projects, catalog.CounterProject, func(id string, _ int64) ([]byte, error) {
		doc := *p
		doc.ID = id
		return json.Marshal(doc)
	})
	if err != nil {
		return wrap("create project", err)
	}
	p.ID = id
	return nil
}

// GetProject returns the project with the given id.
func (s *Store) GetProject(ctx context.Context, id string) (*catalog.Project, error) {
	p, _, err := getDoc[catalog.Project](ctx, s.projects, id)
	if err != nil {
		return nil, wrap("get project", err)
	}
	return p, nil
}

// ListProjects returns all projects ordered by id.
func (s *Store) ListProjects(ctx context.Context) ([]catalog.Project, error) {
	projects, err := listDocs[catalog.Project](ctx, s.projects)
	if err != nil {
		return nil, wrap("list projects", err)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects, nil
}

// DeleteProject removes the project with the given id.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return wrap("delete project", deleteDoc(ctx, s.projects, id))
}

// wrap maps JetStream errors onto the catalog taxonomy.
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jetstream.ErrKeyNotFound), errors.Is(err, jetstream.ErrKeyDeleted):
		return catalog.ErrNotFound
	case catalog.IsDomainError(err):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", op, catalog.ErrPersistence, err)
	}
}
