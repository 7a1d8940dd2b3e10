// Package postgres implements catalog.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a catalog.Store backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ catalog.Store = (*Store)(nil)

// Open connects to databaseURL, verifies the connection and applies the schema.
func Open(ctx context.Context, databaseURL string, maxConns int32) (*Store, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool. The caller is responsible for the schema.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate applies the schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return wrap("ping", s.pool.Ping(ctx))
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const nextSequenceSQL = `
INSERT INTO counters (name, value) VALUES ($1, 1)
ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
RETURNING value`

// NextSequence increments the named counter and returns the new value.
func (s *Store) NextSequence(ctx context.Context, counter string) (int64, error) {
	var seq int64
	if err := s.pool.QueryRow(ctx, nextSequenceSQL, counter).Scan(&seq); err != nil {
		return 0, wrap("next sequence", err)
	}
	return seq, nil
}

// withSequence runs insert in a transaction after taking the next value of
// counter. The counter row stays locked until commit, so concurrent callers
// are serialized and a rollback returns the number.
func (s *Store) withSequence(ctx context.Context, counter string, insert func(tx pgx.Tx, seq int64) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var seq int64
		if err := tx.QueryRow(ctx, nextSequenceSQL, counter).Scan(&seq); err != nil {
			return err
		}
		return insert(tx, seq)
	})
}

const productColumns = `id, name, description, price, stock, image, message_id, created_at, updated_at`

func scanProduct(row pgx.Row) (*catalog.Product, error) {
	var p catalog.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Image, &p.MessageID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct allocates the next product id and inserts p atomically.
func (s *Store) CreateProduct(ctx context.Context, p *catalog.Product) error {
	err := s.withSequence(ctx, catalog.CounterProduct, func(tx pgx.Tx, seq int64) error {
		id := catalog.FormatID(catalog.CounterProduct, seq)
		_, err := tx.Exec(ctx,
			`INSERT INTO products (`+productColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			id, p.Name, p.Description, p.Price, p.Stock, p.Image, p.MessageID, timestamp(p.CreatedAt), timestamp(p.UpdatedAt),
		)
		if err != nil {
			return err
		}
		p.ID = id
		return nil
	})
	return wrap("create product", err)
}

// GetProduct returns the product with the given id.
func (s *Store) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get product", err)
	}
	return p, nil
}

// ListProducts returns all products ordered by id.
func (s *Store) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, wrap("list products", err)
	}
	defer rows.Close()

	products := make([]catalog.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrap("list products", err)
		}
		products = append(products, *p)
	}
	return products, wrap("list products", rows.Err())
}

// UpdateProduct applies patch with a single UPDATE; NULL parameters keep the
// current column value.
func (s *Store) UpdateProduct(ctx context.Context, id string, patch catalog.ProductPatch) (*catalog.Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, `
		UPDATE products SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			price       = COALESCE($4, price),
			stock       = COALESCE($5, stock),
			image       = COALESCE($6, image),
			message_id  = COALESCE($7, message_id),
			updated_at  = $8
		WHERE id = $1
		RETURNING `+productColumns,
		id, patch.Name, patch.Description, patch.Price, patch.Stock, patch.Image, patch.MessageID, time.Now().UTC(),
	))
	if err != nil {
		return nil, wrap("update product", err)
	}
	return p, nil
}

// DeleteProduct removes the product with the given id.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "products", id)
}

const freeItemColumns = `id, name, description, download_link, stock, image, message_id, created_at, updated_at`

func scanFreeItem(row pgx.Row) (*catalog.FreeItem, error) {
	var f catalog.FreeItem
	if err := row.Scan(&f.ID, &f.Name, &f.Description, &f.DownloadLink, &f.Stock, &f.Image, &f.MessageID, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateFreeItem allocates the next free item id and inserts f atomically.
func (s *Store) CreateFreeItem(ctx context.Context, f *catalog.FreeItem) error {
	err := s.withSequence(ctx, catalog.CounterFreeItem, func(tx pgx.Tx, seq int64) error {
		id := catalog.FormatID(catalog.CounterFreeItem, seq)
		_, err := tx.Exec(ctx,
			`INSERT INTO free_items (`+freeItemColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			id, f.Name, f.Description, f.DownloadLink, f.Stock, f.Image, f.MessageID, timestamp(f.CreatedAt), timestamp(f.UpdatedAt),
		)
		if err != nil {
			return err
		}
		f.ID = id
		return nil
	})
	return wrap("create free item", err)
}

// GetFreeItem returns the free item with the given id.
func (s *Store) GetFreeItem(ctx context.Context, id string) (*catalog.FreeItem, error) {
	f, err := scanFreeItem(s.pool.QueryRow(ctx, `SELECT `+freeItemColumns+` FROM free_items WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get free item", err)
	}
	return f, nil
}

// ListFreeItems returns all free items ordered by id.
func (s *Store) ListFreeItems(ctx context.Context) ([]catalog.FreeItem, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+freeItemColumns+` FROM free_items ORDER BY id`)
	if err != nil {
		return nil, wrap("list free items", err)
	}
	defer rows.Close()

	items := make([]catalog.FreeItem, 0)
	for rows.Next() {
		f, err := scanFreeItem(rows)
		if err != nil {
			return nil, wrap("list free items", err)
		}
		items = append(items, *f)
	}
	return items, wrap("list free items", rows.Err())
}

// UpdateFreeItem applies patch with a single UPDATE.
func (s *Store) UpdateFreeItem(ctx context.Context, id string, patch catalog.FreeItemPatch) (*catalog.FreeItem, error) {
	f, err := scanFreeItem(s.pool.QueryRow(ctx, `
		UPDATE free_items SET
			name          = COALESCE($2, name),
			description   = COALESCE($3, description),
			download_link = COALESCE($4, download_link),
			stock         = CASE WHEN $5::boolean THEN NULL ELSE COALESCE($6, stock) END,
			image         = COALESCE($7, image),
			message_id    = COALESCE($8, message_id),
			updated_at    = $9
		WHERE id = $1
		RETURNING `+freeItemColumns,
		id, patch.Name, patch.Description, patch.DownloadLink, patch.ClearStock, patch.Stock, patch.Image, patch.MessageID, time.Now().UTC(),
	))
	if err != nil {
		return nil, wrap("update free item", err)
	}
	return f, nil
}

// DeleteFreeItem removes the free item with the given id.
func (s *Store) DeleteFreeItem(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "free_items", id)
}

// DecrementFreeItemStock takes one unit with a conditional UPDATE. When no
// row matches, a follow-up read tells apart missing, unlimited and exhausted.
func (s *Store) DecrementFreeItemStock(ctx context.Context, id string) (*catalog.FreeItem, error) {
	f, err := scanFreeItem(s.pool.QueryRow(ctx, `
		UPDATE free_items SET stock = stock - 1, updated_at = $2
		WHERE id = $1 AND stock IS NOT NULL AND stock > 0
		RETURNING `+freeItemColumns,
		id, time.Now().UTC(),
	))
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrap("decrement free item stock", err)
	}

	current, err := s.GetFreeItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Unlimited() {
		return current, nil
	}
	return nil, catalog.ErrOutOfStock
}

// AddCartEntry inserts e; the composite primary key rejects duplicates.
func (s *Store) AddCartEntry(ctx context.Context, e *catalog.CartEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cart_entries (user_id, product_id, product_name, price, added_at) VALUES ($1, $2, $3, $4, $5)`,
		e.UserID, e.ProductID, e.ProductName, e.Price, timestamp(e.AddedAt),
	)
	if err != nil {
		if isPgDuplicateKeyError(err) {
			return catalog.ErrDuplicateEntry
		}
		return wrap("add cart entry", err)
	}
	return nil
}

// ListCartEntries returns every cart entry ordered by user and time added.
func (s *Store) ListCartEntries(ctx context.Context) ([]catalog.CartEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, product_id, product_name, price, added_at FROM cart_entries ORDER BY user_id, added_at, product_id`)
	if err != nil {
		return nil, wrap("list cart entries", err)
	}
	defer rows.Close()

	entries := make([]catalog.CartEntry, 0)
	for rows.Next() {
		var e catalog.CartEntry
		if err := rows.Scan(&e.UserID, &e.ProductID, &e.ProductName, &e.Price, &e.AddedAt); err != nil {
			return nil, wrap("list cart entries", err)
		}
		entries = append(entries, e)
	}
	return entries, wrap("list cart entries", rows.Err())
}

// ClearCart removes every entry of the user.
func (s *Store) ClearCart(ctx context.Context, userID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cart_entries WHERE user_id = $1`, userID)
	if err != nil {
		return 0, wrap("clear cart", err)
	}
	return int(tag.RowsAffected()), nil
}

const purchaseColumns = `id, sequence, buyer_id, product_description, amount, note, created_at`

func scanPurchase(row pgx.Row) (*catalog.PurchaseRecord, error) {
	var r catalog.PurchaseRecord
	if err := row.Scan(&r.ID, &r.Sequence, &r.BuyerID, &r.ProductDescription, &r.Amount, &r.Note, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreatePurchase numbers and inserts the record in one transaction.
func (s *Store) CreatePurchase(ctx context.Context, r *catalog.PurchaseRecord) error {
	err := s.withSequence(ctx, catalog.CounterPurchase, func(tx pgx.Tx, seq int64) error {
		id := catalog.FormatID(catalog.CounterPurchase, seq)
		_, err := tx.Exec(ctx,
			`INSERT INTO purchases (`+purchaseColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, seq, r.BuyerID, r.ProductDescription, r.Amount, r.Note, timestamp(r.CreatedAt),
		)
		if err != nil {
			return err
		}
		r.ID = id
		r.Sequence = seq
		return nil
	})
	return wrap("create purchase", err)
}

// GetPurchase returns the purchase with the given id.
func (s *Store) GetPurchase(ctx context.Context, id string) (*catalog.PurchaseRecord, error) {
	r, err := scanPurchase(s.pool.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get purchase", err)
	}
	return r, nil
}

// ListPurchases returns all purchases in ledger order.
func (s *Store) ListPurchases(ctx context.Context) ([]catalog.PurchaseRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+purchaseColumns+` FROM purchases ORDER BY sequence`)
	if err != nil {
		return nil, wrap("list purchases", err)
	}
	defer rows.Close()

	records := make([]catalog.PurchaseRecord, 0)
	for rows.Next() {
		r, err := scanPurchase(rows)
		if err != nil {
			return nil, wrap("list purchases", err)
		}
		records = append(records, *r)
	}
	return records, wrap("list purchases", rows.Err())
}

const projectColumns = `id, name, description, url, image, client, message_id, created_at`

func scanProject(row pgx.Row) (*catalog.Project, error) {
	var p catalog.Project
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.URL, &p.Image, &p.Client, &p.MessageID, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject allocates the next project id and inserts p atomically.
func (s *Store) CreateProject(ctx context.Context, p *catalog.Project) error {
	err := s.withSequence(ctx, catalog.CounterProject, func(tx pgx.Tx, seq int64) error {
		id := catalog.FormatID(catalog.CounterProject, seq)
		_, err := tx.Exec(ctx,
			`INSERT INTO projects (`+projectColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			id, p.Name, p.Description, p.URL, p.Image, p.Client, p.MessageID, timestamp(p.CreatedAt),
		)
		if err != nil {
			return err
		}
		p.ID = id
		return nil
	})
	return wrap("create project", err)
}

// GetProject returns the project with the given id.
func (s *Store) GetProject(ctx context.Context, id string) (*catalog.Project, error) {
	p, err := scanProject(s.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get project", err)
	}
	return p, nil
}

// ListProjects returns all projects ordered by id.
func (s *Store) ListProjects(ctx context.Context) ([]catalog.Project, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY id`)
	if err != nil {
		return nil, wrap("list projects", err)
	}
	defer rows.Close()

	projects := make([]catalog.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, wrap("list projects", err)
		}
		projects = append(projects, *p)
	}
	return projects, wrap("list projects", rows.Err())
}

// DeleteProject removes the project with the given id.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "projects", id)
}

// deleteByID is only called with table names from this package.
func (s *Store) deleteByID(ctx context.Context, table, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return wrap("delete from "+table, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// wrap maps driver errors onto the catalog taxonomy.
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return catalog.ErrNotFound
	case catalog.IsDomainError(err):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", op, catalog.ErrPersistence, err)
	}
}

// isPgDuplicateKeyError checks if error is a PostgreSQL unique violation.
func isPgDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
