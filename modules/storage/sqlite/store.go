// Package sqlite implements catalog.Store on an embedded SQLite database via GORM.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/catalog-engine/domain/catalog"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store is a catalog.Store backed by SQLite. SQLite allows a single writer,
// so the pool is capped at one connection and every transaction is serialized.
type Store struct {
	db   *gorm.DB
	path string
}

var _ catalog.Store = (*Store)(nil)

// Open opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for a throwaway database.
func Open(path string, debug bool) (*Store, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(gormsqlite.Open(dsn(path)), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func dsn(path string) string {
	if path == ":memory:" {
		return path
	}
	return "file:" + path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}

// Migrate creates or updates all tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(
		&productRow{},
		&freeItemRow{},
		&cartRow{},
		&purchaseRow{},
		&projectRow{},
		&counterRow{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return wrap("ping", err)
	}
	return wrap("ping", sqlDB.PingContext(ctx))
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// NextSequence increments the named counter and returns the new value.
func (s *Store) NextSequence(ctx context.Context, counter string) (int64, error) {
	var seq int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		seq, err = nextSequence(tx, counter)
		return err
	})
	if err != nil {
		return 0, wrap("next sequence", err)
	}
	return seq, nil
}

// nextSequence must run inside a transaction so the increment rolls back
// together with whatever insert consumed it.
func nextSequence(tx *gorm.DB, counter string) (int64, error) {
	if err := tx.Exec(
		"INSERT INTO counters (name, value) VALUES (?, 1) ON CONFLICT(name) DO UPDATE SET value = counters.value + 1",
		counter,
	).Error; err != nil {
		return 0, err
	}

	var row counterRow
	if err := tx.First(&row, "name = ?", counter).Error; err != nil {
		return 0, err
	}
	return row.Value, nil
}

// CreateProduct allocates the next product id and inserts p atomically.
func (s *Store) CreateProduct(ctx context.Context, p *catalog.Product) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := nextSequence(tx, catalog.CounterProduct)
		if err != nil {
			return err
		}
		row := productFromDomain(p)
		row.ID = catalog.FormatID(catalog.CounterProduct, seq)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		p.ID = row.ID
		return nil
	})
	return wrap("create product", err)
}

// GetProduct returns the product with the given id.
func (s *Store) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	var row productRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, wrap("get product", err)
	}
	p := row.toDomain()
	return &p, nil
}

// ListProducts returns all products ordered by id.
func (s *Store) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var rows []productRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, wrap("list products", err)
	}
	products := make([]catalog.Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, r.toDomain())
	}
	return products, nil
}

// UpdateProduct applies patch to the product in a single transaction.
func (s *Store) UpdateProduct(ctx context.Context, id string, patch catalog.ProductPatch) (*catalog.Product, error) {
	var out catalog.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row productRow
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			return err
		}
		p := row.toDomain()
		patch.Apply(&p)
		p.UpdatedAt = time.Now().UTC()

		updated := productFromDomain(&p)
		if err := tx.Save(&updated).Error; err != nil {
			return err
		}
		out = updated.toDomain()
		return nil
	})
	if err != nil {
		return nil, wrap("update product", err)
	}
	return &out, nil
}

// DeleteProduct removes the product with the given id.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&productRow{}, "id = ?", id)
	if result.Error != nil {
		return wrap("delete product", result.Error)
	}
	if result.RowsAffected == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// CreateFreeItem allocates the next free item id and inserts f atomically.
func (s *Store) CreateFreeItem(ctx context.Context, f *catalog.FreeItem) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := nextSequence(tx, catalog.CounterFreeItem)
		if err != nil {
			return err
		}
		row := freeItemFromDomain(f)
		row.ID = catalog.FormatID(catalog.CounterFreeItem, seq)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		f.ID = row.ID
		return nil
	})
	return wrap("create free item", err)
}

// GetFreeItem returns the free item with the given id.
func (s *Store) GetFreeItem(ctx context.Context, id string) (*catalog.FreeItem, error) {
	var row freeItemRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, wrap("get free item", err)
	}
	f := row.toDomain()
	return &f, nil
}

// ListFreeItems returns all free items ordered by id.
func (s *Store) ListFreeItems(ctx context.Context) ([]catalog.FreeItem, error) {
	var rows []freeItemRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, wrap("list free items", err)
	}
	items := make([]catalog.FreeItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toDomain())
	}
	return items, nil
}

// UpdateFreeItem applies patch to the free item in a single transaction.
func (s *Store) UpdateFreeItem(ctx context.Context, id string, patch catalog.FreeItemPatch) (*catalog.FreeItem, error) {
	var out catalog.FreeItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row freeItemRow
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			return err
		}
		f := row.toDomain()
		patch.Apply(&f)
		f.UpdatedAt = time.Now().UTC()

		// Save writes every column, so a cleared stock becomes NULL.
		updated := freeItemFromDomain(&f)
		if err := tx.Save(&updated).Error; err != nil {
			return err
		}
		out = updated.toDomain()
		return nil
	})
	if err != nil {
		return nil, wrap("update free item", err)
	}
	return &out, nil
}

// DeleteFreeItem removes the free item with the given id.
func (s *Store) DeleteFreeItem(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&freeItemRow{}, "id = ?", id)
	if result.Error != nil {
		return wrap("delete free item", result.Error)
	}
	if result.RowsAffected == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// DecrementFreeItemStock takes one unit with a conditional UPDATE, so the
// stock check and the write are a single statement.
func (s *Store) DecrementFreeItemStock(ctx context.Context, id string) (*catalog.FreeItem, error) {
	var out catalog.FreeItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row freeItemRow
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			return err
		}
		if row.Stock == nil {
			out = row.toDomain()
			return nil
		}

		result := tx.Model(&freeItemRow{}).
			Where("id = ? AND stock > 0", id).
			Updates(map[string]any{
				"stock":      gorm.Expr("stock - 1"),
				"updated_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return catalog.ErrOutOfStock
		}

		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			return err
		}
		out = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, wrap("decrement free item stock", err)
	}
	return &out, nil
}

// AddCartEntry inserts e; the composite primary key rejects duplicates.
func (s *Store) AddCartEntry(ctx context.Context, e *catalog.CartEntry) error {
	row := cartRow{
		UserID:      e.UserID,
		ProductID:   e.ProductID,
		ProductName: e.ProductName,
		Price:       e.Price,
		AddedAt:     e.AddedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicateKeyError(err) {
			return catalog.ErrDuplicateEntry
		}
		return wrap("add cart entry", err)
	}
	return nil
}

// ListCartEntries returns every cart entry ordered by user and time added.
func (s *Store) ListCartEntries(ctx context.Context) ([]catalog.CartEntry, error) {
	var rows []cartRow
	if err := s.db.WithContext(ctx).Order("user_id, added_at, product_id").Find(&rows).Error; err != nil {
		return nil, wrap("list cart entries", err)
	}
	entries := make([]catalog.CartEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toDomain())
	}
	return entries, nil
}

// ClearCart removes every entry of the user.
func (s *Store) ClearCart(ctx context.Context, userID string) (int, error) {
	result := s.db.WithContext(ctx).Delete(&cartRow{}, "user_id = ?", userID)
	if result.Error != nil {
		return 0, wrap("clear cart", result.Error)
	}
	return int(result.RowsAffected), nil
}

// CreatePurchase numbers and inserts the record in one transaction.
func (s *Store) CreatePurchase(ctx context.Context, r *catalog.PurchaseRecord) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := nextSequence(tx, catalog.CounterPurchase)
		if err != nil {
			return err
		}
		row := purchaseRow{
			ID:                 catalog.FormatID(catalog.CounterPurchase, seq),
			Sequence:           seq,
			BuyerID:            r.BuyerID,
			ProductDescription: r.ProductDescription,
			Amount:             r.Amount,
			Note:               r.Note,
			CreatedAt:          r.CreatedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		r.ID = row.ID
		r.Sequence = row.Sequence
		return nil
	})
	return wrap("create purchase", err)
}

// GetPurchase returns the purchase with the given id.
func (s *Store) GetPurchase(ctx context.Context, id string) (*catalog.PurchaseRecord, error) {
	var row purchaseRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, wrap("get purchase", err)
	}
	r := row.toDomain()
	return &r, nil
}

// ListPurchases returns all purchases in ledger order.
func (s *Store) ListPurchases(ctx context.Context) ([]catalog.PurchaseRecord, error) {
	var rows []purchaseRow
	if err := s.db.WithContext(ctx).Order("sequence").Find(&rows).Error; err != nil {
		return nil, wrap("list purchases", err)
	}
	records := make([]catalog.PurchaseRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toDomain())
	}
	return records, nil
}

// CreateProject allocates the next project id and inserts p atomically.
func (s *Store) CreateProject(ctx context.Context, p *catalog.Project) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := nextSequence(tx, catalog.CounterProject)
		if err != nil {
			return err
		}
		row := projectRow{
			ID:          catalog.FormatID(catalog.CounterProject, seq),
			Name:        p.Name,
			Description: p.Description,
			URL:         p.URL,
			Image:       p.Image,
			Client:      p.Client,
			MessageID:   p.MessageID,
			CreatedAt:   p.CreatedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		p.ID = row.ID
		return nil
	})
	return wrap("create project", err)
}

// GetProject returns the project with the given id.
func (s *Store) GetProject(ctx context.Context, id string) (*catalog.Project, error) {
	var row projectRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, wrap("get project", err)
	}
	p := row.toDomain()
	return &p, nil
}

// ListProjects returns all projects ordered by id.
func (s *Store) ListProjects(ctx context.Context) ([]catalog.Project, error) {
	var rows []projectRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, wrap("list projects", err)
	}
	projects := make([]catalog.Project, 0, len(rows))
	for _, r := range rows {
		projects = append(projects, r.toDomain())
	}
	return projects, nil
}

// DeleteProject removes the project with the given id.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&projectRow{}, "id = ?", id)
	if result.Error != nil {
		return wrap("delete project", result.Error)
	}
	if result.RowsAffected == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// wrap maps driver errors onto the catalog taxonomy.
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return catalog.ErrNotFound
	case catalog.IsDomainError(err):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", op, catalog.ErrPersistence, err)
	}
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
