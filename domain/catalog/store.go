package catalog

import "context"

// Store is the persistence contract shared by every backend.
//
// Create methods take a record with an empty ID, allocate the next sequence
// of the kind's counter in the same atomic step as the insert, and set ID
// on success. A failed create never consumes a sequence number.
//
// Errors are ErrNotFound, ErrOutOfStock or ErrDuplicateEntry for contract
// outcomes; anything else wraps ErrPersistence.
type Store interface {
	// NextSequence increments the named counter and returns the new value.
	NextSequence(ctx context.Context, counter string) (int64, error)

	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*Product, error)
	DeleteProduct(ctx context.Context, id string) error

	CreateFreeItem(ctx context.Context, f *FreeItem) error
	GetFreeItem(ctx context.Context, id string) (*FreeItem, error)
	ListFreeItems(ctx context.Context) ([]FreeItem, error)
	UpdateFreeItem(ctx context.Context, id string, patch FreeItemPatch) (*FreeItem, error)
	DeleteFreeItem(ctx context.Context, id string) error
	// DecrementFreeItemStock takes one unit iff the finite stock is above
	// zero. Unlimited items are returned unchanged.
	DecrementFreeItemStock(ctx context.Context, id string) (*FreeItem, error)

	// AddCartEntry inserts the entry or fails with ErrDuplicateEntry.
	AddCartEntry(ctx context.Context, e *CartEntry) error
	ListCartEntries(ctx context.Context) ([]CartEntry, error)
	// ClearCart removes every entry of the user and returns how many were removed.
	ClearCart(ctx context.Context, userID string) (int, error)

	CreatePurchase(ctx context.Context, r *PurchaseRecord) error
	GetPurchase(ctx context.Context, id string) (*PurchaseRecord, error)
	ListPurchases(ctx context.Context) ([]PurchaseRecord, error)

	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]Project, error)
	DeleteProject(ctx context.Context, id string) error

	Ping(ctx context.Context) error
	Close() error
}
