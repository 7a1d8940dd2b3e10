package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/example/catalog-engine/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// AddProductInput holds the operator's fields for a new product.
type AddProductInput struct {
	Name        string
	Description string
	Price       string
	Stock       int
	Image       string
}

// AddFreeItemInput holds the operator's fields for a new free item.
// A nil Stock means unlimited.
type AddFreeItemInput struct {
	Name        string
	Description string
	Link        string
	Stock       *int
	Image       string
}

// AddProjectInput holds the operator's fields for a new portfolio project.
type AddProjectInput struct {
	Name        string
	Description string
	URL         string
	Image       string
	Client      string
}

// Service applies the catalog rules on top of a Store. It keeps no entity
// state: every call reads the latest committed value.
type Service struct {
	store  catalog.Store
	bus    mono.EventBus
	logger types.Logger
	now    func() time.Time
}

// NewService creates a Service. bus may be nil, in which case no events are published.
func NewService(store catalog.Store, bus mono.EventBus, logger types.Logger) *Service {
	return &Service{
		store:  store,
		bus:    bus,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", catalog.ErrInvalidInput, field)
	}
	return nil
}

// AddProduct validates and persists a new product with the next prod_ id.
func (s *Service) AddProduct(ctx context.Context, in AddProductInput) (*catalog.Product, error) {
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	if err := required("description", in.Description); err != nil {
		return nil, err
	}
	price, err := catalog.NormalizeAmount(in.Price)
	if err != nil {
		return nil, err
	}
	if in.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must be non-negative", catalog.ErrInvalidInput)
	}

	ts := s.now()
	p := &catalog.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       price,
		Stock:       in.Stock,
		Image:       strings.TrimSpace(in.Image),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		s.logger.Error("Failed to create product", "name", p.Name, "error", err)
		return nil, err
	}

	s.logger.Info("Product added", "id", p.ID, "name", p.Name, "stock", p.Stock)
	s.publish("ProductAdded", p.ID, func() error {
		return events.ProductAddedV1.Publish(s.bus, events.ProductAddedEvent{
			ProductID:   p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Stock:       p.Stock,
			Image:       p.Image,
			CreatedAt:   p.CreatedAt,
		}, nil)
	})
	return p, nil
}

// GetProduct returns a product by id.
func (s *Service) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	return s.store.GetProduct(ctx, id)
}

// ListProducts returns every product.
func (s *Service) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	return s.store.ListProducts(ctx)
}

// UpdateProduct applies an admin edit. Price and stock are validated like on creation.
func (s *Service) UpdateProduct(ctx context.Context, id string, patch catalog.ProductPatch) (*catalog.Product, error) {
	if patch.Name != nil {
		if err := required("name", *patch.Name); err != nil {
			return nil, err
		}
	}
	if patch.Price != nil {
		price, err := catalog.NormalizeAmount(*patch.Price)
		if err != nil {
			return nil, err
		}
		patch.Price = &price
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must be non-negative", catalog.ErrInvalidInput)
	}

	p, err := s.store.UpdateProduct(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Product updated", "id", p.ID)
	return p, nil
}

// RemoveProduct deletes a product and returns the removed record so the
// caller can take down its rendered message.
func (s *Service) RemoveProduct(ctx context.Context, id string) (*catalog.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return nil, err
	}

	s.logger.Info("Product removed", "id", id)
	s.publish("ProductRemoved", id, func() error {
		return events.ProductRemovedV1.Publish(s.bus, events.ProductRemovedEvent{
			ProductID: p.ID,
			Name:      p.Name,
			MessageID: p.MessageID,
			RemovedAt: s.now(),
		}, nil)
	})
	return p, nil
}

// AddFreeItem validates and persists a new free item with the next free_ id.
func (s *Service) AddFreeItem(ctx context.Context, in AddFreeItemInput) (*catalog.FreeItem, error) {
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	if err := required("description", in.Description); err != nil {
		return nil, err
	}
	if err := required("link", in.Link); err != nil {
		return nil, err
	}
	if in.Stock != nil && *in.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must be non-negative", catalog.ErrInvalidInput)
	}

	ts := s.now()
	f := &catalog.FreeItem{
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		DownloadLink: strings.TrimSpace(in.Link),
		Stock:        in.Stock,
		Image:        strings.TrimSpace(in.Image),
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if err := s.store.CreateFreeItem(ctx, f); err != nil {
		s.logger.Error("Failed to create free item", "name", f.Name, "error", err)
		return nil, err
	}

	s.logger.Info("Free item added", "id", f.ID, "name", f.Name, "unlimited", f.Unlimited())
	s.publish("FreeItemAdded", f.ID, func() error {
		return events.FreeItemAddedV1.Publish(s.bus, events.FreeItemAddedEvent{
			ItemID:      f.ID,
			Name:        f.Name,
			Description: f.Description,
			Stock:       f.Stock,
			Image:       f.Image,
			CreatedAt:   f.CreatedAt,
		}, nil)
	})
	return f, nil
}

// GetFreeItem returns a free item by id.
func (s *Service) GetFreeItem(ctx context.Context, id string) (*catalog.FreeItem, error) {
	return s.store.GetFreeItem(ctx, id)
}

// ListFreeItems returns every free item.
func (s *Service) ListFreeItems(ctx context.Context) ([]catalog.FreeItem, error) {
	return s.store.ListFreeItems(ctx)
}

// RemoveFreeItem deletes a free item and returns the removed record.
func (s *Service) RemoveFreeItem(ctx context.Context, id string) (*catalog.FreeItem, error) {
	f, err := s.store.GetFreeItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteFreeItem(ctx, id); err != nil {
		return nil, err
	}

	s.logger.Info("Free item removed", "id", id)
	s.publish("FreeItemRemoved", id, func() error {
		return events.FreeItemRemovedV1.Publish(s.bus, events.FreeItemRemovedEvent{
			ItemID:    f.ID,
			Name:      f.Name,
			MessageID: f.MessageID,
			RemovedAt: s.now(),
		}, nil)
	})
	return f, nil
}

// AddToCart puts a product in the user's cart. Rules apply in order:
// the product must exist, must have stock, and must not already be in the
// user's cart. Stock is not reserved.
func (s *Service) AddToCart(ctx context.Context, userID, productID string) (*catalog.CartEntry, error) {
	if err := required("user_id", userID); err != nil {
		return nil, err
	}

	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.InStock() {
		return nil, catalog.ErrOutOfStock
	}

	entry := &catalog.CartEntry{
		UserID:      userID,
		ProductID:   p.ID,
		ProductName: p.Name,
		Price:       p.Price,
		AddedAt:     s.now(),
	}
	if err := s.store.AddCartEntry(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("Cart updated", "user_id", userID, "product_id", p.ID)
	s.publish("CartItemAdded", p.ID, func() error {
		return events.CartItemAddedV1.Publish(s.bus, events.CartItemAddedEvent{
			UserID:      entry.UserID,
			ProductID:   entry.ProductID,
			ProductName: entry.ProductName,
			Price:       entry.Price,
			AddedAt:     entry.AddedAt,
		}, nil)
	})
	return entry, nil
}

// RedeemFreeItem hands out the download. A finite stock is decremented in
// the same atomic step that checks it.
func (s *Service) RedeemFreeItem(ctx context.Context, itemID, userID string) (*catalog.Download, error) {
	if err := required("user_id", userID); err != nil {
		return nil, err
	}

	f, err := s.store.GetFreeItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !f.Unlimited() {
		f, err = s.store.DecrementFreeItemStock(ctx, itemID)
		if err != nil {
			return nil, err
		}
	}

	download := &catalog.Download{
		ItemID:      f.ID,
		Name:        f.Name,
		Description: f.Description,
		Link:        f.DownloadLink,
		Remaining:   f.Stock,
	}

	s.logger.Info("Free item redeemed", "user_id", userID, "item_id", f.ID)
	s.publish("FreeItemRedeemed", f.ID, func() error {
		return events.FreeItemRedeemedV1.Publish(s.bus, events.FreeItemRedeemedEvent{
			UserID:     userID,
			ItemID:     f.ID,
			Name:       f.Name,
			Remaining:  f.Stock,
			RedeemedAt: s.now(),
		}, nil)
	})
	return download, nil
}

// ClearCart empties a user's cart. Clearing an empty cart succeeds.
func (s *Service) ClearCart(ctx context.Context, userID string) (int, error) {
	if err := required("user_id", userID); err != nil {
		return 0, err
	}

	removed, err := s.store.ClearCart(ctx, userID)
	if err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, nil
	}

	s.logger.Info("Cart cleared", "user_id", userID, "removed", removed)
	s.publish("CartCleared", userID, func() error {
		return events.CartClearedV1.Publish(s.bus, events.CartClearedEvent{
			UserID:    userID,
			Removed:   removed,
			ClearedAt: s.now(),
		}, nil)
	})
	return removed, nil
}

// ListCarts returns all non-empty carts grouped by user.
func (s *Service) ListCarts(ctx context.Context) ([]catalog.Cart, error) {
	entries, err := s.store.ListCartEntries(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.GroupCarts(entries), nil
}

// SetRenderedMessage records the external message that displays the entity.
func (s *Service) SetRenderedMessage(ctx context.Context, kind catalog.Kind, id, messageID string) error {
	switch kind {
	case catalog.KindProduct:
		_, err := s.store.UpdateProduct(ctx, id, catalog.ProductPatch{MessageID: &messageID})
		return err
	case catalog.KindFreeItem:
		_, err := s.store.UpdateFreeItem(ctx, id, catalog.FreeItemPatch{MessageID: &messageID})
		return err
	default:
		return fmt.Errorf("%w: unknown kind %q", catalog.ErrInvalidInput, kind)
	}
}

// AddProject persists a portfolio project with the next proj_ id.
func (s *Service) AddProject(ctx context.Context, in AddProjectInput) (*catalog.Project, error) {
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	if err := required("description", in.Description); err != nil {
		return nil, err
	}

	p := &catalog.Project{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		URL:         strings.TrimSpace(in.URL),
		Image:       strings.TrimSpace(in.Image),
		Client:      strings.TrimSpace(in.Client),
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		s.logger.Error("Failed to create project", "name", p.Name, "error", err)
		return nil, err
	}

	s.logger.Info("Project added", "id", p.ID, "name", p.Name)
	s.publish("ProjectAdded", p.ID, func() error {
		return events.ProjectAddedV1.Publish(s.bus, events.ProjectAddedEvent{
			ProjectID:   p.ID,
			Name:        p.Name,
			Description: p.Description,
			URL:         p.URL,
			Image:       p.Image,
			Client:      p.Client,
			CreatedAt:   p.CreatedAt,
		}, nil)
	})
	return p, nil
}

// ListProjects returns every portfolio project.
func (s *Service) ListProjects(ctx context.Context) ([]catalog.Project, error) {
	return s.store.ListProjects(ctx)
}

// RemoveProject deletes a project and returns the removed record.
func (s *Service) RemoveProject(ctx context.Context, id string) (*catalog.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return nil, err
	}

	s.logger.Info("Project removed", "id", id)
	s.publish("ProjectRemoved", id, func() error {
		return events.ProjectRemovedV1.Publish(s.bus, events.ProjectRemovedEvent{
			ProjectID: p.ID,
			Name:      p.Name,
			MessageID: p.MessageID,
			RemovedAt: s.now(),
		}, nil)
	})
	return p, nil
}

// publish emits an event if a bus is attached. Publishing is best-effort;
// failures are logged and never fail the operation.
func (s *Service) publish(event, entityID string, fn func() error) {
	if s.bus == nil {
		return
	}
	if err := fn(); err != nil {
		s.logger.Warn("Failed to publish event", "event", event, "entity_id", entityID, "error", err)
	}
}
