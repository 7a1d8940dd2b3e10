// Package inventory owns products, free items, carts and portfolio projects.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/example/catalog-engine/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// StoreProvider hands out the store once the storage module has started.
type StoreProvider interface {
	Store() catalog.Store
}

// Module exposes the inventory engine as request-reply services.
type Module struct {
	storage  StoreProvider
	service  *Service
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the inventory module on top of the storage module.
func NewModule(storage StoreProvider, logger types.Logger) *Module {
	return &Module{
		storage: storage,
		logger:  logger.WithModule("inventory"),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "inventory"
}

// Dependencies returns the modules that must start first.
func (m *Module) Dependencies() []string {
	return []string{"storage"}
}

// SetDependencyServiceContainer is a no-op; the store is reached through StoreProvider.
func (m *Module) SetDependencyServiceContainer(_ string, _ mono.ServiceContainer) {}

// SetEventBus is called by the framework to inject the event bus.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events published by this module.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.ProductAddedV1.ToBase(),
		events.ProductRemovedV1.ToBase(),
		events.FreeItemAddedV1.ToBase(),
		events.FreeItemRemovedV1.ToBase(),
		events.CartItemAddedV1.ToBase(),
		events.CartClearedV1.ToBase(),
		events.FreeItemRedeemedV1.ToBase(),
		events.ProjectAddedV1.ToBase(),
		events.ProjectRemovedV1.ToBase(),
	}
}

// Service returns the engine, or nil before Start.
func (m *Module) Service() *Service {
	return m.service
}

// Start builds the engine on the opened store.
func (m *Module) Start(_ context.Context) error {
	store := m.storage.Store()
	if store == nil {
		return fmt.Errorf("store not available: storage module not started")
	}
	if m.eventBus == nil {
		m.logger.Warn("Event bus not set, events will not be published")
	}

	m.service = NewService(store, m.eventBus, m.logger)
	m.logger.Info("Inventory module started")
	return nil
}

// Stop stops the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Inventory module stopped")
	return nil
}

// Health reports whether the engine is ready.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{Healthy: false, Message: "not started"}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// RegisterServices registers the inventory request-reply services.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	registrations := []struct {
		name     string
		register func() error
	}{
		{"add-product", func() error {
			return helper.RegisterTypedRequestReplyService(container, "add-product", json.Unmarshal, json.Marshal, m.addProduct)
		}},
		{"update-product", func() error {
			return helper.RegisterTypedRequestReplyService(container, "update-product", json.Unmarshal, json.Marshal, m.updateProduct)
		}},
		{"remove-product", func() error {
			return helper.RegisterTypedRequestReplyService(container, "remove-product", json.Unmarshal, json.Marshal, m.removeProduct)
		}},
		{"get-product", func() error {
			return helper.RegisterTypedRequestReplyService(container, "get-product", json.Unmarshal, json.Marshal, m.getProduct)
		}},
		{"list-products", func() error {
			return helper.RegisterTypedRequestReplyService(container, "list-products", json.Unmarshal, json.Marshal, m.listProducts)
		}},
		{"add-free-item", func() error {
			return helper.RegisterTypedRequestReplyService(container, "add-free-item", json.Unmarshal, json.Marshal, m.addFreeItem)
		}},
		{"remove-free-item", func() error {
			return helper.RegisterTypedRequestReplyService(container, "remove-free-item", json.Unmarshal, json.Marshal, m.removeFreeItem)
		}},
		{"get-free-item", func() error {
			return helper.RegisterTypedRequestReplyService(container, "get-free-item", json.Unmarshal, json.Marshal, m.getFreeItem)
		}},
		{"list-free-items", func() error {
			return helper.RegisterTypedRequestReplyService(container, "list-free-items", json.Unmarshal, json.Marshal, m.listFreeItems)
		}},
		{"add-to-cart", func() error {
			return helper.RegisterTypedRequestReplyService(container, "add-to-cart", json.Unmarshal, json.Marshal, m.addToCart)
		}},
		{"redeem-free-item", func() error {
			return helper.RegisterTypedRequestReplyService(container, "redeem-free-item", json.Unmarshal, json.Marshal, m.redeemFreeItem)
		}},
		{"clear-cart", func() error {
			return helper.RegisterTypedRequestReplyService(container, "clear-cart", json.Unmarshal, json.Marshal, m.clearCart)
		}},
		{"list-carts", func() error {
			return helper.RegisterTypedRequestReplyService(container, "list-carts", json.Unmarshal, json.Marshal, m.listCarts)
		}},
		{"set-message", func() error {
			return helper.RegisterTypedRequestReplyService(container, "set-message", json.Unmarshal, json.Marshal, m.setMessage)
		}},
		{"add-project", func() error {
			return helper.RegisterTypedRequestReplyService(container, "add-project", json.Unmarshal, json.Marshal, m.addProject)
		}},
		{"remove-project", func() error {
			return helper.RegisterTypedRequestReplyService(container, "remove-project", json.Unmarshal, json.Marshal, m.removeProject)
		}},
		{"list-projects", func() error {
			return helper.RegisterTypedRequestReplyService(container, "list-projects", json.Unmarshal, json.Marshal, m.listProjects)
		}},
	}

	for _, r := range registrations {
		if err := r.register(); err != nil {
			return fmt.Errorf("failed to register %s service: %w", r.name, err)
		}
	}

	m.logger.Info("Registered services", "count", len(registrations))
	return nil
}

func (m *Module) ready() error {
	if m.service == nil {
		return fmt.Errorf("inventory not started")
	}
	return nil
}

func (m *Module) addProduct(ctx context.Context, req AddProductRequest, _ *mono.Msg) (ProductResponse, error) {
	if err := m.ready(); err != nil {
		return ProductResponse{}, err
	}
	p, err := m.service.AddProduct(ctx, AddProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Image:       req.Image,
	})
	if err != nil {
		return ProductResponse{}, err
	}
	return ProductResponse{Product: *p}, nil
}

func (m *Module) updateProduct(ctx context.Context, req UpdateProductRequest, _ *mono.Msg) (ProductResponse, error) {
	if err := m.ready(); err != nil {
		return ProductResponse{}, err
	}
	p, err := m.service.UpdateProduct(ctx, req.ProductID, catalog.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Image:       req.Image,
	})
	if err != nil {
		return ProductResponse{}, err
	}
	return ProductResponse{Product: *p}, nil
}

func (m *Module) removeProduct(ctx context.Context, req ProductRequest, _ *mono.Msg) (ProductResponse, error) {
	if err := m.ready(); err != nil {
		return ProductResponse{}, err
	}
	p, err := m.service.RemoveProduct(ctx, req.ProductID)
	if err != nil {
		return ProductResponse{}, err
	}
	return ProductResponse{Product: *p}, nil
}

func (m *Module) getProduct(ctx context.Context, req ProductRequest, _ *mono.Msg) (ProductResponse, error) {
	if err := m.ready(); err != nil {
		return ProductResponse{}, err
	}
	p, err := m.service.GetProduct(ctx, req.ProductID)
	if err != nil {
		return ProductResponse{}, err
	}
	return ProductResponse{Product: *p}, nil
}

func (m *Module) listProducts(ctx context.Context, _ ListProductsRequest, _ *mono.Msg) (ListProductsResponse, error) {
	if err := m.ready(); err != nil {
		return ListProductsResponse{}, err
	}
	products, err := m.service.ListProducts(ctx)
	if err != nil {
		return ListProductsResponse{}, err
	}
	return ListProductsResponse{Products: products, Total: len(products)}, nil
}

func (m *Module) addFreeItem(ctx context.Context, req AddFreeItemRequest, _ *mono.Msg) (FreeItemResponse, error) {
	if err := m.ready(); err != nil {
		return FreeItemResponse{}, err
	}
	f, err := m.service.AddFreeItem(ctx, AddFreeItemInput{
		Name:        req.Name,
		Description: req.Description,
		Link:        req.Link,
		Stock:       req.Stock,
		Image:       req.Image,
	})
	if err != nil {
		return FreeItemResponse{}, err
	}
	return FreeItemResponse{FreeItem: *f}, nil
}

func (m *Module) removeFreeItem(ctx context.Context, req FreeItemRequest, _ *mono.Msg) (FreeItemResponse, error) {
	if err := m.ready(); err != nil {
		return FreeItemResponse{}, err
	}
	f, err := m.service.RemoveFreeItem(ctx, req.ItemID)
	if err != nil {
		return FreeItemResponse{}, err
	}
	return FreeItemResponse{FreeItem: *f}, nil
}

func (m *Module) getFreeItem(ctx context.Context, req FreeItemRequest, _ *mono.Msg) (FreeItemResponse, error) {
	if err := m.ready(); err != nil {
		return FreeItemResponse{}, err
	}
	f, err := m.service.GetFreeItem(ctx, req.ItemID)
	if err != nil {
		return FreeItemResponse{}, err
	}
	return FreeItemResponse{FreeItem: *f}, nil
}

func (m *Module) listFreeItems(ctx context.Context, _ ListFreeItemsRequest, _ *mono.Msg) (ListFreeItemsResponse, error) {
	if err := m.ready(); err != nil {
		return ListFreeItemsResponse{}, err
	}
	items, err := m.service.ListFreeItems(ctx)
	if err != nil {
		return ListFreeItemsResponse{}, err
	}
	return ListFreeItemsResponse{FreeItems: items, Total: len(items)}, nil
}

func (m *Module) addToCart(ctx context.Context, req AddToCartRequest, _ *mono.Msg) (AddToCartResponse, error) {
	if err := m.ready(); err != nil {
		return AddToCartResponse{}, err
	}
	entry, err := m.service.AddToCart(ctx, req.UserID, req.ProductID)
	if err != nil {
		return AddToCartResponse{}, err
	}
	return AddToCartResponse{Entry: *entry}, nil
}

func (m *Module) redeemFreeItem(ctx context.Context, req RedeemFreeItemRequest, _ *mono.Msg) (RedeemFreeItemResponse, error) {
	if err := m.ready(); err != nil {
		return RedeemFreeItemResponse{}, err
	}
	download, err := m.service.RedeemFreeItem(ctx, req.ItemID, req.UserID)
	if err != nil {
		return RedeemFreeItemResponse{}, err
	}
	return RedeemFreeItemResponse{Download: *download}, nil
}

func (m *Module) clearCart(ctx context.Context, req ClearCartRequest, _ *mono.Msg) (ClearCartResponse, error) {
	if err := m.ready(); err != nil {
		return ClearCartResponse{}, err
	}
	removed, err := m.service.ClearCart(ctx, req.UserID)
	if err != nil {
		return ClearCartResponse{}, err
	}
	return ClearCartResponse{Removed: removed}, nil
}

func (m *Module) listCarts(ctx context.Context, _ ListCartsRequest, _ *mono.Msg) (ListCartsResponse, error) {
	if err := m.ready(); err != nil {
		return ListCartsResponse{}, err
	}
	carts, err := m.service.ListCarts(ctx)
	if err != nil {
		return ListCartsResponse{}, err
	}
	return ListCartsResponse{Carts: carts}, nil
}

func (m *Module) setMessage(ctx context.Context, req SetMessageRequest, _ *mono.Msg) (SetMessageResponse, error) {
	if err := m.ready(); err != nil {
		return SetMessageResponse{}, err
	}
	if err := m.service.SetRenderedMessage(ctx, req.Kind, req.ID, req.MessageID); err != nil {
		return SetMessageResponse{}, err
	}
	return SetMessageResponse{Updated: true}, nil
}

func (m *Module) addProject(ctx context.Context, req AddProjectRequest, _ *mono.Msg) (ProjectResponse, error) {
	if err := m.ready(); err != nil {
		return ProjectResponse{}, err
	}
	p, err := m.service.AddProject(ctx, AddProjectInput{
		Name:        req.Name,
		Description: req.Description,
		URL:         req.URL,
		Image:       req.Image,
		Client:      req.Client,
	})
	if err != nil {
		return ProjectResponse{}, err
	}
	return ProjectResponse{Project: *p}, nil
}

func (m *Module) removeProject(ctx context.Context, req ProjectRequest, _ *mono.Msg) (ProjectResponse, error) {
	if err := m.ready(); err != nil {
		return ProjectResponse{}, err
	}
	p, err := m.service.RemoveProject(ctx, req.ProjectID)
	if err != nil {
		return ProjectResponse{}, err
	}
	return ProjectResponse{Project: *p}, nil
}

func (m *Module) listProjects(ctx context.Context, _ ListProjectsRequest, _ *mono.Msg) (ListProjectsResponse, error) {
	if err := m.ready(); err != nil {
		return ListProjectsResponse{}, err
	}
	projects, err := m.service.ListProjects(ctx)
	if err != nil {
		return ListProjectsResponse{}, err
	}
	return ListProjectsResponse{Projects: projects, Total: len(projects)}, nil
}
