package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// inventoryAdapter implements InventoryPort over the inventory services.
type inventoryAdapter struct {
	container mono.ServiceContainer
}

var _ InventoryPort = (*inventoryAdapter)(nil)

// NewInventoryAdapter creates an adapter for the inventory services.
// container is the ServiceContainer received via SetDependencyServiceContainer.
func NewInventoryAdapter(container mono.ServiceContainer) InventoryPort {
	if container == nil {
		panic("inventory adapter requires non-nil ServiceContainer")
	}
	return &inventoryAdapter{container: container}
}

// call invokes a service and restores domain sentinels from its error text.
func call[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req) (*Resp, error) {
	var resp Resp
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", service, catalog.FromServiceError(err))
	}
	return &resp, nil
}

func (a *inventoryAdapter) AddProduct(ctx context.Context, in AddProductInput) (*catalog.Product, error) {
	resp, err := call[AddProductRequest, ProductResponse](ctx, a.container, "add-product", &AddProductRequest{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Image:       in.Image,
	})
	if err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

func (a *inventoryAdapter) UpdateProduct(ctx context.Context, id string, patch catalog.ProductPatch) (*catalog.Product, error) {
	resp, err := call[UpdateProductRequest, ProductResponse](ctx, a.container, "update-product", &UpdateProductRequest{
		ProductID:   id,
		Name:        patch.Name,
		Description: patch.Description,
		Price:       patch.Price,
		Stock:       patch.Stock,
		Image:       patch.Image,
	})
	if err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

func (a *inventoryAdapter) RemoveProduct(ctx context.Context, id string) (*catalog.Product, error) {
	resp, err := call[ProductRequest, ProductResponse](ctx, a.container, "remove-product", &ProductRequest{ProductID: id})
	if err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

func (a *inventoryAdapter) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	resp, err := call[ProductRequest, ProductResponse](ctx, a.container, "get-product", &ProductRequest{ProductID: id})
	if err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

func (a *inventoryAdapter) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	resp, err := call[ListProductsRequest, ListProductsResponse](ctx, a.container, "list-products", &ListProductsRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Products, nil
}

func (a *inventoryAdapter) AddFreeItem(ctx context.Context, in AddFreeItemInput) (*catalog.FreeItem, error) {
	resp, err := call[AddFreeItemRequest, FreeItemResponse](ctx, a.container, "add-free-item", &AddFreeItemRequest{
		Name:        in.Name,
		Description: in.Description,
		Link:        in.Link,
		Stock:       in.Stock,
		Image:       in.Image,
	})
	if err != nil {
		return nil, err
	}
	return &resp.FreeItem, nil
}

func (a *inventoryAdapter) RemoveFreeItem(ctx context.Context, id string) (*catalog.FreeItem, error) {
	resp, err := call[FreeItemRequest, FreeItemResponse](ctx, a.container, "remove-free-item", &FreeItemRequest{ItemID: id})
	if err != nil {
		return nil, err
	}
	return &resp.FreeItem, nil
}

func (a *inventoryAdapter) GetFreeItem(ctx context.Context, id string) (*catalog.FreeItem, error) {
	resp, err := call[FreeItemRequest, FreeItemResponse](ctx, a.container, "get-free-item", &FreeItemRequest{ItemID: id})
	if err != nil {
		return nil, err
	}
	return &resp.FreeItem, nil
}

func (a *inventoryAdapter) ListFreeItems(ctx context.Context) ([]catalog.FreeItem, error) {
	resp, err := call[ListFreeItemsRequest, ListFreeItemsResponse](ctx, a.container, "list-free-items", &ListFreeItemsRequest{})
	if err != nil {
		return nil, err
	}
	return resp.FreeItems, nil
}

func (a *inventoryAdapter) AddToCart(ctx context.Context, userID, productID string) (*catalog.CartEntry, error) {
	resp, err := call[AddToCartRequest, AddToCartResponse](ctx, a.container, "add-to-cart", &AddToCartRequest{
		UserID:    userID,
		ProductID: productID,
	})
	if err != nil {
		return nil, err
	}
	return &resp.Entry, nil
}

func (a *inventoryAdapter) RedeemFreeItem(ctx context.Context, itemID, userID string) (*catalog.Download, error) {
	resp, err := call[RedeemFreeItemRequest, RedeemFreeItemResponse](ctx, a.container, "redeem-free-item", &RedeemFreeItemRequest{
		UserID: userID,
		ItemID: itemID,
	})
	if err != nil {
		return nil, err
	}
	return &resp.Download, nil
}

func (a *inventoryAdapter) ClearCart(ctx context.Context, userID string) (int, error) {
	resp, err := call[ClearCartRequest, ClearCartResponse](ctx, a.container, "clear-cart", &ClearCartRequest{UserID: userID})
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *inventoryAdapter) ListCarts(ctx context.Context) ([]catalog.Cart, error) {
	resp, err := call[ListCartsRequest, ListCartsResponse](ctx, a.container, "list-carts", &ListCartsRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Carts, nil
}

func (a *inventoryAdapter) SetRenderedMessage(ctx context.Context, kind catalog.Kind, id, messageID string) error {
	_, err := call[SetMessageRequest, SetMessageResponse](ctx, a.container, "set-message", &SetMessageRequest{
		Kind:      kind,
		ID:        id,
		MessageID: messageID,
	})
	return err
}

func (a *inventoryAdapter) AddProject(ctx context.Context, in AddProjectInput) (*catalog.Project, error) {
	resp, err := call[AddProjectRequest, ProjectResponse](ctx, a.container, "add-project", &AddProjectRequest{
		Name:        in.Name,
		Description: in.Description,
		URL:         in.URL,
		Image:       in.Image,
		Client:      in.Client,
	})
	if err != nil {
		return nil, err
	}
	return &resp.Project, nil
}

func (a *inventoryAdapter) RemoveProject(ctx context.Context, id string) (*catalog.Project, error) {
	resp, err := call[ProjectRequest, ProjectResponse](ctx, a.container, "remove-project", &ProjectRequest{ProjectID: id})
	if err != nil {
		return nil, err
	}
	return &resp.Project, nil
}

func (a *inventoryAdapter) ListProjects(ctx context.Context) ([]catalog.Project, error) {
	resp, err := call[ListProjectsRequest, ListProjectsResponse](ctx, a.container, "list-projects", &ListProjectsRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Projects, nil
}
