package inventory

import (
	"context"

	"github.com/example/catalog-engine/domain/catalog"
)

// InventoryPort is the cross-module view of the inventory services.
// Both the request-reply adapter and *Service satisfy it.
type InventoryPort interface {
	AddProduct(ctx context.Context, in AddProductInput) (*catalog.Product, error)
	UpdateProduct(ctx context.Context, id string, patch catalog.ProductPatch) (*catalog.Product, error)
	RemoveProduct(ctx context.Context, id string) (*catalog.Product, error)
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
	ListProducts(ctx context.Context) ([]catalog.Product, error)

	AddFreeItem(ctx context.Context, in AddFreeItemInput) (*catalog.FreeItem, error)
	RemoveFreeItem(ctx context.Context, id string) (*catalog.FreeItem, error)
	GetFreeItem(ctx context.Context, id string) (*catalog.FreeItem, error)
	ListFreeItems(ctx context.Context) ([]catalog.FreeItem, error)

	AddToCart(ctx context.Context, userID, productID string) (*catalog.CartEntry, error)
	RedeemFreeItem(ctx context.Context, itemID, userID string) (*catalog.Download, error)
	ClearCart(ctx context.Context, userID string) (int, error)
	ListCarts(ctx context.Context) ([]catalog.Cart, error)

	SetRenderedMessage(ctx context.Context, kind catalog.Kind, id, messageID string) error

	AddProject(ctx context.Context, in AddProjectInput) (*catalog.Project, error)
	RemoveProject(ctx context.Context, id string) (*catalog.Project, error)
	ListProjects(ctx context.Context) ([]catalog.Project, error)
}

var _ InventoryPort = (*Service)(nil)

// AddProductRequest is the request for the add-product service.
type AddProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
	Image       string `json:"image,omitempty"`
}

// UpdateProductRequest is the request for the update-product service.
type UpdateProductRequest struct {
	ProductID   string  `json:"product_id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Price       *string `json:"price,omitempty"`
	Stock       *int    `json:"stock,omitempty"`
	Image       *string `json:"image,omitempty"`
}

// ProductRequest addresses a single product.
type ProductRequest struct {
	ProductID string `json:"product_id"`
}

// ProductResponse wraps a product.
type ProductResponse struct {
	Product catalog.Product `json:"product"`
}

// ListProductsRequest is the request for the list-products service.
type ListProductsRequest struct{}

// ListProductsResponse is the response for the list-products service.
type ListProductsResponse struct {
	Products []catalog.Product `json:"products"`
	Total    int               `json:"total"`
}

// AddFreeItemRequest is the request for the add-free-item service.
// Omitting Stock creates an unlimited item.
type AddFreeItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Stock       *int   `json:"stock,omitempty"`
	Image       string `json:"image,omitempty"`
}

// FreeItemRequest addresses a single free item.
type FreeItemRequest struct {
	ItemID string `json:"item_id"`
}

// FreeItemResponse wraps a free item.
type FreeItemResponse struct {
	FreeItem catalog.FreeItem `json:"free_item"`
}

// ListFreeItemsRequest is the request for the list-free-items service.
type ListFreeItemsRequest struct{}

// ListFreeItemsResponse is the response for the list-free-items service.
type ListFreeItemsResponse struct {
	FreeItems []catalog.FreeItem `json:"free_items"`
	Total     int                `json:"total"`
}

// AddToCartRequest is the request for the add-to-cart service.
type AddToCartRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
}

// AddToCartResponse is the response for the add-to-cart service.
type AddToCartResponse struct {
	Entry catalog.CartEntry `json:"entry"`
}

// RedeemFreeItemRequest is the request for the redeem-free-item service.
type RedeemFreeItemRequest struct {
	UserID string `json:"user_id"`
	ItemID string `json:"item_id"`
}

// RedeemFreeItemResponse is the response for the redeem-free-item service.
type RedeemFreeItemResponse struct {
	Download catalog.Download `json:"download"`
}

// ClearCartRequest is the request for the clear-cart service.
type ClearCartRequest struct {
	UserID string `json:"user_id"`
}

// ClearCartResponse is the response for the clear-cart service.
type ClearCartResponse struct {
	Removed int `json:"removed"`
}

// ListCartsRequest is the request for the list-carts service.
type ListCartsRequest struct{}

// ListCartsResponse is the response for the list-carts service.
type ListCartsResponse struct {
	Carts []catalog.Cart `json:"carts"`
}

// SetMessageRequest is the request for the set-message service.
type SetMessageRequest struct {
	Kind      catalog.Kind `json:"kind"`
	ID        string       `json:"id"`
	MessageID string       `json:"message_id"`
}

// SetMessageResponse is the response for the set-message service.
type SetMessageResponse struct {
	Updated bool `json:"updated"`
}

// AddProjectRequest is the request for the add-project service.
type AddProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
	Image       string `json:"image,omitempty"`
	Client      string `json:"client,omitempty"`
}

// ProjectRequest addresses a single project.
type ProjectRequest struct {
	ProjectID string `json:"project_id"`
}

// ProjectResponse wraps a project.
type ProjectResponse struct {
	Project catalog.Project `json:"project"`
}

// ListProjectsRequest is the request for the list-projects service.
type ListProjectsRequest struct{}

// ListProjectsResponse is the response for the list-projects service.
type ListProjectsResponse struct {
	Projects []catalog.Project `json:"projects"`
	Total    int               `json:"total"`
}
