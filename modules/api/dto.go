package api

// CreateProductRequest is the HTTP request for adding a product.
type CreateProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
	Image       string `json:"image,omitempty"`
}

// UpdateProductRequest is the HTTP request for editing a product.
// Omitted fields are left unchanged.
type UpdateProductRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Price       *string `json:"price,omitempty"`
	Stock       *int    `json:"stock,omitempty"`
	Image       *string `json:"image,omitempty"`
}

// CreateFreeItemRequest is the HTTP request for adding a free item.
type CreateFreeItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Stock       *int   `json:"stock,omitempty"`
	Image       string `json:"image,omitempty"`
}

// CreatePurchaseRequest is the HTTP request for recording a purchase.
type CreatePurchaseRequest struct {
	BuyerID            string `json:"buyer_id"`
	ProductDescription string `json:"product_description"`
	Amount             string `json:"amount"`
	Note               string `json:"note,omitempty"`
}

// CreateProjectRequest is the HTTP request for adding a portfolio project.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
	Image       string `json:"image,omitempty"`
	Client      string `json:"client,omitempty"`
}

// InteractionRequest is a click forwarded by a chat gateway.
type InteractionRequest struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// ListResponse wraps any listed collection.
type ListResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
}

// ClearCartResponse is the HTTP response for clearing a cart.
type ClearCartResponse struct {
	UserID  string `json:"user_id"`
	Removed int    `json:"removed"`
}

// HealthResponse is the HTTP response for health check.
type HealthResponse struct {
	Status  string                  `json:"status"`
	Modules map[string]ModuleHealth `json:"modules,omitempty"`
}

// ModuleHealth is one module's entry in HealthResponse.
type ModuleHealth struct {
	Healthy bool           `json:"healthy"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the HTTP response for errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
