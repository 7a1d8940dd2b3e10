// Package events defines the typed events exchanged between catalog modules.
package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// ProductAddedEvent is emitted after a product is persisted.
type ProductAddedEvent struct {
	ProductID   string    `json:"product_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Stock       int       `json:"stock"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProductAddedV1 is the typed event definition for product creation.
// Subject: events.inventory.v1.product-added
var ProductAddedV1 = helper.EventDefinition[ProductAddedEvent](
	"inventory", "ProductAdded", "v1",
)

// ProductRemovedEvent is emitted after a product is deleted. MessageID is
// the rendered message to take down, if any.
type ProductRemovedEvent struct {
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	MessageID string    `json:"message_id,omitempty"`
	RemovedAt time.Time `json:"removed_at"`
}

// ProductRemovedV1 is the typed event definition for product removal.
// Subject: events.inventory.v1.product-removed
var ProductRemovedV1 = helper.EventDefinition[ProductRemovedEvent](
	"inventory", "ProductRemoved", "v1",
)

// FreeItemAddedEvent is emitted after a free item is persisted.
type FreeItemAddedEvent struct {
	ItemID      string    `json:"item_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Stock       *int      `json:"stock"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FreeItemAddedV1 is the typed event definition for free item creation.
// Subject: events.inventory.v1.free-item-added
var FreeItemAddedV1 = helper.EventDefinition[FreeItemAddedEvent](
	"inventory", "FreeItemAdded", "v1",
)

// FreeItemRemovedEvent is emitted after a free item is deleted.
type FreeItemRemovedEvent struct {
	ItemID    string    `json:"item_id"`
	Name      string    `json:"name"`
	MessageID string    `json:"message_id,omitempty"`
	RemovedAt time.Time `json:"removed_at"`
}

// FreeItemRemovedV1 is the typed event definition for free item removal.
// Subject: events.inventory.v1.free-item-removed
var FreeItemRemovedV1 = helper.EventDefinition[FreeItemRemovedEvent](
	"inventory", "FreeItemRemoved", "v1",
)

// CartItemAddedEvent is emitted when a user adds a product to their cart.
type CartItemAddedEvent struct {
	UserID      string    `json:"user_id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Price       string    `json:"price"`
	AddedAt     time.Time `json:"added_at"`
}

// CartItemAddedV1 is the typed event definition for cart additions.
// Subject: events.inventory.v1.cart-item-added
var CartItemAddedV1 = helper.EventDefinition[CartItemAddedEvent](
	"inventory", "CartItemAdded", "v1",
)

// CartClearedEvent is emitted when an operator clears a non-empty cart.
type CartClearedEvent struct {
	UserID    string    `json:"user_id"`
	Removed   int       `json:"removed"`
	ClearedAt time.Time `json:"cleared_at"`
}

// CartClearedV1 is the typed event definition for cart clears.
// Subject: events.inventory.v1.cart-cleared
var CartClearedV1 = helper.EventDefinition[CartClearedEvent](
	"inventory", "CartCleared", "v1",
)

// FreeItemRedeemedEvent is emitted when a user redeems a free item.
// Remaining is nil for unlimited items.
type FreeItemRedeemedEvent struct {
	UserID     string    `json:"user_id"`
	ItemID     string    `json:"item_id"`
	Name       string    `json:"name"`
	Remaining  *int      `json:"remaining"`
	RedeemedAt time.Time `json:"redeemed_at"`
}

// FreeItemRedeemedV1 is the typed event definition for redemptions.
// Subject: events.inventory.v1.free-item-redeemed
var FreeItemRedeemedV1 = helper.EventDefinition[FreeItemRedeemedEvent](
	"inventory", "FreeItemRedeemed", "v1",
)

// ProjectAddedEvent is emitted after a portfolio project is persisted.
type ProjectAddedEvent struct {
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	URL         string    `json:"url,omitempty"`
	Image       string    `json:"image,omitempty"`
	Client      string    `json:"client,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProjectAddedV1 is the typed event definition for project creation.
// Subject: events.inventory.v1.project-added
var ProjectAddedV1 = helper.EventDefinition[ProjectAddedEvent](
	"inventory", "ProjectAdded", "v1",
)

// ProjectRemovedEvent is emitted after a portfolio project is deleted.
type ProjectRemovedEvent struct {
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	MessageID string    `json:"message_id,omitempty"`
	RemovedAt time.Time `json:"removed_at"`
}

// ProjectRemovedV1 is the typed event definition for project removal.
// Subject: events.inventory.v1.project-removed
var ProjectRemovedV1 = helper.EventDefinition[ProjectRemovedEvent](
	"inventory", "ProjectRemoved", "v1",
)
