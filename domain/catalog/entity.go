package catalog

import (
	"fmt"
	"time"
)

// Kind identifies the entity type behind an interactive control.
type Kind string

const (
	KindProduct  Kind = "product"
	KindFreeItem Kind = "free_item"
)

// Counter domains. Each id-bearing entity kind owns one.
const (
	CounterProduct  = "product"
	CounterFreeItem = "free_item"
	CounterPurchase = "purchase"
	CounterProject  = "project"
)

// Product is a paid catalog entry. Price is a normalized decimal string.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Stock       int       `json:"stock"`
	Image       string    `json:"image,omitempty"`
	MessageID   string    `json:"message_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// InStock reports whether the product can be added to a cart.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// FreeItem is a giveaway entry. A nil Stock means unlimited.
type FreeItem struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	DownloadLink string    `json:"download_link"`
	Stock        *int      `json:"stock"`
	Image        string    `json:"image,omitempty"`
	MessageID    string    `json:"message_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Unlimited reports whether the item is never decremented.
func (f *FreeItem) Unlimited() bool {
	return f.Stock == nil
}

// Available reports whether the item can currently be redeemed.
func (f *FreeItem) Available() bool {
	return f.Stock == nil || *f.Stock > 0
}

// CartEntry is a user's claim on a product. Name and price are a
// snapshot taken when the entry was added.
type CartEntry struct {
	UserID      string    `json:"user_id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Price       string    `json:"price"`
	AddedAt     time.Time `json:"added_at"`
}

// Cart groups the entries of one user.
type Cart struct {
	UserID  string      `json:"user_id"`
	Entries []CartEntry `json:"entries"`
}

// PurchaseRecord is an immutable ledger line.
type PurchaseRecord struct {
	ID                 string    `json:"id"`
	Sequence           int64     `json:"sequence"`
	BuyerID            string    `json:"buyer_id"`
	ProductDescription string    `json:"product_description"`
	Amount             string    `json:"amount"`
	Note               string    `json:"note,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// Project is a portfolio entry. It is rendered but carries no control.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	URL         string    `json:"url,omitempty"`
	Image       string    `json:"image,omitempty"`
	Client      string    `json:"client,omitempty"`
	MessageID   string    `json:"message_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Download is what a successful redemption hands to the user.
type Download struct {
	ItemID      string `json:"item_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Link        string `json:"link"`
	// Remaining is nil for unlimited items.
	Remaining *int `json:"remaining"`
}

// ProductPatch carries the mutable product fields. Nil fields are left as is.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *string
	Stock       *int
	Image       *string
	MessageID   *string
}

// FreeItemPatch carries the mutable free item fields. Nil fields are left
// as is; ClearStock switches the item to unlimited.
type FreeItemPatch struct {
	Name         *string
	Description  *string
	DownloadLink *string
	Stock        *int
	ClearStock   bool
	Image        *string
	MessageID    *string
}

// Apply mutates p in place.
func (patch ProductPatch) Apply(p *Product) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.MessageID != nil {
		p.MessageID = *patch.MessageID
	}
}

// Apply mutates f in place.
func (patch FreeItemPatch) Apply(f *FreeItem) {
	if patch.Name != nil {
		f.Name = *patch.Name
	}
	if patch.Description != nil {
		f.Description = *patch.Description
	}
	if patch.DownloadLink != nil {
		f.DownloadLink = *patch.DownloadLink
	}
	switch {
	case patch.ClearStock:
		f.Stock = nil
	case patch.Stock != nil:
		v := *patch.Stock
		f.Stock = &v
	}
	if patch.Image != nil {
		f.Image = *patch.Image
	}
	if patch.MessageID != nil {
		f.MessageID = *patch.MessageID
	}
}

// FormatID renders the public id for a sequence number in the given counter domain.
func FormatID(counter string, seq int64) string {
	switch counter {
	case CounterProduct:
		return fmt.Sprintf("prod_%04d", seq)
	case CounterFreeItem:
		return fmt.Sprintf("free_%04d", seq)
	case CounterPurchase:
		return fmt.Sprintf("NDB-%04d", seq)
	case CounterProject:
		return fmt.Sprintf("proj_%04d", seq)
	default:
		return fmt.Sprintf("%s_%04d", counter, seq)
	}
}

// IDPrefix returns the id prefix used for entities of the given kind.
func IDPrefix(kind Kind) string {
	switch kind {
	case KindProduct:
		return "prod_"
	case KindFreeItem:
		return "free_"
	default:
		return ""
	}
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// StringPtr returns a pointer to v.
func StringPtr(v string) *string {
	return &v
}
