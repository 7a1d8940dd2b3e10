package sqlite

import (
	"time"

	"github.com/example/catalog-engine/domain/catalog"
)

type productRow struct {
	ID          string    `gorm:"primarykey;size:32"`
	Name        string    `gorm:"size:200;not null"`
	Description string    `gorm:"not null"`
	Price       string    `gorm:"size:32;not null"`
	Stock       int       `gorm:"not null;default:0;check:stock >= 0"`
	Image       string    `gorm:"size:500"`
	MessageID   string    `gorm:"size:64"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (productRow) TableName() string { return "products" }

func (r productRow) toDomain() catalog.Product {
	return catalog.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
		Image:       r.Image,
		MessageID:   r.MessageID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func productFromDomain(p *catalog.Product) productRow {
	return productRow{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Image:       p.Image,
		MessageID:   p.MessageID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// Stock is NULL for unlimited items.
type freeItemRow struct {
	ID           string    `gorm:"primarykey;size:32"`
	Name         string    `gorm:"size:200;not null"`
	Description  string    `gorm:"not null"`
	DownloadLink string    `gorm:"size:1000;not null"`
	Stock        *int      `gorm:"check:stock IS NULL OR stock >= 0"`
	Image        string    `gorm:"size:500"`
	MessageID    string    `gorm:"size:64"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (freeItemRow) TableName() string { return "free_items" }

func (r freeItemRow) toDomain() catalog.FreeItem {
	return catalog.FreeItem{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		DownloadLink: r.DownloadLink,
		Stock:        r.Stock,
		Image:        r.Image,
		MessageID:    r.MessageID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func freeItemFromDomain(f *catalog.FreeItem) freeItemRow {
	return freeItemRow{
		ID:           f.ID,
		Name:         f.Name,
		Description:  f.Description,
		DownloadLink: f.DownloadLink,
		Stock:        f.Stock,
		Image:        f.Image,
		MessageID:    f.MessageID,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

type cartRow struct {
	UserID      string    `gorm:"primarykey;size:64"`
	ProductID   string    `gorm:"primarykey;size:32"`
	ProductName string    `gorm:"size:200;not null"`
	Price       string    `gorm:"size:32;not null"`
	AddedAt     time.Time `gorm:"not null;index"`
}

func (cartRow) TableName() string { return "cart_entries" }

func (r cartRow) toDomain() catalog.CartEntry {
	return catalog.CartEntry{
		UserID:      r.UserID,
		ProductID:   r.ProductID,
		ProductName: r.ProductName,
		Price:       r.Price,
		AddedAt:     r.AddedAt,
	}
}

type purchaseRow struct {
	ID                 string    `gorm:"primarykey;size:32"`
	Sequence           int64     `gorm:"uniqueIndex;not null"`
	BuyerID            string    `gorm:"size:64;not null"`
	ProductDescription string    `gorm:"not null"`
	Amount             string    `gorm:"size:32;not null"`
	Note               string
	CreatedAt          time.Time `gorm:"not null"`
}

func (purchaseRow) TableName() string { return "purchases" }

func (r purchaseRow) toDomain() catalog.PurchaseRecord {
	return catalog.PurchaseRecord{
		ID:                 r.ID,
		Sequence:           r.Sequence,
		BuyerID:            r.BuyerID,
		ProductDescription: r.ProductDescription,
		Amount:             r.Amount,
		Note:               r.Note,
		CreatedAt:          r.CreatedAt,
	}
}

type projectRow struct {
	ID          string `gorm:"primarykey;size:32"`
	Name        string `gorm:"size:200;not null"`
	Description string `gorm:"not null"`
	URL         string `gorm:"size:1000"`
	Image       string `gorm:"size:500"`
	Client      string `gorm:"size:200"`
	MessageID   string `gorm:"size:64"`
	CreatedAt   time.Time
}

func (projectRow) TableName() string { return "projects" }

func (r projectRow) toDomain() catalog.Project {
	return catalog.Project{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		URL:         r.URL,
		Image:       r.Image,
		Client:      r.Client,
		MessageID:   r.MessageID,
		CreatedAt:   r.CreatedAt,
	}
}

type counterRow struct {
	Name  string `gorm:"primarykey;size:32"`
	Value int64  `gorm:"not null;default:0"`
}

func (counterRow) TableName() string { return "counters" }
