package ledger

import (
	"context"

	"github.com/example/catalog-engine/domain/catalog"
)

// LedgerPort is the cross-module view of the ledger services.
type LedgerPort interface {
	RecordPurchase(ctx context.Context, in RecordPurchaseInput) (*catalog.PurchaseRecord, error)
	GetPurchase(ctx context.Context, id string) (*catalog.PurchaseRecord, error)
	ListPurchases(ctx context.Context) ([]catalog.PurchaseRecord, error)
}

var _ LedgerPort = (*Service)(nil)

// RecordPurchaseRequest is the request for the record-purchase service.
type RecordPurchaseRequest struct {
	BuyerID            string `json:"buyer_id"`
	ProductDescription string `json:"product_description"`
	Amount             string `json:"amount"`
	Note               string `json:"note,omitempty"`
	RecordedBy         string `json:"recorded_by,omitempty"`
}

// GetPurchaseRequest is the request for the get-purchase service.
type GetPurchaseRequest struct {
	PurchaseID string `json:"purchase_id"`
}

// PurchaseResponse wraps a ledger line.
type PurchaseResponse struct {
	Purchase catalog.PurchaseRecord `json:"purchase"`
}

// ListPurchasesRequest is the request for the list-purchases service.
type ListPurchasesRequest struct{}

// ListPurchasesResponse is the response for the list-purchases service.
type ListPurchasesResponse struct {
	Purchases []catalog.PurchaseRecord `json:"purchases"`
	Total     int                      `json:"total"`
}
