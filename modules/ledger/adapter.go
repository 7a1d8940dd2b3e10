package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ledgerAdapter implements LedgerPort over the ledger services.
type ledgerAdapter struct {
	container mono.ServiceContainer
}

// NewLedgerAdapter creates an adapter for the ledger services.
func NewLedgerAdapter(container mono.ServiceContainer) LedgerPort {
	if container == nil {
		panic("ledger adapter requires non-nil ServiceContainer")
	}
	return &ledgerAdapter{container: container}
}

// RecordPurchase records a purchase via the record-purchase service.
func (a *ledgerAdapter) RecordPurchase(ctx context.Context, in RecordPurchaseInput) (*catalog.PurchaseRecord, error) {
	req := RecordPurchaseRequest{
		BuyerID:            in.BuyerID,
		ProductDescription: in.ProductDescription,
		Amount:             in.Amount,
		Note:               in.Note,
		RecordedBy:         in.RecordedBy,
	}
	var resp PurchaseResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"record-purchase",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("record-purchase service call failed: %w", catalog.FromServiceError(err))
	}
	return &resp.Purchase, nil
}

// GetPurchase retrieves a ledger line via the get-purchase service.
func (a *ledgerAdapter) GetPurchase(ctx context.Context, id string) (*catalog.PurchaseRecord, error) {
	req := GetPurchaseRequest{PurchaseID: id}
	var resp PurchaseResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-purchase",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get-purchase service call failed: %w", catalog.FromServiceError(err))
	}
	return &resp.Purchase, nil
}

// ListPurchases lists the ledger via the list-purchases service.
func (a *ledgerAdapter) ListPurchases(ctx context.Context) ([]catalog.PurchaseRecord, error) {
	req := ListPurchasesRequest{}
	var resp ListPurchasesResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"list-purchases",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("list-purchases service call failed: %w", catalog.FromServiceError(err))
	}
	return resp.Purchases, nil
}
