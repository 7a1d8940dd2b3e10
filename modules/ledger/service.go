package ledger

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

// RecordPurchaseInput holds the operator's fields for a ledger line.
type RecordPurchaseInput struct {
	BuyerID            string
	ProductDescription string
	Amount             string
	Note               string
	RecordedBy         string
}

// Service numbers and stores purchase records.
type Service struct {
	store  catalog.Store
	bus    mono.EventBus
	logger types.Logger
}

// NewService creates a ledger Service. bus may be nil.
func NewService(store catalog.Store, bus mono.EventBus, logger types.Logger) *Service {
	return &Service{store: store, bus: bus, logger: logger}
}

// RecordPurchase validates the input and appends it to the ledger under
// the next NDB- number. The number is allocated in the same atomic step
// as the insert.
func (s *Service) RecordPurchase(ctx context.Context, in RecordPurchaseInput) (*catalog.PurchaseRecord, error) {
	if strings.TrimSpace(in.BuyerID) == "" {
		return nil, fmt.Errorf("%w: buyer_id is required", catalog.ErrInvalidInput)
	}
	if strings.TrimSpace(in.ProductDescription) == "" {
		return nil, fmt.Errorf("%w: product_description is required", catalog.ErrInvalidInput)
	}
	amount, err := catalog.NormalizeAmount(in.Amount)
	if err != nil {
		return nil, err
	}

	rec := &catalog.PurchaseRecord{
		BuyerID:            strings.TrimSpace(in.BuyerID),
		ProductDescription: in.ProductDescription,
		Amount:             amount,
		Note:               in.Note,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.store.CreatePurchase(ctx, rec); err != nil {
		s.logger.Error("Failed to record purchase", "buyer_id", rec.BuyerID, "error", err)
		return nil, err
	}

	s.logger.Info("Purchase recorded", "id", rec.ID, "buyer_id", rec.BuyerID, "amount", rec.Amount)

	if s.bus != nil {
		evt := events.PurchaseRecordedEvent{
			PurchaseID:         rec.ID,
			BuyerID:            rec.BuyerID,
			ProductDescription: rec.ProductDescription,
			Amount:             rec.Amount,
			Note:               rec.Note,
			RecordedBy:         in.RecordedBy,
			CreatedAt:          rec.CreatedAt,
		}
		if err := events.PurchaseRecordedV1.Publish(s.bus, evt, nil); err != nil {
			s.logger.Warn("Failed to publish PurchaseRecorded event", "id", rec.ID, "error", err)
		}
	}
	return rec, nil
}

// GetPurchase returns a ledger line by id.
func (s *Service) GetPurchase(ctx context.Context, id string) (*catalog.PurchaseRecord, error) {
	return s.store.GetPurchase(ctx, id)
}

// ListPurchases returns the ledger ordered by sequence.
func (s *Service) ListPurchases(ctx context.Context) ([]catalog.PurchaseRecord, error) {
	return s.store.ListPurchases(ctx)
}
