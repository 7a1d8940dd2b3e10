// Package ledger keeps the append-only purchase ledger.
package ledger

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

// Module exposes the ledger as request-reply services.
type Module struct {
	storage  StoreProvider
	service  *Service
	eventBus mono.EventBus
	logger   types.Logger
}

var _ mono.Module = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.DependentModule = (*Module)(nil)
var _ mono.EventBusAwareModule = (*Module)(nil)
var _ mono.EventEmitterModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates the ledger module on top of the storage module.
func NewModule(storage StoreProvider, logger types.Logger) *Module {
	return &Module{
		storage: storage,
		logger:  logger.WithModule("ledger"),
	}
}

func (m *Module) Name() string {
	return "ledger"
}

func (m *Module) Dependencies() []string {
	return []string{"storage"}
}

func (m *Module) SetDependencyServiceContainer(_ string, _ mono.ServiceContainer) {}

func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.PurchaseRecordedV1.ToBase(),
	}
}

func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{Healthy: false, Message: "not started"}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// Service returns the ledger service, or nil before Start.
func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "record-purchase", json.Unmarshal, json.Marshal, m.recordPurchase,
	); err != nil {
		return fmt.Errorf("failed to register record-purchase service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-purchase", json.Unmarshal, json.Marshal, m.getPurchase,
	); err != nil {
		return fmt.Errorf("failed to register get-purchase service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-purchases", json.Unmarshal, json.Marshal, m.listPurchases,
	); err != nil {
		return fmt.Errorf("failed to register list-purchases service: %w", err)
	}

	m.logger.Info("Registered services", "services", "record-purchase, get-purchase, list-purchases")
	return nil
}

func (m *Module) Start(_ context.Context) error {
	store := m.storage.Store()
	if store == nil {
		return fmt.Errorf("store not available: storage module not started")
	}
	if m.eventBus == nil {
		m.logger.Warn("Event bus not set, events will not be published")
	}

	m.service = NewService(store, m.eventBus, m.logger)
	m.logger.Info("Ledger module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Ledger module stopped")
	return nil
}

func (m *Module) recordPurchase(ctx context.Context, req RecordPurchaseRequest, _ *mono.Msg) (PurchaseResponse, error) {
	if m.service == nil {
		return PurchaseResponse{}, fmt.Errorf("ledger not started")
	}
	rec, err := m.service.RecordPurchase(ctx, RecordPurchaseInput{
		BuyerID:            req.BuyerID,
		ProductDescription: req.ProductDescription,
		Amount:             req.Amount,
		Note:               req.Note,
		RecordedBy:         req.RecordedBy,
	})
	if err != nil {
		return PurchaseResponse{}, err
	}
	return PurchaseResponse{Purchase: *rec}, nil
}

func (m *Module) getPurchase(ctx context.Context, req GetPurchaseRequest, _ *mono.Msg) (PurchaseResponse, error) {
	if m.service == nil {
		return PurchaseResponse{}, fmt.Errorf("ledger not started")
	}
	rec, err := m.service.GetPurchase(ctx, req.PurchaseID)
	if err != nil {
		return PurchaseResponse{}, err
	}
	return PurchaseResponse{Purchase: *rec}, nil
}

func (m *Module) listPurchases(ctx context.Context, _ ListPurchasesRequest, _ *mono.Msg) (ListPurchasesResponse, error) {
	if m.service == nil {
		return ListPurchasesResponse{}, fmt.Errorf("ledger not started")
	}
	records, err := m.service.ListPurchases(ctx)
	if err != nil {
		return ListPurchasesResponse{}, err
	}
	return ListPurchasesResponse{Purchases: records, Total: len(records)}, nil
}
