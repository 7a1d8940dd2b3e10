// Package notification keeps a bounded audit trail of catalog activity.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/example/catalog-engine/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
)

// DefaultCapacity is the number of entries kept before the oldest are dropped.
const DefaultCapacity = 1000

// AuditEntry is one line of the audit trail.
type AuditEntry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor,omitempty"`
	EntityID  string    `json:"entity_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ListAuditRequest is the request for the list-audit service. A zero
// Limit returns every entry.
type ListAuditRequest struct {
	Limit int `json:"limit,omitempty"`
}

// ListAuditResponse is the response for the list-audit service.
type ListAuditResponse struct {
	Entries []AuditEntry `json:"entries"`
	Total   int          `json:"total"`
}

// Module subscribes to catalog and ledger events and records them.
type Module struct {
	capacity int
	logger   types.Logger

	mu      sync.RWMutex
	entries []AuditEntry
}

var _ mono.Module = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)

// NewModule creates a notification module with DefaultCapacity.
func NewModule(logger types.Logger) *Module {
	return NewModuleWithCapacity(DefaultCapacity, logger)
}

// NewModuleWithCapacity creates a notification module keeping at most
// capacity entries.
func NewModuleWithCapacity(capacity int, logger types.Logger) *Module {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Module{
		capacity: capacity,
		logger:   logger.WithModule("notification"),
		entries:  make([]AuditEntry, 0, capacity),
	}
}

func (m *Module) Name() string {
	return "notification"
}

func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Notification module started", "capacity", m.capacity)
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Notification module stopped", "entries", len(m.Entries()))
	return nil
}

func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "list-audit", json.Unmarshal, json.Marshal, m.listAudit,
	); err != nil {
		return fmt.Errorf("failed to register list-audit service: %w", err)
	}
	return nil
}

func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.ProductAddedV1, m.handleProductAdded, m); err != nil {
		return fmt.Errorf("failed to register ProductAdded consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.ProductRemovedV1, m.handleProductRemoved, m); err != nil {
		return fmt.Errorf("failed to register ProductRemoved consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.FreeItemAddedV1, m.handleFreeItemAdded, m); err != nil {
		return fmt.Errorf("failed to register FreeItemAdded consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.FreeItemRemovedV1, m.handleFreeItemRemoved, m); err != nil {
		return fmt.Errorf("failed to register FreeItemRemoved consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.CartItemAddedV1, m.handleCartItemAdded, m); err != nil {
		return fmt.Errorf("failed to register CartItemAdded consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.CartClearedV1, m.handleCartCleared, m); err != nil {
		return fmt.Errorf("failed to register CartCleared consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.FreeItemRedeemedV1, m.handleFreeItemRedeemed, m); err != nil {
		return fmt.Errorf("failed to register FreeItemRedeemed consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.ProjectAddedV1, m.handleProjectAdded, m); err != nil {
		return fmt.Errorf("failed to register ProjectAdded consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.ProjectRemovedV1, m.handleProjectRemoved, m); err != nil {
		return fmt.Errorf("failed to register ProjectRemoved consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.PurchaseRecordedV1, m.handlePurchaseRecorded, m); err != nil {
		return fmt.Errorf("failed to register PurchaseRecorded consumer: %w", err)
	}

	m.logger.Info("Registered event consumers", "count", 10)
	return nil
}

func (m *Module) handleProductAdded(_ context.Context, evt events.ProductAddedEvent, _ *mono.Msg) error {
	m.record("product_added", "", evt.ProductID,
		fmt.Sprintf("Product %q added at R$ %s with %d in stock", evt.Name, evt.Price, evt.Stock))
	return nil
}

func (m *Module) handleProductRemoved(_ context.Context, evt events.ProductRemovedEvent, _ *mono.Msg) error {
	m.record("product_removed", "", evt.ProductID, fmt.Sprintf("Product %q removed", evt.Name))
	return nil
}

func (m *Module) handleFreeItemAdded(_ context.Context, evt events.FreeItemAddedEvent, _ *mono.Msg) error {
	m.record("free_item_added", "", evt.ItemID, fmt.Sprintf("Free item %q added (%s)", evt.Name, stockLabel(evt.Stock)))
	return nil
}

func (m *Module) handleFreeItemRemoved(_ context.Context, evt events.FreeItemRemovedEvent, _ *mono.Msg) error {
	m.record("free_item_removed", "", evt.ItemID, fmt.Sprintf("Free item %q removed", evt.Name))
	return nil
}

func (m *Module) handleCartItemAdded(_ context.Context, evt events.CartItemAddedEvent, _ *mono.Msg) error {
	m.record("cart_item_added", evt.UserID, evt.ProductID,
		fmt.Sprintf("User %s added %q (R$ %s) to their cart", evt.UserID, evt.ProductName, evt.Price))
	return nil
}

func (m *Module) handleCartCleared(_ context.Context, evt events.CartClearedEvent, _ *mono.Msg) error {
	m.record("cart_cleared", "", evt.UserID, fmt.Sprintf("Cart of %s cleared, %d entries removed", evt.UserID, evt.Removed))
	return nil
}

func (m *Module) handleFreeItemRedeemed(_ context.Context, evt events.FreeItemRedeemedEvent, _ *mono.Msg) error {
	m.record("free_item_redeemed", evt.UserID, evt.ItemID,
		fmt.Sprintf("User %s redeemed %q (%s left)", evt.UserID, evt.Name, stockLabel(evt.Remaining)))
	return nil
}

func (m *Module) handleProjectAdded(_ context.Context, evt events.ProjectAddedEvent, _ *mono.Msg) error {
	m.record("project_added", "", evt.ProjectID, fmt.Sprintf("Project %q added", evt.Name))
	return nil
}

func (m *Module) handleProjectRemoved(_ context.Context, evt events.ProjectRemovedEvent, _ *mono.Msg) error {
	m.record("project_removed", "", evt.ProjectID, fmt.Sprintf("Project %q removed", evt.Name))
	return nil
}

func (m *Module) handlePurchaseRecorded(_ context.Context, evt events.PurchaseRecordedEvent, _ *mono.Msg) error {
	m.record("purchase_recorded", evt.RecordedBy, evt.PurchaseID,
		fmt.Sprintf("Purchase %s: %s bought %q for R$ %s", evt.PurchaseID, evt.BuyerID, evt.ProductDescription, evt.Amount))
	return nil
}

func (m *Module) listAudit(_ context.Context, req ListAuditRequest, _ *mono.Msg) (ListAuditResponse, error) {
	entries := m.Entries()
	total := len(entries)
	if req.Limit > 0 && req.Limit < total {
		entries = entries[total-req.Limit:]
	}
	return ListAuditResponse{Entries: entries, Total: total}, nil
}

func (m *Module) record(action, actor, entityID, message string) {
	entry := AuditEntry{
		ID:        uuid.New().String(),
		Action:    action,
		Actor:     actor,
		EntityID:  entityID,
		Message:   message,
		Timestamp: time.Now(),
	}

	m.mu.Lock()
	if len(m.entries) >= m.capacity {
		n := copy(m.entries, m.entries[len(m.entries)-m.capacity+1:])
		m.entries = m.entries[:n]
	}
	m.entries = append(m.entries, entry)
	m.mu.Unlock()

	m.logger.Info(message, "action", action, "actor", actor, "entity_id", entityID)
}

// Entries returns a copy of the audit trail, oldest first.
func (m *Module) Entries() []AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]AuditEntry, len(m.entries))
	copy(result, m.entries)
	return result
}

func stockLabel(stock *int) string {
	if stock == nil {
		return "unlimited"
	}
	return fmt.Sprintf("%d", *stock)
}
