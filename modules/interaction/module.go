// Package interaction renders catalog controls and routes user clicks to
// the inventory engine.
package interaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/example/catalog-engine/events"
	"github.com/example/catalog-engine/modules/inventory"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Channels names where each kind of catalog message is posted.
type Channels struct {
	Shop     string
	Free     string
	Projects string
}

// Module owns the control registry and the click router.
type Module struct {
	inventory inventory.InventoryPort
	registry  *Registry
	router    *Router
	publisher Publisher
	limiter   ClickLimiter
	channels  Channels
	logger    types.Logger

	mu              sync.Mutex
	projectMessages map[string]string
}

var _ mono.Module = (*Module)(nil)
var _ mono.DependentModule = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates the interaction module.
func NewModule(publisher Publisher, channels Channels, logger types.Logger) *Module {
	return &Module{
		registry:        NewRegistry(),
		publisher:       publisher,
		channels:        channels,
		logger:          logger.WithModule("interaction"),
		projectMessages: make(map[string]string),
	}
}

// SetLimiter attaches a click limiter. Must be called before Start.
func (m *Module) SetLimiter(limiter ClickLimiter) {
	m.limiter = limiter
}

// SetInventory wires the engine directly, bypassing the service container.
func (m *Module) SetInventory(port inventory.InventoryPort) {
	m.inventory = port
}

// Registry returns the control registry.
func (m *Module) Registry() *Registry {
	return m.registry
}

// Router returns the click router, or nil before Start.
func (m *Module) Router() *Router {
	return m.router
}

func (m *Module) Name() string {
	return "interaction"
}

func (m *Module) Dependencies() []string {
	return []string{"inventory"}
}

func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "inventory" && m.inventory == nil {
		m.inventory = inventory.NewInventoryAdapter(container)
	}
}

// Start rebuilds the registry from the persisted catalog. No messages are re-sent.
func (m *Module) Start(ctx context.Context) error {
	if m.inventory == nil {
		return fmt.Errorf("inventory dependency not set")
	}

	count, err := m.registry.Rehydrate(ctx, m.inventory)
	if err != nil {
		return fmt.Errorf("failed to rehydrate controls: %w", err)
	}
	m.router = NewRouter(m.inventory, m.registry, m.limiter, m.logger)

	m.logger.Info("Interaction module started", "controls", count, "rate_limited", m.limiter != nil)
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Interaction module stopped")
	return nil
}

func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.router == nil {
		return mono.HealthStatus{Healthy: false, Message: "not started"}
	}

	active := 0
	for _, c := range m.registry.Snapshot() {
		if c.State == StateActive {
			active++
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"active_controls": active},
	}
}

func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "dispatch", json.Unmarshal, json.Marshal, m.dispatch,
	); err != nil {
		return fmt.Errorf("failed to register dispatch service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-controls", json.Unmarshal, json.Marshal, m.listControls,
	); err != nil {
		return fmt.Errorf("failed to register list-controls service: %w", err)
	}

	m.logger.Info("Registered services", "services", "dispatch, list-controls")
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
	if err := helper.RegisterTypedEventConsumer(registry, events.ProjectAddedV1, m.handleProjectAdded, m); err != nil {
		return fmt.Errorf("failed to register ProjectAdded consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.ProjectRemovedV1, m.handleProjectRemoved, m); err != nil {
		return fmt.Errorf("failed to register ProjectRemoved consumer: %w", err)
	}

	m.logger.Info("Registered event consumers", "events", "ProductAdded, ProductRemoved, FreeItemAdded, FreeItemRemoved, ProjectAdded, ProjectRemoved")
	return nil
}

func (m *Module) dispatch(ctx context.Context, req DispatchRequest, _ *mono.Msg) (DispatchResponse, error) {
	if m.router == nil {
		return DispatchResponse{}, fmt.Errorf("interaction not started")
	}
	return DispatchResponse{Response: m.router.Dispatch(ctx, Click(req))}, nil
}

func (m *Module) listControls(_ context.Context, _ ListControlsRequest, _ *mono.Msg) (ListControlsResponse, error) {
	controls := m.registry.Snapshot()
	return ListControlsResponse{Controls: controls, Total: len(controls)}, nil
}

func (m *Module) handleProductAdded(ctx context.Context, evt events.ProductAddedEvent, _ *mono.Msg) error {
	msg, err := RenderProduct(catalog.Product{
		ID:          evt.ProductID,
		Name:        evt.Name,
		Description: evt.Description,
		Price:       evt.Price,
		Stock:       evt.Stock,
		Image:       evt.Image,
	})
	if err != nil {
		m.logger.Warn("Failed to render product", "product_id", evt.ProductID, "error", err)
		return nil
	}
	m.publishControl(ctx, catalog.NewToken(catalog.KindProduct, evt.ProductID), m.channels.Shop, msg)
	return nil
}

func (m *Module) handleFreeItemAdded(ctx context.Context, evt events.FreeItemAddedEvent, _ *mono.Msg) error {
	msg, err := RenderFreeItem(catalog.FreeItem{
		ID:          evt.ItemID,
		Name:        evt.Name,
		Description: evt.Description,
		Stock:       evt.Stock,
		Image:       evt.Image,
	})
	if err != nil {
		m.logger.Warn("Failed to render free item", "item_id", evt.ItemID, "error", err)
		return nil
	}
	m.publishControl(ctx, catalog.NewToken(catalog.KindFreeItem, evt.ItemID), m.channels.Free, msg)
	return nil
}

func (m *Module) handleProductRemoved(ctx context.Context, evt events.ProductRemovedEvent, _ *mono.Msg) error {
	m.retireControl(ctx, catalog.NewToken(catalog.KindProduct, evt.ProductID), m.channels.Shop, evt.MessageID)
	return nil
}

func (m *Module) handleFreeItemRemoved(ctx context.Context, evt events.FreeItemRemovedEvent, _ *mono.Msg) error {
	m.retireControl(ctx, catalog.NewToken(catalog.KindFreeItem, evt.ItemID), m.channels.Free, evt.MessageID)
	return nil
}

func (m *Module) handleProjectAdded(ctx context.Context, evt events.ProjectAddedEvent, _ *mono.Msg) error {
	msgID, err := m.publisher.Post(ctx, m.channels.Projects, RenderProject(catalog.Project{
		ID:          evt.ProjectID,
		Name:        evt.Name,
		Description: evt.Description,
		URL:         evt.URL,
		Image:       evt.Image,
		Client:      evt.Client,
	}))
	if err != nil {
		m.logger.Warn("Failed to post project", "project_id", evt.ProjectID, "error", fmt.Errorf("%w: %w", ErrRender, err))
		return nil
	}

	m.mu.Lock()
	m.projectMessages[evt.ProjectID] = msgID
	m.mu.Unlock()
	return nil
}

func (m *Module) handleProjectRemoved(ctx context.Context, evt events.ProjectRemovedEvent, _ *mono.Msg) error {
	m.mu.Lock()
	msgID := m.projectMessages[evt.ProjectID]
	delete(m.projectMessages, evt.ProjectID)
	m.mu.Unlock()

	if evt.MessageID != "" {
		msgID = evt.MessageID
	}
	m.deleteMessage(ctx, m.channels.Projects, msgID)
	return nil
}

// publishControl posts the message, records its id and activates the
// control. The control is activated even when posting fails so clicks on
// an earlier copy of the message keep working.
func (m *Module) publishControl(ctx context.Context, token catalog.Token, channel string, msg Rendered) {
	if err := m.registry.Bind(token); err != nil {
		m.logger.Warn("Failed to bind control", "token", token.String(), "error", err)
		return
	}

	msgID, err := m.publisher.Post(ctx, channel, msg)
	if err != nil {
		m.logger.Warn("Failed to post catalog message", "token", token.String(), "error", fmt.Errorf("%w: %w", ErrRender, err))
	} else if err := m.inventory.SetRenderedMessage(ctx, token.Kind, token.ID, msgID); err != nil {
		m.logger.Warn("Failed to record rendered message", "token", token.String(), "message_id", msgID, "error", err)
	}

	if err := m.registry.Activate(token, msgID); err != nil {
		switch {
		case errors.Is(err, ErrInvalidTransition):
		case errors.Is(err, ErrControlRetired):
			// Removed while the post was in flight; the message would be orphaned.
			m.logger.Info("Control retired before activation", "token", token.String(), "message_id", msgID)
			m.deleteMessage(ctx, channel, msgID)
			return
		default:
			m.logger.Warn("Failed to activate control", "token", token.String(), "error", err)
			return
		}
	}
	m.logger.Info("Control active", "token", token.String(), "message_id", msgID)
}

func (m *Module) retireControl(ctx context.Context, token catalog.Token, channel, messageID string) {
	prev := m.registry.Retire(token)
	if messageID == "" {
		messageID = prev.MessageID
	}
	m.deleteMessage(ctx, channel, messageID)
	m.logger.Info("Control retired", "token", token.String())
}

func (m *Module) deleteMessage(ctx context.Context, channel, messageID string) {
	if messageID == "" {
		return
	}
	err := m.publisher.Delete(ctx, channel, messageID)
	switch {
	case err == nil:
	case errors.Is(err, ErrMessageNotFound):
		m.logger.Debug("Message already gone", "message_id", messageID)
	default:
		m.logger.Warn("Failed to delete message", "message_id", messageID, "error", fmt.Errorf("%w: %w", ErrRender, err))
	}
}
