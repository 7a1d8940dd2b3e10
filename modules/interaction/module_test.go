package interaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/example/catalog-engine/events"
	"github.com/example/catalog-engine/modules/inventory"
	"github.com/example/catalog-engine/modules/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPublisher struct{}

func (failingPublisher) Post(context.Context, string, Rendered) (string, error) {
	return "", errors.New("channel unreachable")
}

func (failingPublisher) Delete(context.Context, string, string) error {
	return errors.New("channel unreachable")
}

// hookPublisher runs afterPost once a message is posted, before Post returns.
type hookPublisher struct {
	*LogPublisher
	afterPost func(messageID string)
}

func (h *hookPublisher) Post(ctx context.Context, channel string, msg Rendered) (string, error) {
	id, err := h.LogPublisher.Post(ctx, channel, msg)
	if err == nil && h.afterPost != nil {
		h.afterPost(id)
	}
	return id, err
}

func newTestModule(t *testing.T, publisher Publisher) (*Module, *inventory.Service) {
	t.Helper()
	store, err := sqlite.Open(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := inventory.NewService(store, nil, &mockLogger{})
	m := NewModule(publisher, Channels{Shop: "shop", Free: "free", Projects: "projects"}, &mockLogger{})
	m.SetInventory(svc)
	require.NoError(t, m.Start(context.Background()))
	return m, svc
}

func TestModule_ProductLifecycle(t *testing.T) {
	ctx := context.Background()
	pub, err := NewLogPublisher(&mockLogger{})
	require.NoError(t, err)
	m, svc := newTestModule(t, pub)

	p, err := svc.AddProduct(ctx, inventory.AddProductInput{Name: "Logo", Description: "d", Price: "50", Stock: 1})
	require.NoError(t, err)

	require.NoError(t, m.handleProductAdded(ctx, events.ProductAddedEvent{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		CreatedAt:   time.Now(),
	}, nil))

	tok := catalog.NewToken(catalog.KindProduct, p.ID)
	c, ok := m.Registry().Lookup(tok)
	require.True(t, ok)
	assert.Equal(t, StateActive, c.State)
	require.NotEmpty(t, c.MessageID)
	assert.True(t, pub.Posted(c.MessageID))

	stored, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, c.MessageID, stored.MessageID)

	removed, err := svc.RemoveProduct(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, m.handleProductRemoved(ctx, events.ProductRemovedEvent{
		ProductID: p.ID,
		MessageID: removed.MessageID,
	}, nil))

	c, _ = m.Registry().Lookup(tok)
	assert.Equal(t, StateRetired, c.State)
	assert.False(t, pub.Posted(removed.MessageID))

	// A second removal finds the message already gone and is not an error.
	require.NoError(t, m.handleProductRemoved(ctx, events.ProductRemovedEvent{ProductID: p.ID, MessageID: removed.MessageID}, nil))
}

func TestModule_RemovedWhilePostingDeletesMessage(t *testing.T) {
	ctx := context.Background()
	inner, err := NewLogPublisher(&mockLogger{})
	require.NoError(t, err)
	pub := &hookPublisher{LogPublisher: inner}
	m, svc := newTestModule(t, pub)

	p, err := svc.AddProduct(ctx, inventory.AddProductInput{Name: "Logo", Description: "d", Price: "50", Stock: 1})
	require.NoError(t, err)

	var posted string
	pub.afterPost = func(id string) {
		posted = id
		require.NoError(t, m.handleProductRemoved(ctx, events.ProductRemovedEvent{ProductID: p.ID}, nil))
	}

	require.NoError(t, m.handleProductAdded(ctx, events.ProductAddedEvent{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		CreatedAt:   time.Now(),
	}, nil))

	require.NotEmpty(t, posted)
	assert.False(t, inner.Posted(posted))

	c, ok := m.Registry().Lookup(catalog.NewToken(catalog.KindProduct, p.ID))
	require.True(t, ok)
	assert.Equal(t, StateRetired, c.State)
}

func TestModule_RenderFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	m, svc := newTestModule(t, failingPublisher{})

	f, err := svc.AddFreeItem(ctx, inventory.AddFreeItemInput{Name: "Icons", Description: "d", Link: "https://example.com"})
	require.NoError(t, err)

	require.NoError(t, m.handleFreeItemAdded(ctx, events.FreeItemAddedEvent{ItemID: f.ID, Name: f.Name, Description: f.Description}, nil))

	c, ok := m.Registry().Lookup(catalog.NewToken(catalog.KindFreeItem, f.ID))
	require.True(t, ok)
	assert.Equal(t, StateActive, c.State)
	assert.Empty(t, c.MessageID)

	resp := m.Router().Dispatch(ctx, Click{Token: encode(t, catalog.KindFreeItem, f.ID), UserID: "u1"})
	assert.Equal(t, ResultRedeemed, resp.Result)

	require.NoError(t, m.handleFreeItemRemoved(ctx, events.FreeItemRemovedEvent{ItemID: f.ID, MessageID: "gone"}, nil))
	require.NoError(t, m.handleProjectAdded(ctx, events.ProjectAddedEvent{ProjectID: "proj_0001", Name: "Acme"}, nil))
}

func TestModule_RehydrateOnStart(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := inventory.NewService(store, nil, &mockLogger{})
	_, err = svc.AddProduct(ctx, inventory.AddProductInput{Name: "A", Description: "d", Price: "1", Stock: 1})
	require.NoError(t, err)
	_, err = svc.AddFreeItem(ctx, inventory.AddFreeItemInput{Name: "B", Description: "d", Link: "l"})
	require.NoError(t, err)

	pub, err := NewLogPublisher(&mockLogger{})
	require.NoError(t, err)
	m := NewModule(pub, Channels{Shop: "shop", Free: "free"}, &mockLogger{})
	m.SetInventory(svc)
	require.NoError(t, m.Start(ctx))

	assert.Len(t, m.Registry().Snapshot(), 2)
	assert.True(t, m.Health(ctx).Healthy)
	assert.Equal(t, 2, m.Health(ctx).Details["active_controls"])
}

func TestModule_Projects(t *testing.T) {
	ctx := context.Background()
	pub, err := NewLogPublisher(&mockLogger{})
	require.NoError(t, err)
	m, _ := newTestModule(t, pub)

	require.NoError(t, m.handleProjectAdded(ctx, events.ProjectAddedEvent{ProjectID: "proj_0001", Name: "Acme", Description: "d"}, nil))

	m.mu.Lock()
	msgID := m.projectMessages["proj_0001"]
	m.mu.Unlock()
	require.NotEmpty(t, msgID)
	assert.True(t, pub.Posted(msgID))

	require.NoError(t, m.handleProjectRemoved(ctx, events.ProjectRemovedEvent{ProjectID: "proj_0001"}, nil))
	assert.False(t, pub.Posted(msgID))
}

func TestRenderers(t *testing.T) {
	msg, err := RenderProduct(catalog.Product{ID: "prod_0001", Name: "Logo", Description: "d", Price: "10.00", Stock: 3})
	require.NoError(t, err)
	assert.Equal(t, `{"k":"product","id":"prod_0001"}`, msg.Token)
	assert.Contains(t, msg.Body, "10.00")

	item, err := RenderFreeItem(catalog.FreeItem{ID: "free_0001", Name: "Icons", Description: "d"})
	require.NoError(t, err)
	assert.Contains(t, item.Body, "unlimited")

	_, err = RenderFreeItem(catalog.FreeItem{ID: "prod_0001"})
	assert.ErrorIs(t, err, catalog.ErrInvalidToken)

	proj := RenderProject(catalog.Project{ID: "proj_0001", Name: "Acme", Description: "d", Client: "Acme Inc"})
	assert.Empty(t, proj.Token)
	assert.Contains(t, proj.Body, "Acme Inc")
}
