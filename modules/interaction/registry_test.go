package interaction

import (
	"context"
	"errors"
	"testing"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Lifecycle(t *testing.T) {
	r := NewRegistry()
	tok := catalog.NewToken(catalog.KindProduct, "prod_0001")

	_, ok := r.Lookup(tok)
	assert.False(t, ok)

	assert.ErrorIs(t, r.Activate(tok, "m1"), ErrInvalidTransition)

	require.NoError(t, r.Bind(tok))
	c, ok := r.Lookup(tok)
	require.True(t, ok)
	assert.Equal(t, StateBound, c.State)

	require.NoError(t, r.Activate(tok, "m1"))
	c, _ = r.Lookup(tok)
	assert.Equal(t, StateActive, c.State)
	assert.Equal(t, "m1", c.MessageID)

	// Re-binding an active control changes nothing.
	require.NoError(t, r.Bind(tok))
	c, _ = r.Lookup(tok)
	assert.Equal(t, StateActive, c.State)

	assert.ErrorIs(t, r.Activate(tok, "m2"), ErrInvalidTransition)

	prev := r.Retire(tok)
	assert.Equal(t, "m1", prev.MessageID)
	c, _ = r.Lookup(tok)
	assert.Equal(t, StateRetired, c.State)

	assert.ErrorIs(t, r.Bind(tok), ErrControlRetired)
	assert.ErrorIs(t, r.Register(tok, "m3"), ErrControlRetired)
	assert.ErrorIs(t, r.Activate(tok, "m3"), ErrControlRetired)
}

func TestRegistry_RetireUnknown(t *testing.T) {
	r := NewRegistry()
	tok := catalog.NewToken(catalog.KindFreeItem, "free_0007")

	prev := r.Retire(tok)
	assert.Equal(t, StateUnbound, prev.State)

	c, ok := r.Lookup(tok)
	require.True(t, ok)
	assert.Equal(t, StateRetired, c.State)
}

func TestRegistry_RejectsInvalidToken(t *testing.T) {
	r := NewRegistry()
	err := r.Bind(catalog.NewToken(catalog.KindProduct, "free_0001"))
	assert.ErrorIs(t, err, catalog.ErrInvalidToken)
}

type fakeSource struct {
	products []catalog.Product
	items    []catalog.FreeItem
	err      error
}

func (f *fakeSource) ListProducts(context.Context) ([]catalog.Product, error) {
	return f.products, f.err
}

func (f *fakeSource) ListFreeItems(context.Context) ([]catalog.FreeItem, error) {
	return f.items, f.err
}

func TestRegistry_Rehydrate(t *testing.T) {
	r := NewRegistry()
	src := &fakeSource{
		products: []catalog.Product{{ID: "prod_0002", MessageID: "m2"}, {ID: "prod_0001"}},
		items:    []catalog.FreeItem{{ID: "free_0001", MessageID: "m9"}},
	}

	n, err := r.Rehydrate(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "free_0001", snap[0].Token.ID)
	assert.Equal(t, "prod_0001", snap[1].Token.ID)
	assert.Equal(t, "prod_0002", snap[2].Token.ID)
	for _, c := range snap {
		assert.Equal(t, StateActive, c.State)
	}
	assert.Equal(t, "m2", snap[2].MessageID)

	_, err = r.Rehydrate(context.Background(), &fakeSource{err: errors.New("boom")})
	assert.Error(t, err)
}
