package interaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/example/catalog-engine/modules/inventory"
	"github.com/example/catalog-engine/modules/storage/sqlite"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)         {}
func (m *mockLogger) Info(msg string, args ...any)          {}
func (m *mockLogger) Warn(msg string, args ...any)          {}
func (m *mockLogger) Error(msg string, args ...any)         {}
func (m *mockLogger) With(args ...any) types.Logger         { return m }
func (m *mockLogger) WithError(err error) types.Logger      { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

type fakeEngine struct {
	calls    int
	cartErr  error
	redeemFn func() (*catalog.Download, error)
}

func (f *fakeEngine) AddToCart(_ context.Context, userID, productID string) (*catalog.CartEntry, error) {
	f.calls++
	if f.cartErr != nil {
		return nil, f.cartErr
	}
	return &catalog.CartEntry{UserID: userID, ProductID: productID, ProductName: "Logo Design"}, nil
}

func (f *fakeEngine) RedeemFreeItem(_ context.Context, itemID, _ string) (*catalog.Download, error) {
	f.calls++
	if f.redeemFn != nil {
		return f.redeemFn()
	}
	return &catalog.Download{ItemID: itemID, Name: "Icons", Description: "Free icons", Link: "https://example.com/i.zip"}, nil
}

type fakeLimiter struct {
	allow bool
	err   error
}

func (f *fakeLimiter) AllowClick(context.Context, string) (bool, error) {
	return f.allow, f.err
}

func encode(t *testing.T, kind catalog.Kind, id string) string {
	t.Helper()
	s, err := catalog.NewToken(kind, id).Encode()
	require.NoError(t, err)
	return s
}

func TestRouter_MessageMapping(t *testing.T) {
	tests := []struct {
		name    string
		kind    catalog.Kind
		id      string
		cartErr error
		redeem  error
		want    Result
		message string
	}{
		{"product added", catalog.KindProduct, "prod_0001", nil, nil, ResultAdded,
			"**Logo Design** added to your cart! Wait for the administrator to contact you to complete your purchase."},
		{"product missing", catalog.KindProduct, "prod_0001", catalog.ErrNotFound, nil, ResultNotFound, MsgProductNotFound},
		{"product out of stock", catalog.KindProduct, "prod_0001", catalog.ErrOutOfStock, nil, ResultOutOfStock, MsgProductOutOfStock},
		{"product duplicate", catalog.KindProduct, "prod_0001", fmt.Errorf("wrapped: %w", catalog.ErrDuplicateEntry), nil, ResultDuplicate, MsgAlreadyInCart},
		{"product persistence", catalog.KindProduct, "prod_0001", catalog.ErrPersistence, nil, ResultFailed, MsgGenericFailure},
		{"item missing", catalog.KindFreeItem, "free_0001", nil, catalog.ErrNotFound, ResultNotFound, MsgItemNotFound},
		{"item sold out", catalog.KindFreeItem, "free_0001", nil, catalog.ErrOutOfStock, ResultOutOfStock, MsgItemSoldOut},
		{"item unexpected", catalog.KindFreeItem, "free_0001", nil, errors.New("io"), ResultFailed, MsgGenericFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{cartErr: tt.cartErr}
			if tt.redeem != nil {
				engine.redeemFn = func() (*catalog.Download, error) { return nil, tt.redeem }
			}
			router := NewRouter(engine, NewRegistry(), nil, &mockLogger{})

			resp := router.Dispatch(context.Background(), Click{Token: encode(t, tt.kind, tt.id), UserID: "u1"})
			assert.Equal(t, tt.want, resp.Result)
			assert.Equal(t, tt.message, resp.Message)
			assert.True(t, resp.Ephemeral)
			assert.Equal(t, tt.id, resp.EntityID)
		})
	}
}

func TestRouter_RedeemMessage(t *testing.T) {
	router := NewRouter(&fakeEngine{}, NewRegistry(), nil, &mockLogger{})

	resp := router.Dispatch(context.Background(), Click{Token: encode(t, catalog.KindFreeItem, "free_0003"), UserID: "u1"})
	assert.Equal(t, ResultRedeemed, resp.Result)
	assert.Contains(t, resp.Message, "Icons")
	assert.Contains(t, resp.Message, "Free icons")
	assert.Contains(t, resp.Message, "https://example.com/i.zip")
	require.NotNil(t, resp.Download)
}

func TestRouter_BadTokenNeverReachesEngine(t *testing.T) {
	engine := &fakeEngine{}
	router := NewRouter(engine, NewRegistry(), nil, &mockLogger{})

	for _, raw := range []string{"", "carrinho_btn", `{"k":"product","id":"free_0001"}`, `{"k":"product","id":"prod_0001","x":1}`} {
		resp := router.Dispatch(context.Background(), Click{Token: raw, UserID: "u1"})
		assert.Equal(t, ResultNotFound, resp.Result, raw)
	}
	assert.Zero(t, engine.calls)
}

func TestRouter_RetiredTokenShortCircuits(t *testing.T) {
	engine := &fakeEngine{}
	registry := NewRegistry()
	registry.Retire(catalog.NewToken(catalog.KindProduct, "prod_0001"))
	router := NewRouter(engine, registry, nil, &mockLogger{})

	resp := router.Dispatch(context.Background(), Click{Token: encode(t, catalog.KindProduct, "prod_0001"), UserID: "u1"})
	assert.Equal(t, MsgProductNotFound, resp.Message)
	assert.Zero(t, engine.calls)
}

func TestRouter_NotFoundRetiresAndSuccessRegisters(t *testing.T) {
	registry := NewRegistry()
	engine := &fakeEngine{}
	router := NewRouter(engine, registry, nil, &mockLogger{})
	tok := catalog.NewToken(catalog.KindProduct, "prod_0005")

	router.Dispatch(context.Background(), Click{Token: encode(t, tok.Kind, tok.ID), UserID: "u1"})
	c, ok := registry.Lookup(tok)
	require.True(t, ok)
	assert.Equal(t, StateActive, c.State)

	engine.cartErr = catalog.ErrNotFound
	router.Dispatch(context.Background(), Click{Token: encode(t, tok.Kind, tok.ID), UserID: "u2"})
	c, _ = registry.Lookup(tok)
	assert.Equal(t, StateRetired, c.State)

	engine.cartErr = nil
	resp := router.Dispatch(context.Background(), Click{Token: encode(t, tok.Kind, tok.ID), UserID: "u3"})
	assert.Equal(t, MsgProductNotFound, resp.Message)
	assert.Equal(t, 2, engine.calls)
}

func TestRouter_StorageFailureKeepsControlActive(t *testing.T) {
	registry := NewRegistry()
	tok := catalog.NewToken(catalog.KindProduct, "prod_0006")
	require.NoError(t, registry.Register(tok, "msg-6"))

	engine := &fakeEngine{
		cartErr: catalog.FromServiceError(errors.New("get product: persistence failure: nats: stream not found")),
	}
	router := NewRouter(engine, registry, nil, &mockLogger{})

	resp := router.Dispatch(context.Background(), Click{Token: encode(t, tok.Kind, tok.ID), UserID: "u1"})
	assert.Equal(t, ResultFailed, resp.Result)
	assert.Equal(t, MsgGenericFailure, resp.Message)

	c, ok := registry.Lookup(tok)
	require.True(t, ok)
	assert.Equal(t, StateActive, c.State)
}

func TestRouter_Limiter(t *testing.T) {
	engine := &fakeEngine{}
	limiter := &fakeLimiter{allow: false}
	router := NewRouter(engine, NewRegistry(), limiter, &mockLogger{})
	token := encode(t, catalog.KindProduct, "prod_0001")

	resp := router.Dispatch(context.Background(), Click{Token: token, UserID: "u1"})
	assert.Equal(t, ResultRateLimited, resp.Result)
	assert.Equal(t, MsgSlowDown, resp.Message)
	assert.Zero(t, engine.calls)

	// A limiter outage lets clicks through.
	limiter.err = errors.New("redis down")
	resp = router.Dispatch(context.Background(), Click{Token: token, UserID: "u1"})
	assert.Equal(t, ResultAdded, resp.Result)
}

func TestRouter_RecoversPanic(t *testing.T) {
	engine := &fakeEngine{redeemFn: func() (*catalog.Download, error) { panic("boom") }}
	router := NewRouter(engine, NewRegistry(), nil, &mockLogger{})

	resp := router.Dispatch(context.Background(), Click{Token: encode(t, catalog.KindFreeItem, "free_0001"), UserID: "u1"})
	assert.Equal(t, ResultFailed, resp.Result)
	assert.Equal(t, MsgGenericFailure, resp.Message)
}

func TestRouter_WebsiteProScenario(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := inventory.NewService(store, nil, &mockLogger{})
	registry := NewRegistry()
	router := NewRouter(svc, registry, nil, &mockLogger{})

	p, err := svc.AddProduct(ctx, inventory.AddProductInput{
		Name:        "Website Pro",
		Description: "Full website",
		Price:       "199.90",
		Stock:       2,
	})
	require.NoError(t, err)

	n, err := registry.Rehydrate(ctx, svc)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	token := encode(t, catalog.KindProduct, p.ID)
	for _, user := range []string{"u1", "u2", "u3"} {
		resp := router.Dispatch(ctx, Click{Token: token, UserID: user})
		assert.Equal(t, ResultAdded, resp.Result, user)
		assert.True(t, strings.HasPrefix(resp.Message, "**Website Pro** added to your cart!"))
	}

	resp := router.Dispatch(ctx, Click{Token: token, UserID: "u1"})
	assert.Equal(t, MsgAlreadyInCart, resp.Message)

	got, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)

	_, err = svc.RemoveProduct(ctx, p.ID)
	require.NoError(t, err)

	resp = router.Dispatch(ctx, Click{Token: token, UserID: "u4"})
	assert.Equal(t, MsgProductNotFound, resp.Message)

	c, ok := registry.Lookup(catalog.NewToken(catalog.KindProduct, p.ID))
	require.True(t, ok)
	assert.Equal(t, StateRetired, c.State)
}
