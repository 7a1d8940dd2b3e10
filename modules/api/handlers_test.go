package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/example/catalog-engine/modules/interaction"
	"github.com/example/catalog-engine/modules/inventory"
	"github.com/example/catalog-engine/modules/ledger"
	"github.com/example/catalog-engine/modules/storage/sqlite"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
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

type routerPort struct {
	router *interaction.Router
}

func (p routerPort) Dispatch(ctx context.Context, click interaction.Click) (interaction.Response, error) {
	return p.router.Dispatch(ctx, click), nil
}

type staticHealth struct {
	name   string
	status mono.HealthStatus
}

func (s staticHealth) Name() string                              { return s.name }
func (s staticHealth) Health(context.Context) mono.HealthStatus { return s.status }

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	store, err := sqlite.Open(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	inv := inventory.NewService(store, nil, &mockLogger{})
	led := ledger.NewService(store, nil, &mockLogger{})
	router := interaction.NewRouter(inv, interaction.NewRegistry(), nil, &mockLogger{})

	m := NewModuleWithPorts(inv, led, routerPort{router: router}, &mockLogger{})
	m.AddHealthReporters(staticHealth{name: "storage", status: mono.HealthStatus{Healthy: true, Message: "operational"}})
	return m.App()
}

func do(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestAPI_ProductFlow(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, http.MethodPost, "/api/v1/products", CreateProductRequest{
		Name: "Website Pro", Description: "Full website", Price: "199.90", Stock: 2,
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "prod_0001", body["id"])

	token, err := catalog.NewToken(catalog.KindProduct, "prod_0001").Encode()
	require.NoError(t, err)

	status, body = do(t, app, http.MethodPost, "/api/v1/interactions", InteractionRequest{Token: token, UserID: "u1"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "added", body["result"])

	status, body = do(t, app, http.MethodPost, "/api/v1/interactions", InteractionRequest{Token: token, UserID: "u1"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, interaction.MsgAlreadyInCart, body["message"])

	status, body = do(t, app, http.MethodGet, "/api/v1/carts", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])

	status, body = do(t, app, http.MethodPatch, "/api/v1/products/prod_0001", map[string]any{"stock": 0})
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 0, body["stock"])

	status, body = do(t, app, http.MethodDelete, "/api/v1/carts/u1", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["removed"])

	status, _ = do(t, app, http.MethodDelete, "/api/v1/products/prod_0001", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, body = do(t, app, http.MethodPost, "/api/v1/interactions", InteractionRequest{Token: token, UserID: "u2"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, interaction.MsgProductNotFound, body["message"])
}

func TestAPI_StatusMapping(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, http.MethodDelete, "/api/v1/products/prod_0404", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error"])

	status, body = do(t, app, http.MethodPost, "/api/v1/products", CreateProductRequest{Name: "x", Description: "d", Price: "abc"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "validation_error", body["error"])

	status, _ = do(t, app, http.MethodPost, "/api/v1/interactions", InteractionRequest{Token: "t"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, http.MethodGet, "/api/v1/purchases/NDB-0001", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestAPI_PurchasesAndProjects(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, http.MethodPost, "/api/v1/purchases", CreatePurchaseRequest{
		BuyerID: "u1", ProductDescription: "Logo", Amount: "49,9",
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "NDB-0001", body["id"])
	assert.Equal(t, "49.90", body["amount"])

	status, body = do(t, app, http.MethodGet, "/api/v1/purchases", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])

	status, body = do(t, app, http.MethodPost, "/api/v1/projects", CreateProjectRequest{Name: "Acme", Description: "site"})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "proj_0001", body["id"])

	status, _ = do(t, app, http.MethodDelete, "/api/v1/projects/proj_0001", nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestAPI_FreeItems(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, http.MethodPost, "/api/v1/free-items", map[string]any{
		"name": "Icons", "description": "d", "link": "https://example.com/i.zip", "stock": 1,
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "free_0001", body["id"])

	token, err := catalog.NewToken(catalog.KindFreeItem, "free_0001").Encode()
	require.NoError(t, err)

	_, body = do(t, app, http.MethodPost, "/api/v1/interactions", InteractionRequest{Token: token, UserID: "u1"})
	assert.Equal(t, "redeemed", body["result"])

	_, body = do(t, app, http.MethodPost, "/api/v1/interactions", InteractionRequest{Token: token, UserID: "u2"})
	assert.Equal(t, interaction.MsgItemSoldOut, body["message"])

	status, _ = do(t, app, http.MethodDelete, "/api/v1/free-items/free_0001", nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestAPI_Health(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	m := NewModuleWithPorts(nil, nil, nil, &mockLogger{})
	m.AddHealthReporters(staticHealth{name: "storage", status: mono.HealthStatus{Healthy: false, Message: "down"}})
	status, body = do(t, m.App(), http.MethodGet, "/health", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "degraded", body["status"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{catalog.ErrNotFound, fiber.StatusNotFound},
		{catalog.ErrOutOfStock, fiber.StatusConflict},
		{catalog.ErrDuplicateEntry, fiber.StatusConflict},
		{catalog.ErrInvalidInput, fiber.StatusBadRequest},
		{catalog.ErrPersistence, fiber.StatusInternalServerError},
		{errors.New("nats timeout"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, _ := statusFor(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
	}
}
