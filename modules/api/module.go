// Package api exposes the catalog over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/example/catalog-engine/modules/interaction"
	"github.com/example/catalog-engine/modules/inventory"
	"github.com/example/catalog-engine/modules/ledger"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// HealthReporter is any module whose health is included in GET /health.
type HealthReporter interface {
	Name() string
	Health(ctx context.Context) mono.HealthStatus
}

// Module is the HTTP driving adapter. It reaches the core modules through
// their ports only.
type Module struct {
	addr        string
	app         *fiber.App
	inventory   inventory.InventoryPort
	ledger      ledger.LedgerPort
	interaction interaction.InteractionPort
	reporters   []HealthReporter
	middleware  func() fiber.Handler
	logger      types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the API module listening on addr.
func NewModule(addr string, logger types.Logger) *Module {
	return &Module{
		addr:   addr,
		logger: logger.WithModule("api"),
	}
}

// NewModuleWithPorts creates an API module wired to the given ports.
func NewModuleWithPorts(inv inventory.InventoryPort, led ledger.LedgerPort, click interaction.InteractionPort, logger types.Logger) *Module {
	m := NewModule("", logger)
	m.inventory = inv
	m.ledger = led
	m.interaction = click
	return m
}

// AddHealthReporters includes modules in GET /health.
func (m *Module) AddHealthReporters(reporters ...HealthReporter) {
	m.reporters = append(m.reporters, reporters...)
}

// UseMiddleware installs an extra middleware, resolved when the server starts.
func (m *Module) UseMiddleware(fn func() fiber.Handler) {
	m.middleware = fn
}

func (m *Module) Name() string {
	return "api"
}

func (m *Module) Dependencies() []string {
	return []string{"inventory", "ledger", "interaction"}
}

func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "inventory":
		m.inventory = inventory.NewInventoryAdapter(container)
	case "ledger":
		m.ledger = ledger.NewLedgerAdapter(container)
	case "interaction":
		m.interaction = interaction.NewInteractionAdapter(container)
	}
}

// App builds the fiber application with every route installed.
func (m *Module) App() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New())
	if m.middleware != nil {
		app.Use(m.middleware())
	}

	m.setupRoutes(app)
	return app
}

// Start launches the HTTP server in the background.
func (m *Module) Start(_ context.Context) error {
	if m.inventory == nil || m.ledger == nil || m.interaction == nil {
		return fmt.Errorf("api dependencies not set")
	}

	m.app = m.App()
	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			m.logger.Error("HTTP server error", "error", err)
		}
	}()

	m.logger.Info("HTTP server started", "addr", m.addr)
	return nil
}

// Stop shuts the HTTP server down.
func (m *Module) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	return m.app.ShutdownWithContext(ctx)
}

func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{"addr": m.addr},
	}
}

// statusFor maps a domain error to its HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, catalog.ErrOutOfStock):
		return fiber.StatusConflict, "out_of_stock"
	case errors.Is(err, catalog.ErrDuplicateEntry):
		return fiber.StatusConflict, "duplicate_entry"
	case errors.Is(err, catalog.ErrInvalidInput), errors.Is(err, catalog.ErrInvalidToken):
		return fiber.StatusBadRequest, "validation_error"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}

func (m *Module) fail(c *fiber.Ctx, err error) error {
	status, code := statusFor(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		m.logger.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
		message = "Something went wrong, please try again later."
	}
	return c.Status(status).JSON(ErrorResponse{Error: code, Message: message})
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
