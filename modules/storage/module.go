// Package storage hosts the catalog.Store backend as a mono module.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/example/catalog-engine/modules/storage/jskv"
	"github.com/example/catalog-engine/modules/storage/postgres"
	"github.com/example/catalog-engine/modules/storage/sqlite"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/sync/errgroup"
)

// Backend names accepted in Config.Backend.
const (
	BackendSQLite    = "sqlite"
	BackendPostgres  = "postgres"
	BackendJetStream = "jetstream"
)

// ErrUnknownBackend is returned for an unsupported Config.Backend.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Config selects and configures the backend.
type Config struct {
	Backend      string
	SQLitePath   string
	SQLiteDebug  bool
	DatabaseURL  string
	MaxConns     int32
	NATSURL      string
	BucketPrefix string
}

// Module opens the configured store on Start and closes it on Stop.
type Module struct {
	config Config
	store  catalog.Store
	logger types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a storage module for the given backend.
func NewModule(config Config, logger types.Logger) *Module {
	return &Module{
		config: config,
		logger: logger.WithModule("storage"),
	}
}

// NewModuleWithStore wraps an already opened store.
func NewModuleWithStore(store catalog.Store, backend string, logger types.Logger) *Module {
	return &Module{
		config: Config{Backend: backend},
		store:  store,
		logger: logger.WithModule("storage"),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "storage"
}

// Store returns the opened store, or nil before Start.
func (m *Module) Store() catalog.Store {
	return m.store
}

// Open opens the store described by config.
func Open(ctx context.Context, config Config) (catalog.Store, error) {
	switch config.Backend {
	case BackendSQLite, "":
		return sqlite.Open(config.SQLitePath, config.SQLiteDebug)
	case BackendPostgres:
		return postgres.Open(ctx, config.DatabaseURL, config.MaxConns)
	case BackendJetStream:
		return jskv.Open(ctx, config.NATSURL, jskv.Config{BucketPrefix: config.BucketPrefix})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, config.Backend)
	}
}

// Start opens the backend. The JetStream backend connects to the NATS
// server that mono has already started.
func (m *Module) Start(ctx context.Context) error {
	if m.store != nil {
		m.logger.Info("Using provided store", "backend", m.config.Backend)
		return nil
	}

	store, err := Open(ctx, m.config)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", m.config.Backend, err)
	}
	m.store = store

	m.logger.Info("Storage module started", "backend", m.config.Backend)
	return nil
}

// Stop closes the store.
func (m *Module) Stop(_ context.Context) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	m.logger.Info("Storage module stopped")
	return nil
}

// Health pings the backend.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.store == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "store not initialized",
		}
	}

	if err := m.store.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("store ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"backend": m.config.Backend,
		},
	}
}

// RegisterServices registers the stats service.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "stats", json.Unmarshal, json.Marshal, m.stats,
	); err != nil {
		return fmt.Errorf("failed to register stats service: %w", err)
	}

	m.logger.Info("Registered services", "services", "services.storage.stats")
	return nil
}

// StatsRequest is the request of the stats service.
type StatsRequest struct{}

// StatsResponse reports entity counts per kind.
type StatsResponse struct {
	Backend     string        `json:"backend"`
	Products    int           `json:"products"`
	FreeItems   int           `json:"free_items"`
	CartEntries int           `json:"cart_entries"`
	Purchases   int           `json:"purchases"`
	Projects    int           `json:"projects"`
	Took        time.Duration `json:"took"`
}

func (m *Module) stats(ctx context.Context, _ StatsRequest, _ *mono.Msg) (StatsResponse, error) {
	if m.store == nil {
		return StatsResponse{}, fmt.Errorf("store not initialized")
	}
	return CollectStats(ctx, m.store, m.config.Backend)
}

// CollectStats counts every entity kind concurrently.
func CollectStats(ctx context.Context, store catalog.Store, backend string) (StatsResponse, error) {
	start := time.Now()
	resp := StatsResponse{Backend: backend}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := store.ListProducts(ctx)
		resp.Products = len(items)
		return err
	})
	g.Go(func() error {
		items, err := store.ListFreeItems(ctx)
		resp.FreeItems = len(items)
		return err
	})
	g.Go(func() error {
		items, err := store.ListCartEntries(ctx)
		resp.CartEntries = len(items)
		return err
	})
	g.Go(func() error {
		items, err := store.ListPurchases(ctx)
		resp.Purchases = len(items)
		return err
	})
	g.Go(func() error {
		items, err := store.ListProjects(ctx)
		resp.Projects = len(items)
		return err
	})
	if err := g.Wait(); err != nil {
		return StatsResponse{}, err
	}

	resp.Took = time.Since(start)
	return resp, nil
}
