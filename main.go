package main

import (
	"context"
	"log"
	"os"

	"github.com/example/catalog-engine/config"
	apimod "github.com/example/catalog-engine/modules/api"
	interactionmod "github.com/example/catalog-engine/modules/interaction"
	inventorymod "github.com/example/catalog-engine/modules/inventory"
	ledgermod "github.com/example/catalog-engine/modules/ledger"
	notificationmod "github.com/example/catalog-engine/modules/notification"
	ratelimitmod "github.com/example/catalog-engine/modules/ratelimit"
	storagemod "github.com/example/catalog-engine/modules/storage"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logLevel, _ := cfg.MonoLogLevel()

	log.Println("=== Catalog Engine ===")
	log.Printf("Store: %s", cfg.Store)
	log.Printf("NATS Port: %d", cfg.NATSPort)
	log.Printf("HTTP Address: %s", cfg.HTTPAddr)
	if cfg.RedisAddr != "" {
		log.Printf("Click limit: %d per %s (redis %s)", cfg.ClickLimit, cfg.ClickWindow, cfg.RedisAddr)
	} else {
		log.Println("Click limit: disabled (CATALOG_REDIS_ADDR not set)")
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithNATSPort(cfg.NATSPort),
		mono.WithJetStreamStorageDir(cfg.JetStreamDir),
	)
	if err != nil {
		log.Fatalf("Failed to create mono application: %v", err)
	}
	logger := app.Logger()

	publisher, err := interactionmod.NewLogPublisher(logger)
	if err != nil {
		log.Fatalf("Failed to create publisher: %v", err)
	}

	// Create modules
	storageModule := storagemod.NewModule(storagemod.Config{
		Backend:      cfg.Store,
		SQLitePath:   cfg.SQLitePath,
		SQLiteDebug:  cfg.SQLiteDebug,
		DatabaseURL:  cfg.DatabaseURL,
		MaxConns:     cfg.MaxConns,
		NATSURL:      cfg.ClientURL(),
		BucketPrefix: cfg.BucketPrefix,
	}, logger)
	inventoryModule := inventorymod.NewModule(storageModule, logger)
	ledgerModule := ledgermod.NewModule(storageModule, logger)
	interactionModule := interactionmod.NewModule(publisher, interactionmod.Channels{
		Shop:     cfg.ShopChannel,
		Free:     cfg.FreeChannel,
		Projects: cfg.ProjectsChannel,
	}, logger)
	notificationModule := notificationmod.NewModule(logger)
	apiModule := apimod.NewModule(cfg.HTTPAddr, logger)
	apiModule.AddHealthReporters(storageModule, inventoryModule, ledgerModule, interactionModule)

	modules := []mono.Module{storageModule, inventoryModule, ledgerModule, interactionModule, notificationModule}

	if cfg.RedisAddr != "" {
		rateLimitModule := ratelimitmod.NewModule(ratelimitmod.ModuleConfig{
			RedisAddr: cfg.RedisAddr,
			Click:     ratelimitmod.Config{Limit: cfg.ClickLimit, Window: cfg.ClickWindow},
			API:       ratelimitmod.Config{Limit: cfg.APILimit, Window: cfg.ClickWindow},
		}, logger)
		interactionModule.SetLimiter(rateLimitModule)
		apiModule.UseMiddleware(rateLimitModule.Middleware)
		apiModule.AddHealthReporters(rateLimitModule)
		modules = append(modules, rateLimitModule)
	}
	modules = append(modules, apiModule)

	// Register modules
	for _, m := range modules {
		if err := app.Register(m); err != nil {
			log.Fatalf("Failed to register %s module: %v", m.Name(), err)
		}
	}

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	log.Println("=== Application Started ===")
	log.Printf("NATS available at %s", cfg.ClientURL())
	log.Println("Services:")
	log.Println("  services.inventory.*        - Products, free items, carts, projects")
	log.Println("  services.ledger.*           - Purchase ledger")
	log.Println("  services.interaction.dispatch - Control clicks")
	log.Println("  services.notification.list-audit - Audit trail")
	log.Printf("API available at http://localhost%s", cfg.HTTPAddr)
	log.Println("Endpoints:")
	log.Println("  GET    /health                      - Health check")
	log.Println("  GET    /api/v1/products             - List products")
	log.Println("  POST   /api/v1/products             - Add a product")
	log.Println("  PATCH  /api/v1/products/:id         - Update a product")
	log.Println("  DELETE /api/v1/products/:id         - Remove a product")
	log.Println("  GET    /api/v1/free-items           - List free items")
	log.Println("  POST   /api/v1/free-items           - Add a free item")
	log.Println("  DELETE /api/v1/free-items/:id       - Remove a free item")
	log.Println("  GET    /api/v1/carts                - List carts")
	log.Println("  DELETE /api/v1/carts/:userId        - Clear a cart")
	log.Println("  GET    /api/v1/purchases            - List purchases")
	log.Println("  POST   /api/v1/purchases            - Record a purchase")
	log.Println("  GET    /api/v1/projects             - List projects")
	log.Println("  POST   /api/v1/interactions         - Dispatch a click")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown")

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}
