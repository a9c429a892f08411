package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"swarmpilot/internal/api"
	"swarmpilot/internal/auth"
	"swarmpilot/internal/bus"
	"swarmpilot/internal/config"
	"swarmpilot/internal/gateway"
	"swarmpilot/internal/graph"
	"swarmpilot/internal/learner"
	"swarmpilot/internal/logging"
	"swarmpilot/internal/mcp"
	"swarmpilot/internal/orchestrator"
	"swarmpilot/internal/repository"
	"swarmpilot/internal/services"
	"swarmpilot/internal/tls"
)

func main() {
	ctx := context.Background()

	// Initialize logging
	logger := logging.NewLogger()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		log.Fatalf("Configuration loading failed: %v", err)
	}
	logger.Info("Configuration loaded",
		"environment", cfg.Environment,
		"gateway_url", cfg.Gateway.URL,
		"platforms", cfg.Gateway.Platforms,
		"heartbeat_interval", cfg.Heartbeat.Interval,
		"config_file", viper.ConfigFileUsed(),
	)

	logger.Info("Starting SwarmPilot Campaign Service")

	// Initialize repository layer
	repo, cleanup, err := initRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize repository", "error", err)
		log.Fatalf("Repository initialization failed: %v", err)
	}
	defer cleanup()

	// Collaborator service clients
	extractor := services.NewHTTPExtractionClient(cfg.Collaborators.ExtractionURL)
	synthesizer := services.NewHTTPSynthesisClient(cfg.Collaborators.SynthesisURL)
	vision := services.NewHTTPVisionClient(cfg.Collaborators.VisionURL)
	scout := services.NewHTTPScoutClient(cfg.Collaborators.ScoutURL)

	// Execution gateway with one adapter per configured platform
	bridge := gateway.NewBridgeClient(cfg.Gateway.URL)
	gw := gateway.New(bridge, cfg.Gateway.Platforms, logger)

	// Knowledge graph projection store
	var graphStore graph.Store
	if cfg.Graph.URL != "" {
		graphStore = graph.NewHTTPStoreClient(cfg.Graph.URL)
	} else {
		logger.Warn("No graph store configured; projections kept in memory")
		graphStore = graph.NewInMemoryStore()
	}

	// Strategy learner
	strategist := learner.New(repo, learner.Config{
		PriorConfidence:    cfg.Learner.PriorConfidence,
		MinSamples:         cfg.Learner.MinSamples,
		SaturationHalfLife: cfg.Learner.SaturationHalfLife,
	}, logger)

	// Activity event bus
	activityBus := bus.New()

	// Pipeline orchestrator
	orch := orchestrator.New(orchestrator.Deps{
		Repo:        repo,
		Bus:         activityBus,
		Gateway:     gw,
		Learner:     strategist,
		Graph:       graphStore,
		Extractor:   extractor,
		Synthesizer: synthesizer,
		Vision:      vision,
		Scout:       scout,
		Logger:      logger,
	})

	// Heartbeat scheduler
	heartbeat := orchestrator.NewHeartbeat(orch, repo, cfg.Heartbeat.Interval, cfg.Heartbeat.MaxConcurrency, logger)
	heartbeat.Start(ctx)
	defer heartbeat.Stop()

	logger.Info("Service layer initialized")

	// Create Echo server
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("swarmpilot"))

	// Initialize authentication
	authz, err := auth.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize auth", "error", err)
		log.Fatalf("auth initialization failed: %v", err)
	}

	// Mount REST API handlers under /api/v1 with auth middleware
	server := api.NewServer(orch, heartbeat, repo, activityBus, strategist, gw, graphStore, logger)
	e.GET("/health", server.HandleHealth)

	apiGroup := e.Group("/api/v1")
	apiGroup.Use(echo.WrapMiddleware(authz.RequireAuth))
	server.RegisterRoutes(apiGroup)

	logger.Info("REST API handlers mounted")

	// Mount MCP protocol handlers
	mcpServer := mcp.NewServer(orch, repo, strategist)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp", echo.WrapHandler(mcpHandlers))
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))

	logger.Info("MCP protocol handlers mounted")

	// Create HTTP server
	addr := ":8080"
	if cfg.TLS.Enable {
		addr = ":8443"
	}
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
				logger.Error("TLS enabled but cert/key file not provided")
				serverErrors <- httpServer.ListenAndServe()
				return
			}
			if _, err := os.Stat(cfg.TLS.CertFile); os.IsNotExist(err) {
				if len(cfg.TLS.Hostnames) > 0 {
					if err := tls.GenerateSelfSignedCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames); err != nil {
						logger.Error("failed to generate self-signed cert", "error", err)
					}
				}
			}
			serverErrors <- httpServer.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serverErrors <- httpServer.ListenAndServe()
		}
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig)

		heartbeat.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := httpServer.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}

		logger.Info("Server stopped gracefully")
	}
}

// initRepository connects to Postgres when configured, falling back to
// the in-memory store for local development.
func initRepository(ctx context.Context, cfg *config.Config, logger *logging.Logger) (repository.Repository, func(), error) {
	if cfg.DB.Host == "" {
		logger.Warn("No database configured; using in-memory store")
		return repository.NewInMemoryStore(), func() {}, nil
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := repository.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database connected", "host", cfg.DB.Host, "database", cfg.DB.Name)
	return store, pool.Close, nil
}
