package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/pkmgraph/pkm-engine/pkg/config"
	"github.com/pkmgraph/pkm-engine/pkg/database"
	"github.com/pkmgraph/pkm-engine/pkg/handlers"
	"github.com/pkmgraph/pkm-engine/pkg/mcp"
	"github.com/pkmgraph/pkm-engine/pkg/mcp/tools"
	"github.com/pkmgraph/pkm-engine/pkg/middleware"
	"github.com/pkmgraph/pkm-engine/pkg/repositories"
	"github.com/pkmgraph/pkm-engine/pkg/services"
	"github.com/pkmgraph/pkm-engine/pkg/standardize"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("bind_addr", cfg.BindAddr),
		zap.String("port", cfg.Port),
		zap.String("database", cfg.Database.Database),
		zap.String("database_host", cfg.Database.Host))

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// golang-migrate needs database/sql, not pgx
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = sqlDB.Close()

	typeRepo := repositories.NewModelTypeRepository()
	modelRepo := repositories.NewModelRepository()
	relationRepo := repositories.NewRelationRepository()

	standardizer := standardize.New(logger)

	registryService := services.NewRegistryService(db, typeRepo, logger)
	modelService := services.NewModelService(db, typeRepo, modelRepo, logger)
	relationService := services.NewRelationService(db, typeRepo, modelRepo, relationRepo, logger)
	materializerService := services.NewMaterializerService(db, typeRepo, modelRepo, relationRepo, standardizer, logger)

	mcpServer := mcp.NewServer("pkm-engine", cfg.Version, logger)
	tools.RegisterRegistryTools(mcpServer.MCP(), &tools.RegistryToolDeps{
		Registry: registryService,
		Logger:   logger,
	})
	tools.RegisterModelTools(mcpServer.MCP(), &tools.ModelToolDeps{
		Registry:     registryService,
		Models:       modelService,
		Relations:    relationService,
		Materializer: materializerService,
		Logger:       logger,
	})
	tools.RegisterPersonTools(mcpServer.MCP(), &tools.PersonToolDeps{
		Registry:     registryService,
		Models:       modelService,
		Materializer: materializerService,
		Logger:       logger,
	})

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewMCPHandler(mcpServer, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting pkm-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
