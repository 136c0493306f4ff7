package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/skiff-data/skiff-engine/pkg/audit"
	"github.com/skiff-data/skiff-engine/pkg/config"
	"github.com/skiff-data/skiff-engine/pkg/crypto"
	"github.com/skiff-data/skiff-engine/pkg/database"
	"github.com/skiff-data/skiff-engine/pkg/engine"
	_ "github.com/skiff-data/skiff-engine/pkg/engine/drivers/all"
	"github.com/skiff-data/skiff-engine/pkg/handlers"
	"github.com/skiff-data/skiff-engine/pkg/logging"
	"github.com/skiff-data/skiff-engine/pkg/metadata"
	"github.com/skiff-data/skiff-engine/pkg/middleware"
	"github.com/skiff-data/skiff-engine/pkg/registry"
	"github.com/skiff-data/skiff-engine/pkg/repositories"
	"github.com/skiff-data/skiff-engine/pkg/services"
	"github.com/skiff-data/skiff-engine/pkg/vault"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", cfg.Database.Host),
		zap.String("engine_driver", cfg.Engine.Driver))

	ctx := context.Background()

	// Migrations run on a plain database/sql handle; the pgx stdlib
	// driver is registered by the pgx/v5 import in pkg/database.
	migDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open database for migrations", zap.Error(err))
	}
	if err := database.RunMigrations(migDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	migDB.Close()

	db, err := database.Connect(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	engineDB, err := sql.Open(cfg.Engine.Driver, cfg.Engine.Path)
	if err != nil {
		logger.Fatal("Failed to open engine database", zap.Error(err))
	}
	defer engineDB.Close()
	pool := engine.NewPool(engineDB, logger)

	box, err := crypto.NewSecretBox(cfg.SecretsKey)
	if err != nil {
		logger.Fatal("Invalid SKIFF_SECRETS_KEY", zap.Error(err))
	}

	sourceRepo := repositories.NewDataSourceRepository(db)
	secretRepo := repositories.NewSecretRepository(db)
	secretVault := vault.NewPostgresVault(secretRepo, box)

	reg := registry.New(sourceRepo, logger)
	if err := reg.Load(ctx); err != nil {
		logger.Fatal("Failed to load source registry", zap.Error(err))
	}

	refresher := metadata.NewRefresher(logger)
	connections := services.NewConnectionService(reg, pool, secretVault, refresher, logger,
		services.WithAttachPolicy(cfg.Retry.AttachPolicy()),
		services.WithTestPolicy(cfg.Retry.TestPolicy()))

	attachBootstrapSources(ctx, cfg, reg, connections, logger)

	auditor := audit.NewSecurityAuditor(logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, pool, logger).RegisterRoutes(mux)
	handlers.NewConnectionsHandler(connections, refresher, auditor, logger).RegisterRoutes(mux)
	handler := middleware.RequestLogger(logger)(mux)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	logger.Info("Starting skiff-engine", zap.String("addr", addr), zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// attachBootstrapSources attaches sources declared in the bootstrap
// file that the registry does not already know. Failures are logged
// and skipped; a broken declaration never blocks startup.
func attachBootstrapSources(ctx context.Context, cfg *config.Config, reg *registry.Registry, connections services.ConnectionService, logger *zap.Logger) {
	sources, err := config.LoadBootstrap(cfg.BootstrapPath)
	if err != nil {
		logger.Warn("Failed to load bootstrap sources", zap.Error(err))
		return
	}

	for _, src := range sources {
		alias, _ := src.Config["name"].(string)
		if alias != "" {
			if _, _, err := reg.GetByAlias(alias); err == nil {
				continue
			}
		}
		if _, err := connections.Add(ctx, src.Kind, src.DisplayName, src.Config); err != nil {
			logger.Warn("Bootstrap source failed to attach",
				zap.String("kind", string(src.Kind)),
				zap.String("alias", alias),
				zap.Error(err))
			continue
		}
		logger.Info("Bootstrap source attached",
			zap.String("kind", string(src.Kind)),
			zap.String("alias", alias))
	}
}
