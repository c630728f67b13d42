package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for the migration runner
	"go.uber.org/zap"

	"github.com/trivgame/qcache/pkg/cache"
	"github.com/trivgame/qcache/pkg/config"
	"github.com/trivgame/qcache/pkg/database"
	"github.com/trivgame/qcache/pkg/generator"
	"github.com/trivgame/qcache/pkg/handlers"
	"github.com/trivgame/qcache/pkg/logging"
	"github.com/trivgame/qcache/pkg/middleware"
	"github.com/trivgame/qcache/pkg/repositories"
	"github.com/trivgame/qcache/pkg/services"
	"github.com/trivgame/qcache/pkg/workqueue"
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
		zap.String("version", cfg.Version),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("redis", cfg.Redis.Addr()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations",
			zap.String("error", logging.SanitizeError(err)))
	}

	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()

	questionRepo := repositories.NewQuestionRepository(db)
	articleRepo := repositories.NewArticleRepository(db)
	buffer := cache.NewUnseenBuffer(redisClient, logger)

	// The category list is fixed for the life of the process: the article
	// corpus is loaded by ingestion tooling, not at runtime.
	categories, err := articleRepo.Categories(ctx)
	if err != nil {
		logger.Fatal("Failed to load article categories", zap.Error(err))
	}
	if len(categories) == 0 {
		logger.Warn("No article categories found, replenishment will be idle")
	}

	genClient := generator.NewClient(cfg.Generator.BaseURL, cfg.Generator.Timeout)
	genService := services.NewGenerationService(genClient, questionRepo, logger)

	queue := workqueue.New(logger, cfg.Maintenance.Workers, cfg.Maintenance.QueueDepth)
	defer queue.Stop()

	maintenance := services.NewMaintenanceService(
		questionRepo, articleRepo, genService, queue,
		categories, cfg.Maintenance, logger)
	maintenance.Run(ctx)

	batchService := services.NewBatchService(
		buffer, questionRepo, cfg.Serving.OverFetchCount, logger)

	mux := http.NewServeMux()
	handlers.NewBatchHandler(batchService, logger).RegisterRoutes(mux)
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting qcache",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		logger.Fatal("Server failed", zap.Error(err))
	case <-ctx.Done():
	}

	logger.Info("Shutting down")

	// In-flight requests get a grace period; the maintenance scheduler and
	// workqueue were already cancelled with ctx and are not waited on.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
}

// runMigrations opens a short-lived database/sql connection for the migration
// runner, separate from the pgx pool used by the request path.
func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("Failed to close migration connection", zap.Error(err))
		}
	}()

	return database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger)
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
