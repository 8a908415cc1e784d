package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/bitcoin-stamps/translation-engine/pkg/apperrors"
	"github.com/bitcoin-stamps/translation-engine/pkg/config"
	"github.com/bitcoin-stamps/translation-engine/pkg/database"
	"github.com/bitcoin-stamps/translation-engine/pkg/handlers"
	"github.com/bitcoin-stamps/translation-engine/pkg/repositories"
	"github.com/bitcoin-stamps/translation-engine/pkg/services"
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
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", cfg.Database.Database),
		zap.Bool("translation_enabled", cfg.Translation.Enabled),
		zap.Strings("target_languages", cfg.Translation.TargetLanguages))

	ctx := context.Background()

	// Migrations run over database/sql; the application uses the pgx pool.
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	sqlDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	memoryRepo := repositories.NewTranslationMemoryRepository(db)
	changeRepo := repositories.NewContentChangeRepository(db)
	workflowRepo := repositories.NewWorkflowRepository(db)
	entityRepo := repositories.NewCulturalEntityRepository(db)
	ruleRepo := repositories.NewValidationRuleRepository(db)

	registry, err := services.NewCulturalEntityRegistry(cfg.Translation.EntitySeedPath, logger)
	if err != nil {
		logger.Fatal("Failed to load cultural entity registry", zap.Error(err))
	}

	matcher := services.NewFuzzyMatcher(memoryRepo, registry, logger)
	validator := services.NewCulturalValidator(registry, logger)
	detector := services.NewChangeDetector(&cfg.Translation, changeRepo, workflowRepo,
		entityRepo, registry, services.NewTimerScheduler(), logger)
	translator := services.NewLoggingTranslator(logger)
	workflows := services.NewWorkflowService(workflowRepo, translator, logger)
	manager := services.NewTranslationManager(cfg, entityRepo, ruleRepo, memoryRepo,
		changeRepo, workflowRepo, registry, validator, detector, workflows, logger)

	if err := manager.Initialize(ctx); err != nil {
		if errors.Is(err, apperrors.ErrSubsystemDisabled) {
			logger.Warn("Translation subsystem disabled; serving API without change detection")
		} else {
			logger.Fatal("Failed to initialize translation subsystem", zap.Error(err))
		}
	}
	defer func() {
		if err := manager.Shutdown(); err != nil {
			logger.Warn("Shutdown error", zap.Error(err))
		}
	}()

	funcRegistry := handlers.NewValidationFuncRegistry(registry)
	activeRules, err := ruleRepo.GetActive(ctx, "")
	if err != nil {
		logger.Fatal("Failed to load validation rules", zap.Error(err))
	}
	if err := funcRegistry.VerifyRules(activeRules); err != nil {
		logger.Fatal("Validation rule references unknown function", zap.Error(err))
	}

	mux := http.NewServeMux()
	handlers.NewSystemHandler(manager, cfg.Version, logger).RegisterRoutes(mux)
	handlers.NewWorkflowHandler(workflows, cfg.Version, logger).RegisterRoutes(mux)
	handlers.NewMemoryHandler(memoryRepo, matcher, registry, &cfg.Translation, cfg.Version, logger).RegisterRoutes(mux)
	handlers.NewValidationHandler(validator, workflows, ruleRepo, funcRegistry, manager, cfg.Version, logger).RegisterRoutes(mux)
	handlers.NewChangeHandler(changeRepo, workflowRepo, cfg.Version, logger).RegisterRoutes(mux)
	handlers.NewEntityHandler(entityRepo, cfg.Version, logger).RegisterRoutes(mux)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	logger.Info("Starting translation-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
