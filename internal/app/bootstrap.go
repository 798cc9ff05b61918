// Package app is the composition root. Bootstrap wires dependencies by hand
// and holds no business logic.
//
// Import Path: labledger.io/lims/internal/app
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"labledger.io/lims/internal/api/handlers"
	"labledger.io/lims/internal/config"
	"labledger.io/lims/internal/governance/audit"
	"labledger.io/lims/internal/infrastructure"
	"labledger.io/lims/internal/pkg/logger"
	"labledger.io/lims/internal/pkg/worker"
	"labledger.io/lims/internal/repository"
	"labledger.io/lims/internal/service"
)

// Application holds composed application dependencies.
type Application struct {
	Config *config.Config
	Router *gin.Engine
	DB     *infrastructure.Database
	Pool   *worker.Pool

	AttributeConfigs *service.AttributeConfigService
	CustomAttributes *service.CustomAttributeService
}

// Bootstrap connects to the database and composes services and the router.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	db, err := infrastructure.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := repository.EnsureSchema(ctx, db.Pool); err != nil {
			db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info("Database schema ensured")
	}

	pool, err := worker.NewPool("validation", cfg.Worker.ValidationPoolSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init validation pool: %w", err)
	}

	app, err := compose(cfg, db, repository.NewPostgresStore(db.Pool), audit.NewLogger(db.Pool), pool)
	if err != nil {
		pool.Shutdown()
		db.Close()
		return nil, err
	}
	return app, nil
}

// compose builds services and the router on already-open infrastructure.
// db may be nil, in which case readiness only reports the process.
func compose(
	cfg *config.Config,
	db *infrastructure.Database,
	store repository.Store,
	auditLog service.AuditRecorder,
	pool *worker.Pool,
) (*Application, error) {
	configs := service.NewAttributeConfigService(store, auditLog)
	attributes := service.NewCustomAttributeService(store, pool, cfg.Attributes.MaxBatchSize)

	deps := handlers.ServerDeps{
		AttributeConfigs: configs,
		CustomAttributes: attributes,
	}
	if db != nil {
		deps.DB = db
	}

	router, err := newRouter(cfg, handlers.NewServer(deps))
	if err != nil {
		return nil, fmt.Errorf("init router: %w", err)
	}

	logger.Info("Application composed",
		zap.Int("validation_pool_size", cfg.Worker.ValidationPoolSize),
		zap.Int("max_batch_size", cfg.Attributes.MaxBatchSize),
		zap.Bool("auth_enabled", cfg.Security.JWTSigningKey != ""),
	)
	return &Application{
		Config:           cfg,
		Router:           router,
		DB:               db,
		Pool:             pool,
		AttributeConfigs: configs,
		CustomAttributes: attributes,
	}, nil
}
