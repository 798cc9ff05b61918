package app

import (
	"go.uber.org/zap"

	"labledger.io/lims/internal/pkg/logger"
)

// Shutdown releases the worker pool and the database pool.
func (a *Application) Shutdown() {
	if a.Pool != nil {
		metrics := a.Pool.Metrics()
		a.Pool.Shutdown()
		logger.Info("Validation pool stopped", zap.Any("metrics", metrics))
	}
	if a.DB != nil {
		a.DB.Close()
		logger.Info("Database pool closed")
	}
}
