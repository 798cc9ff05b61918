// Package audit implements the audit logging service.
//
// Audit logs are append-only records of attribute config changes. Rows are
// never updated or deleted.
//
// Import Path: labledger.io/lims/internal/governance/audit
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"labledger.io/lims/internal/pkg/logger"
)

// Attribute config actions.
const (
	ActionAttributeConfigCreate     = "attribute_config.create"
	ActionAttributeConfigUpdate     = "attribute_config.update"
	ActionAttributeConfigDeactivate = "attribute_config.deactivate"
	ActionAttributeConfigActivate   = "attribute_config.activate"
)

const resourceAttributeConfig = "attribute_config"

// Execer is the subset of pgxpool.Pool the logger needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Logger writes audit records to the database.
type Logger struct {
	db Execer
}

// NewLogger creates a new audit Logger.
func NewLogger(db Execer) *Logger {
	return &Logger{db: db}
}

// LogAction records an auditable action.
func (l *Logger) LogAction(ctx context.Context, action, resourceType, resourceID, actor string, details map[string]interface{}) error {
	var payload []byte
	if len(details) > 0 {
		var err error
		if payload, err = json.Marshal(details); err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
	}

	_, err := l.db.Exec(ctx,
		`INSERT INTO audit_logs (id, action, resource_type, resource_id, actor, details) VALUES ($1, $2, $3, $4, $5, $6)`,
		generateAuditID(), action, resourceType, resourceID, actor, payload,
	)
	if err != nil {
		logger.Error("Failed to write audit log",
			zap.String("action", action),
			zap.String("resource_type", resourceType),
			zap.String("resource_id", resourceID),
			zap.Error(err),
		)
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// LogAttributeConfig records a change to an attribute config.
func (l *Logger) LogAttributeConfig(ctx context.Context, action, configID, actor string, details map[string]interface{}) error {
	return l.LogAction(ctx, action, resourceAttributeConfig, configID, actor, details)
}

func generateAuditID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return fmt.Sprintf("audit-%s", id.String())
}
