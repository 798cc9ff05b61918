package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"labledger.io/lims/internal/attribute"
	"labledger.io/lims/internal/domain"
	apperrors "labledger.io/lims/internal/pkg/errors"
	"labledger.io/lims/internal/pkg/logger"
	"labledger.io/lims/internal/pkg/worker"
	"labledger.io/lims/internal/repository"
)

// CustomAttributeService validates custom_attributes payloads of LIMS entities.
type CustomAttributeService struct {
	store        repository.Store
	pool         *worker.Pool
	maxBatchSize int
}

// NewCustomAttributeService creates a new CustomAttributeService.
// pool may be nil, in which case batches are validated inline.
func NewCustomAttributeService(store repository.Store, pool *worker.Pool, maxBatchSize int) *CustomAttributeService {
	return &CustomAttributeService{store: store, pool: pool, maxBatchSize: maxBatchSize}
}

// Schema loads the configs of entityType and compiles them.
func (s *CustomAttributeService) Schema(ctx context.Context, entityType domain.EntityType, historicalKeys []string) (*attribute.Schema, error) {
	if !entityType.Valid() {
		return nil, apperrors.ErrEntityTypeInvalid(string(entityType))
	}
	configs, err := s.store.List(ctx, repository.ListFilter{EntityType: entityType})
	if err != nil {
		return nil, fmt.Errorf("load attribute configs: %w", err)
	}

	schema := attribute.CompileSchema(configs, attribute.WithHistoricalKeys(historicalKeys...))
	if dups := schema.Duplicates(); len(dups) > 0 {
		logger.Warn("Duplicate active attribute configs, last definition wins",
			zap.String("entity_type", string(entityType)),
			zap.Strings("attr_names", dups),
		)
	}
	return schema, nil
}

// Validate checks one custom_attributes map.
func (s *CustomAttributeService) Validate(ctx context.Context, entityType domain.EntityType, values map[string]any, historicalKeys []string) (attribute.Result, error) {
	schema, err := s.Schema(ctx, entityType, historicalKeys)
	if err != nil {
		return attribute.Result{}, err
	}
	return schema.Validate(values), nil
}

// ValidateBatch checks many maps against one snapshot. Results keep input order.
func (s *CustomAttributeService) ValidateBatch(ctx context.Context, entityType domain.EntityType, items []map[string]any, historicalKeys []string) ([]attribute.Result, error) {
	if s.maxBatchSize > 0 && len(items) > s.maxBatchSize {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidRequest,
			fmt.Sprintf("batch contains %d items, the limit is %d", len(items), s.maxBatchSize)).
			WithParams(map[string]interface{}{"limit": s.maxBatchSize, "count": len(items)})
	}

	schema, err := s.Schema(ctx, entityType, historicalKeys)
	if err != nil {
		return nil, err
	}

	results := make([]attribute.Result, len(items))
	if s.pool == nil {
		for i, values := range items {
			results[i] = schema.Validate(values)
		}
		return results, nil
	}

	err = s.pool.RunEach(ctx, len(items), func(_ context.Context, i int) {
		results[i] = schema.Validate(items[i])
	})
	if err != nil {
		return nil, fmt.Errorf("validate batch: %w", err)
	}

	invalid := 0
	for _, r := range results {
		if !r.Valid {
			invalid++
		}
	}
	logger.Debug("Custom attribute batch validated",
		zap.String("entity_type", string(entityType)),
		zap.Int("items", len(items)),
		zap.Int("invalid", invalid),
	)
	return results, nil
}

// Normalize validates values and returns the normalized map, or a 422 listing
// every violation.
func (s *CustomAttributeService) Normalize(ctx context.Context, entityType domain.EntityType, values map[string]any, historicalKeys []string) (map[string]any, error) {
	res, err := s.Validate(ctx, entityType, values, historicalKeys)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return nil, apperrors.UnprocessableEntity(apperrors.CodeCustomAttributesInvalid, "custom attributes are invalid").
			WithFieldErrors(apperrors.FieldErrorsFromViolations(apperrors.CodeCustomAttributesInvalid, res.Violations))
	}
	return res.Normalized, nil
}
