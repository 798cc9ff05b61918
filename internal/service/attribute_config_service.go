package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"labledger.io/lims/internal/attribute"
	"labledger.io/lims/internal/domain"
	"labledger.io/lims/internal/governance/audit"
	apperrors "labledger.io/lims/internal/pkg/errors"
	"labledger.io/lims/internal/pkg/logger"
	"labledger.io/lims/internal/repository"
)

// AuditRecorder records attribute config changes.
type AuditRecorder interface {
	LogAttributeConfig(ctx context.Context, action, configID, actor string, details map[string]interface{}) error
}

// AttributeConfigService manages the lifecycle of attribute configs.
type AttributeConfigService struct {
	store repository.Store
	audit AuditRecorder
}

// NewAttributeConfigService creates a new AttributeConfigService.
func NewAttributeConfigService(store repository.Store, audit AuditRecorder) *AttributeConfigService {
	return &AttributeConfigService{store: store, audit: audit}
}

// NameCheck is the result of an attr_name availability probe.
type NameCheck struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

// List returns configs matching filter.
func (s *AttributeConfigService) List(ctx context.Context, filter repository.ListFilter) ([]domain.AttributeConfig, error) {
	if filter.EntityType != "" && !filter.EntityType.Valid() {
		return nil, apperrors.ErrEntityTypeInvalid(string(filter.EntityType))
	}
	configs, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list attribute configs: %w", err)
	}
	if configs == nil {
		configs = []domain.AttributeConfig{}
	}
	return configs, nil
}

// Get returns one config.
func (s *AttributeConfigService) Get(ctx context.Context, id string) (domain.AttributeConfig, error) {
	cfg, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.AttributeConfig{}, storeError(err, id)
	}
	return cfg, nil
}

// Create admits sub and persists it.
func (s *AttributeConfigService) Create(ctx context.Context, sub attribute.Submission, actor string) (domain.AttributeConfig, error) {
	existing, err := s.snapshot(ctx, domain.EntityType(sub.EntityType))
	if err != nil {
		return domain.AttributeConfig{}, err
	}

	payload, serr := attribute.ValidateSubmission(sub, existing)
	if serr != nil {
		return domain.AttributeConfig{}, submissionError(serr, payloadKey(sub))
	}

	var cfg domain.AttributeConfig
	payload.Apply(&cfg)
	created, err := s.store.Create(ctx, cfg)
	if err != nil {
		return domain.AttributeConfig{}, storeError(err, "")
	}

	logger.Info("Attribute config created",
		zap.String("id", created.ID),
		zap.String("entity_type", string(created.EntityType)),
		zap.String("attr_name", created.AttrName),
		zap.String("data_type", string(created.DataType)),
		zap.String("actor", actor),
	)
	s.record(ctx, audit.ActionAttributeConfigCreate, created, actor)
	return created, nil
}

// Update admits sub as an edit of the config with id.
func (s *AttributeConfigService) Update(ctx context.Context, id string, sub attribute.Submission, actor string) (domain.AttributeConfig, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.AttributeConfig{}, err
	}
	existing, err := s.snapshot(ctx, current.EntityType)
	if err != nil {
		return domain.AttributeConfig{}, err
	}

	payload, serr := attribute.ValidateUpdate(current, sub, existing)
	if serr != nil {
		return domain.AttributeConfig{}, submissionError(serr, payloadKey(sub))
	}

	next := current
	payload.Apply(&next)
	updated, err := s.store.Update(ctx, next)
	if err != nil {
		return domain.AttributeConfig{}, storeError(err, id)
	}

	logger.Info("Attribute config updated",
		zap.String("id", updated.ID),
		zap.String("attr_name", updated.AttrName),
		zap.String("actor", actor),
	)
	s.record(ctx, audit.ActionAttributeConfigUpdate, updated, actor)
	return updated, nil
}

// Deactivate soft-deletes the config. Stored values stay readable as legacy keys.
func (s *AttributeConfigService) Deactivate(ctx context.Context, id, actor string) (domain.AttributeConfig, error) {
	return s.setActive(ctx, id, false, actor)
}

// Activate restores a deactivated config.
func (s *AttributeConfigService) Activate(ctx context.Context, id, actor string) (domain.AttributeConfig, error) {
	return s.setActive(ctx, id, true, actor)
}

func (s *AttributeConfigService) setActive(ctx context.Context, id string, active bool, actor string) (domain.AttributeConfig, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.AttributeConfig{}, err
	}
	if current.Active == active {
		return current, nil
	}

	existing, err := s.snapshot(ctx, current.EntityType)
	if err != nil {
		return domain.AttributeConfig{}, err
	}
	if serr := attribute.ValidateActivation(current, active, existing); serr != nil {
		return domain.AttributeConfig{}, submissionError(serr, current.Key())
	}

	cfg, err := s.store.SetActive(ctx, id, active)
	if err != nil {
		return domain.AttributeConfig{}, storeError(err, id)
	}

	action := audit.ActionAttributeConfigDeactivate
	if active {
		action = audit.ActionAttributeConfigActivate
	}
	logger.Info("Attribute config active state changed",
		zap.String("id", id),
		zap.Bool("active", active),
		zap.String("actor", actor),
	)
	s.record(ctx, action, cfg, actor)
	return cfg, nil
}

// CheckName reports whether attrName is free for entityType, ignoring excludeID.
func (s *AttributeConfigService) CheckName(ctx context.Context, entityType domain.EntityType, attrName, excludeID string) (NameCheck, error) {
	if !entityType.Valid() {
		return NameCheck{}, apperrors.ErrEntityTypeInvalid(string(entityType))
	}
	existing, err := s.snapshot(ctx, entityType)
	if err != nil {
		return NameCheck{}, err
	}
	key := domain.AttributeKey{EntityType: entityType, AttrName: attrName}
	if attribute.CheckUnique(existing, key, excludeID) {
		return NameCheck{Available: true}, nil
	}
	return NameCheck{Message: attribute.ConflictMessage(key)}, nil
}

// snapshot returns every config of entityType, active or not.
func (s *AttributeConfigService) snapshot(ctx context.Context, entityType domain.EntityType) ([]domain.AttributeConfig, error) {
	if !entityType.Valid() {
		// The structural lifecycle step reports the bad entity type.
		return nil, nil
	}
	configs, err := s.store.List(ctx, repository.ListFilter{EntityType: entityType})
	if err != nil {
		return nil, fmt.Errorf("load attribute config snapshot: %w", err)
	}
	return configs, nil
}

func (s *AttributeConfigService) record(ctx context.Context, action string, cfg domain.AttributeConfig, actor string) {
	if s.audit == nil {
		return
	}
	details := map[string]interface{}{
		"entity_type": string(cfg.EntityType),
		"attr_name":   cfg.AttrName,
		"data_type":   string(cfg.DataType),
		"active":      cfg.Active,
	}
	if err := s.audit.LogAttributeConfig(ctx, action, cfg.ID, actor, details); err != nil {
		logger.Warn("Audit record not written",
			zap.String("action", action),
			zap.String("id", cfg.ID),
			zap.Error(err),
		)
	}
}

func payloadKey(sub attribute.Submission) domain.AttributeKey {
	return domain.AttributeKey{EntityType: domain.EntityType(sub.EntityType), AttrName: sub.AttrName}
}

// submissionError maps a lifecycle failure to an API error.
func submissionError(serr *attribute.SubmissionError, key domain.AttributeKey) error {
	if serr.Code == attribute.CodeConflict {
		return conflictError(key)
	}
	status := http.StatusBadRequest
	if serr.Code == attribute.CodeFieldImmutable {
		status = http.StatusUnprocessableEntity
	}
	appErr := apperrors.New(serr.Code, serr.Message, status)
	if serr.Field != "" {
		appErr = appErr.WithFieldErrors([]apperrors.FieldError{{
			Field:   serr.Field,
			Code:    serr.Code,
			Message: serr.Message,
		}})
	}
	return appErr
}

func conflictError(key domain.AttributeKey) *apperrors.AppError {
	return apperrors.ErrAttributeConflict(string(key.EntityType), key.AttrName, attribute.ConflictMessage(key))
}

// storeError maps repository errors. The store-side unique violation yields
// the same conflict as the in-memory guard.
func storeError(err error, id string) error {
	var conflict *repository.ConflictError
	switch {
	case errors.As(err, &conflict):
		return conflictError(conflict.Key)
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.ErrAttributeConfigNotFound(id)
	}
	return err
}
