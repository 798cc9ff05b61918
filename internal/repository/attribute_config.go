// Package repository persists attribute configs in PostgreSQL.
//
// Import Path: labledger.io/lims/internal/repository
package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"labledger.io/lims/internal/domain"
	"labledger.io/lims/internal/pkg/logger"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

// ErrNotFound is returned when no config has the requested ID.
var ErrNotFound = errors.New("attribute config not found")

// ConflictError reports that the (entity_type, attr_name) unique constraint rejected a write.
type ConflictError struct {
	Key domain.AttributeKey
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("attribute config %s already exists", e.Key)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	EntityType domain.EntityType
	ActiveOnly bool
}

// Store is the persistence boundary for attribute configs.
type Store interface {
	List(ctx context.Context, filter ListFilter) ([]domain.AttributeConfig, error)
	Get(ctx context.Context, id string) (domain.AttributeConfig, error)
	Create(ctx context.Context, cfg domain.AttributeConfig) (domain.AttributeConfig, error)
	Update(ctx context.Context, cfg domain.AttributeConfig) (domain.AttributeConfig, error)
	SetActive(ctx context.Context, id string, active bool) (domain.AttributeConfig, error)
}

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store on pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	logger.Info("Database schema ensured")
	return nil
}

const selectColumns = `id, entity_type, attr_name, data_type, validation_rules, description, active, created_at, updated_at`

// List returns configs ordered by entity_type then attr_name.
func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]domain.AttributeConfig, error) {
	query := `SELECT ` + selectColumns + ` FROM attribute_configs
		WHERE ($1 = '' OR entity_type = $1) AND (NOT $2 OR active)
		ORDER BY entity_type, attr_name, created_at`

	rows, err := s.pool.Query(ctx, query, string(filter.EntityType), filter.ActiveOnly)
	if err != nil {
		return nil, fmt.Errorf("list attribute configs: %w", err)
	}
	defer rows.Close()

	var out []domain.AttributeConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attribute configs: %w", err)
	}
	return out, nil
}

// Get returns the config with id or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, id string) (domain.AttributeConfig, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM attribute_configs WHERE id = $1`, id)
	cfg, err := scanConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AttributeConfig{}, ErrNotFound
	}
	return cfg, err
}

// Create inserts cfg. An empty ID is replaced with a UUIDv7.
func (s *PostgresStore) Create(ctx context.Context, cfg domain.AttributeConfig) (domain.AttributeConfig, error) {
	if cfg.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.AttributeConfig{}, fmt.Errorf("generate id: %w", err)
		}
		cfg.ID = id.String()
	}
	rules, err := json.Marshal(cfg.ValidationRules)
	if err != nil {
		return domain.AttributeConfig{}, fmt.Errorf("encode validation_rules: %w", err)
	}

	row := s.pool.QueryRow(ctx, `INSERT INTO attribute_configs
		(id, entity_type, attr_name, data_type, validation_rules, description, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+selectColumns,
		cfg.ID, string(cfg.EntityType), cfg.AttrName, string(cfg.DataType), rules, cfg.Description, cfg.Active,
	)
	created, err := scanConfig(row)
	if err != nil {
		return domain.AttributeConfig{}, mapWriteError(err, cfg.Key(), "create")
	}
	logger.Debug("Attribute config inserted", zap.String("id", created.ID), zap.String("key", created.Key().String()))
	return created, nil
}

// Update overwrites the mutable columns of cfg and bumps updated_at.
func (s *PostgresStore) Update(ctx context.Context, cfg domain.AttributeConfig) (domain.AttributeConfig, error) {
	rules, err := json.Marshal(cfg.ValidationRules)
	if err != nil {
		return domain.AttributeConfig{}, fmt.Errorf("encode validation_rules: %w", err)
	}

	row := s.pool.QueryRow(ctx, `UPDATE attribute_configs
		SET attr_name = $2, validation_rules = $3, description = $4, active = $5, updated_at = $6
		WHERE id = $1
		RETURNING `+selectColumns,
		cfg.ID, cfg.AttrName, rules, cfg.Description, cfg.Active, time.Now().UTC(),
	)
	updated, err := scanConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AttributeConfig{}, ErrNotFound
	}
	if err != nil {
		return domain.AttributeConfig{}, mapWriteError(err, cfg.Key(), "update")
	}
	return updated, nil
}

// SetActive toggles the active flag.
func (s *PostgresStore) SetActive(ctx context.Context, id string, active bool) (domain.AttributeConfig, error) {
	row := s.pool.QueryRow(ctx, `UPDATE attribute_configs
		SET active = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+selectColumns,
		id, active, time.Now().UTC(),
	)
	cfg, err := scanConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AttributeConfig{}, ErrNotFound
	}
	if err != nil {
		return domain.AttributeConfig{}, fmt.Errorf("set active: %w", err)
	}
	return cfg, nil
}

func scanConfig(row pgx.Row) (domain.AttributeConfig, error) {
	var (
		cfg        domain.AttributeConfig
		entityType string
		dataType   string
		rules      []byte
	)
	err := row.Scan(
		&cfg.ID, &entityType, &cfg.AttrName, &dataType, &rules,
		&cfg.Description, &cfg.Active, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cfg, err
		}
		return cfg, fmt.Errorf("scan attribute config: %w", err)
	}
	cfg.EntityType = domain.EntityType(entityType)
	cfg.DataType = domain.DataType(dataType)
	cfg.ValidationRules, err = domain.DecodeRulesJSON(cfg.DataType, rules)
	if err != nil {
		return cfg, fmt.Errorf("decode validation_rules of %s: %w", cfg.ID, err)
	}
	return cfg, nil
}

func mapWriteError(err error, key domain.AttributeKey, op string) error {
	if IsUniqueViolation(err) {
		return &ConflictError{Key: key, Err: err}
	}
	return fmt.Errorf("%s attribute config: %w", op, err)
}

// IsUniqueViolation reports whether err carries SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
