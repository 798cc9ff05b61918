package main

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labledger.io/lims/internal/domain"
	"labledger.io/lims/internal/pkg/logger"
	"labledger.io/lims/internal/repository"
	"labledger.io/lims/internal/service"
)

func init() {
	_ = logger.Init("error", "json")
}

type memStore struct {
	mu      sync.Mutex
	configs []domain.AttributeConfig
}

func (s *memStore) List(_ context.Context, f repository.ListFilter) ([]domain.AttributeConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AttributeConfig
	for _, c := range s.configs {
		if f.EntityType == "" || c.EntityType == f.EntityType {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) Get(context.Context, string) (domain.AttributeConfig, error) {
	return domain.AttributeConfig{}, repository.ErrNotFound
}

func (s *memStore) Create(_ context.Context, cfg domain.AttributeConfig) (domain.AttributeConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg.ID = string(cfg.EntityType) + "/" + cfg.AttrName
	s.configs = append(s.configs, cfg)
	return cfg, nil
}

func (s *memStore) Update(_ context.Context, cfg domain.AttributeConfig) (domain.AttributeConfig, error) {
	return cfg, nil
}

func (s *memStore) SetActive(context.Context, string, bool) (domain.AttributeConfig, error) {
	return domain.AttributeConfig{}, repository.ErrNotFound
}

func TestParseSeed_ShippedFile(t *testing.T) {
	f, err := os.Open("attributes.seed.yaml")
	require.NoError(t, err)
	defer f.Close()

	subs, err := parseSeed(f)
	require.NoError(t, err)
	require.Len(t, subs, 5)
	assert.Equal(t, "ph_level", subs[0].AttrName)
	assert.JSONEq(t, `{"min":0,"max":14}`, subs[0].ValidationRules)
	assert.Empty(t, subs[4].ValidationRules)
}

func TestParseSeed(t *testing.T) {
	subs, err := parseSeed(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, subs)

	_, err = parseSeed(strings.NewReader("attributes:\n  - entity_type: samples\n    colour: red\n"))
	assert.Error(t, err, "unknown keys are rejected")

	subs, err = parseSeed(strings.NewReader("attributes:\n  - entity_type: samples\n    attr_name: x\n    data_type: text\n    active: false\n"))
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.NotNil(t, subs[0].Active)
	assert.False(t, *subs[0].Active)
}

func TestSeed_IsIdempotent(t *testing.T) {
	f, err := os.Open("attributes.seed.yaml")
	require.NoError(t, err)
	defer f.Close()
	subs, err := parseSeed(f)
	require.NoError(t, err)

	store := &memStore{}
	svc := service.NewAttributeConfigService(store, nil)
	ctx := context.Background()

	created, skipped, err := seed(ctx, svc, subs)
	require.NoError(t, err)
	assert.Equal(t, 5, created)
	assert.Zero(t, skipped)

	created, skipped, err = seed(ctx, svc, subs)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Equal(t, 5, skipped)
	assert.Len(t, store.configs, 5)
}

func TestSeed_StopsOnInvalidAttribute(t *testing.T) {
	subs, err := parseSeed(strings.NewReader(`
attributes:
  - entity_type: samples
    attr_name: grade
    data_type: select
  - entity_type: samples
    attr_name: never_reached
    data_type: text
`))
	require.NoError(t, err)

	store := &memStore{}
	_, _, err = seed(context.Background(), service.NewAttributeConfigService(store, nil), subs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "samples.grade")
	assert.Empty(t, store.configs)
}
