package app

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labledger.io/lims/internal/config"
	"labledger.io/lims/internal/domain"
	"labledger.io/lims/internal/pkg/logger"
	"labledger.io/lims/internal/pkg/worker"
	"labledger.io/lims/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "json")
}

// memStore is a minimal in-memory repository.Store for router tests.
type memStore struct {
	mu      sync.Mutex
	configs []domain.AttributeConfig
}

func (s *memStore) List(_ context.Context, f repository.ListFilter) ([]domain.AttributeConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AttributeConfig
	for _, c := range s.configs {
		if (f.EntityType == "" || c.EntityType == f.EntityType) && (!f.ActiveOnly || c.Active) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) Get(_ context.Context, id string) (domain.AttributeConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.configs {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.AttributeConfig{}, repository.ErrNotFound
}

func (s *memStore) Create(_ context.Context, cfg domain.AttributeConfig) (domain.AttributeConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg.ID = cfg.AttrName
	s.configs = append(s.configs, cfg)
	return cfg, nil
}

func (s *memStore) Update(_ context.Context, cfg domain.AttributeConfig) (domain.AttributeConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.configs {
		if c.ID == cfg.ID {
			s.configs[i] = cfg
			return cfg, nil
		}
	}
	return domain.AttributeConfig{}, repository.ErrNotFound
}

func (s *memStore) SetActive(ctx context.Context, id string, active bool) (domain.AttributeConfig, error) {
	cfg, err := s.Get(ctx, id)
	if err != nil {
		return cfg, err
	}
	cfg.Active = active
	return s.Update(ctx, cfg)
}

func testConfig() *config.Config {
	return &config.Config{
		Server:     config.ServerConfig{Port: 8080, ValidateOpenAPI: true},
		Log:        config.LogConfig{Level: "error", Format: "json"},
		Security:   config.SecurityConfig{JWTIssuer: "lims"},
		Worker:     config.WorkerConfig{ValidationPoolSize: 2},
		Attributes: config.AttributesConfig{MaxBatchSize: 10},
	}
}

func newTestApplication(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	pool, err := worker.NewPool("validation-test", cfg.Worker.ValidationPoolSize)
	require.NoError(t, err)

	application, err := compose(cfg, nil, &memStore{}, nil, pool)
	require.NoError(t, err)
	t.Cleanup(application.Shutdown)
	return application
}

func TestBootstrap_NoDB(t *testing.T) {
	cfg := testConfig()
	cfg.Database = config.DatabaseConfig{
		Host:     "localhost",
		Port:     65432, // nothing listens here
		User:     "test",
		Password: "test",
		Database: "test",
		SSLMode:  "disable",
		MaxConns: 5,
		MinConns: 1,
	}

	app, err := Bootstrap(context.Background(), cfg)
	require.Error(t, err, "Bootstrap should fail without database")
	assert.Nil(t, app)
}

func TestCompose(t *testing.T) {
	application := newTestApplication(t, testConfig())

	assert.NotNil(t, application.Router)
	assert.NotNil(t, application.AttributeConfigs)
	assert.NotNil(t, application.CustomAttributes)
	assert.Nil(t, application.DB)
}

func TestApplication_Shutdown_Nil(t *testing.T) {
	app := &Application{}
	assert.NotPanics(t, app.Shutdown)
}
