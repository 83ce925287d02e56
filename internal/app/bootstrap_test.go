package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stateflow.dev/stateflow/internal/api/middleware"
	"stateflow.dev/stateflow/internal/config"
	"stateflow.dev/stateflow/internal/pkg/logger"
)

func init() {
	_ = logger.Init("error", "json")
}

func memoryConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Storage: config.StorageConfig{Driver: config.StorageDriverMemory},
		Log:     config.LogConfig{Level: "error", Format: "json"},
		River: config.RiverConfig{
			ReconcileInterval:  time.Hour,
			ReconcileBatchSize: 10,
		},
		Security: config.SecurityConfig{JWTIssuer: "stateflow"},
		Worker:   config.WorkerConfig{PoolSize: 2},
		Retry:    config.RetryConfig{InitialInterval: time.Millisecond, MaxElapsed: 10 * time.Millisecond},
	}
}

func TestBootstrap_NoDB(t *testing.T) {
	// Bootstrap without a real database should fail at DB connection.
	cfg := memoryConfig()
	cfg.Storage.Driver = config.StorageDriverPostgres
	cfg.Database = config.DatabaseConfig{
		Host:     "localhost",
		Port:     65432, // Non-existent port
		User:     "test",
		Password: "test",
		Database: "test",
		SSLMode:  "disable",
		MaxConns: 5,
		MinConns: 1,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	app, err := Bootstrap(ctx, cfg)
	require.Error(t, err, "Bootstrap should fail without database")
	assert.Nil(t, app, "Application should be nil on bootstrap failure")
}

func TestBootstrap_MemoryDriverServesAPI(t *testing.T) {
	app, err := Bootstrap(context.Background(), memoryConfig())
	require.NoError(t, err)
	require.NoError(t, app.Start(context.Background()))
	defer app.Shutdown()

	assert.Nil(t, app.DB)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/io-terms", strings.NewReader(`{"label":"Order"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorIDHeader, "alice")
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stateflow_io_term_mutations_total")
	assert.Contains(t, w.Body.String(), "stateflow_http_requests_total")
	assert.Contains(t, w.Body.String(), `stateflow_worker_pool_capacity{pool="reconcile"} 2`)

	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBootstrap_RequireAuthRejectsAnonymousWrites(t *testing.T) {
	cfg := memoryConfig()
	cfg.Security.RequireAuth = true
	cfg.Security.JWTSigningKey = "test-signing-key-1234567890123456"

	app, err := Bootstrap(context.Background(), cfg)
	require.NoError(t, err)
	defer app.Shutdown()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/io-terms", strings.NewReader(`{"label":"Order"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, _, err := middleware.GenerateToken(jwtConfig(cfg), "alice")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/io-terms", strings.NewReader(`{"label":"Order"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"created_by":"alice"`)
}

func TestApplication_Shutdown_Nil(t *testing.T) {
	// Shutdown on empty application should not panic.
	app := &Application{}

	assert.NotPanics(t, func() {
		app.Shutdown()
	}, "Shutdown on empty Application should not panic")
}
