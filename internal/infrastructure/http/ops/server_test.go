package ops

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mealprep/recommender/internal/infrastructure/config"
	"github.com/mealprep/recommender/internal/infrastructure/monitoring"
	"github.com/mealprep/recommender/pkg/healthcheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeCatalog struct {
	calls int
	err   error
}

func (f *fakeCatalog) Invalidate(context.Context) error {
	f.calls++
	return f.err
}

type staticFlags bool

func (s staticFlags) AIEnabled() bool { return bool(s) }

func newTestServer(t *testing.T, healthy bool, catalog CatalogInvalidator) *httptest.Server {
	t.Helper()
	logger := zaptest.NewLogger(t)

	health := healthcheck.New("test", logger)
	health.Register("database", healthcheck.NewErrorChecker("database", func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("connection refused")
	}))

	recorder := monitoring.NewRecorder(logger)
	recorder.RunCompleted("generate_meal_plan", "success", time.Second)

	router := NewRouter(Dependencies{
		Health:  health,
		Metrics: recorder.Handler(),
		Catalog: catalog,
		Flags:   staticFlags(true),
	}, logger)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestRouter_Probes(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		srv := newTestServer(t, true, nil)

		status, body := get(t, srv.URL+"/healthz")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "alive", body["status"])

		status, body = get(t, srv.URL+"/readyz")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ready", body["status"])
	})

	t.Run("DependencyDown", func(t *testing.T) {
		srv := newTestServer(t, false, nil)

		status, body := get(t, srv.URL+"/healthz")
		assert.Equal(t, http.StatusOK, status, "liveness ignores dependencies")
		assert.Equal(t, "alive", body["status"])

		status, body = get(t, srv.URL+"/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Equal(t, "not_ready", body["status"])
	})
}

func TestRouter_Metrics(t *testing.T) {
	srv := newTestServer(t, true, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "mealplan_runs_total")
}

func TestRouter_Admin(t *testing.T) {
	t.Run("InvalidateCatalog", func(t *testing.T) {
		catalog := &fakeCatalog{}
		srv := newTestServer(t, true, catalog)

		resp, err := http.Post(srv.URL+"/admin/catalog/invalidate", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 1, catalog.calls)
	})

	t.Run("InvalidateFailure", func(t *testing.T) {
		catalog := &fakeCatalog{err: errors.New("redis down")}
		srv := newTestServer(t, true, catalog)

		resp, err := http.Post(srv.URL+"/admin/catalog/invalidate", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("NoCatalogNoRoute", func(t *testing.T) {
		srv := newTestServer(t, true, nil)

		resp, err := http.Post(srv.URL+"/admin/catalog/invalidate", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Flags", func(t *testing.T) {
		srv := newTestServer(t, true, nil)

		status, body := get(t, srv.URL+"/admin/flags")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, body["ai_enabled"])
	})
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	srv := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 0}, http.NotFoundHandler(), zaptest.NewLogger(t))
	assert.Equal(t, "127.0.0.1:0", srv.Addr())
	assert.NoError(t, srv.Shutdown(context.Background()))
}
