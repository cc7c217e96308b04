// Package healthcheck unit tests
package healthcheck

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	_ "gorm.io/driver/sqlite"
)

// countingChecker returns a fixed status and counts invocations
type countingChecker struct {
	status  Status
	message string
	calls   atomic.Int32
}

func (c *countingChecker) Check(context.Context) Check {
	c.calls.Add(1)
	return Check{Status: c.status, Message: c.message}
}

// fakeClock lets tests step past the cache TTL
type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestHealthCheck(t *testing.T) (*HealthCheck, *fakeClock) {
	hc := New("1.0.0", zaptest.NewLogger(t))
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	hc.now = clock.now
	return hc, clock
}

func TestNew(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())

	assert.NotNil(t, hc)
	assert.Equal(t, "1.0.0", hc.version)
	assert.NotNil(t, hc.checkers)
	assert.Equal(t, 5*time.Second, hc.cacheTTL)
}

func TestHealthCheck_Check_NoCheckers(t *testing.T) {
	hc, _ := newTestHealthCheck(t)

	response := hc.Check(context.Background())

	assert.Equal(t, StatusHealthy, response.Status)
	assert.Equal(t, "1.0.0", response.Version)
	assert.Empty(t, response.Checks)
}

func TestHealthCheck_Check_AggregatesStatus(t *testing.T) {
	testCases := []struct {
		name     string
		statuses map[string]Status
		expected Status
	}{
		{"AllHealthy", map[string]Status{"database": StatusHealthy, "redis": StatusHealthy}, StatusHealthy},
		{"OneDegraded", map[string]Status{"database": StatusHealthy, "redis": StatusDegraded}, StatusDegraded},
		{"UnhealthyWins", map[string]Status{"database": StatusUnhealthy, "redis": StatusDegraded}, StatusUnhealthy},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			hc, _ := newTestHealthCheck(t)
			for name, status := range tc.statuses {
				hc.Register(name, &countingChecker{status: status})
			}

			response := hc.Check(context.Background())

			assert.Equal(t, tc.expected, response.Status)
			assert.Len(t, response.Checks, len(tc.statuses))
			for _, check := range response.Checks {
				assert.Equal(t, tc.statuses[check.Name], check.Status)
			}
		})
	}
}

func TestHealthCheck_CheckOne_Caches(t *testing.T) {
	hc, clock := newTestHealthCheck(t)
	checker := &countingChecker{status: StatusHealthy}
	hc.Register("ollama", checker)
	ctx := context.Background()

	assert.True(t, hc.IsHealthy(ctx, "ollama"))
	assert.True(t, hc.IsHealthy(ctx, "ollama"))
	assert.Equal(t, int32(1), checker.calls.Load())

	clock.advance(6 * time.Second)
	checker.status = StatusUnhealthy
	assert.False(t, hc.IsHealthy(ctx, "ollama"))
	assert.Equal(t, int32(2), checker.calls.Load())

	hc.Invalidate("ollama")
	checker.status = StatusDegraded
	assert.True(t, hc.IsHealthy(ctx, "ollama"), "degraded still serves traffic")
	assert.Equal(t, int32(3), checker.calls.Load())
}

func TestHealthCheck_CheckOne_Unknown(t *testing.T) {
	hc, _ := newTestHealthCheck(t)

	check := hc.CheckOne(context.Background(), "missing")

	assert.Equal(t, StatusUnhealthy, check.Status)
	assert.Equal(t, "missing", check.Name)
}

func TestHealthCheck_Handlers(t *testing.T) {
	hc, _ := newTestHealthCheck(t)
	hc.Register("database", &countingChecker{status: StatusHealthy})
	failing := &countingChecker{status: StatusUnhealthy, message: "connection refused"}
	hc.Register("ranking", failing)

	t.Run("Liveness", func(t *testing.T) {
		rec := httptest.NewRecorder()
		hc.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"alive"`)
	})

	t.Run("ReadinessFails", func(t *testing.T) {
		rec := httptest.NewRecorder()
		hc.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "not_ready", body["status"])
	})

	t.Run("HealthReport", func(t *testing.T) {
		rec := httptest.NewRecorder()
		hc.Handler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "connection refused")
	})
}

func TestErrorChecker(t *testing.T) {
	ok := NewErrorChecker("ping", func(context.Context) error { return nil })
	bad := NewErrorChecker("ping", func(context.Context) error { return errors.New("timeout") })

	assert.Equal(t, StatusHealthy, ok.Check(context.Background()).Status)
	check := bad.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, check.Status)
	assert.Equal(t, "timeout", check.Message)
}

func TestDatabaseChecker(t *testing.T) {
	db, err := sql.Open("sqlite3", "file::memory:")
	require.NoError(t, err)

	check := NewDatabaseChecker(db).Check(context.Background())
	assert.Equal(t, StatusHealthy, check.Status)

	require.NoError(t, db.Close())
	check = NewDatabaseChecker(db).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, check.Status)
}

func TestCheck_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Check{Name: "redis", Status: StatusHealthy, Duration: 1500 * time.Millisecond})

	require.NoError(t, err)
	assert.Contains(t, string(data), `"duration_ms":1500`)
}
