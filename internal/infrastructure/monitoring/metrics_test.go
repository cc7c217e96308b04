package monitoring

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zaptest"
)

func TestRecorder_RunCompleted(t *testing.T) {
	r := NewRecorder(zaptest.NewLogger(t))

	r.RunCompleted("generate_meal_plan", "success", 200*time.Millisecond)
	r.RunCompleted("generate_meal_plan", "success", time.Second)
	r.RunCompleted("generate_meal_plan", "SAFETY_VIOLATION", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("generate_meal_plan", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("generate_meal_plan", "SAFETY_VIOLATION")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.runDuration))
}

func TestRecorder_SlotsAndExclusions(t *testing.T) {
	r := NewRecorder(zaptest.NewLogger(t))

	r.SlotResolved("delegated", 1)
	r.SlotResolved("delegated", 1)
	r.SlotResolved("delegated", 3)
	r.CandidatesExcluded("missing_nutrition", 4)
	r.CandidatesExcluded("missing_nutrition", 0)
	r.CandidatesExcluded("allergen", -1)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.slotsResolved.WithLabelValues("delegated", "1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.slotsResolved.WithLabelValues("delegated", "3")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.candidatesExcluded.WithLabelValues("missing_nutrition")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.candidatesExcluded))
}

func TestRecorder_CircuitState(t *testing.T) {
	r := NewRecorder(zaptest.NewLogger(t))

	r.CircuitStateChanged("ollama", "open")
	assert.Equal(t, 2.0, testutil.ToFloat64(r.circuitState.WithLabelValues("ollama")))

	r.CircuitStateChanged("ollama", "half-open")
	assert.Equal(t, 1.0, testutil.ToFloat64(r.circuitState.WithLabelValues("ollama")))

	r.CircuitStateChanged("ollama", "bogus")
	assert.Equal(t, 1.0, testutil.ToFloat64(r.circuitState.WithLabelValues("ollama")))
}

func TestRecorder_CacheLookup(t *testing.T) {
	r := NewRecorder(zaptest.NewLogger(t))

	r.CacheLookup(true)
	r.CacheLookup(false)
	r.CacheLookup(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("miss")))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder(zaptest.NewLogger(t))
	r.RunCompleted("generate_meal_plan", "success", time.Second)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `mealplan_runs_total{operation="generate_meal_plan",outcome="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestTracingProvider_Disabled(t *testing.T) {
	tp, err := NewTracingProvider(context.Background(), TracingConfig{ServiceName: "mealplan"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.Enabled())
	ctx, span := tp.StartSpan(context.Background(), "noop")
	span.End()
	assert.Empty(t, TraceIDFromContext(ctx))
	assert.Nil(t, TraceFields(ctx))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestTraceFields(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", TraceIDFromContext(ctx))
	fields := TraceFields(ctx)
	require.Len(t, fields, 2)
	assert.Equal(t, "span_id", fields[1].Key)
	assert.Equal(t, "00f067aa0ba902b7", fields[1].String)
}
