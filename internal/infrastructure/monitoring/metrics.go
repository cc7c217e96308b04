package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "mealplan"

// circuitStates maps gobreaker state names to gauge values
var circuitStates = map[string]float64{
	"closed":    0,
	"half-open": 1,
	"open":      2,
}

// Recorder collects recommendation engine metrics on its own registry
type Recorder struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	runsTotal          *prometheus.CounterVec
	runDuration        *prometheus.HistogramVec
	slotsResolved      *prometheus.CounterVec
	candidatesExcluded *prometheus.CounterVec
	circuitState       *prometheus.GaugeVec
	cacheLookups       *prometheus.CounterVec
}

// NewRecorder creates a recorder and registers its collectors together with
// the Go runtime and process collectors.
func NewRecorder(logger *zap.Logger) *Recorder {
	r := &Recorder{
		logger:   logger.Named("metrics"),
		registry: prometheus.NewRegistry(),

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of recommendation runs by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Recommendation run duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
		slotsResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "slots_resolved_total",
				Help:      "Meal slots resolved by scorer and exclusion tier",
			},
			[]string{"scorer", "tier"},
		),
		candidatesExcluded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candidates_excluded_total",
				Help:      "Recipes removed from the candidate pool by reason",
			},
			[]string{"reason"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ranking_circuit_state",
				Help:      "Ranking provider circuit state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"provider"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_cache_lookups_total",
				Help:      "Catalog snapshot cache lookups by result",
			},
			[]string{"result"},
		),
	}

	r.registry.MustRegister(
		r.runsTotal,
		r.runDuration,
		r.slotsResolved,
		r.candidatesExcluded,
		r.circuitState,
		r.cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// RunCompleted records a finished run
func (r *Recorder) RunCompleted(operation, outcome string, duration time.Duration) {
	r.runsTotal.WithLabelValues(operation, outcome).Inc()
	r.runDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SlotResolved records the exclusion tier a slot was resolved at
func (r *Recorder) SlotResolved(scorer string, tier int) {
	r.slotsResolved.WithLabelValues(scorer, strconv.Itoa(tier)).Inc()
}

// CandidatesExcluded adds count to the exclusion counter for reason
func (r *Recorder) CandidatesExcluded(reason string, count int) {
	if count <= 0 {
		return
	}
	r.candidatesExcluded.WithLabelValues(reason).Add(float64(count))
}

// CircuitStateChanged tracks the ranking provider breaker state
func (r *Recorder) CircuitStateChanged(provider, state string) {
	value, ok := circuitStates[state]
	if !ok {
		r.logger.Warn("Unknown circuit state", zap.String("provider", provider), zap.String("state", state))
		return
	}
	r.circuitState.WithLabelValues(provider).Set(value)
}

// CacheLookup counts a catalog cache hit or miss
func (r *Recorder) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// Registry returns the registry the collectors live on
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		ErrorLog:      zap.NewStdLog(r.logger),
		ErrorHandling: promhttp.ContinueOnError,
	})
}
