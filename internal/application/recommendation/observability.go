package recommendation

import (
	"context"
	"time"

	"github.com/mealprep/recommender/internal/ports/outbound"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/mealprep/recommender/internal/application/recommendation")

// MetricsRecorder receives engine metrics
type MetricsRecorder interface {
	RunCompleted(operation, outcome string, duration time.Duration)
	SlotResolved(scorer string, tier int)
	CandidatesExcluded(reason string, count int)
}

// NopMetrics discards every metric
type NopMetrics struct{}

func (NopMetrics) RunCompleted(string, string, time.Duration) {}
func (NopMetrics) SlotResolved(string, int)                   {}
func (NopMetrics) CandidatesExcluded(string, int)             {}

// safeAuditor shields runs from auditor panics. Audit delivery is best
// effort and never changes the outcome of a run.
type safeAuditor struct {
	auditor outbound.OperationAuditor
	logger  *zap.Logger
}

func newSafeAuditor(a outbound.OperationAuditor, logger *zap.Logger) *safeAuditor {
	return &safeAuditor{auditor: a, logger: logger}
}

func (s *safeAuditor) start(ctx context.Context, op outbound.Operation) {
	s.call("start", func() { s.auditor.Start(ctx, op) })
}

func (s *safeAuditor) success(ctx context.Context, op outbound.Operation, d time.Duration) {
	s.call("success", func() { s.auditor.Success(ctx, op, d) })
}

func (s *safeAuditor) failure(ctx context.Context, op outbound.Operation, d time.Duration, err error) {
	s.call("failure", func() { s.auditor.Failure(ctx, op, d, err) })
}

func (s *safeAuditor) call(phase string, fn func()) {
	if s.auditor == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Audit delivery panicked", zap.String("phase", phase), zap.Any("panic", r))
		}
	}()
	fn()
}
