// Package audit records the lifecycle of recommendation runs: a structured
// log line per event plus asynchronous persistence of an audit record
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/infrastructure/monitoring"
	"github.com/mealprep/recommender/internal/ports/outbound"
	apperrors "github.com/mealprep/recommender/pkg/errors"
	"go.uber.org/zap"
)

// Audit phases
const (
	PhaseStart   = "start"
	PhaseSuccess = "success"
	PhaseFailure = "failure"
)

// Config tunes the persistence queue
type Config struct {
	BufferSize     int
	PersistTimeout time.Duration
}

// DefaultConfig returns the stock queue settings
func DefaultConfig() Config {
	return Config{
		BufferSize:     256,
		PersistTimeout: 5 * time.Second,
	}
}

// OperationAuditor implements outbound.OperationAuditor. Events are logged
// synchronously and queued for the repository; a full queue drops the
// record instead of blocking the audited run.
type OperationAuditor struct {
	repo   outbound.AuditRepository
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	queue     chan outbound.AuditRecord
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

var _ outbound.OperationAuditor = (*OperationAuditor)(nil)

// NewOperationAuditor creates an auditor. With a nil repo events are only
// logged.
func NewOperationAuditor(repo outbound.AuditRepository, cfg Config, logger *zap.Logger) *OperationAuditor {
	defaults := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaults.BufferSize
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = defaults.PersistTimeout
	}

	a := &OperationAuditor{
		repo:   repo,
		cfg:    cfg,
		logger: logger.Named("audit"),
		now:    time.Now,
		queue:  make(chan outbound.AuditRecord, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	if repo != nil {
		go a.run()
	} else {
		close(a.done)
	}
	return a
}

// Start records that an operation began
func (a *OperationAuditor) Start(ctx context.Context, op outbound.Operation) {
	fields := append(a.fields(ctx, op), zap.Any("metadata", op.Metadata))
	a.logger.Info("Operation started", fields...)

	a.enqueue(a.record(op, PhaseStart))
}

// Success records that an operation finished
func (a *OperationAuditor) Success(ctx context.Context, op outbound.Operation, duration time.Duration) {
	fields := append(a.fields(ctx, op), zap.Duration("duration", duration))
	a.logger.Info("Operation succeeded", fields...)

	rec := a.record(op, PhaseSuccess)
	rec.DurationMs = duration.Milliseconds()
	a.enqueue(rec)
}

// Failure records that an operation failed, with the error code and the
// stack captured where the error was raised
func (a *OperationAuditor) Failure(ctx context.Context, op outbound.Operation, duration time.Duration, err error) {
	code := apperrors.GetCode(err)
	stack := apperrors.StackOf(err)

	fields := append(a.fields(ctx, op),
		zap.Duration("duration", duration),
		zap.String("error_code", string(code)),
		zap.Error(err),
	)
	if stack != "" {
		fields = append(fields, zap.String("stack_context", stack))
	}
	a.logger.Error("Operation failed", fields...)

	rec := a.record(op, PhaseFailure)
	rec.DurationMs = duration.Milliseconds()
	rec.ErrorCode = string(code)
	if err != nil {
		rec.ErrorMessage = err.Error()
	}
	rec.StackContext = stack
	a.enqueue(rec)
}

// Close stops accepting records and waits for the queue to drain or ctx to
// end
func (a *OperationAuditor) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()
		if a.repo != nil {
			close(a.queue)
		}
	})

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *OperationAuditor) fields(ctx context.Context, op outbound.Operation) []zap.Field {
	fields := []zap.Field{
		zap.String("operation_id", op.ID.String()),
		zap.String("operation", string(op.Type)),
		zap.String("customer_id", op.CustomerID.String()),
	}
	return append(fields, monitoring.TraceFields(ctx)...)
}

func (a *OperationAuditor) record(op outbound.Operation, phase string) outbound.AuditRecord {
	var metadata map[string]interface{}
	if len(op.Metadata) > 0 {
		metadata = make(map[string]interface{}, len(op.Metadata))
		for k, v := range op.Metadata {
			metadata[k] = v
		}
	}
	return outbound.AuditRecord{
		ID:            uuid.New(),
		OperationID:   op.ID,
		OperationType: op.Type,
		CustomerID:    op.CustomerID,
		Phase:         phase,
		Metadata:      metadata,
		OccurredAt:    a.now().UTC(),
	}
}

func (a *OperationAuditor) enqueue(rec outbound.AuditRecord) {
	if a.repo == nil {
		return
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.logger.Warn("Audit record dropped after close", zap.String("operation_id", rec.OperationID.String()))
		return
	}

	select {
	case a.queue <- rec:
	default:
		a.logger.Warn("Audit queue full, dropping record",
			zap.String("operation_id", rec.OperationID.String()),
			zap.String("phase", rec.Phase),
		)
	}
}

func (a *OperationAuditor) run() {
	defer close(a.done)

	for rec := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.PersistTimeout)
		if err := a.repo.Save(ctx, rec); err != nil {
			a.logger.Error("Failed to persist audit record",
				zap.String("operation_id", rec.OperationID.String()),
				zap.String("phase", rec.Phase),
				zap.Error(err),
			)
		}
		cancel()
	}
}
