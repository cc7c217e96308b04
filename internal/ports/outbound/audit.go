package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OperationAuditor receives run lifecycle events. Calls are fire-and-forget:
// an auditor must never block or fail the operation being audited.
type OperationAuditor interface {
	Start(ctx context.Context, op Operation)
	Success(ctx context.Context, op Operation, duration time.Duration)
	Failure(ctx context.Context, op Operation, duration time.Duration, err error)
}

// Operation identifies an audited run
type Operation struct {
	ID         uuid.UUID
	Type       OperationType
	CustomerID uuid.UUID
	Metadata   map[string]interface{}
}

// OperationType names the audited entry point
type OperationType string

const (
	OperationGenerateMealPlan           OperationType = "generate_meal_plan"
	OperationGenerateSlotRecommendation OperationType = "generate_slot_recommendation"
)

// AuditRecord is the persisted form of an audit event
type AuditRecord struct {
	ID            uuid.UUID
	OperationID   uuid.UUID
	OperationType OperationType
	CustomerID    uuid.UUID
	Phase         string
	DurationMs    int64
	ErrorCode     string
	ErrorMessage  string
	StackContext  string
	Metadata      map[string]interface{}
	OccurredAt    time.Time
}

// AuditRepository persists audit records
type AuditRepository interface {
	Save(ctx context.Context, rec AuditRecord) error
}
