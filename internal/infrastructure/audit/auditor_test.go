package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/mealplan"
	"github.com/mealprep/recommender/internal/ports/outbound"
	apperrors "github.com/mealprep/recommender/pkg/errors"
	"github.com/mealprep/recommender/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newOperation() outbound.Operation {
	return outbound.Operation{
		ID:         uuid.New(),
		Type:       outbound.OperationGenerateMealPlan,
		CustomerID: uuid.New(),
		Metadata:   map[string]interface{}{"days": 7},
	}
}

func TestOperationAuditor_PersistsLifecycle(t *testing.T) {
	repo := new(testutils.MockAuditRepository)
	var saved []outbound.AuditRecord
	repo.On("Save", mock.Anything, mock.AnythingOfType("outbound.AuditRecord")).
		Run(func(args mock.Arguments) { saved = append(saved, args.Get(1).(outbound.AuditRecord)) }).
		Return(nil)

	core, logs := observer.New(zap.InfoLevel)
	auditor := NewOperationAuditor(repo, DefaultConfig(), zap.New(core))
	op := newOperation()
	ctx := context.Background()

	auditor.Start(ctx, op)
	cause := apperrors.NewSafetyViolationError([]string{"peanuts"}, mealplan.ErrNoSafeRecipes)
	auditor.Failure(ctx, op, 1500*time.Millisecond, cause)
	require.NoError(t, auditor.Close(ctx))

	require.Len(t, saved, 2)
	assert.Equal(t, PhaseStart, saved[0].Phase)
	assert.Equal(t, op.ID, saved[0].OperationID)
	assert.Equal(t, 7, saved[0].Metadata["days"])

	failure := saved[1]
	assert.Equal(t, PhaseFailure, failure.Phase)
	assert.Equal(t, int64(1500), failure.DurationMs)
	assert.Equal(t, string(apperrors.CodeSafetyViolation), failure.ErrorCode)
	assert.NotEmpty(t, failure.ErrorMessage)
	assert.NotEmpty(t, failure.StackContext)

	failed := logs.FilterMessage("Operation failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.ErrorLevel, failed[0].Level)
	assert.Equal(t, "SAFETY_VIOLATION", failed[0].ContextMap()["error_code"])
	assert.Equal(t, op.ID.String(), failed[0].ContextMap()["operation_id"])
}

func TestOperationAuditor_MetadataIsCopied(t *testing.T) {
	repo := new(testutils.MockAuditRepository)
	var saved outbound.AuditRecord
	repo.On("Save", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(outbound.AuditRecord) }).
		Return(nil)

	auditor := NewOperationAuditor(repo, DefaultConfig(), zap.NewNop())
	op := newOperation()
	auditor.Success(context.Background(), op, time.Second)
	op.Metadata["days"] = 99
	require.NoError(t, auditor.Close(context.Background()))

	assert.Equal(t, PhaseSuccess, saved.Phase)
	assert.Equal(t, int64(1000), saved.DurationMs)
	assert.Equal(t, 7, saved.Metadata["days"])
}

func TestOperationAuditor_RepositoryErrorIsLogged(t *testing.T) {
	repo := new(testutils.MockAuditRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	core, logs := observer.New(zap.InfoLevel)
	auditor := NewOperationAuditor(repo, DefaultConfig(), zap.New(core))
	auditor.Success(context.Background(), newOperation(), time.Millisecond)
	require.NoError(t, auditor.Close(context.Background()))

	assert.Equal(t, 1, logs.FilterMessage("Failed to persist audit record").Len())
}

func TestOperationAuditor_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	release := make(chan struct{})
	repo := new(testutils.MockAuditRepository)
	repo.On("Save", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(nil)

	core, logs := observer.New(zap.InfoLevel)
	auditor := NewOperationAuditor(repo, Config{BufferSize: 1}, zap.New(core))
	op := newOperation()

	finished := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			auditor.Start(context.Background(), op)
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("auditor blocked the caller")
	}

	close(release)
	require.NoError(t, auditor.Close(context.Background()))
	assert.Positive(t, logs.FilterMessage("Audit queue full, dropping record").Len())
}

func TestOperationAuditor_LogOnly(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	auditor := NewOperationAuditor(nil, DefaultConfig(), zap.New(core))

	auditor.Start(context.Background(), newOperation())
	auditor.Failure(context.Background(), newOperation(), time.Millisecond, errors.New("boom"))
	require.NoError(t, auditor.Close(context.Background()))

	assert.Equal(t, 1, logs.FilterMessage("Operation started").Len())
	failed := logs.FilterMessage("Operation failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "INTERNAL_ERROR", failed[0].ContextMap()["error_code"])
}

func TestOperationAuditor_AfterClose(t *testing.T) {
	repo := new(testutils.MockAuditRepository)
	core, logs := observer.New(zap.InfoLevel)
	auditor := NewOperationAuditor(repo, DefaultConfig(), zap.New(core))
	require.NoError(t, auditor.Close(context.Background()))
	require.NoError(t, auditor.Close(context.Background()))

	auditor.Start(context.Background(), newOperation())

	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Equal(t, 1, logs.FilterMessage("Audit record dropped after close").Len())
}
