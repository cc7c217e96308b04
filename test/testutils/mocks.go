// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/customer"
	"github.com/mealprep/recommender/internal/domain/recipe"
	"github.com/mealprep/recommender/internal/ports/outbound"
	"github.com/stretchr/testify/mock"
)

// MockRankingProvider provides a mock implementation of RankingProvider
type MockRankingProvider struct {
	mock.Mock
}

// Name returns the provider name
func (m *MockRankingProvider) Name() string {
	return "mock"
}

// Rank ranks candidates
func (m *MockRankingProvider) Rank(ctx context.Context, req outbound.RankRequest) ([]outbound.RankedItem, error) {
	args := m.Called(ctx, req)
	items, _ := args.Get(0).([]outbound.RankedItem)
	return items, args.Error(1)
}

// IsAvailable reports provider health
func (m *MockRankingProvider) IsAvailable(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

// StubRankingProvider always returns the offered candidates in order with
// descending confidence, truncated to the count hint.
type StubRankingProvider struct {
	Available bool
	// Extra ids appended to every ranking, e.g. unsafe or unknown recipes
	Extra []uuid.UUID

	mu       sync.Mutex
	requests []outbound.RankRequest
}

// NewStubRankingProvider creates an available stub
func NewStubRankingProvider() *StubRankingProvider {
	return &StubRankingProvider{Available: true}
}

// Name returns the provider name
func (s *StubRankingProvider) Name() string {
	return "stub"
}

// IsAvailable reports the configured availability
func (s *StubRankingProvider) IsAvailable(context.Context) bool {
	return s.Available
}

// Rank returns the top candidates
func (s *StubRankingProvider) Rank(_ context.Context, req outbound.RankRequest) ([]outbound.RankedItem, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	var items []outbound.RankedItem
	for _, id := range s.Extra {
		items = append(items, outbound.RankedItem{RecipeID: id, Confidence: 1, Rationale: "injected"})
	}
	n := req.CountHint
	if n <= 0 {
		n = 1
	}
	for i, c := range req.Candidates {
		if i >= n {
			break
		}
		items = append(items, outbound.RankedItem{
			RecipeID:   c.ID(),
			Confidence: 0.95 - float64(i)*0.05,
			Rationale:  "top candidate",
		})
	}
	return items, nil
}

// Requests returns every request seen so far
func (s *StubRankingProvider) Requests() []outbound.RankRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbound.RankRequest(nil), s.requests...)
}

// MockMealHistoryRepository provides a mock implementation of MealHistoryRepository
type MockMealHistoryRepository struct {
	mock.Mock
}

// RecentRecipeIDs returns recently served recipe ids
func (m *MockMealHistoryRepository) RecentRecipeIDs(ctx context.Context, customerID uuid.UUID, from, to time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, customerID, from, to)
	ids, _ := args.Get(0).([]uuid.UUID)
	return ids, args.Error(1)
}

// Record records a served meal
func (m *MockMealHistoryRepository) Record(ctx context.Context, customerID uuid.UUID, entry customer.MealHistoryEntry) error {
	args := m.Called(ctx, customerID, entry)
	return args.Error(0)
}

// MockRecipeCatalogRepository provides a mock implementation of RecipeCatalogRepository
type MockRecipeCatalogRepository struct {
	mock.Mock
}

// ListActive returns the active catalog
func (m *MockRecipeCatalogRepository) ListActive(ctx context.Context) ([]*recipe.Recipe, error) {
	args := m.Called(ctx)
	recipes, _ := args.Get(0).([]*recipe.Recipe)
	return recipes, args.Error(1)
}

// FindByIDs returns recipes by id
func (m *MockRecipeCatalogRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*recipe.Recipe, error) {
	args := m.Called(ctx, ids)
	recipes, _ := args.Get(0).([]*recipe.Recipe)
	return recipes, args.Error(1)
}

// MockAuditRepository provides a mock implementation of AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

// Save persists an audit record
func (m *MockAuditRepository) Save(ctx context.Context, rec outbound.AuditRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// AuditEntry is an event captured by RecordingAuditor
type AuditEntry struct {
	Phase     string
	Operation outbound.Operation
	Duration  time.Duration
	Err       error
}

// RecordingAuditor captures audit events in memory
type RecordingAuditor struct {
	mu      sync.Mutex
	entries []AuditEntry
	// PanicOn makes the auditor panic on the named phase
	PanicOn string
}

// Start records a start event
func (r *RecordingAuditor) Start(_ context.Context, op outbound.Operation) {
	r.record(AuditEntry{Phase: "start", Operation: op})
}

// Success records a success event
func (r *RecordingAuditor) Success(_ context.Context, op outbound.Operation, d time.Duration) {
	r.record(AuditEntry{Phase: "success", Operation: op, Duration: d})
}

// Failure records a failure event
func (r *RecordingAuditor) Failure(_ context.Context, op outbound.Operation, d time.Duration, err error) {
	r.record(AuditEntry{Phase: "failure", Operation: op, Duration: d, Err: err})
}

func (r *RecordingAuditor) record(e AuditEntry) {
	if r.PanicOn == e.Phase {
		panic("auditor failure on " + e.Phase)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

// Entries returns the captured events
func (r *RecordingAuditor) Entries() []AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AuditEntry(nil), r.entries...)
}

// Phases returns the captured phases in order
func (r *RecordingAuditor) Phases() []string {
	var out []string
	for _, e := range r.Entries() {
		out = append(out, e.Phase)
	}
	return out
}
