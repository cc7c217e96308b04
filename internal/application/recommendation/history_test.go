package recommendation

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/mealprep/recommender/pkg/errors"
	"github.com/mealprep/recommender/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestHistoryWindows(t *testing.T) {
	tracker := NewRecentHistoryTracker(nil, 0, zaptest.NewLogger(t))

	from, to := tracker.WindowFor(day("2024-06-10").Add(18 * time.Hour))
	assert.Equal(t, day("2024-06-07"), from)
	assert.Equal(t, day("2024-06-09"), to)

	from, to = tracker.PlanWindow(day("2024-06-10"), day("2024-06-16"))
	assert.Equal(t, day("2024-06-07"), from)
	assert.Equal(t, day("2024-06-15"), to)
}

func TestRecentRecipeIDsMergesSnapshotAndRepository(t *testing.T) {
	inWindow, outOfWindow, persisted := uuid.New(), uuid.New(), uuid.New()
	c := testutils.NewCustomerBuilder().
		WithServed(inWindow, day("2024-06-08").Add(12*time.Hour)).
		WithServed(outOfWindow, day("2024-06-01")).
		Build()

	repo := new(testutils.MockMealHistoryRepository)
	repo.On("RecentRecipeIDs", mock.Anything, c.ID(), day("2024-06-07"), day("2024-06-09")).
		Return([]uuid.UUID{persisted}, nil).Once()

	tracker := NewRecentHistoryTracker(repo, 3, zaptest.NewLogger(t))
	from, to := tracker.WindowFor(day("2024-06-10"))
	set, err := tracker.RecentRecipeIDs(t.Context(), c, from, to)

	require.NoError(t, err)
	assert.True(t, set.Contains(inWindow))
	assert.True(t, set.Contains(persisted))
	assert.False(t, set.Contains(outOfWindow))
	repo.AssertExpectations(t)
}

func TestRecentRecipeIDsEmptyHistoryIsNotAnError(t *testing.T) {
	c := testutils.NewCustomerBuilder().Build()
	repo := new(testutils.MockMealHistoryRepository)
	repo.On("RecentRecipeIDs", mock.Anything, c.ID(), mock.Anything, mock.Anything).Return(nil, nil)

	set, err := NewRecentHistoryTracker(repo, 3, zaptest.NewLogger(t)).
		RecentRecipeIDs(t.Context(), c, day("2024-01-01"), day("2024-01-03"))

	require.NoError(t, err)
	assert.Zero(t, set.Len())
}

func TestRecentRecipeIDsRepositoryFailure(t *testing.T) {
	c := testutils.NewCustomerBuilder().Build()
	boom := errors.New("connection refused")
	repo := new(testutils.MockMealHistoryRepository)
	repo.On("RecentRecipeIDs", mock.Anything, c.ID(), mock.Anything, mock.Anything).Return(nil, boom)

	_, err := NewRecentHistoryTracker(repo, 3, zaptest.NewLogger(t)).
		RecentRecipeIDs(t.Context(), c, day("2024-01-01"), day("2024-01-03"))

	assert.True(t, errors.Is(err, boom))
	assert.True(t, apperrors.Is(err, apperrors.CodeDatabaseError))
}
