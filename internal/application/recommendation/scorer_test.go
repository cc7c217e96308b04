package recommendation

import (
	"errors"
	"testing"

	"github.com/mealprep/recommender/internal/domain/customer"
	"github.com/mealprep/recommender/internal/domain/mealplan"
	apperrors "github.com/mealprep/recommender/pkg/errors"
	"github.com/mealprep/recommender/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewCandidateScorer(t *testing.T) {
	logger := zaptest.NewLogger(t)

	s, err := NewCandidateScorer("", testutils.NewStubRankingProvider(), logger)
	require.NoError(t, err)
	assert.IsType(t, &DelegatedScorer{}, s)

	s, err = NewCandidateScorer("Weighted", nil, logger)
	require.NoError(t, err)
	assert.Equal(t, ScorerWeighted, s.Name())

	_, err = NewCandidateScorer(ScorerDelegated, nil, logger)
	assert.Error(t, err)
	_, err = NewCandidateScorer("random", nil, logger)
	assert.Error(t, err)
}

func TestDelegatedScorerAvailability(t *testing.T) {
	provider := new(testutils.MockRankingProvider)
	scorer := NewDelegatedScorer(provider, zaptest.NewLogger(t))

	t.Run("DisabledByFlag", func(t *testing.T) {
		err := scorer.Available(t.Context(), false)
		assert.True(t, errors.Is(err, mealplan.ErrCollaboratorUnavailable))
		provider.AssertNotCalled(t, "IsAvailable", mock.Anything)
	})

	t.Run("ProviderUnhealthy", func(t *testing.T) {
		provider.On("IsAvailable", mock.Anything).Return(false).Once()
		err := scorer.Available(t.Context(), true)
		assert.True(t, apperrors.Is(err, apperrors.CodeCollaboratorUnavailable))
	})

	t.Run("Healthy", func(t *testing.T) {
		provider.On("IsAvailable", mock.Anything).Return(true).Once()
		assert.NoError(t, scorer.Available(t.Context(), true))
	})
}

func TestDelegatedScorerWrapsProviderErrors(t *testing.T) {
	provider := new(testutils.MockRankingProvider)
	boom := errors.New("connection reset")
	provider.On("Rank", mock.Anything, mock.Anything).Return(nil, boom)

	_, err := NewDelegatedScorer(provider, zaptest.NewLogger(t)).Score(t.Context(), ScoreRequest{
		Customer: testutils.NewCustomerBuilder().Build(),
		Slot:     mealplan.NewMealSlot(day("2024-01-01"), mealplan.MealTypeLunch),
	})

	assert.True(t, errors.Is(err, boom))
	assert.True(t, errors.Is(err, mealplan.ErrCollaboratorUnavailable))
}

func TestWeightedRuleScorerPrefersBetterMatches(t *testing.T) {
	c := testutils.NewCustomerBuilder().WithProfile(&customer.HealthProfile{
		DietaryRestrictions: []customer.DietaryRestriction{customer.DietaryRestrictionVegetarian},
		CalorieGoal:         2000,
		Preferences:         "love mushrooms",
	}).Build()

	// 700 kcal lunch target at 35% of 2000
	good := testutils.NewRecipeBuilder().WithName("Mushroom Risotto").
		WithMacros(45, 20, 85).WithTags("vegetarian").Build()
	poor := testutils.NewRecipeBuilder().WithName("Steak").
		WithMacros(90, 60, 5).Build()
	recent := testutils.NewRecipeBuilder().WithName("Mushroom Pasta").
		WithMacros(45, 20, 85).WithTags("vegetarian").Build()

	scorer := NewWeightedRuleScorer(DefaultWeights(), zaptest.NewLogger(t))
	items, err := scorer.Score(t.Context(), ScoreRequest{
		Customer:   c,
		Candidates: []*recipeT{poor, recent, good},
		Exclusions: mealplan.NewExclusionSet(recent.ID()),
		Slot:       mealplan.NewMealSlot(day("2024-01-01"), mealplan.MealTypeLunch),
		CountHint:  3,
	})

	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, good.ID(), items[0].RecipeID)
	assert.Equal(t, recent.ID(), items[1].RecipeID)
	assert.Equal(t, poor.ID(), items[2].RecipeID)
	for _, it := range items {
		assert.Greater(t, it.Confidence, 0.0)
		assert.LessOrEqual(t, it.Confidence, 1.0)
		assert.Contains(t, it.Rationale, "weighted score")
	}
	assert.NoError(t, scorer.Available(t.Context(), false))
}

func TestWeightedRuleScorerIsDeterministicAndSafe(t *testing.T) {
	c := testutils.NewCustomerBuilder().WithAllergies("Shellfish").Build()
	shrimp := testutils.NewRecipeBuilder().WithName("Shrimp").WithIngredient("Shrimp", true, "shellfish").Build()
	a := testutils.NewRecipeBuilder().WithName("A").Build()
	b := testutils.NewRecipeBuilder().WithName("B").Build()
	scorer := NewWeightedRuleScorer(DefaultWeights(), zaptest.NewLogger(t))
	req := ScoreRequest{
		Customer:   c,
		Candidates: []*recipeT{b, shrimp, a},
		Slot:       mealplan.NewMealSlot(day("2024-01-01"), mealplan.MealTypeDinner),
		CountHint:  5,
	}

	first, err := scorer.Score(t.Context(), req)
	require.NoError(t, err)
	second, err := scorer.Score(t.Context(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, a.ID(), first[0].RecipeID, "ties break by name")
	assert.Equal(t, b.ID(), first[1].RecipeID)
}
