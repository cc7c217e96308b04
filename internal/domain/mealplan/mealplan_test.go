package mealplan

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSlotsAreInDeclaredOrder(t *testing.T) {
	slots := Slots(
		date("2024-03-01").Add(15*time.Hour),
		date("2024-03-02"),
		[]MealType{MealTypeDinner, MealTypeBreakfast, MealTypeDinner, MealTypeLunch},
	)

	keys := make([]string, 0, len(slots))
	for _, s := range slots {
		keys = append(keys, s.Key())
	}
	assert.Equal(t, []string{
		"2024-03-01/breakfast", "2024-03-01/lunch", "2024-03-01/dinner",
		"2024-03-02/breakfast", "2024-03-02/lunch", "2024-03-02/dinner",
	}, keys)
	assert.Empty(t, Slots(date("2024-03-02"), date("2024-03-01"), AllMealTypes()))
}

func TestParseMealType(t *testing.T) {
	for in, want := range map[string]MealType{
		"Breakfast": MealTypeBreakfast,
		"morning":   MealTypeBreakfast,
		"midday":    MealTypeLunch,
		" evening ": MealTypeDinner,
	} {
		got, err := ParseMealType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseMealType("brunch")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestPlanStateTransitions(t *testing.T) {
	assert.True(t, StateNotStarted.CanTransitionTo(StatePerSlot))
	assert.True(t, StatePerSlot.CanTransitionTo(StatePerSlot))
	assert.True(t, StatePerSlot.CanTransitionTo(StateAggregating))
	assert.True(t, StatePerSlot.CanTransitionTo(StateFailed))
	assert.True(t, StateAggregating.CanTransitionTo(StateDone))
	assert.True(t, StateAggregating.CanTransitionTo(StateFailed))

	assert.False(t, StateNotStarted.CanTransitionTo(StateDone))
	assert.False(t, StateNotStarted.CanTransitionTo(StateFailed))
	assert.False(t, StateAggregating.CanTransitionTo(StatePerSlot))
	assert.False(t, StateDone.CanTransitionTo(StateFailed))
	assert.False(t, StateFailed.CanTransitionTo(StatePerSlot))
	assert.True(t, StateDone.IsTerminal())
	assert.Equal(t, "aggregating", StateAggregating.String())
}

func TestExclusionSet(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	s := NewExclusionSet(a)
	clone := s.Clone()
	s.Add(b, a)

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(b))
	assert.False(t, clone.Contains(b))

	var nilSet *ExclusionSet
	assert.False(t, nilSet.Contains(a))
	assert.Zero(t, nilSet.Len())
}

func TestMealRecommendationMapsConfidence(t *testing.T) {
	r := recipe.MustNew(recipe.Params{
		ID:        uuid.New(),
		Name:      "Lentil Soup",
		Nutrition: &recipe.NutritionInfo{Calories: 350, Protein: 18, Fat: 6, Carbohydrates: 55},
	})
	slot := NewMealSlot(date("2024-05-06").Add(9*time.Hour), MealTypeLunch)

	rec := NewMealRecommendation(RecommendationCandidate{Recipe: r, Confidence: 0.87, Rationale: "warm"}, slot)

	assert.InDelta(t, 87.0, rec.RelevanceScore(), 1e-9)
	assert.Equal(t, date("2024-05-06"), rec.Slot().Date)
	assert.Equal(t, 350.0, rec.Nutrition().Calories)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"meal_type":"lunch"`)
	assert.Contains(t, string(raw), `"date":"2024-05-06"`)
}

func TestAssemblyErrorUnwraps(t *testing.T) {
	slot := NewMealSlot(date("2024-01-01"), MealTypeDinner)
	err := &AssemblyError{State: StatePerSlot, Slot: &slot, Err: ErrCollaboratorUnavailable}

	assert.True(t, errors.Is(err, ErrCollaboratorUnavailable))
	assert.Contains(t, err.Error(), "2024-01-01/dinner")
}
