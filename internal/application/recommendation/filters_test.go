package recommendation

import (
	"errors"
	"math"
	"testing"

	"github.com/mealprep/recommender/internal/domain/mealplan"
	apperrors "github.com/mealprep/recommender/pkg/errors"
	"github.com/mealprep/recommender/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestAllergenFilter(t *testing.T) {
	satay := testutils.NewRecipeBuilder().WithName("Satay").WithIngredient("Peanut butter", true, "Peanuts").Build()
	pad := testutils.NewRecipeBuilder().WithName("Pad Thai").WithIngredient("Peanuts", true).Build()
	salad := testutils.NewRecipeBuilder().WithName("Salad").WithIngredient("Lettuce", false).Build()
	catalog := []*recipeT{satay, pad, salad}

	t.Run("NoAllergies_ReturnsCatalogUnchanged", func(t *testing.T) {
		f := NewAllergenFilter(zaptest.NewLogger(t))
		safe, err := f.FilterSafe(catalog, nil)
		require.NoError(t, err)
		assert.Equal(t, catalog, safe)
	})

	t.Run("ExcludesMatchingRecipes", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		f := NewAllergenFilter(zap.New(core))

		safe, err := f.FilterSafe(catalog, []string{"peanuts"})

		require.NoError(t, err)
		assert.Equal(t, []*recipeT{salad}, safe)
		entries := logs.FilterMessage("Allergen filter applied").All()
		require.Len(t, entries, 1)
		assert.Equal(t, int64(3), entries[0].ContextMap()["before"])
		assert.Equal(t, int64(1), entries[0].ContextMap()["after"])
	})

	t.Run("EmptySafeSet_IsSafetyViolation", func(t *testing.T) {
		f := NewAllergenFilter(zaptest.NewLogger(t))

		safe, err := f.FilterSafe([]*recipeT{satay, pad}, []string{"Peanuts"})

		assert.Nil(t, safe)
		require.Error(t, err)
		assert.True(t, errors.Is(err, mealplan.ErrNoSafeRecipes))
		assert.True(t, apperrors.Is(err, apperrors.CodeSafetyViolation))
	})
}

func TestNutritionFilterLogsExclusions(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	f := NewNutritionFilter(zap.New(core))

	ok := testutils.NewRecipeBuilder().Build()
	zeroCal := testutils.NewRecipeBuilder().WithName("Air").WithNutrition(0, 10, 10, 10).Build()
	unknown := testutils.NewRecipeBuilder().WithName("Mystery").WithoutNutrition().Build()

	kept, excluded := f.FilterComplete([]*recipeT{ok, zeroCal, unknown})

	assert.Equal(t, []*recipeT{ok}, kept)
	require.Len(t, excluded, 2)
	assert.Equal(t, zeroCal.ID(), excluded[0].RecipeID)
	assert.Equal(t, "missing_nutrition: calories", excluded[0].Reason)

	entries := logs.FilterMessage("Recipe excluded for missing nutrition data").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zeroCal.ID().String(), entries[0].ContextMap()["recipe_id"])
}

func TestNutritionFilterRejectsNonFiniteValues(t *testing.T) {
	f := NewNutritionFilter(zaptest.NewLogger(t))

	ok := testutils.NewRecipeBuilder().Build()
	nan := testutils.NewRecipeBuilder().WithName("Broken").WithNutrition(math.NaN(), 10, 10, 10).Build()
	inf := testutils.NewRecipeBuilder().WithName("Endless").WithNutrition(500, 10, math.Inf(1), 10).Build()

	kept, excluded := f.FilterComplete([]*recipeT{ok, nan, inf})

	assert.Equal(t, []*recipeT{ok}, kept)
	require.Len(t, excluded, 2)
	assert.Equal(t, "missing_nutrition: calories", excluded[0].Reason)
	assert.Equal(t, "missing_nutrition: fat", excluded[1].Reason)
}
