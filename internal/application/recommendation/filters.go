// Package recommendation implements the meal recommendation engine: candidate
// filtering, diversity-aware multi-day plan assembly, confidence-to-relevance
// mapping and nutritional aggregation.
package recommendation

import (
	"strings"

	"github.com/mealprep/recommender/internal/domain/mealplan"
	"github.com/mealprep/recommender/internal/domain/recipe"
	apperrors "github.com/mealprep/recommender/pkg/errors"
	"go.uber.org/zap"
)

// AllergenFilter removes every recipe containing an ingredient that matches
// one of the customer's allergies. It is a pure function apart from logging.
type AllergenFilter struct {
	logger *zap.Logger
}

// NewAllergenFilter creates an allergen filter
func NewAllergenFilter(logger *zap.Logger) *AllergenFilter {
	return &AllergenFilter{logger: logger.Named("allergen-filter")}
}

// FilterSafe returns the recipes that contain no allergenic ingredient.
// An empty allergy list returns recipes unchanged. An empty result is a
// safety violation, never an empty success.
func (f *AllergenFilter) FilterSafe(recipes []*recipe.Recipe, allergyNames []string) ([]*recipe.Recipe, error) {
	safe, _, err := f.partition(recipes, allergyNames)
	return safe, err
}

func (f *AllergenFilter) partition(recipes []*recipe.Recipe, allergyNames []string) ([]*recipe.Recipe, []mealplan.ExcludedRecipe, error) {
	allergies := allergySet(allergyNames)
	if len(allergies) == 0 {
		return recipes, nil, nil
	}

	safe := make([]*recipe.Recipe, 0, len(recipes))
	var excluded []mealplan.ExcludedRecipe
	for _, r := range recipes {
		if r.ContainsAllergen(allergies) {
			excluded = append(excluded, mealplan.ExcludedRecipe{
				RecipeID: r.ID(),
				Name:     r.Name(),
				Reason:   mealplan.ReasonAllergen,
			})
			continue
		}
		safe = append(safe, r)
	}

	f.logger.Info("Allergen filter applied",
		zap.Int("before", len(recipes)),
		zap.Int("after", len(safe)),
		zap.Strings("allergies", allergyNames),
	)

	if len(safe) == 0 {
		return nil, excluded, apperrors.NewSafetyViolationError(allergyNames, mealplan.ErrNoSafeRecipes)
	}
	return safe, excluded, nil
}

func allergySet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = recipe.NormalizeAllergen(n); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// NutritionFilter drops recipes with missing or non-positive nutrition
// before they can reach a ranking source or the aggregator.
type NutritionFilter struct {
	logger *zap.Logger
}

// NewNutritionFilter creates a nutrition completeness filter
func NewNutritionFilter(logger *zap.Logger) *NutritionFilter {
	return &NutritionFilter{logger: logger.Named("nutrition-filter")}
}

// FilterComplete splits recipes into recommendable ones and exclusions.
// Every exclusion is logged with the offending fields.
func (f *NutritionFilter) FilterComplete(recipes []*recipe.Recipe) ([]*recipe.Recipe, []mealplan.ExcludedRecipe) {
	kept := make([]*recipe.Recipe, 0, len(recipes))
	var excluded []mealplan.ExcludedRecipe
	for _, r := range recipes {
		missing := r.MissingNutrition()
		if len(missing) == 0 {
			kept = append(kept, r)
			continue
		}
		f.logger.Warn("Recipe excluded for missing nutrition data",
			zap.String("recipe_id", r.ID().String()),
			zap.String("recipe_name", r.Name()),
			zap.Strings("missing_fields", missing),
		)
		excluded = append(excluded, mealplan.ExcludedRecipe{
			RecipeID: r.ID(),
			Name:     r.Name(),
			Reason:   mealplan.ReasonMissingNutrition + ": " + strings.Join(missing, ","),
		})
	}
	return kept, excluded
}
