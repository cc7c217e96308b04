// Package testutils provides custom assertions for meal plan testing
package testutils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/mealplan"
	"github.com/mealprep/recommender/internal/domain/recipe"
	"github.com/stretchr/testify/assert"
)

// PlanAssertions provides plan-specific assertions
type PlanAssertions struct {
	t *testing.T
}

// NewPlanAssertions creates new plan assertions
func NewPlanAssertions(t *testing.T) *PlanAssertions {
	return &PlanAssertions{t: t}
}

// NoAllergens asserts that no recommended recipe matches any allergy
func (pa *PlanAssertions) NoAllergens(recs []*mealplan.MealRecommendation, allergies ...string) {
	pa.t.Helper()
	set := make(map[string]struct{}, len(allergies))
	for _, a := range allergies {
		set[recipe.NormalizeAllergen(a)] = struct{}{}
	}
	for _, r := range recs {
		assert.False(pa.t, r.Recipe().ContainsAllergen(set),
			"recipe %s (%s) contains an allergen", r.Recipe().Name(), r.Slot())
	}
}

// NoRepeats asserts that no recipe appears in two slots
func (pa *PlanAssertions) NoRepeats(recs []*mealplan.MealRecommendation) {
	pa.t.Helper()
	seen := make(map[uuid.UUID]mealplan.MealSlot)
	for _, r := range recs {
		if prev, ok := seen[r.RecipeID()]; ok {
			assert.Failf(pa.t, "recipe repeated", "%s used in %s and %s", r.Recipe().Name(), prev, r.Slot())
		}
		seen[r.RecipeID()] = r.Slot()
	}
}

// NoSameDayRepeats asserts that no recipe appears twice on one calendar day
func (pa *PlanAssertions) NoSameDayRepeats(recs []*mealplan.MealRecommendation) {
	pa.t.Helper()
	seen := make(map[string]struct{})
	for _, r := range recs {
		key := r.Slot().Date.Format(mealplan.DateLayout) + "/" + r.RecipeID().String()
		if _, ok := seen[key]; ok {
			assert.Failf(pa.t, "same-day repeat", "%s repeated on %s", r.Recipe().Name(), r.Slot().Date.Format(mealplan.DateLayout))
		}
		seen[key] = struct{}{}
	}
}

// InSlotOrder asserts dates ascending then meal types in declared order
func (pa *PlanAssertions) InSlotOrder(recs []*mealplan.MealRecommendation) {
	pa.t.Helper()
	for i := 1; i < len(recs); i++ {
		prev, cur := recs[i-1].Slot(), recs[i].Slot()
		assert.False(pa.t, cur.Before(prev), "slot %s follows %s", cur, prev)
	}
}

// Excludes asserts that none of ids was recommended
func (pa *PlanAssertions) Excludes(recs []*mealplan.MealRecommendation, ids ...uuid.UUID) {
	pa.t.Helper()
	banned := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		banned[id] = struct{}{}
	}
	for _, r := range recs {
		_, bad := banned[r.RecipeID()]
		assert.False(pa.t, bad, "recipe %s should not be recommended (%s)", r.Recipe().Name(), r.Slot())
	}
}
