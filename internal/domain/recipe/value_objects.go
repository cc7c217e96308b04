package recipe

import (
	"math"
	"strings"

	"github.com/google/uuid"
)

// Value Objects - Immutable objects that describe aspects of the domain

// Ingredient represents an ingredient in a recipe
type Ingredient struct {
	ID                uuid.UUID
	Name              string
	IsAllergen        bool
	AllergyCategories []string
}

// Validate validates the ingredient
func (i Ingredient) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrIngredientNameRequired
	}
	return nil
}

// MatchesAny reports whether the ingredient is allergenic for any of the
// normalized allergy names. A link to a named allergy category is enough on
// its own; a flagged ingredient also matches on its own name.
//
// The name match is exact after NormalizeAllergen, so a flagged "Peanut"
// does not match the allergy "Peanuts". Plural or variant names need a
// category link.
func (i Ingredient) MatchesAny(allergies map[string]struct{}) bool {
	for _, c := range i.AllergyCategories {
		if _, ok := allergies[NormalizeAllergen(c)]; ok {
			return true
		}
	}
	if i.IsAllergen {
		if _, ok := allergies[NormalizeAllergen(i.Name)]; ok {
			return true
		}
	}
	return false
}

// NormalizeAllergen canonicalizes an allergy or category name for matching
func NormalizeAllergen(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Nutrient field names reported by MissingFields
const (
	FieldCalories      = "calories"
	FieldProtein       = "protein"
	FieldFat           = "fat"
	FieldCarbohydrates = "carbohydrates"
)

// NutritionInfo contains per-unit nutritional information
type NutritionInfo struct {
	Calories      float64
	Protein       float64 // in grams
	Fat           float64 // in grams
	Carbohydrates float64 // in grams
}

// MissingFields lists every field that is missing, non-positive or not a
// finite number. A nil receiver reports all of them.
func (n *NutritionInfo) MissingFields() []string {
	if n == nil {
		return []string{FieldCalories, FieldProtein, FieldFat, FieldCarbohydrates}
	}
	var missing []string
	if unusable(n.Calories) {
		missing = append(missing, FieldCalories)
	}
	if unusable(n.Protein) {
		missing = append(missing, FieldProtein)
	}
	if unusable(n.Fat) {
		missing = append(missing, FieldFat)
	}
	if unusable(n.Carbohydrates) {
		missing = append(missing, FieldCarbohydrates)
	}
	return missing
}

// unusable is true for zero, negative, NaN and +Inf
func unusable(v float64) bool {
	return !(v > 0) || math.IsInf(v, 1)
}

// IsComplete reports whether every macro field is positive
func (n *NutritionInfo) IsComplete() bool {
	return len(n.MissingFields()) == 0
}
