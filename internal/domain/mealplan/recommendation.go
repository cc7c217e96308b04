package mealplan

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/recipe"
)

// RecommendationCandidate is a recipe scored by a ranking source, with a
// confidence in [0,1] and free-text rationale.
type RecommendationCandidate struct {
	Recipe     *recipe.Recipe
	Confidence float64
	Rationale  string
}

// MealRecommendation is the engine's unit of output. It is created once per
// resolved slot and never mutated afterwards.
type MealRecommendation struct {
	recipe    *recipe.Recipe
	relevance float64
	rationale string
	slot      MealSlot
	nutrition recipe.NutritionInfo
}

// NewMealRecommendation maps a candidate resolved for slot to a
// recommendation. Relevance is the confidence rescaled to 0-100.
func NewMealRecommendation(c RecommendationCandidate, slot MealSlot) *MealRecommendation {
	rec := &MealRecommendation{
		recipe:    c.Recipe,
		relevance: c.Confidence * 100,
		rationale: c.Rationale,
		slot:      slot,
	}
	if n := c.Recipe.Nutrition(); n != nil {
		rec.nutrition = *n
	}
	return rec
}

// Recipe returns the recommended recipe
func (m *MealRecommendation) Recipe() *recipe.Recipe {
	return m.recipe
}

// RecipeID returns the recommended recipe's id
func (m *MealRecommendation) RecipeID() uuid.UUID {
	return m.recipe.ID()
}

// RelevanceScore returns the 0-100 relevance score
func (m *MealRecommendation) RelevanceScore() float64 {
	return m.relevance
}

// Rationale returns the ranking rationale
func (m *MealRecommendation) Rationale() string {
	return m.rationale
}

// Slot returns the slot the recommendation was generated for
func (m *MealRecommendation) Slot() MealSlot {
	return m.slot
}

// Nutrition returns the nutritional contribution of the recommendation
func (m *MealRecommendation) Nutrition() recipe.NutritionInfo {
	return m.nutrition
}

type mealRecommendationJSON struct {
	RecipeID       uuid.UUID `json:"recipe_id"`
	RecipeName     string    `json:"recipe_name"`
	Date           string    `json:"date"`
	MealType       MealType  `json:"meal_type"`
	RelevanceScore float64   `json:"relevance_score"`
	Rationale      string    `json:"rationale,omitempty"`
	Calories       float64   `json:"calories"`
	Protein        float64   `json:"protein_g"`
	Fat            float64   `json:"fat_g"`
	Carbohydrates  float64   `json:"carbohydrates_g"`
}

// MarshalJSON renders the recommendation for reports and the demo binary
func (m *MealRecommendation) MarshalJSON() ([]byte, error) {
	return json.Marshal(mealRecommendationJSON{
		RecipeID:       m.recipe.ID(),
		RecipeName:     m.recipe.Name(),
		Date:           m.slot.Date.Format(DateLayout),
		MealType:       m.slot.MealType,
		RelevanceScore: m.relevance,
		Rationale:      m.rationale,
		Calories:       m.nutrition.Calories,
		Protein:        m.nutrition.Protein,
		Fat:            m.nutrition.Fat,
		Carbohydrates:  m.nutrition.Carbohydrates,
	})
}
