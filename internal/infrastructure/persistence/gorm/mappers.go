package gorm

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/customer"
	"github.com/mealprep/recommender/internal/domain/recipe"
	"github.com/mealprep/recommender/internal/ports/outbound"
)

// RecipeToModel converts a domain recipe to a GORM model
func RecipeToModel(r *recipe.Recipe) *RecipeModel {
	model := &RecipeModel{
		ID:     r.ID(),
		Name:   r.Name(),
		Steps:  r.Steps(),
		Tags:   StringSlice(r.Tags()),
		Active: true,
	}

	if n := r.Nutrition(); n != nil {
		model.Calories = floatPtr(n.Calories)
		model.Protein = floatPtr(n.Protein)
		model.Fat = floatPtr(n.Fat)
		model.Carbohydrates = floatPtr(n.Carbohydrates)
	}

	for i, ing := range r.Ingredients() {
		im := IngredientModel{
			ID:         ing.ID,
			RecipeID:   r.ID(),
			Name:       ing.Name,
			IsAllergen: ing.IsAllergen,
			Position:   i,
		}
		for _, c := range ing.AllergyCategories {
			im.AllergyCategories = append(im.AllergyCategories, AllergyCategoryModel{Name: recipe.NormalizeAllergen(c)})
		}
		model.Ingredients = append(model.Ingredients, im)
	}

	return model
}

// ModelToRecipe converts a GORM model to a domain recipe. Missing nutrition
// columns stay missing so the engine can exclude the recipe.
func ModelToRecipe(model *RecipeModel) (*recipe.Recipe, error) {
	var nutrition *recipe.NutritionInfo
	if model.Calories != nil || model.Protein != nil || model.Fat != nil || model.Carbohydrates != nil {
		nutrition = &recipe.NutritionInfo{
			Calories:      deref(model.Calories),
			Protein:       deref(model.Protein),
			Fat:           deref(model.Fat),
			Carbohydrates: deref(model.Carbohydrates),
		}
	}

	ingredients := append([]IngredientModel(nil), model.Ingredients...)
	sort.SliceStable(ingredients, func(i, j int) bool {
		return ingredients[i].Position < ingredients[j].Position
	})

	params := recipe.Params{
		ID:          model.ID,
		Name:        model.Name,
		Steps:       model.Steps,
		Nutrition:   nutrition,
		Tags:        model.Tags,
		Ingredients: make([]recipe.Ingredient, 0, len(ingredients)),
	}
	for _, im := range ingredients {
		ing := recipe.Ingredient{
			ID:         im.ID,
			Name:       im.Name,
			IsAllergen: im.IsAllergen,
		}
		for _, c := range im.AllergyCategories {
			ing.AllergyCategories = append(ing.AllergyCategories, c.Name)
		}
		params.Ingredients = append(params.Ingredients, ing)
	}

	return recipe.New(params)
}

// HistoryToModel converts a served meal to a GORM model
func HistoryToModel(customerID uuid.UUID, entry customer.MealHistoryEntry) *MealHistoryModel {
	return &MealHistoryModel{
		CustomerID: customerID,
		ServedOn:   calendarDay(entry.ServedOn),
		MealType:   entry.MealType,
		RecipeID:   entry.RecipeID,
	}
}

// AuditRecordToModel converts an audit record to a GORM model
func AuditRecordToModel(rec outbound.AuditRecord) *AuditEventModel {
	return &AuditEventModel{
		ID:            rec.ID,
		OperationID:   rec.OperationID,
		OperationType: string(rec.OperationType),
		CustomerID:    rec.CustomerID,
		Phase:         rec.Phase,
		DurationMs:    rec.DurationMs,
		ErrorCode:     rec.ErrorCode,
		ErrorMessage:  rec.ErrorMessage,
		StackContext:  rec.StackContext,
		Metadata:      JSONField(rec.Metadata),
		OccurredAt:    rec.OccurredAt.UTC(),
	}
}

// calendarDay truncates t to midnight UTC of its calendar date
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func floatPtr(v float64) *float64 {
	return &v
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
