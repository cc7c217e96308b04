// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/customer"
	"github.com/mealprep/recommender/internal/domain/recipe"
)

// RecipeFactory provides methods to create test recipes
type RecipeFactory struct {
	faker *gofakeit.Faker
}

// NewRecipeFactory creates a new recipe factory with seeded faker
func NewRecipeFactory(seed int64) *RecipeFactory {
	return &RecipeFactory{
		faker: gofakeit.New(seed),
	}
}

// Recipe creates a recipe with complete, internally consistent nutrition
func (rf *RecipeFactory) Recipe() *recipe.Recipe {
	return rf.Builder().Build()
}

// Builder returns a builder pre-filled with fake data
func (rf *RecipeFactory) Builder() *RecipeBuilder {
	protein := float64(rf.faker.Number(10, 40))
	carbs := float64(rf.faker.Number(20, 80))
	fat := float64(rf.faker.Number(5, 30))
	return NewRecipeBuilder().
		WithName(fmt.Sprintf("%s #%d", rf.faker.Dinner(), rf.faker.Number(1, 99999))).
		WithSteps(rf.faker.Paragraph(1, 3, 8, " ")).
		WithMacros(protein, fat, carbs).
		WithIngredient(rf.faker.Vegetable(), false).
		WithIngredient(rf.faker.Fruit(), false)
}

// Catalog creates n recipes
func (rf *RecipeFactory) Catalog(n int) []*recipe.Recipe {
	out := make([]*recipe.Recipe, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, rf.Recipe())
	}
	return out
}

// RecipeBuilder provides a fluent interface for building test recipes
type RecipeBuilder struct {
	params recipe.Params
}

// NewRecipeBuilder creates a new recipe builder with default values
func NewRecipeBuilder() *RecipeBuilder {
	return &RecipeBuilder{
		params: recipe.Params{
			ID:    uuid.New(),
			Name:  "Test Recipe",
			Steps: "Combine and serve.",
			Nutrition: &recipe.NutritionInfo{
				Calories:      500,
				Protein:       30,
				Fat:           20,
				Carbohydrates: 50,
			},
		},
	}
}

// WithID sets the recipe id
func (rb *RecipeBuilder) WithID(id uuid.UUID) *RecipeBuilder {
	rb.params.ID = id
	return rb
}

// WithName sets the recipe name
func (rb *RecipeBuilder) WithName(name string) *RecipeBuilder {
	rb.params.Name = name
	return rb
}

// WithSteps sets the preparation steps
func (rb *RecipeBuilder) WithSteps(steps string) *RecipeBuilder {
	rb.params.Steps = steps
	return rb
}

// WithNutrition sets nutrition values verbatim
func (rb *RecipeBuilder) WithNutrition(calories, protein, fat, carbs float64) *RecipeBuilder {
	rb.params.Nutrition = &recipe.NutritionInfo{
		Calories:      calories,
		Protein:       protein,
		Fat:           fat,
		Carbohydrates: carbs,
	}
	return rb
}

// WithMacros sets macros and derives calories from them (4/9/4 kcal per gram)
func (rb *RecipeBuilder) WithMacros(protein, fat, carbs float64) *RecipeBuilder {
	return rb.WithNutrition(4*protein+9*fat+4*carbs, protein, fat, carbs)
}

// WithoutNutrition removes nutrition data
func (rb *RecipeBuilder) WithoutNutrition() *RecipeBuilder {
	rb.params.Nutrition = nil
	return rb
}

// WithIngredient adds an ingredient, optionally flagged and linked to categories
func (rb *RecipeBuilder) WithIngredient(name string, isAllergen bool, categories ...string) *RecipeBuilder {
	rb.params.Ingredients = append(rb.params.Ingredients, recipe.Ingredient{
		ID:                uuid.New(),
		Name:              name,
		IsAllergen:        isAllergen,
		AllergyCategories: categories,
	})
	return rb
}

// WithTags sets the recipe tags
func (rb *RecipeBuilder) WithTags(tags ...string) *RecipeBuilder {
	rb.params.Tags = tags
	return rb
}

// Build creates the recipe, panicking on invalid params
func (rb *RecipeBuilder) Build() *recipe.Recipe {
	return recipe.MustNew(rb.params)
}

// CustomerBuilder provides a fluent interface for building customer snapshots
type CustomerBuilder struct {
	params customer.Params
}

// NewCustomerBuilder creates a builder for a complete profile
func NewCustomerBuilder() *CustomerBuilder {
	return &CustomerBuilder{
		params: customer.Params{
			ID: uuid.New(),
			Profile: &customer.HealthProfile{
				DietaryRestrictions: []customer.DietaryRestriction{customer.DietaryRestrictionGlutenFree},
				CalorieGoal:         2000,
				Preferences:         "likes spicy food",
			},
		},
	}
}

// WithID sets the customer id
func (cb *CustomerBuilder) WithID(id uuid.UUID) *CustomerBuilder {
	cb.params.ID = id
	return cb
}

// WithAllergies records allergies of severe grade
func (cb *CustomerBuilder) WithAllergies(names ...string) *CustomerBuilder {
	for _, n := range names {
		cb.params.Allergies = append(cb.params.Allergies, customer.Allergy{Name: n, Severity: customer.SeveritySevere})
	}
	return cb
}

// WithProfile replaces the health profile; nil clears it
func (cb *CustomerBuilder) WithProfile(p *customer.HealthProfile) *CustomerBuilder {
	cb.params.Profile = p
	return cb
}

// WithServed adds a history entry
func (cb *CustomerBuilder) WithServed(recipeID uuid.UUID, on time.Time) *CustomerBuilder {
	cb.params.History = append(cb.params.History, customer.MealHistoryEntry{RecipeID: recipeID, ServedOn: on})
	return cb
}

// Build creates the snapshot, panicking on invalid params
func (cb *CustomerBuilder) Build() *customer.Context {
	c, err := customer.NewContext(cb.params)
	if err != nil {
		panic(err)
	}
	return c
}
