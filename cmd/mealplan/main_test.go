package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/customer"
	"github.com/mealprep/recommender/internal/domain/mealplan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		opts, err := parseFlags(nil, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, 7, opts.Days)
		assert.False(t, opts.Serve)
	})

	t.Run("AllFlags", func(t *testing.T) {
		opts, err := parseFlags([]string{
			"-config", "cfg.yaml", "-customer", "c.json", "-start", "2026-03-02",
			"-days", "3", "-meals", "lunch,dinner", "-count", "2", "-record", "-serve",
		}, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, Options{
			ConfigPath:   "cfg.yaml",
			CustomerPath: "c.json",
			Start:        "2026-03-02",
			Days:         3,
			Meals:        "lunch,dinner",
			Count:        2,
			Record:       true,
			Serve:        true,
		}, opts)
	})

	t.Run("Invalid", func(t *testing.T) {
		var out bytes.Buffer
		_, err := parseFlags([]string{"-days", "0"}, &out)
		assert.Error(t, err)
		_, err = parseFlags([]string{"-start", "02/03/2026"}, &out)
		assert.Error(t, err)
		assert.Contains(t, out.String(), "YYYY-MM-DD")
	})
}

func TestBuildRequest(t *testing.T) {
	c, err := demoCustomer()
	require.NoError(t, err)
	now := time.Date(2026, 10, 16, 18, 30, 0, 0, time.UTC)

	t.Run("Defaults", func(t *testing.T) {
		req, err := buildRequest(Options{Days: 7}, c, []string{"breakfast", "lunch", "dinner"}, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), req.StartDate)
		assert.Equal(t, time.Date(2026, 10, 22, 0, 0, 0, 0, time.UTC), req.EndDate)
		assert.Equal(t, mealplan.AllMealTypes(), req.MealTypes)
	})

	t.Run("ExplicitMeals", func(t *testing.T) {
		req, err := buildRequest(Options{Days: 1, Start: "2026-03-02", Meals: "Supper, morning"}, c, nil, now)
		require.NoError(t, err)
		assert.Equal(t, req.StartDate, req.EndDate)
		assert.Equal(t, []mealplan.MealType{mealplan.MealTypeDinner, mealplan.MealTypeBreakfast}, req.MealTypes)
	})

	t.Run("UnknownMeal", func(t *testing.T) {
		_, err := buildRequest(Options{Days: 1, Meals: "brunch"}, c, nil, now)
		assert.ErrorIs(t, err, mealplan.ErrInvalidRequest)
	})
}

func TestLoadCustomer(t *testing.T) {
	t.Run("Demo", func(t *testing.T) {
		c, err := loadCustomer("")
		require.NoError(t, err)
		assert.Equal(t, demoCustomerID, c.ID())
		assert.Equal(t, []string{"Peanuts"}, c.AllergyNames())
	})

	t.Run("File", func(t *testing.T) {
		id := uuid.New()
		recipeID := uuid.New()
		path := filepath.Join(t.TempDir(), "customer.json")
		body := `{
  "id": "` + id.String() + `",
  "calorie_goal": 1800,
  "dietary_restrictions": ["vegetarian"],
  "allergies": [{"name": "Shellfish"}],
  "history": [{"recipe_id": "` + recipeID.String() + `", "served_on": "2026-03-01", "meal_type": "dinner"}]
}`
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

		c, err := loadCustomer(path)
		require.NoError(t, err)
		assert.Equal(t, id, c.ID())
		assert.Equal(t, 1800.0, c.CalorieGoal())
		assert.Equal(t, []customer.DietaryRestriction{customer.DietaryRestrictionVegetarian}, c.DietaryRestrictions())
		require.Len(t, c.Allergies(), 1)
		assert.Equal(t, customer.SeveritySevere, c.Allergies()[0].Severity)
		require.Len(t, c.History(), 1)
		assert.Equal(t, recipeID, c.History()[0].RecipeID)
	})

	t.Run("BadID", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "customer.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"id": "nope"}`), 0o600))
		_, err := loadCustomer(path)
		assert.Error(t, err)
	})
}
