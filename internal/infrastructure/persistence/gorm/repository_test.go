package gorm

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/customer"
	"github.com/mealprep/recommender/internal/domain/recipe"
	"github.com/mealprep/recommender/internal/ports/outbound"
	"github.com/mealprep/recommender/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type RepositoryTestSuite struct {
	suite.Suite
	db      *gorm.DB
	logs    *observer.ObservedLogs
	recipes *RecipeRepository
	history *MealHistoryRepository
	audit   *AuditRepository
	ctx     context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	s.db = testutils.NewSQLiteDB(s.T())
	require.NoError(s.T(), s.db.AutoMigrate(AllModels()...))

	core, logs := observer.New(zap.DebugLevel)
	s.logs = logs
	s.recipes = NewRecipeRepository(s.db, zap.New(core))
	s.history = NewMealHistoryRepository(s.db)
	s.audit = NewAuditRepository(s.db)
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) TestRecipeRoundTrip() {
	original := testutils.NewRecipeBuilder().
		WithName("Satay Noodles").
		WithNutrition(640, 28, 24, 70).
		WithIngredient("Rice noodles", false).
		WithIngredient("Peanut sauce", true, "Peanuts").
		WithIngredient("Soy sauce", false, "soy", "gluten").
		WithTags("Asian", "quick").
		Build()
	require.NoError(s.T(), s.recipes.Create(s.ctx, original))

	found, err := s.recipes.FindByIDs(s.ctx, []uuid.UUID{original.ID()})
	require.NoError(s.T(), err)
	require.Len(s.T(), found, 1)

	got := found[0]
	assert.Equal(s.T(), original.ID(), got.ID())
	assert.Equal(s.T(), "Satay Noodles", got.Name())
	assert.Equal(s.T(), original.Nutrition(), got.Nutrition())
	assert.Equal(s.T(), []string{"asian", "quick"}, got.Tags())

	ingredients := got.Ingredients()
	require.Len(s.T(), ingredients, 3)
	assert.Equal(s.T(), "Rice noodles", ingredients[0].Name)
	assert.Equal(s.T(), "Peanut sauce", ingredients[1].Name)
	assert.True(s.T(), ingredients[1].IsAllergen)
	assert.Equal(s.T(), []string{"peanuts"}, ingredients[1].AllergyCategories)
	assert.ElementsMatch(s.T(), []string{"soy", "gluten"}, ingredients[2].AllergyCategories)

	assert.True(s.T(), got.ContainsAllergen(map[string]struct{}{"peanuts": {}}))
	assert.False(s.T(), got.ContainsAllergen(map[string]struct{}{"shellfish": {}}))
}

func (s *RepositoryTestSuite) TestMissingNutritionSurvivesStorage() {
	noNutrition := testutils.NewRecipeBuilder().WithName("Mystery Stew").WithoutNutrition().Build()
	zeroFat := testutils.NewRecipeBuilder().WithName("Plain Rice").WithNutrition(200, 4, 0, 45).Build()
	require.NoError(s.T(), s.recipes.Create(s.ctx, noNutrition))
	require.NoError(s.T(), s.recipes.Create(s.ctx, zeroFat))

	found, err := s.recipes.FindByIDs(s.ctx, []uuid.UUID{noNutrition.ID(), zeroFat.ID()})
	require.NoError(s.T(), err)
	require.Len(s.T(), found, 2)

	byName := map[string]*recipe.Recipe{}
	for _, r := range found {
		byName[r.Name()] = r
	}
	assert.Nil(s.T(), byName["Mystery Stew"].Nutrition())
	assert.Len(s.T(), byName["Mystery Stew"].MissingNutrition(), 4)
	assert.Equal(s.T(), []string{recipe.FieldFat}, byName["Plain Rice"].MissingNutrition())
}

func (s *RepositoryTestSuite) TestSharedAllergyCategories() {
	a := testutils.NewRecipeBuilder().WithName("Pad Thai").WithIngredient("Peanuts", true, "peanuts").Build()
	b := testutils.NewRecipeBuilder().WithName("Satay").WithIngredient("Peanut butter", true, "Peanuts").Build()
	require.NoError(s.T(), s.recipes.Create(s.ctx, a))
	require.NoError(s.T(), s.recipes.Create(s.ctx, b))

	var count int64
	require.NoError(s.T(), s.db.Model(&AllergyCategoryModel{}).Count(&count).Error)
	assert.Equal(s.T(), int64(1), count)

	all, err := s.recipes.ListActive(s.ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), all, 2)
	for _, r := range all {
		assert.True(s.T(), r.ContainsAllergen(map[string]struct{}{"peanuts": {}}), r.Name())
	}
}

func (s *RepositoryTestSuite) TestListActive() {
	b := testutils.NewRecipeBuilder().WithName("Burrito").Build()
	a := testutils.NewRecipeBuilder().WithName("Arepa").Build()
	c := testutils.NewRecipeBuilder().WithName("Congee").Build()
	for _, r := range []*recipe.Recipe{b, a, c} {
		require.NoError(s.T(), s.recipes.Create(s.ctx, r))
	}

	s.Run("OrderedByName", func() {
		all, err := s.recipes.ListActive(s.ctx)
		require.NoError(s.T(), err)
		require.Len(s.T(), all, 3)
		assert.Equal(s.T(), []string{"Arepa", "Burrito", "Congee"}, names(all))
	})

	s.Run("DeactivatedRecipesAreHidden", func() {
		require.NoError(s.T(), s.recipes.Deactivate(s.ctx, b.ID()))

		all, err := s.recipes.ListActive(s.ctx)
		require.NoError(s.T(), err)
		assert.Equal(s.T(), []string{"Arepa", "Congee"}, names(all))

		found, err := s.recipes.FindByIDs(s.ctx, []uuid.UUID{b.ID()})
		require.NoError(s.T(), err)
		assert.Empty(s.T(), found)
	})

	s.Run("DeactivateUnknown", func() {
		err := s.recipes.Deactivate(s.ctx, uuid.New())
		assert.ErrorIs(s.T(), err, gorm.ErrRecordNotFound)
	})

	s.Run("InvalidRowIsSkippedAndLogged", func() {
		bad := RecipeModel{ID: uuid.New(), Name: "   ", Active: true}
		require.NoError(s.T(), s.db.Create(&bad).Error)

		all, err := s.recipes.ListActive(s.ctx)
		require.NoError(s.T(), err)
		assert.Len(s.T(), all, 2)

		skipped := s.logs.FilterMessage("Skipping invalid catalog row").All()
		require.Len(s.T(), skipped, 1)
		assert.Equal(s.T(), bad.ID.String(), skipped[0].ContextMap()["recipe_id"])
	})
}

func (s *RepositoryTestSuite) TestFindByIDsEmpty() {
	found, err := s.recipes.FindByIDs(s.ctx, nil)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), found)
}

func (s *RepositoryTestSuite) TestCreateIfMissing() {
	r := testutils.NewRecipeBuilder().WithIngredient("Egg", true, "eggs").Build()

	created, err := s.recipes.CreateIfMissing(s.ctx, r)
	require.NoError(s.T(), err)
	assert.True(s.T(), created)

	created, err = s.recipes.CreateIfMissing(s.ctx, r)
	require.NoError(s.T(), err)
	assert.False(s.T(), created)

	var count int64
	require.NoError(s.T(), s.db.Model(&IngredientModel{}).Count(&count).Error)
	assert.Equal(s.T(), int64(1), count)
}

func (s *RepositoryTestSuite) TestRecentRecipeIDs() {
	cust := uuid.New()
	other := uuid.New()
	r1, r2, r3, r4 := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

	entries := []struct {
		customer uuid.UUID
		entry    customer.MealHistoryEntry
	}{
		{cust, customer.MealHistoryEntry{RecipeID: r1, ServedOn: day(1), MealType: "breakfast"}},
		{cust, customer.MealHistoryEntry{RecipeID: r1, ServedOn: day(2), MealType: "lunch"}},
		{cust, customer.MealHistoryEntry{RecipeID: r2, ServedOn: day(3).Add(19 * time.Hour), MealType: "dinner"}},
		{cust, customer.MealHistoryEntry{RecipeID: r3, ServedOn: day(4), MealType: "dinner"}},
		{cust, customer.MealHistoryEntry{RecipeID: r4, ServedOn: day(10), MealType: "dinner"}},
		{other, customer.MealHistoryEntry{RecipeID: r4, ServedOn: day(2), MealType: "lunch"}},
	}
	for _, e := range entries {
		require.NoError(s.T(), s.history.Record(s.ctx, e.customer, e.entry))
	}

	s.Run("InclusiveWindowDistinct", func() {
		ids, err := s.history.RecentRecipeIDs(s.ctx, cust, day(1), day(3))
		require.NoError(s.T(), err)
		assert.ElementsMatch(s.T(), []uuid.UUID{r1, r2}, ids)
	})

	s.Run("TimeOfDayIsIgnored", func() {
		ids, err := s.history.RecentRecipeIDs(s.ctx, cust, day(3).Add(23*time.Hour), day(4).Add(time.Hour))
		require.NoError(s.T(), err)
		assert.ElementsMatch(s.T(), []uuid.UUID{r2, r3}, ids)
	})

	s.Run("NoHistoryIsNotAnError", func() {
		ids, err := s.history.RecentRecipeIDs(s.ctx, uuid.New(), day(1), day(31))
		require.NoError(s.T(), err)
		assert.Empty(s.T(), ids)
	})

	s.Run("EmptyWindow", func() {
		ids, err := s.history.RecentRecipeIDs(s.ctx, cust, day(5), day(4))
		require.NoError(s.T(), err)
		assert.Empty(s.T(), ids)
	})
}

func (s *RepositoryTestSuite) TestRecordIsIdempotent() {
	cust := uuid.New()
	entry := customer.MealHistoryEntry{RecipeID: uuid.New(), ServedOn: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), MealType: "lunch"}

	require.NoError(s.T(), s.history.Record(s.ctx, cust, entry))
	require.NoError(s.T(), s.history.Record(s.ctx, cust, entry))

	var count int64
	require.NoError(s.T(), s.db.Model(&MealHistoryModel{}).Where("customer_id = ?", cust).Count(&count).Error)
	assert.Equal(s.T(), int64(1), count)
}

func (s *RepositoryTestSuite) TestAuditSave() {
	opID := uuid.New()
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	records := []outbound.AuditRecord{
		{
			ID:            uuid.New(),
			OperationID:   opID,
			OperationType: outbound.OperationGenerateMealPlan,
			CustomerID:    uuid.New(),
			Phase:         "start",
			Metadata:      map[string]interface{}{"days": 7},
			OccurredAt:    at,
		},
		{
			ID:            uuid.New(),
			OperationID:   opID,
			OperationType: outbound.OperationGenerateMealPlan,
			Phase:         "failure",
			DurationMs:    1500,
			ErrorCode:     "SAFETY_VIOLATION",
			ErrorMessage:  "no safe recipes",
			StackContext:  "goroutine 1 [running]",
			OccurredAt:    at.Add(1500 * time.Millisecond),
		},
	}
	for _, rec := range records {
		require.NoError(s.T(), s.audit.Save(s.ctx, rec))
	}

	events, err := s.audit.FindByOperation(s.ctx, opID)
	require.NoError(s.T(), err)
	require.Len(s.T(), events, 2)
	assert.Equal(s.T(), "start", events[0].Phase)
	assert.Equal(s.T(), float64(7), events[0].Metadata["days"])
	assert.Equal(s.T(), "failure", events[1].Phase)
	assert.Equal(s.T(), "SAFETY_VIOLATION", events[1].ErrorCode)
	assert.Equal(s.T(), int64(1500), events[1].DurationMs)
}

func names(recipes []*recipe.Recipe) []string {
	out := make([]string, len(recipes))
	for i, r := range recipes {
		out[i] = r.Name()
	}
	return out
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
