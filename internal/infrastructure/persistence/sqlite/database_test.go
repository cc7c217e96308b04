package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mealprep/recommender/internal/infrastructure/config"
	gormrepo "github.com/mealprep/recommender/internal/infrastructure/persistence/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSetupDatabaseAndSeed(t *testing.T) {
	log := zaptest.NewLogger(t)
	cfg := config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "mealplan.db"),
		LogLevel:    "silent",
		AutoMigrate: true,
	}

	db, err := SetupDatabase(cfg, log)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := gormrepo.NewRecipeRepository(db, log)
	ctx := context.Background()

	created, err := SeedDemoCatalog(ctx, repo, log)
	require.NoError(t, err)
	assert.Equal(t, len(DemoCatalog()), created)

	again, err := SeedDemoCatalog(ctx, repo, log)
	require.NoError(t, err)
	assert.Zero(t, again, "seeding must be idempotent")

	all, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(DemoCatalog()))

	missing := 0
	peanut := 0
	for _, r := range all {
		if len(r.MissingNutrition()) > 0 {
			missing++
		}
		if r.ContainsAllergen(map[string]struct{}{"peanuts": {}}) {
			peanut++
		}
	}
	assert.Equal(t, 1, missing)
	assert.Equal(t, 2, peanut)
}

func TestDemoCatalogIDsAreStable(t *testing.T) {
	first := DemoCatalog()
	second := DemoCatalog()

	require.Len(t, second, len(first))
	seen := map[string]bool{}
	for i := range first {
		assert.Equal(t, first[i].ID(), second[i].ID())
		assert.False(t, seen[first[i].ID().String()], "duplicate id for %s", first[i].Name())
		seen[first[i].ID().String()] = true
	}
}
