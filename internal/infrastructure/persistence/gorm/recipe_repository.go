package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/recipe"
	"github.com/mealprep/recommender/internal/ports/outbound"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const ingredientsPreload = "Ingredients.AllergyCategories"

// RecipeRepository implements the catalog repository using GORM
type RecipeRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ outbound.RecipeCatalogRepository = (*RecipeRepository)(nil)

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *gorm.DB, logger *zap.Logger) *RecipeRepository {
	return &RecipeRepository{db: db, logger: logger.Named("recipe-repository")}
}

// ListActive returns every active recipe ordered by name then id. Rows that
// no longer form a valid recipe are skipped and logged.
func (r *RecipeRepository) ListActive(ctx context.Context) ([]*recipe.Recipe, error) {
	var models []RecipeModel

	result := r.db.WithContext(ctx).
		Preload(ingredientsPreload).
		Where("active = ?", true).
		Order("name ASC, id ASC").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("list active recipes: %w", result.Error)
	}

	return r.toDomain(models), nil
}

// FindByIDs returns the active recipes among ids. Unknown ids are ignored.
func (r *RecipeRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*recipe.Recipe, error) {
	if len(ids) == 0 {
		return []*recipe.Recipe{}, nil
	}

	var models []RecipeModel
	result := r.db.WithContext(ctx).
		Preload(ingredientsPreload).
		Where("id IN ? AND active = ?", ids, true).
		Order("name ASC, id ASC").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("find recipes by id: %w", result.Error)
	}

	return r.toDomain(models), nil
}

// Create inserts a recipe with its ingredients and allergy categories
func (r *RecipeRepository) Create(ctx context.Context, rec *recipe.Recipe) error {
	model := RecipeToModel(rec)

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("create recipe %s: %w", rec.ID(), err)
	}
	return nil
}

// CreateIfMissing inserts rec unless a recipe with the same id exists,
// including soft-deleted ones. It reports whether a row was written.
func (r *RecipeRepository) CreateIfMissing(ctx context.Context, rec *recipe.Recipe) (bool, error) {
	var existing RecipeModel
	err := r.db.WithContext(ctx).Unscoped().Select("id").First(&existing, "id = ?", rec.ID()).Error
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, fmt.Errorf("look up recipe %s: %w", rec.ID(), err)
	}

	if err := r.Create(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

// Deactivate removes a recipe from the active catalog without deleting it
func (r *RecipeRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&RecipeModel{}).Where("id = ?", id).Update("active", false)
	if result.Error != nil {
		return fmt.Errorf("deactivate recipe %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("deactivate recipe %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *RecipeRepository) toDomain(models []RecipeModel) []*recipe.Recipe {
	recipes := make([]*recipe.Recipe, 0, len(models))
	for i := range models {
		rec, err := ModelToRecipe(&models[i])
		if err != nil {
			r.logger.Warn("Skipping invalid catalog row",
				zap.String("recipe_id", models[i].ID.String()),
				zap.Error(err),
			)
			continue
		}
		recipes = append(recipes, rec)
	}
	return recipes
}
