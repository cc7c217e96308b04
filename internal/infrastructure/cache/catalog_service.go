package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/recipe"
	"github.com/mealprep/recommender/internal/ports/outbound"
	apperrors "github.com/mealprep/recommender/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CatalogKey is the cache key of the active catalog snapshot
const CatalogKey = "catalog:active:v1"

// refreshTimeout bounds a shared catalog refresh. The refresh is detached
// from the caller that started it so one cancelled caller does not fail the
// others waiting on the same flight.
const refreshTimeout = 30 * time.Second

// LookupObserver is told whether a snapshot lookup hit the cache
type LookupObserver interface {
	CacheLookup(hit bool)
}

// CatalogService serves the active recipe catalog cache-first. The snapshot
// is refreshed from the repository on a miss or after Invalidate; cache
// failures degrade to a repository read and never fail Load.
type CatalogService struct {
	source   outbound.RecipeCatalogRepository
	cache    outbound.CacheRepository
	ttl      time.Duration
	observer LookupObserver
	group    singleflight.Group
	logger   *zap.Logger
}

// NewCatalogService creates a catalog service. observer may be nil.
func NewCatalogService(source outbound.RecipeCatalogRepository, cache outbound.CacheRepository, ttl time.Duration, observer LookupObserver, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		source:   source,
		cache:    cache,
		ttl:      ttl,
		observer: observer,
		logger:   logger.Named("catalog-cache"),
	}
}

// Load returns the active catalog snapshot
func (s *CatalogService) Load(ctx context.Context) ([]*recipe.Recipe, error) {
	if recipes, ok := s.fromCache(ctx); ok {
		return recipes, nil
	}

	v, err, shared := s.group.Do(CatalogKey, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return s.refresh(rctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("Catalog refresh shared with concurrent caller")
	}
	return v.([]*recipe.Recipe), nil
}

// Invalidate drops the cached snapshot so the next Load re-reads the catalog
func (s *CatalogService) Invalidate(ctx context.Context) error {
	if err := s.cache.Delete(ctx, CatalogKey); err != nil {
		return apperrors.Wrap(err, "failed to invalidate catalog snapshot")
	}
	s.logger.Info("Catalog snapshot invalidated")
	return nil
}

func (s *CatalogService) fromCache(ctx context.Context) ([]*recipe.Recipe, bool) {
	data, err := s.cache.Get(ctx, CatalogKey)
	switch {
	case errors.Is(err, outbound.ErrCacheMiss):
		s.observe(false)
		return nil, false
	case err != nil:
		s.observe(false)
		s.logger.Warn("Catalog cache unavailable, reading repository", zap.Error(err))
		return nil, false
	}

	recipes, err := decodeSnapshot(data)
	if err != nil {
		s.observe(false)
		s.logger.Warn("Discarding unreadable catalog snapshot", zap.Error(err))
		_ = s.cache.Delete(ctx, CatalogKey)
		return nil, false
	}

	s.observe(true)
	return recipes, true
}

func (s *CatalogService) refresh(ctx context.Context) ([]*recipe.Recipe, error) {
	recipes, err := s.source.ListActive(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load recipe catalog", err)
	}

	data, err := encodeSnapshot(recipes, time.Now().UTC())
	if err != nil {
		s.logger.Warn("Failed to encode catalog snapshot", zap.Error(err))
		return recipes, nil
	}
	if err := s.cache.Set(ctx, CatalogKey, data, s.ttl); err != nil {
		s.logger.Warn("Failed to store catalog snapshot", zap.Error(err))
	}

	s.logger.Info("Catalog snapshot refreshed",
		zap.Int("recipes", len(recipes)),
		zap.Duration("ttl", s.ttl),
	)
	return recipes, nil
}

func (s *CatalogService) observe(hit bool) {
	if s.observer != nil {
		s.observer.CacheLookup(hit)
	}
}

type snapshot struct {
	LoadedAt time.Time        `json:"loaded_at"`
	Recipes  []snapshotRecipe `json:"recipes"`
}

type snapshotRecipe struct {
	ID          uuid.UUID            `json:"id"`
	Name        string               `json:"name"`
	Steps       string               `json:"steps,omitempty"`
	Nutrition   *snapshotNutrition   `json:"nutrition,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
	Ingredients []snapshotIngredient `json:"ingredients,omitempty"`
}

type snapshotNutrition struct {
	Calories      float64 `json:"calories"`
	Protein       float64 `json:"protein"`
	Fat           float64 `json:"fat"`
	Carbohydrates float64 `json:"carbohydrates"`
}

type snapshotIngredient struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	IsAllergen        bool      `json:"is_allergen,omitempty"`
	AllergyCategories []string  `json:"allergy_categories,omitempty"`
}

func encodeSnapshot(recipes []*recipe.Recipe, loadedAt time.Time) ([]byte, error) {
	snap := snapshot{LoadedAt: loadedAt, Recipes: make([]snapshotRecipe, 0, len(recipes))}
	for _, r := range recipes {
		sr := snapshotRecipe{
			ID:    r.ID(),
			Name:  r.Name(),
			Steps: r.Steps(),
			Tags:  r.Tags(),
		}
		if n := r.Nutrition(); n != nil {
			sr.Nutrition = &snapshotNutrition{
				Calories:      n.Calories,
				Protein:       n.Protein,
				Fat:           n.Fat,
				Carbohydrates: n.Carbohydrates,
			}
		}
		for _, ing := range r.Ingredients() {
			sr.Ingredients = append(sr.Ingredients, snapshotIngredient{
				ID:                ing.ID,
				Name:              ing.Name,
				IsAllergen:        ing.IsAllergen,
				AllergyCategories: ing.AllergyCategories,
			})
		}
		snap.Recipes = append(snap.Recipes, sr)
	}
	return json.Marshal(snap)
}

func decodeSnapshot(data []byte) ([]*recipe.Recipe, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}

	recipes := make([]*recipe.Recipe, 0, len(snap.Recipes))
	for _, sr := range snap.Recipes {
		params := recipe.Params{
			ID:    sr.ID,
			Name:  sr.Name,
			Steps: sr.Steps,
			Tags:  sr.Tags,
		}
		if sr.Nutrition != nil {
			params.Nutrition = &recipe.NutritionInfo{
				Calories:      sr.Nutrition.Calories,
				Protein:       sr.Nutrition.Protein,
				Fat:           sr.Nutrition.Fat,
				Carbohydrates: sr.Nutrition.Carbohydrates,
			}
		}
		for _, si := range sr.Ingredients {
			params.Ingredients = append(params.Ingredients, recipe.Ingredient{
				ID:                si.ID,
				Name:              si.Name,
				IsAllergen:        si.IsAllergen,
				AllergyCategories: si.AllergyCategories,
			})
		}
		r, err := recipe.New(params)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, nil
}
