// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the collaborators the recommendation engine calls but does not implement
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/customer"
	"github.com/mealprep/recommender/internal/domain/recipe"
)

// RecipeCatalogRepository provides read access to the recipe catalog.
// The engine never writes catalog data.
type RecipeCatalogRepository interface {
	ListActive(ctx context.Context) ([]*recipe.Recipe, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*recipe.Recipe, error)
}

// MealHistoryRepository answers which recipes a customer was served
type MealHistoryRepository interface {
	// RecentRecipeIDs returns the distinct recipe ids served in the
	// inclusive calendar-day window [from, to]. No history is not an error.
	RecentRecipeIDs(ctx context.Context, customerID uuid.UUID, from, to time.Time) ([]uuid.UUID, error)
	Record(ctx context.Context, customerID uuid.UUID, entry customer.MealHistoryEntry) error
}

// ErrCacheMiss is returned by CacheRepository.Get for absent or expired keys
var ErrCacheMiss = errors.New("cache miss")

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
