package outbound

import (
	"context"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/customer"
	"github.com/mealprep/recommender/internal/domain/mealplan"
	"github.com/mealprep/recommender/internal/domain/recipe"
)

// RankingProvider is the external ranking collaborator. Its output is
// untrusted: the engine re-validates every returned id.
type RankingProvider interface {
	Name() string
	Rank(ctx context.Context, req RankRequest) ([]RankedItem, error)
	IsAvailable(ctx context.Context) bool
}

// RankRequest is what the engine hands to a ranking provider for one slot
type RankRequest struct {
	Customer   *customer.Context
	Candidates []*recipe.Recipe
	Exclusions []uuid.UUID
	Slot       mealplan.MealSlot
	CountHint  int
}

// RankedItem is a single ranked pick returned by a provider
type RankedItem struct {
	RecipeID   uuid.UUID
	Confidence float64
	Rationale  string
}

// ProviderType identifies a ranking provider implementation
type ProviderType string

const (
	ProviderOllama ProviderType = "ollama"
	ProviderOpenAI ProviderType = "openai"
	ProviderGemini ProviderType = "gemini"
)
