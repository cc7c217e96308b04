// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the recommendation engine exposes to the outside world
package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/customer"
	"github.com/mealprep/recommender/internal/domain/mealplan"
	"github.com/mealprep/recommender/internal/domain/recipe"
)

// MealRecommendationService defines the recommendation use cases
type MealRecommendationService interface {
	GenerateMealPlan(ctx context.Context, req PlanRequest) (*mealplan.PlanResult, error)
	GenerateSlotRecommendation(ctx context.Context, req SlotRequest) ([]*mealplan.MealRecommendation, error)
}

// PlanRequest asks for a multi-day plan over an inclusive date range
type PlanRequest struct {
	Customer  *customer.Context   `validate:"required"`
	Catalog   []*recipe.Recipe    `validate:"required,min=1"`
	StartDate time.Time           `validate:"required"`
	EndDate   time.Time           `validate:"required"`
	MealTypes []mealplan.MealType `validate:"required,min=1,unique,dive,oneof=breakfast lunch dinner"`
	CountHint int                 `validate:"omitempty,min=1,max=5"`
	// AIEnabled is the caller's reading of the AI feature flag for this request
	AIEnabled bool
}

// SlotRequest asks for the recommendations of a single slot
type SlotRequest struct {
	Customer   *customer.Context `validate:"required"`
	Catalog    []*recipe.Recipe  `validate:"required,min=1"`
	Date       time.Time         `validate:"required"`
	MealType   mealplan.MealType `validate:"required,oneof=breakfast lunch dinner"`
	Exclusions []uuid.UUID
	CountHint  int `validate:"omitempty,min=1,max=5"`
	AIEnabled  bool
}
