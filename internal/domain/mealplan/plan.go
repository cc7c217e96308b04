package mealplan

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/shared"
)

// PlanState is the state of a plan assembly run
type PlanState int

const (
	StateNotStarted PlanState = iota
	StatePerSlot
	StateAggregating
	StateDone
	StateFailed
)

func (s PlanState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StatePerSlot:
		return "per_slot"
	case StateAggregating:
		return "aggregating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("plan_state(%d)", int(s))
}

// MarshalText renders the state name
func (s PlanState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CanTransitionTo reports whether next is a legal successor of s. Failed is
// only reachable once slot resolution has begun.
func (s PlanState) CanTransitionTo(next PlanState) bool {
	switch s {
	case StateNotStarted:
		return next == StatePerSlot
	case StatePerSlot:
		return next == StatePerSlot || next == StateAggregating || next == StateFailed
	case StateAggregating:
		return next == StateDone || next == StateFailed
	}
	return false
}

// IsTerminal reports whether the run has finished
func (s PlanState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// ExcludedRecipe records a recipe dropped from the candidate set
type ExcludedRecipe struct {
	RecipeID uuid.UUID `json:"recipe_id"`
	Name     string    `json:"name"`
	Reason   string    `json:"reason"`
}

// Exclusion reasons
const (
	ReasonMissingNutrition = "missing_nutrition"
	ReasonAllergen         = "allergen"
)

// PlanResult is the outcome of a completed assembly run
type PlanResult struct {
	shared.AggregateRoot `json:"-"`

	ID              uuid.UUID             `json:"id"`
	CustomerID      uuid.UUID             `json:"customer_id"`
	StartDate       time.Time             `json:"start_date"`
	EndDate         time.Time             `json:"end_date"`
	MealTypes       []MealType            `json:"meal_types"`
	State           PlanState             `json:"state"`
	Recommendations []*MealRecommendation `json:"recommendations"`
	Summary         NutritionalSummary    `json:"summary"`
	Warnings        []string              `json:"warnings,omitempty"`
	Excluded        []ExcludedRecipe      `json:"excluded,omitempty"`
	Scorer          string                `json:"scorer"`
	GeneratedAt     time.Time             `json:"generated_at"`
}

// RecipeIDs returns the recommended recipe ids in plan order
func (p *PlanResult) RecipeIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Recommendations))
	for _, r := range p.Recommendations {
		ids = append(ids, r.RecipeID())
	}
	return ids
}

// ForDay returns the recommendations of one calendar day
func (p *PlanResult) ForDay(day time.Time) []*MealRecommendation {
	day = Day(day)
	var out []*MealRecommendation
	for _, r := range p.Recommendations {
		if r.Slot().Date.Equal(day) {
			out = append(out, r)
		}
	}
	return out
}
