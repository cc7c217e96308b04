package mealplan

import (
	"errors"
	"fmt"
)

// Domain errors for recommendation runs

var (
	// ErrNoSafeRecipes means allergen filtering left nothing to recommend.
	ErrNoSafeRecipes = errors.New("no safe recipes remain after allergen filtering")
	// ErrCollaboratorUnavailable means the ranking source is disabled or unreachable.
	ErrCollaboratorUnavailable = errors.New("ranking collaborator unavailable")
	// ErrNoUsableCandidates means nothing survived validation of the ranking.
	ErrNoUsableCandidates = errors.New("no usable recommendation candidates")

	ErrInvalidRequest    = errors.New("invalid recommendation request")
	ErrInvalidTransition = errors.New("invalid plan state transition")
)

// AssemblyError is returned when a plan run ends in StateFailed. Partial
// holds the recommendations accumulated before the failure; callers may
// treat them as a degraded result, the assembler never does.
type AssemblyError struct {
	State   PlanState
	Slot    *MealSlot
	Partial []*MealRecommendation
	Err     error
}

func (e *AssemblyError) Error() string {
	if e.Slot != nil {
		return fmt.Sprintf("plan assembly failed in %s at %s: %v", e.State, e.Slot, e.Err)
	}
	return fmt.Sprintf("plan assembly failed in %s: %v", e.State, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}
