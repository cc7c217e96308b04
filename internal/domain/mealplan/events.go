package mealplan

import (
	"time"

	"github.com/google/uuid"
)

// PlanAssembledEvent is raised when a plan reaches StateDone
type PlanAssembledEvent struct {
	PlanID          uuid.UUID
	CustomerID      uuid.UUID
	Recommendations int
	At              time.Time
}

func (e PlanAssembledEvent) EventName() string     { return "mealplan.assembled" }
func (e PlanAssembledEvent) OccurredAt() time.Time { return e.At }

// ExclusionRelaxedEvent is raised when a slot had to fall back to recipes
// from the exclusion set because no fresh safe recipe was left
type ExclusionRelaxedEvent struct {
	PlanID uuid.UUID
	Slot   MealSlot
	Tier   int
	At     time.Time
}

func (e ExclusionRelaxedEvent) EventName() string     { return "mealplan.exclusion_relaxed" }
func (e ExclusionRelaxedEvent) OccurredAt() time.Time { return e.At }
