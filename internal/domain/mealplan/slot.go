// Package mealplan holds the value types produced and consumed while a meal
// plan is assembled: slots, recommendations, the exclusion set, the plan
// state machine and the nutritional summary.
package mealplan

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// MealType is one of the fixed meal slots of a day
type MealType string

const (
	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"
)

// mealTypeOrder is the declared iteration order within a day
var mealTypeOrder = map[MealType]int{
	MealTypeBreakfast: 0,
	MealTypeLunch:     1,
	MealTypeDinner:    2,
}

// AllMealTypes returns every meal type in declared order
func AllMealTypes() []MealType {
	return []MealType{MealTypeBreakfast, MealTypeLunch, MealTypeDinner}
}

// ParseMealType parses a meal type name (case-insensitive). Common aliases
// for the morning, midday and evening meal are accepted.
func ParseMealType(s string) (MealType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "breakfast", "morning":
		return MealTypeBreakfast, nil
	case "lunch", "midday":
		return MealTypeLunch, nil
	case "dinner", "evening", "supper":
		return MealTypeDinner, nil
	}
	return "", fmt.Errorf("%w: unknown meal type %q", ErrInvalidRequest, s)
}

// IsValid reports whether m is a declared meal type
func (m MealType) IsValid() bool {
	_, ok := mealTypeOrder[m]
	return ok
}

// Order returns the declared position of the meal type within a day
func (m MealType) Order() int {
	if o, ok := mealTypeOrder[m]; ok {
		return o
	}
	return len(mealTypeOrder)
}

func (m MealType) String() string {
	return string(m)
}

// SortMealTypes returns a de-duplicated copy of types in declared order
func SortMealTypes(types []MealType) []MealType {
	seen := make(map[MealType]struct{}, len(types))
	out := make([]MealType, 0, len(types))
	for _, t := range types {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order() < out[j].Order() })
	return out
}

// MealSlot is one (date, meal type) unit of a plan
type MealSlot struct {
	Date     time.Time `json:"date"`
	MealType MealType  `json:"meal_type"`
}

// NewMealSlot builds a slot with the date truncated to its calendar day
func NewMealSlot(date time.Time, mealType MealType) MealSlot {
	return MealSlot{Date: Day(date), MealType: mealType}
}

// Key returns a stable string key such as "2024-03-04/lunch"
func (s MealSlot) Key() string {
	return s.Date.Format(DateLayout) + "/" + string(s.MealType)
}

func (s MealSlot) String() string {
	return s.Key()
}

// Before reports whether s is processed before o
func (s MealSlot) Before(o MealSlot) bool {
	if !s.Date.Equal(o.Date) {
		return s.Date.Before(o.Date)
	}
	return s.MealType.Order() < o.MealType.Order()
}

// DateLayout is the calendar-day layout used in keys and logs
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar day
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Slots enumerates the slots of an inclusive date range in processing
// order: dates ascending, then meal types in declared order.
func Slots(start, end time.Time, types []MealType) []MealSlot {
	start, end = Day(start), Day(end)
	types = SortMealTypes(types)
	var slots []MealSlot
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		for _, t := range types {
			slots = append(slots, MealSlot{Date: d, MealType: t})
		}
	}
	return slots
}
