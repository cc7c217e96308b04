// Package customer defines the read-only customer snapshot consumed by the
// recommendation engine for the duration of one request.
package customer

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingCustomerID = errors.New("customer id is required")
)

// Context is an immutable snapshot of everything the engine knows about a
// customer: identity, health profile, allergies and recent meal history.
type Context struct {
	id        uuid.UUID
	profile   *HealthProfile
	allergies []Allergy
	history   []MealHistoryEntry
	warnings  []string
}

// HealthProfile contains the customer's dietary goals
type HealthProfile struct {
	DietaryRestrictions []DietaryRestriction
	CalorieGoal         float64 // daily target in kcal
	Preferences         string  // free-text
}

// Allergy is a named allergen recorded against a customer
type Allergy struct {
	Name     string
	Severity Severity
}

// Severity grades an allergy. Every severity is excluded the same way.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// MealHistoryEntry records a recipe previously served to the customer
type MealHistoryEntry struct {
	RecipeID uuid.UUID
	ServedOn time.Time
	MealType string
}

// DietaryRestriction represents dietary restrictions
type DietaryRestriction string

const (
	DietaryRestrictionVegetarian DietaryRestriction = "vegetarian"
	DietaryRestrictionVegan      DietaryRestriction = "vegan"
	DietaryRestrictionGlutenFree DietaryRestriction = "gluten_free"
	DietaryRestrictionDairyFree  DietaryRestriction = "dairy_free"
	DietaryRestrictionKeto       DietaryRestriction = "keto"
	DietaryRestrictionPaleo      DietaryRestriction = "paleo"
	DietaryRestrictionHalal      DietaryRestriction = "halal"
	DietaryRestrictionKosher     DietaryRestriction = "kosher"
	DietaryRestrictionLowSodium  DietaryRestriction = "low_sodium"
)

// Profile warnings attached to incomplete snapshots
const (
	WarningMissingHealthProfile = "health profile is missing; recommendations use allergies only"
	WarningMissingCalorieGoal   = "calorie goal is not set"
	WarningMissingDietaryInfo   = "no dietary restrictions or preferences recorded"
)

// Params carries the attributes used to build a Context
type Params struct {
	ID        uuid.UUID
	Profile   *HealthProfile
	Allergies []Allergy
	History   []MealHistoryEntry
	// Warnings supplied by the profile-analysis collaborator
	Warnings []string
}

// NewContext builds a snapshot and derives completeness warnings
func NewContext(p Params) (*Context, error) {
	if p.ID == uuid.Nil {
		return nil, ErrMissingCustomerID
	}

	c := &Context{
		id:        p.ID,
		allergies: append([]Allergy(nil), p.Allergies...),
		history:   append([]MealHistoryEntry(nil), p.History...),
	}
	if p.Profile != nil {
		prof := *p.Profile
		prof.DietaryRestrictions = append([]DietaryRestriction(nil), p.Profile.DietaryRestrictions...)
		c.profile = &prof
	}

	c.warnings = dedupe(append(append([]string(nil), p.Warnings...), c.deriveWarnings()...))
	return c, nil
}

func (c *Context) deriveWarnings() []string {
	if c.profile == nil {
		return []string{WarningMissingHealthProfile}
	}
	var w []string
	if c.profile.CalorieGoal <= 0 {
		w = append(w, WarningMissingCalorieGoal)
	}
	if len(c.profile.DietaryRestrictions) == 0 && strings.TrimSpace(c.profile.Preferences) == "" {
		w = append(w, WarningMissingDietaryInfo)
	}
	return w
}

// ID returns the customer identifier
func (c *Context) ID() uuid.UUID {
	return c.id
}

// Profile returns a copy of the health profile, or nil
func (c *Context) Profile() *HealthProfile {
	if c.profile == nil {
		return nil
	}
	p := *c.profile
	p.DietaryRestrictions = append([]DietaryRestriction(nil), c.profile.DietaryRestrictions...)
	return &p
}

// Allergies returns the recorded allergies
func (c *Context) Allergies() []Allergy {
	return append([]Allergy(nil), c.allergies...)
}

// AllergyNames returns trimmed, de-duplicated allergy names
func (c *Context) AllergyNames() []string {
	names := make([]string, 0, len(c.allergies))
	for _, a := range c.allergies {
		if n := strings.TrimSpace(a.Name); n != "" {
			names = append(names, n)
		}
	}
	return dedupeFold(names)
}

// History returns the recent meal history carried in the snapshot
func (c *Context) History() []MealHistoryEntry {
	return append([]MealHistoryEntry(nil), c.history...)
}

// IsComplete reports whether the snapshot carries no warnings
func (c *Context) IsComplete() bool {
	return len(c.warnings) == 0
}

// Warnings returns missing-data warnings
func (c *Context) Warnings() []string {
	return append([]string(nil), c.warnings...)
}

// CalorieGoal returns the daily calorie goal, or 0 when unknown
func (c *Context) CalorieGoal() float64 {
	if c.profile == nil {
		return 0
	}
	return c.profile.CalorieGoal
}

// DietaryRestrictions returns the restrictions from the health profile
func (c *Context) DietaryRestrictions() []DietaryRestriction {
	if c.profile == nil {
		return nil
	}
	return append([]DietaryRestriction(nil), c.profile.DietaryRestrictions...)
}

// Preferences returns the free-text preferences
func (c *Context) Preferences() string {
	if c.profile == nil {
		return ""
	}
	return c.profile.Preferences
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func dedupeFold(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		k := strings.ToLower(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
