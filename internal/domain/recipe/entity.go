// Package recipe contains the recipe catalog domain model used by the
// recommendation engine. Recipes are read-only once built.
package recipe

import (
	"strings"

	"github.com/google/uuid"
)

// Recipe represents a catalog recipe eligible for recommendation.
type Recipe struct {
	id          uuid.UUID
	name        string
	steps       string
	nutrition   *NutritionInfo
	ingredients []Ingredient
	tags        []string
}

// Params carries the attributes used to build a Recipe
type Params struct {
	ID          uuid.UUID
	Name        string
	Steps       string
	Nutrition   *NutritionInfo
	Ingredients []Ingredient
	Tags        []string
}

// New creates a Recipe with validation
func New(p Params) (*Recipe, error) {
	if p.ID == uuid.Nil {
		return nil, ErrMissingID
	}
	if err := validateName(p.Name); err != nil {
		return nil, err
	}
	for _, ing := range p.Ingredients {
		if err := ing.Validate(); err != nil {
			return nil, err
		}
	}

	r := &Recipe{
		id:          p.ID,
		name:        strings.TrimSpace(p.Name),
		steps:       p.Steps,
		ingredients: append([]Ingredient(nil), p.Ingredients...),
		tags:        normalizeTags(p.Tags),
	}
	if p.Nutrition != nil {
		n := *p.Nutrition
		r.nutrition = &n
	}
	return r, nil
}

// MustNew is New for fixtures and seed data; it panics on invalid params.
func MustNew(p Params) *Recipe {
	r, err := New(p)
	if err != nil {
		panic(err)
	}
	return r
}

// ID returns the recipe's unique identifier
func (r *Recipe) ID() uuid.UUID {
	return r.id
}

// Name returns the recipe's name
func (r *Recipe) Name() string {
	return r.name
}

// Steps returns the free-text preparation steps
func (r *Recipe) Steps() string {
	return r.steps
}

// Nutrition returns a copy of the per-unit nutrition, or nil if unknown
func (r *Recipe) Nutrition() *NutritionInfo {
	if r.nutrition == nil {
		return nil
	}
	n := *r.nutrition
	return &n
}

// Ingredients returns the recipe's ingredients
func (r *Recipe) Ingredients() []Ingredient {
	out := make([]Ingredient, len(r.ingredients))
	copy(out, r.ingredients)
	return out
}

// Tags returns the recipe's dietary and descriptive tags
func (r *Recipe) Tags() []string {
	return append([]string(nil), r.tags...)
}

// HasTag reports whether the recipe carries the given tag (case-insensitive)
func (r *Recipe) HasTag(tag string) bool {
	tag = normalizeTag(tag)
	for _, t := range r.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MissingNutrition returns the nutrition fields that are missing or
// non-positive. An empty result means the recipe is recommendable.
func (r *Recipe) MissingNutrition() []string {
	return r.nutrition.MissingFields()
}

// ContainsAllergen reports whether any ingredient matches one of the
// given normalized allergy names.
func (r *Recipe) ContainsAllergen(allergies map[string]struct{}) bool {
	if len(allergies) == 0 {
		return false
	}
	for _, ing := range r.ingredients {
		if ing.MatchesAny(allergies) {
			return true
		}
	}
	return false
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if len(name) > 200 {
		return ErrNameTooLong
	}
	return nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = normalizeTag(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func normalizeTag(tag string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(tag)), "-", "_")
}
