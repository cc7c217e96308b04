package mealplan

import (
	"sort"

	"github.com/google/uuid"
)

// ExclusionSet is the set of recently used recipe ids. It is private to one
// assembly run and only ever grows.
type ExclusionSet struct {
	ids map[uuid.UUID]struct{}
}

// NewExclusionSet creates a set seeded with ids
func NewExclusionSet(ids ...uuid.UUID) *ExclusionSet {
	s := &ExclusionSet{ids: make(map[uuid.UUID]struct{}, len(ids))}
	s.Add(ids...)
	return s
}

// Add inserts ids into the set
func (s *ExclusionSet) Add(ids ...uuid.UUID) {
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

// Union inserts every id of o
func (s *ExclusionSet) Union(o *ExclusionSet) {
	if o == nil {
		return
	}
	for id := range o.ids {
		s.ids[id] = struct{}{}
	}
}

// Contains reports membership
func (s *ExclusionSet) Contains(id uuid.UUID) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of ids
func (s *ExclusionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// Clone returns an independent copy
func (s *ExclusionSet) Clone() *ExclusionSet {
	c := NewExclusionSet()
	c.Union(s)
	return c
}

// IDs returns the ids sorted by their string form
func (s *ExclusionSet) IDs() []uuid.UUID {
	if s == nil {
		return nil
	}
	out := make([]uuid.UUID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
