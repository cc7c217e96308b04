// Package prompt builds the ranking prompt shared by every LLM provider
// and parses the JSON ranking they return.
package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/mealplan"
	"github.com/mealprep/recommender/internal/ports/outbound"
)

// ErrMalformedResponse is returned when no ranking JSON can be read
var ErrMalformedResponse = errors.New("malformed ranking response")

// System is the system prompt fixing the output format
const System = `You are a nutrition-aware meal planner. You rank candidate recipes for one meal slot of one customer.

CRITICAL: Respond with ONLY a valid JSON object in this exact format:
{
  "recommendations": [
    {"recipe_id": "<id copied from the candidate list>", "confidence": 0.0, "rationale": "one short sentence"}
  ]
}

Rules:
- Only use recipe ids from the candidate list. Never invent ids.
- Never recommend a recipe listed as excluded.
- confidence is a number between 0 and 1.
- Order recommendations from best to worst.

Remember: Respond with ONLY valid JSON. No additional text, explanations, or formatting.`

// User renders the request as the user prompt
func User(req outbound.RankRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Meal slot: %s on %s\n", req.Slot.MealType, req.Slot.Date.Format(mealplan.DateLayout))
	fmt.Fprintf(&b, "Return up to %d recommendation(s).\n", max(req.CountHint, 1))

	if c := req.Customer; c != nil {
		b.WriteString("\nCustomer:\n")
		if names := c.AllergyNames(); len(names) > 0 {
			fmt.Fprintf(&b, "- Allergies: %s\n", strings.Join(names, ", "))
		}
		if rs := c.DietaryRestrictions(); len(rs) > 0 {
			parts := make([]string, len(rs))
			for i, r := range rs {
				parts[i] = string(r)
			}
			fmt.Fprintf(&b, "- Dietary restrictions: %s\n", strings.Join(parts, ", "))
		}
		if goal := c.CalorieGoal(); goal > 0 {
			fmt.Fprintf(&b, "- Daily calorie goal: %.0f kcal\n", goal)
		}
		if p := c.Preferences(); p != "" {
			fmt.Fprintf(&b, "- Preferences: %s\n", p)
		}
	}

	b.WriteString("\nCandidates:\n")
	for _, r := range req.Candidates {
		fmt.Fprintf(&b, "- id=%s name=%q", r.ID(), r.Name())
		if n := r.Nutrition(); n != nil {
			fmt.Fprintf(&b, " kcal=%.0f protein=%.1fg fat=%.1fg carbs=%.1fg", n.Calories, n.Protein, n.Fat, n.Carbohydrates)
		}
		if tags := r.Tags(); len(tags) > 0 {
			fmt.Fprintf(&b, " tags=%s", strings.Join(tags, ","))
		}
		b.WriteByte('\n')
	}

	if len(req.Exclusions) > 0 {
		b.WriteString("\nExcluded (recently served or already planned):\n")
		for _, id := range req.Exclusions {
			fmt.Fprintf(&b, "- %s\n", id)
		}
	}

	return b.String()
}

type rankingResponse struct {
	Recommendations []rankingItem `json:"recommendations"`
}

type rankingItem struct {
	RecipeID   string  `json:"recipe_id"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// Parse reads the first JSON object found in text. Code fences and
// surrounding prose are ignored. Items whose id is not a UUID are dropped
// and counted in rejected.
func Parse(text string) (items []outbound.RankedItem, rejected int, err error) {
	raw, ok := firstObject(text)
	if !ok {
		return nil, 0, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	var resp rankingResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	items = make([]outbound.RankedItem, 0, len(resp.Recommendations))
	for _, it := range resp.Recommendations {
		id, err := uuid.Parse(strings.TrimSpace(it.RecipeID))
		if err != nil {
			rejected++
			continue
		}
		items = append(items, outbound.RankedItem{
			RecipeID:   id,
			Confidence: it.Confidence,
			Rationale:  strings.TrimSpace(it.Rationale),
		})
	}
	return items, rejected, nil
}

// firstObject returns the first balanced {...} in s, honouring strings
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
