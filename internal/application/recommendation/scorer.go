package recommendation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/customer"
	"github.com/mealprep/recommender/internal/domain/mealplan"
	"github.com/mealprep/recommender/internal/domain/recipe"
	"github.com/mealprep/recommender/internal/ports/outbound"
	"go.uber.org/zap"
)

// Scorer kinds selectable by configuration
const (
	ScorerDelegated = "delegated"
	ScorerWeighted  = "weighted"
)

// CandidateScorer is the pluggable source of per-recipe quality behind
// the candidate recommender.
type CandidateScorer interface {
	Name() string
	// Available returns nil when the scorer may be used for a request
	Available(ctx context.Context, aiEnabled bool) error
	Score(ctx context.Context, req ScoreRequest) ([]outbound.RankedItem, error)
}

// ScoreRequest carries the inputs of one slot's scoring call
type ScoreRequest struct {
	Customer   *customer.Context
	Candidates []*recipe.Recipe
	Exclusions *mealplan.ExclusionSet
	Slot       mealplan.MealSlot
	CountHint  int
}

// NewCandidateScorer selects a scorer by kind
func NewCandidateScorer(kind string, provider outbound.RankingProvider, logger *zap.Logger) (CandidateScorer, error) {
	switch strings.ToLower(kind) {
	case "", ScorerDelegated:
		if provider == nil {
			return nil, fmt.Errorf("delegated scorer requires a ranking provider")
		}
		return NewDelegatedScorer(provider, logger), nil
	case ScorerWeighted:
		return NewWeightedRuleScorer(DefaultWeights(), logger), nil
	default:
		return nil, fmt.Errorf("unknown scorer %q", kind)
	}
}

// DelegatedScorer hands scoring to an external ranking provider
type DelegatedScorer struct {
	provider outbound.RankingProvider
	logger   *zap.Logger
}

// NewDelegatedScorer creates a scorer backed by provider
func NewDelegatedScorer(provider outbound.RankingProvider, logger *zap.Logger) *DelegatedScorer {
	return &DelegatedScorer{
		provider: provider,
		logger:   logger.Named("delegated-scorer"),
	}
}

// Name returns the provider name
func (s *DelegatedScorer) Name() string {
	return s.provider.Name()
}

// Available fails when AI is switched off for the request or the provider
// reports itself unhealthy.
func (s *DelegatedScorer) Available(ctx context.Context, aiEnabled bool) error {
	if !aiEnabled {
		return collaboratorUnavailable(s.provider.Name(), "AI recommendations are disabled", nil)
	}
	if !s.provider.IsAvailable(ctx) {
		return collaboratorUnavailable(s.provider.Name(), "ranking provider is not available", nil)
	}
	return nil
}

// Score calls the provider. Every provider error surfaces as collaborator
// unavailability with the original error kept in the chain.
func (s *DelegatedScorer) Score(ctx context.Context, req ScoreRequest) ([]outbound.RankedItem, error) {
	items, err := s.provider.Rank(ctx, outbound.RankRequest{
		Customer:   req.Customer,
		Candidates: req.Candidates,
		Exclusions: req.Exclusions.IDs(),
		Slot:       req.Slot,
		CountHint:  req.CountHint,
	})
	if err != nil {
		if errors.Is(err, mealplan.ErrCollaboratorUnavailable) {
			return nil, err
		}
		return nil, collaboratorUnavailable(s.provider.Name(), "ranking call failed", err)
	}

	s.logger.Debug("Provider ranking received",
		zap.String("provider", s.provider.Name()),
		zap.String("slot", req.Slot.Key()),
		zap.Int("candidates", len(req.Candidates)),
		zap.Int("returned", len(items)),
	)
	return items, nil
}

// Weights tunes the weighted rule scorer
type Weights struct {
	// Share of the daily calorie goal expected per meal type
	MealCalorieShare map[mealplan.MealType]float64
	// Target calorie ratios for a balanced meal
	TargetProteinRatio float64
	TargetCarbRatio    float64
	TargetFatRatio     float64
	// Multiplier applied to recipes found in the exclusion set
	RepeatPenalty float64
	// Lower bound for every factor so a single weak factor never zeroes a score
	Floor float64
}

// DefaultWeights returns the stock weights
func DefaultWeights() Weights {
	return Weights{
		MealCalorieShare: map[mealplan.MealType]float64{
			mealplan.MealTypeBreakfast: 0.25,
			mealplan.MealTypeLunch:     0.35,
			mealplan.MealTypeDinner:    0.40,
		},
		TargetProteinRatio: 0.25,
		TargetCarbRatio:    0.50,
		TargetFatRatio:     0.25,
		RepeatPenalty:      0.5,
		Floor:              0.1,
	}
}

// WeightedRuleScorer computes a deterministic confidence locally:
// allergySafe x dietaryMatch x preferenceMatch x nutritionBalance x
// varietyBonus x calorieAlignment.
type WeightedRuleScorer struct {
	weights Weights
	logger  *zap.Logger
}

// NewWeightedRuleScorer creates a local scorer
func NewWeightedRuleScorer(weights Weights, logger *zap.Logger) *WeightedRuleScorer {
	return &WeightedRuleScorer{weights: weights, logger: logger.Named("weighted-scorer")}
}

// Name identifies the scorer
func (s *WeightedRuleScorer) Name() string {
	return ScorerWeighted
}

// Available always succeeds: no external collaborator is involved.
func (s *WeightedRuleScorer) Available(context.Context, bool) error {
	return nil
}

type factor struct {
	name  string
	value float64
}

// Score ranks every candidate and returns the top CountHint items
func (s *WeightedRuleScorer) Score(ctx context.Context, req ScoreRequest) ([]outbound.RankedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	allergies := allergySet(req.Customer.AllergyNames())
	prefs := preferenceTokens(req.Customer.Preferences())

	type scored struct {
		r     *recipe.Recipe
		score float64
		why   string
	}
	results := make([]scored, 0, len(req.Candidates))
	for _, r := range req.Candidates {
		factors := []factor{
			{"allergy safety", s.allergySafe(r, allergies)},
			{"dietary match", s.dietaryMatch(r, req.Customer.DietaryRestrictions())},
			{"preference match", s.preferenceMatch(r, prefs)},
			{"nutrition balance", s.nutritionBalance(r)},
			{"variety", s.varietyBonus(r.ID(), req.Exclusions)},
			{"calorie alignment", s.calorieAlignment(r, req.Customer.CalorieGoal(), req.Slot.MealType)},
		}
		score := 1.0
		for _, f := range factors {
			score *= f.value
		}
		if score <= 0 {
			continue
		}
		results = append(results, scored{r: r, score: score, why: rationale(score, factors)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		if results[i].r.Name() != results[j].r.Name() {
			return results[i].r.Name() < results[j].r.Name()
		}
		return results[i].r.ID().String() < results[j].r.ID().String()
	})

	n := req.CountHint
	if n <= 0 || n > len(results) {
		n = len(results)
	}
	items := make([]outbound.RankedItem, 0, n)
	for _, res := range results[:n] {
		items = append(items, outbound.RankedItem{
			RecipeID:   res.r.ID(),
			Confidence: res.score,
			Rationale:  res.why,
		})
	}
	return items, nil
}

// allergySafe is the hard filter; a zero removes the recipe outright.
func (s *WeightedRuleScorer) allergySafe(r *recipe.Recipe, allergies map[string]struct{}) float64 {
	if r.ContainsAllergen(allergies) {
		return 0
	}
	return 1
}

func (s *WeightedRuleScorer) dietaryMatch(r *recipe.Recipe, restrictions []customer.DietaryRestriction) float64 {
	if len(restrictions) == 0 {
		return 1
	}
	matched := 0
	for _, dr := range restrictions {
		if r.HasTag(string(dr)) {
			matched++
		}
	}
	return s.floor(float64(matched) / float64(len(restrictions)))
}

func (s *WeightedRuleScorer) preferenceMatch(r *recipe.Recipe, tokens []string) float64 {
	if len(tokens) == 0 {
		return 1
	}
	haystack := strings.ToLower(r.Name() + " " + strings.Join(r.Tags(), " "))
	for _, ing := range r.Ingredients() {
		haystack += " " + strings.ToLower(ing.Name)
	}
	hits := 0
	for _, t := range tokens {
		if strings.Contains(haystack, t) {
			hits++
		}
	}
	want := math.Min(3, float64(len(tokens)))
	return 0.6 + 0.4*math.Min(1, float64(hits)/want)
}

func (s *WeightedRuleScorer) nutritionBalance(r *recipe.Recipe) float64 {
	n := r.Nutrition()
	if n == nil || n.Calories <= 0 {
		return s.weights.Floor
	}
	p := mealplan.KcalPerGramProtein * n.Protein / n.Calories
	c := mealplan.KcalPerGramCarbohydrates * n.Carbohydrates / n.Calories
	f := mealplan.KcalPerGramFat * n.Fat / n.Calories
	dist := math.Abs(p-s.weights.TargetProteinRatio) +
		math.Abs(c-s.weights.TargetCarbRatio) +
		math.Abs(f-s.weights.TargetFatRatio)
	return s.floor(1 - dist/2)
}

func (s *WeightedRuleScorer) varietyBonus(id uuid.UUID, exclusions *mealplan.ExclusionSet) float64 {
	if exclusions.Contains(id) {
		return s.weights.RepeatPenalty
	}
	return 1
}

func (s *WeightedRuleScorer) calorieAlignment(r *recipe.Recipe, dailyGoal float64, mt mealplan.MealType) float64 {
	share, ok := s.weights.MealCalorieShare[mt]
	n := r.Nutrition()
	if dailyGoal <= 0 || !ok || n == nil {
		return 1
	}
	target := dailyGoal * share
	return s.floor(1 - math.Abs(n.Calories-target)/target)
}

func (s *WeightedRuleScorer) floor(v float64) float64 {
	if v < s.weights.Floor {
		return s.weights.Floor
	}
	if v > 1 {
		return 1
	}
	return v
}

func rationale(score float64, factors []factor) string {
	best, worst := factors[0], factors[0]
	for _, f := range factors[1:] {
		if f.value > best.value {
			best = f
		}
		if f.value < worst.value {
			worst = f
		}
	}
	return fmt.Sprintf("weighted score %.2f: strongest %s (%.2f), weakest %s (%.2f)",
		score, best.name, best.value, worst.name, worst.value)
}

func preferenceTokens(prefs string) []string {
	fields := strings.FieldsFunc(strings.ToLower(prefs), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	seen := make(map[string]struct{}, len(fields))
	var out []string
	for _, f := range fields {
		if len(f) < 4 {
			continue
		}
		if len(f) > 4 {
			f = strings.TrimSuffix(f, "s")
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
