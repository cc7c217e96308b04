package recommendation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/customer"
	"github.com/mealprep/recommender/internal/domain/mealplan"
	"github.com/mealprep/recommender/internal/domain/recipe"
	apperrors "github.com/mealprep/recommender/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Exclusion tiers tried in order when choosing which safe recipes to offer
// a scorer for a slot.
const (
	// TierFresh offers safe recipes outside history and earlier picks
	TierFresh = 1
	// TierSameDay offers safe recipes not already picked on the slot's day
	TierSameDay = 2
	// TierAnySafe offers every safe recipe
	TierAnySafe = 3
)

// RecommendInput carries one slot's recommendation call
type RecommendInput struct {
	Customer       *customer.Context
	SafeCandidates []*recipe.Recipe
	// Exclusions holds history plus every recipe picked earlier in the run
	Exclusions *mealplan.ExclusionSet
	// SameDay holds the recipes already picked for the slot's calendar day
	SameDay   *mealplan.ExclusionSet
	Slot      mealplan.MealSlot
	CountHint int
	AIEnabled bool
}

// SlotOutcome is the result of a resolved slot
type SlotOutcome struct {
	Recommendations []*mealplan.MealRecommendation
	Tier            int
	Dropped         int
}

// CandidateRecommender is the boundary to the ranking source. It never
// trusts the scorer's output: every returned id is checked against the
// candidates it was offered.
type CandidateRecommender struct {
	scorer      CandidateScorer
	slotTimeout time.Duration
	metrics     MetricsRecorder
	logger      *zap.Logger
}

// NewCandidateRecommender creates a recommender around scorer. A zero
// slotTimeout leaves calls bounded only by ctx.
func NewCandidateRecommender(scorer CandidateScorer, slotTimeout time.Duration, metrics MetricsRecorder, logger *zap.Logger) *CandidateRecommender {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &CandidateRecommender{
		scorer:      scorer,
		slotTimeout: slotTimeout,
		metrics:     metrics,
		logger:      logger.Named("candidate-recommender"),
	}
}

// ScorerName returns the active scorer's name
func (r *CandidateRecommender) ScorerName() string {
	return r.scorer.Name()
}

// CheckAvailable reports whether the scorer may be used
func (r *CandidateRecommender) CheckAvailable(ctx context.Context, aiEnabled bool) error {
	return r.scorer.Available(ctx, aiEnabled)
}

// Recommend resolves one slot. It fails when the scorer is unavailable,
// errors, times out, or returns nothing that survives validation.
func (r *CandidateRecommender) Recommend(ctx context.Context, in RecommendInput) (*SlotOutcome, error) {
	ctx, span := tracer.Start(ctx, "recommendation.slot")
	defer span.End()
	span.SetAttributes(
		attribute.String("slot", in.Slot.Key()),
		attribute.String("scorer", r.scorer.Name()),
	)

	out, err := r.recommend(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("tier", out.Tier), attribute.Int("dropped", out.Dropped))
	return out, nil
}

func (r *CandidateRecommender) recommend(ctx context.Context, in RecommendInput) (*SlotOutcome, error) {
	if len(in.SafeCandidates) == 0 {
		return nil, apperrors.NewSafetyViolationError(in.Customer.AllergyNames(), mealplan.ErrNoSafeRecipes)
	}
	if err := r.scorer.Available(ctx, in.AIEnabled); err != nil {
		return nil, err
	}

	countHint := in.CountHint
	if countHint <= 0 {
		countHint = 1
	}

	offered, tier := offerCandidates(in.SafeCandidates, in.Exclusions, in.SameDay)
	if tier > TierFresh {
		r.logger.Warn("Exclusion set relaxed for slot",
			zap.String("slot", in.Slot.Key()),
			zap.Int("tier", tier),
			zap.Int("safe_candidates", len(in.SafeCandidates)),
			zap.Int("exclusions", in.Exclusions.Len()),
		)
	}

	callCtx := ctx
	if r.slotTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.slotTimeout)
		defer cancel()
	}

	items, err := r.scorer.Score(callCtx, ScoreRequest{
		Customer:   in.Customer,
		Candidates: offered,
		Exclusions: in.Exclusions,
		Slot:       in.Slot,
		CountHint:  countHint,
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, collaboratorUnavailable(r.scorer.Name(),
				fmt.Sprintf("ranking timed out after %s", r.slotTimeout),
				apperrors.NewTimeoutError("rank slot "+in.Slot.Key(), err))
		}
		return nil, err
	}

	byID := make(map[uuid.UUID]*recipe.Recipe, len(offered))
	for _, c := range offered {
		byID[c.ID()] = c
	}

	seen := make(map[uuid.UUID]struct{}, len(items))
	candidates := make([]mealplan.RecommendationCandidate, 0, len(items))
	dropped := 0
	for _, item := range items {
		rec, ok := byID[item.RecipeID]
		if !ok {
			dropped++
			r.logger.Warn("Dropped ranked recipe outside the offered candidates",
				zap.String("recipe_id", item.RecipeID.String()),
				zap.String("slot", in.Slot.Key()),
				zap.String("scorer", r.scorer.Name()),
			)
			continue
		}
		if _, dup := seen[item.RecipeID]; dup {
			continue
		}
		seen[item.RecipeID] = struct{}{}
		candidates = append(candidates, mealplan.RecommendationCandidate{
			Recipe:     rec,
			Confidence: clampConfidence(item.Confidence),
			Rationale:  item.Rationale,
		})
	}

	if len(candidates) == 0 {
		return nil, noUsableCandidates(fmt.Sprintf(
			"%s returned %d items for %s, none usable after safety validation",
			r.scorer.Name(), len(items), in.Slot.Key()))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if len(candidates) > countHint {
		candidates = candidates[:countHint]
	}

	recs := make([]*mealplan.MealRecommendation, 0, len(candidates))
	for _, c := range candidates {
		recs = append(recs, mealplan.NewMealRecommendation(c, in.Slot))
	}

	r.metrics.SlotResolved(r.scorer.Name(), tier)
	if dropped > 0 {
		r.metrics.CandidatesExcluded("untrusted_ranking", dropped)
	}

	return &SlotOutcome{Recommendations: recs, Tier: tier, Dropped: dropped}, nil
}

// offerCandidates applies the exclusion tiers. Safety is never relaxed:
// every tier is a subset of safe.
func offerCandidates(safe []*recipe.Recipe, exclusions, sameDay *mealplan.ExclusionSet) ([]*recipe.Recipe, int) {
	if fresh := without(safe, exclusions); len(fresh) > 0 {
		return fresh, TierFresh
	}
	if notToday := without(safe, sameDay); len(notToday) > 0 {
		return notToday, TierSameDay
	}
	return safe, TierAnySafe
}

func without(recipes []*recipe.Recipe, excl *mealplan.ExclusionSet) []*recipe.Recipe {
	if excl.Len() == 0 {
		return recipes
	}
	out := make([]*recipe.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if !excl.Contains(r.ID()) {
			out = append(out, r)
		}
	}
	return out
}

func clampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c) || c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
