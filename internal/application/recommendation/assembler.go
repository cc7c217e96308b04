package recommendation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/customer"
	"github.com/mealprep/recommender/internal/domain/mealplan"
	"github.com/mealprep/recommender/internal/domain/recipe"
	"go.uber.org/zap"
)

// AssembleInput carries a plan run over an already-safe candidate set
type AssembleInput struct {
	PlanID         uuid.UUID
	Customer       *customer.Context
	SafeCandidates []*recipe.Recipe
	StartDate      time.Time
	EndDate        time.Time
	MealTypes      []mealplan.MealType
	CountHint      int
	AIEnabled      bool
}

// PlanAssembler drives the per-slot loop of a plan run. Slots are processed
// strictly in order because every slot's exclusions depend on the picks of
// the slots before it.
type PlanAssembler struct {
	recommender *CandidateRecommender
	history     *RecentHistoryTracker
	aggregator  *NutritionalAggregator
	logger      *zap.Logger
	now         func() time.Time
}

// NewPlanAssembler creates an assembler
func NewPlanAssembler(recommender *CandidateRecommender, history *RecentHistoryTracker, aggregator *NutritionalAggregator, logger *zap.Logger) *PlanAssembler {
	return &PlanAssembler{
		recommender: recommender,
		history:     history,
		aggregator:  aggregator,
		logger:      logger.Named("plan-assembler"),
		now:         time.Now,
	}
}

// planRun is the private state of one assembly
type planRun struct {
	state      mealplan.PlanState
	exclusions *mealplan.ExclusionSet
	sameDay    *mealplan.ExclusionSet
	day        time.Time
	recs       []*mealplan.MealRecommendation
	warnings   []string
	relaxed    []mealplan.ExclusionRelaxedEvent
}

func (r *planRun) transition(next mealplan.PlanState) error {
	if !r.state.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", mealplan.ErrInvalidTransition, r.state, next)
	}
	r.state = next
	return nil
}

// fail moves the run to StateFailed and builds the error returned to the
// caller. Accumulated picks are attached but the run is not a success.
func (r *planRun) fail(slot *mealplan.MealSlot, err error) error {
	failedIn := r.state
	_ = r.transition(mealplan.StateFailed)
	return &mealplan.AssemblyError{
		State:   failedIn,
		Slot:    slot,
		Partial: append([]*mealplan.MealRecommendation(nil), r.recs...),
		Err:     err,
	}
}

// Assemble runs NotStarted -> PerSlot... -> Aggregating -> Done. Any slot
// failure ends the run in Failed.
func (a *PlanAssembler) Assemble(ctx context.Context, in AssembleInput) (*mealplan.PlanResult, error) {
	run := &planRun{state: mealplan.StateNotStarted}
	slots := mealplan.Slots(in.StartDate, in.EndDate, in.MealTypes)
	if err := run.transition(mealplan.StatePerSlot); err != nil {
		return nil, err
	}

	if err := a.recommender.CheckAvailable(ctx, in.AIEnabled); err != nil {
		a.logger.Warn("Ranking source unavailable, aborting plan",
			zap.String("customer_id", in.Customer.ID().String()),
			zap.Error(err))
		return nil, run.fail(nil, err)
	}

	from, to := a.history.PlanWindow(in.StartDate, in.EndDate)
	seed, err := a.history.RecentRecipeIDs(ctx, in.Customer, from, to)
	if err != nil {
		return nil, run.fail(nil, err)
	}
	run.exclusions = seed
	run.sameDay = mealplan.NewExclusionSet()

	a.logger.Info("Plan assembly started",
		zap.String("plan_id", in.PlanID.String()),
		zap.String("customer_id", in.Customer.ID().String()),
		zap.Int("slots", len(slots)),
		zap.Int("safe_candidates", len(in.SafeCandidates)),
		zap.Int("history_exclusions", seed.Len()),
	)

	for i := range slots {
		slot := slots[i]
		if err := run.transition(mealplan.StatePerSlot); err != nil {
			return nil, run.fail(&slot, err)
		}
		if err := ctx.Err(); err != nil {
			return nil, run.fail(&slot, err)
		}
		if !slot.Date.Equal(run.day) {
			run.day = slot.Date
			run.sameDay = mealplan.NewExclusionSet()
		}

		out, err := a.recommender.Recommend(ctx, RecommendInput{
			Customer:       in.Customer,
			SafeCandidates: in.SafeCandidates,
			Exclusions:     run.exclusions,
			SameDay:        run.sameDay,
			Slot:           slot,
			CountHint:      in.CountHint,
			AIEnabled:      in.AIEnabled,
		})
		if err != nil {
			a.logger.Warn("Slot resolution failed, aborting plan",
				zap.String("plan_id", in.PlanID.String()),
				zap.String("slot", slot.Key()),
				zap.Int("resolved", len(run.recs)),
				zap.Error(err))
			return nil, run.fail(&slot, err)
		}

		for _, rec := range out.Recommendations {
			run.recs = append(run.recs, rec)
			run.exclusions.Add(rec.RecipeID())
			run.sameDay.Add(rec.RecipeID())
		}
		if out.Tier > TierFresh {
			run.warnings = append(run.warnings, relaxationWarning(slot, out.Tier))
			run.relaxed = append(run.relaxed, mealplan.ExclusionRelaxedEvent{
				PlanID: in.PlanID, Slot: slot, Tier: out.Tier, At: a.now(),
			})
		}
	}

	if err := run.transition(mealplan.StateAggregating); err != nil {
		return nil, run.fail(nil, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, run.fail(nil, err)
	}
	summary := a.aggregator.Aggregate(run.recs)

	if err := run.transition(mealplan.StateDone); err != nil {
		return nil, run.fail(nil, err)
	}

	now := a.now()
	result := &mealplan.PlanResult{
		ID:              in.PlanID,
		CustomerID:      in.Customer.ID(),
		StartDate:       mealplan.Day(in.StartDate),
		EndDate:         mealplan.Day(in.EndDate),
		MealTypes:       mealplan.SortMealTypes(in.MealTypes),
		State:           run.state,
		Recommendations: run.recs,
		Summary:         summary,
		Warnings:        run.warnings,
		Scorer:          a.recommender.ScorerName(),
		GeneratedAt:     now,
	}
	for _, ev := range run.relaxed {
		result.AddEvent(ev)
	}
	result.AddEvent(mealplan.PlanAssembledEvent{
		PlanID:          in.PlanID,
		CustomerID:      in.Customer.ID(),
		Recommendations: len(run.recs),
		At:              now,
	})

	a.logger.Info("Plan assembly finished",
		zap.String("plan_id", in.PlanID.String()),
		zap.Int("recommendations", len(run.recs)),
		zap.Float64("total_calories", summary.Calories),
	)
	return result, nil
}

func relaxationWarning(slot mealplan.MealSlot, tier int) string {
	switch tier {
	case TierSameDay:
		return fmt.Sprintf("%s: no unused safe recipe left, repeating a recipe from history or an earlier day", slot.Key())
	default:
		return fmt.Sprintf("%s: every safe recipe was already used today, repeating one", slot.Key())
	}
}
