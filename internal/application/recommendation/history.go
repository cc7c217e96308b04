package recommendation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/customer"
	"github.com/mealprep/recommender/internal/domain/mealplan"
	"github.com/mealprep/recommender/internal/ports/outbound"
	apperrors "github.com/mealprep/recommender/pkg/errors"
	"go.uber.org/zap"
)

// DefaultHistoryWindowDays is the trailing window used to suppress repeats
const DefaultHistoryWindowDays = 3

// RecentHistoryTracker answers which recipes a customer was recently served
type RecentHistoryTracker struct {
	repo       outbound.MealHistoryRepository
	windowDays int
	logger     *zap.Logger
}

// NewRecentHistoryTracker creates a tracker. A nil repository limits the
// tracker to the history carried in the customer snapshot.
func NewRecentHistoryTracker(repo outbound.MealHistoryRepository, windowDays int, logger *zap.Logger) *RecentHistoryTracker {
	if windowDays <= 0 {
		windowDays = DefaultHistoryWindowDays
	}
	return &RecentHistoryTracker{
		repo:       repo,
		windowDays: windowDays,
		logger:     logger.Named("history-tracker"),
	}
}

// WindowFor returns [target - windowDays, target - 1 day]. The target day
// itself is excluded so a same-day repeat across meal types is allowed.
func (t *RecentHistoryTracker) WindowFor(target time.Time) (time.Time, time.Time) {
	day := mealplan.Day(target)
	return day.AddDate(0, 0, -t.windowDays), day.AddDate(0, 0, -1)
}

// PlanWindow covers every slot's window of an inclusive plan range
func (t *RecentHistoryTracker) PlanWindow(start, end time.Time) (time.Time, time.Time) {
	from, _ := t.WindowFor(start)
	_, to := t.WindowFor(end)
	return from, to
}

// RecentRecipeIDs returns the recipes served to c within [from, to]. Both
// persisted history and the history carried in the snapshot are consulted.
func (t *RecentHistoryTracker) RecentRecipeIDs(ctx context.Context, c *customer.Context, from, to time.Time) (*mealplan.ExclusionSet, error) {
	from, to = mealplan.Day(from), mealplan.Day(to)
	set := mealplan.NewExclusionSet()

	for _, h := range c.History() {
		served := mealplan.Day(h.ServedOn)
		if !served.Before(from) && !served.After(to) {
			set.Add(h.RecipeID)
		}
	}

	if t.repo != nil {
		ids, err := t.repo.RecentRecipeIDs(ctx, c.ID(), from, to)
		if err != nil {
			return nil, apperrors.NewDatabaseError("load recent meal history", err).
				WithMetadata("customer_id", c.ID().String())
		}
		set.Add(ids...)
	}

	t.logger.Debug("Recent history loaded",
		zap.String("customer_id", c.ID().String()),
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("recipes", set.Len()),
	)
	return set, nil
}

// Record stores a served recipe. Without a repository it is a no-op.
func (t *RecentHistoryTracker) Record(ctx context.Context, customerID uuid.UUID, entry customer.MealHistoryEntry) error {
	if t.repo == nil {
		return nil
	}
	return t.repo.Record(ctx, customerID, entry)
}
