package gorm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/customer"
	"github.com/mealprep/recommender/internal/ports/outbound"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MealHistoryRepository implements the meal history repository using GORM
type MealHistoryRepository struct {
	db *gorm.DB
}

var _ outbound.MealHistoryRepository = (*MealHistoryRepository)(nil)

// NewMealHistoryRepository creates a new meal history repository
func NewMealHistoryRepository(db *gorm.DB) *MealHistoryRepository {
	return &MealHistoryRepository{db: db}
}

// RecentRecipeIDs returns the distinct recipe ids served to customerID on
// any calendar day in [from, to], in one query.
func (r *MealHistoryRepository) RecentRecipeIDs(ctx context.Context, customerID uuid.UUID, from, to time.Time) ([]uuid.UUID, error) {
	start := calendarDay(from)
	end := calendarDay(to).AddDate(0, 0, 1)
	if !start.Before(end) {
		return []uuid.UUID{}, nil
	}

	ids := []uuid.UUID{}
	result := r.db.WithContext(ctx).
		Model(&MealHistoryModel{}).
		Distinct("recipe_id").
		Where("customer_id = ? AND served_on >= ? AND served_on < ?", customerID, start, end).
		Order("recipe_id").
		Pluck("recipe_id", &ids)
	if result.Error != nil {
		return nil, fmt.Errorf("query meal history: %w", result.Error)
	}

	return ids, nil
}

// Record stores a served recipe. Recording the same recipe for the same
// customer, day and meal type twice is a no-op.
func (r *MealHistoryRepository) Record(ctx context.Context, customerID uuid.UUID, entry customer.MealHistoryEntry) error {
	model := HistoryToModel(customerID, entry)

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model)
	if result.Error != nil {
		return fmt.Errorf("record meal history: %w", result.Error)
	}
	return nil
}
