package recommendation

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/customer"
	"github.com/mealprep/recommender/internal/domain/mealplan"
	"github.com/mealprep/recommender/internal/domain/recipe"
	"github.com/mealprep/recommender/internal/domain/shared"
	"github.com/mealprep/recommender/internal/ports/inbound"
	"github.com/mealprep/recommender/internal/ports/outbound"
	apperrors "github.com/mealprep/recommender/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Options configures the service
type Options struct {
	DefaultCountHint  int
	MaxPlanDays       int
	HistoryWindowDays int
	SlotTimeout       time.Duration
}

// DefaultOptions returns the stock options
func DefaultOptions() Options {
	return Options{
		DefaultCountHint:  1,
		MaxPlanDays:       31,
		HistoryWindowDays: DefaultHistoryWindowDays,
		SlotTimeout:       30 * time.Second,
	}
}

// Dependencies are the collaborators of the service
type Dependencies struct {
	Scorer  CandidateScorer
	History outbound.MealHistoryRepository
	Auditor outbound.OperationAuditor
	Metrics MetricsRecorder
	// Events receives the events raised by completed plans; optional
	Events *shared.Dispatcher
}

// Service implements inbound.MealRecommendationService. It keeps no per-run
// state, so concurrent runs for different customers are safe.
type Service struct {
	allergens   *AllergenFilter
	nutrition   *NutritionFilter
	history     *RecentHistoryTracker
	recommender *CandidateRecommender
	assembler   *PlanAssembler
	auditor     *safeAuditor
	metrics     MetricsRecorder
	events      *shared.Dispatcher
	validate    *validator.Validate
	opts        Options
	logger      *zap.Logger
}

var _ inbound.MealRecommendationService = (*Service)(nil)

// NewService wires the engine components
func NewService(deps Dependencies, opts Options, logger *zap.Logger) *Service {
	namedLogger := logger.Named("recommendation-service")
	defaults := DefaultOptions()
	if opts.DefaultCountHint <= 0 {
		opts.DefaultCountHint = defaults.DefaultCountHint
	}
	if opts.MaxPlanDays <= 0 {
		opts.MaxPlanDays = defaults.MaxPlanDays
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NopMetrics{}
	}

	history := NewRecentHistoryTracker(deps.History, opts.HistoryWindowDays, logger)
	recommender := NewCandidateRecommender(deps.Scorer, opts.SlotTimeout, metrics, logger)

	return &Service{
		allergens:   NewAllergenFilter(logger),
		nutrition:   NewNutritionFilter(logger),
		history:     history,
		recommender: recommender,
		assembler:   NewPlanAssembler(recommender, history, NewNutritionalAggregator(), logger),
		auditor:     newSafeAuditor(deps.Auditor, namedLogger),
		metrics:     metrics,
		events:      deps.Events,
		validate:    validator.New(),
		opts:        opts,
		logger:      namedLogger,
	}
}

// GenerateMealPlan builds a plan for every (date, meal type) slot of the
// inclusive range. Fatal conditions are returned as typed errors; no
// partial or default plan is ever returned as a success.
func (s *Service) GenerateMealPlan(ctx context.Context, req inbound.PlanRequest) (*mealplan.PlanResult, error) {
	ctx, span := tracer.Start(ctx, "recommendation.GenerateMealPlan")
	defer span.End()

	op := outbound.Operation{
		ID:   uuid.New(),
		Type: outbound.OperationGenerateMealPlan,
	}
	if req.Customer != nil {
		op.CustomerID = req.Customer.ID()
	}
	op.Metadata = map[string]interface{}{
		"start_date": req.StartDate.Format(mealplan.DateLayout),
		"end_date":   req.EndDate.Format(mealplan.DateLayout),
		"ai_enabled": req.AIEnabled,
		"scorer":     s.recommender.ScorerName(),
	}
	span.SetAttributes(
		attribute.String("operation_id", op.ID.String()),
		attribute.String("customer_id", op.CustomerID.String()),
	)

	started := time.Now()
	s.auditor.start(ctx, op)

	result, err := s.generateMealPlan(ctx, op.ID, req)
	elapsed := time.Since(started)
	if err != nil {
		s.auditor.failure(ctx, op, elapsed, err)
		s.metrics.RunCompleted(string(op.Type), outcome(err), elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("Meal plan generation failed",
			zap.String("operation_id", op.ID.String()),
			zap.String("customer_id", op.CustomerID.String()),
			zap.String("code", string(apperrors.GetCode(err))),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		return nil, err
	}

	s.auditor.success(ctx, op, elapsed)
	s.metrics.RunCompleted(string(op.Type), "success", elapsed)
	span.SetAttributes(attribute.Int("recommendations", len(result.Recommendations)))

	if s.events != nil {
		if err := s.events.Dispatch(ctx, result.Events()...); err != nil {
			s.logger.Warn("Plan event handler failed",
				zap.String("operation_id", op.ID.String()),
				zap.Error(err))
		}
	}
	return result, nil
}

func (s *Service) generateMealPlan(ctx context.Context, planID uuid.UUID, req inbound.PlanRequest) (*mealplan.PlanResult, error) {
	if err := s.validatePlanRequest(req); err != nil {
		return nil, err
	}

	safe, excluded, err := s.candidatePool(req.Customer, req.Catalog)
	if err != nil {
		return nil, err
	}

	countHint := req.CountHint
	if countHint <= 0 {
		countHint = s.opts.DefaultCountHint
	}

	result, err := s.assembler.Assemble(ctx, AssembleInput{
		PlanID:         planID,
		Customer:       req.Customer,
		SafeCandidates: safe,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		MealTypes:      req.MealTypes,
		CountHint:      countHint,
		AIEnabled:      req.AIEnabled,
	})
	if err != nil {
		return nil, err
	}

	result.Warnings = append(req.Customer.Warnings(), result.Warnings...)
	result.Excluded = excluded
	return result, nil
}

// GenerateSlotRecommendation resolves a single slot. The given exclusions
// are combined with the customer's history window for that date.
func (s *Service) GenerateSlotRecommendation(ctx context.Context, req inbound.SlotRequest) ([]*mealplan.MealRecommendation, error) {
	ctx, span := tracer.Start(ctx, "recommendation.GenerateSlotRecommendation")
	defer span.End()

	op := outbound.Operation{
		ID:   uuid.New(),
		Type: outbound.OperationGenerateSlotRecommendation,
		Metadata: map[string]interface{}{
			"date":       req.Date.Format(mealplan.DateLayout),
			"meal_type":  string(req.MealType),
			"ai_enabled": req.AIEnabled,
			"scorer":     s.recommender.ScorerName(),
		},
	}
	if req.Customer != nil {
		op.CustomerID = req.Customer.ID()
	}

	started := time.Now()
	s.auditor.start(ctx, op)

	recs, err := s.generateSlot(ctx, req)
	elapsed := time.Since(started)
	if err != nil {
		s.auditor.failure(ctx, op, elapsed, err)
		s.metrics.RunCompleted(string(op.Type), outcome(err), elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.auditor.success(ctx, op, elapsed)
	s.metrics.RunCompleted(string(op.Type), "success", elapsed)
	return recs, nil
}

func (s *Service) generateSlot(ctx context.Context, req inbound.SlotRequest) ([]*mealplan.MealRecommendation, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.FromValidator(err)
	}

	safe, _, err := s.candidatePool(req.Customer, req.Catalog)
	if err != nil {
		return nil, err
	}

	if !req.Customer.IsComplete() {
		s.logger.Info("Recommending with an incomplete profile",
			zap.String("customer_id", req.Customer.ID().String()),
			zap.Strings("warnings", req.Customer.Warnings()))
	}

	from, to := s.history.WindowFor(req.Date)
	exclusions, err := s.history.RecentRecipeIDs(ctx, req.Customer, from, to)
	if err != nil {
		return nil, err
	}
	exclusions.Add(req.Exclusions...)

	countHint := req.CountHint
	if countHint <= 0 {
		countHint = s.opts.DefaultCountHint
	}

	out, err := s.recommender.Recommend(ctx, RecommendInput{
		Customer:       req.Customer,
		SafeCandidates: safe,
		Exclusions:     exclusions,
		SameDay:        mealplan.NewExclusionSet(),
		Slot:           mealplan.NewMealSlot(req.Date, req.MealType),
		CountHint:      countHint,
		AIEnabled:      req.AIEnabled,
	})
	if err != nil {
		return nil, err
	}
	return out.Recommendations, nil
}

// candidatePool applies the allergen filter, then drops recipes with
// incomplete nutrition. Allergen filtering always runs first so an
// all-unsafe catalog is reported as a safety violation.
func (s *Service) candidatePool(c *customer.Context, catalog []*recipe.Recipe) ([]*recipe.Recipe, []mealplan.ExcludedRecipe, error) {
	safe, allergenExcluded, err := s.allergens.partition(catalog, c.AllergyNames())
	s.metrics.CandidatesExcluded(mealplan.ReasonAllergen, len(allergenExcluded))
	if err != nil {
		return nil, nil, err
	}

	usable, nutritionExcluded := s.nutrition.FilterComplete(safe)
	s.metrics.CandidatesExcluded(mealplan.ReasonMissingNutrition, len(nutritionExcluded))
	if len(usable) == 0 {
		return nil, nil, noUsableCandidates(fmt.Sprintf(
			"all %d safe recipes lack complete nutrition data", len(safe)))
	}

	return usable, append(allergenExcluded, nutritionExcluded...), nil
}

func (s *Service) validatePlanRequest(req inbound.PlanRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return apperrors.FromValidator(err)
	}
	start, end := mealplan.Day(req.StartDate), mealplan.Day(req.EndDate)
	if end.Before(start) {
		return apperrors.NewValidationError("end date is before start date").
			WithCause(mealplan.ErrInvalidRequest)
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > s.opts.MaxPlanDays {
		return apperrors.NewValidationError(fmt.Sprintf("plan spans %d days, at most %d allowed", days, s.opts.MaxPlanDays)).
			WithCause(mealplan.ErrInvalidRequest)
	}
	return nil
}

func outcome(err error) string {
	return string(apperrors.GetCode(err))
}
