// Package main generates a meal plan from the configured catalog and prints
// it as JSON. With -serve it keeps the ops endpoints running afterwards.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mealprep/recommender/internal/domain/customer"
	"github.com/mealprep/recommender/internal/domain/mealplan"
	"github.com/mealprep/recommender/internal/infrastructure/cache"
	"github.com/mealprep/recommender/internal/infrastructure/config"
	"github.com/mealprep/recommender/internal/infrastructure/container"
	"github.com/mealprep/recommender/internal/ports/inbound"
	"github.com/mealprep/recommender/internal/ports/outbound"
	apperrors "github.com/mealprep/recommender/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	exitCodeSuccess = 0
	exitCodeFailure = 1
	exitCodeUsage   = 2

	dateLayout = "2006-01-02"
)

// Options holds command-line configuration
type Options struct {
	ConfigPath   string
	CustomerPath string
	Start        string
	Days         int
	Meals        string
	Count        int
	Record       bool
	Serve        bool
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(exitCodeUsage)
	}
	os.Exit(run(opts))
}

func parseFlags(args []string, output io.Writer) (Options, error) {
	var opts Options

	fs := flag.NewFlagSet("mealplan", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to the config file (defaults to ./config.yaml when present)")
	fs.StringVar(&opts.CustomerPath, "customer", "", "Path to a customer JSON snapshot (defaults to a demo customer)")
	fs.StringVar(&opts.Start, "start", "", "First plan day as YYYY-MM-DD (defaults to today)")
	fs.IntVar(&opts.Days, "days", 7, "Number of plan days")
	fs.StringVar(&opts.Meals, "meals", "", "Comma-separated meal types (defaults to recommendation.meal_types)")
	fs.IntVar(&opts.Count, "count", 0, "Recommendations per slot (defaults to recommendation.count_per_slot)")
	fs.BoolVar(&opts.Record, "record", false, "Record the planned meals in the customer's history")
	fs.BoolVar(&opts.Serve, "serve", false, "Keep serving the ops endpoints until interrupted")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.Days < 1 {
		err := fmt.Errorf("-days must be at least 1")
		fmt.Fprintln(output, err)
		return opts, err
	}
	if opts.Start != "" {
		if _, err := time.Parse(dateLayout, opts.Start); err != nil {
			err = fmt.Errorf("-start must be YYYY-MM-DD: %w", err)
			fmt.Fprintln(output, err)
			return opts, err
		}
	}
	return opts, nil
}

// buildRequest maps the options onto a plan request. Catalog and AIEnabled
// are filled in by the caller.
func buildRequest(opts Options, c *customer.Context, defaultMeals []string, now time.Time) (inbound.PlanRequest, error) {
	start := mealplan.Day(now)
	if opts.Start != "" {
		parsed, err := time.Parse(dateLayout, opts.Start)
		if err != nil {
			return inbound.PlanRequest{}, err
		}
		start = parsed
	}

	names := defaultMeals
	if opts.Meals != "" {
		names = strings.Split(opts.Meals, ",")
	}
	mealTypes := make([]mealplan.MealType, 0, len(names))
	for _, name := range names {
		mt, err := mealplan.ParseMealType(name)
		if err != nil {
			return inbound.PlanRequest{}, err
		}
		mealTypes = append(mealTypes, mt)
	}

	return inbound.PlanRequest{
		Customer:  c,
		StartDate: start,
		EndDate:   start.AddDate(0, 0, opts.Days-1),
		MealTypes: mealTypes,
		CountHint: opts.Count,
	}, nil
}

func run(opts Options) int {
	var (
		cfg     *config.Config
		log     *zap.Logger
		svc     inbound.MealRecommendationService
		catalog *cache.CatalogService
		watcher *config.Watcher
		history outbound.MealHistoryRepository
	)

	fxOptions := []fx.Option{
		fx.NopLogger,
		container.Module(opts.ConfigPath),
		fx.Populate(&cfg, &log, &svc, &catalog, &watcher, &history),
	}
	if opts.Serve {
		fxOptions = append(fxOptions, container.ServeModule)
	}

	app := fx.New(fxOptions...)
	if err := app.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build application: %v\n", err)
		return exitCodeFailure
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start application: %v\n", err)
		return exitCodeFailure
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer stopCancel()
		if err := app.Stop(stopCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to stop application gracefully: %v\n", err)
		}
	}()

	code := exitCodeSuccess
	if err := generate(ctx, opts, cfg, svc, catalog, watcher, history, os.Stdout); err != nil {
		log.Error("Meal plan generation failed",
			zap.String("error_code", string(apperrors.GetCode(err))),
			zap.Error(err),
		)
		fmt.Fprintf(os.Stderr, "Meal plan generation failed: %v\n", err)
		code = exitCodeFailure
	}

	if opts.Serve {
		log.Info("Serving ops endpoints until interrupted")
		select {
		case <-ctx.Done():
		case <-app.Done():
		}
	}
	return code
}

func generate(
	ctx context.Context,
	opts Options,
	cfg *config.Config,
	svc inbound.MealRecommendationService,
	catalog *cache.CatalogService,
	flags *config.Watcher,
	history outbound.MealHistoryRepository,
	out io.Writer,
) error {
	c, err := loadCustomer(opts.CustomerPath)
	if err != nil {
		return err
	}

	req, err := buildRequest(opts, c, cfg.Recommendation.MealTypes, time.Now())
	if err != nil {
		return err
	}

	recipes, err := catalog.Load(ctx)
	if err != nil {
		return err
	}
	if len(recipes) == 0 {
		return errors.New("recipe catalog is empty; set database.seed_demo_catalog or load recipes first")
	}
	req.Catalog = recipes
	req.AIEnabled = flags.AIEnabled()

	result, err := svc.GenerateMealPlan(ctx, req)
	if err != nil {
		return err
	}

	if opts.Record {
		for _, rec := range result.Recommendations {
			slot := rec.Slot()
			if err := history.Record(ctx, c.ID(), customer.MealHistoryEntry{
				RecipeID: rec.RecipeID(),
				ServedOn: slot.Date,
				MealType: string(slot.MealType),
			}); err != nil {
				return fmt.Errorf("failed to record meal history: %w", err)
			}
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
