// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/mealprep/recommender/internal/application/recommendation"
	"github.com/mealprep/recommender/internal/domain/shared"
	"github.com/mealprep/recommender/internal/infrastructure/ai"
	"github.com/mealprep/recommender/internal/infrastructure/audit"
	"github.com/mealprep/recommender/internal/infrastructure/cache"
	"github.com/mealprep/recommender/internal/infrastructure/config"
	"github.com/mealprep/recommender/internal/infrastructure/http/ops"
	"github.com/mealprep/recommender/internal/infrastructure/monitoring"
	gormrepo "github.com/mealprep/recommender/internal/infrastructure/persistence/gorm"
	"github.com/mealprep/recommender/internal/infrastructure/persistence/memory"
	"github.com/mealprep/recommender/internal/infrastructure/persistence/postgres"
	rediscache "github.com/mealprep/recommender/internal/infrastructure/persistence/redis"
	"github.com/mealprep/recommender/internal/infrastructure/persistence/sqlite"
	"github.com/mealprep/recommender/internal/ports/inbound"
	"github.com/mealprep/recommender/internal/ports/outbound"
	"github.com/mealprep/recommender/pkg/healthcheck"
	"github.com/mealprep/recommender/pkg/logger"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConfigPath is the config file handed to config.LoadWithViper. Empty means
// the default search paths.
type ConfigPath string

// Module returns every module needed to generate plans. The ops server is
// added separately with ServeModule.
func Module(path string) fx.Option {
	return fx.Options(
		fx.Supply(ConfigPath(path)),

		ConfigModule,
		LoggerModule,
		MonitoringModule,
		DatabaseModule,
		CacheModule,
		RepositoryModule,
		AIModule,
		ServiceModule,

		LifecycleModule,
	)
}

// ConfigModule provides configuration and the runtime flag watcher
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Config, *viper.Viper, error) {
		return config.LoadWithViper(string(path))
	},
	func(v *viper.Viper, cfg *config.Config, log *zap.Logger) *config.Watcher {
		return config.NewWatcher(v, cfg, log)
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
			OutputPaths: cfg.App.LogOutput,
		})
	},
)

// MonitoringModule provides metrics, tracing and health checks
var MonitoringModule = fx.Provide(
	monitoring.NewRecorder,
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
		tp, err := monitoring.NewTracingProvider(context.Background(), monitoring.TracingConfig{
			ServiceName:    cfg.Monitoring.ServiceName,
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Environment,
			OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
			Insecure:       cfg.Monitoring.OTLPInsecure,
			SamplingRate:   cfg.Monitoring.SamplingRate,
			Enabled:        cfg.Monitoring.EnableTracing,
		}, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: tp.Shutdown})
		return tp, nil
	},
	func(cfg *config.Config, log *zap.Logger) *healthcheck.HealthCheck {
		return healthcheck.New(cfg.App.Version, log)
	},
)

// DatabaseModule provides the GORM connection for the configured driver
var DatabaseModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, health *healthcheck.HealthCheck, log *zap.Logger) (*gorm.DB, error) {
		var db *gorm.DB

		switch cfg.Database.Driver {
		case "postgres":
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			cm, err := postgres.NewConnectionManager(ctx, cfg.Database, log)
			if err != nil {
				return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
			}
			lc.Append(fx.Hook{OnStop: func(context.Context) error { return cm.Close() }})
			db = cm.GetDB()
		default:
			sqliteDB, err := sqlite.SetupDatabase(cfg.Database, log)
			if err != nil {
				return nil, fmt.Errorf("failed to setup SQLite database: %w", err)
			}
			lc.Append(fx.Hook{OnStop: func(context.Context) error {
				sqlDB, err := sqliteDB.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			}})
			db = sqliteDB
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		health.Register("database", healthcheck.NewDatabaseChecker(sqlDB))

		return db, nil
	},
)

// CacheModule provides the catalog snapshot cache. Redis backs it when
// enabled, otherwise an in-process store does.
var CacheModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, health *healthcheck.HealthCheck, log *zap.Logger) (outbound.CacheRepository, error) {
		if !cfg.Redis.Enabled {
			store := memory.NewCacheRepository(time.Minute)
			lc.Append(fx.Hook{OnStop: func(context.Context) error { return store.Close() }})
			log.Info("Using in-memory catalog cache")
			return store, nil
		}

		client, err := cache.NewRedisClient(context.Background(), cfg.Redis, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return client.Close() }})
		health.Register("redis", healthcheck.NewRedisChecker(client.Client()))

		return rediscache.NewCacheRepository(client.Client(), cfg.Redis.KeyPrefix, log), nil
	},
	func(repo outbound.RecipeCatalogRepository, store outbound.CacheRepository, cfg *config.Config, recorder *monitoring.Recorder, log *zap.Logger) *cache.CatalogService {
		return cache.NewCatalogService(repo, store, cfg.Recommendation.CatalogCacheTTL, recorder, log)
	},
)

// RepositoryModule provides repository implementations
var RepositoryModule = fx.Provide(
	gormrepo.NewRecipeRepository,
	func(r *gormrepo.RecipeRepository) outbound.RecipeCatalogRepository { return r },

	fx.Annotate(
		gormrepo.NewMealHistoryRepository,
		fx.As(new(outbound.MealHistoryRepository)),
	),
	fx.Annotate(
		gormrepo.NewAuditRepository,
		fx.As(new(outbound.AuditRepository)),
	),
)

// AIModule provides the resilient ranking provider
var AIModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, health *healthcheck.HealthCheck, recorder *monitoring.Recorder, log *zap.Logger) (*ai.Provider, error) {
		provider, err := ai.NewProvider(context.Background(), cfg.AI, health, recorder, log)
		if err != nil {
			return nil, fmt.Errorf("failed to build ranking provider: %w", err)
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return provider.Close() }})
		return provider, nil
	},
)

// ServiceModule provides the audit trail and the recommendation engine
var ServiceModule = fx.Provide(
	func(lc fx.Lifecycle, repo outbound.AuditRepository, log *zap.Logger) *audit.OperationAuditor {
		auditor := audit.NewOperationAuditor(repo, audit.DefaultConfig(), log)
		lc.Append(fx.Hook{OnStop: auditor.Close})
		return auditor
	},
	NewPlanEventDispatcher,
	func(
		cfg *config.Config,
		provider *ai.Provider,
		history outbound.MealHistoryRepository,
		auditor *audit.OperationAuditor,
		recorder *monitoring.Recorder,
		events *shared.Dispatcher,
		log *zap.Logger,
	) (*recommendation.Service, error) {
		scorer, err := recommendation.NewCandidateScorer(cfg.Recommendation.Scorer, provider, log)
		if err != nil {
			return nil, err
		}

		return recommendation.NewService(recommendation.Dependencies{
			Scorer:  scorer,
			History: history,
			Auditor: auditor,
			Metrics: recorder,
			Events:  events,
		}, recommendation.Options{
			DefaultCountHint:  cfg.Recommendation.CountPerSlot,
			MaxPlanDays:       cfg.Recommendation.MaxPlanDays,
			HistoryWindowDays: cfg.Recommendation.HistoryWindowDays,
			SlotTimeout:       cfg.Recommendation.SlotTimeout,
		}, log), nil
	},
	func(s *recommendation.Service) inbound.MealRecommendationService { return s },
)

// NewPlanEventDispatcher logs every plan event
func NewPlanEventDispatcher(log *zap.Logger) *shared.Dispatcher {
	eventLog := log.Named("plan-events")
	d := shared.NewDispatcher()
	d.Register("*", func(ctx context.Context, ev shared.DomainEvent) error {
		fields := append([]zap.Field{
			zap.String("event", ev.EventName()),
			zap.Time("occurred_at", ev.OccurredAt()),
		}, monitoring.TraceFields(ctx)...)
		eventLog.Info("Plan event", fields...)
		return nil
	})
	return d
}

// LifecycleModule seeds the demo catalog and starts the config watcher
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	recipes *gormrepo.RecipeRepository,
	watcher *config.Watcher,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting meal plan recommender",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.String("scorer", cfg.Recommendation.Scorer),
				zap.String("ai_provider", cfg.AI.Provider),
			)

			if cfg.Database.SeedDemoCatalog {
				if _, err := sqlite.SeedDemoCatalog(ctx, recipes, log); err != nil {
					return err
				}
			}

			watcher.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down meal plan recommender")
			_ = log.Sync()
			return nil
		},
	})
}

// ServeModule adds the ops HTTP server to Module
var ServeModule = fx.Options(
	fx.Provide(
		func(health *healthcheck.HealthCheck, recorder *monitoring.Recorder, catalog *cache.CatalogService, watcher *config.Watcher, cfg *config.Config, log *zap.Logger) *ops.Server {
			deps := ops.Dependencies{
				Health:  health,
				Catalog: catalog,
				Flags:   watcher,
			}
			if cfg.Monitoring.EnableMetrics {
				deps.Metrics = recorder.Handler()
			}
			return ops.NewServer(cfg.Server, ops.NewRouter(deps, log), log)
		},
	),
	fx.Invoke(RegisterOpsServer),
)

// RegisterOpsServer runs the ops server for the lifetime of the app
func RegisterOpsServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, server *ops.Server, cfg *config.Config, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := server.Start(); err != nil {
					log.Error("Ops server stopped unexpectedly", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}
