// Package sqlite provides SQLite database setup and the demo catalog seed
package sqlite

import (
	"context"
	"fmt"

	"github.com/mealprep/recommender/internal/infrastructure/config"
	gormrepo "github.com/mealprep/recommender/internal/infrastructure/persistence/gorm"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupDatabase opens the SQLite database at cfg.Path and migrates the
// schema when cfg.AutoMigrate is set. An empty path opens an in-memory
// database.
func SetupDatabase(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dbPath := cfg.Path
	if dbPath == "" || dbPath == ":memory:" {
		dbPath = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormrepo.NewLogger(log, cfg.LogLevel, cfg.SlowQueryThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// SQLite serialises writers; one connection avoids "database is locked"
	sqlDB.SetMaxOpenConns(1)

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(gormrepo.AllModels()...); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	log.Info("SQLite database ready",
		zap.String("path", dbPath),
		zap.Bool("auto_migrate", cfg.AutoMigrate),
	)
	return db, nil
}

// SeedDemoCatalog inserts the demo recipes that are not yet present. It is
// safe to run on every start.
func SeedDemoCatalog(ctx context.Context, repo *gormrepo.RecipeRepository, log *zap.Logger) (int, error) {
	created := 0
	for _, r := range DemoCatalog() {
		ok, err := repo.CreateIfMissing(ctx, r)
		if err != nil {
			return created, fmt.Errorf("failed to seed demo recipe %q: %w", r.Name(), err)
		}
		if ok {
			created++
		}
	}

	log.Info("Demo catalog seeded", zap.Int("created", created))
	return created, nil
}
