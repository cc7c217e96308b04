// Package postgres provides PostgreSQL database connection and management
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mealprep/recommender/internal/infrastructure/config"
	gormrepo "github.com/mealprep/recommender/internal/infrastructure/persistence/gorm"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

// ConnectionManager owns the primary connection and optional read replicas.
// Catalog and history reads are routed to replicas by dbresolver.
type ConnectionManager struct {
	cfg     config.DatabaseConfig
	logger  *zap.Logger
	db      *gorm.DB
	writeDB *sql.DB
}

// NewConnectionManager connects to the primary, configures the pool and
// registers read replicas. Replica failures are logged, not fatal.
func NewConnectionManager(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*ConnectionManager, error) {
	cm := &ConnectionManager{
		cfg:    cfg,
		logger: log.Named("postgres"),
	}

	if err := cm.initializePrimaryConnection(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize primary connection: %w", err)
	}

	if err := cm.initializeReadReplicas(); err != nil {
		cm.logger.Warn("Failed to initialize read replicas", zap.Error(err))
	}

	if cfg.AutoMigrate {
		if err := cm.db.WithContext(ctx).AutoMigrate(gormrepo.AllModels()...); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	cm.logger.Info("Database connection manager initialized",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
		zap.Int("replicas", len(cfg.Replicas)),
	)

	return cm, nil
}

func (cm *ConnectionManager) initializePrimaryConnection(ctx context.Context) error {
	db, err := gorm.Open(postgres.Open(DSN(cm.cfg, cm.cfg.Host)), &gorm.Config{
		Logger:                 gormrepo.NewLogger(cm.logger, cm.cfg.LogLevel, cm.cfg.SlowQueryThreshold),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cm.cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cm.cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cm.cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cm.cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	cm.db = db
	cm.writeDB = sqlDB
	return nil
}

func (cm *ConnectionManager) initializeReadReplicas() error {
	if len(cm.cfg.Replicas) == 0 {
		return nil
	}

	replicas := make([]gorm.Dialector, len(cm.cfg.Replicas))
	for i, host := range cm.cfg.Replicas {
		replicas[i] = postgres.Open(DSN(cm.cfg, host))
	}

	err := cm.db.Use(dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   dbresolver.RandomPolicy{},
	}).
		SetMaxOpenConns(cm.cfg.MaxOpenConns).
		SetMaxIdleConns(cm.cfg.MaxIdleConns).
		SetConnMaxLifetime(cm.cfg.ConnMaxLifetime))
	if err != nil {
		return fmt.Errorf("failed to register read replicas: %w", err)
	}

	cm.logger.Info("Read replicas configured", zap.Int("replica_count", len(replicas)))
	return nil
}

// DSN builds a libpq connection string for host using cfg's credentials
func DSN(cfg config.DatabaseConfig, host string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)
}

// GetDB returns the main database connection
func (cm *ConnectionManager) GetDB() *gorm.DB {
	return cm.db
}

// SQLDB returns the primary pool, used by the readiness check
func (cm *ConnectionManager) SQLDB() *sql.DB {
	return cm.writeDB
}

// Close closes the primary pool. Replica pools are owned by dbresolver.
func (cm *ConnectionManager) Close() error {
	if cm.writeDB == nil {
		return nil
	}
	if err := cm.writeDB.Close(); err != nil {
		cm.logger.Error("Failed to close primary database", zap.Error(err))
		return err
	}
	return nil
}
