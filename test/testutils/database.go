// Package testutils provides common testing utilities and infrastructure setup
package testutils

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens an isolated in-memory sqlite database for one test
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Suppress logs in tests
	})
	require.NoError(t, err, "Failed to open sqlite database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the shared in-memory database alive
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// TestRedis provides a redis container with cleanup
type TestRedis struct {
	Container testcontainers.Container
	Addr      string
}

// SetupTestRedis starts a redis container using testcontainers
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()
	ctx := context.Background()
	port := nat.Port("6379/tcp")

	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{string(port)},
				WaitingFor: wait.ForAll(
					wait.ForLog("Ready to accept connections"),
					wait.ForListeningPort(port),
				).WithDeadline(60 * time.Second),
			},
			Started: true,
		})
	require.NoError(t, err, "Failed to start redis container")

	host, err := container.Host(ctx)
	require.NoError(t, err)

	mapped, err := container.MappedPort(ctx, port)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	return &TestRedis{
		Container: container,
		Addr:      fmt.Sprintf("%s:%s", host, mapped.Port()),
	}
}

// TestPostgres provides a postgres container with cleanup
type TestPostgres struct {
	Container testcontainers.Container
	Host      string
	Port      int
	Database  string
	Username  string
	Password  string
}

// SetupTestPostgres starts a postgres container using testcontainers
func SetupTestPostgres(t *testing.T) *TestPostgres {
	t.Helper()
	ctx := context.Background()
	port := nat.Port("5432/tcp")

	tp := &TestPostgres{Database: "mealprep_test", Username: "mealprep", Password: "mealprep"}

	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "postgres:16-alpine",
				ExposedPorts: []string{string(port)},
				Env: map[string]string{
					"POSTGRES_DB":       tp.Database,
					"POSTGRES_USER":     tp.Username,
					"POSTGRES_PASSWORD": tp.Password,
				},
				WaitingFor: wait.ForAll(
					wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
					wait.ForListeningPort(port),
				).WithDeadline(90 * time.Second),
				Tmpfs: map[string]string{
					"/var/lib/postgresql/data": "rw",
				},
			},
			Started: true,
		})
	require.NoError(t, err, "Failed to start postgres container")

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	tp.Container = container
	tp.Host, err = container.Host(ctx)
	require.NoError(t, err)

	mapped, err := container.MappedPort(ctx, port)
	require.NoError(t, err)
	tp.Port = mapped.Int()

	return tp
}
