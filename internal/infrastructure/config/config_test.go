package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, t.TempDir(), "app:\n  environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "mealprep-recommender", cfg.App.Name)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.True(t, cfg.AI.Enabled)
	assert.Equal(t, "ollama", cfg.AI.Provider)
	assert.Equal(t, 20*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "delegated", cfg.Recommendation.Scorer)
	assert.Equal(t, 3, cfg.Recommendation.HistoryWindowDays)
	assert.Equal(t, 1, cfg.Recommendation.CountPerSlot)
	assert.Equal(t, []string{"breakfast", "lunch", "dinner"}, cfg.Recommendation.MealTypes)
	assert.Equal(t, uint32(5), cfg.AI.CircuitBreaker.ConsecutiveFailures)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing", "config.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MEALPREP_AI_ENABLED", "false")
	t.Setenv("MEALPREP_RECOMMENDATION_SCORER", "weighted")

	cfg, err := Load(writeConfig(t, t.TempDir(), "app:\n  environment: test\n"))

	require.NoError(t, err)
	assert.False(t, cfg.AI.Enabled)
	assert.Equal(t, "weighted", cfg.Recommendation.Scorer)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"UnknownProvider", "ai:\n  provider: llamaverse\n"},
		{"UnknownScorer", "recommendation:\n  scorer: random\n"},
		{"MissingAPIKey", "ai:\n  provider: openai\n  model: gpt-4o-mini\n"},
		{"BadMealType", "recommendation:\n  meal_types: [brunch]\n"},
		{"CountTooHigh", "recommendation:\n  count_per_slot: 9\n"},
		{"IdleAboveOpen", "database:\n  max_open_conns: 2\n  max_idle_conns: 5\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, t.TempDir(), tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestWatcher_TogglesAIFlag(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "ai:\n  enabled: true\n")
	cfg, v, err := LoadWithViper(path)
	require.NoError(t, err)

	w := NewWatcher(v, cfg, zaptest.NewLogger(t))
	require.True(t, w.AIEnabled())

	writeConfig(t, filepath.Dir(path), "ai:\n  enabled: false\n")
	require.NoError(t, v.ReadInConfig())
	w.handle(fsnotify.Event{Name: path, Op: fsnotify.Write})
	assert.False(t, w.AIEnabled())

	// an invalid edit keeps the last good snapshot
	writeConfig(t, filepath.Dir(path), "ai:\n  enabled: true\n  provider: nope\n")
	require.NoError(t, v.ReadInConfig())
	w.handle(fsnotify.Event{Name: path, Op: fsnotify.Write})
	assert.False(t, w.AIEnabled())
}

func TestWatcher_StartWithoutFile(t *testing.T) {
	w := NewWatcher(nil, &Config{AI: AIConfig{Enabled: true}}, zaptest.NewLogger(t))

	w.Start()

	assert.True(t, w.Flags().AIEnabled)
}
