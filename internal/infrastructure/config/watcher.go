package config

import (
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// RuntimeFlags are the settings that may change without a restart
type RuntimeFlags struct {
	AIEnabled bool
}

// Watcher keeps the runtime flags in sync with the config file. Readers
// take a snapshot per request; a bad edit keeps the previous snapshot.
type Watcher struct {
	v       *viper.Viper
	flags   atomic.Pointer[RuntimeFlags]
	logger  *zap.Logger
	started atomic.Bool
}

// NewWatcher seeds the snapshot from the loaded config
func NewWatcher(v *viper.Viper, initial *Config, logger *zap.Logger) *Watcher {
	w := &Watcher{v: v, logger: logger.Named("config-watcher")}
	w.flags.Store(&RuntimeFlags{AIEnabled: initial.AI.Enabled})
	return w
}

// Flags returns the current snapshot
func (w *Watcher) Flags() RuntimeFlags {
	return *w.flags.Load()
}

// AIEnabled reports the current value of ai.enabled
func (w *Watcher) AIEnabled() bool {
	return w.Flags().AIEnabled
}

// Start begins watching the config file. It is a no-op without a file.
func (w *Watcher) Start() {
	if w.v == nil || w.v.ConfigFileUsed() == "" {
		w.logger.Debug("No config file in use, hot reload disabled")
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	w.v.OnConfigChange(w.handle)
	w.v.WatchConfig()
	w.logger.Info("Watching config file", zap.String("file", w.v.ConfigFileUsed()))
}

func (w *Watcher) handle(e fsnotify.Event) {
	cfg, err := decode(w.v)
	if err != nil {
		w.logger.Warn("Ignoring invalid config change",
			zap.String("file", e.Name),
			zap.Error(err))
		return
	}

	next := &RuntimeFlags{AIEnabled: cfg.AI.Enabled}
	prev := w.flags.Swap(next)
	if prev.AIEnabled != next.AIEnabled {
		w.logger.Info("AI recommendations toggled",
			zap.Bool("enabled", next.AIEnabled),
			zap.String("op", e.Op.String()))
	}
}
