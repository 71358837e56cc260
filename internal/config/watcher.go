package config

import (
	"context"
	"os"
	"sync"
	"time"

	"smsview/internal/models"

	"github.com/sirupsen/logrus"
)

const defaultWatchInterval = 5 * time.Second

// ConfigWatcher polls the configuration file and reloads it when it changes.
// Only settings that can change at runtime (log level, upload limit) take
// effect; the rest is reported as requiring a restart.
type ConfigWatcher struct {
	configPath string
	interval   time.Duration
	logger     *logrus.Logger
	mu         sync.RWMutex
	config     *models.Config
	callbacks  []func(*models.Config)
}

// NewConfigWatcher creates a new configuration watcher
func NewConfigWatcher(configPath string, logger *logrus.Logger) *ConfigWatcher {
	return &ConfigWatcher{
		configPath: configPath,
		interval:   defaultWatchInterval,
		logger:     logger,
		callbacks:  make([]func(*models.Config), 0),
	}
}

// fileStamp identifies one version of the config file. Size is compared as
// well because editors that save twice within the filesystem's mtime
// resolution leave the modification time unchanged.
type fileStamp struct {
	modTime time.Time
	size    int64
}

func (cw *ConfigWatcher) stamp() (fileStamp, error) {
	info, err := os.Stat(cw.configPath)
	if err != nil {
		return fileStamp{}, err
	}
	return fileStamp{modTime: info.ModTime(), size: info.Size()}, nil
}

// Start loads the file once, then polls it until ctx is done.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	last, err := cw.stamp()
	if err != nil {
		return err
	}
	config, err := LoadConfig(cw.configPath)
	if err != nil {
		return err
	}

	cw.mu.Lock()
	cw.config = config
	cw.mu.Unlock()

	cw.logger.WithField("path", cw.configPath).Info("Configuration watcher started")

	ticker := time.NewTicker(cw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cw.logger.Debug("Configuration watcher stopping")
			return nil
		case <-ticker.C:
			current, err := cw.stamp()
			if err != nil {
				cw.logger.WithError(err).Warn("Configuration file unavailable, keeping current settings")
				continue
			}
			if current != last {
				last = current
				cw.reloadConfig()
			}
		}
	}
}

// GetConfig returns the current configuration (thread-safe)
func (cw *ConfigWatcher) GetConfig() *models.Config {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.config
}

// OnConfigChange registers a callback to be called when configuration changes
func (cw *ConfigWatcher) OnConfigChange(callback func(*models.Config)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

func (cw *ConfigWatcher) reloadConfig() {
	newConfig, err := LoadConfig(cw.configPath)
	if err != nil {
		cw.logger.WithError(err).Error("Failed to reload configuration, keeping previous settings")
		return
	}

	cw.mu.Lock()
	oldConfig := cw.config
	cw.config = newConfig
	callbacks := make([]func(*models.Config), len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.Unlock()

	cw.logger.Info("Configuration reloaded successfully")

	for _, callback := range callbacks {
		func(cb func(*models.Config)) {
			defer func() {
				if r := recover(); r != nil {
					cw.logger.WithField("panic", r).Error("Config change callback panicked")
				}
			}()
			cb(newConfig)
		}(callback)
	}

	cw.logConfigChanges(oldConfig, newConfig)
}

func (cw *ConfigWatcher) logConfigChanges(old, new *models.Config) {
	if old == nil {
		return
	}

	if old.LogLevel != new.LogLevel {
		cw.logger.WithFields(logrus.Fields{
			"old": old.LogLevel,
			"new": new.LogLevel,
		}).Info("Log level changed")
	}

	if old.MaxUploadMB != new.MaxUploadMB {
		cw.logger.WithFields(logrus.Fields{
			"old": old.MaxUploadMB,
			"new": new.MaxUploadMB,
		}).Info("Upload limit changed")
	}

	if old.Server != new.Server || old.Journal != new.Journal || old.Tracing != new.Tracing {
		cw.logger.Warn("Server, journal or tracing settings changed; restart to apply them")
	}
}
