package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/config"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/logfields"
)

const defaultReloadDebounce = 2 * time.Second

// ConfigWatcher reloads the daemon's materials when the config file changes.
type ConfigWatcher struct {
	configPath string
	daemon     *Daemon
	watcher    *fsnotify.Watcher
	debounce   time.Duration

	stopOnce sync.Once
	done     chan struct{}
}

// NewConfigWatcher prepares a watcher for configPath. Nothing is watched
// until Start.
func NewConfigWatcher(configPath string, daemon *Daemon) (*ConfigWatcher, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &ConfigWatcher{
		configPath: absPath,
		daemon:     daemon,
		watcher:    watcher,
		debounce:   defaultReloadDebounce,
		done:       make(chan struct{}),
	}, nil
}

// Start watches the config file's directory, since editors usually save by
// replacing the file.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(cw.configPath)
	if err := cw.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch config directory %s: %w", dir, err)
	}
	slog.Info("Watching configuration", logfields.Path(cw.configPath))
	go cw.run(ctx)
	return nil
}

// Stop ends watching. It is safe to call more than once.
func (cw *ConfigWatcher) Stop(context.Context) error {
	var err error
	cw.stopOnce.Do(func() {
		close(cw.done)
		err = cw.watcher.Close()
	})
	return err
}

func (cw *ConfigWatcher) run(ctx context.Context) {
	name := filepath.Base(cw.configPath)
	var pending <-chan time.Time
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.done:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Remove) {
				slog.Warn("Config file removed, keeping current configuration", logfields.Path(event.Name))
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			slog.Debug("Config file changed", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(cw.debounce)
			} else {
				timer.Reset(cw.debounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			if err := cw.performReload(ctx); err != nil {
				slog.Error("Failed to reload configuration", logfields.Error(err))
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", logfields.Error(err))
		}
	}
}

func (cw *ConfigWatcher) performReload(ctx context.Context) error {
	cfg, err := config.Load(cw.configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := cw.daemon.ReloadConfig(ctx, cfg); err != nil {
		return fmt.Errorf("apply configuration: %w", err)
	}
	slog.Info("Configuration reloaded", logfields.Path(cw.configPath), logfields.Count(len(cfg.Materials)))
	return nil
}
