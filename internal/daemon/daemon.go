// Package daemon polls the configured materials on a schedule, records what
// it finds in the event store, and announces new revisions.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/config"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/eventstore"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation/errors"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/git"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/logfields"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/material"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/metrics"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/notify"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/retry"
)

// Status represents the current state of the daemon
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// Options carries collaborators that callers may replace, mostly in tests.
// Zero values are filled in by New.
type Options struct {
	Store eventstore.Store
	// OpenStore opens the state database when Store is nil. A store opened
	// this way is closed again if New fails.
	OpenStore func(path string) (eventstore.Store, error)
	Publisher notify.Publisher
	Registry  *prom.Registry
	// BackendOptions is used for every material engine.
	BackendOptions git.BackendOptions
	// DisableHTTP skips the metrics/health listener.
	DisableHTTP bool
	// DisableWatcher skips config file watching.
	DisableWatcher bool
}

// Daemon represents the main daemon service
type Daemon struct {
	configFilePath string
	status         atomic.Value // Status
	startTime      time.Time
	lifecycle      sync.Mutex // serializes Start and Stop
	mu             sync.RWMutex
	config         *config.Config

	service    *material.Service
	store      eventstore.Store
	projection *eventstore.LatestRevisionProjection
	publisher  notify.Publisher
	registry   *prom.Registry
	recorder   metrics.Recorder
	policy     retry.Policy

	scheduler     *Scheduler
	configWatcher *ConfigWatcher
	httpServer    *HTTPServer

	// locks serializes polls of one material; each owns its working directory.
	locks       sync.Map // material name -> *sync.Mutex
	activePolls atomic.Int32
	lastPollAt  atomic.Value // time.Time
}

// New wires a daemon for cfg. configPath is watched for changes unless
// opts.DisableWatcher is set.
func New(cfg *config.Config, configPath string, opts Options) (_ *Daemon, err error) {
	var owned []func() error
	defer func() {
		if err == nil {
			return
		}
		for i := len(owned) - 1; i >= 0; i-- {
			if cerr := owned[i](); cerr != nil {
				slog.Warn("Failed to release daemon resource", logfields.Error(cerr))
			}
		}
	}()

	if opts.Registry == nil {
		opts.Registry = metrics.NewRegistry()
	}
	if opts.Store == nil {
		open := opts.OpenStore
		if open == nil {
			open = openSQLiteStore
		}
		store, err := open(cfg.Daemon.StateDB)
		if err != nil {
			return nil, err
		}
		opts.Store = store
		owned = append(owned, store.Close)
	}
	if opts.Publisher == nil {
		opts.Publisher = notify.NoopPublisher{}
		if cfg.Notify.Enabled() {
			p, err := notify.NewNATSPublisher(cfg.Notify)
			if err != nil {
				return nil, errors.DaemonError("failed to start notification publisher").WithCause(err).Build()
			}
			opts.Publisher = p
			owned = append(owned, p.Close)
		}
	}

	recorder := metrics.NewPrometheusRecorder(opts.Registry)
	backendOpts := opts.BackendOptions
	if backendOpts.GitBinary == "" {
		backendOpts.GitBinary = cfg.GitBinary
	}

	d := &Daemon{
		configFilePath: configPath,
		config:         cfg,
		service:        material.NewService(cfg.Backend, backendOpts).WithRecorder(recorder),
		store:          opts.Store,
		projection:     eventstore.NewLatestRevisionProjection(opts.Store),
		publisher:      opts.Publisher,
		registry:       opts.Registry,
		recorder:       recorder,
		policy:         retry.FromConfig(cfg.Daemon.Retry),
	}
	d.status.Store(StatusStopped)

	scheduler, err := NewScheduler()
	if err != nil {
		return nil, err
	}
	d.scheduler = scheduler
	owned = append(owned, func() error { return scheduler.Stop(context.Background()) })

	if !opts.DisableHTTP {
		d.httpServer = NewHTTPServer(cfg.Daemon.HTTPAddr, d)
	}
	if !opts.DisableWatcher && configPath != "" {
		w, err := NewConfigWatcher(configPath, d)
		if err != nil {
			return nil, err
		}
		d.configWatcher = w
	}
	return d, nil
}

func openSQLiteStore(path string) (eventstore.Store, error) {
	return eventstore.NewSQLiteStore(path)
}

// GetStatus returns the lifecycle status.
func (d *Daemon) GetStatus() Status {
	return d.status.Load().(Status)
}

// GetConfig returns the active configuration.
func (d *Daemon) GetConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// Projection exposes the latest revision read model.
func (d *Daemon) Projection() *eventstore.LatestRevisionProjection { return d.projection }

// Start rebuilds the projection, starts the HTTP listener, the config watcher
// and the poll schedule.
func (d *Daemon) Start(ctx context.Context) error {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()
	if d.GetStatus() != StatusStopped {
		return fmt.Errorf("daemon is not in stopped state: %s", d.GetStatus())
	}
	d.status.Store(StatusStarting)
	d.mu.Lock()
	d.startTime = time.Now()
	d.mu.Unlock()
	cfg := d.GetConfig()

	if err := d.projection.Rebuild(ctx); err != nil {
		d.status.Store(StatusError)
		return errors.WrapError(err, errors.CategoryEventStore, "failed to rebuild latest revision projection").Build()
	}

	if d.httpServer != nil {
		if err := d.httpServer.Start(ctx); err != nil {
			d.status.Store(StatusError)
			return errors.DaemonError("failed to start HTTP server").WithCause(err).Build()
		}
	}

	if _, err := d.scheduler.SchedulePoll(cfg.Daemon.Interval, func() { d.PollAll(ctx) }); err != nil {
		d.status.Store(StatusError)
		return err
	}
	d.scheduler.Start(ctx)

	if d.configWatcher != nil {
		if err := d.configWatcher.Start(ctx); err != nil {
			slog.Error("Failed to start config watcher", logfields.Error(err))
		}
	}

	d.status.Store(StatusRunning)
	slog.Info("gitpath daemon started",
		logfields.Count(len(cfg.Materials)),
		logfields.Backend(string(cfg.Backend)),
		slog.Duration("interval", cfg.Daemon.Interval),
		slog.String("http_addr", cfg.Daemon.HTTPAddr))
	return nil
}

// Run starts the daemon and blocks until ctx is done, then stops it.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return d.Stop(stopCtx)
}

// Stop shuts every component down. Running polls finish first.
func (d *Daemon) Stop(ctx context.Context) error {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()
	status := d.GetStatus()
	if status == StatusStopped || status == StatusStopping {
		return nil
	}
	d.status.Store(StatusStopping)
	slog.Info("Stopping gitpath daemon")

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.configWatcher != nil {
		keep(d.configWatcher.Stop(ctx))
	}
	keep(d.scheduler.Stop(ctx))
	if d.httpServer != nil {
		keep(d.httpServer.Stop(ctx))
	}
	keep(d.publisher.Close())
	keep(d.store.Close())

	d.status.Store(StatusStopped)
	slog.Info("gitpath daemon stopped")
	return firstErr
}

// ReloadConfig swaps in a new material list. Changes that need a restart
// (state database, listen address, backend) are rejected.
func (d *Daemon) ReloadConfig(ctx context.Context, newConfig *config.Config) error {
	d.mu.Lock()
	old := d.config
	switch {
	case newConfig.Daemon.StateDB != old.Daemon.StateDB:
		d.mu.Unlock()
		return errors.ConfigError("state_db change requires daemon restart").Build()
	case newConfig.Daemon.HTTPAddr != old.Daemon.HTTPAddr:
		d.mu.Unlock()
		return errors.ConfigError("http_addr change requires daemon restart").Build()
	case newConfig.Backend != old.Backend || newConfig.GitBinary != old.GitBinary:
		d.mu.Unlock()
		return errors.ConfigError("backend change requires daemon restart").Build()
	}
	d.config = newConfig
	d.policy = retry.FromConfig(newConfig.Daemon.Retry)
	d.mu.Unlock()

	if newConfig.Daemon.Interval != old.Daemon.Interval && d.GetStatus() == StatusRunning {
		if err := d.scheduler.Reschedule(newConfig.Daemon.Interval, func() { d.PollAll(ctx) }); err != nil {
			return err
		}
	}
	slog.Info("Configuration applied", logfields.Count(len(newConfig.Materials)))
	return nil
}
