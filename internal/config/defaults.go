package config

import (
	"time"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation/errors"
)

const (
	DefaultWorkspace    = "./work"
	DefaultGitBinary    = "git"
	DefaultInterval     = time.Minute
	DefaultHTTPAddr     = ":9464"
	DefaultStateDB      = "./gitpath.db"
	DefaultSubject      = "gitpath.revisions"
	DefaultMaxRetries   = 2
	DefaultInitialDelay = time.Second
	DefaultMaxDelay     = 30 * time.Second
)

// normalize case-folds enumerations before defaults are applied.
func normalize(cfg *Config) error {
	kind, err := NormalizeBackend(string(cfg.Backend))
	if err != nil {
		return errors.ConfigError("invalid backend").
			WithCause(err).
			WithContext("backend", string(cfg.Backend)).
			UserAction().
			Build()
	}
	cfg.Backend = kind
	if cfg.Logging != "" {
		cfg.Logging = NormalizeLogLevel(string(cfg.Logging))
	}
	if cfg.Daemon.Retry.Backoff != "" {
		mode := NormalizeRetryBackoff(string(cfg.Daemon.Retry.Backoff))
		if mode == "" {
			return errors.ConfigError("invalid retry backoff: " + string(cfg.Daemon.Retry.Backoff)).
				UserAction().
				Build()
		}
		cfg.Daemon.Retry.Backoff = mode
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Workspace == "" {
		cfg.Workspace = DefaultWorkspace
	}
	if cfg.GitBinary == "" {
		cfg.GitBinary = DefaultGitBinary
	}
	if cfg.Logging == "" {
		cfg.Logging = LogLevelInfo
	}

	d := &cfg.Daemon
	if d.Interval == 0 {
		d.Interval = DefaultInterval
	}
	if d.HTTPAddr == "" {
		d.HTTPAddr = DefaultHTTPAddr
	}
	if d.StateDB == "" {
		d.StateDB = DefaultStateDB
	}
	if d.Retry.Backoff == "" {
		d.Retry.Backoff = RetryBackoffLinear
		if d.Retry.MaxRetries == 0 {
			d.Retry.MaxRetries = DefaultMaxRetries
		}
	}
	if d.Retry.InitialDelay == 0 {
		d.Retry.InitialDelay = DefaultInitialDelay
	}
	if d.Retry.MaxDelay == 0 {
		d.Retry.MaxDelay = DefaultMaxDelay
	}

	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultSubject
	}
}
