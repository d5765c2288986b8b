package config

import (
	"log/slog"
	"strings"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation/normalization"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/git"
)

// RetryBackoffMode enumerates supported backoff strategies for retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// NormalizeRetryBackoff converts arbitrary user input (case-insensitive) into a typed mode, returning empty string for unknown.
func NormalizeRetryBackoff(raw string) RetryBackoffMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(RetryBackoffFixed):
		return RetryBackoffFixed
	case string(RetryBackoffLinear):
		return RetryBackoffLinear
	case string(RetryBackoffExponential):
		return RetryBackoffExponential
	default:
		return ""
	}
}

// BackendKind selects the repository backend for every material.
type BackendKind = git.BackendKind

const (
	BackendCommand  = git.BackendCommand
	BackendEmbedded = git.BackendEmbedded
)

var backendNormalizer = normalization.NewNormalizer(map[string]BackendKind{
	"cmd":    BackendCommand,
	"git":    BackendCommand,
	"gogit":  BackendEmbedded,
	"go-git": BackendEmbedded,
}, BackendCommand)

// NormalizeBackend resolves a backend name, failing on unknown names.
func NormalizeBackend(raw string) (BackendKind, error) {
	if strings.TrimSpace(raw) == "" {
		return BackendCommand, nil
	}
	return backendNormalizer.NormalizeWithError(raw)
}

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = normalization.NewNormalizer(map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

func NormalizeLogLevel(raw string) LogLevel {
	return logLevelNormalizer.Normalize(raw)
}

// SlogLevel maps the level onto slog.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
