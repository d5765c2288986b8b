package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation/errors"
)

// materialNamePattern keeps names usable as directory names below the workspace.
var materialNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Validate checks a loaded configuration and reports every problem at once.
func Validate(cfg *Config) error {
	result := foundation.Valid()
	if strings.TrimSpace(cfg.Workspace) == "" {
		result = result.Combine(foundation.Invalid(foundation.NewValidationError("workspace", "required", "workspace is required")))
	}
	if len(cfg.Materials) == 0 {
		result = result.Combine(foundation.Invalid(foundation.NewValidationError("materials", "required", "at least one material is required")))
	}

	seen := make(map[string]bool, len(cfg.Materials))
	for i := range cfg.Materials {
		m := &cfg.Materials[i]
		result = result.Combine(materialValidators(i).Validate(m))
		if seen[m.Name] {
			result = result.Combine(foundation.Invalid(foundation.NewValidationError(
				fmt.Sprintf("materials[%d].name", i), "duplicate", fmt.Sprintf("duplicate material name %q", m.Name))))
		}
		seen[m.Name] = true
	}
	result = result.Combine(validateDaemon(&cfg.Daemon))

	if result.Valid {
		return nil
	}
	messages := make([]string, 0, len(result.Errors))
	for _, fe := range result.Errors {
		messages = append(messages, fe.Error())
	}
	return errors.ConfigError("configuration validation failed: " + strings.Join(messages, "; ")).
		WithContext("errors", len(result.Errors)).
		UserAction().
		Build()
}

func materialValidators(i int) *foundation.ValidatorChain[*Material] {
	field := func(name string) string { return fmt.Sprintf("materials[%d].%s", i, name) }
	return foundation.NewValidatorChain[*Material](
		func(m *Material) foundation.ValidationResult {
			if !materialNamePattern.MatchString(m.Name) {
				return foundation.Invalid(foundation.NewValidationError(field("name"), "invalid",
					fmt.Sprintf("material name %q must be a simple directory name", m.Name)))
			}
			return foundation.Valid()
		},
		func(m *Material) foundation.ValidationResult {
			if strings.TrimSpace(m.URL) == "" {
				return foundation.Invalid(foundation.NewValidationError(field("url"), "required", "url is required"))
			}
			return foundation.Valid()
		},
		func(m *Material) foundation.ValidationResult {
			if _, err := m.RepositoryConfig(); err != nil {
				return foundation.Invalid(foundation.NewValidationError(field("shallow_clone"), "invalid", err.Error()))
			}
			return foundation.Valid()
		},
	)
}

func validateDaemon(d *DaemonConfig) foundation.ValidationResult {
	result := foundation.Valid()
	if d.Interval <= 0 {
		result = result.Combine(foundation.Invalid(foundation.NewValidationError("daemon.interval", "positive", "interval must be positive")))
	}
	if d.Retry.MaxRetries < 0 {
		result = result.Combine(foundation.Invalid(foundation.NewValidationError("daemon.retry.max_retries", "non_negative", "max_retries cannot be negative")))
	}
	result = result.Combine(foundation.OneOf("daemon.retry.backoff", []RetryBackoffMode{
		RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential,
	})(d.Retry.Backoff))
	if d.Retry.InitialDelay > d.Retry.MaxDelay {
		result = result.Combine(foundation.Invalid(foundation.NewValidationError("daemon.retry.initial_delay", "range", "initial_delay exceeds max_delay")))
	}
	return result
}
