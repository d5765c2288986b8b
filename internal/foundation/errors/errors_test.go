package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "gitpath.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Message() != "invalid configuration" {
			t.Errorf("expected message 'invalid configuration', got %s", err.Message())
		}
		if file, ok := err.Context().Get("file"); !ok || file != "gitpath.yaml" {
			t.Errorf("expected context file=gitpath.yaml, got %v", file)
		}
		if got := err.Error(); got != "[config:fatal] invalid configuration" {
			t.Errorf("unexpected Error(): %s", got)
		}
	})

	t.Run("Error detection", func(t *testing.T) {
		err := ConfigError("test error").Build()

		if !HasCategory(err, CategoryConfig) {
			t.Error("expected error to have config category")
		}
		if HasCategory(errors.New("plain"), CategoryInternal) {
			t.Error("plain errors carry no category")
		}
		if err.CanRetry() {
			t.Error("expected config error to not be retryable")
		}
	})

	t.Run("WithContext copies", func(t *testing.T) {
		base := GitError("fetch failed").Build()
		withMaterial := base.WithContext("material", "app")

		if _, ok := base.Context().Get("material"); ok {
			t.Error("expected original error to be unchanged")
		}
		if v, _ := withMaterial.Context().Get("material"); v != "app" {
			t.Errorf("expected material=app, got %v", v)
		}
		if !errors.Is(withMaterial, base) {
			t.Error("expected copies to match with errors.Is")
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	t.Run("Fluent API", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := WrapError(cause, CategoryNetwork, "ls-remote failed").
			Retryable().
			WithContext("url", "https://example.com/app.git").
			WithContext("attempt", 2).
			Build()

		if err.Category() != CategoryNetwork {
			t.Errorf("expected category %s, got %s", CategoryNetwork, err.Category())
		}
		if err.RetryStrategy() != RetryBackoff || !err.CanRetry() {
			t.Errorf("expected backoff retry, got %s", err.RetryStrategy())
		}
		if !errors.Is(err, cause) {
			t.Error("expected error to wrap its cause")
		}
		if attempt, _ := err.Context().Get("attempt"); attempt != 2 {
			t.Errorf("expected attempt=2, got %v", attempt)
		}
	})

	t.Run("User action is not retried", func(t *testing.T) {
		err := ValidationError("bad backend").UserAction().Build()
		if err.CanRetry() {
			t.Error("expected user action errors to not be retryable")
		}
	})

	t.Run("Convenience constructors", func(t *testing.T) {
		tests := []struct {
			name     string
			builder  *ErrorBuilder
			category ErrorCategory
			severity ErrorSeverity
			retry    RetryStrategy
		}{
			{"ConfigError", ConfigError("test"), CategoryConfig, SeverityFatal, RetryNever},
			{"ValidationError", ValidationError("test"), CategoryValidation, SeverityFatal, RetryNever},
			{"NetworkError", NetworkError("test"), CategoryNetwork, SeverityError, RetryBackoff},
			{"GitError", GitError("test"), CategoryGit, SeverityError, RetryNever},
			{"CommandError", CommandError("test"), CategoryCommand, SeverityError, RetryNever},
			{"ParseError", ParseError("test"), CategoryParse, SeverityFatal, RetryNever},
			{"FileSystemError", FileSystemError("test"), CategoryFileSystem, SeverityError, RetryBackoff},
			{"EventStoreError", EventStoreError("test"), CategoryEventStore, SeverityError, RetryNever},
			{"DaemonError", DaemonError("test"), CategoryDaemon, SeverityFatal, RetryNever},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.builder.Build()
				if err.Category() != tt.category {
					t.Errorf("expected category %s, got %s", tt.category, err.Category())
				}
				if err.Severity() != tt.severity {
					t.Errorf("expected severity %s, got %s", tt.severity, err.Severity())
				}
				if err.RetryStrategy() != tt.retry {
					t.Errorf("expected retry strategy %s, got %s", tt.retry, err.RetryStrategy())
				}
			})
		}
	})
}

func TestErrorContextMerge(t *testing.T) {
	a := ErrorContext{}.Set("material", "app").Set("shared", "original")
	b := ErrorContext{}.Set("revision", "abc123").Set("shared", "overridden")

	merged := a.Merge(b)
	for key, want := range map[string]any{"material": "app", "revision": "abc123", "shared": "overridden"} {
		if got, _ := merged.Get(key); got != want {
			t.Errorf("expected %s=%v, got %v", key, want, got)
		}
	}
	if v, _ := a.Get("shared"); v != "original" {
		t.Error("expected merge to leave the receiver untouched")
	}

	var empty ErrorContext
	if _, ok := empty.Get("x"); ok {
		t.Error("expected nil context to be empty")
	}
}

func TestAsClassifiedFindsWrappedError(t *testing.T) {
	inner := CommandError("git fetch failed").WithContext("exit_code", 128).Build()
	wrapped := fmt.Errorf("poll app: %w", inner)

	classified, ok := AsClassified(wrapped)
	if !ok {
		t.Fatal("expected wrapped classified error to be found")
	}
	if classified.Category() != CategoryCommand {
		t.Errorf("expected category %s, got %s", CategoryCommand, classified.Category())
	}
	if GetCategory(errors.New("plain")) != CategoryInternal {
		t.Error("expected plain errors to map to internal category")
	}
}
