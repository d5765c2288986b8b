// Package errors provides classified error primitives shared by the CLI, the
// material service and the polling daemon.
//
// A ClassifiedError carries a category (config, git, command, parse, ...), a
// severity and a retry strategy. The daemon uses the retry strategy to decide
// whether a failed poll is attempted again; the CLI adapter maps categories to
// process exit codes and the HTTP adapter maps them to status codes.
//
// Example:
//
//	err := errors.NewError(errors.CategoryGit, "clone failed").
//		WithSeverity(errors.SeverityError).
//		WithRetry(errors.RetryBackoff).
//		WithContext("url", redactedURL).
//		WithCause(originalErr).
//		Build()
package errors
