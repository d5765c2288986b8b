package git

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation/errors"
)

var (
	// ErrInvalidShallowClone is returned when the additional fetch depth
	// cannot add history beyond the default depth.
	ErrInvalidShallowClone = stderrors.New("additional fetch depth must be greater than default depth")
	// ErrNoRevision is returned when a revision cannot be resolved.
	ErrNoRevision = stderrors.New("revision not found")
)

// CommandFailure describes a failed external invocation. Every field is
// redacted before the value is constructed.
type CommandFailure struct {
	Command  string   // quoted command line
	Dir      string   // working directory, empty when none was set
	ExitCode int      // -1 when the process never ran
	Stderr   []string // captured stderr lines
	Message  string
	Err      error
}

func (e *CommandFailure) Error() string {
	if len(e.Stderr) == 0 {
		return e.Message
	}
	return e.Message + "\n" + strings.Join(e.Stderr, "\n")
}

func (e *CommandFailure) Unwrap() error { return e.Err }

// Started reports whether the process ran at all.
func (e *CommandFailure) Started() bool { return e.ExitCode >= 0 }

// ParseError reports output that does not match a parser's grammar. It is
// never retried: it signals an incompatible tool version.
type ParseError struct {
	Parser string
	Line   string
	Output []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse %s output line: %s\nfrom output:\n%s", e.Parser, e.Line, strings.Join(e.Output, "\n"))
}

// Classify translates engine failures into ClassifiedErrors so callers can
// choose exit codes and retry behaviour.
func Classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsClassified(err); ok {
		return err
	}

	var pe *ParseError
	if stderrors.As(err, &pe) {
		return errors.ParseError(op+" returned unexpected output").
			WithCause(err).
			WithContext("op", op).
			WithContext("parser", pe.Parser).
			Build()
	}

	var cf *CommandFailure
	if !stderrors.As(err, &cf) {
		return errors.GitError(op+" failed").WithCause(err).WithContext("op", op).Build()
	}

	builder := errors.CommandError(cf.Message).
		WithCause(err).
		WithContext("op", op).
		WithContext("command", cf.Command).
		WithContext("exit_code", cf.ExitCode)
	l := strings.ToLower(cf.Error())
	switch {
	case !cf.Started():
		builder.WithContext("spawn", true)
	case strings.Contains(l, "authentication failed") || strings.Contains(l, "could not read username") || strings.Contains(l, "permission denied"):
		builder = errors.NewError(errors.CategoryAuth, cf.Message).WithCause(err).WithContext("op", op).UserAction()
	case strings.Contains(l, "could not resolve host") || strings.Contains(l, "connection reset") ||
		strings.Contains(l, "remote hung up") || strings.Contains(l, "timed out") || strings.Contains(l, "connection refused"):
		builder = errors.NetworkError(cf.Message).WithCause(err).WithContext("op", op)
	}
	return builder.Build()
}
