package errors

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"validation error", ValidationError("invalid input").Build(), 2},
		{"config error", ConfigError("bad config").Build(), 7},
		{"command failure", CommandError("git exited with code 128").Build(), 8},
		{"parse failure", ParseError("unexpected diff-tree line").Build(), 9},
		{"eventstore error", EventStoreError("append failed").Build(), 11},
		{"daemon error", DaemonError("scheduler failed").Build(), 12},
		{"internal error", NewError(CategoryInternal, "boom").Build(), 10},
		{"unclassified error", &customError{msg: "unknown error"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, slog.Default())
	verbose := NewCLIErrorAdapter(true, slog.Default())

	assert.Empty(t, quiet.FormatError(nil))
	assert.Equal(t, "Error: unknown error", quiet.FormatError(&customError{msg: "unknown error"}))
	assert.Equal(t, "Internal error occurred (use -v for details)",
		quiet.FormatError(NewError(CategoryInternal, "internal issue").Build()))

	cmdErr := WrapError(errors.New("exit status 128"), CategoryCommand, "git fetch failed").Build()
	assert.Equal(t, "Error: git fetch failed", quiet.FormatError(cmdErr))
	assert.Contains(t, verbose.FormatError(cmdErr), "exit status 128")
	assert.Contains(t, verbose.FormatError(cmdErr), "[command:error]")
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var out, logs bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logs, nil)))
	adapter.out = &out
	code := -1
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(nil)
	assert.Equal(t, -1, code)

	adapter.HandleError(ParseError("unexpected diff-tree line").Build())
	assert.Equal(t, 9, code)
	assert.Equal(t, "Error: unexpected diff-tree line\n", out.String())
	assert.Contains(t, logs.String(), "category=parse")
}

// customError is a test helper for unclassified errors
type customError struct {
	msg string
}

func (e *customError) Error() string {
	return e.msg
}
