package git

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Sink receives output lines. A Sink may be called from the stdout and stderr
// pumps of the same command concurrently, so implementations that share state
// must synchronize.
type Sink func(line string)

// Discard drops every line.
func Discard(string) {}

// Output pairs the sinks used for progress and command output.
type Output struct {
	Stdout Sink
	Stderr Sink
}

// DiscardOutput drops both streams.
func DiscardOutput() Output { return Output{Stdout: Discard, Stderr: Discard} }

func (o Output) stdout() Sink {
	if o.Stdout == nil {
		return Discard
	}
	return o.Stdout
}

func (o Output) stderr() Sink {
	if o.Stderr == nil {
		return Discard
	}
	return o.Stderr
}

// Lines is an in-memory sink safe for concurrent use.
type Lines struct {
	mu    sync.Mutex
	lines []string
}

// Sink returns the appending function.
func (l *Lines) Sink() Sink {
	return func(line string) {
		l.mu.Lock()
		l.lines = append(l.lines, line)
		l.mu.Unlock()
	}
}

// Lines returns a copy of the collected lines.
func (l *Lines) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// String joins the collected lines with newlines.
func (l *Lines) String() string {
	return strings.Join(l.Lines(), "\n")
}

// LogSink forwards lines to slog at the given level with extra attributes.
func LogSink(level slog.Level, attrs ...slog.Attr) Sink {
	return func(line string) {
		slog.LogAttrs(context.Background(), level, line, attrs...)
	}
}

// Tee fans a line out to several sinks.
func Tee(sinks ...Sink) Sink {
	return func(line string) {
		for _, s := range sinks {
			if s != nil {
				s(line)
			}
		}
	}
}
