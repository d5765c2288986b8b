package git

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/logfields"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/metrics"
)

// Command is a single external invocation.
type Command struct {
	Name    string // executable; "git" when empty
	Args    []string
	Dir     string // working directory; inherited when empty
	Env     []string
	Secrets []string
	// Stdout and Stderr receive each redacted line as it is produced.
	Stdout Sink
	Stderr Sink
}

// CommandResult is the outcome of a successful invocation. Lines are not
// redacted so that callers can parse them.
type CommandResult struct {
	ExitCode int
	Stdout   []string
	Stderr   []string
}

// First returns the first stdout line or "".
func (r *CommandResult) First() string {
	if r == nil || len(r.Stdout) == 0 {
		return ""
	}
	return r.Stdout[0]
}

// Runner executes commands. Run returns a *CommandFailure for a non-zero exit
// or a process that could not be started.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*CommandResult, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Recorder metrics.Recorder
}

// NewExecRunner returns a runner that reports invocations to recorder.
func NewExecRunner(recorder metrics.Recorder) *ExecRunner {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &ExecRunner{Recorder: recorder}
}

// Run starts the process and pumps stdout and stderr concurrently until both
// streams close, then waits for exit.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*CommandResult, error) {
	name := c.Name
	if name == "" {
		name = "git"
	}
	cmd := exec.CommandContext(ctx, name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	sub := subcommand(c.Args)
	start := time.Now()
	slog.Debug("running command", logfields.Command(Redact(commandLine(name, c.Args), c.Secrets)), logfields.Path(c.Dir))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, r.spawnFailure(name, c, err, sub)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, r.spawnFailure(name, c, err, sub)
	}
	if err := cmd.Start(); err != nil {
		return nil, r.spawnFailure(name, c, err, sub)
	}

	var wg sync.WaitGroup
	var outLines, errLines []string
	outSink := redactingSink(c.Stdout, c.Secrets)
	errSink := redactingSink(c.Stderr, c.Secrets)
	wg.Add(2)
	go func() {
		defer wg.Done()
		outLines = pump(stdout, outSink)
	}()
	go func() {
		defer wg.Done()
		errLines = pump(stderr, errSink)
	}()
	wg.Wait()
	waitErr := cmd.Wait()

	result := &CommandResult{ExitCode: cmd.ProcessState.ExitCode(), Stdout: outLines, Stderr: errLines}
	if waitErr == nil {
		r.Recorder.ObserveCommand(sub, time.Since(start), metrics.OutcomeSuccess)
		return result, nil
	}

	r.Recorder.ObserveCommand(sub, time.Since(start), metrics.OutcomeFailure)
	var exitErr *exec.ExitError
	if !stderrors.As(waitErr, &exitErr) {
		return nil, r.spawnFailure(name, c, waitErr, "")
	}
	line := Redact(commandLine(name, c.Args), c.Secrets)
	return nil, &CommandFailure{
		Command:  line,
		Dir:      c.Dir,
		ExitCode: result.ExitCode,
		Stderr:   RedactAll(errLines, c.Secrets),
		Message:  fmt.Sprintf("%s exited with code %d (%s%s)", Redact(name, c.Secrets), result.ExitCode, line, inDir(c.Dir)),
		Err:      exitErr,
	}
}

// spawnFailure builds the failure for a process that never ran. The message
// of err can echo the argument vector, so it is redacted too. An empty sub
// means the failure was already recorded.
func (r *ExecRunner) spawnFailure(name string, c Command, err error, sub string) *CommandFailure {
	if sub != "" {
		r.Recorder.ObserveCommand(sub, 0, metrics.OutcomeSpawnFailure)
	}
	line := Redact(commandLine(name, c.Args), c.Secrets)
	return &CommandFailure{
		Command:  line,
		Dir:      c.Dir,
		ExitCode: -1,
		Message:  fmt.Sprintf("%s failed: %s (%s%s)", Redact(name, c.Secrets), Redact(err.Error(), c.Secrets), line, inDir(c.Dir)),
	}
}

func pump(r io.Reader, sink Sink) []string {
	var lines []string
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" || err == nil {
			line = strings.TrimRight(line, "\r\n")
			lines = append(lines, line)
			sink(line)
		}
		if err != nil {
			return lines
		}
	}
}

func redactingSink(s Sink, secrets []string) Sink {
	if s == nil {
		return Discard
	}
	return func(line string) { s(Redact(line, secrets)) }
}

func inDir(dir string) string {
	if dir == "" {
		return ""
	}
	return " in " + dir
}

// commandLine renders argv for humans, quoting arguments with spaces.
func commandLine(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, a := range append([]string{name}, args...) {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = strconv.Quote(a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// subcommand returns the git verb, skipping global "-c key=value" options.
// It is used as a metrics label and never contains URLs.
func subcommand(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "-c" || a == "-C" {
			i++
			continue
		}
		if strings.HasPrefix(a, "-") {
			if a == "--version" {
				return "version"
			}
			continue
		}
		return a
	}
	return "unknown"
}
