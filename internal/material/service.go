// Package material answers the questions a CI server asks about a git path
// material: can the repository be reached, what is the newest revision
// touching the configured paths, what changed since the last one, and check
// it out at a given revision.
package material

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation/errors"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/git"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/logfields"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/metrics"
)

// Request identifies one material and the working directory it may use.
type Request struct {
	Config  *git.RepositoryConfig
	Paths   []string
	WorkDir string
	// RefSpec is an extra refspec fetched on every sync, empty for none.
	RefSpec string
}

// Service runs material operations on a chosen backend.
type Service struct {
	kind     git.BackendKind
	opts     git.BackendOptions
	recorder metrics.Recorder
}

// NewService returns a Service creating backends of kind with opts.
func NewService(kind git.BackendKind, opts git.BackendOptions) *Service {
	return &Service{kind: kind, opts: opts, recorder: metrics.NoopRecorder{}}
}

// WithRecorder sets the recorder used for engine metrics.
func (s *Service) WithRecorder(r metrics.Recorder) *Service {
	if r != nil {
		s.recorder = r
		if s.opts.Runner == nil {
			s.opts.Runner = git.NewExecRunner(r)
		}
	}
	return s
}

// Engine builds an engine for cfg in dir writing to out.
func (s *Service) Engine(cfg *git.RepositoryConfig, dir string, out git.Output) (*git.Engine, error) {
	opts := s.opts
	opts.Output = out
	b, err := git.NewBackend(s.kind, dir, cfg, opts)
	if err != nil {
		return nil, errors.ConfigError("unsupported backend").WithCause(err).Build()
	}
	return git.NewEngine(b, cfg, out).WithRecorder(s.recorder), nil
}

func (s *Service) sync(ctx context.Context, req Request) (*git.Engine, error) {
	if res := ValidateURL(req.Config); res != nil {
		slog.Error("Invalid url", slog.String("message", res.Message))
		return nil, errors.ValidationError(res.Message).WithContext("key", res.Key).Build()
	}
	e, err := s.Engine(req.Config, req.WorkDir, logOutput(req.Config))
	if err != nil {
		return nil, err
	}
	if err := e.CloneOrFetch(ctx, req.RefSpec); err != nil {
		return nil, git.Classify(err, "sync")
	}
	return e, nil
}

// LatestRevision syncs the working directory and returns the newest revision
// touching req.Paths, or nil when there is none.
func (s *Service) LatestRevision(ctx context.Context, req Request) (*git.Revision, error) {
	e, err := s.sync(ctx, req)
	if err != nil {
		return nil, err
	}
	slog.Debug("Fetching latest revision", slog.Any("paths", req.Paths))
	rev, err := e.LatestRevision(ctx, req.Paths)
	if err != nil {
		return nil, git.Classify(err, "latest revision")
	}
	return rev, nil
}

// LatestRevisionsSince syncs the working directory and returns the revisions
// after previous that touch req.Paths, newest first.
func (s *Service) LatestRevisionsSince(ctx context.Context, req Request, previous string) ([]*git.Revision, error) {
	e, err := s.sync(ctx, req)
	if err != nil {
		return nil, err
	}
	revs, err := e.RevisionsSince(ctx, previous, req.Paths)
	if err != nil {
		return nil, git.Classify(err, "revisions since")
	}
	slog.Debug("New revisions", logfields.Revision(previous), logfields.Count(len(revs)))
	return revs, nil
}

// Checkout brings dest to revision and returns the progress messages that
// were produced along the way.
func (s *Service) Checkout(ctx context.Context, cfg *git.RepositoryConfig, dest, revision string) ([]string, error) {
	messages := []string{fmt.Sprintf("Start updating %s to revision %s from %s", dest, revision, git.Redact(cfg.URL, cfg.Redactables()))}
	var lines git.Lines
	logged := logOutput(cfg)
	e, err := s.Engine(cfg, dest, git.Output{
		Stdout: git.Tee(lines.Sink(), logged.Stdout),
		Stderr: git.Tee(lines.Sink(), logged.Stderr),
	})
	if err != nil {
		return messages, err
	}
	if err := e.CloneOrFetch(ctx, ""); err != nil {
		return append(messages, lines.Lines()...), git.Classify(err, "checkout")
	}
	if err := e.ResetHard(ctx, revision); err != nil {
		return append(messages, lines.Lines()...), git.Classify(err, "checkout")
	}
	return append(messages, lines.Lines()...), nil
}

// BranchRevisions syncs the working directory and maps remote branch names
// to their revisions.
func (s *Service) BranchRevisions(ctx context.Context, req Request) (map[string]string, error) {
	e, err := s.sync(ctx, req)
	if err != nil {
		return nil, err
	}
	branches, err := e.BranchToRevisionMap(ctx, "")
	if err != nil {
		return nil, git.Classify(err, "branches")
	}
	return branches, nil
}

// SubmoduleInfo describes one submodule of a synced working copy.
type SubmoduleInfo struct {
	Path     string `json:"path"`
	URL      string `json:"url,omitempty"`
	Revision string `json:"revision,omitempty"`
	Commits  int    `json:"commits"`
}

// Submodules syncs the working directory and describes its submodules.
func (s *Service) Submodules(ctx context.Context, req Request) ([]SubmoduleInfo, error) {
	e, err := s.sync(ctx, req)
	if err != nil {
		return nil, err
	}
	if !e.SubmoduleEnabled() {
		return []SubmoduleInfo{}, nil
	}
	subs, err := e.Submodules(ctx)
	if err != nil {
		return nil, git.Classify(err, "submodules")
	}
	out := make([]SubmoduleInfo, 0, len(subs))
	for _, sub := range subs {
		info := SubmoduleInfo{Path: sub.Path, URL: git.Redact(sub.Engine.Config().URL, req.Config.Redactables())}
		if info.Revision, err = sub.Engine.CurrentRevision(ctx); err != nil {
			return nil, git.Classify(err, "submodules")
		}
		if info.Commits, err = e.SubmoduleCommitCount(ctx, sub.Path); err != nil {
			return nil, git.Classify(err, "submodules")
		}
		out = append(out, info)
	}
	return out, nil
}

// Status is the outcome of a connection check.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// ConnectionStatus is the result of CheckConnection.
type ConnectionStatus struct {
	Status   Status   `json:"status"`
	Messages []string `json:"messages"`
}

// CheckConnection reports whether the configured repository can be reached.
// Failures are reported in the result, never as an error.
func (s *Service) CheckConnection(ctx context.Context, cfg *git.RepositoryConfig) ConnectionStatus {
	failure := func(msg string) ConnectionStatus {
		return ConnectionStatus{Status: StatusFailure, Messages: []string{msg}}
	}
	switch {
	case strings.TrimSpace(cfg.URL) == "":
		return failure("URL is empty")
	case isLocalPath(cfg.URL):
		if _, err := os.Stat(cfg.URL); err != nil {
			return failure("Could not find Git repository")
		}
	}

	e, err := s.Engine(cfg, os.TempDir(), git.DiscardOutput())
	if err != nil {
		return failure(err.Error())
	}
	if err := e.CheckConnection(ctx); err != nil {
		slog.Debug("Connection check failed", logfields.URL(cfg.RedactedURL()), logfields.Error(err))
		return failure("ls-remote failed")
	}
	return ConnectionStatus{Status: StatusSuccess, Messages: []string{"Could connect to URL successfully"}}
}

// ValidationResult is a field-level configuration problem.
type ValidationResult struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// ValidateURL checks the url field. It returns nil when the field is valid.
func ValidateURL(cfg *git.RepositoryConfig) *ValidationResult {
	if strings.TrimSpace(cfg.URL) == "" {
		return &ValidationResult{Key: "url", Message: "URL is a required field"}
	}
	if isLocalPath(cfg.URL) {
		if _, err := os.Stat(cfg.URL); err != nil {
			return &ValidationResult{Key: "url", Message: "Invalid URL. Directory does not exist"}
		}
	}
	return nil
}

func isLocalPath(url string) bool {
	return strings.HasPrefix(url, "/")
}

func logOutput(cfg *git.RepositoryConfig) git.Output {
	attr := logfields.URL(cfg.RedactedURL())
	return git.Output{
		Stdout: git.LogSink(slog.LevelDebug, attr),
		Stderr: git.LogSink(slog.LevelDebug, attr),
	}
}
