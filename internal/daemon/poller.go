package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/config"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/eventstore"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation/errors"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/git"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/logfields"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/material"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/metrics"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/notify"
)

// ErrPollInProgress is returned when a poll of the same material is running.
var ErrPollInProgress = errors.DaemonError("poll already in progress").Build()

// PollResult summarizes one poll of one material.
type PollResult struct {
	JobID     string          `json:"job_id"`
	Material  string          `json:"material"`
	Previous  string          `json:"previous,omitempty"`
	Revisions []*git.Revision `json:"-"`
	Attempts  int             `json:"attempts"`
	Duration  time.Duration   `json:"duration"`
}

// Latest returns the newest detected revision SHA.
func (r *PollResult) Latest() string {
	if len(r.Revisions) == 0 {
		return ""
	}
	return r.Revisions[0].SHA
}

func (d *Daemon) materialLock(name string) *sync.Mutex {
	l, _ := d.locks.LoadOrStore(name, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// PollAll polls every configured material concurrently. Materials are
// independent; a failure of one does not affect the others.
func (d *Daemon) PollAll(ctx context.Context) {
	cfg := d.GetConfig()
	var wg sync.WaitGroup
	for i := range cfg.Materials {
		m := cfg.Materials[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.PollMaterial(ctx, &m); err != nil && err != ErrPollInProgress {
				slog.Warn("Poll failed", logfields.Material(m.Name), logfields.Error(err))
			}
		}()
	}
	wg.Wait()
	d.lastPollAt.Store(time.Now())
}

// PollNamed polls the configured material called name.
func (d *Daemon) PollNamed(ctx context.Context, name string) (*PollResult, error) {
	m, ok := d.GetConfig().Material(name)
	if !ok {
		return nil, errors.NewError(errors.CategoryNotFound, "unknown material: "+name).
			WithContext("material", name).
			Build()
	}
	mc := *m
	return d.PollMaterial(ctx, &mc)
}

// PollMaterial syncs m and records the revisions that appeared since the
// last one seen. The first poll of a material records only its latest
// revision.
func (d *Daemon) PollMaterial(ctx context.Context, m *config.Material) (*PollResult, error) {
	lock := d.materialLock(m.Name)
	if !lock.TryLock() {
		slog.Debug("Skipping poll, previous one still running", logfields.Material(m.Name))
		return nil, ErrPollInProgress
	}
	defer lock.Unlock()

	d.activePolls.Add(1)
	defer d.activePolls.Add(-1)

	cfg := d.GetConfig()
	d.mu.RLock()
	policy := d.policy
	d.mu.RUnlock()

	repo, err := m.RepositoryConfig()
	if err != nil {
		return nil, err
	}
	req := material.Request{Config: repo, Paths: m.PathFilters(), WorkDir: cfg.WorkDir(m), RefSpec: m.RefSpec}
	previous, _ := d.projection.LatestRevision(m.Name)

	result := &PollResult{JobID: uuid.NewString(), Material: m.Name, Previous: previous}
	log := slog.With(logfields.JobID(result.JobID), logfields.Material(m.Name))
	log.Debug("Polling material", logfields.Revision(previous), logfields.Path(req.WorkDir))

	start := time.Now()
	err = policy.Do(ctx, "poll "+m.Name, canRetry, func(ctx context.Context) error {
		result.Attempts++
		if result.Attempts > 1 {
			d.recorder.IncPollRetry(m.Name)
		}
		revs, err := d.detect(ctx, req, previous)
		if err != nil {
			return err
		}
		result.Revisions = revs
		return nil
	})
	result.Duration = time.Since(start)

	if err != nil {
		d.recorder.ObservePoll(m.Name, result.Duration, pollOutcome(ctx))
		d.recordFailure(ctx, result, repo, err)
		return result, err
	}

	d.recorder.ObservePoll(m.Name, result.Duration, metrics.OutcomeSuccess)
	if len(result.Revisions) == 0 {
		log.Debug("No new revisions", logfields.DurationMS(float64(result.Duration.Milliseconds())))
		return result, nil
	}

	if err := d.recordDetection(ctx, result); err != nil {
		return result, err
	}
	d.recorder.AddRevisionsDetected(m.Name, len(result.Revisions))
	log.Info("New revisions detected",
		logfields.Revision(result.Latest()),
		logfields.Count(len(result.Revisions)),
		logfields.DurationMS(float64(result.Duration.Milliseconds())))
	return result, nil
}

func (d *Daemon) detect(ctx context.Context, req material.Request, previous string) ([]*git.Revision, error) {
	if previous == "" {
		rev, err := d.service.LatestRevision(ctx, req)
		if err != nil || rev == nil {
			return nil, err
		}
		return []*git.Revision{rev}, nil
	}
	return d.service.LatestRevisionsSince(ctx, req, previous)
}

func (d *Daemon) recordDetection(ctx context.Context, result *PollResult) error {
	refs := make([]eventstore.RevisionRef, 0, len(result.Revisions))
	wire := make([]material.RevisionJSON, 0, len(result.Revisions))
	for _, rev := range result.Revisions {
		refs = append(refs, eventstore.RevisionRef{
			SHA:       rev.SHA,
			Timestamp: rev.Timestamp,
			Author:    rev.Author,
			Comment:   rev.Comment,
			Files:     len(rev.ModifiedFiles),
		})
		wire = append(wire, material.ToJSON(rev))
	}

	event, err := eventstore.NewRevisionsDetected(result.JobID, result.Material, result.Previous, refs)
	if err != nil {
		return err
	}
	if err := d.store.Append(ctx, event); err != nil {
		return err
	}
	d.projection.Apply(event)

	n := &notify.Notification{
		JobID:      result.JobID,
		Material:   result.Material,
		Previous:   result.Previous,
		Revisions:  wire,
		DetectedAt: event.Timestamp(),
	}
	if err := d.publisher.Publish(ctx, n); err != nil {
		// The event is already recorded; a lost notification is not retried.
		slog.Warn("Failed to publish revision notification",
			logfields.JobID(result.JobID),
			logfields.Material(result.Material),
			logfields.Error(err))
	}
	return nil
}

func (d *Daemon) recordFailure(ctx context.Context, result *PollResult, repo *git.RepositoryConfig, cause error) {
	category := string(errors.GetCategory(cause))
	message := git.Redact(cause.Error(), repo.Redactables())
	slog.Error("Poll failed",
		logfields.JobID(result.JobID),
		logfields.Material(result.Material),
		slog.Int("attempts", result.Attempts),
		slog.String("category", category),
		slog.String("error", message))

	event, err := eventstore.NewSyncFailed(result.JobID, result.Material, category, message, result.Attempts)
	if err != nil {
		slog.Error("Failed to build failure event", logfields.Error(err))
		return
	}
	if err := d.store.Append(context.WithoutCancel(ctx), event); err != nil {
		slog.Error("Failed to record poll failure", logfields.Material(result.Material), logfields.Error(err))
		return
	}
	d.projection.Apply(event)
}

func canRetry(err error) bool {
	ce, ok := errors.AsClassified(err)
	return ok && ce.CanRetry()
}

func pollOutcome(ctx context.Context) metrics.Outcome {
	if ctx.Err() != nil {
		return metrics.OutcomeCanceled
	}
	return metrics.OutcomeFailure
}
