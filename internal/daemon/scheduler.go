package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

const pollJobName = "poll-materials"

// Scheduler wraps gocron scheduler for managing periodic tasks.
type Scheduler struct {
	scheduler gocron.Scheduler
	mu        sync.Mutex
	pollJob   uuid.UUID
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
	}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleEvery runs task every interval. A run still in progress when the
// next one is due causes that run to be skipped.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, task func(), immediate bool) (string, error) {
	if interval <= 0 {
		return "", errors.New("interval must be positive")
	}
	opts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if immediate {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}
	job, err := s.scheduler.NewJob(gocron.DurationJob(interval), gocron.NewTask(task), opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create periodic job %s: %w", name, err)
	}
	return job.ID().String(), nil
}

// SchedulePoll schedules the material poll, starting right away.
func (s *Scheduler) SchedulePoll(interval time.Duration, task func()) (string, error) {
	id, err := s.ScheduleEvery(pollJobName, interval, task, true)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.pollJob = uuid.MustParse(id)
	s.mu.Unlock()
	return id, nil
}

// Reschedule replaces the poll job with one running every interval. The
// first run waits a full interval.
func (s *Scheduler) Reschedule(interval time.Duration, task func()) error {
	s.mu.Lock()
	old := s.pollJob
	s.mu.Unlock()

	id, err := s.ScheduleEvery(pollJobName, interval, task, false)
	if err != nil {
		return err
	}
	if old != uuid.Nil {
		if err := s.scheduler.RemoveJob(old); err != nil {
			slog.Warn("Failed to remove previous poll job", "error", err)
		}
	}
	s.mu.Lock()
	s.pollJob = uuid.MustParse(id)
	s.mu.Unlock()
	slog.Info("Poll interval changed", slog.Duration("interval", interval))
	return nil
}

// JobCount returns the number of scheduled jobs.
func (s *Scheduler) JobCount() int {
	return len(s.scheduler.Jobs())
}
