// Package jobs runs the periodic maintenance of the ledger on cron
// schedules: document snapshots, monthly total pruning and cache expiry.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"khata/internal/log"
)

// Ledger is the part of the ledger service the jobs drive.
type Ledger interface {
	Snapshot(ctx context.Context) (string, error)
	PruneMonthlyTotals() error
}

// CacheCleaner expires stale cache entries. *cache.Manager implements it.
type CacheCleaner interface {
	CleanAll() int
}

// Config holds the cron expressions of each job. An empty schedule
// disables the job.
type Config struct {
	SnapshotSchedule string
	CleanupSchedule  string
	Location         *time.Location
	// JobTimeout bounds a single run (default: 1m).
	JobTimeout time.Duration
}

type Scheduler struct {
	ledger Ledger
	caches CacheCleaner
	cfg    Config
	cron   *cron.Cron
	logger *log.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler registers the configured jobs. caches may be nil.
func NewScheduler(ledger Ledger, caches CacheCleaner, cfg Config, logger *log.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = time.Minute
	}
	s := &Scheduler{
		ledger: ledger,
		caches: caches,
		cfg:    cfg,
		logger: logger.WithComponent(log.ComponentJobs),
	}

	cl := cronLogger{s.logger}
	s.cron = cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	jobs := []struct {
		name     string
		schedule string
		run      func(context.Context) error
	}{
		{"snapshot", cfg.SnapshotSchedule, s.RunSnapshot},
		{"cleanup", cfg.CleanupSchedule, s.RunCleanup},
	}
	for _, j := range jobs {
		if j.schedule == "" {
			continue
		}
		if _, err := s.cron.AddFunc(j.schedule, s.wrap(j.name, j.run)); err != nil {
			return nil, fmt.Errorf("unable to schedule %s job: %w", j.name, err)
		}
		s.logger.Info("Job scheduled", "job", j.name, log.FieldSchedule, j.schedule)
	}
	return s, nil
}

func (s *Scheduler) wrap(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
		defer cancel()
		start := time.Now()
		if err := run(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Job failed", "job", name, log.FieldError, err.Error())
			return
		}
		s.logger.InfoContext(ctx, "Job completed", "job", name, log.FieldDuration, time.Since(start).Milliseconds())
	}
}

// RunSnapshot writes a rolling snapshot of the document.
func (s *Scheduler) RunSnapshot(ctx context.Context) error {
	key, err := s.ledger.Snapshot(ctx)
	if err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "Snapshot written", log.FieldKey, key, log.FieldOperation, log.OpSnapshot)
	return nil
}

// RunCleanup prunes expired monthly totals and expired cache entries.
func (s *Scheduler) RunCleanup(ctx context.Context) error {
	if err := s.ledger.PruneMonthlyTotals(); err != nil {
		return fmt.Errorf("prune monthly totals: %w", err)
	}
	if s.caches != nil {
		n := s.caches.CleanAll()
		s.logger.DebugContext(ctx, "Caches cleaned", log.FieldCount, n, log.FieldOperation, log.OpCleanup)
	}
	return nil
}

// Jobs returns how many jobs are scheduled.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start begins running jobs. Returns an error if already running.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler is already running")
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("Scheduler started", log.FieldCount, s.Jobs(), "timezone", s.cfg.Location.String())
	return nil
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
		s.logger.InfoContext(ctx, "Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Run starts the scheduler and stops it when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, stopTimeout time.Duration) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return s.Stop(stopCtx)
}

// cronLogger adapts log.Logger to cron.Logger.
type cronLogger struct{ l *log.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, log.FieldError, err.Error())...)
}
