// Package scheduler runs periodic background jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// JobStatus represents the outcome of a job run
type JobStatus string

const (
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is a unit of periodic work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

// Name returns the job name
func (f JobFunc) Name() string { return f.JobName }

// Run calls Fn
func (f JobFunc) Run(ctx context.Context) error { return f.Fn(ctx) }

// RunRecord describes one run of a job
type RunRecord struct {
	Status      JobStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// Config holds scheduler configuration
type Config struct {
	Interval   time.Duration
	JobTimeout time.Duration
	RunOnStart bool
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Interval:   time.Hour,
		JobTimeout: 10 * time.Minute,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.JobTimeout < 0 {
		return fmt.Errorf("%w: job timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Scheduler runs one job on a fixed interval. Runs never overlap: a tick that
// arrives while the previous run is still going is skipped.
type Scheduler struct {
	config Config
	job    Job
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	inFlight  bool
	lastRun   *RunRecord
	runs      int
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config Config, job Job, logger *zap.Logger) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config: config,
		job:    job,
		logger: logger.With(zap.String("job", job.Name())),
	}, nil
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop stops the scheduler and waits for an in-flight run to finish
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// Name returns the scheduled job's name
func (s *Scheduler) Name() string {
	return s.job.Name()
}

// IsRunning reports whether the scheduler has been started
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// LastRun returns a copy of the most recent run record, or nil
func (s *Scheduler) LastRun() *RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return nil
	}
	record := *s.lastRun
	return &record
}

// Runs returns how many runs have started
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// RunNow runs the job synchronously, outside the ticker
func (s *Scheduler) RunNow(ctx context.Context) error {
	return s.execute(ctx)
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if err := s.execute(ctx); errors.Is(err, ErrJobInProgress) {
		s.logger.Debug("Skipping tick, previous run still in progress")
	}
}

func (s *Scheduler) execute(ctx context.Context) (err error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return ErrJobInProgress
	}
	s.inFlight = true
	s.runs++
	record := &RunRecord{Status: JobStatusRunning, StartedAt: time.Now()}
	s.lastRun = record
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
		s.finish(record, err)
	}()

	jobCtx := ctx
	if s.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}

	s.logger.Debug("Running job")
	telemetry.WithProfilingLabels(jobCtx, map[string]string{
		telemetry.ProfilingLabelJob: s.job.Name(),
	}, func(ctx context.Context) {
		err = s.job.Run(ctx)
	})
	return err
}

func (s *Scheduler) finish(record *RunRecord, err error) {
	now := time.Now()

	s.mu.Lock()
	s.inFlight = false
	record.CompletedAt = &now
	if err != nil {
		record.Status = JobStatusFailed
		record.Error = err.Error()
	} else {
		record.Status = JobStatusSuccess
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Job failed",
			zap.Duration("duration", now.Sub(record.StartedAt)),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("Job completed successfully",
		zap.Duration("duration", now.Sub(record.StartedAt)),
	)
}
