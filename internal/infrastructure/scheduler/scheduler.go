// Package scheduler runs periodic background jobs on top of gocron.
// Jobs implement a small interface so RunNow can execute one outside its
// schedule with the same timeout, logging and metrics.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job defines the interface that all scheduled jobs must implement.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job.
	// The context is cancelled when the scheduler is stopping.
	Run(ctx context.Context) error

	// Description returns a human-readable description of the job.
	Description() string
}

// JobResult contains the result of a job execution.
type JobResult struct {
	JobName     string        `json:"job_name"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
}

// Metrics records job executions.
// Implementation: internal/infrastructure/metrics.Registry.
type Metrics interface {
	ObserveJob(name string, d time.Duration, err error)
}

var (
	// ErrNilJob is returned when trying to register a nil job.
	ErrNilJob = errors.New("job cannot be nil")

	// ErrJobAlreadyExists is returned when a job with the same name already exists.
	ErrJobAlreadyExists = errors.New("job already exists")

	// ErrJobNotFound is returned when a job is not found.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidInterval is returned for non-positive intervals.
	ErrInvalidInterval = errors.New("interval must be positive")
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Scheduler manages and executes scheduled jobs.
type Scheduler struct {
	cron    gocron.Scheduler
	logger  *slog.Logger
	metrics Metrics
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	jobs     map[string]Job
	lastRuns map[string]JobResult
}

// SchedulerConfig contains configuration for the Scheduler.
type SchedulerConfig struct {
	Logger *slog.Logger

	// Timezone for schedule calculations (default: UTC).
	Timezone *time.Location

	// JobTimeout bounds one execution; zero means no bound.
	JobTimeout time.Duration

	Metrics Metrics
}

// DefaultSchedulerConfig returns sensible defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Logger:     slog.Default(),
		Timezone:   time.UTC,
		JobTimeout: 2 * time.Minute,
	}
}

// NewScheduler creates a new Scheduler with the given configuration.
func NewScheduler(config SchedulerConfig) (*Scheduler, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timezone == nil {
		config.Timezone = time.UTC
	}
	logger := config.Logger.With("component", "scheduler")

	cron, err := gocron.NewScheduler(
		gocron.WithLocation(config.Timezone),
		gocron.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:     cron,
		logger:   logger,
		metrics:  config.Metrics,
		timeout:  config.JobTimeout,
		ctx:      ctx,
		cancel:   cancel,
		jobs:     make(map[string]Job),
		lastRuns: make(map[string]JobResult),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// JOB REGISTRATION
// ══════════════════════════════════════════════════════════════════════════════

// Every registers job to run at a fixed interval. Runs never overlap: a
// tick that arrives while the previous run is still going is skipped.
func (s *Scheduler) Every(job Job, interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	return s.register(job, gocron.DurationJob(interval), fmt.Sprintf("@every %s", interval))
}

// Cron registers job on a standard five-field cron expression.
func (s *Scheduler) Cron(job Job, expr string) error {
	return s.register(job, gocron.CronJob(expr, false), expr)
}

func (s *Scheduler) register(job Job, def gocron.JobDefinition, schedule string) error {
	if job == nil {
		return ErrNilJob
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	_, err := s.cron.NewJob(def,
		gocron.NewTask(func() { s.execute(s.ctx, job) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.jobs[name] = job

	s.logger.Info("job registered",
		"job", name,
		"description", job.Description(),
		"schedule", schedule,
	)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start begins running the registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs_count", s.jobCount())
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	s.cancel()
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) jobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// ══════════════════════════════════════════════════════════════════════════════
// EXECUTION
// ══════════════════════════════════════════════════════════════════════════════

// RunNow immediately executes a job by name, ignoring its schedule.
func (s *Scheduler) RunNow(ctx context.Context, jobName string) (JobResult, error) {
	s.mu.RLock()
	job, ok := s.jobs[jobName]
	s.mu.RUnlock()
	if !ok {
		return JobResult{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}
	return s.execute(ctx, job), nil
}

// LastRun returns the latest result of a job.
func (s *Scheduler) LastRun(jobName string) (JobResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.lastRuns[jobName]
	return r, ok
}

func (s *Scheduler) execute(ctx context.Context, job Job) JobResult {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	name := job.Name()
	startedAt := time.Now()
	s.logger.Debug("job started", "job", name)

	err := job.Run(ctx)

	completedAt := time.Now()
	result := JobResult{
		JobName:     name,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Duration:    completedAt.Sub(startedAt),
		Success:     err == nil,
	}
	if err != nil {
		result.Error = err.Error()
	}

	s.mu.Lock()
	s.lastRuns[name] = result
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ObserveJob(name, result.Duration, err)
	}

	if err != nil {
		s.logger.Error("job failed",
			"job", name,
			"duration", result.Duration.String(),
			"error", err,
		)
	} else {
		s.logger.Info("job completed",
			"job", name,
			"duration", result.Duration.String(),
		)
	}
	return result
}
