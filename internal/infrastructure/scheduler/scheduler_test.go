package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/infrastructure/scheduler"
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts runs" }
func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

type jobMetrics struct {
	mu     sync.Mutex
	failed map[string]int
	total  map[string]int
}

func (m *jobMetrics) ObserveJob(name string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total[name]++
	if err != nil {
		m.failed[name]++
	}
}

func newScheduler(t *testing.T, m scheduler.Metrics) *scheduler.Scheduler {
	t.Helper()
	s, err := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		JobTimeout: time.Second,
		Metrics:    m,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestRunNowRecordsResult(t *testing.T) {
	metrics := &jobMetrics{failed: map[string]int{}, total: map[string]int{}}
	s := newScheduler(t, metrics)

	ok := &countingJob{name: "ok"}
	bad := &countingJob{name: "bad", err: errors.New("db down")}
	require.NoError(t, s.Every(ok, time.Hour))
	require.NoError(t, s.Every(bad, time.Hour))

	res, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "ok", res.JobName)

	res, err = s.RunNow(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "db down", res.Error)

	last, found := s.LastRun("bad")
	require.True(t, found)
	assert.Equal(t, res, last)

	assert.Equal(t, 1, metrics.failed["bad"])
	assert.Equal(t, 1, metrics.total["ok"])

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, scheduler.ErrJobNotFound)
}

func TestRegistrationErrors(t *testing.T) {
	s := newScheduler(t, nil)

	job := &countingJob{name: "dup"}
	require.NoError(t, s.Every(job, time.Minute))
	assert.ErrorIs(t, s.Every(job, time.Minute), scheduler.ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Every(nil, time.Minute), scheduler.ErrNilJob)
	assert.ErrorIs(t, s.Every(&countingJob{name: "zero"}, 0), scheduler.ErrInvalidInterval)
	assert.Error(t, s.Cron(&countingJob{name: "cron"}, "not a cron"))
	require.NoError(t, s.Cron(&countingJob{name: "nightly"}, "0 3 * * *"))
}

func TestIntervalJobRuns(t *testing.T) {
	s := newScheduler(t, nil)

	job := &countingJob{name: "tick"}
	require.NoError(t, s.Every(job, 20*time.Millisecond))
	s.Start()

	assert.Eventually(t, func() bool { return job.runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}
