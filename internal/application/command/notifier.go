// Package command contains write operations (CQRS - Commands).
// Every successful write bumps the dataset version and announces
// dataset.changed so readers recompute from a fresh snapshot.
package command

import (
	"context"
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/pool"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/logger"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/retry"
)

// Metrics records write-side measurements.
// Implementation: internal/infrastructure/metrics.Registry.
type Metrics interface {
	ObserveCommand(name string, d time.Duration, err error)
}

// ══════════════════════════════════════════════════════════════════════════════
// CHANGE NOTIFIER
// ══════════════════════════════════════════════════════════════════════════════

// Notifier bumps the app-state counter and publishes dataset.changed.
type Notifier struct {
	state     pool.StateRepository
	publisher shared.EventPublisher
	retrier   *retry.Retrier
	metrics   Metrics
	logger    *logger.Logger
	now       func() time.Time
}

// NewNotifier creates a notifier. publisher and metrics may be nil.
func NewNotifier(state pool.StateRepository, publisher shared.EventPublisher, metrics Metrics, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Discard()
	}
	return &Notifier{
		state:     state,
		publisher: publisher,
		retrier:   retry.New(retry.WithMaxAttempts(3), retry.WithInitialDelay(20*time.Millisecond)),
		metrics:   metrics,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock returns a copy of n using now as its clock.
func (n *Notifier) WithClock(now func() time.Time) *Notifier {
	c := *n
	c.now = now
	return &c
}

// Now is the notifier clock, shared by the handlers for write timestamps.
func (n *Notifier) Now() time.Time {
	return n.now().UTC()
}

// DatasetChanged bumps the version after a write and publishes the change.
// A failed bump is an error: cached standings would otherwise stay on the
// old version. A failed publish is only logged.
func (n *Notifier) DatasetChanged(ctx context.Context, reason shared.EventType, aggregateID string) (int64, error) {
	version, err := retry.DoWithData(ctx, n.retrier, func(ctx context.Context) (int64, error) {
		return n.state.Bump(ctx, string(reason))
	})
	if err != nil {
		return 0, shared.WrapError("command", "BumpVersion", shared.ErrServiceUnavailable, "write stored but dataset version not bumped", err)
	}

	if n.publisher != nil {
		ev := shared.NewDatasetChangedEvent(string(reason), aggregateID, version, n.Now())
		if err := n.publisher.Publish(ev); err != nil {
			n.logger.Warn("dataset.changed publish failed",
				logger.DatasetVersion(version),
				logger.String("reason", string(reason)),
				logger.Err(err),
			)
		}
	}
	return version, nil
}

// observe records the duration and outcome of one command.
func (n *Notifier) observe(ctx context.Context, name string, start time.Time, err error) {
	elapsed := time.Since(start)
	if n.metrics != nil {
		n.metrics.ObserveCommand(name, elapsed, err)
	}
	if err != nil {
		n.logger.ErrorContext(ctx, "command failed", logger.Operation(name), logger.Latency(elapsed), logger.Err(err))
		return
	}
	n.logger.InfoContext(ctx, "command executed", logger.Operation(name), logger.Latency(elapsed))
}
