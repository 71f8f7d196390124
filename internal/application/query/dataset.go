package query

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/guess"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/pool"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/user"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// DATASET LOADER
// Fetches the three collections in full and builds the pool snapshot every
// read-side view is computed from.
// ══════════════════════════════════════════════════════════════════════════════

// DatasetLoader reads users, matches and guesses at one dataset version.
type DatasetLoader struct {
	users   user.Repository
	matches match.Repository
	guesses guess.Repository
	state   pool.StateRepository

	retrier *retry.Retrier
	loc     *time.Location
	now     func() time.Time
}

// LoaderOption configures a DatasetLoader.
type LoaderOption func(*DatasetLoader)

// WithClock overrides the instant snapshots are built at.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *DatasetLoader) { l.now = now }
}

// WithRetrier overrides the retry policy of the fetches.
func WithRetrier(r *retry.Retrier) LoaderOption {
	return func(l *DatasetLoader) { l.retrier = r }
}

// NewDatasetLoader creates a loader. loc is the calendar used for months
// and date labels.
func NewDatasetLoader(
	users user.Repository,
	matches match.Repository,
	guesses guess.Repository,
	state pool.StateRepository,
	loc *time.Location,
	opts ...LoaderOption,
) *DatasetLoader {
	l := &DatasetLoader{
		users:   users,
		matches: matches,
		guesses: guesses,
		state:   state,
		retrier: retry.DatabaseRetrier(isTransient),
		loc:     loc,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// isTransient keeps cancellations and domain errors out of the retry loop.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var de *shared.DomainError
	return !errors.As(err, &de)
}

// Version returns the current dataset version.
func (l *DatasetLoader) Version(ctx context.Context) (int64, error) {
	return retry.DoWithData(ctx, l.retrier, l.state.Version)
}

// Load reads the version, then fetches the three collections concurrently.
// The version is read first so a dataset may carry an older label than its
// contents but never a newer one.
func (l *DatasetLoader) Load(ctx context.Context) (pool.Dataset, error) {
	var ds pool.Dataset
	version, err := l.Version(ctx)
	if err != nil {
		return pool.Dataset{}, shared.WrapError("query", "LoadDataset", shared.ErrServiceUnavailable, "failed to read dataset version", err)
	}
	ds.Version = version

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ds.Users, err = retry.DoWithData(gctx, l.retrier, l.users.List)
		return err
	})
	g.Go(func() (err error) {
		ds.Matches, err = retry.DoWithData(gctx, l.retrier, l.matches.List)
		return err
	})
	g.Go(func() (err error) {
		ds.Guesses, err = retry.DoWithData(gctx, l.retrier, l.guesses.List)
		return err
	})

	if err := g.Wait(); err != nil {
		return pool.Dataset{}, shared.WrapError("query", "LoadDataset", shared.ErrServiceUnavailable, "failed to load dataset", err)
	}
	return ds, nil
}

// Snapshot loads the dataset and indexes it at the current instant.
func (l *DatasetLoader) Snapshot(ctx context.Context) (*pool.Snapshot, error) {
	ds, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return pool.Build(ds, l.now(), l.loc), nil
}

// Now is the loader clock.
func (l *DatasetLoader) Now() time.Time {
	return l.now()
}
