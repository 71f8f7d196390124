package pool

import "context"

// StateRepository holds the app-state change counter. Every write to
// users, matches or guesses bumps it; the counter versions cached
// standings and persisted ranking snapshots.
// Implementation: internal/infrastructure/persistence/postgres.AppStateRepository.
type StateRepository interface {
	// Version returns the current counter.
	Version(ctx context.Context) (int64, error)

	// Bump increments the counter and returns the new value.
	Bump(ctx context.Context, reason string) (int64, error)
}
