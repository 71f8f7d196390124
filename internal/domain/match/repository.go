package match

import (
	"context"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
)

// Repository persists matches.
// Implementations: internal/infrastructure/persistence/postgres.MatchRepository.
type Repository interface {
	// GetByID returns a match or shared.ErrMatchNotFound.
	GetByID(ctx context.Context, id shared.MatchID) (*Match, error)

	// List returns every match, including ones without a deadline.
	List(ctx context.Context) ([]Match, error)

	// Create inserts a new match.
	Create(ctx context.Context, m *Match) error

	// SaveResult stores the outcome of a match.
	SaveResult(ctx context.Context, id shared.MatchID, r Result) error

	// Update stores the editable fields of m: teams, logos, competition,
	// round, deadline, draw and leg flags, and the re-encoded result labels.
	Update(ctx context.Context, m *Match) error
}
