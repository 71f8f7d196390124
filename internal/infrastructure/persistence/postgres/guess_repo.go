package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/guess"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GUESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// GuessRepository implements guess.Repository for PostgreSQL.
type GuessRepository struct {
	conn *Connection
}

// NewGuessRepository creates a new GuessRepository.
func NewGuessRepository(conn *Connection) *GuessRepository {
	return &GuessRepository{conn: conn}
}

const guessColumns = `user_id, match_id, raw, over25, btts, qualifier, submitted_at`

const upsertGuessSQL = `
	INSERT INTO guesses (user_id, match_id, raw, over25, btts, qualifier, submitted_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (user_id, match_id) DO UPDATE SET
		raw = EXCLUDED.raw,
		over25 = EXCLUDED.over25,
		btts = EXCLUDED.btts,
		qualifier = EXCLUDED.qualifier,
		submitted_at = EXCLUDED.submitted_at
`

// List returns every guess row.
func (r *GuessRepository) List(ctx context.Context) ([]guess.Guess, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Query(ctx, `SELECT `+guessColumns+` FROM guesses`)
	if err != nil {
		return nil, fmt.Errorf("failed to list guesses: %w", err)
	}
	return collectGuesses(rows)
}

// ListByMatch returns the guesses of one match.
func (r *GuessRepository) ListByMatch(ctx context.Context, id shared.MatchID) ([]guess.Guess, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Query(ctx, `SELECT `+guessColumns+` FROM guesses WHERE match_id = $1`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list guesses by match: %w", err)
	}
	return collectGuesses(rows)
}

// Get returns one guess or shared.ErrGuessNotFound.
func (r *GuessRepository) Get(ctx context.Context, key guess.Key) (*guess.Guess, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	g, err := scanGuess(r.conn.QueryRow(ctx,
		`SELECT `+guessColumns+` FROM guesses WHERE user_id = $1 AND match_id = $2`,
		key.UserID.String(), key.MatchID.String(),
	))
	if IsNoRows(err) {
		return nil, shared.ErrGuessNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guess: %w", err)
	}
	return g, nil
}

// SubmitWithCounters upserts the guess and moves one vote on the match
// counters from the previous normalized pick to the new one, in one
// transaction. Both rows are locked so concurrent submissions serialize.
func (r *GuessRepository) SubmitWithCounters(ctx context.Context, g *guess.Guess, teams match.Teams) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		var counters match.VoteCounters
		err := tx.QueryRow(ctx, `
			SELECT votes_a, votes_b, votes_d FROM matches WHERE id = $1 FOR UPDATE
		`, g.MatchID.String()).Scan(&counters.A, &counters.B, &counters.Draw)
		if IsNoRows(err) {
			return shared.ErrMatchNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock match counters: %w", err)
		}

		prev := match.NoPick
		var prevRaw string
		err = tx.QueryRow(ctx, `
			SELECT raw FROM guesses WHERE user_id = $1 AND match_id = $2 FOR UPDATE
		`, g.UserID.String(), g.MatchID.String()).Scan(&prevRaw)
		switch {
		case err == nil:
			prev, _ = match.Normalize(prevRaw, teams)
		case !IsNoRows(err):
			return fmt.Errorf("failed to read previous guess: %w", err)
		}
		next, _ := match.Normalize(g.Raw, teams)

		if _, err := tx.Exec(ctx, upsertGuessSQL, guessArgs(g)...); err != nil {
			return fmt.Errorf("failed to upsert guess: %w", err)
		}

		if prev == next {
			return nil
		}
		updated := counters.Apply(prev, next)
		if _, err := tx.Exec(ctx, `
			UPDATE matches SET votes_a = $2, votes_b = $3, votes_d = $4 WHERE id = $1
		`, g.MatchID.String(), updated.A, updated.B, updated.Draw); err != nil {
			return fmt.Errorf("failed to update vote counters: %w", err)
		}
		return nil
	})
}

// Upsert writes the guess row alone.
func (r *GuessRepository) Upsert(ctx context.Context, g *guess.Guess) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	if _, err := r.conn.Exec(ctx, upsertGuessSQL, guessArgs(g)...); err != nil {
		if IsForeignKeyViolation(err) {
			return shared.WrapError("guess", "Upsert", shared.ErrNotFound, "user or match does not exist", err)
		}
		return fmt.Errorf("failed to upsert guess: %w", err)
	}
	return nil
}

func guessArgs(g *guess.Guess) []any {
	return []any{
		g.UserID.String(),
		g.MatchID.String(),
		g.Raw,
		g.Over25,
		g.BTTS,
		g.Qualifier,
		g.SubmittedAt,
	}
}

func collectGuesses(rows pgx.Rows) ([]guess.Guess, error) {
	defer rows.Close()

	var guesses []guess.Guess
	for rows.Next() {
		g, err := scanGuess(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guess: %w", err)
		}
		guesses = append(guesses, *g)
	}
	return guesses, rows.Err()
}

func scanGuess(row pgx.Row) (*guess.Guess, error) {
	var (
		g               guess.Guess
		userID, matchID string
	)
	if err := row.Scan(&userID, &matchID, &g.Raw, &g.Over25, &g.BTTS, &g.Qualifier, &g.SubmittedAt); err != nil {
		return nil, err
	}
	g.UserID = shared.UserID(userID)
	g.MatchID = shared.MatchID(matchID)
	return &g, nil
}
