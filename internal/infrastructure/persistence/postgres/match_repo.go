package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MATCH REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// MatchRepository implements match.Repository for PostgreSQL.
type MatchRepository struct {
	conn *Connection
}

// NewMatchRepository creates a new MatchRepository.
func NewMatchRepository(conn *Connection) *MatchRepository {
	return &MatchRepository{conn: conn}
}

const matchColumns = `
	id, number, team_a, team_b, team_a_logo, team_b_logo, competition, round,
	deadline, created_at, allow_draw, leg_type, ask_qualifier,
	winner, goals_a, goals_b, qualifier, finished_at,
	votes_a, votes_b, votes_d`

// GetByID returns a match or shared.ErrMatchNotFound.
func (r *MatchRepository) GetByID(ctx context.Context, id shared.MatchID) (*match.Match, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	m, err := scanMatch(r.conn.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id.String()))
	if IsNoRows(err) {
		return nil, shared.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

// List returns every match, including ones without a deadline.
func (r *MatchRepository) List(ctx context.Context) ([]match.Match, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Query(ctx, `SELECT `+matchColumns+` FROM matches ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []match.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// Create inserts a new match and fills in the assigned Number.
func (r *MatchRepository) Create(ctx context.Context, m *match.Match) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var number int64
	err := r.conn.QueryRow(ctx, `
		INSERT INTO matches (
			id, team_a, team_b, team_a_logo, team_b_logo, competition, round,
			deadline, created_at, allow_draw, leg_type, ask_qualifier
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING number
	`,
		m.ID.String(),
		m.TeamA,
		m.TeamB,
		m.TeamALogo,
		m.TeamBLogo,
		m.Competition,
		m.Round,
		m.Deadline,
		m.CreatedAt,
		m.AllowDraw,
		string(m.LegType),
		m.AskQualifier,
	).Scan(&number)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("match", "Create", shared.ErrAlreadyExists, "match already exists", err)
		}
		return fmt.Errorf("failed to create match: %w", err)
	}

	m.Number = int(number)
	return nil
}

// SaveResult stores the outcome of a match.
func (r *MatchRepository) SaveResult(ctx context.Context, id shared.MatchID, res match.Result) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := r.conn.Exec(ctx, `
		UPDATE matches
		SET winner = $2, goals_a = $3, goals_b = $4, qualifier = $5, finished_at = $6
		WHERE id = $1
	`, id.String(), res.Winner, res.GoalsA, res.GoalsB, res.Qualifier, nullTime(res.FinishedAt))
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrMatchNotFound
	}
	return nil
}

// Update stores the editable fields of m.
func (r *MatchRepository) Update(ctx context.Context, m *match.Match) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := r.conn.Exec(ctx, `
		UPDATE matches
		SET team_a = $2, team_b = $3, team_a_logo = $4, team_b_logo = $5,
		    competition = $6, round = $7, deadline = $8, allow_draw = $9,
		    leg_type = $10, ask_qualifier = $11, winner = $12, qualifier = $13
		WHERE id = $1
	`,
		m.ID.String(),
		m.TeamA,
		m.TeamB,
		m.TeamALogo,
		m.TeamBLogo,
		m.Competition,
		m.Round,
		m.Deadline,
		m.AllowDraw,
		string(m.LegType),
		m.AskQualifier,
		m.Winner,
		m.Qualifier,
	)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrMatchNotFound
	}
	return nil
}

func scanMatch(row pgx.Row) (*match.Match, error) {
	var (
		m          match.Match
		id, leg    string
		number     int64
		deadline   *time.Time
		finishedAt *time.Time
	)
	err := row.Scan(
		&id,
		&number,
		&m.TeamA,
		&m.TeamB,
		&m.TeamALogo,
		&m.TeamBLogo,
		&m.Competition,
		&m.Round,
		&deadline,
		&m.CreatedAt,
		&m.AllowDraw,
		&leg,
		&m.AskQualifier,
		&m.Winner,
		&m.GoalsA,
		&m.GoalsB,
		&m.Qualifier,
		&finishedAt,
		&m.Counters.A,
		&m.Counters.B,
		&m.Counters.Draw,
	)
	if err != nil {
		return nil, err
	}

	m.ID = shared.MatchID(id)
	m.Number = int(number)
	m.LegType = match.LegType(leg)
	if deadline != nil {
		m.Deadline = *deadline
	}
	if finishedAt != nil {
		m.FinishedAt = *finishedAt
	}
	return &m, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
