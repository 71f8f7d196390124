package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION SUPPORT
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator handles database migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a new migrator with embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns all applied migrations.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Query(ctx, fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

// Migrate applies all pending migrations and returns how many ran.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return 0, err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		if mig.UpSQL == "" {
			return ran, fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		err := m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			_, err := tx.Exec(ctx, fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName), mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return ran, fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
		ran++
	}
	return ran, nil
}

// Rollback rolls back the last applied migration.
func (m *Migrator) Rollback(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	var last int
	for v := range applied {
		last = max(last, v)
	}
	if last == 0 {
		return nil
	}

	var migration *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == last {
			migration = &m.migrations[i]
			break
		}
	}
	if migration == nil || migration.DownSQL == "" {
		return fmt.Errorf("%w: missing down SQL for migration %d", ErrMigrationFailed, last)
	}

	return m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, migration.DownSQL); err != nil {
			return fmt.Errorf("failed to rollback migration %d: %w", last, err)
		}
		_, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE version = $1", m.tableName), last)
		return err
	})
}

// Status returns the migration status.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)
	for i := range result {
		if at, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = at
		}
	}
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_pool", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_app_state", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_ranking_snapshots", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// 001: users, matches, guesses
// ──────────────────────────────────────────────────────────────────────────────

const migration001Up = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    username TEXT NOT NULL DEFAULT '',
    photo TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    last_rank INTEGER NOT NULL DEFAULT 0,
    debts INTEGER NOT NULL DEFAULT 0,

    CONSTRAINT valid_debts CHECK (debts >= 0)
);

CREATE TABLE IF NOT EXISTS matches (
    id TEXT PRIMARY KEY,
    number BIGSERIAL UNIQUE,
    team_a TEXT NOT NULL,
    team_b TEXT NOT NULL,
    team_a_logo TEXT NOT NULL DEFAULT '',
    team_b_logo TEXT NOT NULL DEFAULT '',
    competition TEXT NOT NULL DEFAULT '',
    round TEXT NOT NULL DEFAULT '',
    deadline TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    allow_draw BOOLEAN NOT NULL DEFAULT TRUE,
    leg_type TEXT NOT NULL DEFAULT '',
    ask_qualifier BOOLEAN NOT NULL DEFAULT FALSE,

    winner TEXT NOT NULL DEFAULT '',
    goals_a INTEGER,
    goals_b INTEGER,
    qualifier TEXT NOT NULL DEFAULT '',
    finished_at TIMESTAMP WITH TIME ZONE,

    -- Denormalized vote counters, best effort, never read by the ranking.
    votes_a INTEGER NOT NULL DEFAULT 0,
    votes_b INTEGER NOT NULL DEFAULT 0,
    votes_d INTEGER NOT NULL DEFAULT 0,

    CONSTRAINT valid_goals CHECK (COALESCE(goals_a, 0) >= 0 AND COALESCE(goals_b, 0) >= 0),
    CONSTRAINT distinct_teams CHECK (lower(team_a) <> lower(team_b))
);

CREATE INDEX IF NOT EXISTS idx_matches_deadline ON matches(deadline, created_at, id);

CREATE TABLE IF NOT EXISTS guesses (
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    match_id TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
    raw TEXT NOT NULL DEFAULT '',
    over25 BOOLEAN,
    btts BOOLEAN,
    qualifier TEXT NOT NULL DEFAULT '',
    submitted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, match_id)
);

CREATE INDEX IF NOT EXISTS idx_guesses_match_id ON guesses(match_id);
`

const migration001Down = `
DROP TABLE IF EXISTS guesses;
DROP TABLE IF EXISTS matches;
DROP TABLE IF EXISTS users;
`

// ──────────────────────────────────────────────────────────────────────────────
// 002: app state change counter
// ──────────────────────────────────────────────────────────────────────────────

const migration002Up = `
CREATE TABLE IF NOT EXISTS app_state (
    id SMALLINT PRIMARY KEY DEFAULT 1,
    change_counter BIGINT NOT NULL DEFAULT 0,
    last_reason TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT single_row CHECK (id = 1)
);

INSERT INTO app_state (id) VALUES (1) ON CONFLICT (id) DO NOTHING;
`

const migration002Down = `
DROP TABLE IF EXISTS app_state;
`

// ──────────────────────────────────────────────────────────────────────────────
// 003: ranking snapshots
// ──────────────────────────────────────────────────────────────────────────────

const migration003Up = `
CREATE TABLE IF NOT EXISTS ranking_snapshots (
    id TEXT PRIMARY KEY,
    version BIGINT NOT NULL,
    snapshot_at TIMESTAMP WITH TIME ZONE NOT NULL,
    participants INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_ranking_snapshots_version ON ranking_snapshots(version DESC, snapshot_at DESC);
CREATE INDEX IF NOT EXISTS idx_ranking_snapshots_at ON ranking_snapshots(snapshot_at);

CREATE TABLE IF NOT EXISTS ranking_snapshot_entries (
    snapshot_id TEXT NOT NULL REFERENCES ranking_snapshots(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    rank INTEGER NOT NULL,
    points INTEGER NOT NULL,

    PRIMARY KEY (snapshot_id, user_id)
);
`

const migration003Down = `
DROP TABLE IF EXISTS ranking_snapshot_entries;
DROP TABLE IF EXISTS ranking_snapshots;
`
