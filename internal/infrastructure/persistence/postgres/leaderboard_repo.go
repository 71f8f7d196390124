package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/leaderboard"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING SNAPSHOT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RankingSnapshotRepository implements leaderboard.SnapshotRepository for PostgreSQL.
type RankingSnapshotRepository struct {
	conn *Connection
}

// NewRankingSnapshotRepository creates a new RankingSnapshotRepository.
func NewRankingSnapshotRepository(conn *Connection) *RankingSnapshotRepository {
	return &RankingSnapshotRepository{conn: conn}
}

// SaveSnapshot saves a snapshot and its entries in one transaction.
func (r *RankingSnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *leaderboard.RankingSnapshot) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO ranking_snapshots (id, version, snapshot_at, participants)
			VALUES ($1, $2, $3, $4)
		`, snapshot.ID, snapshot.Version, snapshot.SnapshotAt, snapshot.Participants)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}

		if len(snapshot.Entries) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, e := range snapshot.Entries {
			batch.Queue(`
				INSERT INTO ranking_snapshot_entries (snapshot_id, user_id, rank, points)
				VALUES ($1, $2, $3, $4)
			`, snapshot.ID, e.UserID.String(), int(e.Rank), e.Points)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for range snapshot.Entries {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("failed to insert entry: %w", err)
			}
		}
		return nil
	})
}

// GetLatestSnapshot returns the newest snapshot.
func (r *RankingSnapshotRepository) GetLatestSnapshot(ctx context.Context) (*leaderboard.RankingSnapshot, error) {
	return r.getOne(ctx, `
		SELECT id, version, snapshot_at, participants
		FROM ranking_snapshots
		ORDER BY version DESC, snapshot_at DESC
		LIMIT 1
	`)
}

// GetSnapshotBefore returns the newest snapshot taken at a lower dataset version.
func (r *RankingSnapshotRepository) GetSnapshotBefore(ctx context.Context, version int64) (*leaderboard.RankingSnapshot, error) {
	return r.getOne(ctx, `
		SELECT id, version, snapshot_at, participants
		FROM ranking_snapshots
		WHERE version < $1
		ORDER BY version DESC, snapshot_at DESC
		LIMIT 1
	`, version)
}

// DeleteOldSnapshots deletes snapshots older than a specific time. Entries
// go with them through the foreign key cascade.
func (r *RankingSnapshotRepository) DeleteOldSnapshots(ctx context.Context, olderThan time.Time) (int, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	result, err := r.conn.Exec(ctx, `DELETE FROM ranking_snapshots WHERE snapshot_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func (r *RankingSnapshotRepository) getOne(ctx context.Context, sql string, args ...any) (*leaderboard.RankingSnapshot, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var s leaderboard.RankingSnapshot
	err := r.conn.QueryRow(ctx, sql, args...).Scan(&s.ID, &s.Version, &s.SnapshotAt, &s.Participants)
	if IsNoRows(err) {
		return nil, shared.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	entries, err := r.getSnapshotEntries(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Entries = entries
	s.RebuildIndex()
	return &s, nil
}

func (r *RankingSnapshotRepository) getSnapshotEntries(ctx context.Context, snapshotID string) ([]leaderboard.SnapshotEntry, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT user_id, rank, points
		FROM ranking_snapshot_entries
		WHERE snapshot_id = $1
		ORDER BY rank, user_id
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot entries: %w", err)
	}
	defer rows.Close()

	var entries []leaderboard.SnapshotEntry
	for rows.Next() {
		var (
			e      leaderboard.SnapshotEntry
			userID string
			rank   int
		)
		if err := rows.Scan(&userID, &rank, &e.Points); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.UserID = shared.UserID(userID)
		e.Rank = leaderboard.Rank(rank)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
