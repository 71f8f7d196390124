package postgres

import (
	"context"
	"fmt"
)

// AppStateRepository implements pool.StateRepository over the single-row
// app_state table.
type AppStateRepository struct {
	conn *Connection
}

// NewAppStateRepository creates a new AppStateRepository.
func NewAppStateRepository(conn *Connection) *AppStateRepository {
	return &AppStateRepository{conn: conn}
}

// Version returns the current change counter.
func (r *AppStateRepository) Version(ctx context.Context) (int64, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var v int64
	err := r.conn.QueryRow(ctx, `SELECT change_counter FROM app_state WHERE id = 1`).Scan(&v)
	if IsNoRows(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read change counter: %w", err)
	}
	return v, nil
}

// Bump increments the change counter and returns the new value. The row is
// created on first use so a database without the seed row still works.
func (r *AppStateRepository) Bump(ctx context.Context, reason string) (int64, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var v int64
	err := r.conn.QueryRow(ctx, `
		INSERT INTO app_state (id, change_counter, last_reason, updated_at)
		VALUES (1, 1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET
			change_counter = app_state.change_counter + 1,
			last_reason = EXCLUDED.last_reason,
			updated_at = EXCLUDED.updated_at
		RETURNING change_counter
	`, reason).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to bump change counter: %w", err)
	}
	return v, nil
}
