package leaderboard

import (
	"context"
	"time"
)

// SnapshotRepository persists ranking snapshots.
// Implementation: internal/infrastructure/persistence/postgres.RankingSnapshotRepository.
type SnapshotRepository interface {
	// SaveSnapshot stores a snapshot and its entries atomically.
	SaveSnapshot(ctx context.Context, snapshot *RankingSnapshot) error

	// GetLatestSnapshot returns the newest snapshot or shared.ErrSnapshotNotFound.
	GetLatestSnapshot(ctx context.Context) (*RankingSnapshot, error)

	// GetSnapshotBefore returns the newest snapshot taken at a dataset
	// version lower than version, or shared.ErrSnapshotNotFound.
	GetSnapshotBefore(ctx context.Context, version int64) (*RankingSnapshot, error)

	// DeleteOldSnapshots removes snapshots older than the given instant and
	// returns how many were deleted.
	DeleteOldSnapshots(ctx context.Context, olderThan time.Time) (int, error)
}

// Cache stores computed standings keyed by dataset version and month.
// Implementation: internal/infrastructure/persistence/redis.StandingsCache.
type Cache interface {
	// Get returns the standings cached under key; a miss is (nil, nil).
	Get(ctx context.Context, key CacheKey) (*Standings, error)

	// Set caches st under st.Key().
	Set(ctx context.Context, st *Standings, ttl time.Duration) error

	// Invalidate drops every cached version.
	Invalidate(ctx context.Context) error
}
