// Package jobs contains the scheduled jobs of the bolão service.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/command"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/leaderboard"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD RANKING JOB
// Periodic safety net behind the dataset.changed handler: recomputes the
// standings, warms the cache and persists a snapshot when the dataset moved
// since the last one.
// ══════════════════════════════════════════════════════════════════════════════

// Rebuilder recomputes and persists the ranking.
type Rebuilder interface {
	Handle(ctx context.Context, cmd command.RebuildRankingCommand) (*command.RebuildRankingResult, error)
}

// RebuildStats contains statistics from a rebuild run.
type RebuildStats struct {
	StartedAt    time.Time
	Duration     time.Duration
	Version      int64
	Participants int
	Persisted    bool
	Pruned       int
	RankChanges  int
	NewEntries   int
}

// RebuildRankingJob implements scheduler.Job.
type RebuildRankingJob struct {
	rebuilder Rebuilder
	snapshots leaderboard.SnapshotRepository
	logger    *slog.Logger

	lastStats atomic.Pointer[RebuildStats]
}

// NewRebuildRankingJob creates the job. snapshots may be nil; it is only
// used to report how positions moved.
func NewRebuildRankingJob(rebuilder Rebuilder, snapshots leaderboard.SnapshotRepository, logger *slog.Logger) *RebuildRankingJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RebuildRankingJob{
		rebuilder: rebuilder,
		snapshots: snapshots,
		logger:    logger.With("job", "rebuild_ranking"),
	}
}

// Name returns the job name.
func (j *RebuildRankingJob) Name() string {
	return "rebuild_ranking"
}

// Description returns a human-readable description.
func (j *RebuildRankingJob) Description() string {
	return "Recomputes the standings, warms the cache and persists a ranking snapshot"
}

// Run executes the rebuild job.
func (j *RebuildRankingJob) Run(ctx context.Context) error {
	stats := &RebuildStats{StartedAt: time.Now()}

	res, err := j.rebuilder.Handle(ctx, command.RebuildRankingCommand{Reason: "scheduled"})
	if err != nil {
		return fmt.Errorf("rebuild ranking: %w", err)
	}

	stats.Version = res.Version
	stats.Participants = res.Participants
	stats.Persisted = res.Persisted
	stats.Pruned = res.Pruned

	if res.Persisted {
		j.diff(ctx, res.Version, stats)
	}

	stats.Duration = time.Since(stats.StartedAt)
	j.lastStats.Store(stats)

	j.logger.Info("ranking rebuilt",
		"version", stats.Version,
		"participants", stats.Participants,
		"persisted", stats.Persisted,
		"pruned", stats.Pruned,
		"rank_changes", stats.RankChanges,
		"new_entries", stats.NewEntries,
		"duration", stats.Duration.String(),
	)
	return nil
}

// diff compares the snapshot just written with the one before it.
func (j *RebuildRankingJob) diff(ctx context.Context, version int64, stats *RebuildStats) {
	if j.snapshots == nil {
		return
	}

	latest, err := j.snapshots.GetLatestSnapshot(ctx)
	if err != nil {
		j.logger.Warn("failed to load latest snapshot", "error", err)
		return
	}
	previous, err := j.snapshots.GetSnapshotBefore(ctx, version)
	if err != nil && !shared.IsNotFound(err) {
		j.logger.Warn("failed to load previous snapshot", "error", err)
		return
	}

	d := leaderboard.CalculateDiff(previous, latest)
	stats.RankChanges = len(d.RankChanges)
	stats.NewEntries = len(d.NewEntries)
}

// LastStats returns the statistics of the latest successful run.
func (j *RebuildRankingJob) LastStats() *RebuildStats {
	return j.lastStats.Load()
}
