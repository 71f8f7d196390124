package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/query"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/leaderboard"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD RANKING COMMAND
// Recomputes the standings, refreshes the cache and persists a ranking
// snapshot. The snapshot only feeds the arrows of later versions.
// ══════════════════════════════════════════════════════════════════════════════

// RebuildRankingCommand triggers a rebuild.
type RebuildRankingCommand struct {
	// Reason is logged and attached to the rebuilt event.
	Reason string

	// Force persists a snapshot even when one exists for the version.
	Force bool
}

// RebuildRankingResult describes the rebuild.
type RebuildRankingResult struct {
	Version      int64         `json:"version"`
	Participants int           `json:"participants"`
	SnapshotID   string        `json:"snapshot_id,omitempty"`
	Persisted    bool          `json:"persisted"`
	Pruned       int           `json:"pruned"`
	Duration     time.Duration `json:"duration"`
}

// RebuildRankingConfig tunes snapshot persistence.
type RebuildRankingConfig struct {
	// PersistSnapshots turns snapshot writes on.
	PersistSnapshots bool

	// Retention prunes snapshots older than this; zero keeps everything.
	Retention time.Duration
}

// DefaultRebuildRankingConfig returns default configuration.
func DefaultRebuildRankingConfig() RebuildRankingConfig {
	return RebuildRankingConfig{
		PersistSnapshots: true,
		Retention:        30 * 24 * time.Hour,
	}
}

// RebuildRankingHandler handles RebuildRankingCommand.
type RebuildRankingHandler struct {
	standings *query.StandingsService
	snapshots leaderboard.SnapshotRepository
	publisher shared.EventPublisher
	notifier  *Notifier
	config    RebuildRankingConfig
}

// NewRebuildRankingHandler creates a new RebuildRankingHandler. snapshots
// and publisher may be nil.
func NewRebuildRankingHandler(
	standings *query.StandingsService,
	snapshots leaderboard.SnapshotRepository,
	publisher shared.EventPublisher,
	notifier *Notifier,
	config RebuildRankingConfig,
) *RebuildRankingHandler {
	return &RebuildRankingHandler{
		standings: standings,
		snapshots: snapshots,
		publisher: publisher,
		notifier:  notifier,
		config:    config,
	}
}

// Handle executes the rebuild.
func (h *RebuildRankingHandler) Handle(ctx context.Context, cmd RebuildRankingCommand) (res *RebuildRankingResult, err error) {
	start := time.Now()
	defer func() { h.notifier.observe(ctx, "RebuildRanking", start, err) }()

	st, err := h.standings.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	res = &RebuildRankingResult{Version: st.Version, Participants: len(st.Rows)}

	if h.snapshots != nil && h.config.PersistSnapshots {
		if err := h.persist(ctx, st, cmd.Force, res); err != nil {
			return nil, err
		}
	}

	if h.publisher != nil && res.Persisted {
		ev := shared.RankingRebuiltEvent{
			BaseEvent:    shared.NewBaseEvent(shared.EventRankingRebuilt, res.SnapshotID, h.notifier.Now()),
			SnapshotID:   res.SnapshotID,
			Version:      res.Version,
			Participants: res.Participants,
		}
		if err := h.publisher.Publish(ev); err != nil {
			h.notifier.logger.Warn("ranking.rebuilt publish failed", logger.Err(err))
		}
	}

	res.Duration = time.Since(start)
	h.notifier.logger.Info("ranking rebuilt",
		logger.String("reason", cmd.Reason),
		logger.DatasetVersion(res.Version),
		logger.Int("participants", res.Participants),
		logger.Bool("persisted", res.Persisted),
		logger.Int("pruned", res.Pruned),
	)
	return res, nil
}

// persist stores one snapshot per dataset version and prunes old ones.
func (h *RebuildRankingHandler) persist(ctx context.Context, st *leaderboard.Standings, force bool, res *RebuildRankingResult) error {
	now := h.notifier.Now()

	latest, err := h.snapshots.GetLatestSnapshot(ctx)
	switch {
	case err == nil && latest.Version == st.Version && !force:
		res.SnapshotID = latest.ID
		return nil
	case err != nil && !shared.IsNotFound(err):
		return shared.WrapError("leaderboard", "RebuildRanking", shared.ErrServiceUnavailable, "failed to read latest snapshot", err)
	}

	snap := leaderboard.NewRankingSnapshot(uuid.NewString(), st, now)
	if err := h.snapshots.SaveSnapshot(ctx, snap); err != nil {
		return shared.WrapError("leaderboard", "RebuildRanking", shared.ErrServiceUnavailable, "failed to save snapshot", err)
	}
	res.SnapshotID = snap.ID
	res.Persisted = true

	if h.config.Retention > 0 {
		n, err := h.snapshots.DeleteOldSnapshots(ctx, now.Add(-h.config.Retention))
		if err != nil {
			h.notifier.logger.Warn("snapshot pruning failed", logger.Err(err))
			return nil
		}
		res.Pruned = n
	}
	return nil
}
