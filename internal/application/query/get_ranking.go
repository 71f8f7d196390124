package query

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/leaderboard"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/medal"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/logger"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET RANKING QUERY
// General standings, monthly ranking and the last-update banner.
// ══════════════════════════════════════════════════════════════════════════════

// GetRankingQuery selects a page of the standings.
type GetRankingQuery struct {
	// Limit caps the general rows (0 = all, maximum 500).
	Limit int

	// Offset skips rows for pagination.
	Offset int
}

// Validate checks and normalizes the paging parameters.
func (q *GetRankingQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Offset < 0 {
		return errors.New("offset cannot be negative")
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
	return nil
}

// GetRankingResult is the ranking payload.
type GetRankingResult struct {
	Version        int64                    `json:"version"`
	Ranking        []leaderboard.Row        `json:"ranking"`
	MonthlyRanking []leaderboard.MonthlyRow `json:"monthly_ranking"`
	LastUpdateInfo string                   `json:"last_update_info"`
	TotalCount     int                      `json:"total_count"`
	HasMore        bool                     `json:"has_more"`
	FromCache      bool                     `json:"from_cache"`
	GeneratedAt    time.Time                `json:"generated_at"`
}

// StandingsService computes standings for the current dataset version,
// going through the cache first. It is shared by the ranking and profile
// queries and by the rebuild command.
type StandingsService struct {
	loader    *DatasetLoader
	cache     leaderboard.Cache
	snapshots leaderboard.SnapshotRepository
	seeds     []medal.Seed
	cacheTTL  time.Duration
	tel       Telemetry
}

// NewStandingsService creates the service. cache and snapshots may be nil.
func NewStandingsService(
	loader *DatasetLoader,
	cache leaderboard.Cache,
	snapshots leaderboard.SnapshotRepository,
	seeds []medal.Seed,
	cacheTTL time.Duration,
	tel Telemetry,
) *StandingsService {
	return &StandingsService{
		loader:    loader,
		cache:     cache,
		snapshots: snapshots,
		seeds:     seeds,
		cacheTTL:  cacheTTL,
		tel:       tel,
	}
}

// Current returns the standings of the current dataset version and month and
// whether they came from the cache. Cache failures only cost a recomputation.
func (s *StandingsService) Current(ctx context.Context) (*leaderboard.Standings, bool, error) {
	log := s.tel.logger()

	if s.cache != nil {
		version, err := s.loader.Version(ctx)
		if err != nil {
			return nil, false, err
		}
		key := leaderboard.CacheKey{
			Version: version,
			Month:   timeutil.MonthOf(s.loader.Now(), s.loader.loc).String(),
		}
		cached, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Warn("standings cache read failed", logger.DatasetVersion(version), logger.Err(err))
		}
		if s.tel.Metrics != nil {
			s.tel.Metrics.ObserveCache(cached != nil)
		}
		if cached != nil {
			return cached, true, nil
		}
	}

	st, err := s.Refresh(ctx)
	if err != nil {
		return nil, false, err
	}
	return st, false, nil
}

// Refresh recomputes the standings and overwrites their cache entry.
func (s *StandingsService) Refresh(ctx context.Context) (*leaderboard.Standings, error) {
	st, err := s.Compute(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, st, s.cacheTTL); err != nil {
			s.tel.logger().Warn("standings cache write failed", logger.DatasetVersion(st.Version), logger.Err(err))
		}
	}
	return st, nil
}

// Compute always recomputes from a fresh snapshot, bypassing the cache.
// The arrows come from the newest persisted snapshot of an older version.
func (s *StandingsService) Compute(ctx context.Context) (*leaderboard.Standings, error) {
	snap, err := s.loader.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	st := leaderboard.Compute(snap, s.seeds)

	if s.snapshots != nil {
		prev, err := s.snapshots.GetSnapshotBefore(ctx, st.Version)
		switch {
		case err == nil:
			st.ApplyPreviousRanks(prev.Ranks())
		case !shared.IsNotFound(err):
			s.tel.logger().Warn("previous ranking snapshot unavailable", logger.Err(err))
		}
	}
	return st, nil
}

// GetRankingHandler handles GetRankingQuery.
type GetRankingHandler struct {
	standings *StandingsService
	tel       Telemetry
}

// NewGetRankingHandler creates the handler.
func NewGetRankingHandler(standings *StandingsService, tel Telemetry) *GetRankingHandler {
	return &GetRankingHandler{standings: standings, tel: tel}
}

// Handle executes the query.
func (h *GetRankingHandler) Handle(ctx context.Context, q GetRankingQuery) (*GetRankingResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetRanking", shared.ErrValidation, err.Error(), err)
	}

	attrs := []attribute.KeyValue{attribute.Int("limit", q.Limit), attribute.Int("offset", q.Offset)}
	return observe(ctx, h.tel, "GetRanking", attrs, func(ctx context.Context) (*GetRankingResult, error) {
		st, cached, err := h.standings.Current(ctx)
		if err != nil {
			return nil, err
		}

		rows, more := paginate(st.Rows, q.Offset, q.Limit)
		return &GetRankingResult{
			Version:        st.Version,
			Ranking:        rows,
			MonthlyRanking: st.Monthly,
			LastUpdateInfo: st.LastUpdateInfo,
			TotalCount:     len(st.Rows),
			HasMore:        more,
			FromCache:      cached,
			GeneratedAt:    h.standings.loader.Now(),
		}, nil
	})
}

// paginate returns rows[offset:offset+limit]; limit 0 means no limit.
func paginate[T any](rows []T, offset, limit int) ([]T, bool) {
	if offset >= len(rows) {
		return []T{}, false
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return rows[offset:end], end < len(rows)
}
