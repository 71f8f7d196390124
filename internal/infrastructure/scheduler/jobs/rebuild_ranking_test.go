package jobs_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/command"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/leaderboard"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/infrastructure/scheduler/jobs"
)

type stubRebuilder struct {
	res *command.RebuildRankingResult
	err error
	cmd command.RebuildRankingCommand
}

func (s *stubRebuilder) Handle(_ context.Context, cmd command.RebuildRankingCommand) (*command.RebuildRankingResult, error) {
	s.cmd = cmd
	return s.res, s.err
}

type twoSnapshots struct {
	latest, previous *leaderboard.RankingSnapshot
}

func (t twoSnapshots) SaveSnapshot(context.Context, *leaderboard.RankingSnapshot) error { return nil }
func (t twoSnapshots) GetLatestSnapshot(context.Context) (*leaderboard.RankingSnapshot, error) {
	return t.latest, nil
}
func (t twoSnapshots) GetSnapshotBefore(_ context.Context, v int64) (*leaderboard.RankingSnapshot, error) {
	if t.previous == nil || t.previous.Version >= v {
		return nil, shared.ErrSnapshotNotFound
	}
	return t.previous, nil
}
func (t twoSnapshots) DeleteOldSnapshots(context.Context, time.Time) (int, error) { return 0, nil }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRebuildRankingJobReportsMovement(t *testing.T) {
	rb := &stubRebuilder{res: &command.RebuildRankingResult{Version: 4, Participants: 3, Persisted: true}}
	snaps := twoSnapshots{
		previous: &leaderboard.RankingSnapshot{Version: 3, Entries: []leaderboard.SnapshotEntry{
			{UserID: "ana", Rank: 1}, {UserID: "bia", Rank: 2},
		}},
		latest: &leaderboard.RankingSnapshot{Version: 4, Entries: []leaderboard.SnapshotEntry{
			{UserID: "bia", Rank: 1}, {UserID: "ana", Rank: 2}, {UserID: "caio", Rank: 3},
		}},
	}

	job := jobs.NewRebuildRankingJob(rb, snaps, quiet())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, "scheduled", rb.cmd.Reason)
	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.Equal(t, int64(4), stats.Version)
	assert.Equal(t, 2, stats.RankChanges)
	assert.Equal(t, 1, stats.NewEntries)
}

func TestRebuildRankingJobWithoutNewSnapshot(t *testing.T) {
	rb := &stubRebuilder{res: &command.RebuildRankingResult{Version: 4}}
	job := jobs.NewRebuildRankingJob(rb, nil, quiet())

	require.NoError(t, job.Run(context.Background()))
	assert.Zero(t, job.LastStats().RankChanges)
	assert.False(t, job.LastStats().Persisted)
}

func TestRebuildRankingJobFailure(t *testing.T) {
	rb := &stubRebuilder{err: errors.New("db down")}
	job := jobs.NewRebuildRankingJob(rb, nil, quiet())

	assert.Error(t, job.Run(context.Background()))
	assert.Nil(t, job.LastStats())
	assert.Equal(t, "rebuild_ranking", job.Name())
}
