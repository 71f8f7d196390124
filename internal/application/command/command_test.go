package command_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/command"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/query"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/guess"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/leaderboard"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/pool"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/user"
	tu "github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/testutil"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/retry"
)

type recPublisher struct {
	mu     sync.Mutex
	events []shared.Event
	err    error
}

func (p *recPublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recPublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type memSnapshots struct {
	mu   sync.Mutex
	list []*leaderboard.RankingSnapshot
}

func (r *memSnapshots) SaveSnapshot(_ context.Context, s *leaderboard.RankingSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, s)
	return nil
}

func (r *memSnapshots) GetLatestSnapshot(ctx context.Context) (*leaderboard.RankingSnapshot, error) {
	return r.GetSnapshotBefore(ctx, 1<<62)
}

func (r *memSnapshots) GetSnapshotBefore(_ context.Context, version int64) (*leaderboard.RankingSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *leaderboard.RankingSnapshot
	for _, s := range r.list {
		if s.Version < version && (best == nil || s.Version > best.Version) {
			best = s
		}
	}
	if best == nil {
		return nil, shared.ErrSnapshotNotFound
	}
	return best, nil
}

func (r *memSnapshots) DeleteOldSnapshots(_ context.Context, olderThan time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := len(r.list)
	r.list = slices.DeleteFunc(r.list, func(s *leaderboard.RankingSnapshot) bool {
		return s.SnapshotAt.Before(olderThan)
	})
	return before - len(r.list), nil
}

var now = tu.Day(10)

func fixture() (*tu.Store, *recPublisher, *command.Notifier) {
	store := tu.NewStore(pool.Dataset{
		Version: 1,
		Users:   []user.User{tu.NewUser("ana", tu.Day(-10)), tu.NewUser("bia", tu.Day(-10))},
		Matches: []match.Match{
			tu.NewMatch("open", "Grêmio", "Inter", tu.Day(20)),
			tu.NewMatch("cup", "Flamengo", "Vasco", tu.Day(20), func(m *match.Match) {
				m.AllowDraw = false
				m.AskQualifier = true
			}),
			tu.NewMatch("closed", "Bahia", "Vitória", tu.Day(5)),
			tu.NewMatch("done", "Ceará", "Sport", tu.Day(12), tu.Won("Ceará")),
		},
	})
	pub := &recPublisher{}
	n := command.NewNotifier(store.State(), pub, nil, nil).WithClock(func() time.Time { return now })
	return store, pub, n
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT GUESS
// ══════════════════════════════════════════════════════════════════════════════

func TestSubmitGuessStoresEncodedPick(t *testing.T) {
	store, pub, n := fixture()
	h := command.NewSubmitGuessHandler(store.Matches(), store.Users(), store.Guesses(), n)

	res, err := h.Handle(context.Background(), command.SubmitGuessCommand{
		MatchID: "open", UserID: "ana", Pick: " gremio ", Over25: tu.Bool(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "Grêmio", res.Vote)
	assert.True(t, res.CountersUpdated)
	assert.Equal(t, int64(2), res.Version)
	assert.Equal(t, now, res.SubmittedAt)

	g, err := store.Guesses().Get(context.Background(), guess.Key{UserID: "ana", MatchID: "open"})
	require.NoError(t, err)
	assert.Equal(t, "Grêmio", g.Raw)
	require.NotNil(t, g.Over25)
	assert.True(t, *g.Over25)

	m, err := store.Matches().GetByID(context.Background(), "open")
	require.NoError(t, err)
	assert.Equal(t, match.VoteCounters{A: 1}, m.Counters)

	assert.Equal(t, []shared.EventType{shared.EventDatasetChanged}, pub.types())
	ev := pub.events[0].(shared.DatasetChangedEvent)
	assert.Equal(t, string(shared.EventGuessSubmitted), ev.Reason)
	assert.Equal(t, int64(2), ev.Version)
	assert.Equal(t, []string{string(shared.EventGuessSubmitted)}, store.Bumps())
}

func TestSubmitGuessMovesCountersOnChange(t *testing.T) {
	store, _, n := fixture()
	h := command.NewSubmitGuessHandler(store.Matches(), store.Users(), store.Guesses(), n)
	ctx := context.Background()

	for _, pick := range []string{"A", "Inter", "EMPATE", "empate"} {
		_, err := h.Handle(ctx, command.SubmitGuessCommand{MatchID: "open", UserID: "ana", Pick: pick})
		require.NoError(t, err, pick)
	}

	m, err := store.Matches().GetByID(ctx, "open")
	require.NoError(t, err)
	assert.Equal(t, match.VoteCounters{Draw: 1}, m.Counters)

	g, err := store.Guesses().Get(ctx, guess.Key{UserID: "ana", MatchID: "open"})
	require.NoError(t, err)
	assert.Equal(t, match.DrawVote, g.Raw)
}

func TestSubmitGuessRejections(t *testing.T) {
	tests := []struct {
		name string
		cmd  command.SubmitGuessCommand
		want error
	}{
		{"finished", command.SubmitGuessCommand{MatchID: "done", UserID: "ana", Pick: "A"}, shared.ErrMatchClosed},
		{"past deadline", command.SubmitGuessCommand{MatchID: "closed", UserID: "ana", Pick: "A"}, shared.ErrMatchClosed},
		{"draw not allowed", command.SubmitGuessCommand{MatchID: "cup", UserID: "ana", Pick: "EMPATE"}, shared.ErrDrawNotAllowed},
		{"unknown team", command.SubmitGuessCommand{MatchID: "open", UserID: "ana", Pick: "Santos"}, shared.ErrInvalidPick},
		{"draw qualifier", command.SubmitGuessCommand{MatchID: "cup", UserID: "ana", Pick: "A", Qualifier: "EMPATE"}, shared.ErrInvalidQualifier},
		{"unknown match", command.SubmitGuessCommand{MatchID: "nope", UserID: "ana", Pick: "A"}, shared.ErrMatchNotFound},
		{"unknown user", command.SubmitGuessCommand{MatchID: "open", UserID: "zed", Pick: "A"}, shared.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, pub, n := fixture()
			h := command.NewSubmitGuessHandler(store.Matches(), store.Users(), store.Guesses(), n)

			_, err := h.Handle(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, store.Bumps())
			assert.Empty(t, pub.types())
		})
	}

	store, _, n := fixture()
	h := command.NewSubmitGuessHandler(store.Matches(), store.Users(), store.Guesses(), n)
	_, err := h.Handle(context.Background(), command.SubmitGuessCommand{MatchID: "open", UserID: "ana"})
	assert.True(t, shared.IsValidation(err))
}

func TestSubmitGuessQualifier(t *testing.T) {
	store, _, n := fixture()
	h := command.NewSubmitGuessHandler(store.Matches(), store.Users(), store.Guesses(), n)

	res, err := h.Handle(context.Background(), command.SubmitGuessCommand{
		MatchID: "cup", UserID: "bia", Pick: "B", Qualifier: "flamengo",
	})
	require.NoError(t, err)
	assert.Equal(t, "Vasco", res.Vote)
	assert.Equal(t, "Flamengo", res.Qualifier)

	res, err = h.Handle(context.Background(), command.SubmitGuessCommand{
		MatchID: "open", UserID: "bia", Pick: "A", Qualifier: "Inter",
	})
	require.NoError(t, err)
	assert.Empty(t, res.Qualifier, "qualifier is dropped when the match does not ask for it")
}

func TestSubmitGuessFallsBackWhenTransactionFails(t *testing.T) {
	store, _, n := fixture()
	store.TxErr = errors.New("serialization failure")
	h := command.NewSubmitGuessHandler(store.Matches(), store.Users(), store.Guesses(), n)

	res, err := h.Handle(context.Background(), command.SubmitGuessCommand{MatchID: "open", UserID: "ana", Pick: "B"})
	require.NoError(t, err)
	assert.False(t, res.CountersUpdated)

	g, err := store.Guesses().Get(context.Background(), guess.Key{UserID: "ana", MatchID: "open"})
	require.NoError(t, err)
	assert.Equal(t, "Inter", g.Raw)

	m, err := store.Matches().GetByID(context.Background(), "open")
	require.NoError(t, err)
	assert.Equal(t, match.VoteCounters{}, m.Counters)
}

func TestSubmitGuessPublishFailureIsNotFatal(t *testing.T) {
	store, pub, n := fixture()
	pub.err = errors.New("bus closed")
	h := command.NewSubmitGuessHandler(store.Matches(), store.Users(), store.Guesses(), n)

	_, err := h.Handle(context.Background(), command.SubmitGuessCommand{MatchID: "open", UserID: "ana", Pick: "A"})
	require.NoError(t, err)
	assert.Len(t, store.Bumps(), 1)
}

// ══════════════════════════════════════════════════════════════════════════════
// MATCHES
// ══════════════════════════════════════════════════════════════════════════════

func TestCreateMatch(t *testing.T) {
	store, pub, n := fixture()
	h := command.NewCreateMatchHandler(store.Matches(), n)

	res, err := h.Handle(context.Background(), command.CreateMatchCommand{
		TeamA:       "  Atlético   Mineiro ",
		TeamB:       "Cruzeiro",
		Competition: "Copa do Brasil",
		Round:       "Oitavas de Final",
		Deadline:    tu.Day(15),
		LegType:     "volta",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 5, res.Number)

	m, err := store.Matches().GetByID(context.Background(), shared.MatchID(res.ID))
	require.NoError(t, err)
	assert.Equal(t, "Atlético Mineiro", m.TeamA)
	assert.Equal(t, match.LegSecond, m.LegType)
	assert.True(t, m.AskQualifier)
	assert.Equal(t, now, m.CreatedAt)
	assert.Equal(t, []shared.EventType{shared.EventDatasetChanged}, pub.types())

	_, err = h.Handle(context.Background(), command.CreateMatchCommand{TeamA: "Remo", TeamB: "Paysandu"})
	assert.ErrorIs(t, err, shared.ErrMissingDeadline)

	_, err = h.Handle(context.Background(), command.CreateMatchCommand{TeamA: "Remo", TeamB: "remo", Deadline: tu.Day(15)})
	assert.True(t, shared.IsValidation(err))
}

func TestCreateLeagueMatchDoesNotAskQualifier(t *testing.T) {
	store, _, n := fixture()
	h := command.NewCreateMatchHandler(store.Matches(), n)

	res, err := h.Handle(context.Background(), command.CreateMatchCommand{
		TeamA: "Remo", TeamB: "Paysandu", Round: "Fase de Grupos", Deadline: tu.Day(15), LegType: "IDA",
	})
	require.NoError(t, err)
	assert.False(t, res.Match.AskQualifier)
}

func TestRecordResult(t *testing.T) {
	store, pub, n := fixture()
	h := command.NewRecordResultHandler(store.Matches(), n)

	res, err := h.Handle(context.Background(), command.RecordResultCommand{
		MatchID: "cup", Winner: "vasco", GoalsA: tu.Int(1), GoalsB: tu.Int(2), Qualifier: "VASCO",
	})
	require.NoError(t, err)
	assert.Equal(t, "Vasco", res.Winner)
	assert.Equal(t, "Vasco", res.Qualifier)
	assert.Equal(t, now, res.FinishedAt)

	m, err := store.Matches().GetByID(context.Background(), "cup")
	require.NoError(t, err)
	assert.True(t, m.IsFinished())
	assert.Equal(t, 3, *m.GoalsA+*m.GoalsB)
	assert.Equal(t, []string{string(shared.EventMatchResultRecorded)}, store.Bumps())
	assert.Len(t, pub.types(), 1)

	_, err = h.Handle(context.Background(), command.RecordResultCommand{MatchID: "cup", Winner: "EMPATE"})
	assert.ErrorIs(t, err, shared.ErrInvalidWinner)

	res, err = h.Handle(context.Background(), command.RecordResultCommand{MatchID: "open", Winner: "EMPATE", Qualifier: "Inter"})
	require.NoError(t, err)
	assert.Empty(t, res.Qualifier)

	_, err = h.Handle(context.Background(), command.RecordResultCommand{MatchID: "nope", Winner: "A"})
	assert.True(t, shared.IsNotFound(err))
}

func TestUpdateMatch(t *testing.T) {
	store, pub, n := fixture()
	h := command.NewUpdateMatchHandler(store.Matches(), store.Guesses(), n)
	ctx := context.Background()

	deadline := tu.Day(25)
	res, err := h.Handle(ctx, command.UpdateMatchCommand{MatchID: "open", Patch: match.Patch{
		TeamB:    strPtr(" Internacional "),
		Round:    strPtr("Quartas de Final"),
		LegType:  strPtr("unico"),
		Deadline: &deadline,
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Version)

	m, err := store.Matches().GetByID(ctx, "open")
	require.NoError(t, err)
	assert.Equal(t, "Internacional", m.TeamB)
	assert.Equal(t, deadline, m.Deadline)
	assert.Equal(t, match.LegSingle, m.LegType)
	assert.True(t, m.AskQualifier)
	assert.Equal(t, "Grêmio", m.TeamA, "fields left nil are kept")

	assert.Equal(t, []string{string(shared.EventMatchUpdated)}, store.Bumps())
	require.Len(t, pub.events, 1)
	ev := pub.events[0].(shared.DatasetChangedEvent)
	assert.Equal(t, string(shared.EventMatchUpdated), ev.Reason)
	assert.Equal(t, "open", ev.AggregateID())
}

func TestUpdateMatchFollowsRenamedWinner(t *testing.T) {
	store, _, n := fixture()
	h := command.NewUpdateMatchHandler(store.Matches(), store.Guesses(), n)

	_, err := h.Handle(context.Background(), command.UpdateMatchCommand{MatchID: "done", Patch: match.Patch{
		TeamA: strPtr("Ceará SC"),
	}})
	require.NoError(t, err)

	m, err := store.Matches().GetByID(context.Background(), "done")
	require.NoError(t, err)
	assert.Equal(t, "Ceará SC", m.Winner)
	pick, ok := m.WinnerPick()
	assert.True(t, ok)
	assert.Equal(t, match.PickA, pick)
}

func TestUpdateMatchRejections(t *testing.T) {
	tests := []struct {
		name  string
		id    shared.MatchID
		patch match.Patch
		want  error
		voted bool
	}{
		{name: "empty patch", id: "open", want: shared.ErrEmptyPatch},
		{name: "unknown match", id: "nope", patch: match.Patch{Round: strPtr("Final")}, want: shared.ErrMatchNotFound},
		{name: "same teams", id: "open", patch: match.Patch{TeamB: strPtr("gremio")}, want: shared.ErrSameTeams},
		{name: "blank team", id: "open", patch: match.Patch{TeamA: strPtr("  ")}, want: shared.ErrMissingTeams},
		{name: "renamed after votes", id: "open", patch: match.Patch{TeamA: strPtr("Juventude")}, want: shared.ErrTeamsLocked, voted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, pub, n := fixture()
			if tt.voted {
				g := tu.NewGuess("ana", "open", "Grêmio")
				require.NoError(t, store.Guesses().Upsert(context.Background(), &g))
			}
			h := command.NewUpdateMatchHandler(store.Matches(), store.Guesses(), n)

			_, err := h.Handle(context.Background(), command.UpdateMatchCommand{MatchID: tt.id, Patch: tt.patch})
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, store.Bumps())
			assert.Empty(t, pub.types())
		})
	}
}

func TestUpdateMatchKeepsDeclaredDraw(t *testing.T) {
	store, _, n := fixture()
	rec := command.NewRecordResultHandler(store.Matches(), n)
	_, err := rec.Handle(context.Background(), command.RecordResultCommand{MatchID: "open", Winner: "EMPATE"})
	require.NoError(t, err)

	h := command.NewUpdateMatchHandler(store.Matches(), store.Guesses(), n)
	_, err = h.Handle(context.Background(), command.UpdateMatchCommand{MatchID: "open", Patch: match.Patch{AllowDraw: tu.Bool(false)}})
	assert.ErrorIs(t, err, shared.ErrDrawDeclared)
	assert.True(t, shared.IsConflict(err))
}

func strPtr(s string) *string { return &s }

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD
// ══════════════════════════════════════════════════════════════════════════════

func TestRebuildRankingPersistsOncePerVersion(t *testing.T) {
	store, pub, n := fixture()
	loader := query.NewDatasetLoader(store.Users(), store.Matches(), store.Guesses(), store.State(), time.UTC,
		query.WithClock(func() time.Time { return now }),
		query.WithRetrier(retry.New(retry.WithMaxAttempts(1))),
	)
	snaps := &memSnapshots{}
	standings := query.NewStandingsService(loader, nil, snaps, nil, 0, query.Telemetry{})
	h := command.NewRebuildRankingHandler(standings, snaps, pub, n, command.DefaultRebuildRankingConfig())
	ctx := context.Background()

	first, err := h.Handle(ctx, command.RebuildRankingCommand{Reason: "test"})
	require.NoError(t, err)
	assert.True(t, first.Persisted)
	assert.Equal(t, int64(1), first.Version)
	assert.Equal(t, 2, first.Participants)
	assert.Equal(t, []shared.EventType{shared.EventRankingRebuilt}, pub.types())

	again, err := h.Handle(ctx, command.RebuildRankingCommand{Reason: "test"})
	require.NoError(t, err)
	assert.False(t, again.Persisted)
	assert.Equal(t, first.SnapshotID, again.SnapshotID)

	forced, err := h.Handle(ctx, command.RebuildRankingCommand{Reason: "test", Force: true})
	require.NoError(t, err)
	assert.True(t, forced.Persisted)
	assert.NotEqual(t, first.SnapshotID, forced.SnapshotID)
	assert.Len(t, snaps.list, 2)
}

func TestRebuildRankingPrunesOldSnapshots(t *testing.T) {
	store, _, n := fixture()
	loader := query.NewDatasetLoader(store.Users(), store.Matches(), store.Guesses(), store.State(), time.UTC,
		query.WithClock(func() time.Time { return now }),
	)
	snaps := &memSnapshots{list: []*leaderboard.RankingSnapshot{
		{ID: "ancient", Version: 0, SnapshotAt: now.Add(-90 * 24 * time.Hour)},
	}}
	standings := query.NewStandingsService(loader, nil, snaps, nil, 0, query.Telemetry{})
	h := command.NewRebuildRankingHandler(standings, snaps, nil, n, command.DefaultRebuildRankingConfig())

	res, err := h.Handle(context.Background(), command.RebuildRankingCommand{})
	require.NoError(t, err)
	assert.True(t, res.Persisted)
	assert.Equal(t, 1, res.Pruned)
	require.Len(t, snaps.list, 1)
	assert.Equal(t, res.SnapshotID, snaps.list[0].ID)
}
