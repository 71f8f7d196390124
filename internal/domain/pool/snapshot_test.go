package pool_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/guess"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/pool"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/user"
	tu "github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/testutil"
)

func TestBuildIndexes(t *testing.T) {
	noDeadline := tu.NewMatch("nd", "X", "Y", time.Time{})
	ds := pool.Dataset{
		Users: []user.User{
			tu.NewUser("b", tu.Day(-1)),
			tu.NewUser("a", tu.Day(-1)),
			tu.NewUser("b", tu.Day(3)),
			{Name: "no id"},
		},
		Matches: []match.Match{
			tu.NewMatch("m2", "Bahia", "Sport", tu.Day(2), tu.Won("Sport")),
			tu.NewMatch("m1", "Ceará", "Fortaleza", tu.Day(1), tu.Won(match.DrawVote)),
			tu.NewMatch("m3", "Goiás", "Vila Nova", tu.Day(9)),
			noDeadline,
		},
		Guesses: []guess.Guess{
			tu.NewGuess("a", "m2", "A"),
			tu.NewGuess("a", "m2", "sport"),
			tu.NewGuess("b", "m1", "empate"),
			tu.NewGuess("b", "unknown", "A"),
			tu.NewGuess("", "m1", "A"),
		},
		Version: 42,
	}

	s := pool.Build(ds, tu.Day(5), time.UTC)

	assert.Equal(t, int64(42), s.Version())
	require.Len(t, s.Users(), 2)
	assert.Equal(t, shared.UserID("a"), s.Users()[0].ID)
	b, _ := s.User("b")
	assert.Equal(t, tu.Day(3), b.CreatedAt, "last duplicate user wins")

	require.Len(t, s.Matches(), 3, "matches without a deadline are dropped")
	assert.Equal(t, shared.MatchID("m1"), s.Matches()[0].ID)
	assert.Equal(t, 1, s.Matches()[0].Number)
	_, ok := s.Match("nd")
	assert.False(t, ok)

	require.Len(t, s.Finished(), 2)
	assert.Equal(t, shared.MatchID("m2"), s.FinishedDesc()[0].ID)

	v, ok := s.Vote("a", "m2")
	require.True(t, ok)
	assert.Equal(t, match.PickB, v.Pick, "last duplicate guess wins")
	assert.Len(t, s.Votes("m2"), 1)
	assert.Len(t, s.Votes("m1"), 1)

	m1, _ := s.Match("m1")
	m2, _ := s.Match("m2")
	assert.True(t, s.IsHit("a", m2))
	assert.True(t, s.IsHit("b", m1))
	assert.Equal(t, 1, s.WinnerVotes(m2))

	w, ok := s.Winner("m1")
	require.True(t, ok)
	assert.Equal(t, match.PickDraw, w)

	assert.Equal(t, 1, s.EligibleCount("m1"), "b registered after m1")
	assert.Equal(t, 2, s.EligibleCount("m3"))
	assert.False(t, s.Eligible(b, m2))
}

func TestBuildEmptyDataset(t *testing.T) {
	s := pool.Build(pool.Dataset{}, tu.Day(0), nil)

	assert.Empty(t, s.Users())
	assert.Empty(t, s.Finished())
	assert.NotNil(t, s.Location())
}

func TestVoteCounted(t *testing.T) {
	var nilVote *pool.Vote
	assert.False(t, nilVote.Counted())
	assert.False(t, (&pool.Vote{Pick: match.NoPick}).Counted())
	assert.True(t, (&pool.Vote{Pick: match.PickDraw}).Counted())
}

func TestBuildIsDeterministic(t *testing.T) {
	ds := tu.NewDataGenerator(99).Dataset(10, 25)

	a := pool.Build(ds, tu.Day(20), time.UTC)
	b := pool.Build(ds, tu.Day(20), time.UTC)

	assert.Equal(t, a.Users(), b.Users())
	assert.Equal(t, a.Matches(), b.Matches())
	for _, m := range a.Finished() {
		assert.Equal(t, a.WinnerVotes(m), b.WinnerVotes(m))
	}
}
