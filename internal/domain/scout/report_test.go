package scout_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/guess"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/pool"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/scout"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/user"
	tu "github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/testutil"
)

const (
	H = scout.SymbolHit
	M = scout.SymbolMiss
	N = scout.SymbolNoVote
)

// votes picks home on 'H', away on 'M' and leaves no row on '.'.
func votes(uid, p string, matches []match.Match) []guess.Guess {
	var out []guess.Guess
	for i, c := range p {
		switch c {
		case 'H':
			out = append(out, tu.NewGuess(uid, string(matches[i].ID), matches[i].TeamA))
		case 'M':
			out = append(out, tu.NewGuess(uid, string(matches[i].ID), matches[i].TeamB))
		}
	}
	return out
}

func build(users []user.User, matches []match.Match, guesses []guess.Guess) *pool.Snapshot {
	return pool.Build(pool.Dataset{Users: users, Matches: matches, Guesses: guesses}, tu.Day(60), time.UTC)
}

func TestRankHistoryUsesDebts(t *testing.T) {
	matches := tu.Series("s", 0, 3)
	a := tu.NewUser("a", tu.Day(-1))
	b := tu.NewUser("b", tu.Day(-1))
	b.Debts = 1
	c := tu.NewUser("c", tu.Day(-1))

	var guesses []guess.Guess
	guesses = append(guesses, votes("a", "HMM", matches)...)
	guesses = append(guesses, votes("b", "HHH", matches)...)
	guesses = append(guesses, votes("c", "MHM", matches)...)
	s := build([]user.User{a, b, c}, matches, guesses)

	assert.Equal(t, []int{1, 1, 2}, scout.RankHistory(s, "a"))
	assert.Equal(t, []int{3, 3, 1}, scout.RankHistory(s, "b"))
	assert.Equal(t, []int{2, 2, 3}, scout.RankHistory(s, "c"))
}

func TestConsistency(t *testing.T) {
	tests := []struct {
		history []int
		want    string
	}{
		{[]int{1, 2}, scout.Undefined},
		{[]int{1, 2, 3}, scout.ConsistencyHigh},
		{[]int{1, 4, 2}, scout.ConsistencyMedium},
		{[]int{1, 4, 1}, scout.ConsistencyLow},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.history), func(t *testing.T) {
			assert.Equal(t, tt.want, scout.Consistency(tt.history))
		})
	}
}

func TestRisk(t *testing.T) {
	matches := tu.Series("r", 0, 5)
	users := []user.User{tu.NewUser("rebel", tu.Day(-1))}
	guesses := votes("rebel", "MMMMM", matches)
	for i := range 3 {
		id := fmt.Sprintf("crowd%d", i)
		users = append(users, tu.NewUser(id, tu.Day(-1)))
		guesses = append(guesses, votes(id, "HHHHH", matches)...)
	}
	s := build(users, matches, guesses)

	assert.Equal(t, scout.RiskHigh, scout.Risk(s, "rebel"))
	assert.Equal(t, scout.RiskMedium, scout.Risk(s, "crowd0"), "a quarter of the votes disagree")

	short := build(users, matches[:4], guesses)
	assert.Equal(t, scout.Undefined, scout.Risk(short, "rebel"))
}

func TestRiskIgnoresIneligibleVotes(t *testing.T) {
	matches := tu.Series("r", 0, 5)
	users := []user.User{tu.NewUser("rebel", tu.Day(-1))}
	guesses := votes("rebel", "MMMMM", matches)
	for i := range 3 {
		id := fmt.Sprintf("late%d", i)
		users = append(users, tu.NewUser(id, tu.Day(10)))
		guesses = append(guesses, votes(id, "HHHHH", matches)...)
	}
	s := build(users, matches, guesses)

	assert.Equal(t, scout.RiskLow, scout.Risk(s, "rebel"), "votes cast before registering do not form the crowd")
	assert.Equal(t, scout.Undefined, scout.Risk(s, "late0"))
	assert.Equal(t, scout.Undefined, scout.Risk(s, "nobody"))
}

func TestCurrentStreak(t *testing.T) {
	assert.Equal(t, 2, scout.CurrentStreak([]scout.Symbol{N, H, H, M}))
	assert.Equal(t, -2, scout.CurrentStreak([]scout.Symbol{M, M, N, M}))
	assert.Zero(t, scout.CurrentStreak(nil))
	assert.Zero(t, scout.CurrentStreak([]scout.Symbol{N, N}))
}

func TestMaxStreaks(t *testing.T) {
	got := scout.MaxStreaks([]scout.Symbol{H, H, M, H, H, N, H, H, M, M, M})

	assert.Equal(t, scout.Streaks{MaxWin: 2, MaxWinCount: 3, MaxLose: 3, MaxLoseCount: 1}, got)
	assert.Equal(t, scout.Streaks{}, scout.MaxStreaks([]scout.Symbol{N, N}))
}

func TestSummarize(t *testing.T) {
	var matches []match.Match
	for i := range 4 {
		matches = append(matches, tu.NewMatch(fmt.Sprintf("b%d", i), fmt.Sprintf("Casa %d", i), "Fora", tu.Day(i),
			tu.Won(fmt.Sprintf("Casa %d", i))))
	}
	for i := range 3 {
		matches = append(matches, tu.NewMatch(fmt.Sprintf("c%d", i), fmt.Sprintf("Mandante %d", i), "Visitante", tu.Day(4+i),
			tu.Round("Copa do Brasil", "Terceira Fase"), tu.Won(fmt.Sprintf("Mandante %d", i))))
	}
	matches = append(matches, tu.NewMatch("l0", "River", "Boca", tu.Day(7),
		tu.Round("Libertadores", "Fase de Grupos"), tu.Won("Boca")))

	me := tu.NewUser("me", tu.Day(-1))
	s := build([]user.User{me}, matches, votes("me", "HHHMHMM.", matches))

	r := scout.Summarize(s, "me", 3)

	assert.Equal(t, scout.Stats{Matches: "7/8", Hits: "4", Accuracy: "57,1%"}, r.Stats)
	assert.Equal(t, []scout.Symbol{N, M, M, H, M}, r.LastFive)
	assert.Equal(t, -2, r.CurrentStreak)
	assert.Equal(t, scout.Streaks{MaxWin: 3, MaxWinCount: 1, MaxLose: 2, MaxLoseCount: 1}, r.Streaks)

	require.Len(t, r.Competitions, 2)
	assert.Equal(t, scout.CompetitionRow{Name: "Brasileirão", Slug: "brasileirao", Voted: 4, Hits: 3, Accuracy: 75}, r.Competitions[0])
	assert.Equal(t, scout.CompetitionRow{Name: "Copa do Brasil", Slug: "copa-do-brasil", Voted: 3, Hits: 1, Accuracy: 33}, r.Competitions[1])
	assert.Equal(t, "Brasileirão (75%)", r.BestCompetition)
	assert.Equal(t, "Copa do Brasil (33%)", r.WorstCompetition)

	assert.Len(t, r.RankHistory, 8)
	assert.Equal(t, []int{1, 1, 1}, r.Chart)
	assert.Equal(t, 1, r.BestRank)
	assert.Equal(t, 8, r.BestRankCount)
	assert.Equal(t, scout.ConsistencyHigh, r.Consistency)
	assert.Equal(t, scout.RiskLow, r.Risk)
	assert.Equal(t, 1, r.TotalParticipants)
}

func TestSummarizeSkipsMatchesBeforeRegistration(t *testing.T) {
	matches := tu.Series("e", 0, 4)
	late := tu.NewUser("late", tu.Day(1))
	s := build([]user.User{late}, matches, votes("late", "HHHH", matches))

	r := scout.Summarize(s, "late", 0)

	assert.Equal(t, "2/4", r.Stats.Matches)
	assert.Equal(t, []scout.Symbol{H, H}, r.LastFive)
	assert.Equal(t, scout.Undefined, r.BestCompetition, "fewer than three votes")
}

func TestSummarizeUnknownUser(t *testing.T) {
	s := build([]user.User{tu.NewUser("a", tu.Day(-1)), tu.NewUser("b", tu.Day(-1))}, tu.Series("x", 0, 2), nil)

	r := scout.Summarize(s, "nobody", 5)

	assert.Equal(t, scout.Undefined, r.Consistency)
	assert.Equal(t, scout.Undefined, r.Risk)
	assert.Equal(t, 2, r.TotalParticipants)
	assert.Empty(t, r.RankHistory)
	assert.Empty(t, r.Competitions)
}
