// Package testutil provides fixtures and seeded random datasets for the
// domain and application tests.
package testutil

import (
	"fmt"
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/guess"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/user"
)

// Epoch is the reference instant fixtures are placed around.
var Epoch = time.Date(2026, time.January, 5, 19, 0, 0, 0, time.UTC)

// Day returns Epoch shifted by n days.
func Day(n int) time.Time {
	return Epoch.AddDate(0, 0, n)
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// NewUser creates a user registered at createdAt.
func NewUser(id string, createdAt time.Time) user.User {
	return user.User{
		ID:        shared.UserID(id),
		Name:      "User " + id,
		CreatedAt: createdAt,
	}
}

// MatchOption customizes NewMatch.
type MatchOption func(*match.Match)

// NewMatch creates an open league match between a and b.
func NewMatch(id, a, b string, deadline time.Time, opts ...MatchOption) match.Match {
	m := match.Match{
		ID:          shared.MatchID(id),
		TeamA:       a,
		TeamB:       b,
		Competition: "Brasileirão",
		Round:       "Pontos Corridos",
		Deadline:    deadline,
		CreatedAt:   deadline.Add(-72 * time.Hour),
		AllowDraw:   true,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Won declares the winner by raw value.
func Won(winner string) MatchOption {
	return func(m *match.Match) {
		m.Winner = winner
		m.FinishedAt = m.Deadline.Add(2 * time.Hour)
	}
}

// Score sets the final score.
func Score(a, b int) MatchOption {
	return func(m *match.Match) {
		m.GoalsA = Int(a)
		m.GoalsB = Int(b)
	}
}

// Round sets competition and round.
func Round(competition, round string) MatchOption {
	return func(m *match.Match) {
		m.Competition = competition
		m.Round = round
	}
}

// Qualifier turns the qualifier market on and declares q.
func Qualifier(q string) MatchOption {
	return func(m *match.Match) {
		m.AskQualifier = true
		m.Qualifier = q
	}
}

// GuessOption customizes NewGuess.
type GuessOption func(*guess.Guess)

// NewGuess creates a main-market guess.
func NewGuess(userID, matchID, raw string, opts ...GuessOption) guess.Guess {
	g := guess.Guess{
		UserID:  shared.UserID(userID),
		MatchID: shared.MatchID(matchID),
		Raw:     raw,
	}
	for _, opt := range opts {
		opt(&g)
	}
	return g
}

// Over picks the goals-over market.
func Over(v bool) GuessOption {
	return func(g *guess.Guess) { g.Over25 = Bool(v) }
}

// BTTS picks the both-teams-score market.
func BTTS(v bool) GuessOption {
	return func(g *guess.Guess) { g.BTTS = Bool(v) }
}

// Qualifies picks the qualifier market.
func Qualifies(team string) GuessOption {
	return func(g *guess.Guess) { g.Qualifier = team }
}

// Series creates n finished league matches one day apart starting at day
// start, all won by team A ("Home i").
func Series(prefix string, start, n int) []match.Match {
	out := make([]match.Match, n)
	for i := range n {
		home := fmt.Sprintf("Home %s%d", prefix, i)
		away := fmt.Sprintf("Away %s%d", prefix, i)
		out[i] = NewMatch(fmt.Sprintf("%s%02d", prefix, i), home, away, Day(start+i), Won(home))
	}
	return out
}
