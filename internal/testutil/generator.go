package testutil

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/guess"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/pool"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/user"
)

var rounds = []string{
	"Pontos Corridos",
	"Fase de Grupos",
	"Oitavas de Final",
	"Quartas de Final",
	"Semifinal",
	"Final",
}

var competitions = []string{"Brasileirão", "Copa do Brasil", "Libertadores"}

// DataGenerator produces random but reproducible datasets.
type DataGenerator struct {
	faker *gofakeit.Faker
	seed  uint64
}

// NewDataGenerator creates a generator; the same seed yields the same data.
func NewDataGenerator(seed uint64) *DataGenerator {
	return &DataGenerator{faker: gofakeit.New(seed), seed: seed}
}

// Seed returns the generator seed, for failure messages.
func (g *DataGenerator) Seed() uint64 { return g.seed }

// Users creates n users registered over the 30 days before Epoch, plus
// a few registered later to exercise eligibility.
func (g *DataGenerator) Users(n int) []user.User {
	out := make([]user.User, n)
	for i := range n {
		created := Epoch.Add(-time.Duration(g.faker.Number(1, 30*24)) * time.Hour)
		if i%5 == 4 {
			created = Epoch.Add(time.Duration(g.faker.Number(1, 20*24)) * time.Hour)
		}
		out[i] = user.User{
			ID:        shared.UserID(fmt.Sprintf("u%03d", i)),
			Name:      g.faker.Name(),
			Username:  g.faker.Username(),
			CreatedAt: created,
			Debts:     g.faker.Number(0, 2),
		}
	}
	return out
}

// Matches creates n matches over the 40 days after Epoch; about two thirds
// are finished, some have a score and some ask for a qualifier.
func (g *DataGenerator) Matches(n int) []match.Match {
	out := make([]match.Match, n)
	for i := range n {
		a := g.faker.City() + " FC"
		b := g.faker.City() + " EC"
		if a == b {
			b += " II"
		}
		deadline := Epoch.Add(time.Duration(g.faker.Number(0, 40*24)) * time.Hour)

		m := NewMatch(
			fmt.Sprintf("m%03d", i), a, b, deadline,
			Round(competitions[g.faker.Number(0, len(competitions)-1)], rounds[g.faker.Number(0, len(rounds)-1)]),
		)
		m.LegType = []match.LegType{match.LegNone, match.LegFirst, match.LegSecond, match.LegSingle}[g.faker.Number(0, 3)]
		m.AskQualifier = match.AskQualifierFor(m.Round, m.LegType)

		if g.faker.Number(0, 2) > 0 {
			switch g.faker.Number(0, 2) {
			case 0:
				m.Winner = a
			case 1:
				m.Winner = b
			default:
				m.Winner = match.DrawVote
			}
			m.FinishedAt = deadline.Add(2 * time.Hour)
			if g.faker.Bool() {
				m.GoalsA = Int(g.faker.Number(0, 4))
				m.GoalsB = Int(g.faker.Number(0, 4))
			}
			if m.AskQualifier && g.faker.Bool() {
				m.Qualifier = a
			}
		}
		out[i] = m
	}
	return out
}

// Guesses creates guess rows for a random subset of (user, match) pairs,
// mixing team names, short codes and junk values.
func (g *DataGenerator) Guesses(users []user.User, matches []match.Match) []guess.Guess {
	var out []guess.Guess
	for _, u := range users {
		for _, m := range matches {
			if g.faker.Number(0, 3) == 0 {
				continue
			}
			raw := []string{m.TeamA, m.TeamB, "A", "B", match.DrawVote, "", "???"}[g.faker.Number(0, 6)]
			gs := NewGuess(string(u.ID), string(m.ID), raw)
			if g.faker.Bool() {
				gs.Over25 = Bool(g.faker.Bool())
			}
			if g.faker.Bool() {
				gs.BTTS = Bool(g.faker.Bool())
			}
			if m.AskQualifier && g.faker.Bool() {
				gs.Qualifier = []string{m.TeamA, m.TeamB}[g.faker.Number(0, 1)]
			}
			out = append(out, gs)
		}
	}
	return out
}

// Dataset creates a full random dataset.
func (g *DataGenerator) Dataset(users, matches int) pool.Dataset {
	us := g.Users(users)
	ms := g.Matches(matches)
	return pool.Dataset{
		Users:   us,
		Matches: ms,
		Guesses: g.Guesses(us, ms),
		Version: int64(g.faker.Number(1, 1000)),
	}
}
