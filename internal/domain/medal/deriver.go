package medal

import (
	"fmt"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/pool"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/scoring"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/user"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/timeutil"
)

const (
	// ZebraShare is the highest winner vote share that still counts as an upset.
	ZebraShare = 0.2
	// VeteranStep is the number of hits per veteran level.
	VeteranStep = 50
	// negativeWindow is how many recent matches the warnings look at.
	negativeWindow = 3
)

// Zebras returns the finished matches whose winner was picked by at most
// ZebraShare of the users eligible at the deadline. When nobody was
// eligible the denominator falls back to the number of votes cast.
func Zebras(s *pool.Snapshot) map[shared.MatchID]bool {
	out := make(map[shared.MatchID]bool)
	for _, m := range s.Finished() {
		if _, ok := s.Winner(m.ID); !ok {
			continue
		}
		total := s.EligibleCount(m.ID)
		if total == 0 {
			total = max(1, len(s.Votes(m.ID)))
		}
		if float64(s.WinnerVotes(m))/float64(total) <= ZebraShare {
			out[m.ID] = true
		}
	}
	return out
}

// Replay walks the user's eligible finished matches in ascending order and
// emits the per-match medals. A miss or a missing vote resets the streak;
// the veteran counter never resets.
func Replay(s *pool.Snapshot, u *user.User, zebras map[shared.MatchID]bool) []Event {
	var (
		events  []Event
		streak  int
		veteran int
	)

	for _, m := range s.Finished() {
		if !s.Eligible(u, m) {
			continue
		}
		if !s.IsHit(u.ID, m) {
			streak = 0
			continue
		}

		streak++
		veteran++
		date := timeutil.FormatDDMMYY(m.Deadline, s.Location())
		at := func(k Kind, name, desc string) {
			events = append(events, Event{
				Kind:        k,
				Name:        name,
				Description: desc,
				DateLabel:   date,
				At:          m.Deadline,
				MatchID:     m.ID,
			})
		}

		if m.IsFinal() {
			at(CrystalBall, "MÃE DINAH", fmt.Sprintf("Cravou o campeão em %s.", m.Title()))
		}
		if zebras[m.ID] {
			at(Zebra, "CAÇADOR DE ZEBRAS", fmt.Sprintf("Acertou a zebra em %s.", m.Title()))
		}
		switch k, _ := StreakMedal(streak); k {
		case Fire:
			at(Fire, "ON FIRE", "Palpitou 3 acertos seguidos.")
		case Target:
			at(Target, "MITO", "Palpitou 5 acertos seguidos.")
		case Alien:
			at(Alien, "ALIEN", "Palpitou 10 acertos seguidos.")
		}
		if veteran%VeteranStep == 0 {
			at(Graduate,
				fmt.Sprintf("VETERANO Nvl %d", veteran/VeteranStep),
				fmt.Sprintf("Conquistou %d acertos.", veteran))
		}
	}
	return events
}

// Warnings evaluates the last three eligible finished matches, most recent
// first. All three wrong gives the cold-streak warning, all three without a
// guess row gives the ghost warning.
func Warnings(s *pool.Snapshot, u *user.User) []Event {
	recent := make([]*match.Match, 0, negativeWindow)
	for _, m := range s.FinishedDesc() {
		if len(recent) == negativeWindow {
			break
		}
		if s.Eligible(u, m) {
			recent = append(recent, m)
		}
	}
	if len(recent) < negativeWindow {
		return nil
	}

	var wrong, noVote int
	for _, m := range recent {
		if _, ok := s.Vote(u.ID, m.ID); !ok {
			noVote++
			continue
		}
		if !s.IsHit(u.ID, m) {
			wrong++
		}
	}

	var events []Event
	if wrong == negativeWindow {
		events = append(events, Event{
			Kind:        Lettuce,
			Name:        "MÃO DE ALFACE",
			Description: "Status Atual: Errou 3 palpites seguidos.",
			DateLabel:   CurrentLabel,
			Current:     true,
		})
	}
	if noVote == negativeWindow {
		events = append(events, Event{
			Kind:        Ghost,
			Name:        "FANTASMA",
			Description: "Status Atual: Esqueceu de votar em 3 seguidos.",
			DateLabel:   CurrentLabel,
			Current:     true,
		})
	}
	return events
}

// RoundOfSixteen returns the diamond medal for a perfect round of 16.
func RoundOfSixteen(g scoring.RoundGroup, s *pool.Snapshot) Event {
	last := g.LastDeadline()
	return Event{
		Kind:        Diamond,
		Name:        "GABARITO DAS OITAVAS",
		Description: fmt.Sprintf("Acertou os 8 jogos das oitavas de %s.", g.Competition),
		DateLabel:   timeutil.FormatDDMMYY(last, s.Location()),
		At:          last,
	}
}

// Relegation returns the anchor marker for the bottom four.
func Relegation() Event {
	return Event{
		Kind:        Anchor,
		Name:        "ZONA DE REBAIXAMENTO",
		Description: "Z-4",
		DateLabel:   CurrentLabel,
		Current:     true,
	}
}
