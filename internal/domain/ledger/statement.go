// Package ledger builds a user's points statement: one card per match with
// the main result line and the bonus markets, round-of-16 bonus cards and
// ghost cards for matches the user skipped.
package ledger

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/medal"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/pool"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/scoring"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/user"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/timeutil"
)

// Result line types.
const (
	TypeFinal = "🏆 FINAL"
	TypeHit   = "✅ ACERTO"
	TypeMiss  = "❌ ERROU"
	TypeGhost = "🚫 FANTASMA"
	TypeExtra = "✅ EXTRA"
	TypeBonus = "💎 Bônus Oitavas"
)

const (
	noVoteDetail   = "Não votou"
	bonusDetail    = "Gabaritou (8/8)"
	bonusDateLabel = "Extra"
	marketSep      = " + "
)

// CardKind tells match cards from bonus cards.
type CardKind string

const (
	CardMatch CardKind = "match"
	CardBonus CardKind = "bonus"
)

// Card is one entry of the statement.
type Card struct {
	Key        string         `json:"key"`
	Kind       CardKind       `json:"kind"`
	MatchID    shared.MatchID `json:"match_id,omitempty"`
	Date       string         `json:"date"`
	MatchTitle string         `json:"match_title"`

	ResultType   string `json:"result_type"`
	ResultDetail string `json:"result_detail"`
	ResultPoints int    `json:"result_pts"`

	ExtraDetail  string   `json:"extra_detail,omitempty"`
	ExtraPoints  int      `json:"extra_pts"`
	ExtraMarkets []string `json:"extra_hit_details"`

	TotalPoints int  `json:"total_pts"`
	IsResultHit bool `json:"is_result_hit"`
	IsNoVote    bool `json:"is_no_vote"`

	StreakMedal medal.Kind `json:"streak_medal_icon,omitempty"`

	at time.Time
}

// Summary totals the statement.
type Summary struct {
	ResultPoints int `json:"result_pts"`
	ExtraPoints  int `json:"extra_pts"`
	TotalPoints  int `json:"total_pts"`
}

// Statement is the full points statement of one user.
type Statement struct {
	UserID      shared.UserID `json:"uid"`
	DisplayName string        `json:"display_name"`
	Photo       string        `json:"photo,omitempty"`
	Cards       []Card        `json:"cards"`
	Summary     Summary       `json:"summary"`
}

// Build assembles the statement of uid. Cards are most recent first; an
// unknown user gets an empty statement.
func Build(s *pool.Snapshot, uid shared.UserID) Statement {
	u, ok := s.User(uid)
	if !ok {
		return Statement{UserID: uid, DisplayName: user.FallbackName, Cards: []Card{}}
	}

	st := Statement{
		UserID:      uid,
		DisplayName: u.DisplayName(),
		Photo:       u.Photo,
		Cards:       []Card{},
	}

	for i := range s.Matches() {
		m := &s.Matches()[i]
		if c, ok := matchCard(s, u, m); ok {
			st.Cards = append(st.Cards, c)
		}
	}
	for _, g := range scoring.RoundOfSixteenGroups(s.Finished()) {
		perfect := g.Perfect(func(m *match.Match) bool {
			return s.Eligible(u, m) && s.IsHit(u.ID, m)
		})
		if perfect {
			st.Cards = append(st.Cards, bonusCard(g))
		}
	}

	slices.SortStableFunc(st.Cards, func(a, b Card) int {
		return b.at.Compare(a.at)
	})
	markStreaks(st.Cards)

	for _, c := range st.Cards {
		st.Summary.ResultPoints += c.ResultPoints
		st.Summary.ExtraPoints += c.ExtraPoints
		st.Summary.TotalPoints += c.TotalPoints
	}
	return st
}

// matchCard merges the result, extras and ghost lines of one match. A match
// the user was not eligible for yields no card.
func matchCard(s *pool.Snapshot, u *user.User, m *match.Match) (Card, bool) {
	if !s.Eligible(u, m) {
		return Card{}, false
	}

	c := Card{
		Key:          string(m.ID),
		Kind:         CardMatch,
		MatchID:      m.ID,
		Date:         timeutil.FormatDDMM(m.Deadline, s.Location()),
		MatchTitle:   m.Title(),
		ExtraMarkets: []string{},
		at:           m.Deadline,
	}

	v, hasRow := s.Vote(u.ID, m.ID)
	if !hasRow {
		if !m.IsExpired(s.Now()) {
			return Card{}, false
		}
		c.ResultType = TypeGhost
		c.ResultDetail = noVoteDetail
		c.IsNoVote = true
		return c, true
	}

	if !m.IsFinished() {
		return Card{}, false
	}

	out := scoring.Evaluate(m, v.Pick, &v.Guess)
	lines := false

	if v.HasRaw() {
		lines = true
		c.ResultDetail = "Voto: " + strings.TrimSpace(v.Raw)
		switch {
		case out.Hit() && m.IsFinal():
			c.ResultType = TypeFinal
		case out.Hit():
			c.ResultType = TypeHit
		default:
			c.ResultType = TypeMiss
		}
		c.ResultPoints = out.Base
		c.IsResultHit = out.Hit()
	}

	if len(out.Markets) > 0 {
		lines = true
		labels := make([]string, len(out.Markets))
		for i, mk := range out.Markets {
			labels[i] = string(mk)
		}
		c.ExtraDetail = strings.Join(labels, marketSep)
		c.ExtraPoints = out.Bonus
		c.ExtraMarkets = labels
	}

	c.TotalPoints = c.ResultPoints + c.ExtraPoints
	return c, lines
}

func bonusCard(g scoring.RoundGroup) Card {
	return Card{
		Key:          fmt.Sprintf("%s|%s", bonusDateLabel, g.Competition),
		Kind:         CardBonus,
		Date:         bonusDateLabel,
		MatchTitle:   g.Competition,
		ResultType:   TypeBonus,
		ExtraDetail:  bonusDetail,
		ExtraPoints:  scoring.RoundOfSixteenBonus,
		ExtraMarkets: []string{bonusDetail},
		TotalPoints:  scoring.RoundOfSixteenBonus,
		at:           g.LastDeadline(),
	}
}

// markStreaks walks the match cards oldest first and tags the card where a
// run of result hits reaches a streak tier. Bonus cards do not affect runs.
func markStreaks(cards []Card) {
	run := 0
	for i := len(cards) - 1; i >= 0; i-- {
		c := &cards[i]
		if c.Kind != CardMatch {
			continue
		}
		if !c.IsResultHit {
			run = 0
			continue
		}
		run++
		if k, ok := medal.StreakMedal(run); ok {
			c.StreakMedal = k
		}
	}
}
