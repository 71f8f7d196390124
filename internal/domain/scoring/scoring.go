// Package scoring evaluates a guess against a match result: base points for
// the main outcome and +1 per correct bonus market. No rule ever subtracts.
package scoring

import (
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/guess"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
)

// Market names the bonus markets, in the labels the ledger shows.
type Market string

const (
	MarketOver      Market = "Over 2.5"
	MarketBTTS      Market = "Ambas Marcam"
	MarketQualifier Market = "Classificado"
)

// Outcome is the result of scoring one guess.
type Outcome struct {
	Base  int
	Bonus int

	// MainHit is nil while the match has no winner (undetermined, not wrong).
	MainHit *bool

	// Markets lists the bonus markets that scored, in evaluation order.
	Markets []Market
}

// Total returns base plus bonus.
func (o Outcome) Total() int {
	return o.Base + o.Bonus
}

// Hit reports whether the main pick was decided and correct.
func (o Outcome) Hit() bool {
	return o.MainHit != nil && *o.MainHit
}

// ScoreGuess normalizes g and scores it. g may be nil (no guess row).
func ScoreGuess(m *match.Match, g *guess.Guess) Outcome {
	pick := match.NoPick
	if g != nil {
		pick, _ = match.Normalize(g.Raw, m.Teams())
	}
	return Evaluate(m, pick, g)
}

// Evaluate scores an already normalized pick. g supplies the bonus-market
// picks and may be nil.
func Evaluate(m *match.Match, pick match.Pick, g *guess.Guess) Outcome {
	var out Outcome

	if m.IsFinished() {
		winner, ok := m.WinnerPick()
		hit := ok && pick.Valid() && pick == winner
		out.MainHit = &hit
		if hit {
			out.Base = m.MainPoints()
		}
	}

	if g == nil {
		return out
	}

	if m.HasScore() {
		if g.Over25 != nil && *g.Over25 == m.IsOver() {
			out.Markets = append(out.Markets, MarketOver)
		}
		if g.BTTS != nil && *g.BTTS == m.BothScored() {
			out.Markets = append(out.Markets, MarketBTTS)
		}
	}
	if m.HasQualifier() && g.QualifierHit(m.Qualifier) {
		out.Markets = append(out.Markets, MarketQualifier)
	}
	out.Bonus = len(out.Markets)

	return out
}
