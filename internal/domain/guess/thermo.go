package guess

import (
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
)

// Thermo is the vote thermometer of one match, counted from guess rows.
// Denormalized match counters are never consulted.
type Thermo struct {
	Voted int `json:"voted"`
	A     int `json:"a"`
	B     int `json:"b"`
	Draw  int `json:"draw"`

	OverYes  int `json:"over_yes"`
	OverNo   int `json:"over_no"`
	BTTSYes  int `json:"btts_yes"`
	BTTSNo   int `json:"btts_no"`
	QualifyA int `json:"qualify_a"`
	QualifyB int `json:"qualify_b"`
}

// BuildThermo counts the guesses of m. Rows for other matches are skipped.
func BuildThermo(m *match.Match, guesses []Guess) Thermo {
	var t Thermo
	teams := m.Teams()

	for i := range guesses {
		g := &guesses[i]
		if g.MatchID != m.ID {
			continue
		}

		if p, ok := match.Normalize(g.Raw, teams); ok {
			t.Voted++
			switch p {
			case match.PickA:
				t.A++
			case match.PickB:
				t.B++
			case match.PickDraw:
				t.Draw++
			}
		}

		if g.Over25 != nil {
			if *g.Over25 {
				t.OverYes++
			} else {
				t.OverNo++
			}
		}
		if g.BTTS != nil {
			if *g.BTTS {
				t.BTTSYes++
			} else {
				t.BTTSNo++
			}
		}

		switch g.QualifierPick(teams) {
		case match.PickA:
			t.QualifyA++
		case match.PickB:
			t.QualifyB++
		}
	}
	return t
}

// Share returns the percentage of main votes for p, 0 when nobody voted.
func (t Thermo) Share(p match.Pick) int {
	if t.Voted == 0 {
		return 0
	}
	var n int
	switch p {
	case match.PickA:
		n = t.A
	case match.PickB:
		n = t.B
	case match.PickDraw:
		n = t.Draw
	}
	return n * 100 / t.Voted
}
