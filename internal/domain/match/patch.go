package match

import (
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/textfold"
)

// Patch is an admin edit of a fixture. Nil fields are left unchanged. The
// result is not part of a patch; it has its own command.
type Patch struct {
	TeamA       *string
	TeamB       *string
	TeamALogo   *string
	TeamBLogo   *string
	Competition *string
	Round       *string
	Deadline    *time.Time
	AllowDraw   *bool
	LegType     *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.TeamA == nil && p.TeamB == nil && p.TeamALogo == nil && p.TeamBLogo == nil &&
		p.Competition == nil && p.Round == nil && p.Deadline == nil && p.AllowDraw == nil &&
		p.LegType == nil
}

// RenamesTeams reports whether applying p to m changes a team name.
func (p Patch) RenamesTeams(m *Match) bool {
	return (p.TeamA != nil && textfold.Squash(*p.TeamA) != m.TeamA) ||
		(p.TeamB != nil && textfold.Squash(*p.TeamB) != m.TeamB)
}

// ApplyPatch returns a copy of m with p applied. Text is whitespace-squashed,
// the qualifier market is derived again from round and leg, and a declared
// winner or qualifier follows a renamed team. A declared draw forbids
// turning AllowDraw off.
func (m *Match) ApplyPatch(p Patch) (Match, error) {
	if p.IsEmpty() {
		return Match{}, shared.ErrEmptyPatch
	}
	winner, hasWinner := m.WinnerPick()
	qualifier, hasQualifier := Normalize(m.Qualifier, m.Teams())

	out := *m
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = textfold.Squash(*v)
		}
	}
	set(&out.TeamA, p.TeamA)
	set(&out.TeamB, p.TeamB)
	set(&out.TeamALogo, p.TeamALogo)
	set(&out.TeamBLogo, p.TeamBLogo)
	set(&out.Competition, p.Competition)
	set(&out.Round, p.Round)
	if p.Deadline != nil {
		out.Deadline = p.Deadline.UTC()
	}
	if p.AllowDraw != nil {
		out.AllowDraw = *p.AllowDraw
	}
	if p.LegType != nil {
		out.LegType = ParseLegType(*p.LegType)
	}
	out.AskQualifier = AskQualifierFor(out.Round, out.LegType)
	if hasWinner {
		out.Winner = Encode(winner, out.Teams())
	}
	switch {
	case !out.AskQualifier:
		out.Qualifier = ""
	case hasQualifier && qualifier != PickDraw:
		out.Qualifier = Encode(qualifier, out.Teams())
	}

	if textfold.Equal(out.TeamA, out.TeamB) {
		return Match{}, shared.ErrSameTeams
	}
	if err := out.Validate(); err != nil {
		return Match{}, err
	}
	if pick, ok := out.WinnerPick(); ok && pick == PickDraw && !out.AllowDraw {
		return Match{}, shared.ErrDrawDeclared
	}
	return out, nil
}
