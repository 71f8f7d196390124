package match

import (
	"strings"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/textfold"
)

// ══════════════════════════════════════════════════════════════════════════════
// PICK
// ══════════════════════════════════════════════════════════════════════════════

// Pick is the canonical main-market outcome: side A, side B or a draw.
// Raw stored values (team names, "A"/"B", "EMPATE") never travel past
// Normalize; everything downstream works with Pick.
type Pick uint8

const (
	// NoPick is the zero value: an empty, unknown or ambiguous vote.
	// It never counts as either side.
	NoPick Pick = iota
	PickA
	PickB
	PickDraw
)

// DrawVote is the stored sentinel for a draw.
const DrawVote = "EMPATE"

// Valid reports whether p is a real outcome.
func (p Pick) Valid() bool {
	return p == PickA || p == PickB || p == PickDraw
}

// String returns the short code: "A", "B", "EMPATE" or "" for NoPick.
func (p Pick) String() string {
	switch p {
	case PickA:
		return "A"
	case PickB:
		return "B"
	case PickDraw:
		return DrawVote
	default:
		return ""
	}
}

// Teams is the part of a match the normalizer needs.
type Teams struct {
	A string
	B string
}

// Normalize maps a raw vote to a Pick. Codes "A", "B" and "EMPATE"/"DRAW"
// (any case) pass through; anything else is folded and compared against
// team A, then team B. Returns false when nothing matches or both teams match.
func Normalize(raw string, teams Teams) (Pick, bool) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return NoPick, false
	}

	switch v {
	case "A":
		return PickA, true
	case "B":
		return PickB, true
	}
	switch strings.ToUpper(v) {
	case DrawVote, "DRAW":
		return PickDraw, true
	}

	folded := textfold.Fold(v)
	if folded == "" {
		return NoPick, false
	}
	isA := folded == textfold.Fold(teams.A)
	isB := folded == textfold.Fold(teams.B)
	switch {
	case isA && isB:
		// Both teams fold to the same text; the vote cannot be attributed.
		return NoPick, false
	case isA:
		return PickA, true
	case isB:
		return PickB, true
	default:
		return NoPick, false
	}
}

// Encode turns a Pick back into the stored raw value: the team name, or
// the draw sentinel. NoPick encodes to "".
func Encode(p Pick, teams Teams) string {
	switch p {
	case PickA:
		return teams.A
	case PickB:
		return teams.B
	case PickDraw:
		return DrawVote
	default:
		return ""
	}
}
