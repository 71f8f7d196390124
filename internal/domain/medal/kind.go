// Package medal derives achievement events from a user's chronological
// history: streak tiers, upsets, finals, veteran milestones, monthly
// crowns, the relegation anchor and the negative "current status" warnings.
package medal

import (
	"math"
	"slices"
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
)

// Kind is a medal type, identified by its icon.
type Kind string

const (
	Alien       Kind = "👽"
	Diamond     Kind = "💎"
	Crown       Kind = "👑"
	Target      Kind = "🎯"
	Zebra       Kind = "🦓"
	Fire        Kind = "🔥"
	CrystalBall Kind = "🔮"
	Graduate    Kind = "🎓"
	Lettuce     Kind = "🥬"
	Ghost       Kind = "👻"
	Anchor      Kind = "⚓"
	Trophy      Kind = "🏆"
)

// String returns the icon.
func (k Kind) String() string { return string(k) }

// TieBreakOrder breaks point ties: more of an earlier kind wins.
var TieBreakOrder = []Kind{Alien, Diamond, Crown, Target, Zebra, Fire, CrystalBall, Graduate}

// DisplayOrder picks the single icon shown on a row or a match card.
var DisplayOrder = []Kind{Alien, Target, Fire, Zebra, CrystalBall, Graduate}

// Streak tiers and their medals.
var streakTiers = map[int]Kind{3: Fire, 5: Target, 10: Alien}

// StreakMedal returns the medal earned when a run of hits reaches n.
func StreakMedal(n int) (Kind, bool) {
	k, ok := streakTiers[n]
	return k, ok
}

// Count returns how many times k occurs in kinds.
func Count(kinds []Kind, k Kind) int {
	n := 0
	for _, x := range kinds {
		if x == k {
			n++
		}
	}
	return n
}

// CompareTieBreak orders two medal multisets by TieBreakOrder. It returns a
// negative number when a ranks ahead of b.
func CompareTieBreak(a, b []Kind) int {
	for _, k := range TieBreakOrder {
		if d := Count(b, k) - Count(a, k); d != 0 {
			return d
		}
	}
	return 0
}

// Primary returns the highest display-priority kind present.
func Primary(kinds []Kind) (Kind, bool) {
	for _, k := range DisplayOrder {
		if slices.Contains(kinds, k) {
			return k, true
		}
	}
	return "", false
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT
// ══════════════════════════════════════════════════════════════════════════════

// CurrentLabel is the date label of status medals.
const CurrentLabel = "Atual"

// Event is one awarded medal. Events are not persisted; the same kind may
// be earned many times.
type Event struct {
	Kind        Kind
	Name        string
	Description string
	DateLabel   string

	// At orders the trophy room. Current events sort after everything.
	At      time.Time
	Current bool

	// MatchID is empty for crowns, anchors, warnings and seeds.
	MatchID shared.MatchID
}

// SortKey returns the recency key in unix milliseconds; Current is +inf.
func (e Event) SortKey() int64 {
	if e.Current {
		return math.MaxInt64
	}
	return e.At.UnixMilli()
}

// Kinds extracts the kinds of events, in order.
func Kinds(events []Event) []Kind {
	out := make([]Kind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}
