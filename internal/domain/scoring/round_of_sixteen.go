package scoring

import (
	"slices"
	"strings"
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
)

const (
	// RoundOfSixteenSize is the number of matches a complete round of 16 has.
	RoundOfSixteenSize = 8
	// RoundOfSixteenBonus is awarded for picking every winner of the round.
	RoundOfSixteenBonus = 3
)

// RoundGroup is one competition's complete round of 16.
type RoundGroup struct {
	Competition string
	Matches     []*match.Match
}

// LastDeadline is the latest deadline in the group; bonus points are
// attributed to its month.
func (g RoundGroup) LastDeadline() time.Time {
	var last time.Time
	for _, m := range g.Matches {
		if m.Deadline.After(last) {
			last = m.Deadline
		}
	}
	return last
}

// Perfect reports whether hit holds for every match of the group.
func (g RoundGroup) Perfect(hit func(*match.Match) bool) bool {
	for _, m := range g.Matches {
		if !hit(m) {
			return false
		}
	}
	return len(g.Matches) == RoundOfSixteenSize
}

// RoundOfSixteenGroups groups finished round-of-16 matches by competition
// and keeps the groups with exactly eight matches, sorted by competition.
func RoundOfSixteenGroups(finished []*match.Match) []RoundGroup {
	byComp := make(map[string][]*match.Match)
	for _, m := range finished {
		if !m.IsFinished() || !match.IsRoundOfSixteen(m.Round) {
			continue
		}
		byComp[m.Competition] = append(byComp[m.Competition], m)
	}

	groups := make([]RoundGroup, 0, len(byComp))
	for comp, list := range byComp {
		if len(list) != RoundOfSixteenSize {
			continue
		}
		groups = append(groups, RoundGroup{Competition: comp, Matches: list})
	}
	slices.SortFunc(groups, func(a, b RoundGroup) int {
		return strings.Compare(a.Competition, b.Competition)
	})
	return groups
}
