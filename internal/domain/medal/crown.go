package medal

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/timeutil"
)

// MonthlyPoints accumulates points per calendar month and user.
type MonthlyPoints map[timeutil.Month]map[shared.UserID]int

// Add credits pts to uid in month m.
func (mp MonthlyPoints) Add(m timeutil.Month, uid shared.UserID, pts int) {
	if pts == 0 {
		return
	}
	byUser, ok := mp[m]
	if !ok {
		byUser = make(map[shared.UserID]int)
		mp[m] = byUser
	}
	byUser[uid] += pts
}

// Award is a medal granted to one user.
type Award struct {
	UserID shared.UserID
	Event  Event
}

// Crowns returns one crown per fully elapsed month of the current year that
// has a single strict leader with more than zero points. Ties award nothing.
func Crowns(mp MonthlyPoints, now time.Time, loc *time.Location) []Award {
	current := timeutil.MonthOf(now, loc)

	months := make([]timeutil.Month, 0, len(mp))
	for m := range mp {
		if m.Year == current.Year && m.Before(current) {
			months = append(months, m)
		}
	}
	slices.SortFunc(months, func(a, b timeutil.Month) int {
		return int(a.Month) - int(b.Month)
	})

	var awards []Award
	for _, m := range months {
		leader, best, tied := shared.UserID(""), 0, false
		for uid, pts := range mp[m] {
			switch {
			case pts > best:
				leader, best, tied = uid, pts, false
			case pts == best:
				tied = true
			}
		}
		if best <= 0 || tied {
			continue
		}

		awards = append(awards, Award{
			UserID: leader,
			Event: Event{
				Kind:        Crown,
				Name:        "REI DE " + timeutil.MonthNamePt(m.Month),
				Description: fmt.Sprintf("Campeão isolado do mês (%d pts).", best),
				DateLabel:   strconv.Itoa(m.Year),
				At:          m.Start(loc),
			},
		})
	}
	return awards
}
