package leaderboard

import (
	"slices"
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/medal"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/pool"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/scoring"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/user"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/timeutil"
)

// RelegationZone is the number of bottom rows that get the anchor.
const RelegationZone = 4

// tally accumulates one user's totals before sorting.
type tally struct {
	user    *user.User
	points  int
	monthly int
	events  []medal.Event
}

// Compute runs the full pipeline over s: scoring, round-of-16 bonus, medal
// replay, warnings, seed medals, monthly crowns, sort and relegation zone.
// The result depends only on s and seeds.
func Compute(s *pool.Snapshot, seeds []medal.Seed) *Standings {
	loc := s.Location()
	current := timeutil.MonthOf(s.Now(), loc)
	finished := s.Finished()
	zebras := medal.Zebras(s)
	groups := scoring.RoundOfSixteenGroups(finished)
	byMonth := medal.MonthlyPoints{}

	users := s.Users()
	tallies := make([]*tally, len(users))
	byID := make(map[shared.UserID]*tally, len(users))

	for i := range users {
		u := &users[i]
		t := &tally{user: u}
		tallies[i] = t
		byID[u.ID] = t

		credit := func(pts int, m timeutil.Month) {
			t.points += pts
			if m == current {
				t.monthly += pts
			}
			byMonth.Add(m, u.ID, pts)
		}

		for _, m := range finished {
			if !s.Eligible(u, m) {
				continue
			}
			out := ScoreMatch(s, u.ID, m)
			if out.Total() > 0 {
				credit(out.Total(), timeutil.MonthOf(m.Deadline, loc))
			}
		}

		for _, g := range groups {
			perfect := g.Perfect(func(m *match.Match) bool {
				return s.Eligible(u, m) && s.IsHit(u.ID, m)
			})
			if !perfect {
				continue
			}
			credit(scoring.RoundOfSixteenBonus, timeutil.MonthOf(g.LastDeadline(), loc))
			t.events = append(t.events, medal.RoundOfSixteen(g, s))
		}

		t.events = append(t.events, medal.Replay(s, u, zebras)...)
		t.events = append(t.events, medal.Warnings(s, u)...)
		t.events = append(t.events, medal.SeedsFor(seeds, u.ID)...)
	}

	for _, a := range medal.Crowns(byMonth, s.Now(), loc) {
		if t, ok := byID[a.UserID]; ok {
			t.events = append(t.events, a.Event)
		}
	}

	st := &Standings{
		Version:        s.Version(),
		Month:          current.String(),
		Rows:           make([]Row, len(tallies)),
		Monthly:        make([]MonthlyRow, len(tallies)),
		LastUpdateInfo: LastUpdateInfo(s),
		events:         make(map[shared.UserID][]medal.Event, len(tallies)),
		names:          make(map[shared.UserID]string, len(tallies)),
		photos:         make(map[shared.UserID]string, len(tallies)),
	}

	for i, t := range tallies {
		name := t.user.DisplayName()
		st.Rows[i] = Row{
			UserID:      t.user.ID,
			DisplayName: name,
			Photo:       t.user.Photo,
			Points:      t.points,
			Medals:      medal.Kinds(t.events),
			LastRank:    t.user.LastRank,
		}
		st.Monthly[i] = MonthlyRow{
			UserID:      t.user.ID,
			DisplayName: name,
			Photo:       t.user.Photo,
			Points:      t.monthly,
		}
	}

	slices.SortFunc(st.Rows, func(a, b Row) int { return compareRows(&a, &b) })
	slices.SortFunc(st.Monthly, compareMonthly)

	if len(st.Rows) > RelegationZone {
		for i := len(st.Rows) - RelegationZone; i < len(st.Rows); i++ {
			byID[st.Rows[i].UserID].events = append(byID[st.Rows[i].UserID].events, medal.Relegation())
			st.Rows[i].Medals = append(st.Rows[i].Medals, medal.Anchor)
		}
	}

	for i := range st.Rows {
		r := &st.Rows[i]
		r.Position = Rank(i + 1)
		r.Change, r.Direction = ChangeFrom(r.LastRank, r.Position)
		if k, ok := medal.Primary(r.Medals); ok {
			r.DisplayMedal = k
		}
	}

	for _, t := range tallies {
		st.events[t.user.ID] = t.events
		st.names[t.user.ID] = t.user.DisplayName()
		st.photos[t.user.ID] = t.user.Photo
	}

	return st
}

// ScoreMatch scores the stored guess of uid for m (no row scores nothing).
func ScoreMatch(s *pool.Snapshot, uid shared.UserID, m *match.Match) scoring.Outcome {
	v, ok := s.Vote(uid, m.ID)
	if !ok {
		return scoring.Evaluate(m, match.NoPick, nil)
	}
	return scoring.Evaluate(m, v.Pick, &v.Guess)
}

// LastUpdateInfo describes the most recently finished match as
// "dd/mm/yyyy hh:mm\nTeamA x TeamB", using finishedAt or else the deadline.
func LastUpdateInfo(s *pool.Snapshot) string {
	var best *match.Match
	for _, m := range s.FinishedDesc() {
		if best == nil || resultTime(m).After(resultTime(best)) {
			best = m
		}
	}
	if best == nil {
		return NoFinishedMatches
	}
	return timeutil.FormatDateTimeBR(resultTime(best), s.Location()) + "\n" + best.Title()
}

func resultTime(m *match.Match) time.Time {
	if !m.FinishedAt.IsZero() {
		return m.FinishedAt
	}
	return m.Deadline
}
