// Package scout summarizes one user's history for the analytics view: the
// simulated rank trajectory, consistency and risk labels, streaks and the
// per-competition accuracy table.
package scout

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/gosimple/slug"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/pool"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/user"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

// Undefined is shown for labels without enough data.
const Undefined = "-"

const (
	// DebtPenalty is what each debt costs in the rank simulation.
	DebtPenalty = 3

	// DefaultWindow is how many trajectory points the chart shows.
	DefaultWindow = 10

	minConsistencyPoints = 3
	minRiskMatches       = 5
	minCompetitionVotes  = 3
	lastFiveSize         = 5
)

// Consistency labels.
const (
	ConsistencyHigh   = "Alta"
	ConsistencyMedium = "Média"
	ConsistencyLow    = "Baixa"
)

// Risk labels.
const (
	RiskHigh   = "Alto"
	RiskMedium = "Médio"
	RiskLow    = "Baixo"
)

// Symbol is one entry of the hit/miss history.
type Symbol string

const (
	SymbolHit    Symbol = "✅"
	SymbolMiss   Symbol = "❌"
	SymbolNoVote Symbol = "🚫"
)

// sign maps a symbol to +1 (hit), -1 (miss) or 0 (no vote).
func (s Symbol) sign() int {
	switch s {
	case SymbolHit:
		return 1
	case SymbolMiss:
		return -1
	default:
		return 0
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REPORT
// ══════════════════════════════════════════════════════════════════════════════

// Stats are the headline numbers.
type Stats struct {
	// Matches is "voted/finished", e.g. "38/40".
	Matches  string `json:"confrontos"`
	Hits     string `json:"acertos"`
	Accuracy string `json:"precisao"`
}

// CompetitionRow is one line of the per-competition table.
type CompetitionRow struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Voted    int    `json:"voted"`
	Hits     int    `json:"hits"`
	Accuracy int    `json:"accuracy"`
}

// Streaks are the longest runs and how often each was reached.
type Streaks struct {
	MaxWin       int `json:"max_win_streak"`
	MaxLose      int `json:"max_lose_streak"`
	MaxWinCount  int `json:"max_win_streak_count"`
	MaxLoseCount int `json:"max_lose_streak_count"`
}

// Report is the analytics payload of one user.
type Report struct {
	UserID      shared.UserID `json:"user_id"`
	Consistency string        `json:"consistency_text"`
	Risk        string        `json:"risk_text"`
	Stats       Stats         `json:"stats"`

	// CurrentStreak is signed: +3 is three hits, -2 two misses.
	CurrentStreak int      `json:"current_streak"`
	LastFive      []Symbol `json:"last_five"`

	RankHistory       []int `json:"rank_history"`
	Chart             []int `json:"chart"`
	TotalParticipants int   `json:"total_participants"`
	BestRank          int   `json:"best_rank"`
	WorstRank         int   `json:"worst_rank"`
	BestRankCount     int   `json:"best_rank_count"`
	WorstRankCount    int   `json:"worst_rank_count"`

	Competitions     []CompetitionRow `json:"comp_table"`
	BestCompetition  string           `json:"best_comp"`
	WorstCompetition string           `json:"worst_comp"`

	Streaks
}

// emptyReport is returned for users absent from the dataset.
func emptyReport(uid shared.UserID, participants int) Report {
	return Report{
		UserID:            uid,
		Consistency:       Undefined,
		Risk:              Undefined,
		Stats:             Stats{Matches: "0/0", Hits: "0", Accuracy: timeutil.FormatPercentBR(0)},
		LastFive:          []Symbol{},
		RankHistory:       []int{},
		Chart:             []int{},
		TotalParticipants: participants,
		Competitions:      []CompetitionRow{},
		BestCompetition:   Undefined,
		WorstCompetition:  Undefined,
	}
}

// Summarize builds the report of uid. window limits the chart to the most
// recent trajectory points; zero or less uses DefaultWindow.
func Summarize(s *pool.Snapshot, uid shared.UserID, window int) Report {
	if window <= 0 {
		window = DefaultWindow
	}
	participants := max(1, len(s.Users()))

	u, ok := s.User(uid)
	if !ok {
		return emptyReport(uid, participants)
	}

	r := emptyReport(uid, participants)

	r.RankHistory = RankHistory(s, uid)
	r.Chart = slices.Clone(r.RankHistory[max(0, len(r.RankHistory)-window):])
	r.BestRank, r.BestRankCount, r.WorstRank, r.WorstRankCount = extremes(r.RankHistory)
	r.Consistency = Consistency(r.RankHistory)
	r.Risk = Risk(s, uid)

	history := History(s, u)
	r.CurrentStreak = CurrentStreak(history)
	r.LastFive = slices.Clone(history[:min(lastFiveSize, len(history))])
	r.Streaks = MaxStreaks(history)

	var comps []competitionTally
	r.Stats, comps = stats(s, u)
	r.Competitions = competitionTable(comps)
	r.BestCompetition, r.WorstCompetition = highlights(comps)

	return r
}

// ──────────────────────────────────────────────────────────────────────────────
// Rank trajectory
// ──────────────────────────────────────────────────────────────────────────────

// RankHistory replays the finished matches in order, crediting the base
// points of every eligible hit, and records uid's position after each one.
// The order is (points - debts*DebtPenalty) desc, debts asc, id asc.
func RankHistory(s *pool.Snapshot, uid shared.UserID) []int {
	users := s.Users()
	points := make(map[shared.UserID]int, len(users))
	order := make([]*user.User, len(users))
	for i := range users {
		order[i] = &users[i]
	}

	net := func(u *user.User) int { return points[u.ID] - u.Debts*DebtPenalty }

	finished := s.Finished()
	history := make([]int, 0, len(finished))
	for _, m := range finished {
		for _, u := range order {
			if s.Eligible(u, m) && s.IsHit(u.ID, m) {
				points[u.ID] += m.MainPoints()
			}
		}

		slices.SortFunc(order, func(a, b *user.User) int {
			if na, nb := net(a), net(b); na != nb {
				return nb - na
			}
			if a.Debts != b.Debts {
				return a.Debts - b.Debts
			}
			return strings.Compare(string(a.ID), string(b.ID))
		})

		pos := slices.IndexFunc(order, func(u *user.User) bool { return u.ID == uid })
		history = append(history, pos+1)
	}
	return history
}

func extremes(history []int) (best, bestCount, worst, worstCount int) {
	if len(history) == 0 {
		return 0, 0, 0, 0
	}
	best, worst = slices.Min(history), slices.Max(history)
	for _, p := range history {
		if p == best {
			bestCount++
		}
		if p == worst {
			worstCount++
		}
	}
	return best, bestCount, worst, worstCount
}

// Consistency labels the average absolute move between consecutive
// trajectory points.
func Consistency(history []int) string {
	if len(history) < minConsistencyPoints {
		return Undefined
	}
	var sum int
	for i := 1; i < len(history); i++ {
		d := history[i] - history[i-1]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	avg := float64(sum) / float64(len(history)-1)

	switch {
	case avg <= 2.2:
		return ConsistencyHigh
	case avg <= 2.5:
		return ConsistencyMedium
	default:
		return ConsistencyLow
	}
}

// Risk labels how far uid's picks stray from the crowd: over the finished
// matches uid was eligible for and voted on, the share of eligible valid
// votes equal to uid's own (uid included) is averaged, and risk is one minus
// that average.
func Risk(s *pool.Snapshot, uid shared.UserID) string {
	u, ok := s.User(uid)
	if !ok {
		return Undefined
	}
	var (
		considered int
		sumShare   float64
	)
	for _, m := range s.Finished() {
		if !s.Eligible(u, m) {
			continue
		}
		mine, ok := s.Vote(uid, m.ID)
		if !ok || !mine.Counted() {
			continue
		}
		var valid, same int
		for _, v := range s.Votes(m.ID) {
			if !v.Counted() {
				continue
			}
			if voter, ok := s.User(v.UserID); !ok || !s.Eligible(voter, m) {
				continue
			}
			valid++
			if v.Pick == mine.Pick {
				same++
			}
		}
		if valid == 0 {
			continue
		}
		sumShare += float64(same) / float64(valid)
		considered++
	}
	if considered < minRiskMatches {
		return Undefined
	}

	risk := 1 - sumShare/float64(considered)
	switch {
	case risk >= 0.5:
		return RiskHigh
	case risk >= 0.25:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Streaks
// ──────────────────────────────────────────────────────────────────────────────

// History returns one symbol per eligible finished match, most recent
// first. A row whose pick does not resolve is a miss; no row is a no-vote.
func History(s *pool.Snapshot, u *user.User) []Symbol {
	var out []Symbol
	for _, m := range s.FinishedDesc() {
		if !s.Eligible(u, m) {
			continue
		}
		out = append(out, symbolFor(s, u.ID, m))
	}
	return out
}

func symbolFor(s *pool.Snapshot, uid shared.UserID, m *match.Match) Symbol {
	v, ok := s.Vote(uid, m.ID)
	switch {
	case !ok || !v.HasRaw():
		return SymbolNoVote
	case s.IsHit(uid, m):
		return SymbolHit
	default:
		return SymbolMiss
	}
}

// CurrentStreak is the signed length of the most recent run. Leading
// no-votes are skipped; a no-vote or a change of type ends the run.
func CurrentStreak(history []Symbol) int {
	streak, kind := 0, 0
	for _, sym := range history {
		sg := sym.sign()
		if kind == 0 {
			if sg == 0 {
				continue
			}
			kind, streak = sg, sg
			continue
		}
		if sg != kind {
			break
		}
		streak += sg
	}
	return streak
}

// MaxStreaks scans history in the given order. A no-vote resets the run.
// The counts are how many runs reached the maximum length.
func MaxStreaks(history []Symbol) Streaks {
	var st Streaks
	scan(history, func(kind, n int) {
		if kind > 0 {
			st.MaxWin = max(st.MaxWin, n)
		} else {
			st.MaxLose = max(st.MaxLose, n)
		}
	})
	if st.MaxWin > 0 || st.MaxLose > 0 {
		scan(history, func(kind, n int) {
			if kind > 0 && n == st.MaxWin {
				st.MaxWinCount++
			}
			if kind < 0 && n == st.MaxLose {
				st.MaxLoseCount++
			}
		})
	}
	return st
}

// scan calls visit with the run type and length after every symbol that
// extends or starts a run.
func scan(history []Symbol, visit func(kind, n int)) {
	kind, n := 0, 0
	for _, sym := range history {
		sg := sym.sign()
		if sg == 0 {
			kind, n = 0, 0
			continue
		}
		if sg != kind {
			kind, n = sg, 1
		} else {
			n++
		}
		visit(kind, n)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Stats and competitions
// ──────────────────────────────────────────────────────────────────────────────

type competitionTally struct {
	name  string
	voted int
	hits  int
}

func (c competitionTally) ratio() float64 {
	if c.voted == 0 {
		return 0
	}
	return float64(c.hits) / float64(c.voted)
}

func stats(s *pool.Snapshot, u *user.User) (Stats, []competitionTally) {
	var voted, hits int
	byName := make(map[string]*competitionTally)
	var order []string

	for _, m := range s.Finished() {
		if !s.Eligible(u, m) {
			continue
		}
		v, ok := s.Vote(u.ID, m.ID)
		if !ok || !v.HasRaw() {
			continue
		}
		voted++
		hit := s.IsHit(u.ID, m)
		if hit {
			hits++
		}

		name := m.Competition
		if strings.TrimSpace(name) == "" {
			name = Undefined
		}
		c, ok := byName[name]
		if !ok {
			c = &competitionTally{name: name}
			byName[name] = c
			order = append(order, name)
		}
		c.voted++
		if hit {
			c.hits++
		}
	}

	var accuracy float64
	if voted > 0 {
		accuracy = float64(hits) / float64(voted) * 100
	}

	comps := make([]competitionTally, len(order))
	for i, name := range order {
		comps[i] = *byName[name]
	}

	return Stats{
		Matches:  fmt.Sprintf("%d/%d", voted, len(s.Finished())),
		Hits:     strconv.Itoa(hits),
		Accuracy: timeutil.FormatPercentBR(accuracy),
	}, comps
}

// truncPct is the integer-truncated percentage.
func truncPct(hits, voted int) int {
	if voted <= 0 {
		return 0
	}
	return hits * 100 / voted
}

func competitionTable(comps []competitionTally) []CompetitionRow {
	rows := make([]CompetitionRow, len(comps))
	for i, c := range comps {
		rows[i] = CompetitionRow{
			Name:     c.name,
			Slug:     slug.Make(c.name),
			Voted:    c.voted,
			Hits:     c.hits,
			Accuracy: truncPct(c.hits, c.voted),
		}
	}
	slices.SortFunc(rows, func(a, b CompetitionRow) int {
		if a.Accuracy != b.Accuracy {
			return b.Accuracy - a.Accuracy
		}
		if a.Voted != b.Voted {
			return b.Voted - a.Voted
		}
		return strings.Compare(a.Name, b.Name)
	})
	return rows
}

// highlights picks the best and worst competitions among those with at
// least minCompetitionVotes votes, by exact hit ratio.
func highlights(comps []competitionTally) (best, worst string) {
	var valid []competitionTally
	for _, c := range comps {
		if c.voted >= minCompetitionVotes {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return Undefined, Undefined
	}

	slices.SortStableFunc(valid, func(a, b competitionTally) int {
		ra, rb := a.ratio(), b.ratio()
		switch {
		case math.Abs(ra-rb) < 1e-12:
			return strings.Compare(a.name, b.name)
		case ra > rb:
			return -1
		default:
			return 1
		}
	})

	label := func(c competitionTally) string {
		return fmt.Sprintf("%s (%d%%)", c.name, truncPct(c.hits, c.voted))
	}
	return label(valid[0]), label(valid[len(valid)-1])
}
