// Package match contains the match aggregate of the pool: teams, deadline,
// result, derived status, the canonical Pick and the global match order.
package match

import (
	"strings"
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/textfold"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Status is derived on every read and never stored.
type Status string

const (
	// StatusOpen - no winner and the deadline has not passed.
	StatusOpen Status = "OPEN"
	// StatusWaiting - no winner but voting is closed.
	StatusWaiting Status = "WAITING"
	// StatusFinished - a winner was declared.
	StatusFinished Status = "FINISHED"
)

// Label returns the section title shown for the status.
func (s Status) Label() string {
	switch s {
	case StatusOpen:
		return "ABERTOS"
	case StatusWaiting:
		return "AGUARDANDO RESULTADO"
	default:
		return "FINALIZADOS"
	}
}

// LegType tells which leg of a two-legged tie a match is.
type LegType string

const (
	LegNone   LegType = ""
	LegFirst  LegType = "FIRST_LEG"
	LegSecond LegType = "SECOND_LEG"
	LegSingle LegType = "SINGLE"
)

// ParseLegType accepts the canonical names and the Portuguese aliases
// IDA, VOLTA and UNICO. Unknown values map to LegNone.
func ParseLegType(s string) LegType {
	switch textfold.Fold(s) {
	case "first leg", "ida":
		return LegFirst
	case "second leg", "volta":
		return LegSecond
	case "single", "unico":
		return LegSingle
	default:
		return LegNone
	}
}

// AsksQualifier reports whether this leg decides who advances.
func (l LegType) AsksQualifier() bool {
	return l == LegSecond || l == LegSingle
}

// Round labels the pipeline cares about, in folded form.
const (
	roundFinal       = "final"
	roundOfSixteen   = "oitavas de final"
	roundLeagueMark  = "pontos corridos"
	roundGroupsMark  = "fase de grupos"
	finalRoundPoints = 6
	baseRoundPoints  = 3
)

// IsFinalRound reports whether the folded round label is exactly "final".
func IsFinalRound(round string) bool {
	return textfold.Fold(round) == roundFinal
}

// IsRoundOfSixteen reports whether the folded round label is "oitavas de final".
func IsRoundOfSixteen(round string) bool {
	return textfold.Fold(round) == roundOfSixteen
}

// IsKnockoutRound reports whether a round is an elimination round. League
// ("pontos corridos") and group-stage ("fase de grupos") rounds are not.
func IsKnockoutRound(round string) bool {
	return !textfold.Contains(round, roundLeagueMark) && !textfold.Contains(round, roundGroupsMark)
}

// AskQualifierFor derives the qualifier market flag.
func AskQualifierFor(round string, leg LegType) bool {
	return IsKnockoutRound(round) && leg.AsksQualifier()
}

// VoteCounters are denormalized per-side vote counts kept on the match row.
// They are a best-effort cache for the write path; the pipeline recounts
// from guesses and never reads them.
type VoteCounters struct {
	A    int `json:"votes_a"`
	B    int `json:"votes_b"`
	Draw int `json:"votes_d"`
}

// Apply moves one vote from prev to next. Counters never go below zero.
func (c VoteCounters) Apply(prev, next Pick) VoteCounters {
	if prev == next {
		return c
	}
	switch prev {
	case PickA:
		c.A = max(0, c.A-1)
	case PickB:
		c.B = max(0, c.B-1)
	case PickDraw:
		c.Draw = max(0, c.Draw-1)
	}
	switch next {
	case PickA:
		c.A++
	case PickB:
		c.B++
	case PickDraw:
		c.Draw++
	}
	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Match is one fixture users vote on.
type Match struct {
	ID          shared.MatchID
	TeamA       string
	TeamB       string
	TeamALogo   string
	TeamBLogo   string
	Competition string
	Round       string

	// Deadline closes voting. A zero Deadline means the record is incomplete
	// and the match is excluded from every computation.
	Deadline  time.Time
	CreatedAt time.Time

	AllowDraw    bool
	LegType      LegType
	AskQualifier bool

	// Result. Winner holds the stored raw value (team name or "EMPATE"),
	// "" while undecided. Goals are nil until a score is entered.
	Winner     string
	GoalsA     *int
	GoalsB     *int
	Qualifier  string
	FinishedAt time.Time

	// Number is the persisted sequence number, 0 when never stored.
	Number int

	Counters VoteCounters
}

// Teams returns the normalizer view of the match.
func (m *Match) Teams() Teams {
	return Teams{A: m.TeamA, B: m.TeamB}
}

// Title returns "TeamA x TeamB".
func (m *Match) Title() string {
	return m.TeamA + " x " + m.TeamB
}

// HasDeadline reports whether the match can take part in scoring.
func (m *Match) HasDeadline() bool {
	return !m.Deadline.IsZero()
}

// IsFinished reports whether a winner was declared.
func (m *Match) IsFinished() bool {
	return strings.TrimSpace(m.Winner) != ""
}

// Status derives OPEN / WAITING / FINISHED at now.
func (m *Match) Status(now time.Time) Status {
	if m.IsFinished() {
		return StatusFinished
	}
	if m.IsExpired(now) {
		return StatusWaiting
	}
	return StatusOpen
}

// IsExpired reports whether the voting deadline has been reached at now.
func (m *Match) IsExpired(now time.Time) bool {
	return m.HasDeadline() && !now.Before(m.Deadline)
}

// IsClosed reports whether votes are no longer accepted.
func (m *Match) IsClosed(now time.Time) bool {
	return m.IsFinished() || m.IsExpired(now)
}

// WinnerPick normalizes the declared winner.
func (m *Match) WinnerPick() (Pick, bool) {
	if !m.IsFinished() {
		return NoPick, false
	}
	return Normalize(m.Winner, m.Teams())
}

// HasScore reports whether both goal counts are present.
func (m *Match) HasScore() bool {
	return m.GoalsA != nil && m.GoalsB != nil
}

// IsOver reports whether three or more goals were scored. Only meaningful with HasScore.
func (m *Match) IsOver() bool {
	return m.HasScore() && *m.GoalsA+*m.GoalsB >= 3
}

// BothScored reports whether both teams scored. Only meaningful with HasScore.
func (m *Match) BothScored() bool {
	return m.HasScore() && *m.GoalsA > 0 && *m.GoalsB > 0
}

// HasQualifier reports whether the qualifier market is decided.
func (m *Match) HasQualifier() bool {
	return m.AskQualifier && strings.TrimSpace(m.Qualifier) != ""
}

// IsFinal reports whether the match belongs to the final.
func (m *Match) IsFinal() bool {
	return IsFinalRound(m.Round)
}

// MainPoints returns the base points for a correct main pick.
func (m *Match) MainPoints() int {
	if m.IsFinal() {
		return finalRoundPoints
	}
	return baseRoundPoints
}

// Validate checks the invariants required to persist a new match.
func (m *Match) Validate() error {
	if m.ID.IsEmpty() {
		return shared.ErrInvalidMatchID
	}
	if strings.TrimSpace(m.TeamA) == "" || strings.TrimSpace(m.TeamB) == "" {
		return shared.ErrMissingTeams
	}
	if !m.HasDeadline() {
		return shared.ErrMissingDeadline
	}
	return nil
}

// Result is the outcome an admin records for a match.
type Result struct {
	Winner     string
	GoalsA     *int
	GoalsB     *int
	Qualifier  string
	FinishedAt time.Time
}

// ApplyResult validates r against the match and returns the normalized
// result to persist: the winner encoded from its Pick, the qualifier
// replaced by the matching team name, or cleared when not asked.
func (m *Match) ApplyResult(r Result) (Result, error) {
	pick, ok := Normalize(r.Winner, m.Teams())
	if !ok || (pick == PickDraw && !m.AllowDraw) {
		return Result{}, shared.ErrInvalidWinner
	}
	if (r.GoalsA != nil && *r.GoalsA < 0) || (r.GoalsB != nil && *r.GoalsB < 0) {
		return Result{}, shared.ErrNegativeGoals
	}

	out := Result{
		Winner:     Encode(pick, m.Teams()),
		GoalsA:     r.GoalsA,
		GoalsB:     r.GoalsB,
		FinishedAt: r.FinishedAt,
	}

	if m.AskQualifier && strings.TrimSpace(r.Qualifier) != "" {
		q, ok := Normalize(r.Qualifier, m.Teams())
		if !ok || q == PickDraw {
			return Result{}, shared.ErrInvalidQualifier
		}
		out.Qualifier = Encode(q, m.Teams())
	}
	return out, nil
}
