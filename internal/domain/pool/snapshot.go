// Package pool builds the immutable, indexed view of the three raw
// collections (users, matches, guesses) that every ranking, medal, scout,
// ledger and comparison computation reads from.
//
// A Snapshot is built once per request from a fresh Dataset and never
// mutated; every view is a pure function of it.
package pool

import (
	"slices"
	"strings"
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/guess"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/user"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/timeutil"
)

// Dataset is the raw input: all three collections fetched in full.
type Dataset struct {
	Users   []user.User
	Matches []match.Match
	Guesses []guess.Guess

	// Version is the app-state change counter the dataset was read at.
	Version int64
}

// Vote is a guess row with its main pick already normalized.
type Vote struct {
	guess.Guess
	Pick match.Pick
}

// Counted reports whether the main pick resolved to a side.
func (v *Vote) Counted() bool {
	return v != nil && v.Pick.Valid()
}

// Snapshot is the indexed, read-only dataset.
type Snapshot struct {
	now     time.Time
	loc     *time.Location
	version int64

	users     []user.User
	userIndex map[shared.UserID]int

	// matches are ordered by (deadline, createdAt, id) and numbered.
	matches    []match.Match
	matchIndex map[shared.MatchID]int
	finished   []int

	votes        map[guess.Key]*Vote
	votesByMatch map[shared.MatchID][]*Vote
	winners      map[shared.MatchID]match.Pick
	eligible     map[shared.MatchID]int
}

// Build indexes ds at now. Matches without a deadline are dropped, guess
// rows with an empty user or match id are ignored, and for duplicate
// (user, match) rows the last one wins.
func Build(ds Dataset, now time.Time, loc *time.Location) *Snapshot {
	if loc == nil {
		loc = timeutil.LoadLocation(timeutil.DefaultZone)
	}

	s := &Snapshot{
		now:          now,
		loc:          loc,
		version:      ds.Version,
		userIndex:    make(map[shared.UserID]int, len(ds.Users)),
		matchIndex:   make(map[shared.MatchID]int, len(ds.Matches)),
		votes:        make(map[guess.Key]*Vote, len(ds.Guesses)),
		votesByMatch: make(map[shared.MatchID][]*Vote),
		winners:      make(map[shared.MatchID]match.Pick),
		eligible:     make(map[shared.MatchID]int),
	}

	s.indexUsers(ds.Users)
	s.indexMatches(ds.Matches)
	s.indexGuesses(ds.Guesses)
	s.countEligible()

	return s
}

func (s *Snapshot) indexUsers(list []user.User) {
	byID := make(map[shared.UserID]user.User, len(list))
	for _, u := range list {
		if u.ID.IsEmpty() {
			continue
		}
		byID[u.ID] = u
	}

	s.users = make([]user.User, 0, len(byID))
	for _, u := range byID {
		s.users = append(s.users, u)
	}
	slices.SortFunc(s.users, func(a, b user.User) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	for i, u := range s.users {
		s.userIndex[u.ID] = i
	}
}

func (s *Snapshot) indexMatches(list []match.Match) {
	s.matches = match.AssignNumbers(match.Order(list))
	for i := range s.matches {
		m := &s.matches[i]
		s.matchIndex[m.ID] = i
		if m.IsFinished() {
			s.finished = append(s.finished, i)
			if p, ok := m.WinnerPick(); ok {
				s.winners[m.ID] = p
			}
		}
	}
}

func (s *Snapshot) indexGuesses(list []guess.Guess) {
	for _, g := range list {
		if !g.IsUsable() {
			continue
		}
		idx, ok := s.matchIndex[g.MatchID]
		if !ok {
			continue
		}

		pick, _ := match.Normalize(g.Raw, s.matches[idx].Teams())
		v := &Vote{Guess: g, Pick: pick}

		if prev, dup := s.votes[g.Key()]; dup {
			*prev = *v
			continue
		}
		s.votes[g.Key()] = v
		s.votesByMatch[g.MatchID] = append(s.votesByMatch[g.MatchID], v)
	}
}

func (s *Snapshot) countEligible() {
	for i := range s.matches {
		m := &s.matches[i]
		n := 0
		for j := range s.users {
			if s.users[j].EligibleFor(m.Deadline) {
				n++
			}
		}
		s.eligible[m.ID] = n
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Accessors
// ──────────────────────────────────────────────────────────────────────────────

// Now is the instant the snapshot was built for.
func (s *Snapshot) Now() time.Time { return s.now }

// Location is the calendar used for months and date labels.
func (s *Snapshot) Location() *time.Location { return s.loc }

// Version is the dataset version the snapshot was built from.
func (s *Snapshot) Version() int64 { return s.version }

// Users returns every user sorted by id.
func (s *Snapshot) Users() []user.User { return s.users }

// User looks a user up by id.
func (s *Snapshot) User(id shared.UserID) (*user.User, bool) {
	i, ok := s.userIndex[id]
	if !ok {
		return nil, false
	}
	return &s.users[i], true
}

// Matches returns the ordered, numbered matches that have a deadline.
func (s *Snapshot) Matches() []match.Match { return s.matches }

// Match looks a match up by id.
func (s *Snapshot) Match(id shared.MatchID) (*match.Match, bool) {
	i, ok := s.matchIndex[id]
	if !ok {
		return nil, false
	}
	return &s.matches[i], true
}

// Finished returns the finished matches in ascending match order.
func (s *Snapshot) Finished() []*match.Match {
	out := make([]*match.Match, len(s.finished))
	for i, idx := range s.finished {
		out[i] = &s.matches[idx]
	}
	return out
}

// FinishedDesc returns the finished matches, most recent first.
func (s *Snapshot) FinishedDesc() []*match.Match {
	out := s.Finished()
	slices.Reverse(out)
	return out
}

// Vote returns the guess row of a user for a match, if one exists.
func (s *Snapshot) Vote(uid shared.UserID, mid shared.MatchID) (*Vote, bool) {
	v, ok := s.votes[guess.Key{UserID: uid, MatchID: mid}]
	return v, ok
}

// Votes returns every guess row of a match.
func (s *Snapshot) Votes(mid shared.MatchID) []*Vote {
	return s.votesByMatch[mid]
}

// Winner returns the normalized winner of a finished match.
func (s *Snapshot) Winner(mid shared.MatchID) (match.Pick, bool) {
	p, ok := s.winners[mid]
	return p, ok
}

// Eligible reports whether u existed strictly before the match deadline.
func (s *Snapshot) Eligible(u *user.User, m *match.Match) bool {
	return u.EligibleFor(m.Deadline)
}

// EligibleCount returns how many users were eligible for a match.
func (s *Snapshot) EligibleCount(mid shared.MatchID) int {
	return s.eligible[mid]
}

// IsHit reports whether the user's normalized pick equals the normalized
// winner. A missing row, an unresolvable pick or an unresolvable winner
// never hits.
func (s *Snapshot) IsHit(uid shared.UserID, m *match.Match) bool {
	w, ok := s.winners[m.ID]
	if !ok {
		return false
	}
	v, ok := s.Vote(uid, m.ID)
	return ok && v.Counted() && v.Pick == w
}

// WinnerVotes counts the rows whose pick equals the normalized winner.
func (s *Snapshot) WinnerVotes(m *match.Match) int {
	w, ok := s.winners[m.ID]
	if !ok {
		return 0
	}
	n := 0
	for _, v := range s.votesByMatch[m.ID] {
		if v.Counted() && v.Pick == w {
			n++
		}
	}
	return n
}
