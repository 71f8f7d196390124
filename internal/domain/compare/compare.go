// Package compare lines up two users' votes match by match.
package compare

import (
	"slices"
	"strings"
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/pool"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
)

// NoVote is shown when a user has no vote for the match.
const NoVote = "-"

// MatchInfo is the part of a match the comparison shows.
type MatchInfo struct {
	ID          shared.MatchID `json:"id"`
	TeamA       string         `json:"team_a"`
	TeamB       string         `json:"team_b"`
	TeamALogo   string         `json:"team_a_url,omitempty"`
	TeamBLogo   string         `json:"team_b_url,omitempty"`
	Competition string         `json:"competition"`
	Round       string         `json:"round"`
	Deadline    time.Time      `json:"deadline"`
	Winner      string         `json:"winner,omitempty"`
}

// Item is one compared match.
type Item struct {
	Match     MatchInfo `json:"match"`
	MyVote    string    `json:"my_vote"`
	RivalVote string    `json:"rival_vote"`
	Expired   bool      `json:"is_expired"`
}

// Build compares me against rival over every match, most recent deadline
// first. A match is listed when either user voted or its deadline passed.
func Build(s *pool.Snapshot, me, rival shared.UserID) []Item {
	matches := s.Matches()
	out := make([]Item, 0, len(matches))

	for i := range slices.Backward(matches) {
		m := &matches[i]
		mine, theirs := voteLabel(s, me, m), voteLabel(s, rival, m)
		expired := s.Now().After(m.Deadline)
		if mine == NoVote && theirs == NoVote && !expired {
			continue
		}
		out = append(out, Item{
			Match: MatchInfo{
				ID:          m.ID,
				TeamA:       m.TeamA,
				TeamB:       m.TeamB,
				TeamALogo:   m.TeamALogo,
				TeamBLogo:   m.TeamBLogo,
				Competition: m.Competition,
				Round:       m.Round,
				Deadline:    m.Deadline,
				Winner:      m.Winner,
			},
			MyVote:    mine,
			RivalVote: theirs,
			Expired:   expired,
		})
	}
	return out
}

// voteLabel renders a stored vote as the team name or the draw sentinel.
// Values that do not resolve are shown as stored.
func voteLabel(s *pool.Snapshot, uid shared.UserID, m *match.Match) string {
	v, ok := s.Vote(uid, m.ID)
	if !ok {
		return NoVote
	}
	if v.Counted() {
		return match.Encode(v.Pick, m.Teams())
	}
	if raw := strings.TrimSpace(v.Raw); raw != "" {
		return raw
	}
	return NoVote
}
