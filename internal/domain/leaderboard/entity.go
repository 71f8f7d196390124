// Package leaderboard aggregates scored history into the general standings,
// the monthly sub-ranking and the per-user medal ledger, and models the
// persisted ranking snapshots that feed the up/down arrows.
package leaderboard

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/medal"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Rank is a 1-based position in the standings.
type Rank int

// IsValid reports whether the rank is positive.
func (r Rank) IsValid() bool {
	return r > 0
}

// String returns "#N".
func (r Rank) String() string {
	return fmt.Sprintf("#%d", r)
}

// RankChange is the movement since the last displayed rank.
// Positive means the user climbed.
type RankChange int

// Direction returns the arrow direction.
func (rc RankChange) Direction() RankDirection {
	switch {
	case rc > 0:
		return RankDirectionUp
	case rc < 0:
		return RankDirectionDown
	default:
		return RankDirectionStable
	}
}

// Abs returns the absolute movement.
func (rc RankChange) Abs() int {
	if rc < 0 {
		return int(-rc)
	}
	return int(rc)
}

// String returns "+N", "-N" or "±0".
func (rc RankChange) String() string {
	switch {
	case rc > 0:
		return fmt.Sprintf("+%d", rc)
	case rc < 0:
		return fmt.Sprintf("%d", rc)
	default:
		return "±0"
	}
}

// RankDirection is the arrow shown next to a row.
type RankDirection string

const (
	RankDirectionUp     RankDirection = "up"
	RankDirectionDown   RankDirection = "down"
	RankDirectionStable RankDirection = "stable"
	// RankDirectionNew marks users with no previous rank.
	RankDirectionNew RankDirection = "new"
)

// Emoji returns the arrow icon.
func (rd RankDirection) Emoji() string {
	switch rd {
	case RankDirectionUp:
		return "🔼"
	case RankDirectionDown:
		return "🔽"
	case RankDirectionNew:
		return "🆕"
	default:
		return "➖"
	}
}

// ChangeFrom computes the movement from lastRank to current.
// A lastRank of 0 means unknown.
func ChangeFrom(lastRank int, current Rank) (RankChange, RankDirection) {
	if lastRank <= 0 {
		return 0, RankDirectionNew
	}
	rc := RankChange(lastRank - int(current))
	return rc, rc.Direction()
}

// ══════════════════════════════════════════════════════════════════════════════
// ROWS
// ══════════════════════════════════════════════════════════════════════════════

// Row is one line of the general standings.
type Row struct {
	Position     Rank          `json:"position"`
	UserID       shared.UserID `json:"user_id"`
	DisplayName  string        `json:"display_name"`
	Photo        string        `json:"photo,omitempty"`
	Points       int           `json:"points"`
	Medals       []medal.Kind  `json:"medals"`
	DisplayMedal medal.Kind    `json:"display_medal,omitempty"`
	LastRank     int           `json:"last_rank"`
	Change       RankChange    `json:"rank_change"`
	Direction    RankDirection `json:"direction"`
}

// MonthlyRow is one line of the current month's ranking.
type MonthlyRow struct {
	UserID      shared.UserID `json:"user_id"`
	DisplayName string        `json:"display_name"`
	Photo       string        `json:"photo,omitempty"`
	Points      int           `json:"points"`
}

// compareRows is the standings order: points desc, medal tie-break, id asc.
// It never returns 0 for distinct users.
func compareRows(a, b *Row) int {
	if a.Points != b.Points {
		return b.Points - a.Points
	}
	if c := medal.CompareTieBreak(a.Medals, b.Medals); c != 0 {
		return c
	}
	return strings.Compare(string(a.UserID), string(b.UserID))
}

func compareMonthly(a, b MonthlyRow) int {
	if a.Points != b.Points {
		return b.Points - a.Points
	}
	if c := strings.Compare(a.DisplayName, b.DisplayName); c != 0 {
		return c
	}
	return strings.Compare(string(a.UserID), string(b.UserID))
}

// ══════════════════════════════════════════════════════════════════════════════
// STANDINGS
// ══════════════════════════════════════════════════════════════════════════════

// NoFinishedMatches is the last-update text before any result exists.
const NoFinishedMatches = "Sem jogos finalizados"

// Standings is the full ranking payload for one dataset version, computed
// during one calendar month.
type Standings struct {
	Version        int64        `json:"version"`
	Month          string       `json:"month"`
	Rows           []Row        `json:"ranking"`
	Monthly        []MonthlyRow `json:"monthly_ranking"`
	LastUpdateInfo string       `json:"last_update_info"`

	// events is kept for profile views; it is not part of the cached payload.
	events map[shared.UserID][]medal.Event
	names  map[shared.UserID]string
	photos map[shared.UserID]string
}

// CacheKey identifies cached standings. The monthly ranking and the crowns
// change when the month turns even if the dataset does not.
type CacheKey struct {
	Version int64
	Month   string
}

// Key returns the cache key of s.
func (s *Standings) Key() CacheKey {
	return CacheKey{Version: s.Version, Month: s.Month}
}

// Row returns the row of uid.
func (s *Standings) Row(uid shared.UserID) (*Row, bool) {
	for i := range s.Rows {
		if s.Rows[i].UserID == uid {
			return &s.Rows[i], true
		}
	}
	return nil, false
}

// Events returns the medal events of uid in award order.
func (s *Standings) Events(uid shared.UserID) []medal.Event {
	return slices.Clone(s.events[uid])
}

// Profile builds the medal profile of uid; unknown users get an empty one.
func (s *Standings) Profile(uid shared.UserID) medal.Profile {
	name, ok := s.names[uid]
	if !ok {
		return medal.EmptyProfile(uid)
	}
	return medal.BuildProfile(uid, name, s.photos[uid], s.events[uid])
}

// Positions maps every user to its current rank.
func (s *Standings) Positions() map[shared.UserID]int {
	out := make(map[shared.UserID]int, len(s.Rows))
	for _, r := range s.Rows {
		out[r.UserID] = int(r.Position)
	}
	return out
}

// ApplyPreviousRanks replaces LastRank with prev (e.g. from the latest
// persisted snapshot) and recomputes the arrows. Users absent from prev keep
// the rank stored on their record.
func (s *Standings) ApplyPreviousRanks(prev map[shared.UserID]int) {
	for i := range s.Rows {
		r := &s.Rows[i]
		if last, ok := prev[r.UserID]; ok {
			r.LastRank = last
		}
		r.Change, r.Direction = ChangeFrom(r.LastRank, r.Position)
	}
}
