package leaderboard

import (
	"fmt"
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// RankingSnapshot is a persisted copy of the positions at one dataset
// version. Snapshots only feed LastRank for the arrows; the standings are
// always recomputed from the dataset.
type RankingSnapshot struct {
	ID           string
	Version      int64
	SnapshotAt   time.Time
	Participants int
	Entries      []SnapshotEntry

	byID map[shared.UserID]*SnapshotEntry
}

// SnapshotEntry is one persisted position.
type SnapshotEntry struct {
	UserID shared.UserID
	Rank   Rank
	Points int
}

// NewRankingSnapshot captures the positions of st.
func NewRankingSnapshot(id string, st *Standings, at time.Time) *RankingSnapshot {
	entries := make([]SnapshotEntry, len(st.Rows))
	for i, r := range st.Rows {
		entries[i] = SnapshotEntry{UserID: r.UserID, Rank: r.Position, Points: r.Points}
	}
	s := &RankingSnapshot{
		ID:           id,
		Version:      st.Version,
		SnapshotAt:   at.UTC(),
		Participants: len(entries),
		Entries:      entries,
	}
	s.RebuildIndex()
	return s
}

// RebuildIndex rebuilds the lookup index after loading from storage.
func (s *RankingSnapshot) RebuildIndex() {
	s.byID = make(map[shared.UserID]*SnapshotEntry, len(s.Entries))
	for i := range s.Entries {
		s.byID[s.Entries[i].UserID] = &s.Entries[i]
	}
}

// GetRank returns the rank of uid, 0 when absent.
func (s *RankingSnapshot) GetRank(uid shared.UserID) Rank {
	if s.byID == nil {
		s.RebuildIndex()
	}
	if e, ok := s.byID[uid]; ok {
		return e.Rank
	}
	return 0
}

// Ranks maps every user of the snapshot to its rank.
func (s *RankingSnapshot) Ranks() map[shared.UserID]int {
	out := make(map[shared.UserID]int, len(s.Entries))
	for _, e := range s.Entries {
		out[e.UserID] = int(e.Rank)
	}
	return out
}

// IsEmpty reports whether the snapshot has no entries.
func (s *RankingSnapshot) IsEmpty() bool {
	return len(s.Entries) == 0
}

// String returns a log-friendly summary.
func (s *RankingSnapshot) String() string {
	return fmt.Sprintf("Snapshot{ID: %s, Version: %d, Participants: %d, At: %s}",
		s.ID, s.Version, s.Participants, s.SnapshotAt.Format(time.RFC3339))
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT DIFF
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotDiff describes how positions moved between two snapshots.
type SnapshotDiff struct {
	RankChanges map[shared.UserID]RankChange
	NewEntries  []shared.UserID
	Removed     []shared.UserID
}

// CalculateDiff compares two snapshots; older may be nil.
func CalculateDiff(older, newer *RankingSnapshot) *SnapshotDiff {
	diff := &SnapshotDiff{RankChanges: make(map[shared.UserID]RankChange)}
	if newer == nil {
		return diff
	}

	for _, e := range newer.Entries {
		prev := Rank(0)
		if older != nil {
			prev = older.GetRank(e.UserID)
		}
		if prev == 0 {
			diff.NewEntries = append(diff.NewEntries, e.UserID)
			continue
		}
		if rc := RankChange(int(prev) - int(e.Rank)); rc != 0 {
			diff.RankChanges[e.UserID] = rc
		}
	}

	if older != nil {
		for _, e := range older.Entries {
			if newer.GetRank(e.UserID) == 0 {
				diff.Removed = append(diff.Removed, e.UserID)
			}
		}
	}
	return diff
}

// HasChanges reports whether any position moved, appeared or disappeared.
func (d *SnapshotDiff) HasChanges() bool {
	return len(d.RankChanges) > 0 || len(d.NewEntries) > 0 || len(d.Removed) > 0
}
