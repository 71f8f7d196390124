package match

import (
	"slices"
	"strings"
)

// Order returns the matches that have a deadline, sorted by
// (deadline, createdAt, id) ascending. The input slice is not modified.
func Order(list []Match) []Match {
	out := make([]Match, 0, len(list))
	for _, m := range list {
		if m.HasDeadline() {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, Compare)
	return out
}

// Compare is the global match order. The id is the last key so two
// matches never compare equal.
func Compare(a, b Match) int {
	if c := a.Deadline.Compare(b.Deadline); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(string(a.ID), string(b.ID))
}

// AssignNumbers gives each match of an ordered list its sequence number:
// the persisted one if any, otherwise its 1-based position.
func AssignNumbers(ordered []Match) []Match {
	out := make([]Match, len(ordered))
	for i, m := range ordered {
		if m.Number <= 0 {
			m.Number = i + 1
		}
		out[i] = m
	}
	return out
}
