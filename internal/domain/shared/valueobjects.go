package shared

import "strings"

// ═══════════════════════════════════════════════════════════════════════════
// IDENTIFIERS
// ═══════════════════════════════════════════════════════════════════════════

// UserID is the opaque identifier of a pool participant.
type UserID string

// IsEmpty reports whether the id is blank.
func (u UserID) IsEmpty() bool {
	return strings.TrimSpace(string(u)) == ""
}

// String returns the raw id.
func (u UserID) String() string {
	return string(u)
}

// NewUserID validates and creates a UserID.
func NewUserID(id string) (UserID, error) {
	u := UserID(strings.TrimSpace(id))
	if u.IsEmpty() {
		return "", ErrInvalidUserID
	}
	return u, nil
}

// MatchID is the opaque identifier of a match.
type MatchID string

// IsEmpty reports whether the id is blank.
func (m MatchID) IsEmpty() bool {
	return strings.TrimSpace(string(m)) == ""
}

// String returns the raw id.
func (m MatchID) String() string {
	return string(m)
}

// NewMatchID validates and creates a MatchID.
func NewMatchID(id string) (MatchID, error) {
	m := MatchID(strings.TrimSpace(id))
	if m.IsEmpty() {
		return "", ErrInvalidMatchID
	}
	return m, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// POINTS
// ═══════════════════════════════════════════════════════════════════════════

// Points is a non-negative score amount. No rule in the pool ever subtracts.
type Points int

// Int returns the points as int.
func (p Points) Int() int {
	return int(p)
}

// IsValid reports whether p is non-negative.
func (p Points) IsValid() bool {
	return p >= 0
}
