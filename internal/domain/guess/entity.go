// Package guess contains predictions: one row per (match, user) with the
// main pick and the optional bonus-market picks.
package guess

import (
	"context"
	"strings"
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/textfold"
)

// Guess is a stored prediction. Raw is the value as persisted (team name or
// code); it is normalized to a match.Pick once when a snapshot is built.
type Guess struct {
	MatchID shared.MatchID
	UserID  shared.UserID

	Raw string

	// Optional markets; nil means "not picked".
	Over25    *bool
	BTTS      *bool
	Qualifier string

	SubmittedAt time.Time
}

// Key is the composite identity of a guess.
type Key struct {
	UserID  shared.UserID
	MatchID shared.MatchID
}

// Key returns the composite identity.
func (g *Guess) Key() Key {
	return Key{UserID: g.UserID, MatchID: g.MatchID}
}

// IsUsable reports whether both halves of the identity are present.
func (g *Guess) IsUsable() bool {
	return !g.UserID.IsEmpty() && !g.MatchID.IsEmpty()
}

// HasRaw reports whether a main vote was stored at all.
func (g *Guess) HasRaw() bool {
	return strings.TrimSpace(g.Raw) != ""
}

// QualifierPick resolves the qualifier pick against the match teams.
// Draw is never a qualifier.
func (g *Guess) QualifierPick(teams match.Teams) match.Pick {
	if strings.TrimSpace(g.Qualifier) == "" {
		return match.NoPick
	}
	p, ok := match.Normalize(g.Qualifier, teams)
	if !ok || p == match.PickDraw {
		return match.NoPick
	}
	return p
}

// QualifierHit compares folded names; absent picks never hit.
func (g *Guess) QualifierHit(declared string) bool {
	return textfold.Equal(g.Qualifier, declared)
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Repository persists guesses.
// Implementations: internal/infrastructure/persistence/postgres.GuessRepository.
type Repository interface {
	List(ctx context.Context) ([]Guess, error)
	ListByMatch(ctx context.Context, id shared.MatchID) ([]Guess, error)
	Get(ctx context.Context, key Key) (*Guess, error)

	// SubmitWithCounters upserts the guess and, in the same transaction,
	// moves one vote on the match counters from prev to next.
	SubmitWithCounters(ctx context.Context, g *Guess, teams match.Teams) error

	// Upsert writes the guess row alone.
	Upsert(ctx context.Context, g *Guess) error
}
