// Package user contains the pool participant as the ranking sees it.
// Users are created outside this service; here they are read-only.
package user

import (
	"context"
	"strings"
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
)

// FallbackName is shown when a user has neither name nor username.
const FallbackName = "Sem Nome"

// User is a pool participant.
type User struct {
	ID       shared.UserID
	Name     string
	Username string
	Photo    string

	// CreatedAt gates eligibility: a match counts for the user only when
	// CreatedAt is strictly before the match deadline.
	CreatedAt time.Time

	// LastRank is the previously displayed position, 0 when unknown.
	// It only feeds the up/down arrow.
	LastRank int

	// Debts penalize the scout rank simulation (3 points each).
	Debts int
}

// DisplayName returns name, then username, then FallbackName.
func (u *User) DisplayName() string {
	if n := strings.TrimSpace(u.Name); n != "" {
		return n
	}
	if n := strings.TrimSpace(u.Username); n != "" {
		return n
	}
	return FallbackName
}

// EligibleFor reports whether the user existed strictly before deadline.
func (u *User) EligibleFor(deadline time.Time) bool {
	return u.CreatedAt.Before(deadline)
}

// Repository reads users.
// Implementations: internal/infrastructure/persistence/postgres.UserRepository.
type Repository interface {
	GetByID(ctx context.Context, id shared.UserID) (*User, error)
	List(ctx context.Context) ([]User, error)
}
