package testutil

import (
	"context"
	"slices"
	"sync"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/guess"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/pool"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/user"
)

// Store is an in-memory backing for the user, match, guess and app-state
// repositories. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	users   []user.User
	matches []match.Match
	guesses []guess.Guess
	version int64
	bumps   []string

	// ReadErr, when set, is returned by every List call.
	ReadErr error
	// TxErr, when set, makes SubmitWithCounters fail.
	TxErr error
	// Reads counts List calls across the three collections.
	Reads int
}

// NewStore creates a store holding ds at ds.Version.
func NewStore(ds pool.Dataset) *Store {
	return &Store{
		users:   slices.Clone(ds.Users),
		matches: slices.Clone(ds.Matches),
		guesses: slices.Clone(ds.Guesses),
		version: ds.Version,
	}
}

// Users returns the user repository view.
func (s *Store) Users() *UserRepo { return &UserRepo{s} }

// Matches returns the match repository view.
func (s *Store) Matches() *MatchRepo { return &MatchRepo{s} }

// Guesses returns the guess repository view.
func (s *Store) Guesses() *GuessRepo { return &GuessRepo{s} }

// State returns the app-state repository view.
func (s *Store) State() *StateRepo { return &StateRepo{s} }

// Bumps returns the reasons of every version bump so far.
func (s *Store) Bumps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.bumps)
}

// AddUser appends a user.
func (s *Store) AddUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, u)
}

func (s *Store) list() error {
	s.Reads++
	return s.ReadErr
}

func (s *Store) matchIndex(id shared.MatchID) int {
	return slices.IndexFunc(s.matches, func(m match.Match) bool { return m.ID == id })
}

func (s *Store) guessIndex(k guess.Key) int {
	return slices.IndexFunc(s.guesses, func(g guess.Guess) bool { return g.Key() == k })
}

// ──────────────────────────────────────────────────────────────────────────────
// Users
// ──────────────────────────────────────────────────────────────────────────────

// UserRepo implements user.Repository.
type UserRepo struct{ s *Store }

func (r *UserRepo) GetByID(_ context.Context, id shared.UserID) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.users {
		if r.s.users[i].ID == id {
			u := r.s.users[i]
			return &u, nil
		}
	}
	return nil, shared.ErrUserNotFound
}

func (r *UserRepo) List(context.Context) ([]user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.list(); err != nil {
		return nil, err
	}
	return slices.Clone(r.s.users), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Matches
// ──────────────────────────────────────────────────────────────────────────────

// MatchRepo implements match.Repository.
type MatchRepo struct{ s *Store }

func (r *MatchRepo) GetByID(_ context.Context, id shared.MatchID) (*match.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.s.matchIndex(id)
	if i < 0 {
		return nil, shared.ErrMatchNotFound
	}
	m := r.s.matches[i]
	return &m, nil
}

func (r *MatchRepo) List(context.Context) ([]match.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.list(); err != nil {
		return nil, err
	}
	return slices.Clone(r.s.matches), nil
}

func (r *MatchRepo) Create(_ context.Context, m *match.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.matchIndex(m.ID) >= 0 {
		return shared.NewDomainError("match", "Create", shared.ErrAlreadyExists, "match already exists")
	}
	m.Number = len(r.s.matches) + 1
	r.s.matches = append(r.s.matches, *m)
	return nil
}

func (r *MatchRepo) SaveResult(_ context.Context, id shared.MatchID, res match.Result) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.s.matchIndex(id)
	if i < 0 {
		return shared.ErrMatchNotFound
	}
	m := &r.s.matches[i]
	m.Winner, m.GoalsA, m.GoalsB = res.Winner, res.GoalsA, res.GoalsB
	m.Qualifier, m.FinishedAt = res.Qualifier, res.FinishedAt
	return nil
}

func (r *MatchRepo) Update(_ context.Context, m *match.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.s.matchIndex(m.ID)
	if i < 0 {
		return shared.ErrMatchNotFound
	}
	r.s.matches[i] = *m
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Guesses
// ──────────────────────────────────────────────────────────────────────────────

// GuessRepo implements guess.Repository.
type GuessRepo struct{ s *Store }

func (r *GuessRepo) List(context.Context) ([]guess.Guess, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.list(); err != nil {
		return nil, err
	}
	return slices.Clone(r.s.guesses), nil
}

func (r *GuessRepo) ListByMatch(_ context.Context, id shared.MatchID) ([]guess.Guess, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []guess.Guess
	for _, g := range r.s.guesses {
		if g.MatchID == id {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *GuessRepo) Get(_ context.Context, k guess.Key) (*guess.Guess, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.s.guessIndex(k)
	if i < 0 {
		return nil, shared.ErrGuessNotFound
	}
	g := r.s.guesses[i]
	return &g, nil
}

func (r *GuessRepo) SubmitWithCounters(_ context.Context, g *guess.Guess, teams match.Teams) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.TxErr != nil {
		return r.s.TxErr
	}
	mi := r.s.matchIndex(g.MatchID)
	if mi < 0 {
		return shared.ErrMatchNotFound
	}

	prev := match.NoPick
	if i := r.s.guessIndex(g.Key()); i >= 0 {
		prev, _ = match.Normalize(r.s.guesses[i].Raw, teams)
	}
	next, _ := match.Normalize(g.Raw, teams)

	m := &r.s.matches[mi]
	m.Counters = m.Counters.Apply(prev, next)
	r.s.upsert(*g)
	return nil
}

func (r *GuessRepo) Upsert(_ context.Context, g *guess.Guess) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.upsert(*g)
	return nil
}

func (s *Store) upsert(g guess.Guess) {
	if i := s.guessIndex(g.Key()); i >= 0 {
		s.guesses[i] = g
		return
	}
	s.guesses = append(s.guesses, g)
}

// ──────────────────────────────────────────────────────────────────────────────
// App state
// ──────────────────────────────────────────────────────────────────────────────

// StateRepo implements pool.StateRepository.
type StateRepo struct{ s *Store }

func (r *StateRepo) Version(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.version, nil
}

func (r *StateRepo) Bump(_ context.Context, reason string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.version++
	r.s.bumps = append(r.s.bumps, reason)
	return r.s.version, nil
}
