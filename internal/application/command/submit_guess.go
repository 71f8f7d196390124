package command

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/guess"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/user"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT GUESS COMMAND
// Stores a user's prediction for an open match and keeps the denormalized
// vote counters in step on a best-effort basis.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitGuessCommand contains the prediction to store.
type SubmitGuessCommand struct {
	MatchID shared.MatchID
	UserID  shared.UserID

	// Pick is a team name, "A", "B" or the draw sentinel.
	Pick string

	// Optional markets.
	Over25    *bool
	BTTS      *bool
	Qualifier string
}

// Validate validates the command.
func (c SubmitGuessCommand) Validate() error {
	if c.MatchID.IsEmpty() {
		return errors.New("submit_guess: match_id is required")
	}
	if c.UserID.IsEmpty() {
		return errors.New("submit_guess: user_id is required")
	}
	if strings.TrimSpace(c.Pick) == "" {
		return errors.New("submit_guess: pick is required")
	}
	return nil
}

// SubmitGuessResult contains the stored guess.
type SubmitGuessResult struct {
	Guess guess.Guess `json:"-"`

	MatchID   shared.MatchID `json:"match_id"`
	UserID    shared.UserID  `json:"user_id"`
	Vote      string         `json:"vote"`
	Qualifier string         `json:"qualifier,omitempty"`

	// CountersUpdated is false when the transactional write failed and the
	// guess row was written alone.
	CountersUpdated bool      `json:"counters_updated"`
	Version         int64     `json:"version"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// SubmitGuessHandler handles SubmitGuessCommand.
type SubmitGuessHandler struct {
	matches  match.Repository
	users    user.Repository
	guesses  guess.Repository
	notifier *Notifier
}

// NewSubmitGuessHandler creates a new SubmitGuessHandler.
func NewSubmitGuessHandler(matches match.Repository, users user.Repository, guesses guess.Repository, notifier *Notifier) *SubmitGuessHandler {
	return &SubmitGuessHandler{matches: matches, users: users, guesses: guesses, notifier: notifier}
}

// Handle executes the submit guess command.
func (h *SubmitGuessHandler) Handle(ctx context.Context, cmd SubmitGuessCommand) (res *SubmitGuessResult, err error) {
	defer func(start time.Time) { h.notifier.observe(ctx, "SubmitGuess", start, err) }(time.Now())

	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("guess", "Submit", shared.ErrValidation, err.Error(), err)
	}

	m, err := h.matches.GetByID(ctx, cmd.MatchID)
	if err != nil {
		return nil, err
	}
	if _, err := h.users.GetByID(ctx, cmd.UserID); err != nil {
		return nil, err
	}

	now := h.notifier.Now()
	if m.IsClosed(now) {
		return nil, shared.ErrMatchClosed
	}

	teams := m.Teams()
	pick, ok := match.Normalize(cmd.Pick, teams)
	if !ok {
		return nil, shared.ErrInvalidPick
	}
	if pick == match.PickDraw && !m.AllowDraw {
		return nil, shared.ErrDrawNotAllowed
	}

	g := guess.Guess{
		MatchID:     m.ID,
		UserID:      cmd.UserID,
		Raw:         match.Encode(pick, teams),
		Over25:      cmd.Over25,
		BTTS:        cmd.BTTS,
		SubmittedAt: now,
	}
	if m.AskQualifier && strings.TrimSpace(cmd.Qualifier) != "" {
		q, ok := match.Normalize(cmd.Qualifier, teams)
		if !ok || q == match.PickDraw {
			return nil, shared.ErrInvalidQualifier
		}
		g.Qualifier = match.Encode(q, teams)
	}

	counted := true
	if err := h.guesses.SubmitWithCounters(ctx, &g, teams); err != nil {
		counted = false
		h.notifier.logger.Warn("vote counters not updated, writing guess alone",
			logger.MatchID(m.ID.String()),
			logger.UserID(cmd.UserID.String()),
			logger.Err(err),
		)
		if err := h.guesses.Upsert(ctx, &g); err != nil {
			return nil, shared.WrapError("guess", "Submit", shared.ErrServiceUnavailable, "failed to store guess", err)
		}
	}

	version, err := h.notifier.DatasetChanged(ctx, shared.EventGuessSubmitted, m.ID.String())
	if err != nil {
		return nil, err
	}

	return &SubmitGuessResult{
		Guess:           g,
		MatchID:         g.MatchID,
		UserID:          g.UserID,
		Vote:            g.Raw,
		Qualifier:       g.Qualifier,
		CountersUpdated: counted,
		Version:         version,
		SubmittedAt:     now,
	}, nil
}
