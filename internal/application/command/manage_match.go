package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/guess"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/textfold"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE MATCH COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CreateMatchCommand describes a new fixture.
type CreateMatchCommand struct {
	TeamA       string
	TeamB       string
	TeamALogo   string
	TeamBLogo   string
	Competition string
	Round       string
	Deadline    time.Time
	AllowDraw   bool

	// LegType accepts IDA/FIRST_LEG, VOLTA/SECOND_LEG and UNICO/SINGLE.
	LegType string
}

// CreateMatchResult contains the stored match.
type CreateMatchResult struct {
	Match   match.Match `json:"-"`
	ID      string      `json:"id"`
	Number  int         `json:"number"`
	Version int64       `json:"version"`
}

// CreateMatchHandler handles CreateMatchCommand.
type CreateMatchHandler struct {
	matches  match.Repository
	notifier *Notifier
}

// NewCreateMatchHandler creates a new CreateMatchHandler.
func NewCreateMatchHandler(matches match.Repository, notifier *Notifier) *CreateMatchHandler {
	return &CreateMatchHandler{matches: matches, notifier: notifier}
}

// Handle executes the create match command.
func (h *CreateMatchHandler) Handle(ctx context.Context, cmd CreateMatchCommand) (res *CreateMatchResult, err error) {
	defer func(start time.Time) { h.notifier.observe(ctx, "CreateMatch", start, err) }(time.Now())

	leg := match.ParseLegType(cmd.LegType)
	round := textfold.Squash(cmd.Round)
	m := match.Match{
		ID:           shared.MatchID(uuid.NewString()),
		TeamA:        textfold.Squash(cmd.TeamA),
		TeamB:        textfold.Squash(cmd.TeamB),
		TeamALogo:    textfold.Squash(cmd.TeamALogo),
		TeamBLogo:    textfold.Squash(cmd.TeamBLogo),
		Competition:  textfold.Squash(cmd.Competition),
		Round:        round,
		Deadline:     cmd.Deadline.UTC(),
		CreatedAt:    h.notifier.Now(),
		AllowDraw:    cmd.AllowDraw,
		LegType:      leg,
		AskQualifier: match.AskQualifierFor(round, leg),
	}
	if textfold.Equal(m.TeamA, m.TeamB) && m.TeamA != "" {
		return nil, shared.ErrSameTeams
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	if err := h.matches.Create(ctx, &m); err != nil {
		return nil, shared.WrapError("match", "Create", shared.ErrServiceUnavailable, "failed to store match", err)
	}

	version, err := h.notifier.DatasetChanged(ctx, shared.EventMatchCreated, m.ID.String())
	if err != nil {
		return nil, err
	}
	return &CreateMatchResult{Match: m, ID: m.ID.String(), Number: m.Number, Version: version}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE MATCH COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// UpdateMatchCommand edits a fixture. Nil fields are left unchanged.
type UpdateMatchCommand struct {
	MatchID shared.MatchID
	Patch   match.Patch
}

// UpdateMatchResult contains the stored match.
type UpdateMatchResult struct {
	Match   match.Match    `json:"-"`
	ID      shared.MatchID `json:"id"`
	Version int64          `json:"version"`
}

// UpdateMatchHandler handles UpdateMatchCommand.
type UpdateMatchHandler struct {
	matches  match.Repository
	guesses  guess.Repository
	notifier *Notifier
}

// NewUpdateMatchHandler creates a new UpdateMatchHandler.
func NewUpdateMatchHandler(matches match.Repository, guesses guess.Repository, notifier *Notifier) *UpdateMatchHandler {
	return &UpdateMatchHandler{matches: matches, guesses: guesses, notifier: notifier}
}

// Handle executes the update match command. Guess rows store team names,
// so teams can only be renamed while nobody has voted.
func (h *UpdateMatchHandler) Handle(ctx context.Context, cmd UpdateMatchCommand) (res *UpdateMatchResult, err error) {
	defer func(start time.Time) { h.notifier.observe(ctx, "UpdateMatch", start, err) }(time.Now())

	if cmd.MatchID.IsEmpty() {
		return nil, shared.ErrInvalidMatchID
	}
	m, err := h.matches.GetByID(ctx, cmd.MatchID)
	if err != nil {
		return nil, err
	}

	if cmd.Patch.RenamesTeams(m) {
		votes, err := h.guesses.ListByMatch(ctx, m.ID)
		if err != nil {
			return nil, shared.WrapError("match", "Update", shared.ErrServiceUnavailable, "failed to read votes", err)
		}
		if len(votes) > 0 {
			return nil, shared.ErrTeamsLocked
		}
	}

	out, err := m.ApplyPatch(cmd.Patch)
	if err != nil {
		return nil, err
	}
	if err := h.matches.Update(ctx, &out); err != nil {
		return nil, shared.WrapError("match", "Update", shared.ErrServiceUnavailable, "failed to store match", err)
	}

	version, err := h.notifier.DatasetChanged(ctx, shared.EventMatchUpdated, out.ID.String())
	if err != nil {
		return nil, err
	}
	return &UpdateMatchResult{Match: out, ID: out.ID, Version: version}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORD RESULT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RecordResultCommand declares the outcome of a match.
type RecordResultCommand struct {
	MatchID shared.MatchID

	// Winner is a team name, "A", "B" or the draw sentinel.
	Winner    string
	GoalsA    *int
	GoalsB    *int
	Qualifier string
}

// RecordResultResult contains the stored outcome.
type RecordResultResult struct {
	MatchID    shared.MatchID `json:"match_id"`
	Winner     string         `json:"winner"`
	GoalsA     *int           `json:"goals_a,omitempty"`
	GoalsB     *int           `json:"goals_b,omitempty"`
	Qualifier  string         `json:"qualifier,omitempty"`
	FinishedAt time.Time      `json:"finished_at"`
	Version    int64          `json:"version"`
}

// RecordResultHandler handles RecordResultCommand.
type RecordResultHandler struct {
	matches  match.Repository
	notifier *Notifier
}

// NewRecordResultHandler creates a new RecordResultHandler.
func NewRecordResultHandler(matches match.Repository, notifier *Notifier) *RecordResultHandler {
	return &RecordResultHandler{matches: matches, notifier: notifier}
}

// Handle executes the record result command. Recording again overwrites
// the previous outcome.
func (h *RecordResultHandler) Handle(ctx context.Context, cmd RecordResultCommand) (res *RecordResultResult, err error) {
	defer func(start time.Time) { h.notifier.observe(ctx, "RecordResult", start, err) }(time.Now())

	if cmd.MatchID.IsEmpty() {
		return nil, shared.ErrInvalidMatchID
	}
	m, err := h.matches.GetByID(ctx, cmd.MatchID)
	if err != nil {
		return nil, err
	}

	out, err := m.ApplyResult(match.Result{
		Winner:     cmd.Winner,
		GoalsA:     cmd.GoalsA,
		GoalsB:     cmd.GoalsB,
		Qualifier:  cmd.Qualifier,
		FinishedAt: h.notifier.Now(),
	})
	if err != nil {
		return nil, err
	}

	if err := h.matches.SaveResult(ctx, m.ID, out); err != nil {
		return nil, shared.WrapError("match", "RecordResult", shared.ErrServiceUnavailable, "failed to store result", err)
	}

	version, err := h.notifier.DatasetChanged(ctx, shared.EventMatchResultRecorded, m.ID.String())
	if err != nil {
		return nil, err
	}
	return &RecordResultResult{
		MatchID:    m.ID,
		Winner:     out.Winner,
		GoalsA:     out.GoalsA,
		GoalsB:     out.GoalsB,
		Qualifier:  out.Qualifier,
		FinishedAt: out.FinishedAt,
		Version:    version,
	}, nil
}
