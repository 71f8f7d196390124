package query

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/guess"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST MATCHES QUERY
// The match board: every match in global order with its derived status and
// the vote thermometer counted from guess rows.
// ══════════════════════════════════════════════════════════════════════════════

// ListMatchesQuery filters the board.
type ListMatchesQuery struct {
	// Status keeps only matches in that state; empty keeps all.
	Status match.Status
}

// Validate checks the filter.
func (q ListMatchesQuery) Validate() error {
	switch q.Status {
	case "", match.StatusOpen, match.StatusWaiting, match.StatusFinished:
		return nil
	default:
		return fmt.Errorf("unknown status %q", q.Status)
	}
}

// MatchView is one line of the board.
type MatchView struct {
	Number       int            `json:"number"`
	ID           shared.MatchID `json:"id"`
	TeamA        string         `json:"team_a"`
	TeamB        string         `json:"team_b"`
	TeamALogo    string         `json:"team_a_url,omitempty"`
	TeamBLogo    string         `json:"team_b_url,omitempty"`
	Competition  string         `json:"competition"`
	Round        string         `json:"round"`
	Deadline     time.Time      `json:"deadline"`
	AllowDraw    bool           `json:"allow_draw"`
	AskQualifier bool           `json:"ask_qualifier"`

	Status      match.Status `json:"status"`
	StatusLabel string       `json:"status_label"`

	Winner    string `json:"winner,omitempty"`
	GoalsA    *int   `json:"goals_a,omitempty"`
	GoalsB    *int   `json:"goals_b,omitempty"`
	Qualifier string `json:"qualifier,omitempty"`

	Thermo guess.Thermo `json:"thermo"`
	ShareA int          `json:"share_a"`
	ShareB int          `json:"share_b"`
	ShareD int          `json:"share_draw"`
}

// ListMatchesResult is the board payload.
type ListMatchesResult struct {
	Version int64       `json:"version"`
	Matches []MatchView `json:"matches"`
}

// ListMatchesHandler handles ListMatchesQuery.
type ListMatchesHandler struct {
	loader *DatasetLoader
	tel    Telemetry
}

// NewListMatchesHandler creates the handler.
func NewListMatchesHandler(loader *DatasetLoader, tel Telemetry) *ListMatchesHandler {
	return &ListMatchesHandler{loader: loader, tel: tel}
}

// Handle executes the query.
func (h *ListMatchesHandler) Handle(ctx context.Context, q ListMatchesQuery) (*ListMatchesResult, error) {
	if err := q.Validate(); err != nil {
		return nil, invalidQuery("ListMatches", err)
	}

	attrs := []attribute.KeyValue{attribute.String("status", string(q.Status))}
	return observe(ctx, h.tel, "ListMatches", attrs, func(ctx context.Context) (*ListMatchesResult, error) {
		snap, err := h.loader.Snapshot(ctx)
		if err != nil {
			return nil, err
		}

		res := &ListMatchesResult{Version: snap.Version(), Matches: []MatchView{}}
		for i := range snap.Matches() {
			m := &snap.Matches()[i]
			status := m.Status(snap.Now())
			if q.Status != "" && status != q.Status {
				continue
			}

			votes := snap.Votes(m.ID)
			rows := make([]guess.Guess, len(votes))
			for j, v := range votes {
				rows[j] = v.Guess
			}
			thermo := guess.BuildThermo(m, rows)

			res.Matches = append(res.Matches, MatchView{
				Number:       m.Number,
				ID:           m.ID,
				TeamA:        m.TeamA,
				TeamB:        m.TeamB,
				TeamALogo:    m.TeamALogo,
				TeamBLogo:    m.TeamBLogo,
				Competition:  m.Competition,
				Round:        m.Round,
				Deadline:     m.Deadline,
				AllowDraw:    m.AllowDraw,
				AskQualifier: m.AskQualifier,
				Status:       status,
				StatusLabel:  status.Label(),
				Winner:       m.Winner,
				GoalsA:       m.GoalsA,
				GoalsB:       m.GoalsB,
				Qualifier:    m.Qualifier,
				Thermo:       thermo,
				ShareA:       thermo.Share(match.PickA),
				ShareB:       thermo.Share(match.PickB),
				ShareD:       thermo.Share(match.PickDraw),
			})
		}
		return res, nil
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// MATCH VOTERS QUERY
// Who voted on a match and which eligible users have not.
// ══════════════════════════════════════════════════════════════════════════════

// GetMatchVotersQuery selects one match.
type GetMatchVotersQuery struct {
	MatchID shared.MatchID
}

// VoterView is one participant in the voter lists. Picks stay hidden until
// voting closes.
type VoterView struct {
	UserID      shared.UserID `json:"user_id"`
	DisplayName string        `json:"display_name"`
	Photo       string        `json:"photo,omitempty"`

	Vote        string     `json:"vote,omitempty"`
	Over25      *bool      `json:"over25,omitempty"`
	BTTS        *bool      `json:"btts,omitempty"`
	Qualifier   string     `json:"qualifier,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// MatchVotersResult lists voters and missing users, both sorted by name.
type MatchVotersResult struct {
	Version  int64          `json:"version"`
	MatchID  shared.MatchID `json:"match_id"`
	Revealed bool           `json:"revealed"`
	Voted    []VoterView    `json:"voted"`
	Missing  []VoterView    `json:"missing"`
}

// GetMatchVotersHandler handles GetMatchVotersQuery.
type GetMatchVotersHandler struct {
	loader *DatasetLoader
	tel    Telemetry
}

// NewGetMatchVotersHandler creates the handler.
func NewGetMatchVotersHandler(loader *DatasetLoader, tel Telemetry) *GetMatchVotersHandler {
	return &GetMatchVotersHandler{loader: loader, tel: tel}
}

// Handle executes the query. Rows of unknown users are dropped; missing
// users are the ones eligible for the match without a guess row.
func (h *GetMatchVotersHandler) Handle(ctx context.Context, q GetMatchVotersQuery) (*MatchVotersResult, error) {
	if q.MatchID.IsEmpty() {
		return nil, invalidQuery("GetMatchVoters", errors.New("match id is required"))
	}

	attrs := []attribute.KeyValue{attribute.String("match_id", q.MatchID.String())}
	return observe(ctx, h.tel, "GetMatchVoters", attrs, func(ctx context.Context) (*MatchVotersResult, error) {
		snap, err := h.loader.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		m, ok := snap.Match(q.MatchID)
		if !ok {
			return nil, shared.ErrMatchNotFound
		}

		res := &MatchVotersResult{
			Version:  snap.Version(),
			MatchID:  m.ID,
			Revealed: m.IsClosed(snap.Now()),
			Voted:    []VoterView{},
			Missing:  []VoterView{},
		}

		voted := make(map[shared.UserID]bool)
		for _, v := range snap.Votes(m.ID) {
			voted[v.UserID] = true
			u, ok := snap.User(v.UserID)
			if !ok {
				continue
			}
			row := voterOf(u)
			if res.Revealed {
				row.Vote = v.Raw
				row.Over25 = v.Over25
				row.BTTS = v.BTTS
				row.Qualifier = v.Qualifier
				if !v.SubmittedAt.IsZero() {
					at := v.SubmittedAt
					row.SubmittedAt = &at
				}
			}
			res.Voted = append(res.Voted, row)
		}

		for i := range snap.Users() {
			u := &snap.Users()[i]
			if voted[u.ID] || !snap.Eligible(u, m) {
				continue
			}
			res.Missing = append(res.Missing, voterOf(u))
		}

		sortVoters(res.Voted)
		sortVoters(res.Missing)
		return res, nil
	})
}

func voterOf(u *user.User) VoterView {
	return VoterView{UserID: u.ID, DisplayName: u.DisplayName(), Photo: u.Photo}
}

// sortVoters orders by display name with Portuguese collation, then id.
func sortVoters(rows []VoterView) {
	col := collate.New(language.BrazilianPortuguese, collate.IgnoreCase, collate.IgnoreDiacritics)
	slices.SortFunc(rows, func(a, b VoterView) int {
		if c := col.CompareString(a.DisplayName, b.DisplayName); c != 0 {
			return c
		}
		return strings.Compare(string(a.UserID), string(b.UserID))
	})
}
