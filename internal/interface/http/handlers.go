package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/command"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/query"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/logger"
)

// maxBodyBytes bounds write payloads.
const maxBodyBytes = 64 << 10

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth reports every check; any failure answers 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, r, http.StatusOK, map[string]any{
			"status":  "healthy",
			"uptime":  s.Uptime().String(),
			"version": s.config.Version,
		})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleReady answers 503 only when a critical dependency is down.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness check.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// VIEW HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetRanking handles GET /api/v1/ranking?limit=&offset=
func (s *Server) handleGetRanking(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ranking == nil {
		s.notConfigured(w, r)
		return
	}

	limit, err := intParam(r, "limit", 0)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	res, err := s.deps.Ranking.Handle(r.Context(), query.GetRankingQuery{Limit: limit, Offset: offset})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleGetProfile handles GET /api/v1/users/{id}/profile
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	if s.deps.Profile == nil {
		s.notConfigured(w, r)
		return
	}
	res, err := s.deps.Profile.Handle(r.Context(), query.GetProfileQuery{UserID: userParam(r, "id")})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleGetScout handles GET /api/v1/users/{id}/scout?window=N
func (s *Server) handleGetScout(w http.ResponseWriter, r *http.Request) {
	if s.deps.Scout == nil {
		s.notConfigured(w, r)
		return
	}
	window, err := intParam(r, "window", 0)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	res, err := s.deps.Scout.Handle(r.Context(), query.GetScoutQuery{UserID: userParam(r, "id"), Window: window})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleGetLedger handles GET /api/v1/users/{id}/ledger
func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ledger == nil {
		s.notConfigured(w, r)
		return
	}
	res, err := s.deps.Ledger.Handle(r.Context(), query.GetLedgerQuery{UserID: userParam(r, "id")})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleCompare handles GET /api/v1/users/{id}/compare/{rivalId}
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if s.deps.Compare == nil {
		s.notConfigured(w, r)
		return
	}
	res, err := s.deps.Compare.Handle(r.Context(), query.CompareQuery{
		UserID:  userParam(r, "id"),
		RivalID: userParam(r, "rivalId"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleListMatches handles GET /api/v1/matches?status=OPEN|WAITING|FINISHED
func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	if s.deps.Matches == nil {
		s.notConfigured(w, r)
		return
	}
	status := match.Status(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
	res, err := s.deps.Matches.Handle(r.Context(), query.ListMatchesQuery{Status: status})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleGetMatchVoters handles GET /api/v1/matches/{id}/voters
func (s *Server) handleGetMatchVoters(w http.ResponseWriter, r *http.Request) {
	if s.deps.Voters == nil {
		s.notConfigured(w, r)
		return
	}
	res, err := s.deps.Voters.Handle(r.Context(), query.GetMatchVotersQuery{MatchID: matchParam(r, "id")})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// WRITE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type submitGuessRequest struct {
	Pick      string `json:"pick"`
	Over25    *bool  `json:"over25,omitempty"`
	BTTS      *bool  `json:"btts,omitempty"`
	Qualifier string `json:"qualifier,omitempty"`
}

// handleSubmitGuess handles PUT /api/v1/matches/{id}/guesses/{userId}
func (s *Server) handleSubmitGuess(w http.ResponseWriter, r *http.Request) {
	if s.deps.SubmitGuess == nil {
		s.notConfigured(w, r)
		return
	}
	var req submitGuessRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}

	res, err := s.deps.SubmitGuess.Handle(r.Context(), command.SubmitGuessCommand{
		MatchID:   matchParam(r, "id"),
		UserID:    userParam(r, "userId"),
		Pick:      req.Pick,
		Over25:    req.Over25,
		BTTS:      req.BTTS,
		Qualifier: req.Qualifier,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

type createMatchRequest struct {
	TeamA       string    `json:"team_a"`
	TeamB       string    `json:"team_b"`
	TeamALogo   string    `json:"team_a_url,omitempty"`
	TeamBLogo   string    `json:"team_b_url,omitempty"`
	Competition string    `json:"competition"`
	Round       string    `json:"round"`
	Deadline    time.Time `json:"deadline"`
	AllowDraw   bool      `json:"allow_draw"`
	LegType     string    `json:"leg_type,omitempty"`
}

// handleCreateMatch handles POST /api/v1/admin/matches
func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	if s.deps.CreateMatch == nil {
		s.notConfigured(w, r)
		return
	}
	var req createMatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}

	res, err := s.deps.CreateMatch.Handle(r.Context(), command.CreateMatchCommand{
		TeamA:       req.TeamA,
		TeamB:       req.TeamB,
		TeamALogo:   req.TeamALogo,
		TeamBLogo:   req.TeamBLogo,
		Competition: req.Competition,
		Round:       req.Round,
		Deadline:    req.Deadline,
		AllowDraw:   req.AllowDraw,
		LegType:     req.LegType,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/matches/"+res.ID)
	writeJSON(w, r, http.StatusCreated, res)
}

type updateMatchRequest struct {
	TeamA       *string    `json:"team_a,omitempty"`
	TeamB       *string    `json:"team_b,omitempty"`
	TeamALogo   *string    `json:"team_a_url,omitempty"`
	TeamBLogo   *string    `json:"team_b_url,omitempty"`
	Competition *string    `json:"competition,omitempty"`
	Round       *string    `json:"round,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	AllowDraw   *bool      `json:"allow_draw,omitempty"`
	LegType     *string    `json:"leg_type,omitempty"`
}

// handleUpdateMatch handles PATCH /api/v1/admin/matches/{id}
func (s *Server) handleUpdateMatch(w http.ResponseWriter, r *http.Request) {
	if s.deps.UpdateMatch == nil {
		s.notConfigured(w, r)
		return
	}
	var req updateMatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}

	res, err := s.deps.UpdateMatch.Handle(r.Context(), command.UpdateMatchCommand{
		MatchID: matchParam(r, "id"),
		Patch: match.Patch{
			TeamA:       req.TeamA,
			TeamB:       req.TeamB,
			TeamALogo:   req.TeamALogo,
			TeamBLogo:   req.TeamBLogo,
			Competition: req.Competition,
			Round:       req.Round,
			Deadline:    req.Deadline,
			AllowDraw:   req.AllowDraw,
			LegType:     req.LegType,
		},
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

type recordResultRequest struct {
	Winner    string `json:"winner"`
	GoalsA    *int   `json:"goals_a,omitempty"`
	GoalsB    *int   `json:"goals_b,omitempty"`
	Qualifier string `json:"qualifier,omitempty"`
}

// handleRecordResult handles PUT /api/v1/admin/matches/{id}/result
func (s *Server) handleRecordResult(w http.ResponseWriter, r *http.Request) {
	if s.deps.RecordResult == nil {
		s.notConfigured(w, r)
		return
	}
	var req recordResultRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}

	res, err := s.deps.RecordResult.Handle(r.Context(), command.RecordResultCommand{
		MatchID:   matchParam(r, "id"),
		Winner:    req.Winner,
		GoalsA:    req.GoalsA,
		GoalsB:    req.GoalsB,
		Qualifier: req.Qualifier,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// fail maps err to a status; server-side errors are logged, client errors are not.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= 500 {
		s.logger.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err),
		)
	}
	writeJSONError(w, r, status, code, publicMessage(status, err))
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	writeJSONError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
}

func (s *Server) notConfigured(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Handler not configured")
}

func userParam(r *http.Request, name string) shared.UserID {
	return shared.UserID(strings.TrimSpace(chi.URLParam(r, name)))
}

func matchParam(r *http.Request, name string) shared.MatchID {
	return shared.MatchID(strings.TrimSpace(chi.URLParam(r, name)))
}

// intParam parses an optional integer query parameter.
func intParam(r *http.Request, key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

// decodeBody decodes a single JSON object, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		case errors.As(err, &maxErr):
			return errors.New("request body is too large")
		default:
			return fmt.Errorf("invalid JSON body: %v", err)
		}
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
