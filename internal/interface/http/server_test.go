package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/command"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/query"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/leaderboard"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/medal"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/scout"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/interface/http/handlers"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────────────────────────────────

type rankingFake struct {
	got query.GetRankingQuery
	err error
}

func (f *rankingFake) Handle(_ context.Context, q query.GetRankingQuery) (*query.GetRankingResult, error) {
	f.got = q
	if f.err != nil {
		return nil, f.err
	}
	return &query.GetRankingResult{
		Version: 4,
		Ranking: []leaderboard.Row{{Position: 1, UserID: "ana", DisplayName: "Ana", Points: 9}},
	}, nil
}

type profileFake struct{}

func (profileFake) Handle(_ context.Context, q query.GetProfileQuery) (*medal.Profile, error) {
	if q.UserID == "ghost" {
		return nil, shared.ErrUserNotFound
	}
	if q.UserID == "boom" {
		panic("boom")
	}
	p := medal.EmptyProfile(q.UserID)
	return &p, nil
}

type scoutFake struct{ got query.GetScoutQuery }

func (f *scoutFake) Handle(_ context.Context, q query.GetScoutQuery) (*scout.Report, error) {
	f.got = q
	return &scout.Report{}, nil
}

type compareFake struct{ got query.CompareQuery }

func (f *compareFake) Handle(_ context.Context, q query.CompareQuery) (*query.CompareResult, error) {
	f.got = q
	return &query.CompareResult{UserID: q.UserID, RivalID: q.RivalID}, nil
}

type submitFake struct {
	got command.SubmitGuessCommand
	err error
}

func (f *submitFake) Handle(_ context.Context, cmd command.SubmitGuessCommand) (*command.SubmitGuessResult, error) {
	f.got = cmd
	if f.err != nil {
		return nil, f.err
	}
	return &command.SubmitGuessResult{MatchID: cmd.MatchID, UserID: cmd.UserID, Vote: cmd.Pick, CountersUpdated: true}, nil
}

type createFake struct{ got command.CreateMatchCommand }

func (f *createFake) Handle(_ context.Context, cmd command.CreateMatchCommand) (*command.CreateMatchResult, error) {
	f.got = cmd
	return &command.CreateMatchResult{ID: "m-1", Number: 1, Version: 2}, nil
}

type votersFake struct{ got query.GetMatchVotersQuery }

func (f *votersFake) Handle(_ context.Context, q query.GetMatchVotersQuery) (*query.MatchVotersResult, error) {
	f.got = q
	if q.MatchID == "nope" {
		return nil, shared.ErrMatchNotFound
	}
	return &query.MatchVotersResult{
		Version:  3,
		MatchID:  q.MatchID,
		Revealed: true,
		Voted:    []query.VoterView{{UserID: "ana", DisplayName: "Ana", Vote: "Bahia"}},
		Missing:  []query.VoterView{{UserID: "bia", DisplayName: "Bia"}},
	}, nil
}

type updateFake struct {
	got command.UpdateMatchCommand
	err error
}

func (f *updateFake) Handle(_ context.Context, cmd command.UpdateMatchCommand) (*command.UpdateMatchResult, error) {
	f.got = cmd
	if f.err != nil {
		return nil, f.err
	}
	return &command.UpdateMatchResult{ID: cmd.MatchID, Version: 8}, nil
}

type httpMetricsFake struct {
	mu     sync.Mutex
	routes []string
}

func (m *httpMetricsFake) ObserveHTTP(method, route string, status int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, method+" "+route)
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

const adminKey = "s3cret-admin-key"

func testConfig(t *testing.T) Config {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.RateLimit = 0
	cfg.AdminKeyHashes = []string{string(hash)}
	return cfg
}

func do(t *testing.T, h http.Handler, method, target, body string, headers map[string]string) (*httptest.ResponseRecorder, JSONResponse) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env JSONResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestRankingEnvelope(t *testing.T) {
	ranking := &rankingFake{}
	srv := NewServer(testConfig(t), Dependencies{Ranking: ranking, Logger: logger.Discard()})

	rec, env := do(t, srv.Handler(), http.MethodGet, "/api/v1/ranking?limit=10&offset=5", "", map[string]string{HeaderRequestID: "req-1"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))
	assert.True(t, env.Success)
	assert.Equal(t, "req-1", env.RequestID)
	require.NotNil(t, env.Meta)
	assert.Equal(t, "v1", env.Meta.Version)
	assert.Equal(t, query.GetRankingQuery{Limit: 10, Offset: 5}, ranking.got)

	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 4, data["version"])
}

func TestRequestIDIsGeneratedWhenMissing(t *testing.T) {
	srv := NewServer(testConfig(t), Dependencies{Logger: logger.Discard()})

	rec, env := do(t, srv.Handler(), http.MethodGet, "/live", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(HeaderRequestID)
	assert.Len(t, id, 36)
	assert.Equal(t, id, env.RequestID)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", shared.ErrMatchNotFound, http.StatusNotFound, "not_found"},
		{"validation", shared.ErrDrawNotAllowed, http.StatusBadRequest, "invalid_request"},
		{"closed", shared.ErrMatchClosed, http.StatusConflict, "conflict"},
		{"forbidden", shared.WrapError("guess", "Submit", shared.ErrForbidden, "self play", nil), http.StatusForbidden, "forbidden"},
		{"unavailable", shared.ErrServiceUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
		{"unknown", errors.New("pq: connection reset"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(testConfig(t), Dependencies{Ranking: &rankingFake{err: tt.err}, Logger: logger.Discard()})
			rec, env := do(t, srv.Handler(), http.MethodGet, "/api/v1/ranking", "", nil)

			assert.Equal(t, tt.status, rec.Code)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.NotContains(t, env.Error.Message, "connection reset")
		})
	}
}

func TestUserViews(t *testing.T) {
	sc := &scoutFake{}
	cmp := &compareFake{}
	srv := NewServer(testConfig(t), Dependencies{
		Profile: profileFake{},
		Scout:   sc,
		Compare: cmp,
		Logger:  logger.Discard(),
	})
	h := srv.Handler()

	rec, env := do(t, h, http.MethodGet, "/api/v1/users/ana/profile", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, env = do(t, h, http.MethodGet, "/api/v1/users/ghost/profile", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "user not found", env.Error.Message)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/users/ana/scout?window=15", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, query.GetScoutQuery{UserID: "ana", Window: 15}, sc.got)

	rec, env = do(t, h, http.MethodGet, "/api/v1/users/ana/scout?window=many", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", env.Error.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/users/ana/compare/bia", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, query.CompareQuery{UserID: "ana", RivalID: "bia"}, cmp.got)

	rec, env = do(t, h, http.MethodGet, "/api/v1/users/ana/ledger", "", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, "not_implemented", env.Error.Code)
}

func TestRecoveryReturns500(t *testing.T) {
	srv := NewServer(testConfig(t), Dependencies{Profile: profileFake{}, Logger: logger.Discard()})

	rec, env := do(t, srv.Handler(), http.MethodGet, "/api/v1/users/boom/profile", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", env.Error.Code)
	assert.NotEmpty(t, env.RequestID)
}

func TestAdminRoutesRequireKey(t *testing.T) {
	create := &createFake{}
	srv := NewServer(testConfig(t), Dependencies{CreateMatch: create, Logger: logger.Discard()})
	h := srv.Handler()
	body := `{"team_a":"Bahia","team_b":"Vitória","competition":"Baiano","round":"Final","deadline":"2026-03-01T19:00:00Z","allow_draw":true,"leg_type":"VOLTA"}`

	rec, env := do(t, h, http.MethodPost, "/api/v1/admin/matches", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing_api_key", env.Error.Code)

	rec, env = do(t, h, http.MethodPost, "/api/v1/admin/matches", body, map[string]string{HeaderAPIKey: "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "invalid_api_key", env.Error.Code)

	rec, env = do(t, h, http.MethodPost, "/api/v1/admin/matches", body, map[string]string{"Authorization": "Bearer " + adminKey})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "/api/v1/matches/m-1", rec.Header().Get("Location"))
	assert.Equal(t, "Bahia", create.got.TeamA)
	assert.Equal(t, "VOLTA", create.got.LegType)
	assert.Equal(t, time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC), create.got.Deadline.UTC())
}

func TestAdminRoutesAbsentWithoutHashes(t *testing.T) {
	cfg := testConfig(t)
	cfg.AdminKeyHashes = nil
	srv := NewServer(cfg, Dependencies{CreateMatch: &createFake{}, Logger: logger.Discard()})

	rec, _ := do(t, srv.Handler(), http.MethodPost, "/api/v1/admin/matches", `{}`, map[string]string{HeaderAPIKey: adminKey})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitGuess(t *testing.T) {
	submit := &submitFake{}
	srv := NewServer(testConfig(t), Dependencies{SubmitGuess: submit, Logger: logger.Discard()})
	h := srv.Handler()
	auth := map[string]string{HeaderAPIKey: adminKey}

	rec, env := do(t, h, http.MethodPut, "/api/v1/matches/m-9/guesses/ana", `{"pick":"Bahia","over25":true}`, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, shared.MatchID("m-9"), submit.got.MatchID)
	assert.Equal(t, shared.UserID("ana"), submit.got.UserID)
	require.NotNil(t, submit.got.Over25)
	assert.True(t, *submit.got.Over25)
	assert.Nil(t, submit.got.BTTS)

	rec, env = do(t, h, http.MethodPut, "/api/v1/matches/m-9/guesses/ana", `{"pick":"Bahia","extra":1}`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error.Message, "invalid JSON body")

	submit.err = shared.ErrMatchClosed
	rec, env = do(t, h, http.MethodPut, "/api/v1/matches/m-9/guesses/ana", `{"pick":"Bahia"}`, auth)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "match is closed for voting", env.Error.Message)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	cfg.TrustedProxies = []string{"192.0.2.0/24"}
	srv := NewServer(cfg, Dependencies{Logger: logger.Discard()})
	h := srv.Handler()

	rec, _ := do(t, h, http.MethodGet, "/live", "", map[string]string{"X-Forwarded-For": "10.0.0.1"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, h, http.MethodGet, "/live", "", map[string]string{"X-Forwarded-For": "10.0.0.1"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limit_exceeded", env.Error.Code)

	rec, _ = do(t, h, http.MethodGet, "/live", "", map[string]string{"X-Forwarded-For": "10.0.0.2"})
	assert.Equal(t, http.StatusOK, rec.Code, "buckets are per IP")
}

func TestRateLimitIgnoresForwardedForFromUntrustedPeers(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	srv := NewServer(cfg, Dependencies{Logger: logger.Discard()})
	h := srv.Handler()

	rec, _ := do(t, h, http.MethodGet, "/live", "", map[string]string{"X-Forwarded-For": "10.0.0.1"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/live", "", map[string]string{"X-Forwarded-For": "10.0.0.2"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "a rotated header does not open a new bucket")
}

func TestClientIP(t *testing.T) {
	ips := NewClientIPResolver([]string{"192.0.2.1", "172.16.0.0/12", "bogus"})

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{name: "untrusted peer", remote: "198.51.100.7:4000", xff: "10.0.0.1", want: "198.51.100.7"},
		{name: "trusted peer", remote: "192.0.2.1:4000", xff: "203.0.113.9", want: "203.0.113.9"},
		{name: "spoofed prefix", remote: "192.0.2.1:4000", xff: "1.1.1.1, 203.0.113.9, 172.16.3.4", want: "203.0.113.9"},
		{name: "all hops trusted", remote: "192.0.2.1:4000", xff: "172.16.0.1, 172.16.0.2", want: "172.16.0.1"},
		{name: "real ip header", remote: "192.0.2.1:4000", xri: "203.0.113.5", want: "203.0.113.5"},
		{name: "no headers", remote: "192.0.2.1:4000", want: "192.0.2.1"},
		{name: "no port", remote: "198.51.100.7", want: "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, ips.ClientIP(req))
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := testConfig(t)
	cfg.AllowedOrigins = []string{"https://bolao.example"}
	srv := NewServer(cfg, Dependencies{Logger: logger.Discard()})

	rec, _ := do(t, srv.Handler(), http.MethodOptions, "/api/v1/ranking", "", map[string]string{
		"Origin":                        "https://bolao.example",
		"Access-Control-Request-Method": "GET",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://bolao.example", rec.Header().Get("Access-Control-Allow-Origin"))

	rec, _ = do(t, srv.Handler(), http.MethodGet, "/live", "", map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsUseRoutePattern(t *testing.T) {
	m := &httpMetricsFake{}
	srv := NewServer(testConfig(t), Dependencies{
		Profile:        profileFake{},
		Metrics:        m,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) }),
		Logger:         logger.Discard(),
	})
	h := srv.Handler()

	do(t, h, http.MethodGet, "/api/v1/users/ana/profile", "", nil)
	do(t, h, http.MethodGet, "/nowhere", "", nil)
	rec, _ := do(t, h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, "ok", rec.Body.String())

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, []string{
		"GET /api/v1/users/{id}/profile",
		"GET unmatched",
		"GET /metrics",
	}, m.routes)
}

func TestHealthAndReadiness(t *testing.T) {
	checker := handlers.NewCompositeHealthChecker("1.2.3")
	checker.AddCheck("database", func(context.Context) error { return nil })
	checker.AddOptionalCheck("cache", func(context.Context) error { return errors.New("dial tcp: refused") })

	srv := NewServer(testConfig(t), Dependencies{HealthChecker: checker, Logger: logger.Discard()})
	h := srv.Handler()

	rec, env := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	data := env.Data.(map[string]any)
	assert.Equal(t, "Some checks failed: cache", data["message"])

	rec, _ = do(t, h, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "a cache outage keeps the service ready")

	checker.AddCheck("database", func(context.Context) error { return errors.New("down") })
	rec, _ = do(t, h, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMatchVoters(t *testing.T) {
	voters := &votersFake{}
	srv := NewServer(testConfig(t), Dependencies{Voters: voters, Logger: logger.Discard()})
	h := srv.Handler()

	rec, env := do(t, h, http.MethodGet, "/api/v1/matches/m-4/voters", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, shared.MatchID("m-4"), voters.got.MatchID)

	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["revealed"])
	assert.Len(t, data["voted"], 1)
	assert.Len(t, data["missing"], 1)

	rec, env = do(t, h, http.MethodGet, "/api/v1/matches/nope/voters", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestUpdateMatch(t *testing.T) {
	update := &updateFake{}
	srv := NewServer(testConfig(t), Dependencies{UpdateMatch: update, Logger: logger.Discard()})
	h := srv.Handler()
	auth := map[string]string{HeaderAPIKey: adminKey}
	body := `{"round":"Semifinal","deadline":"2026-03-08T19:00:00Z","allow_draw":false}`

	rec, _ := do(t, h, http.MethodPatch, "/api/v1/admin/matches/m-2", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := do(t, h, http.MethodPatch, "/api/v1/admin/matches/m-2", body, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, shared.MatchID("m-2"), update.got.MatchID)

	p := update.got.Patch
	require.NotNil(t, p.Round)
	assert.Equal(t, "Semifinal", *p.Round)
	require.NotNil(t, p.Deadline)
	assert.Equal(t, time.Date(2026, 3, 8, 19, 0, 0, 0, time.UTC), p.Deadline.UTC())
	require.NotNil(t, p.AllowDraw)
	assert.False(t, *p.AllowDraw)
	assert.Nil(t, p.TeamA)
	assert.Nil(t, p.LegType)

	update.err = shared.ErrTeamsLocked
	rec, env = do(t, h, http.MethodPatch, "/api/v1/admin/matches/m-2", `{"team_a":"Bahia"}`, auth)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", env.Error.Code)
}
