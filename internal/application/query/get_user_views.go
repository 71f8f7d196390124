package query

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/compare"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/ledger"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/medal"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/scout"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PER-USER VIEWS
// Profile, scout report, points statement and head-to-head comparison.
// Unknown users get the empty view of each, never an error.
// ══════════════════════════════════════════════════════════════════════════════

// MaxChartWindow caps the scout chart window.
const MaxChartWindow = 100

func invalidQuery(op string, err error) error {
	return shared.WrapError("query", op, shared.ErrValidation, err.Error(), err)
}

func userAttr(uid shared.UserID) attribute.KeyValue {
	return attribute.String("user_id", uid.String())
}

// ──────────────────────────────────────────────────────────────────────────────
// Profile
// ──────────────────────────────────────────────────────────────────────────────

// GetProfileQuery asks for the medal profile of a user.
type GetProfileQuery struct {
	UserID shared.UserID
}

// Validate checks the query.
func (q GetProfileQuery) Validate() error {
	if q.UserID.IsEmpty() {
		return errors.New("user_id is required")
	}
	return nil
}

// GetProfileHandler handles GetProfileQuery.
type GetProfileHandler struct {
	standings *StandingsService
	tel       Telemetry
}

// NewGetProfileHandler creates the handler.
func NewGetProfileHandler(standings *StandingsService, tel Telemetry) *GetProfileHandler {
	return &GetProfileHandler{standings: standings, tel: tel}
}

// Handle executes the query. Medal events are not part of the cached
// standings, so the profile is always computed from a fresh snapshot.
func (h *GetProfileHandler) Handle(ctx context.Context, q GetProfileQuery) (*medal.Profile, error) {
	if err := q.Validate(); err != nil {
		return nil, invalidQuery("GetProfile", err)
	}
	return observe(ctx, h.tel, "GetProfile", []attribute.KeyValue{userAttr(q.UserID)},
		func(ctx context.Context) (*medal.Profile, error) {
			st, err := h.standings.Compute(ctx)
			if err != nil {
				return nil, err
			}
			p := st.Profile(q.UserID)
			return &p, nil
		})
}

// ──────────────────────────────────────────────────────────────────────────────
// Scout
// ──────────────────────────────────────────────────────────────────────────────

// GetScoutQuery asks for the analytics report of a user.
type GetScoutQuery struct {
	UserID shared.UserID

	// Window is the number of chart points (0 = default).
	Window int
}

// Validate checks and normalizes the query.
func (q *GetScoutQuery) Validate() error {
	if q.UserID.IsEmpty() {
		return errors.New("user_id is required")
	}
	if q.Window < 0 {
		return errors.New("window cannot be negative")
	}
	if q.Window > MaxChartWindow {
		q.Window = MaxChartWindow
	}
	return nil
}

// GetScoutHandler handles GetScoutQuery.
type GetScoutHandler struct {
	loader        *DatasetLoader
	defaultWindow int
	tel           Telemetry
}

// NewGetScoutHandler creates the handler. defaultWindow applies when the
// query leaves Window at zero.
func NewGetScoutHandler(loader *DatasetLoader, defaultWindow int, tel Telemetry) *GetScoutHandler {
	if defaultWindow <= 0 {
		defaultWindow = scout.DefaultWindow
	}
	return &GetScoutHandler{loader: loader, defaultWindow: defaultWindow, tel: tel}
}

// Handle executes the query.
func (h *GetScoutHandler) Handle(ctx context.Context, q GetScoutQuery) (*scout.Report, error) {
	if err := q.Validate(); err != nil {
		return nil, invalidQuery("GetScout", err)
	}
	if q.Window == 0 {
		q.Window = h.defaultWindow
	}

	attrs := []attribute.KeyValue{userAttr(q.UserID), attribute.Int("window", q.Window)}
	return observe(ctx, h.tel, "GetScout", attrs, func(ctx context.Context) (*scout.Report, error) {
		snap, err := h.loader.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		r := scout.Summarize(snap, q.UserID, q.Window)
		return &r, nil
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Ledger
// ──────────────────────────────────────────────────────────────────────────────

// GetLedgerQuery asks for the points statement of a user.
type GetLedgerQuery struct {
	UserID shared.UserID
}

// Validate checks the query.
func (q GetLedgerQuery) Validate() error {
	if q.UserID.IsEmpty() {
		return errors.New("user_id is required")
	}
	return nil
}

// GetLedgerHandler handles GetLedgerQuery.
type GetLedgerHandler struct {
	loader *DatasetLoader
	tel    Telemetry
}

// NewGetLedgerHandler creates the handler.
func NewGetLedgerHandler(loader *DatasetLoader, tel Telemetry) *GetLedgerHandler {
	return &GetLedgerHandler{loader: loader, tel: tel}
}

// Handle executes the query.
func (h *GetLedgerHandler) Handle(ctx context.Context, q GetLedgerQuery) (*ledger.Statement, error) {
	if err := q.Validate(); err != nil {
		return nil, invalidQuery("GetLedger", err)
	}
	return observe(ctx, h.tel, "GetLedger", []attribute.KeyValue{userAttr(q.UserID)},
		func(ctx context.Context) (*ledger.Statement, error) {
			snap, err := h.loader.Snapshot(ctx)
			if err != nil {
				return nil, err
			}
			st := ledger.Build(snap, q.UserID)
			return &st, nil
		})
}

// ──────────────────────────────────────────────────────────────────────────────
// Compare
// ──────────────────────────────────────────────────────────────────────────────

// CompareQuery lines up two users.
type CompareQuery struct {
	UserID  shared.UserID
	RivalID shared.UserID
}

// Validate checks the query.
func (q CompareQuery) Validate() error {
	if q.UserID.IsEmpty() || q.RivalID.IsEmpty() {
		return errors.New("both user_id and rival_id are required")
	}
	return nil
}

// CompareResult is the comparison payload.
type CompareResult struct {
	UserID  shared.UserID  `json:"user_id"`
	RivalID shared.UserID  `json:"rival_id"`
	Items   []compare.Item `json:"items"`
}

// CompareHandler handles CompareQuery.
type CompareHandler struct {
	loader *DatasetLoader
	tel    Telemetry
}

// NewCompareHandler creates the handler.
func NewCompareHandler(loader *DatasetLoader, tel Telemetry) *CompareHandler {
	return &CompareHandler{loader: loader, tel: tel}
}

// Handle executes the query.
func (h *CompareHandler) Handle(ctx context.Context, q CompareQuery) (*CompareResult, error) {
	if err := q.Validate(); err != nil {
		return nil, invalidQuery("Compare", err)
	}
	attrs := []attribute.KeyValue{userAttr(q.UserID), attribute.String("rival_id", q.RivalID.String())}
	return observe(ctx, h.tel, "Compare", attrs, func(ctx context.Context) (*CompareResult, error) {
		snap, err := h.loader.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return &CompareResult{
			UserID:  q.UserID,
			RivalID: q.RivalID,
			Items:   compare.Build(snap, q.UserID, q.RivalID),
		}, nil
	})
}
