package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-picker/internal/api/handlers"
	"github.com/wonny/aegis-picker/internal/brain"
	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/internal/s1_universe"
	"github.com/wonny/aegis-picker/internal/s2_shortlist"
	"github.com/wonny/aegis-picker/internal/s4_news"
	"github.com/wonny/aegis-picker/pkg/config"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/market"
	"github.com/wonny/aegis-picker/pkg/metrics"
)

var calendar = market.NewCalendar(config.MarketConfig{Timezone: "Asia/Kolkata"})
var now = time.Date(2026, 3, 2, 8, 5, 0, 0, calendar.Location())

// =============================================================================
// Stubs
// =============================================================================

type stubPicker struct {
	got brain.RunConfig
	res *contracts.RunResult
	err error
}

func (s *stubPicker) Run(_ context.Context, rc brain.RunConfig) (*contracts.RunResult, error) {
	s.got = rc
	return s.res, s.err
}

type stubRuns struct {
	asked string
	run   *contracts.PickRun
	err   error
}

func (s *stubRuns) LatestRun(_ context.Context, dateKey string) (*contracts.PickRun, error) {
	s.asked = dateKey
	return s.run, s.err
}

type stubPublisher struct {
	source string
	force  bool
	res    *contracts.PublishResult
	err    error
}

func (s *stubPublisher) PublishToday(_ context.Context, source string, force bool) (*contracts.PublishResult, error) {
	s.source, s.force = source, force
	return s.res, s.err
}

type stubScorer struct {
	got   s4_news.CandidateQuery
	cands []contracts.NewsCandidate
	err   error
}

func (s *stubScorer) Build(_ context.Context, q s4_news.CandidateQuery) ([]contracts.NewsCandidate, error) {
	s.got = q
	return s.cands, s.err
}

type stubIngestor struct {
	aliases *s1_universe.AliasIndex
	err     error
}

func (s *stubIngestor) RefreshOnce(_ context.Context, aliases *s1_universe.AliasIndex) (*s4_news.RefreshResult, error) {
	s.aliases = aliases
	if s.err != nil {
		return nil, s.err
	}
	return &s4_news.RefreshResult{Articles: 5, Mapped: 3, Saved: 3}, nil
}

type stubDays struct {
	err error
}

func (s stubDays) ForDate(_ context.Context, dateKey string) (*s1_universe.DayContext, error) {
	if s.err != nil {
		return nil, s.err
	}
	universe := []contracts.UniverseEntry{
		{Symbol: "NSE:INFY", InstrumentToken: 1, CompanyName: "Infosys Limited", Sector: "IT"},
	}
	return s1_universe.NewDayContext(dateKey, universe, nil), nil
}

type stubShortlists struct {
	res *s2_shortlist.Result
	err error
}

func (s stubShortlists) Today(context.Context, string) (*s2_shortlist.Result, error) {
	return s.res, s.err
}

// =============================================================================
// Harness
// =============================================================================

type harness struct {
	picker     *stubPicker
	runs       *stubRuns
	publisher  *stubPublisher
	scorer     *stubScorer
	ingestor   *stubIngestor
	days       *stubDays
	shortlists *stubShortlists
	metrics    *metrics.Registry
	router     http.Handler
}

func newHarness() *harness {
	h := &harness{
		picker:     &stubPicker{},
		runs:       &stubRuns{},
		publisher:  &stubPublisher{},
		scorer:     &stubScorer{},
		ingestor:   &stubIngestor{},
		days:       &stubDays{},
		shortlists: &stubShortlists{},
		metrics:    metrics.New(),
	}
	clock := func() time.Time { return now }
	log := logger.Nop()

	h.router = NewRouter(Handlers{
		Pick:      handlers.NewPickHandler(h.picker, h.runs, calendar, log).WithClock(clock),
		Publish:   handlers.NewPublishHandler(h.publisher, log),
		News:      handlers.NewNewsHandler(h.scorer, h.ingestor, h.days, calendar, log).WithClock(clock),
		Shortlist: handlers.NewShortlistHandler(h.shortlists, calendar, log).WithClock(clock),
	}, h.metrics, log)
	return h
}

func (h *harness) do(t *testing.T, method, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var body map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

// =============================================================================
// Tests
// =============================================================================

func TestHealth(t *testing.T) {
	h := newHarness()

	rec, body := h.do(t, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestRunPick(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		err        error
		wantCode   int
		wantReason string
		wantRC     brain.RunConfig
	}{
		{
			name:     "plain run",
			target:   "/api/pick/run",
			wantCode: http.StatusOK,
		},
		{
			name:     "debug and reuse flags",
			target:   "/api/pick/run?debug=1&reuse=true",
			wantCode: http.StatusOK,
			wantRC:   brain.RunConfig{Debug: true, ReuseShortlist: true},
		},
		{
			name:       "universe unavailable",
			target:     "/api/pick/run",
			err:        fmt.Errorf("S1 failed: %w", contracts.ErrNoUniverse),
			wantCode:   http.StatusServiceUnavailable,
			wantReason: handlers.ReasonNoUniverse,
		},
		{
			name:       "collaborator failure",
			target:     "/api/pick/run",
			err:        errors.New("S2 failed: quote batch: timeout"),
			wantCode:   http.StatusInternalServerError,
			wantReason: handlers.ReasonInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.picker.err = tt.err
			if tt.err == nil {
				pick := contracts.Candidate{Symbol: "NSE:INFY", BlendedTotal: 0.71}
				h.picker.res = &contracts.RunResult{
					Run: contracts.PickRun{
						ID:      "run-1",
						DateKey: "2026-03-02",
						TopN:    []contracts.Candidate{pick},
						Pick:    &pick,
					},
					Stages: contracts.StageCounts{Universe: 40, Shortlisted: 10, TechScored: 9, Passed: 1},
				}
			}

			rec, body := h.do(t, http.MethodPost, tt.target)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantRC, h.picker.got)
			if tt.wantReason != "" {
				assert.Equal(t, false, body["ok"])
				assert.Equal(t, tt.wantReason, body["reason"])
				return
			}
			assert.Equal(t, true, body["ok"])
			assert.Equal(t, "Asia/Kolkata", body["tz"])
			run := body["run"].(map[string]interface{})
			assert.Equal(t, "NSE:INFY", run["pick"].(map[string]interface{})["symbol"])
			assert.EqualValues(t, 40, body["stages"].(map[string]interface{})["universe"])
		})
	}
}

func TestRouter_WrongMethod(t *testing.T) {
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/pick/run"},
		{http.MethodPost, "/api/pick/latest"},
		{http.MethodGet, "/api/publish"},
		{http.MethodPost, "/api/news/candidates"},
		{http.MethodGet, "/api/news/refresh"},
		{http.MethodDelete, "/api/shortlist"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			h := newHarness()
			rec, _ := h.do(t, tt.method, tt.path)
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		})
	}
}

func TestLatestPick(t *testing.T) {
	t.Run("defaults to today", func(t *testing.T) {
		h := newHarness()
		h.runs.run = &contracts.PickRun{ID: "run-9", DateKey: "2026-03-02"}

		rec, body := h.do(t, http.MethodGet, "/api/pick/latest")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2026-03-02", h.runs.asked)
		assert.Equal(t, "run-9", body["run"].(map[string]interface{})["id"])
	})

	t.Run("explicit date", func(t *testing.T) {
		h := newHarness()
		h.runs.run = &contracts.PickRun{ID: "run-1", DateKey: "2026-02-27"}

		rec, _ := h.do(t, http.MethodGet, "/api/pick/latest?date=2026-02-27")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2026-02-27", h.runs.asked)
	})

	t.Run("bad date", func(t *testing.T) {
		h := newHarness()

		rec, body := h.do(t, http.MethodGet, "/api/pick/latest?date=02-27")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, handlers.ReasonInvalidArgument, body["reason"])
		assert.Empty(t, h.runs.asked)
	})

	t.Run("no run yet", func(t *testing.T) {
		h := newHarness()

		rec, body := h.do(t, http.MethodGet, "/api/pick/latest")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, handlers.ReasonNoPickForToday, body["reason"])
	})
}

func TestPublish(t *testing.T) {
	lockUntil := now.Add(15 * time.Minute)

	tests := []struct {
		name       string
		target     string
		res        *contracts.PublishResult
		err        error
		wantCode   int
		wantOK     bool
		wantReason string
		wantSource string
		wantForce  bool
	}{
		{
			name:   "default source",
			target: "/api/publish",
			res: &contracts.PublishResult{
				Key:       "2026-03-02:preopen",
				Symbols:   []string{"NSE:INFY", "NSE:TCS"},
				LockUntil: &lockUntil,
				Count:     2,
			},
			wantCode: http.StatusOK,
			wantOK:   true,
		},
		{
			name:       "forced manual source",
			target:     "/api/publish?source=manual&force=1",
			res:        &contracts.PublishResult{Key: "2026-03-02:manual", Count: 1, Symbols: []string{"NSE:INFY"}},
			wantCode:   http.StatusOK,
			wantOK:     true,
			wantSource: "manual",
			wantForce:  true,
		},
		{
			name:       "holiday is a soft failure",
			target:     "/api/publish",
			err:        contracts.ErrNotTradingDay,
			wantCode:   http.StatusOK,
			wantReason: handlers.ReasonMarketHoliday,
		},
		{
			name:       "no pick for today",
			target:     "/api/publish",
			err:        contracts.ErrNoPickForToday,
			wantCode:   http.StatusConflict,
			wantReason: handlers.ReasonNoPickForToday,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.publisher.res = tt.res
			h.publisher.err = tt.err

			rec, body := h.do(t, http.MethodPost, tt.target)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantOK, body["ok"])
			assert.Equal(t, tt.wantSource, h.publisher.source)
			assert.Equal(t, tt.wantForce, h.publisher.force)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, body["reason"])
				return
			}
			result := body["result"].(map[string]interface{})
			assert.Equal(t, tt.res.Key, result["key"])
			assert.EqualValues(t, tt.res.Count, result["count"])
		})
	}
}

func TestNewsCandidates(t *testing.T) {
	t.Run("passes window and limit", func(t *testing.T) {
		h := newHarness()
		h.scorer.cands = []contracts.NewsCandidate{{Symbol: "NSE:INFY", Score: 0.8, Catalyst: "earnings"}}

		rec, body := h.do(t, http.MethodGet, "/api/news/candidates?window=90&limit=5")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 90, h.scorer.got.WindowMin)
		assert.Equal(t, 5, h.scorer.got.Limit)
		require.NotNil(t, h.scorer.got.SectorOf)
		assert.Equal(t, "IT", h.scorer.got.SectorOf("NSE:INFY"))
		rows := body["rows"].([]interface{})
		require.Len(t, rows, 1)
		assert.Equal(t, "earnings", rows[0].(map[string]interface{})["catalyst"])
	})

	t.Run("clamps oversized limit", func(t *testing.T) {
		h := newHarness()

		rec, _ := h.do(t, http.MethodGet, "/api/news/candidates?limit=100000")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 200, h.scorer.got.Limit)
		assert.Equal(t, 0, h.scorer.got.WindowMin)
	})

	t.Run("rejects bad window", func(t *testing.T) {
		h := newHarness()

		rec, body := h.do(t, http.MethodGet, "/api/news/candidates?window=-3")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, handlers.ReasonInvalidArgument, body["reason"])
	})

	t.Run("works without a universe", func(t *testing.T) {
		h := newHarness()
		h.days.err = contracts.ErrNoUniverse

		rec, _ := h.do(t, http.MethodGet, "/api/news/candidates")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, h.scorer.got.SectorOf)
	})

	t.Run("store failure", func(t *testing.T) {
		h := newHarness()
		h.scorer.err = errors.New("events since: connection refused")

		rec, _ := h.do(t, http.MethodGet, "/api/news/candidates")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestNewsRefresh(t *testing.T) {
	t.Run("uses today's alias index", func(t *testing.T) {
		h := newHarness()

		rec, body := h.do(t, http.MethodPost, "/api/news/refresh")

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, h.ingestor.aliases)
		assert.EqualValues(t, 3, body["result"].(map[string]interface{})["saved"])
	})

	t.Run("no universe", func(t *testing.T) {
		h := newHarness()
		h.days.err = fmt.Errorf("fetch universe: %w", contracts.ErrNoUniverse)

		rec, body := h.do(t, http.MethodPost, "/api/news/refresh")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, handlers.ReasonNoUniverse, body["reason"])
		assert.Nil(t, h.ingestor.aliases)
	})
}

func TestShortlist(t *testing.T) {
	t.Run("saved shortlist", func(t *testing.T) {
		h := newHarness()
		h.shortlists.res = &s2_shortlist.Result{
			DateKey:  "2026-03-02",
			Relaxed:  true,
			Universe: 120,
			Rows:     []contracts.ShortlistRow{{Symbol: "NSE:INFY"}, {Symbol: "NSE:TCS"}},
		}

		rec, body := h.do(t, http.MethodGet, "/api/shortlist")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["relaxed"])
		assert.Len(t, body["rows"], 2)
	})

	t.Run("missing", func(t *testing.T) {
		h := newHarness()

		rec, body := h.do(t, http.MethodGet, "/api/shortlist")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, handlers.ReasonNoShortlist, body["reason"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness()

	h.do(t, http.MethodGet, "/health")
	rec, _ := h.do(t, http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "picker_http_request_duration_seconds")
	assert.Equal(t, 2, testutil.CollectAndCount(h.metrics.HTTPDuration))
}

func TestRouter_NilHandlers(t *testing.T) {
	router := NewRouter(Handlers{}, nil, logger.Nop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/pick/run", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	panicky := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	panicky.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), handlers.ReasonInternal)
}
