package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/internal/s1_universe"
	"github.com/wonny/aegis-picker/internal/s4_news"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/market"
)

// 쿼리 상한
const (
	maxWindowMin = 7 * 24 * 60
	maxLimit     = 200
)

// CandidateBuilder scores stored news (s4_news.Scorer)
type CandidateBuilder interface {
	Build(ctx context.Context, q s4_news.CandidateQuery) ([]contracts.NewsCandidate, error)
}

// NewsRefresher runs one ingestion pass (s4_news.Ingestor)
type NewsRefresher interface {
	RefreshOnce(ctx context.Context, aliases *s1_universe.AliasIndex) (*s4_news.RefreshResult, error)
}

// DayProvider returns the day context (s1_universe.Manager)
type DayProvider interface {
	ForDate(ctx context.Context, dateKey string) (*s1_universe.DayContext, error)
}

// NewsHandler handles news API endpoints
type NewsHandler struct {
	scorer   CandidateBuilder
	ingestor NewsRefresher
	days     DayProvider
	calendar *market.Calendar
	logger   *logger.Logger
	now      func() time.Time
}

// NewNewsHandler creates a new news handler
func NewNewsHandler(scorer CandidateBuilder, ingestor NewsRefresher, days DayProvider, calendar *market.Calendar, log *logger.Logger) *NewsHandler {
	return &NewsHandler{
		scorer:   scorer,
		ingestor: ingestor,
		days:     days,
		calendar: calendar,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock overrides the time source (tests)
func (h *NewsHandler) WithClock(now func() time.Time) *NewsHandler {
	h.now = now
	return h
}

// Candidates returns ranked news candidates
// GET /api/news/candidates?window=90&limit=10
func (h *NewsHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	window, err := intParam(r, "window", maxWindowMin)
	if err != nil {
		respondError(w, http.StatusBadRequest, ReasonInvalidArgument, err.Error())
		return
	}
	limit, err := intParam(r, "limit", maxLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, ReasonInvalidArgument, err.Error())
		return
	}

	q := s4_news.CandidateQuery{WindowMin: window, Limit: limit}
	// 유니버스가 있으면 섹터 캡 적용
	if day, err := h.days.ForDate(r.Context(), h.calendar.DateKey(h.now())); err == nil {
		q.SectorOf = day.Sector
	}

	cands, err := h.scorer.Build(r.Context(), q)
	if err != nil {
		h.logger.WithError(err).Error("Failed to build news candidates")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"tz":     h.calendar.Location().String(),
		"window": window,
		"limit":  limit,
		"rows":   cands,
	})
}

// Refresh runs one ingestion pass against today's alias index
// POST /api/news/refresh
func (h *NewsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	day, err := h.days.ForDate(r.Context(), h.calendar.DateKey(h.now()))
	if err != nil {
		h.logger.WithError(err).Error("Day context unavailable for news refresh")
		respondDomainError(w, err)
		return
	}

	res, err := h.ingestor.RefreshOnce(r.Context(), day.Aliases)
	if err != nil {
		h.logger.WithError(err).Error("News refresh failed")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"result": res,
	})
}
