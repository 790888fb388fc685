package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/aegis-picker/internal/s2_shortlist"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/market"
)

// ShortlistReader loads today's saved shortlist (s2_shortlist.Shortlister)
type ShortlistReader interface {
	Today(ctx context.Context, dateKey string) (*s2_shortlist.Result, error)
}

// ShortlistHandler serves the saved shortlist
type ShortlistHandler struct {
	shortlists ShortlistReader
	calendar   *market.Calendar
	logger     *logger.Logger
	now        func() time.Time
}

// NewShortlistHandler creates a new shortlist handler
func NewShortlistHandler(shortlists ShortlistReader, calendar *market.Calendar, log *logger.Logger) *ShortlistHandler {
	return &ShortlistHandler{
		shortlists: shortlists,
		calendar:   calendar,
		logger:     log,
		now:        time.Now,
	}
}

// WithClock overrides the time source (tests)
func (h *ShortlistHandler) WithClock(now func() time.Time) *ShortlistHandler {
	h.now = now
	return h
}

// Today returns today's shortlist
// GET /api/shortlist
func (h *ShortlistHandler) Today(w http.ResponseWriter, r *http.Request) {
	dateKey := h.calendar.DateKey(h.now())

	res, err := h.shortlists.Today(r.Context(), dateKey)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load shortlist")
		respondDomainError(w, err)
		return
	}
	if res == nil {
		respondError(w, http.StatusNotFound, ReasonNoShortlist, "no shortlist for "+dateKey)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"date_key": res.DateKey,
		"live":     res.Live,
		"relaxed":  res.Relaxed,
		"universe": res.Universe,
		"filtered": res.Filtered,
		"built_at": res.BuiltAt,
		"rows":     res.Rows,
	})
}
