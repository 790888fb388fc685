package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/aegis-picker/internal/brain"
	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/market"
)

// Picker runs one picker invocation (brain.Orchestrator)
type Picker interface {
	Run(ctx context.Context, rc brain.RunConfig) (*contracts.RunResult, error)
}

// RunReader loads recorded pick runs
type RunReader interface {
	LatestRun(ctx context.Context, dateKey string) (*contracts.PickRun, error)
}

// PickHandler handles picker API endpoints
// ⭐ SSOT: 픽 API 핸들러는 여기서만
type PickHandler struct {
	picker   Picker
	runs     RunReader
	calendar *market.Calendar
	logger   *logger.Logger
	now      func() time.Time
}

// NewPickHandler creates a new pick handler
func NewPickHandler(picker Picker, runs RunReader, calendar *market.Calendar, log *logger.Logger) *PickHandler {
	return &PickHandler{
		picker:   picker,
		runs:     runs,
		calendar: calendar,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock overrides the time source (tests)
func (h *PickHandler) WithClock(now func() time.Time) *PickHandler {
	h.now = now
	return h
}

// runResponse wraps a RunResult for the API
type runResponse struct {
	OK   bool   `json:"ok"`
	Live bool   `json:"live"`
	TZ   string `json:"tz"`
	*contracts.RunResult
}

// RunPick triggers a picker run now
// POST /api/pick/run?debug=1&reuse=1
func (h *PickHandler) RunPick(w http.ResponseWriter, r *http.Request) {
	rc := brain.RunConfig{
		Debug:          boolParam(r, "debug"),
		ReuseShortlist: boolParam(r, "reuse"),
	}

	result, err := h.picker.Run(r.Context(), rc)
	if err != nil {
		h.logger.WithError(err).Error("Picker run failed")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, runResponse{
		OK:        true,
		Live:      result.Run.Rules.Live,
		TZ:        h.calendar.Location().String(),
		RunResult: result,
	})
}

// LatestPick returns the latest recorded run for a date (default today)
// GET /api/pick/latest?date=YYYY-MM-DD
func (h *PickHandler) LatestPick(w http.ResponseWriter, r *http.Request) {
	dateKey := r.URL.Query().Get("date")
	if dateKey == "" {
		dateKey = h.calendar.DateKey(h.now())
	} else if _, err := h.calendar.ParseDateKey(dateKey); err != nil {
		respondError(w, http.StatusBadRequest, ReasonInvalidArgument, "date must be YYYY-MM-DD")
		return
	}

	run, err := h.runs.LatestRun(r.Context(), dateKey)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest run")
		respondDomainError(w, err)
		return
	}
	if run == nil {
		respondError(w, http.StatusNotFound, ReasonNoPickForToday, "no pick run for "+dateKey)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":  true,
		"tz":  h.calendar.Location().String(),
		"run": run,
	})
}
