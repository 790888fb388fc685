package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/wonny/aegis-picker/internal/contracts"
)

// Failure reasons returned as {"ok": false, "reason": ...}
const (
	ReasonMarketHoliday   = "market_holiday"
	ReasonNoPickForToday  = "no_pick_for_today"
	ReasonNoUniverse      = "no_universe"
	ReasonNoShortlist     = "no_shortlist"
	ReasonInvalidArgument = "invalid_argument"
	ReasonInternal        = "internal_error"
)

// failure is the common error body
type failure struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
	Error  string `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, reason, message string) {
	respondJSON(w, status, failure{
		OK:     false,
		Reason: reason,
		Error:  message,
	})
}

// respondDomainError maps sentinel errors to their HTTP shape
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contracts.ErrNotTradingDay):
		// 휴장일은 실패가 아님
		respondJSON(w, http.StatusOK, failure{OK: false, Reason: ReasonMarketHoliday})
	case errors.Is(err, contracts.ErrNoPickForToday):
		respondError(w, http.StatusConflict, ReasonNoPickForToday, err.Error())
	case errors.Is(err, contracts.ErrNoUniverse):
		respondError(w, http.StatusServiceUnavailable, ReasonNoUniverse, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, ReasonInternal, err.Error())
	}
}

// boolParam reads 1/true/yes style query flags
func boolParam(r *http.Request, name string) bool {
	switch r.URL.Query().Get(name) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// intParam reads a non-negative integer query value; missing → 0
func intParam(r *http.Request, name string, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}
