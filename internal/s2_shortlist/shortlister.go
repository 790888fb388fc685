package s2_shortlist

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/internal/s1_universe"
	"github.com/wonny/aegis-picker/pkg/config"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/metrics"
)

// Result is one shortlist build
type Result struct {
	DateKey  string                   `json:"date_key"`
	Live     bool                     `json:"live"`
	Relaxed  bool                     `json:"relaxed"`
	Universe int                      `json:"universe"`
	Rows     []contracts.ShortlistRow `json:"rows"`
	Filtered map[string]int           `json:"filtered,omitempty"`
	BuiltAt  time.Time                `json:"built_at"`
}

// Symbols returns the shortlisted symbols in rank order
func (r *Result) Symbols() []string {
	out := make([]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		out = append(out, row.Symbol)
	}
	return out
}

// Store persists the latest shortlist per date key
type Store interface {
	Save(ctx context.Context, r *Result) error
	// Load returns nil, nil when no shortlist was saved for dateKey
	Load(ctx context.Context, dateKey string) (*Result, error)
}

// Shortlister runs the strict → relaxed shortlist strategy (S2)
type Shortlister struct {
	store   Store
	policy  *config.Policy
	cfg     config.PickerConfig
	metrics *metrics.Registry
	logger  *logger.Logger
	now     func() time.Time
}

// NewShortlister creates a shortlister; store may be nil
func NewShortlister(store Store, policy *config.Policy, cfg config.PickerConfig, m *metrics.Registry, log *logger.Logger) *Shortlister {
	return &Shortlister{
		store:   store,
		policy:  policy,
		cfg:     cfg,
		metrics: m,
		logger:  log.WithModule("s2_shortlist"),
		now:     time.Now,
	}
}

// WithClock overrides the time source (tests)
func (s *Shortlister) WithClock(now func() time.Time) *Shortlister {
	s.now = now
	return s
}

// Run builds the day's shortlist from live quotes.
// When the strict pass requires depth and admits nothing, one relaxed pass follows.
func (s *Shortlister) Run(ctx context.Context, day *s1_universe.DayContext, live bool) (*Result, error) {
	start := time.Now()

	symbols := day.Symbols()
	quotes, err := FetchQuotes(ctx, day.Market, symbols, s.cfg.QuoteBatchSize, s.logger)
	if err != nil {
		s.metrics.ObserveStage(contracts.StageShortlist.String(), start, err)
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}

	limit := s.cfg.ShortlistLimitOff
	if live {
		limit = s.cfg.ShortlistLimitLive
	}

	// 1단계: strict
	opt := StrictOptions(s.policy, live, limit)
	rows, filtered := Filter(day.Universe, quotes, opt)
	relaxed := false

	// 2단계: 호가 요구로 0건일 때만 완화
	if len(rows) == 0 && opt.RequireDepth {
		relaxedOpt := opt.Relaxed(s.cfg.RelaxFactor)
		rows, filtered = Filter(day.Universe, quotes, relaxedOpt)
		relaxed = true

		s.logger.WithFields(map[string]interface{}{
			"max_spread_pct": relaxedOpt.MaxSpreadPct,
			"rows":           len(rows),
		}).Warn("Strict shortlist empty, relaxed pass used")
	}

	result := &Result{
		DateKey:  day.DateKey,
		Live:     live,
		Relaxed:  relaxed,
		Universe: len(day.Universe),
		Rows:     rows,
		Filtered: filtered,
		BuiltAt:  s.now(),
	}

	if s.store != nil {
		if err := s.store.Save(ctx, result); err != nil {
			s.logger.WithError(err).Warn("Failed to save shortlist")
		}
	}

	s.metrics.ObserveStage(contracts.StageShortlist.String(), start, nil)
	s.metrics.CountItems(contracts.StageShortlist.String(), "passed", len(rows))
	s.logger.WithFields(map[string]interface{}{
		"date":         day.DateKey,
		"universe":     len(day.Universe),
		"quotes":       len(quotes),
		"shortlisted":  len(rows),
		"live":         live,
		"relaxed":      relaxed,
		"filtered_out": filtered,
	}).Info("Shortlist completed")

	return result, nil
}

// Today returns the saved shortlist for dateKey (nil when none)
func (s *Shortlister) Today(ctx context.Context, dateKey string) (*Result, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.Load(ctx, dateKey)
}
