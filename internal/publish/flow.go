package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/pkg/config"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/market"
)

// PickFunc runs one fresh picker invocation
type PickFunc func(ctx context.Context) (*contracts.RunResult, error)

// Flow is the scheduled publish path: ensure today's pick, choose symbols, publish
type Flow struct {
	calendar  *market.Calendar
	runs      contracts.RunStore
	publisher *Publisher
	pick      PickFunc
	source    string
	lockFor   time.Duration
	maxCount  int
	logger    *logger.Logger
	now       func() time.Time
}

// NewFlow creates the publish flow; pick may be nil (no fresh runs)
func NewFlow(calendar *market.Calendar, runs contracts.RunStore, publisher *Publisher, pick PickFunc, cfg config.PickerConfig, log *logger.Logger) *Flow {
	source := cfg.PublishSource
	if source == "" {
		source = "preopen"
	}
	lockFor := time.Duration(cfg.LockMinutes) * time.Minute
	if lockFor <= 0 {
		lockFor = DefaultLockFor
	}
	return &Flow{
		calendar:  calendar,
		runs:      runs,
		publisher: publisher,
		pick:      pick,
		source:    source,
		lockFor:   lockFor,
		maxCount:  cfg.PublishMaxCount,
		logger:    log.WithModule("publish_flow"),
		now:       time.Now,
	}
}

// WithClock overrides the time source (tests)
func (f *Flow) WithClock(now func() time.Time) *Flow {
	f.now = now
	return f
}

// Source returns the default publish source
func (f *Flow) Source() string {
	return f.source
}

// PublishToday publishes today's list for source ("" = default source).
// A fresh pick runs first when today has no run or the latest one had no gate passers.
func (f *Flow) PublishToday(ctx context.Context, source string, force bool) (*contracts.PublishResult, error) {
	now := f.now()
	if source == "" {
		source = f.source
	}
	if !f.calendar.IsTradingDay(now) {
		return nil, contracts.ErrNotTradingDay
	}
	dateKey := f.calendar.DateKey(now)

	latest, err := f.runs.LatestRun(ctx, dateKey)
	if err != nil {
		return nil, fmt.Errorf("load latest run: %w", err)
	}

	if (latest == nil || latest.FilteredSize == 0) && f.pick != nil {
		f.logger.WithField("date", dateKey).Info("No usable pick for today, running picker")
		result, err := f.pick(ctx)
		if err != nil {
			return nil, fmt.Errorf("fresh pick: %w", err)
		}
		if result != nil {
			run := result.Run
			latest = &run
		}
	}

	if latest == nil || latest.DateKey != dateKey {
		return nil, contracts.ErrNoPickForToday
	}

	return f.publisher.Publish(ctx, PublishRequest{
		DateKey:   dateKey,
		Source:    source,
		Symbols:   SymbolsFromRun(latest, f.maxCount),
		Force:     force,
		LockFor:   f.lockFor,
		PickRunID: latest.ID,
		Meta: map[string]interface{}{
			"universe_size":     latest.UniverseSize,
			"shortlisted_count": latest.ShortlistedCount,
			"filtered_size":     latest.FilteredSize,
			"policy_hash":       latest.Rules.PolicyHash,
		},
	})
}

// EnsurePublished publishes only when today's list for source is missing or empty
func (f *Flow) EnsurePublished(ctx context.Context, source string) (*contracts.PublishResult, error) {
	if source == "" {
		source = f.source
	}
	now := f.now()
	if !f.calendar.IsTradingDay(now) {
		return nil, contracts.ErrNotTradingDay
	}

	existing, err := f.publisher.store.Get(ctx, f.calendar.DateKey(now), source)
	if err != nil {
		return nil, fmt.Errorf("load published list: %w", err)
	}
	if existing != nil && len(existing.Symbols) > 0 {
		return &contracts.PublishResult{
			Key:       existing.Key(),
			Symbols:   existing.Symbols,
			LockUntil: existing.LockUntil,
			Count:     len(existing.Symbols),
			Note:      "already published",
		}, nil
	}
	return f.PublishToday(ctx, source, false)
}

// SymbolsFromRun picks the publish pool: TopN, or the shortlist when TopN is empty
func SymbolsFromRun(run *contracts.PickRun, max int) []string {
	if max <= 0 {
		max = DefaultMaxCount
	}
	pool := run.Symbols()
	if len(pool) == 0 {
		pool = run.Shortlisted
	}
	return NormalizeSymbols(pool, max)
}
