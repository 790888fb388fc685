package brain

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/internal/publish"
	"github.com/wonny/aegis-picker/internal/s1_universe"
	"github.com/wonny/aegis-picker/internal/s2_shortlist"
	"github.com/wonny/aegis-picker/internal/s3_technical"
	"github.com/wonny/aegis-picker/internal/s4_news"
	"github.com/wonny/aegis-picker/internal/selection"
	"github.com/wonny/aegis-picker/pkg/config"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/market"
	"github.com/wonny/aegis-picker/pkg/metrics"
)

// Early-exit notes recorded on the PickRun
const (
	NoteEmptyShortlist = "empty_shortlist"
	NoteNoTechScores   = "no_tech_scores"
)

// Orchestrator coordinates one picker invocation
// ⭐ SSOT: 파이프라인 조율은 여기서만
//
//	S1 → S2 → (S3 ∥ S4) → S5 → S6
type Orchestrator struct {
	// Stage components
	universe    *s1_universe.Manager
	shortlister *s2_shortlist.Shortlister
	technical   *s3_technical.Scorer
	news        *s4_news.Scorer // optional
	blender     *selection.Blender
	recorder    *publish.Recorder

	calendar *market.Calendar
	policy   *config.Policy
	cfg      config.PickerConfig
	metrics  *metrics.Registry
	logger   *logger.Logger
	now      func() time.Time
}

// RunConfig holds options for one invocation
type RunConfig struct {
	Debug          bool // rejected 후보 포함
	ReuseShortlist bool // 당일 저장된 숏리스트 재사용
}

// NewOrchestrator creates a new orchestrator; news may be nil
func NewOrchestrator(
	universe *s1_universe.Manager,
	shortlister *s2_shortlist.Shortlister,
	technical *s3_technical.Scorer,
	news *s4_news.Scorer,
	blender *selection.Blender,
	recorder *publish.Recorder,
	calendar *market.Calendar,
	policy *config.Policy,
	cfg config.PickerConfig,
	m *metrics.Registry,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		universe:    universe,
		shortlister: shortlister,
		technical:   technical,
		news:        news,
		blender:     blender,
		recorder:    recorder,
		calendar:    calendar,
		policy:      policy,
		cfg:         cfg,
		metrics:     m,
		logger:      log.WithModule("brain"),
		now:         time.Now,
	}
}

// WithClock overrides the time source (tests)
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Run executes S1 through S6 and records exactly one PickRun.
// Empty stages are valid results; only collaborator failures return an error.
func (o *Orchestrator) Run(ctx context.Context, rc RunConfig) (*contracts.RunResult, error) {
	startTime := time.Now()
	now := o.now()
	dateKey := o.calendar.DateKey(now)
	live := o.calendar.IsOpen(now)

	o.logger.WithFields(map[string]interface{}{
		"date":  dateKey,
		"live":  live,
		"debug": rc.Debug,
	}).Info("Starting picker run")

	result := &contracts.RunResult{
		Run: contracts.PickRun{
			DateKey:     dateKey,
			Timestamp:   now,
			TopN:        []contracts.Candidate{},
			Shortlisted: []string{},
		},
	}
	rules, err := o.ruleSnapshot(live)
	if err != nil {
		return nil, err
	}

	// S1: Universe
	day, err := o.runS1(ctx, dateKey)
	if err != nil {
		return nil, fmt.Errorf("S1 failed: %w", err)
	}
	result.Stages.Universe = len(day.Universe)
	result.Run.UniverseSize = len(day.Universe)

	// S2: Shortlist
	shortlist, err := o.runS2(ctx, day, live, rc.ReuseShortlist)
	if err != nil {
		return nil, fmt.Errorf("S2 failed: %w", err)
	}
	rules.RelaxedShortlist = shortlist.Relaxed
	result.Run.Rules = rules
	result.Run.Shortlisted = shortlist.Symbols()
	result.Run.ShortlistedCount = len(shortlist.Rows)
	result.Stages.Shortlisted = len(shortlist.Rows)

	if len(shortlist.Rows) == 0 {
		result.Run.Note = NoteEmptyShortlist
		return o.finish(ctx, result, startTime)
	}

	// S3 ∥ S4
	tech, news, err := o.runStreams(ctx, day, shortlist)
	if err != nil {
		return nil, err
	}
	result.Stages.TechScored = len(tech)
	result.Stages.NewsScored = len(news)

	if len(tech) == 0 {
		result.Run.Note = NoteNoTechScores
		return o.finish(ctx, result, startTime)
	}

	// S5: Blend + gate
	out := o.blender.Blend(selection.Input{
		Tech: tech,
		News: news,
		Live: live,
		Now:  now,
	})
	result.Run.TopN = out.TopN
	result.Run.Pick = out.Pick
	result.Run.FilteredSize = out.Passed
	result.Stages.Passed = out.Passed
	result.Stages.Rejected = len(out.Rejected)
	if rc.Debug {
		result.Run.Rejected = out.Rejected
		result.Rejected = out.Rejected
	}

	// S6: Record
	return o.finish(ctx, result, startTime)
}

// runS1 returns the day context for dateKey
func (o *Orchestrator) runS1(ctx context.Context, dateKey string) (*s1_universe.DayContext, error) {
	start := time.Now()
	day, err := o.universe.ForDate(ctx, dateKey)
	o.metrics.ObserveStage(contracts.StageUniverse.String(), start, err)
	if err != nil {
		return nil, fmt.Errorf("day context: %w", err)
	}
	return day, nil
}

// runS2 builds the shortlist, or reuses today's saved one when asked
func (o *Orchestrator) runS2(ctx context.Context, day *s1_universe.DayContext, live, reuse bool) (*s2_shortlist.Result, error) {
	if reuse {
		saved, err := o.shortlister.Today(ctx, day.DateKey)
		if err != nil {
			o.logger.WithStage(contracts.StageShortlist.String()).WithError(err).Warn("Saved shortlist unavailable, rebuilding")
		} else if saved != nil && saved.Live == live && len(saved.Rows) > 0 {
			o.logger.WithFields(map[string]interface{}{
				"rows":     len(saved.Rows),
				"built_at": saved.BuiltAt,
			}).Info("Reusing saved shortlist")
			return saved, nil
		}
	}

	res, err := o.shortlister.Run(ctx, day, live)
	if err != nil {
		return nil, fmt.Errorf("shortlist: %w", err)
	}
	return res, nil
}

// runStreams scores the technical and news streams concurrently.
// A news failure degrades to tech-only blending; a tech failure aborts the run.
func (o *Orchestrator) runStreams(ctx context.Context, day *s1_universe.DayContext, shortlist *s2_shortlist.Result) ([]contracts.TechScore, map[string]contracts.NewsCandidate, error) {
	var (
		tech []contracts.TechScore
		news map[string]contracts.NewsCandidate
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scores, err := o.technical.ScoreAll(gctx, day, shortlist.Rows)
		if err != nil {
			return fmt.Errorf("S3 failed: %w", err)
		}
		tech = scores
		return nil
	})

	if o.news != nil {
		g.Go(func() error {
			news = o.runS4(gctx, day, shortlist.Symbols())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return tech, news, nil
}

// runS4 builds news candidates for the shortlisted symbols (nil on failure)
func (o *Orchestrator) runS4(ctx context.Context, day *s1_universe.DayContext, symbols []string) map[string]contracts.NewsCandidate {
	start := time.Now()
	if o.cfg.NewsTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.NewsTimeout)
		defer cancel()
	}

	cands, err := o.news.Build(ctx, s4_news.CandidateQuery{
		Symbols:  symbols,
		SectorOf: day.Sector,
	})
	o.metrics.ObserveStage(contracts.StageNews.String(), start, err)
	if err != nil {
		o.logger.WithStage(contracts.StageNews.String()).WithError(err).Warn("News stream failed, blending technical only")
		return nil
	}

	// 심볼당 첫 후보 (점수 내림차순)
	bySymbol := make(map[string]contracts.NewsCandidate, len(cands))
	for _, c := range cands {
		if _, ok := bySymbol[c.Symbol]; !ok {
			bySymbol[c.Symbol] = c
		}
	}
	o.metrics.CountItems(contracts.StageNews.String(), "candidates", len(bySymbol))
	return bySymbol
}

// finish records the run (S6) and returns the result
func (o *Orchestrator) finish(ctx context.Context, result *contracts.RunResult, startTime time.Time) (*contracts.RunResult, error) {
	start := time.Now()
	err := o.recorder.Record(ctx, &result.Run)
	o.metrics.ObserveStage(contracts.StagePublish.String(), start, err)
	if err != nil {
		return result, fmt.Errorf("S6 failed: %w", err)
	}

	fields := map[string]interface{}{
		"run_id":      result.Run.ID,
		"universe":    result.Stages.Universe,
		"shortlisted": result.Stages.Shortlisted,
		"tech":        result.Stages.TechScored,
		"news":        result.Stages.NewsScored,
		"passed":      result.Stages.Passed,
		"duration":    time.Since(startTime).Seconds(),
	}
	if result.Run.Pick != nil {
		fields["pick"] = result.Run.Pick.Symbol
	}
	if result.Run.Note != "" {
		fields["note"] = result.Run.Note
	}
	o.logger.WithFields(fields).Info("Picker run completed")

	return result, nil
}

// ruleSnapshot captures the thresholds this run is evaluated with
func (o *Orchestrator) ruleSnapshot(live bool) (contracts.RuleSnapshot, error) {
	hash, err := o.policy.Hash()
	if err != nil {
		return contracts.RuleSnapshot{}, fmt.Errorf("policy hash: %w", err)
	}
	wt, wn := o.policy.NormalizedWeights()
	return contracts.RuleSnapshot{
		PolicyHash:        hash,
		TechWeight:        wt,
		NewsWeight:        wn,
		MinPrice:          o.policy.HardGates.MinPrice,
		MinTurnoverPerMin: o.policy.HardGates.MinTurnoverPerMin,
		MaxATRPct:         o.policy.HardGates.MaxATRPct,
		MaxSpreadPct:      o.policy.HardGates.MaxSpreadPct,
		NewsMinScore:      o.policy.NewsGates.MinScore,
		NewsMinHits:       o.policy.NewsGates.MinHits,
		NewsMaxAgeMin:     o.policy.NewsGates.MaxAgeMin,
		Live:              live,
	}, nil
}
