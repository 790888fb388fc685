package s4_news

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/internal/pool"
	"github.com/wonny/aegis-picker/pkg/config"
	"github.com/wonny/aegis-picker/pkg/logger"
)

// specificity is a fixed extension point; per-symbol clustering already keeps stories on topic
const specificity = 1.0

// DefaultClassifyWorkers bounds concurrent headline classification
const DefaultClassifyWorkers = 8

// CandidateQuery selects the news window to score
type CandidateQuery struct {
	WindowMin int      // 0 → policy.News.WindowMin
	Limit     int      // 0 → policy.News.TopN
	Symbols   []string // 비어 있으면 전체
	SectorOf  func(symbol string) string
}

// Scorer turns stored news events into ranked news candidates (S4)
type Scorer struct {
	events     contracts.NewsEventStore
	runs       contracts.RunStore
	classifier contracts.CatalystModel
	policy     *config.Policy
	workers    int
	logger     *logger.Logger
	now        func() time.Time
}

// NewScorer creates a news candidate scorer.
// runs may be nil, which disables the cooldown guardrail.
func NewScorer(events contracts.NewsEventStore, runs contracts.RunStore, classifier contracts.CatalystModel, policy *config.Policy, log *logger.Logger) *Scorer {
	if classifier == nil {
		classifier = RuleClassifier{}
	}
	if policy == nil {
		policy = config.DefaultPolicy()
	}
	return &Scorer{
		events:     events,
		runs:       runs,
		classifier: classifier,
		policy:     policy,
		workers:    DefaultClassifyWorkers,
		logger:     log.WithModule("s4_news"),
		now:        time.Now,
	}
}

// WithClock overrides the time source (tests)
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// WithWorkers sets the classification concurrency
func (s *Scorer) WithWorkers(n int) *Scorer {
	if n > 0 {
		s.workers = n
	}
	return s
}

// Build scores every story in the window and applies the guardrails
func (s *Scorer) Build(ctx context.Context, q CandidateQuery) ([]contracts.NewsCandidate, error) {
	now := s.now()
	window := q.WindowMin
	if window <= 0 {
		window = s.policy.News.WindowMin
	}
	limit := q.Limit
	if limit <= 0 {
		limit = s.policy.News.TopN
	}

	since := now.Add(-time.Duration(window) * time.Minute)
	events, err := s.events.EventsSince(ctx, since, q.Symbols)
	if err != nil {
		return nil, fmt.Errorf("load news events: %w", err)
	}
	if len(events) == 0 {
		return nil, nil
	}

	clusters := Cluster(events, ClusterConfig{
		WindowMin:    window,
		SimThreshold: s.policy.News.ClusterThreshold,
	})

	// 헤드라인 분류 (모델 호출은 병렬, 실패는 규칙으로 대체)
	tags := pool.Map(ctx, clusters, s.workers, func(ctx context.Context, c contracts.StoryCluster) (contracts.CatalystTag, error) {
		return s.classifier.Classify(ctx, c.Members[0].Title, "")
	})

	perSymbol := make(map[string]int)
	for _, c := range clusters {
		perSymbol[c.Symbol]++
	}

	scored := make([]contracts.NewsCandidate, 0, len(clusters))
	dropped := 0
	for i, c := range clusters {
		tag := tags[i].Value
		if tags[i].Err != nil {
			tag = RuleClassifier{}.Tag(c.Members[0].Title, "")
		}
		cand, ok := ScoreCluster(c, tag, perSymbol[c.Symbol], now, s.policy)
		if !ok {
			dropped++
			continue
		}
		scored = append(scored, cand)
	}

	cooled, err := s.cooledSymbols(ctx, now)
	if err != nil {
		return nil, err
	}

	out := ApplyGuardrails(scored, cooled, q.SectorOf, s.policy.Guardrails.MaxPerSector, limit)

	s.logger.WithFields(map[string]interface{}{
		"events":      len(events),
		"clusters":    len(clusters),
		"min_sources": dropped,
		"cooled":      len(cooled),
		"candidates":  len(out),
	}).Debug("News candidates built")

	return out, nil
}

// cooledSymbols collects the pick and top-N symbols of recent runs
func (s *Scorer) cooledSymbols(ctx context.Context, now time.Time) (map[string]struct{}, error) {
	cooled := make(map[string]struct{})
	if s.runs == nil || s.policy.Guardrails.CooldownMin <= 0 {
		return cooled, nil
	}

	since := now.Add(-time.Duration(s.policy.Guardrails.CooldownMin) * time.Minute)
	runs, err := s.runs.RunsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load recent runs: %w", err)
	}
	for _, r := range runs {
		if r.Pick != nil {
			cooled[r.Pick.Symbol] = struct{}{}
		}
		for _, c := range r.TopN {
			cooled[c.Symbol] = struct{}{}
		}
	}
	return cooled, nil
}

// ScoreCluster computes the news candidate of one story.
// ok is false when the story lacks independent sources and is not an official filing.
func ScoreCluster(c contracts.StoryCluster, tag contracts.CatalystTag, sameSymbolClusters int, now time.Time, policy *config.Policy) (contracts.NewsCandidate, bool) {
	g := policy.Guardrails
	w := policy.NewsScoreWeights

	minSourcesOK := len(c.Sources) >= g.MinSourceCount ||
		(len(c.Sources) == 1 && IsOfficial(c.Sources[0]))

	headline := c.Members[0]
	srcQ := MeanSourceQuality(c.Sources)
	fresh := Freshness(now.Sub(c.LastSeen).Minutes(), policy.News.HalfLifeMin)
	novelty := Novelty(sameSymbolClusters)

	rumor := 0.0
	if HasHedgeWords(headline.Title) {
		rumor = g.RumorPenalty
	}

	score := w.SourceQuality*srcQ +
		w.Catalyst*SignedImpact(tag.Direction, tag.Impact) +
		w.Freshness*fresh +
		w.Specificity*specificity +
		w.Novelty*novelty -
		rumor

	reasons := []string{
		fmt.Sprintf("srcQ:%.2f", srcQ),
		fmt.Sprintf("catalyst:%s(%s,%.2f)", tag.Catalyst, tag.Direction, tag.Impact),
		fmt.Sprintf("fresh:%.2f", fresh),
		fmt.Sprintf("specificity:%.2f", specificity),
		fmt.Sprintf("novel:%.2f", novelty),
	}
	if rumor > 0 {
		reasons = append(reasons, fmt.Sprintf("rumor_penalty:%.2f", rumor))
	}

	return contracts.NewsCandidate{
		Symbol:         c.Symbol,
		Score:          score,
		Catalyst:       tag.Catalyst,
		Direction:      tag.Direction,
		Impact:         tag.Impact,
		Provenance:     tag.Provenance,
		Freshness:      fresh,
		Specificity:    specificity,
		Novelty:        novelty,
		RumorPenalty:   rumor,
		SourceCount:    len(c.Sources),
		Hits:           c.Hits(),
		LastSeen:       c.LastSeen,
		SampleHeadline: headline.Title,
		SampleURL:      headline.URL,
		Reasons:        reasons,
	}, minSourcesOK
}

// ApplyGuardrails drops cooled symbols, keeps the best story per symbol,
// admits at most maxPerSector symbols per known sector and truncates to limit.
// An empty sector is never capped.
func ApplyGuardrails(cands []contracts.NewsCandidate, cooled map[string]struct{}, sectorOf func(string) string, maxPerSector, limit int) []contracts.NewsCandidate {
	sorted := make([]contracts.NewsCandidate, 0, len(cands))
	for _, c := range cands {
		if _, ok := cooled[c.Symbol]; ok {
			continue
		}
		sorted = append(sorted, c)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Symbol < sorted[j].Symbol
	})

	out := make([]contracts.NewsCandidate, 0, len(sorted))
	seen := make(map[string]struct{}, len(sorted))
	perSector := make(map[string]int)

	for _, c := range sorted {
		if limit > 0 && len(out) >= limit {
			break
		}
		if _, ok := seen[c.Symbol]; ok {
			continue
		}
		if maxPerSector > 0 && sectorOf != nil {
			if sec := sectorOf(c.Symbol); sec != "" {
				if perSector[sec] >= maxPerSector {
					continue
				}
				perSector[sec]++
			}
		}
		seen[c.Symbol] = struct{}{}
		out = append(out, c)
	}
	return out
}
