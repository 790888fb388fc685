package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy holds the strategy thresholds the picker is evaluated with
// ⭐ SSOT: 블렌딩 가중치, 게이트, 가드레일은 여기서만 정의
type Policy struct {
	Weights          BlendWeights     `yaml:"weights" json:"weights"`
	HardGates        HardGates        `yaml:"hard_gates" json:"hard_gates"`
	NewsGates        NewsGates        `yaml:"news_gates" json:"news_gates"`
	Guardrails       Guardrails       `yaml:"guardrails" json:"guardrails"`
	NewsScoreWeights NewsScoreWeights `yaml:"news_score_weights" json:"news_score_weights"`
	News             NewsPolicy       `yaml:"news" json:"news"`
	Shortlist        ShortlistPolicy  `yaml:"shortlist" json:"shortlist"`
	Technical        TechnicalPolicy  `yaml:"technical" json:"technical"`
}

// BlendWeights are normalized before use
type BlendWeights struct {
	Tech float64 `yaml:"tech" json:"tech"`
	News float64 `yaml:"news" json:"news"`
}

// HardGates reject a candidate regardless of score
type HardGates struct {
	MinPrice          float64 `yaml:"min_price" json:"min_price"`
	MinTurnoverPerMin float64 `yaml:"min_turnover_per_min" json:"min_turnover_per_min"` // last × avg1mVol
	MaxATRPct         float64 `yaml:"max_atr_pct" json:"max_atr_pct"`
	MaxSpreadPct      float64 `yaml:"max_spread_pct" json:"max_spread_pct"` // 장중에만 적용
}

// NewsGates decide whether a news score counts toward the blend
type NewsGates struct {
	MinScore  float64 `yaml:"min_score" json:"min_score"`
	MinHits   int     `yaml:"min_hits" json:"min_hits"`
	MaxAgeMin int     `yaml:"max_age_min" json:"max_age_min"`
}

// Guardrails suppress noisy news candidates
type Guardrails struct {
	RumorPenalty   float64 `yaml:"rumor_penalty" json:"rumor_penalty"`
	MinSourceCount int     `yaml:"min_source_count" json:"min_source_count"`
	CooldownMin    int     `yaml:"cooldown_min" json:"cooldown_min"`
	MaxPerSector   int     `yaml:"max_per_sector" json:"max_per_sector"`
}

// NewsScoreWeights weight the components of a news candidate score
type NewsScoreWeights struct {
	SourceQuality float64 `yaml:"source_quality" json:"source_quality"`
	Catalyst      float64 `yaml:"catalyst" json:"catalyst"`
	Freshness     float64 `yaml:"freshness" json:"freshness"`
	Specificity   float64 `yaml:"specificity" json:"specificity"`
	Novelty       float64 `yaml:"novelty" json:"novelty"`
}

// NewsPolicy holds clustering and mapping parameters
type NewsPolicy struct {
	WindowMin        int     `yaml:"window_min" json:"window_min"`
	TopN             int     `yaml:"top_n" json:"top_n"`
	ClusterThreshold float64 `yaml:"cluster_threshold" json:"cluster_threshold"`
	MapThreshold     float64 `yaml:"map_threshold" json:"map_threshold"`
	HalfLifeMin      float64 `yaml:"half_life_min" json:"half_life_min"`
}

// ShortlistPolicy holds the fast filter thresholds
type ShortlistPolicy struct {
	MaxSpreadPct      float64 `yaml:"max_spread_pct" json:"max_spread_pct"`
	MinGapPct         float64 `yaml:"min_gap_pct" json:"min_gap_pct"`
	UnknownSpreadPct  float64 `yaml:"unknown_spread_pct" json:"unknown_spread_pct"`
	PreferPositiveGap bool    `yaml:"prefer_positive_gap" json:"prefer_positive_gap"`
}

// TechnicalPolicy holds the factor scoring constants
type TechnicalPolicy struct {
	DailyLookbackDays int     `yaml:"daily_lookback_days" json:"daily_lookback_days"`
	MinDailyBars      int     `yaml:"min_daily_bars" json:"min_daily_bars"`
	ATRPeriod         int     `yaml:"atr_period" json:"atr_period"`
	LiquidityTarget   float64 `yaml:"liquidity_target" json:"liquidity_target"`
	SpreadRef         float64 `yaml:"spread_ref" json:"spread_ref"`
}

// DefaultPolicy returns the built-in intraday policy
func DefaultPolicy() *Policy {
	return &Policy{
		Weights: BlendWeights{Tech: 0.7, News: 0.3},
		HardGates: HardGates{
			MinPrice:          20,
			MinTurnoverPerMin: 4_000_000, // 200,000주/분 × ₹20
			MaxATRPct:         0.07,
			MaxSpreadPct:      0.0035,
		},
		NewsGates: NewsGates{MinScore: 0.25, MinHits: 2, MaxAgeMin: 120},
		Guardrails: Guardrails{
			RumorPenalty:   0.15,
			MinSourceCount: 2,
			CooldownMin:    30,
			MaxPerSector:   3,
		},
		NewsScoreWeights: NewsScoreWeights{
			SourceQuality: 0.25,
			Catalyst:      0.35,
			Freshness:     0.25,
			Specificity:   0.10,
			Novelty:       0.05,
		},
		News: NewsPolicy{
			WindowMin:        120,
			TopN:             40,
			ClusterThreshold: 0.84,
			MapThreshold:     0.88,
			HalfLifeMin:      120,
		},
		Shortlist: ShortlistPolicy{
			MaxSpreadPct:      0.006,
			MinGapPct:         -0.01,
			UnknownSpreadPct:  0.004,
			PreferPositiveGap: true,
		},
		Technical: TechnicalPolicy{
			DailyLookbackDays: 90,
			MinDailyBars:      15,
			ATRPeriod:         14,
			LiquidityTarget:   200_000,
			SpreadRef:         0.004,
		},
	}
}

// LoadPolicy reads a policy YAML file and returns it with its raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func LoadPolicy(path string) (*Policy, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read policy: %w", err)
	}

	// 누락된 필드는 기본값 유지
	p := DefaultPolicy()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(p); err != nil {
		return nil, nil, fmt.Errorf("decode policy: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, data, err
	}

	return p, data, nil
}

// LoadPolicyOrDefault returns DefaultPolicy when path is empty
func LoadPolicyOrDefault(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	p, _, err := LoadPolicy(path)
	return p, err
}

// PolicyError is a validation failure of one policy field
type PolicyError struct {
	Field   string
	Message string
}

func (e PolicyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
func (p *Policy) Validate() error {
	if p.Weights.Tech < 0 || p.Weights.News < 0 || p.Weights.Tech+p.Weights.News <= 0 {
		return PolicyError{"weights", "must be non-negative with a positive sum"}
	}
	if p.HardGates.MinPrice < 0 {
		return PolicyError{"hard_gates.min_price", "must be >= 0"}
	}
	if p.HardGates.MaxATRPct <= 0 {
		return PolicyError{"hard_gates.max_atr_pct", "must be > 0"}
	}
	if p.HardGates.MaxSpreadPct <= 0 || p.HardGates.MaxSpreadPct > 0.05 {
		return PolicyError{"hard_gates.max_spread_pct", "must be in (0, 0.05]"}
	}
	if p.NewsGates.MinHits < 1 {
		return PolicyError{"news_gates.min_hits", "must be >= 1"}
	}
	if p.Guardrails.MinSourceCount < 1 {
		return PolicyError{"guardrails.min_source_count", "must be >= 1"}
	}
	if p.News.WindowMin <= 0 {
		return PolicyError{"news.window_min", "must be > 0"}
	}
	if p.News.ClusterThreshold <= 0 || p.News.ClusterThreshold > 1 {
		return PolicyError{"news.cluster_threshold", "must be in (0, 1]"}
	}
	if p.News.MapThreshold <= 0 || p.News.MapThreshold > 1 {
		return PolicyError{"news.map_threshold", "must be in (0, 1]"}
	}
	if p.Technical.MinDailyBars < p.Technical.ATRPeriod+1 {
		return PolicyError{"technical.min_daily_bars", "must exceed atr_period"}
	}
	return nil
}

// NormalizedWeights returns tech/news weights scaled to sum to 1
func (p *Policy) NormalizedWeights() (tech, news float64) {
	sum := p.Weights.Tech + p.Weights.News
	if sum <= 0 {
		return 0.7, 0.3
	}
	return p.Weights.Tech / sum, p.Weights.News / sum
}

// Hash generates SHA256 hash from Policy (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func (p *Policy) Hash() (string, error) {
	jsonBytes, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
