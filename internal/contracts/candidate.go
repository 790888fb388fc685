package contracts

import "time"

// Candidate is a symbol after blending technical and news scores (S5)
type Candidate struct {
	Symbol        string         `json:"symbol"`
	TechScore     float64        `json:"tech_score"`
	NewsScore     float64        `json:"news_score"`
	NewsQualified bool           `json:"news_qualified"`
	BlendedTotal  float64        `json:"blended_total"`
	GateReasons   []string       `json:"gate_reasons,omitempty"`
	Tech          *TechScore     `json:"tech,omitempty"`
	News          *NewsCandidate `json:"news,omitempty"`
}

// Passed reports whether the candidate cleared every hard gate
func (c Candidate) Passed() bool {
	return len(c.GateReasons) == 0
}

// RuleSnapshot records the thresholds a run was evaluated with
type RuleSnapshot struct {
	PolicyHash        string  `json:"policy_hash"`
	TechWeight        float64 `json:"tech_weight"`
	NewsWeight        float64 `json:"news_weight"`
	MinPrice          float64 `json:"min_price"`
	MinTurnoverPerMin float64 `json:"min_turnover_per_min"`
	MaxATRPct         float64 `json:"max_atr_pct"`
	MaxSpreadPct      float64 `json:"max_spread_pct"`
	NewsMinScore      float64 `json:"news_min_score"`
	NewsMinHits       int     `json:"news_min_hits"`
	NewsMaxAgeMin     int     `json:"news_max_age_min"`
	Live              bool    `json:"live"`
	RelaxedShortlist  bool    `json:"relaxed_shortlist"`
}

// PickRun is the record of one picker invocation
// ⭐ SSOT: 호출마다 정확히 하나 (후보 0개, 조기 종료 포함)
type PickRun struct {
	ID               string       `json:"id"`
	Timestamp        time.Time    `json:"timestamp"`
	DateKey          string       `json:"date_key"`
	UniverseSize     int          `json:"universe_size"`
	ShortlistedCount int          `json:"shortlisted_count"`
	FilteredSize     int          `json:"filtered_size"`
	TopN             []Candidate  `json:"top_n"`
	Pick             *Candidate   `json:"pick,omitempty"`
	Shortlisted      []string     `json:"shortlisted"`
	Rejected         []Candidate  `json:"rejected,omitempty"` // debug 전용
	Rules            RuleSnapshot `json:"rules"`
	Note             string       `json:"note,omitempty"`
}

// Symbols returns the TopN symbols in rank order
func (r *PickRun) Symbols() []string {
	out := make([]string, 0, len(r.TopN))
	for _, c := range r.TopN {
		out = append(out, c.Symbol)
	}
	return out
}

// RunResult is returned by every picker invocation
type RunResult struct {
	Run      PickRun     `json:"run"`
	Stages   StageCounts `json:"stages"`
	Rejected []Candidate `json:"rejected,omitempty"`
}
