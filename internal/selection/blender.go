package selection

import (
	"sort"
	"time"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/pkg/config"
	"github.com/wonny/aegis-picker/pkg/logger"
)

// DefaultTopN is the size of the ranked result
const DefaultTopN = 5

// Input is everything one blend needs
type Input struct {
	Tech []contracts.TechScore
	News map[string]contracts.NewsCandidate // nil = 뉴스 스트림 없음
	Live bool
	Now  time.Time
}

// Outcome is the ranked result of one blend
type Outcome struct {
	TopN     []contracts.Candidate `json:"top_n"`
	Pick     *contracts.Candidate  `json:"pick"`
	Passed   int                   `json:"passed"`
	Rejected []contracts.Candidate `json:"rejected"`
}

// Blender merges technical and news scores, gates and ranks them (S5)
// ⭐ SSOT: S5 블렌딩/랭킹 로직은 여기서만
type Blender struct {
	policy *config.Policy
	topN   int
	logger *logger.Logger
}

// NewBlender creates a blender; topN <= 0 uses DefaultTopN
func NewBlender(policy *config.Policy, topN int, log *logger.Logger) *Blender {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Blender{
		policy: policy,
		topN:   topN,
		logger: log.WithModule("selection"),
	}
}

// Blend gates and ranks in; identical input gives identical output
func (b *Blender) Blend(in Input) Outcome {
	out := Blend(in, b.policy, b.topN)

	fields := map[string]interface{}{
		"input":    len(in.Tech),
		"news":     len(in.News),
		"passed":   out.Passed,
		"rejected": len(out.Rejected),
		"live":     in.Live,
	}
	if out.Pick != nil {
		fields["pick"] = out.Pick.Symbol
		fields["pick_score"] = out.Pick.BlendedTotal
	}
	b.logger.WithFields(fields).Info("Blending completed")

	return out
}

// Blend is the pure form of Blender.Blend.
// blended = wT·tech + wN·(qualified ? news : 0), weights normalized to sum 1.
// Passers rank by blended, tech, news desc then symbol asc; rejects are sorted by symbol.
func Blend(in Input, policy *config.Policy, topN int) Outcome {
	if topN <= 0 {
		topN = DefaultTopN
	}
	wTech, wNews := policy.NormalizedWeights()
	gate := NewGate(policy, in.Live)

	passed := make([]contracts.Candidate, 0, len(in.Tech))
	var rejected []contracts.Candidate
	seen := make(map[string]bool, len(in.Tech))

	for i := range in.Tech {
		t := in.Tech[i]
		if seen[t.Symbol] {
			continue
		}
		seen[t.Symbol] = true

		c := contracts.Candidate{
			Symbol:    t.Symbol,
			TechScore: t.TechTotal,
			Tech:      &t,
		}
		if n, ok := in.News[t.Symbol]; ok {
			c.News = &n
			c.NewsScore = n.Score
			c.NewsQualified = gate.Qualified(&n, in.Now)
		}
		c.BlendedTotal = wTech*c.TechScore + wNews*newsTerm(c)

		if reasons := gate.Check(t); len(reasons) > 0 {
			c.GateReasons = reasons
			rejected = append(rejected, c)
			continue
		}
		passed = append(passed, c)
	}

	sort.SliceStable(passed, func(i, j int) bool {
		a, b := passed[i], passed[j]
		if a.BlendedTotal != b.BlendedTotal {
			return a.BlendedTotal > b.BlendedTotal
		}
		if a.TechScore != b.TechScore {
			return a.TechScore > b.TechScore
		}
		if na, nb := newsTerm(a), newsTerm(b); na != nb {
			return na > nb
		}
		return a.Symbol < b.Symbol
	})
	sort.SliceStable(rejected, func(i, j int) bool {
		return rejected[i].Symbol < rejected[j].Symbol
	})

	top := passed
	if len(top) > topN {
		top = top[:topN]
	}

	out := Outcome{
		TopN:     append([]contracts.Candidate{}, top...),
		Passed:   len(passed),
		Rejected: rejected,
	}
	if len(out.TopN) > 0 {
		pick := out.TopN[0]
		out.Pick = &pick
	}
	return out
}

// newsTerm is the news score that counts toward the blend
func newsTerm(c contracts.Candidate) float64 {
	if !c.NewsQualified {
		return 0
	}
	return c.NewsScore
}
