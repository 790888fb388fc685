package selection

import (
	"fmt"
	"time"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/pkg/config"
)

// Gate applies the hard safety gates and the news qualification rule
// ⭐ SSOT: S5 하드 게이트는 여기서만
type Gate struct {
	hard config.HardGates
	news config.NewsGates
	live bool
}

// NewGate creates a gate; the spread ceiling is enforced only when live
func NewGate(policy *config.Policy, live bool) Gate {
	return Gate{hard: policy.HardGates, news: policy.NewsGates, live: live}
}

// Check returns every failed gate for t (empty = passed).
// Turnover per minute = last × avg1mVol. Missing ATR passes.
func (g Gate) Check(t contracts.TechScore) []string {
	var reasons []string

	if t.Last < g.hard.MinPrice {
		reasons = append(reasons, fmt.Sprintf("price<₹%g", g.hard.MinPrice))
	}
	if t.Last*t.Avg1mVol < g.hard.MinTurnoverPerMin {
		reasons = append(reasons, fmt.Sprintf("turnover<₹%g/min", g.hard.MinTurnoverPerMin))
	}
	if t.ATRPct != nil && g.hard.MaxATRPct > 0 && *t.ATRPct > g.hard.MaxATRPct {
		reasons = append(reasons, fmt.Sprintf("atr%%>%.1f%%", g.hard.MaxATRPct*100))
	}
	if g.live && g.hard.MaxSpreadPct > 0 && t.SpreadPct > g.hard.MaxSpreadPct {
		reasons = append(reasons, fmt.Sprintf("spread>%.2f%%", g.hard.MaxSpreadPct*100))
	}
	return reasons
}

// Qualified reports whether a news candidate counts toward the blend at now
func (g Gate) Qualified(n *contracts.NewsCandidate, now time.Time) bool {
	if n == nil {
		return false
	}
	if n.Hits < g.news.MinHits || n.Score < g.news.MinScore {
		return false
	}
	if g.news.MaxAgeMin > 0 && now.Sub(n.LastSeen) > time.Duration(g.news.MaxAgeMin)*time.Minute {
		return false
	}
	return true
}
