package s2_shortlist

import (
	"math"
	"sort"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/pkg/config"
)

// Options are the fast filter thresholds for one pass
type Options struct {
	MinPrice          float64
	MaxSpreadPct      float64 // 알려진 스프레드에만 적용 (0 = 제한 없음)
	MinGapPct         float64 // PreferPositiveGap일 때 갭 하한 (예: -0.01)
	UnknownSpreadPct  float64 // 호가 없는 종목의 중립 패널티
	PreferPositiveGap bool
	Limit             int
	RequireDepth      bool
}

// StrictOptions builds the first-pass options; depth is required only while the market is live
func StrictOptions(policy *config.Policy, live bool, limit int) Options {
	return Options{
		MinPrice:          policy.HardGates.MinPrice,
		MaxSpreadPct:      policy.Shortlist.MaxSpreadPct,
		MinGapPct:         policy.Shortlist.MinGapPct,
		UnknownSpreadPct:  policy.Shortlist.UnknownSpreadPct,
		PreferPositiveGap: policy.Shortlist.PreferPositiveGap,
		Limit:             limit,
		RequireDepth:      live,
	}
}

// Relaxed drops the depth requirement and widens the spread ceiling by factor (clamped to 1.5–3)
func (o Options) Relaxed(factor float64) Options {
	factor = math.Max(1.5, math.Min(3, factor))
	r := o
	r.RequireDepth = false
	r.MaxSpreadPct = o.MaxSpreadPct * factor
	return r
}

// Filter applies the quick gates and ranks survivors.
// Rank key = gap + 0.8·intraday − 2·spread, ties by symbol.
// ⭐ SSOT: S2 빠른 필터 로직은 여기서만
func Filter(universe []contracts.UniverseEntry, quotes map[string]contracts.Quote, opt Options) ([]contracts.ShortlistRow, map[string]int) {
	rows := make([]contracts.ShortlistRow, 0, len(universe))
	filtered := make(map[string]int) // 필터 이름 → 탈락 수

	for _, u := range universe {
		row, reason := checkConditions(u, quotes, opt)
		if reason != "" {
			filtered[reason]++
			continue
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := rankKey(rows[i], opt), rankKey(rows[j], opt)
		if ri != rj {
			return ri > rj
		}
		return rows[i].Symbol < rows[j].Symbol
	})

	limit := opt.Limit
	if limit < 1 {
		limit = 1
	}
	if len(rows) > limit {
		filtered["limit"] += len(rows) - limit
		rows = rows[:limit]
	}
	return rows, filtered
}

// checkConditions returns the row, or the name of the first failed gate
func checkConditions(u contracts.UniverseEntry, quotes map[string]contracts.Quote, opt Options) (contracts.ShortlistRow, string) {
	q, ok := quotes[u.Symbol]
	if !ok || q.OHLC == nil {
		return contracts.ShortlistRow{}, "no_quote"
	}

	// Kite OHLC close = 전일 종가
	prevClose := q.OHLC.Close
	open := q.OHLC.Open
	last := q.LastPrice
	if last <= 0 {
		last = prevClose
	}
	if !positive(last) || !positive(open) || !positive(prevClose) {
		return contracts.ShortlistRow{}, "no_quote"
	}

	var spread *float64
	if bid, ask, ok := q.BestBidAsk(); ok {
		mid := (bid + ask) / 2
		s := (ask - bid) / mid
		spread = &s
	} else if opt.RequireDepth {
		return contracts.ShortlistRow{}, "no_depth"
	}

	gap := (open - prevClose) / prevClose
	intraday := (last - open) / open

	if last < opt.MinPrice {
		return contracts.ShortlistRow{}, "min_price"
	}
	if opt.PreferPositiveGap && gap < opt.MinGapPct {
		return contracts.ShortlistRow{}, "gap"
	}
	if spread != nil && opt.MaxSpreadPct > 0 && *spread > opt.MaxSpreadPct {
		return contracts.ShortlistRow{}, "spread"
	}

	return contracts.ShortlistRow{
		Symbol:      u.Symbol,
		Name:        u.CompanyName,
		Token:       u.InstrumentToken,
		Last:        last,
		PrevClose:   prevClose,
		Open:        open,
		GapPct:      gap,
		IntradayPct: intraday,
		SpreadPct:   spread,
	}, ""
}

func rankKey(r contracts.ShortlistRow, opt Options) float64 {
	spread := opt.UnknownSpreadPct
	if r.SpreadPct != nil {
		spread = *r.SpreadPct
	}
	return r.GapPct + 0.8*r.IntradayPct - 2*spread
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
