package s3_technical

import (
	"math"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/pkg/config"
)

// Factor weights of techTotal
// ⭐ SSOT: 기술 점수 가중치
const (
	WeightMomentum  = 0.55
	WeightLiquidity = 0.25
	WeightVWAP      = 0.10
	WeightATR       = 0.10
)

const (
	vwapBand   = 0.01 // |last−vwap|/vwap 1%에서 0점
	atrFloor   = 0.01
	atrRange   = 0.05
	defaultLiq = 200_000
	defaultSpr = 0.004
)

// Inputs are the raw observations for one symbol
type Inputs struct {
	Symbol    string
	Token     int64
	Last      float64
	ATRPct    *float64
	SpreadPct float64
	Intraday  Intraday
}

// Score turns raw observations into the factor breakdown.
// Pure: identical inputs always give identical scores.
func Score(in Inputs, policy config.TechnicalPolicy) contracts.TechScore {
	target := policy.LiquidityTarget
	if target <= 0 {
		target = defaultLiq
	}
	spreadRef := policy.SpreadRef
	if spreadRef <= 0 {
		spreadRef = defaultSpr
	}

	id := in.Intraday
	mom := clamp01(0.5*id.Ret5m + 0.3*id.Ret15m + 0.2*id.Ret60m)

	vwapScore := 1.0
	if id.VWAP > 0 {
		vwapScore = 1 - clamp01(math.Abs(in.Last-id.VWAP)/id.VWAP/vwapBand)
	}

	atrScore := 1.0
	if in.ATRPct != nil {
		atrScore = 1 - clamp01((*in.ATRPct-atrFloor)/atrRange)
	}

	liq := clamp01(math.Min(id.Avg1mVol/target, 1) * (1 - in.SpreadPct/spreadRef))

	total := WeightMomentum*mom + WeightLiquidity*liq + WeightVWAP*vwapScore + WeightATR*atrScore

	return contracts.TechScore{
		Symbol:    in.Symbol,
		Token:     in.Token,
		Last:      in.Last,
		Avg1mVol:  id.Avg1mVol,
		ATRPct:    in.ATRPct,
		SpreadPct: in.SpreadPct,
		VWAP:      id.VWAP,
		Ret5m:     id.Ret5m,
		Ret15m:    id.Ret15m,
		Ret60m:    id.Ret60m,
		MomScore:  mom,
		VWAPScore: vwapScore,
		ATRScore:  atrScore,
		LiqScore:  liq,
		TechTotal: total,
	}
}
