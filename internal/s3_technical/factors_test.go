package s3_technical

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/aegis-picker/pkg/config"
)

func TestScore(t *testing.T) {
	atr := 0.02
	in := Inputs{
		Symbol:    "NSE:INFY",
		Token:     408065,
		Last:      100.5,
		ATRPct:    &atr,
		SpreadPct: 0.001,
		Intraday: Intraday{
			VWAP:     100,
			Avg1mVol: 100_000,
			Ret5m:    0.01,
			Ret15m:   0.02,
			Ret60m:   0.05,
		},
	}

	got := Score(in, config.DefaultPolicy().Technical)

	assert.InDelta(t, 0.021, got.MomScore, 1e-12)
	assert.InDelta(t, 0.5, got.VWAPScore, 1e-12)
	assert.InDelta(t, 0.8, got.ATRScore, 1e-12)
	assert.InDelta(t, 0.375, got.LiqScore, 1e-12)
	assert.InDelta(t, 0.55*0.021+0.25*0.375+0.10*0.5+0.10*0.8, got.TechTotal, 1e-12)
	assert.Equal(t, "NSE:INFY", got.Symbol)
	assert.Equal(t, 100_000.0, got.Avg1mVol)
}

func TestScore_Clamps(t *testing.T) {
	policy := config.DefaultPolicy().Technical
	wide := 0.2

	tests := []struct {
		name  string
		in    Inputs
		check func(t *testing.T, mom, vwap, atr, liq float64)
	}{
		{
			name: "falling prices floor momentum",
			in:   Inputs{Last: 100, Intraday: Intraday{Ret5m: -0.05, Ret15m: -0.1, Ret60m: -0.2}},
			check: func(t *testing.T, mom, _, _, _ float64) {
				assert.Zero(t, mom)
			},
		},
		{
			name: "huge rally caps momentum",
			in:   Inputs{Last: 100, Intraday: Intraday{Ret5m: 3}},
			check: func(t *testing.T, mom, _, _, _ float64) {
				assert.Equal(t, 1.0, mom)
			},
		},
		{
			name: "missing vwap and atr are neutral",
			in:   Inputs{Last: 100},
			check: func(t *testing.T, _, vwap, atr, _ float64) {
				assert.Equal(t, 1.0, vwap)
				assert.Equal(t, 1.0, atr)
			},
		},
		{
			name: "wide atr floors",
			in:   Inputs{Last: 100, ATRPct: &wide},
			check: func(t *testing.T, _, _, atr, _ float64) {
				assert.Zero(t, atr)
			},
		},
		{
			name: "spread beyond reference zeroes liquidity",
			in:   Inputs{Last: 100, SpreadPct: 0.01, Intraday: Intraday{Avg1mVol: 1e7}},
			check: func(t *testing.T, _, _, _, liq float64) {
				assert.Zero(t, liq)
			},
		},
		{
			name: "volume above target caps liquidity",
			in:   Inputs{Last: 100, Intraday: Intraday{Avg1mVol: 1e7}},
			check: func(t *testing.T, _, _, _, liq float64) {
				assert.Equal(t, 1.0, liq)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.in, policy)
			tt.check(t, got.MomScore, got.VWAPScore, got.ATRScore, got.LiqScore)
			assert.GreaterOrEqual(t, got.TechTotal, 0.0)
			assert.LessOrEqual(t, got.TechTotal, 1.0)
		})
	}
}
