package selection

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/pkg/config"
	"github.com/wonny/aegis-picker/pkg/logger"
)

var blendNow = time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)

func TestBlend_ThreeSymbols(t *testing.T) {
	c := tech("C", 0.55)
	atr := 0.08
	c.ATRPct = &atr

	in := Input{
		Tech: []contracts.TechScore{tech("A", 0.62), tech("B", 0.60), c},
		News: map[string]contracts.NewsCandidate{
			"A": {Symbol: "A", Score: 0.4, Hits: 1, LastSeen: blendNow},
			"B": {Symbol: "B", Score: 0.7, Hits: 3, LastSeen: blendNow},
		},
		Live: true,
		Now:  blendNow,
	}

	out := NewBlender(config.DefaultPolicy(), 5, logger.Nop()).Blend(in)

	require.Len(t, out.TopN, 2)
	assert.Equal(t, "B", out.TopN[0].Symbol)
	assert.Equal(t, "A", out.TopN[1].Symbol)
	assert.InDelta(t, 0.63, out.TopN[0].BlendedTotal, 1e-9)
	assert.InDelta(t, 0.434, out.TopN[1].BlendedTotal, 1e-9)
	assert.False(t, out.TopN[1].NewsQualified, "one hit does not qualify")
	assert.Equal(t, 0.4, out.TopN[1].NewsScore)

	require.NotNil(t, out.Pick)
	assert.Equal(t, "B", out.Pick.Symbol)
	assert.Equal(t, 2, out.Passed)

	require.Len(t, out.Rejected, 1)
	assert.Equal(t, "C", out.Rejected[0].Symbol)
	assert.Equal(t, []string{"atr%>7.0%"}, out.Rejected[0].GateReasons)
}

func TestBlend_NoPassersIsValid(t *testing.T) {
	cheap := tech("A", 0.9)
	cheap.Last = 5

	out := Blend(Input{Tech: []contracts.TechScore{cheap}, Now: blendNow}, config.DefaultPolicy(), 5)
	assert.Empty(t, out.TopN)
	assert.NotNil(t, out.TopN)
	assert.Nil(t, out.Pick)
	assert.Len(t, out.Rejected, 1)

	out = Blend(Input{Now: blendNow}, config.DefaultPolicy(), 5)
	assert.Empty(t, out.TopN)
	assert.Nil(t, out.Pick)
}

func TestBlend_TieBreaks(t *testing.T) {
	policy := config.DefaultPolicy()
	policy.Weights = config.BlendWeights{Tech: 1, News: 0}

	in := Input{
		Tech: []contracts.TechScore{tech("D", 0.5), tech("C", 0.5), tech("B", 0.5), tech("A", 0.6)},
		News: map[string]contracts.NewsCandidate{
			"B": {Score: 0.9, Hits: 5, LastSeen: blendNow},
		},
		Now: blendNow,
	}

	out := Blend(in, policy, 10)
	assert.Equal(t, []string{"A", "B", "C", "D"}, symbols(out.TopN))
}

func TestBlend_TruncatesAndDedupes(t *testing.T) {
	var ts []contracts.TechScore
	for i := 0; i < 8; i++ {
		ts = append(ts, tech(fmt.Sprintf("S%d", i), float64(i)/10))
	}
	ts = append(ts, tech("S7", 0.01))

	out := Blend(Input{Tech: ts, Now: blendNow}, config.DefaultPolicy(), 3)
	assert.Equal(t, []string{"S7", "S6", "S5"}, symbols(out.TopN))
	assert.Equal(t, 8, out.Passed)
}

func TestBlend_Deterministic(t *testing.T) {
	in := randomInput(rand.New(rand.NewSource(3)), 60)
	policy := config.DefaultPolicy()

	first, err := json.Marshal(Blend(in, policy, 5))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := json.Marshal(Blend(in, policy, 5))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}

	shuffled := in
	shuffled.Tech = append([]contracts.TechScore{}, in.Tech...)
	rand.New(rand.NewSource(9)).Shuffle(len(shuffled.Tech), func(i, j int) {
		shuffled.Tech[i], shuffled.Tech[j] = shuffled.Tech[j], shuffled.Tech[i]
	})
	reordered, err := json.Marshal(Blend(shuffled, policy, 5))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(reordered), "input order does not matter")
}

func TestBlend_RaisingScoreNeverLowersRank(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	policy := config.DefaultPolicy()

	for trial := 0; trial < 50; trial++ {
		in := randomInput(rng, 20)
		base := Blend(in, policy, len(in.Tech))

		for _, c := range base.TopN {
			target := c.Symbol
			before := rankOf(base.TopN, target)

			boosted := in
			boosted.Tech = append([]contracts.TechScore{}, in.Tech...)
			for i := range boosted.Tech {
				if boosted.Tech[i].Symbol == target {
					boosted.Tech[i].TechTotal += rng.Float64() * 0.3
				}
			}
			after := rankOf(Blend(boosted, policy, len(in.Tech)).TopN, target)
			require.LessOrEqual(t, after, before, "trial %d symbol %s", trial, target)
		}
	}
}

func TestBlend_TighterGatesNeverAddPassers(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	in := randomInput(rng, 80)

	loose := config.DefaultPolicy()
	tight := config.DefaultPolicy()
	tight.HardGates.MinPrice = 150
	tight.HardGates.MaxATRPct = 0.04
	tight.HardGates.MinTurnoverPerMin = 8_000_000

	a := Blend(in, loose, len(in.Tech))
	b := Blend(in, tight, len(in.Tech))

	assert.LessOrEqual(t, b.Passed, a.Passed)
	assert.Subset(t, symbols(a.TopN), symbols(b.TopN))
}

func randomInput(rng *rand.Rand, n int) Input {
	in := Input{News: map[string]contracts.NewsCandidate{}, Live: true, Now: blendNow}
	for i := 0; i < n; i++ {
		sym := fmt.Sprintf("NSE:R%02d", i)
		atr := rng.Float64() * 0.1
		in.Tech = append(in.Tech, contracts.TechScore{
			Symbol:    sym,
			Last:      10 + rng.Float64()*400,
			Avg1mVol:  rng.Float64() * 200_000,
			ATRPct:    &atr,
			SpreadPct: rng.Float64() * 0.005,
			TechTotal: rng.Float64(),
		})
		if rng.Float64() < 0.5 {
			in.News[sym] = contracts.NewsCandidate{
				Symbol:   sym,
				Score:    rng.Float64(),
				Hits:     rng.Intn(5),
				LastSeen: blendNow.Add(-time.Duration(rng.Intn(180)) * time.Minute),
			}
		}
	}
	return in
}

func rankOf(cands []contracts.Candidate, symbol string) int {
	for i, c := range cands {
		if c.Symbol == symbol {
			return i
		}
	}
	return len(cands)
}

func symbols(cands []contracts.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Symbol
	}
	return out
}
