package s3_technical

import (
	"math"

	"github.com/wonny/aegis-picker/internal/contracts"
)

// ATR returns the mean of the last period true ranges of daily bars (oldest first)
func ATR(daily []contracts.Bar, period int) (float64, bool) {
	if len(daily) < 2 || period <= 0 {
		return 0, false
	}

	start := len(daily) - period
	if start < 1 {
		start = 1
	}

	var sum float64
	n := 0
	for i := start; i < len(daily); i++ {
		h, l, prev := daily[i].High, daily[i].Low, daily[i-1].Close
		tr := math.Max(h-l, math.Max(math.Abs(h-prev), math.Abs(l-prev)))
		sum += tr
		n++
	}
	return sum / float64(n), true
}

// Intraday holds the minute-bar statistics since session open
type Intraday struct {
	VWAP      float64 // 0 = 거래량 없음
	Avg1mVol  float64
	Ret5m     float64
	Ret15m    float64
	Ret60m    float64
	FirstOpen float64
	LastClose float64
	Bars      int
}

// ComputeIntraday derives VWAP, average one-minute volume and trailing returns from minute bars.
// Typical price (h+l+c)/3 weights the VWAP; a window longer than the session starts at the first bar.
func ComputeIntraday(bars []contracts.Bar) Intraday {
	n := len(bars)
	if n == 0 {
		return Intraday{}
	}

	var pv, v float64
	for _, b := range bars {
		typical := (b.High + b.Low + b.Close) / 3
		pv += typical * float64(b.Volume)
		v += float64(b.Volume)
	}

	out := Intraday{
		Avg1mVol:  v / float64(n),
		FirstOpen: bars[0].Open,
		LastClose: bars[n-1].Close,
		Bars:      n,
	}
	if v > 0 {
		out.VWAP = pv / v
	}
	out.Ret5m = trailingReturn(bars, 5)
	out.Ret15m = trailingReturn(bars, 15)
	out.Ret60m = trailingReturn(bars, 60)
	return out
}

func trailingReturn(bars []contracts.Bar, window int) float64 {
	n := len(bars)
	idx := n - window
	if idx < 0 {
		idx = 0
	}
	base := bars[idx].Close
	if base <= 0 {
		return 0
	}
	return (bars[n-1].Close - base) / base
}

// clamp01 clamps x to [0, 1]; NaN becomes 0
func clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
