package fake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-picker/internal/contracts"
)

func TestMarket_QuoteBatch(t *testing.T) {
	m := NewMarket().
		SetQuote("NSE:A", contracts.Quote{LastPrice: 100}).
		SetQuote("NSE:B", contracts.Quote{LastPrice: 200})

	got, err := m.QuoteBatch(context.Background(), []string{"NSE:A", "NSE:Z"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 100.0, got["NSE:A"].LastPrice)
	assert.Equal(t, 1, m.QuoteCalls())

	boom := errors.New("boom")
	m.FailQuotes(boom)
	_, err = m.QuoteBatch(context.Background(), []string{"NSE:A"})
	assert.ErrorIs(t, err, boom)
}

func TestMarket_HistoricalRange(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)
	bars := []contracts.Bar{
		{Time: base, Close: 1},
		{Time: base.Add(time.Minute), Close: 2},
		{Time: base.Add(2 * time.Minute), Close: 3},
	}
	m := NewMarket().SetBars(7, contracts.GranularityMinute, bars)

	got, err := m.Historical(context.Background(), 7, base.Add(time.Minute), base.Add(5*time.Minute), contracts.GranularityMinute)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0].Close)

	got, err = m.Historical(context.Background(), 7, base, base, contracts.GranularityDay)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 2, m.HistoryCalls())
}

func TestMarket_HistoricalDelayHonoursContext(t *testing.T) {
	m := NewMarket().DelayHistory(1, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.Historical(ctx, 1, time.Time{}, time.Now(), contracts.GranularityDay)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerate_Deterministic(t *testing.T) {
	open := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)
	now := open.Add(45 * time.Minute)
	universe := []contracts.UniverseEntry{
		{Symbol: "NSE:INFY", InstrumentToken: 1},
		{Symbol: "NSE:TCS", InstrumentToken: 2},
	}

	a := Generate(universe, open, now, 42)
	b := Generate(universe, open, now, 42)

	qa, err := a.QuoteBatch(context.Background(), []string{"NSE:INFY", "NSE:TCS"})
	require.NoError(t, err)
	qb, err := b.QuoteBatch(context.Background(), []string{"NSE:INFY", "NSE:TCS"})
	require.NoError(t, err)
	assert.Equal(t, qa, qb)

	for _, q := range qa {
		bid, ask, ok := q.BestBidAsk()
		require.True(t, ok)
		assert.Less(t, bid, ask)
		require.NotNil(t, q.OHLC)
		assert.Greater(t, q.OHLC.Close, 0.0)
	}

	daily, err := a.Historical(context.Background(), 1, open.AddDate(0, 0, -200), now, contracts.GranularityDay)
	require.NoError(t, err)
	assert.Len(t, daily, 120)

	minute, err := a.Historical(context.Background(), 1, open, now, contracts.GranularityMinute)
	require.NoError(t, err)
	assert.Len(t, minute, 46)
}
