package s3_technical

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/internal/external/fake"
	"github.com/wonny/aegis-picker/internal/s1_universe"
	"github.com/wonny/aegis-picker/pkg/config"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/market"
	"github.com/wonny/aegis-picker/pkg/redis"
)

var calendar = market.NewCalendar(config.MarketConfig{Timezone: "Asia/Kolkata"})

// 2026-03-02 (월) 10:15 IST, 장 시작 후 60분
var sessionOpen = time.Date(2026, 3, 2, 9, 15, 0, 0, calendar.Location())
var now = sessionOpen.Add(60 * time.Minute)

func dailySeries(n int) []contracts.Bar {
	bars := make([]contracts.Bar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = contracts.Bar{
			Time:   sessionOpen.AddDate(0, 0, i-n),
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return bars
}

func minuteSeries() []contracts.Bar {
	var bars []contracts.Bar
	price := 129.0
	for t := sessionOpen; !t.After(now); t = t.Add(time.Minute) {
		bars = append(bars, contracts.Bar{Time: t, Open: price, High: price + 0.1, Low: price - 0.1, Close: price + 0.05, Volume: 150_000})
		price += 0.05
	}
	return bars
}

func shortlistRow(symbol string, token int64) contracts.ShortlistRow {
	return contracts.ShortlistRow{Symbol: symbol, Token: token, Last: 130}
}

func newTestScorer(cache *redis.Cache, timeout time.Duration) *Scorer {
	cfg := config.PickerConfig{TechPoolSize: 5, TechTimeout: timeout}
	return NewScorer(calendar, cache, config.DefaultPolicy(), cfg, nil, logger.Nop()).
		WithClock(func() time.Time { return now })
}

func TestScorer_ScoreAll(t *testing.T) {
	m := fake.NewMarket().
		SetBars(1, contracts.GranularityDay, dailySeries(30)).
		SetBars(1, contracts.GranularityMinute, minuteSeries()).
		SetBars(2, contracts.GranularityDay, dailySeries(10)).
		FailHistory(3, errors.New("instrument suspended")).
		SetBars(4, contracts.GranularityDay, dailySeries(30)).
		DelayHistory(4, 2*time.Second).
		SetBars(5, contracts.GranularityDay, dailySeries(30)).
		SetQuote("NSE:A", contracts.Quote{
			LastPrice: 132,
			Depth: &contracts.Depth{
				Buy:  []contracts.DepthLevel{{Price: 131.9}},
				Sell: []contracts.DepthLevel{{Price: 132.1}},
			},
		})
	day := s1_universe.NewDayContext("2026-03-02", nil, m)

	rows := []contracts.ShortlistRow{
		shortlistRow("NSE:A", 1),
		shortlistRow("NSE:SHORT", 2),
		shortlistRow("NSE:ERR", 3),
		shortlistRow("NSE:SLOW", 4),
		shortlistRow("NSE:E", 5),
	}

	start := time.Now()
	scores, err := newTestScorer(nil, 100*time.Millisecond).ScoreAll(context.Background(), day, rows)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "slow symbol must not hold the run")

	require.Len(t, scores, 2)
	assert.Equal(t, "NSE:A", scores[0].Symbol)
	assert.Equal(t, "NSE:E", scores[1].Symbol)

	a := scores[0]
	assert.Equal(t, 132.0, a.Last, "refreshed quote wins over shortlist last")
	assert.InDelta(t, 0.2/132, a.SpreadPct, 1e-12)
	require.NotNil(t, a.ATRPct)
	assert.InDelta(t, 2.0/129, *a.ATRPct, 1e-12)
	assert.InDelta(t, 150_000.0, a.Avg1mVol, 1e-9)
	assert.Greater(t, a.MomScore, 0.0)

	e := scores[1]
	assert.Equal(t, 130.0, e.Last, "no quote and no minute bars fall back to shortlist last")
	assert.Zero(t, e.Avg1mVol)
}

func TestScorer_ScoreSymbolInsufficientHistory(t *testing.T) {
	m := fake.NewMarket().SetBars(2, contracts.GranularityDay, dailySeries(14))
	day := s1_universe.NewDayContext("2026-03-02", nil, m)

	_, err := newTestScorer(nil, time.Second).ScoreSymbol(context.Background(), day, shortlistRow("NSE:B", 2), contracts.Quote{})
	assert.ErrorIs(t, err, contracts.ErrInsufficientHistory)
}

func TestScorer_ScoreAllEmpty(t *testing.T) {
	day := s1_universe.NewDayContext("2026-03-02", nil, fake.NewMarket())
	scores, err := newTestScorer(nil, time.Second).ScoreAll(context.Background(), day, nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestScorer_QuoteRefreshFailureUsesShortlist(t *testing.T) {
	m := fake.NewMarket().
		SetBars(1, contracts.GranularityDay, dailySeries(30)).
		FailQuotes(errors.New("rate limited"))
	day := s1_universe.NewDayContext("2026-03-02", nil, m)

	spread := 0.002
	row := shortlistRow("NSE:A", 1)
	row.SpreadPct = &spread

	scores, err := newTestScorer(nil, time.Second).ScoreAll(context.Background(), day, []contracts.ShortlistRow{row})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 130.0, scores[0].Last)
	assert.Equal(t, 0.002, scores[0].SpreadPct)
}

func TestScorer_DailyBarCache(t *testing.T) {
	bars := dailySeries(30)
	payload, err := json.Marshal(bars)
	require.NoError(t, err)
	key := "picker:cache:" + redis.DailyBarsKey(1, "2026-03-02")

	t.Run("hit skips history fetch", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectGet(key).SetVal(string(payload))

		m := fake.NewMarket()
		day := s1_universe.NewDayContext("2026-03-02", nil, m)
		scorer := newTestScorer(redis.NewCache(redis.Wrap(db), "picker"), time.Second).
			WithClock(func() time.Time { return sessionOpen.Add(-30 * time.Minute) })

		score, err := scorer.ScoreSymbol(context.Background(), day, shortlistRow("NSE:A", 1), contracts.Quote{})
		require.NoError(t, err)
		assert.Equal(t, 0, m.HistoryCalls())
		require.NotNil(t, score.ATRPct)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss fills cache", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectGet(key).RedisNil()
		mock.ExpectSet(key, payload, redis.TTLDay).SetVal("OK")

		m := fake.NewMarket().SetBars(1, contracts.GranularityDay, bars)
		day := s1_universe.NewDayContext("2026-03-02", nil, m)
		scorer := newTestScorer(redis.NewCache(redis.Wrap(db), "picker"), time.Second).
			WithClock(func() time.Time { return sessionOpen.Add(-30 * time.Minute) })

		_, err := scorer.ScoreSymbol(context.Background(), day, shortlistRow("NSE:A", 1), contracts.Quote{})
		require.NoError(t, err)
		assert.Equal(t, 1, m.HistoryCalls())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
