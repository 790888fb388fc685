// Package fake provides an in-memory MarketData for tests and dry runs.
package fake

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/wonny/aegis-picker/internal/contracts"
)

type barKey struct {
	token       int64
	granularity contracts.Granularity
}

// Market is a programmable contracts.MarketData
type Market struct {
	mu         sync.Mutex
	quotes     map[string]contracts.Quote
	bars       map[barKey][]contracts.Bar
	quoteErr   error
	histErr    map[int64]error
	histDelay  map[int64]time.Duration
	quoteCalls int
	histCalls  int
}

// NewMarket creates an empty market
func NewMarket() *Market {
	return &Market{
		quotes:    make(map[string]contracts.Quote),
		bars:      make(map[barKey][]contracts.Bar),
		histErr:   make(map[int64]error),
		histDelay: make(map[int64]time.Duration),
	}
}

// SetQuote sets the live quote of symbol
func (m *Market) SetQuote(symbol string, q contracts.Quote) *Market {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[symbol] = q
	return m
}

// SetBars sets the bar series of token at granularity
func (m *Market) SetBars(token int64, g contracts.Granularity, bars []contracts.Bar) *Market {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[barKey{token, g}] = bars
	return m
}

// FailQuotes makes every QuoteBatch call return err
func (m *Market) FailQuotes(err error) *Market {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quoteErr = err
	return m
}

// FailHistory makes Historical for token return err
func (m *Market) FailHistory(token int64, err error) *Market {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histErr[token] = err
	return m
}

// DelayHistory makes Historical for token wait d (or until ctx is done)
func (m *Market) DelayHistory(token int64, d time.Duration) *Market {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histDelay[token] = d
	return m
}

// QuoteCalls returns the number of QuoteBatch calls
func (m *Market) QuoteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quoteCalls
}

// HistoryCalls returns the number of Historical calls
func (m *Market) HistoryCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.histCalls
}

// QuoteBatch implements contracts.MarketData
func (m *Market) QuoteBatch(ctx context.Context, symbols []string) (map[string]contracts.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quoteCalls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.quoteErr != nil {
		return nil, m.quoteErr
	}

	out := make(map[string]contracts.Quote, len(symbols))
	for _, s := range symbols {
		if q, ok := m.quotes[s]; ok {
			out[s] = q
		}
	}
	return out, nil
}

// Historical implements contracts.MarketData; bars are filtered to [from, to]
func (m *Market) Historical(ctx context.Context, token int64, from, to time.Time, g contracts.Granularity) ([]contracts.Bar, error) {
	m.mu.Lock()
	m.histCalls++
	delay := m.histDelay[token]
	err := m.histErr[token]
	series := m.bars[barKey{token, g}]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	var out []contracts.Bar
	for _, b := range series {
		if b.Time.Before(from) || b.Time.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// Generate fills a market with a deterministic random walk for every entry:
// 120 daily bars ending the day before now, minute bars from sessionOpen to now,
// and a quote with one depth level on each side.
func Generate(universe []contracts.UniverseEntry, sessionOpen, now time.Time, seed int64) *Market {
	m := NewMarket()
	for _, u := range universe {
		h := fnv.New64a()
		_, _ = h.Write([]byte(u.Symbol))
		rng := rand.New(rand.NewSource(seed ^ int64(h.Sum64())))

		price := 50 + rng.Float64()*2000
		var daily []contracts.Bar
		for d := 120; d >= 1; d-- {
			open := price
			price *= 1 + (rng.Float64()-0.5)*0.04
			high := maxf(open, price) * (1 + rng.Float64()*0.01)
			low := minf(open, price) * (1 - rng.Float64()*0.01)
			daily = append(daily, contracts.Bar{
				Time:   sessionOpen.AddDate(0, 0, -d),
				Open:   open,
				High:   high,
				Low:    low,
				Close:  price,
				Volume: int64(1e5 + rng.Float64()*5e6),
			})
		}
		prevClose := price

		open := prevClose * (1 + (rng.Float64()-0.45)*0.02)
		price = open
		var minute []contracts.Bar
		for t := sessionOpen; !t.After(now); t = t.Add(time.Minute) {
			o := price
			price *= 1 + (rng.Float64()-0.5)*0.002
			minute = append(minute, contracts.Bar{
				Time:   t,
				Open:   o,
				High:   maxf(o, price),
				Low:    minf(o, price),
				Close:  price,
				Volume: int64(1e3 + rng.Float64()*3e5),
			})
		}

		last := price
		half := last * (0.0002 + rng.Float64()*0.002)
		m.SetQuote(u.Symbol, contracts.Quote{
			InstrumentToken: u.InstrumentToken,
			LastPrice:       last,
			OHLC:            &contracts.OHLC{Open: open, High: maxf(open, last), Low: minf(open, last), Close: prevClose},
			Depth: &contracts.Depth{
				Buy:  []contracts.DepthLevel{{Price: last - half, Quantity: 100, Orders: 3}},
				Sell: []contracts.DepthLevel{{Price: last + half, Quantity: 100, Orders: 2}},
			},
		})
		m.SetBars(u.InstrumentToken, contracts.GranularityDay, daily)
		m.SetBars(u.InstrumentToken, contracts.GranularityMinute, minute)
	}
	return m
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
