package s2_shortlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/internal/external/fake"
	"github.com/wonny/aegis-picker/internal/s1_universe"
	"github.com/wonny/aegis-picker/pkg/config"
	"github.com/wonny/aegis-picker/pkg/logger"
)

type memStore struct {
	saved map[string]*Result
	err   error
}

func newMemStore() *memStore { return &memStore{saved: map[string]*Result{}} }

func (s *memStore) Save(_ context.Context, r *Result) error {
	if s.err != nil {
		return s.err
	}
	s.saved[r.DateKey] = r
	return nil
}

func (s *memStore) Load(_ context.Context, dateKey string) (*Result, error) {
	return s.saved[dateKey], nil
}

var builtAt = time.Date(2026, 3, 2, 8, 45, 0, 0, time.UTC)

func testConfig() config.PickerConfig {
	return config.PickerConfig{
		ShortlistLimitLive: 80,
		ShortlistLimitOff:  120,
		QuoteBatchSize:     200,
		RelaxFactor:        2,
	}
}

func newTestShortlister(store Store) *Shortlister {
	return NewShortlister(store, config.DefaultPolicy(), testConfig(), nil, logger.Nop()).
		WithClock(func() time.Time { return builtAt })
}

// 장 시작 전: 호가 없이 전일 종가/시가만 있는 상태
func TestShortlister_RelaxedRetryPreMarket(t *testing.T) {
	universe := entries("NSE:A", "NSE:B", "NSE:C")
	market := fake.NewMarket().
		SetQuote("NSE:A", quote(100, 101, 101, 0, 0)).
		SetQuote("NSE:B", quote(250, 252, 252, 0, 0)).
		SetQuote("NSE:C", quote(10, 10, 10, 0, 0))
	day := s1_universe.NewDayContext("2026-03-02", universe, market)

	strict, filtered := Filter(universe, mustQuotes(t, market, day.Symbols()), defaultOptions(true, 80))
	require.Empty(t, strict)
	assert.Equal(t, 3, filtered["no_depth"])

	store := newMemStore()
	res, err := newTestShortlister(store).Run(context.Background(), day, true)
	require.NoError(t, err)

	assert.True(t, res.Relaxed)
	assert.True(t, res.Live)
	assert.Equal(t, []string{"NSE:A", "NSE:B"}, res.Symbols())
	assert.Equal(t, 1, res.Filtered["min_price"])
	assert.Equal(t, 3, res.Universe)
	assert.Equal(t, builtAt, res.BuiltAt)
	assert.Same(t, res, store.saved["2026-03-02"])
}

func TestShortlister_StrictPassNoRetry(t *testing.T) {
	universe := entries("NSE:A", "NSE:B")
	market := fake.NewMarket().
		SetQuote("NSE:A", quote(100, 101, 102, 101.95, 102.05)).
		SetQuote("NSE:B", quote(100, 101, 102, 0, 0))
	day := s1_universe.NewDayContext("2026-03-02", universe, market)

	res, err := newTestShortlister(nil).Run(context.Background(), day, true)
	require.NoError(t, err)
	assert.False(t, res.Relaxed)
	assert.Equal(t, []string{"NSE:A"}, res.Symbols())
	assert.Equal(t, 1, res.Filtered["no_depth"])
}

func TestShortlister_OffHoursNeverRelaxes(t *testing.T) {
	universe := entries("NSE:C")
	market := fake.NewMarket().SetQuote("NSE:C", quote(10, 10, 10, 0, 0))
	day := s1_universe.NewDayContext("2026-03-02", universe, market)

	res, err := newTestShortlister(nil).Run(context.Background(), day, false)
	require.NoError(t, err)
	assert.False(t, res.Relaxed)
	assert.Empty(t, res.Rows)
}

func TestShortlister_QuoteFailure(t *testing.T) {
	universe := entries("NSE:A")
	market := fake.NewMarket().FailQuotes(errors.New("token expired"))
	day := s1_universe.NewDayContext("2026-03-02", universe, market)

	_, err := newTestShortlister(nil).Run(context.Background(), day, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch quotes")
}

func TestShortlister_SaveFailureIsNotFatal(t *testing.T) {
	universe := entries("NSE:A")
	market := fake.NewMarket().SetQuote("NSE:A", quote(100, 101, 102, 101.95, 102.05))
	day := s1_universe.NewDayContext("2026-03-02", universe, market)

	store := newMemStore()
	store.err = errors.New("db down")

	res, err := newTestShortlister(store).Run(context.Background(), day, true)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
}

func TestShortlister_Today(t *testing.T) {
	s := newTestShortlister(nil)
	got, err := s.Today(context.Background(), "2026-03-02")
	require.NoError(t, err)
	assert.Nil(t, got)

	store := newMemStore()
	store.saved["2026-03-02"] = &Result{DateKey: "2026-03-02"}
	got, err = newTestShortlister(store).Today(context.Background(), "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", got.DateKey)
}

func mustQuotes(t *testing.T, m contracts.MarketData, symbols []string) map[string]contracts.Quote {
	t.Helper()
	q, err := m.QuoteBatch(context.Background(), symbols)
	require.NoError(t, err)
	return q
}
