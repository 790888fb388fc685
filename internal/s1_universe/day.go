package s1_universe

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/pkg/logger"
)

// DayContext is everything a picker invocation needs about one trading day.
// Immutable once built; replaced as a whole when the date key rolls over.
type DayContext struct {
	DateKey  string
	Universe []contracts.UniverseEntry
	Aliases  *AliasIndex
	Market   contracts.MarketData

	bySymbol map[string]contracts.UniverseEntry
}

// NewDayContext indexes a universe for dateKey
func NewDayContext(dateKey string, universe []contracts.UniverseEntry, market contracts.MarketData) *DayContext {
	by := make(map[string]contracts.UniverseEntry, len(universe))
	for _, u := range universe {
		by[u.Symbol] = u
	}
	return &DayContext{
		DateKey:  dateKey,
		Universe: universe,
		Aliases:  NewAliasIndex(universe),
		Market:   market,
		bySymbol: by,
	}
}

// Entry looks up a universe entry by symbol
func (d *DayContext) Entry(symbol string) (contracts.UniverseEntry, bool) {
	u, ok := d.bySymbol[symbol]
	return u, ok
}

// Sector returns the sector of symbol ("" when unknown)
func (d *DayContext) Sector(symbol string) string {
	return d.bySymbol[symbol].Sector
}

// Symbols returns the universe symbols in universe order
func (d *DayContext) Symbols() []string {
	out := make([]string, len(d.Universe))
	for i, u := range d.Universe {
		out[i] = u.Symbol
	}
	return out
}

// SnapshotStore persists the universe per date key
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context, dateKey string) ([]contracts.UniverseEntry, error)
	SaveSnapshot(ctx context.Context, dateKey string, universe []contracts.UniverseEntry) error
}

// Manager hands out the DayContext for a date key, building it at most once per day
// ⭐ SSOT: 날짜 키가 바뀌면 컨텍스트 전체를 교체
type Manager struct {
	source contracts.UniverseSource
	store  SnapshotStore // optional
	market contracts.MarketData
	logger *logger.Logger

	mu      sync.Mutex
	current *DayContext
}

// NewManager creates a Manager; store may be nil
func NewManager(source contracts.UniverseSource, store SnapshotStore, market contracts.MarketData, log *logger.Logger) *Manager {
	return &Manager{
		source: source,
		store:  store,
		market: market,
		logger: log.WithModule("s1_universe"),
	}
}

// ForDate returns the context for dateKey, loading the saved snapshot first and
// falling back to the universe source. An empty universe yields ErrNoUniverse.
func (m *Manager) ForDate(ctx context.Context, dateKey string) (*DayContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.DateKey == dateKey {
		return m.current, nil
	}

	universe, fromSnapshot, err := m.load(ctx, dateKey)
	if err != nil {
		return nil, err
	}
	if len(universe) == 0 {
		return nil, fmt.Errorf("universe for %s: %w", dateKey, contracts.ErrNoUniverse)
	}

	// 스냅샷 재로딩과 동일한 순서를 보장
	sort.SliceStable(universe, func(i, j int) bool { return universe[i].Symbol < universe[j].Symbol })

	day := NewDayContext(dateKey, universe, m.market)
	m.current = day

	m.logger.WithFields(map[string]interface{}{
		"date_key":      dateKey,
		"universe_size": len(universe),
		"aliases":       day.Aliases.Len(),
		"from_snapshot": fromSnapshot,
	}).Info("day context ready")

	return day, nil
}

func (m *Manager) load(ctx context.Context, dateKey string) ([]contracts.UniverseEntry, bool, error) {
	if m.store != nil {
		saved, err := m.store.LoadSnapshot(ctx, dateKey)
		if err != nil {
			m.logger.WithError(err).Warn("universe snapshot unavailable, using source")
		} else if len(saved) > 0 {
			return saved, true, nil
		}
	}

	universe, err := m.source.Universe(ctx, dateKey)
	if err != nil {
		return nil, false, fmt.Errorf("fetch universe: %w", err)
	}

	if m.store != nil && len(universe) > 0 {
		if err := m.store.SaveSnapshot(ctx, dateKey, universe); err != nil {
			m.logger.WithError(err).Warn("failed to save universe snapshot")
		}
	}
	return universe, false, nil
}

// Current returns the last built context (nil before the first ForDate)
func (m *Manager) Current() *DayContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
