package s4_news

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/aegis-picker/internal/contracts"
)

// MemoryEvents is an in-memory contracts.NewsEventStore (dry runs and tests)
type MemoryEvents struct {
	mu     sync.Mutex
	events map[string]contracts.NewsEvent
	err    error
}

// NewMemoryEvents creates a store seeded with events
func NewMemoryEvents(events ...contracts.NewsEvent) *MemoryEvents {
	m := &MemoryEvents{events: make(map[string]contracts.NewsEvent)}
	for _, e := range events {
		m.events[e.ID] = e
	}
	return m
}

// Fail makes every later read and write return err
func (m *MemoryEvents) Fail(err error) *MemoryEvents {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// SaveEvents implements contracts.NewsEventStore
func (m *MemoryEvents) SaveEvents(_ context.Context, events []contracts.NewsEvent) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	n := 0
	for _, e := range events {
		if _, ok := m.events[e.ID]; ok {
			continue
		}
		m.events[e.ID] = e
		n++
	}
	return n, nil
}

// EventsSince implements contracts.NewsEventStore; output is ordered by ID
func (m *MemoryEvents) EventsSince(_ context.Context, since time.Time, symbols []string) ([]contracts.NewsEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}
	var out []contracts.NewsEvent
	for _, e := range m.events {
		if e.Timestamp.Before(since) {
			continue
		}
		if len(want) > 0 && !want[e.Symbol] {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteBefore implements contracts.NewsEventStore
func (m *MemoryEvents) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for id, e := range m.events {
		if e.Timestamp.Before(before) {
			delete(m.events, id)
			n++
		}
	}
	return n, nil
}
