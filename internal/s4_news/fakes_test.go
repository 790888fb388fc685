package s4_news

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/aegis-picker/internal/contracts"
)

type memEvents = MemoryEvents

func newMemEvents(events ...contracts.NewsEvent) *memEvents {
	return NewMemoryEvents(events...)
}

type memRuns struct {
	runs []contracts.PickRun
}

func (m *memRuns) SaveRun(_ context.Context, run *contracts.PickRun) error {
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memRuns) LatestRun(context.Context, string) (*contracts.PickRun, error) {
	if len(m.runs) == 0 {
		return nil, nil
	}
	r := m.runs[len(m.runs)-1]
	return &r, nil
}

func (m *memRuns) RunsSince(_ context.Context, since time.Time) ([]contracts.PickRun, error) {
	var out []contracts.PickRun
	for _, r := range m.runs {
		if !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

type stubModel struct {
	tag   contracts.CatalystTag
	err   error
	block bool
	calls int
	mu    sync.Mutex
}

func (s *stubModel) Classify(ctx context.Context, _, _ string) (contracts.CatalystTag, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return contracts.CatalystTag{}, ctx.Err()
	}
	return s.tag, s.err
}

func event(id, symbol, title, host string, ts time.Time) contracts.NewsEvent {
	return contracts.NewsEvent{
		ID:         id + ":" + symbol,
		ArticleID:  id,
		Symbol:     symbol,
		Title:      title,
		URL:        "https://" + host + "/" + id,
		SourceHost: host,
		Timestamp:  ts,
	}
}
