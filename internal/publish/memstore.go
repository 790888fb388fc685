package publish

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/aegis-picker/internal/contracts"
)

// MemoryStore keeps runs, lists and the merge set in memory (dry runs and tests).
// Each call is atomic under one mutex, matching the conditional upsert of Repository.
type MemoryStore struct {
	mu       sync.Mutex
	runs     []contracts.PickRun
	lists    map[string]contracts.PublishedList
	mergeSet []string // nil = 문서 없음
}

// NewMemoryStore creates an empty store without a merge set
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lists: make(map[string]contracts.PublishedList)}
}

// SaveRun implements contracts.RunStore
func (m *MemoryStore) SaveRun(_ context.Context, run *contracts.PickRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *run)
	return nil
}

// LatestRun implements contracts.RunStore
func (m *MemoryStore) LatestRun(_ context.Context, dateKey string) (*contracts.PickRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *contracts.PickRun
	for i := range m.runs {
		r := &m.runs[i]
		if dateKey != "" && r.DateKey != dateKey {
			continue
		}
		if latest == nil || !r.Timestamp.Before(latest.Timestamp) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

// RunsSince implements contracts.RunStore
func (m *MemoryStore) RunsSince(_ context.Context, since time.Time) ([]contracts.PickRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []contracts.PickRun
	for _, r := range m.runs {
		if !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Runs returns every stored run in insertion order
func (m *MemoryStore) Runs() []contracts.PickRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]contracts.PickRun(nil), m.runs...)
}

// PublishLocked implements contracts.PublishStore
func (m *MemoryStore) PublishLocked(_ context.Context, list contracts.PublishedList, now time.Time, force bool) (*contracts.PublishedList, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := list.Key()
	if existing, ok := m.lists[key]; ok && !force && existing.Locked(now) {
		return &existing, false, nil
	}

	list.CreatedAt = now
	list.Symbols = append([]string{}, list.Symbols...)
	m.lists[key] = list
	stored := list
	return &stored, true, nil
}

// Get implements contracts.PublishStore
func (m *MemoryStore) Get(_ context.Context, dateKey, source string) (*contracts.PublishedList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.lists[contracts.PublishKey(dateKey, source)]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

// InitMergeSet creates the merge set if missing
func (m *MemoryStore) InitMergeSet(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mergeSet != nil {
		return false, nil
	}
	m.mergeSet = []string{}
	return true, nil
}

// MergeSet returns the merge set symbols
func (m *MemoryStore) MergeSet(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mergeSet == nil {
		return nil, contracts.ErrMergeSetMissing
	}
	return append([]string{}, m.mergeSet...), nil
}

// Union implements contracts.MergeSetStore
func (m *MemoryStore) Union(_ context.Context, symbols []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mergeSet == nil {
		return 0, contracts.ErrMergeSetMissing
	}
	merged, added := unionSymbols(m.mergeSet, symbols)
	m.mergeSet = merged
	return added, nil
}
