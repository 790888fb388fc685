package contracts

import (
	"context"
	"time"
)

// MarketData provides live quotes and historical bars
// ⭐ SSOT: 시세 조회 인터페이스 (구현: internal/external/kite)
type MarketData interface {
	QuoteBatch(ctx context.Context, symbols []string) (map[string]Quote, error)
	Historical(ctx context.Context, token int64, from, to time.Time, granularity Granularity) ([]Bar, error)
}

// UniverseSource provides the tradable universe for a date key (S1)
type UniverseSource interface {
	Universe(ctx context.Context, dateKey string) ([]UniverseEntry, error)
}

// FeedFetcher pulls articles from one news feed URL
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]FeedItem, error)
}

// CatalystModel classifies a headline with a language model
type CatalystModel interface {
	Classify(ctx context.Context, title, body string) (CatalystTag, error)
}

// RunStore persists PickRun records (append-only)
// ⭐ SSOT: S6 실행 기록 저장소
type RunStore interface {
	SaveRun(ctx context.Context, run *PickRun) error
	// LatestRun returns nil, nil when no run exists (dateKey "" = any day)
	LatestRun(ctx context.Context, dateKey string) (*PickRun, error)
	RunsSince(ctx context.Context, since time.Time) ([]PickRun, error)
}

// PublishStore persists published lists
type PublishStore interface {
	// PublishLocked writes list unless the stored row holds a live lock at now (force overrides).
	// It returns the authoritative stored row and whether the write was applied.
	PublishLocked(ctx context.Context, list PublishedList, now time.Time, force bool) (*PublishedList, bool, error)
	// Get returns nil, nil when no list exists
	Get(ctx context.Context, dateKey, source string) (*PublishedList, error)
}

// MergeSetStore unions symbols into the single long-lived merge set
type MergeSetStore interface {
	// Union returns ErrMergeSetMissing when the set document does not exist
	Union(ctx context.Context, symbols []string) (added int, err error)
}

// NewsEventStore persists mapped news events
type NewsEventStore interface {
	// SaveEvents is idempotent by event ID and returns the number of new rows
	SaveEvents(ctx context.Context, events []NewsEvent) (int, error)
	EventsSince(ctx context.Context, since time.Time, symbols []string) ([]NewsEvent, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// InstrumentSource provides the broker instrument master
type InstrumentSource interface {
	Instruments(ctx context.Context) ([]Instrument, error)
}
