package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/metrics"
)

const (
	// DefaultLockFor is the publish lock window of a non-empty list
	DefaultLockFor = 20 * time.Minute
	// DefaultMaxCount clamps the published list
	DefaultMaxCount = 10
)

// PublishRequest is one publish attempt
type PublishRequest struct {
	DateKey   string
	Source    string
	Symbols   []string
	Force     bool
	LockFor   time.Duration // 0 = DefaultLockFor
	PickRunID string
	Meta      map[string]interface{}
}

// Publisher writes the day's list under the (dateKey, source) lock and unions it into the merge set
// ⭐ SSOT: 멱등 발행은 여기서만
type Publisher struct {
	store    contracts.PublishStore
	merge    contracts.MergeSetStore // nil = 병합 생략
	maxCount int
	metrics  *metrics.Registry
	logger   *logger.Logger
	now      func() time.Time
}

// NewPublisher creates a publisher; merge may be nil
func NewPublisher(store contracts.PublishStore, merge contracts.MergeSetStore, maxCount int, m *metrics.Registry, log *logger.Logger) *Publisher {
	if maxCount <= 0 {
		maxCount = DefaultMaxCount
	}
	return &Publisher{
		store:    store,
		merge:    merge,
		maxCount: maxCount,
		metrics:  m,
		logger:   log.WithModule("publisher"),
		now:      time.Now,
	}
}

// WithClock overrides the time source (tests)
func (p *Publisher) WithClock(now func() time.Time) *Publisher {
	p.now = now
	return p
}

// Publish writes req. A non-empty list takes the lock for LockFor; an empty list is written
// without one. A live lock suppresses the write (unless Force) and returns the stored list
// with Locked=true; that is not an error.
func (p *Publisher) Publish(ctx context.Context, req PublishRequest) (*contracts.PublishResult, error) {
	now := p.now()
	symbols := NormalizeSymbols(req.Symbols, p.maxCount)

	lockFor := req.LockFor
	if lockFor <= 0 {
		lockFor = DefaultLockFor
	}

	list := contracts.PublishedList{
		DateKey:   req.DateKey,
		Source:    req.Source,
		Symbols:   symbols,
		CreatedAt: now,
		PickRunID: req.PickRunID,
		Meta:      req.Meta,
	}
	// 빈 목록은 잠그지 않음: 다음 시도가 바로 재시도 가능
	if len(symbols) > 0 {
		until := now.Add(lockFor)
		list.LockUntil = &until
	}

	stored, applied, err := p.store.PublishLocked(ctx, list, now, req.Force)
	if err != nil {
		p.metrics.CountPublish(req.Source, "error")
		return nil, fmt.Errorf("publish %s: %w", list.Key(), err)
	}

	if !applied {
		p.metrics.CountPublish(req.Source, "locked")
		res := &contracts.PublishResult{
			Key:    list.Key(),
			Locked: true,
			Note:   "existing list still locked; not overwritten",
		}
		if stored != nil {
			res.Symbols = stored.Symbols
			res.LockUntil = stored.LockUntil
			res.Count = len(stored.Symbols)
		}
		p.logger.WithFields(map[string]interface{}{
			"key":        res.Key,
			"lock_until": res.LockUntil,
		}).Info("Publish suppressed by live lock")
		return res, nil
	}

	res := &contracts.PublishResult{
		Key:       list.Key(),
		Symbols:   stored.Symbols,
		LockUntil: stored.LockUntil,
		Count:     len(stored.Symbols),
	}
	if res.Count == 0 {
		p.metrics.CountPublish(req.Source, "empty")
		p.logger.WithField("key", res.Key).Warn("Published empty list without lock")
		return res, nil
	}

	p.metrics.CountPublish(req.Source, "published")
	res.MergedIntoSet = p.mergeInto(ctx, res.Symbols)

	p.logger.WithFields(map[string]interface{}{
		"key":     res.Key,
		"symbols": res.Symbols,
		"merged":  res.MergedIntoSet,
		"forced":  req.Force,
	}).Info("Published list")
	return res, nil
}

// mergeInto unions symbols into the merge set; failures are logged, never fatal
func (p *Publisher) mergeInto(ctx context.Context, symbols []string) bool {
	if p.merge == nil {
		return false
	}
	added, err := p.merge.Union(ctx, symbols)
	if errors.Is(err, contracts.ErrMergeSetMissing) {
		p.logger.Warn("Merge set document missing; create it once with: picker migrate --init-merge-set")
		return false
	}
	if err != nil {
		p.logger.WithError(err).Warn("Merge set union failed")
		return false
	}
	p.logger.WithField("added", added).Debug("Merge set updated")
	return true
}

// NormalizeSymbols trims, uppercases and dedupes symbols keeping order, then clamps to max
func NormalizeSymbols(symbols []string, max int) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
