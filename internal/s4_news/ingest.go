package s4_news

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/internal/pool"
	"github.com/wonny/aegis-picker/internal/s1_universe"
	"github.com/wonny/aegis-picker/pkg/config"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/metrics"
)

// FeedStatus is the outcome of one feed fetch
type FeedStatus struct {
	URL   string `json:"url"`
	OK    bool   `json:"ok"`
	Items int    `json:"items"`
	Error string `json:"error,omitempty"`
}

// RefreshResult summarizes one ingestion pass
type RefreshResult struct {
	Feeds    []FeedStatus `json:"feeds"`
	Articles int          `json:"articles"`
	Mapped   int          `json:"mapped"`
	Saved    int          `json:"saved"`
	Duration string       `json:"duration"`
}

// Ingestor pulls feeds, maps articles to symbols and stores the events
type Ingestor struct {
	fetcher      contracts.FeedFetcher
	store        contracts.NewsEventStore
	cfg          config.NewsConfig
	mapThreshold float64
	metrics      *metrics.Registry
	logger       *logger.Logger
}

// NewIngestor creates a news ingestor
func NewIngestor(fetcher contracts.FeedFetcher, store contracts.NewsEventStore, cfg config.NewsConfig, mapThreshold float64, m *metrics.Registry, log *logger.Logger) *Ingestor {
	return &Ingestor{
		fetcher:      fetcher,
		store:        store,
		cfg:          cfg,
		mapThreshold: mapThreshold,
		metrics:      m,
		logger:       log.WithModule("s4_news"),
	}
}

// ArticleID is the content hash of an article (url, or title when url is empty)
func ArticleID(item contracts.FeedItem) string {
	key := item.URL
	if key == "" {
		key = item.Title
	}
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// RefreshOnce runs one fetch → map → store pass against the day's aliases.
// Feed and article failures are logged and skipped; a store failure is returned.
func (i *Ingestor) RefreshOnce(ctx context.Context, aliases *s1_universe.AliasIndex) (*RefreshResult, error) {
	start := time.Now()
	result := &RefreshResult{}

	// 1. 모든 피드 병렬 수집 (피드별 타임아웃, 피드별 상한)
	fetch := pool.WithTimeout(i.cfg.FeedTimeout, i.fetcher.Fetch)
	fetched := pool.Map(ctx, i.cfg.Feeds, len(i.cfg.Feeds), fetch)

	var articles []contracts.FeedItem
	for n, r := range fetched {
		status := FeedStatus{URL: i.cfg.Feeds[n], OK: r.Err == nil}
		if r.Err != nil {
			status.Error = r.Err.Error()
			i.logger.WithError(r.Err).WithField("url", status.URL).Warn("Feed fetch failed")
		} else {
			items := r.Value
			if i.cfg.PerSourceCap > 0 && len(items) > i.cfg.PerSourceCap {
				items = items[:i.cfg.PerSourceCap]
			}
			status.Items = len(items)
			articles = append(articles, items...)
		}
		result.Feeds = append(result.Feeds, status)
	}

	// 2. 전체 상한
	if i.cfg.MaxArticles > 0 && len(articles) > i.cfg.MaxArticles {
		articles = articles[:i.cfg.MaxArticles]
	}
	result.Articles = len(articles)

	// 3. 기사 → 종목 매핑 (제한된 동시성)
	mapper := NewMapper(aliases, i.mapThreshold)
	mapped := pool.Map(ctx, articles, i.cfg.MapConcurrency, func(_ context.Context, a contracts.FeedItem) ([]contracts.NewsEvent, error) {
		return eventsFor(a, mapper, i.cfg.MapMax), nil
	})

	var events []contracts.NewsEvent
	seen := make(map[string]struct{})
	for _, r := range mapped {
		if r.Err != nil {
			continue
		}
		for _, e := range r.Value {
			if _, ok := seen[e.ID]; ok {
				continue
			}
			seen[e.ID] = struct{}{}
			events = append(events, e)
		}
	}
	result.Mapped = len(events)

	// 4. 저장 (ID 기준 멱등)
	saved, err := i.store.SaveEvents(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("save news events: %w", err)
	}
	result.Saved = saved
	result.Duration = time.Since(start).Round(time.Millisecond).String()

	i.metrics.CountItems(contracts.StageNews.String(), "ingested", saved)
	i.logger.WithFields(map[string]interface{}{
		"feeds":    len(i.cfg.Feeds),
		"articles": result.Articles,
		"mapped":   result.Mapped,
		"saved":    saved,
		"duration": result.Duration,
	}).Info("News refresh completed")

	return result, nil
}

func eventsFor(a contracts.FeedItem, mapper *Mapper, max int) []contracts.NewsEvent {
	if a.Title == "" && a.URL == "" {
		return nil
	}
	symbols := mapper.Map(a.Title+" "+a.Description, max)
	if len(symbols) == 0 {
		return nil
	}

	articleID := ArticleID(a)
	out := make([]contracts.NewsEvent, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, contracts.NewsEvent{
			ID:          articleID + ":" + sym,
			ArticleID:   articleID,
			Symbol:      sym,
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			SourceHost:  a.SourceHost,
			Timestamp:   a.PublishedAt,
		})
	}
	return out
}

// Cleanup deletes events older than the retention period
func (i *Ingestor) Cleanup(ctx context.Context, now time.Time) (int64, error) {
	days := i.cfg.RetentionDays
	if days <= 0 {
		days = 7
	}
	n, err := i.store.DeleteBefore(ctx, now.AddDate(0, 0, -days))
	if err != nil {
		return 0, err
	}
	i.logger.WithField("deleted", n).Info("News cleanup completed")
	return n, nil
}
