package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/aegis-picker/internal/s1_universe"
	"github.com/wonny/aegis-picker/internal/s4_news"
	"github.com/wonny/aegis-picker/internal/scheduler"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/market"
)

// NewsIngestor is the news ingestion pass (s4_news.Ingestor)
type NewsIngestor interface {
	RefreshOnce(ctx context.Context, aliases *s1_universe.AliasIndex) (*s4_news.RefreshResult, error)
	Cleanup(ctx context.Context, now time.Time) (int64, error)
}

// NewsRefreshJob ingests headlines ahead of the pre-open pick
type NewsRefreshJob struct {
	days     DayProvider
	ingestor NewsIngestor
	calendar *market.Calendar
	logger   *logger.Logger
	now      func() time.Time
}

// NewNewsRefreshJob creates a new news refresh job
func NewNewsRefreshJob(days DayProvider, ingestor NewsIngestor, calendar *market.Calendar, log *logger.Logger) *NewsRefreshJob {
	return &NewsRefreshJob{
		days:     days,
		ingestor: ingestor,
		calendar: calendar,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *NewsRefreshJob) Name() string {
	return "news"
}

// Schedule returns the cron schedule (weekdays 08:00 IST)
func (j *NewsRefreshJob) Schedule() string {
	return "0 0 8 * * 1-5"
}

// Guard runs once per trading day
func (j *NewsRefreshJob) Guard() scheduler.Guard {
	return scheduler.Guard{TradingDaysOnly: true, OncePerDay: true}
}

// Run maps fresh headlines against today's alias index
func (j *NewsRefreshJob) Run(ctx context.Context) error {
	day, err := j.days.ForDate(ctx, j.calendar.DateKey(j.now()))
	if err != nil {
		return fmt.Errorf("day context: %w", err)
	}

	res, err := j.ingestor.RefreshOnce(ctx, day.Aliases)
	if err != nil {
		return fmt.Errorf("news refresh: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"articles": res.Articles,
		"mapped":   res.Mapped,
		"saved":    res.Saved,
	}).Info("News ingested")
	return nil
}

// NewsCleanupJob deletes events past retention
type NewsCleanupJob struct {
	ingestor NewsIngestor
	logger   *logger.Logger
	now      func() time.Time
}

// NewNewsCleanupJob creates a new news cleanup job
func NewNewsCleanupJob(ingestor NewsIngestor, log *logger.Logger) *NewsCleanupJob {
	return &NewsCleanupJob{
		ingestor: ingestor,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *NewsCleanupJob) Name() string {
	return "news_cleanup"
}

// Schedule returns the cron schedule (23:59 IST every third day)
func (j *NewsCleanupJob) Schedule() string {
	return "0 59 23 */3 * *"
}

// Guard runs once per day, holidays included
func (j *NewsCleanupJob) Guard() scheduler.Guard {
	return scheduler.Guard{OncePerDay: true}
}

// Run executes the cleanup
func (j *NewsCleanupJob) Run(ctx context.Context) error {
	n, err := j.ingestor.Cleanup(ctx, j.now())
	if err != nil {
		return fmt.Errorf("news cleanup: %w", err)
	}
	j.logger.WithField("deleted", n).Debug("Scheduled news cleanup done")
	return nil
}
