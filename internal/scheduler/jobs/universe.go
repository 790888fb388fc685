package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/aegis-picker/internal/s1_universe"
	"github.com/wonny/aegis-picker/internal/scheduler"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/market"
)

// DayProvider hands out the day context (s1_universe.Manager)
type DayProvider interface {
	ForDate(ctx context.Context, dateKey string) (*s1_universe.DayContext, error)
}

// UniverseJob prepares the day's universe snapshot before the pre-open runs
// ⭐ SSOT: Universe 준비 스케줄은 이 Job에서만
type UniverseJob struct {
	days     DayProvider
	calendar *market.Calendar
	logger   *logger.Logger
	now      func() time.Time
}

// NewUniverseJob creates a new universe job
func NewUniverseJob(days DayProvider, calendar *market.Calendar, log *logger.Logger) *UniverseJob {
	return &UniverseJob{
		days:     days,
		calendar: calendar,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *UniverseJob) Name() string {
	return "universe"
}

// Schedule returns the cron schedule (weekdays 07:50 IST)
func (j *UniverseJob) Schedule() string {
	return "0 50 7 * * 1-5"
}

// Guard runs once per trading day
func (j *UniverseJob) Guard() scheduler.Guard {
	return scheduler.Guard{TradingDaysOnly: true, OncePerDay: true}
}

// Run builds (or loads) today's day context
func (j *UniverseJob) Run(ctx context.Context) error {
	dateKey := j.calendar.DateKey(j.now())
	day, err := j.days.ForDate(ctx, dateKey)
	if err != nil {
		return fmt.Errorf("universe for %s: %w", dateKey, err)
	}

	j.logger.WithFields(map[string]interface{}{
		"date":     dateKey,
		"universe": len(day.Universe),
	}).Info("Universe ready")
	return nil
}
