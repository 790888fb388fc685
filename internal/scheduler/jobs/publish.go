package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/internal/scheduler"
	"github.com/wonny/aegis-picker/pkg/logger"
)

// PublishFlow publishes today's list (publish.Flow)
type PublishFlow interface {
	PublishToday(ctx context.Context, source string, force bool) (*contracts.PublishResult, error)
	EnsurePublished(ctx context.Context, source string) (*contracts.PublishResult, error)
}

// PublishJob publishes the latest pick for the scanner
type PublishJob struct {
	flow   PublishFlow
	source string
	logger *logger.Logger
}

// NewPublishJob creates a new publish job
func NewPublishJob(flow PublishFlow, source string, log *logger.Logger) *PublishJob {
	return &PublishJob{flow: flow, source: source, logger: log}
}

// Name returns the job name
func (j *PublishJob) Name() string {
	return "publish"
}

// Schedule returns the cron schedule (weekdays 08:20 IST)
func (j *PublishJob) Schedule() string {
	return "0 20 8 * * 1-5"
}

// Guard runs once per trading day
func (j *PublishJob) Guard() scheduler.Guard {
	return scheduler.Guard{TradingDaysOnly: true, OncePerDay: true}
}

// Run publishes without forcing; a live lock is reported, not failed
func (j *PublishJob) Run(ctx context.Context) error {
	res, err := j.flow.PublishToday(ctx, j.source, false)
	if errors.Is(err, contracts.ErrNotTradingDay) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	logPublish(j.logger, "Scheduled publish done", res)
	return nil
}

// PublishGuardJob re-publishes when nothing was published for the day
type PublishGuardJob struct {
	flow   PublishFlow
	source string
	logger *logger.Logger
}

// NewPublishGuardJob creates a new publish guard job
func NewPublishGuardJob(flow PublishFlow, source string, log *logger.Logger) *PublishGuardJob {
	return &PublishGuardJob{flow: flow, source: source, logger: log}
}

// Name returns the job name
func (j *PublishGuardJob) Name() string {
	return "publish_guard"
}

// Schedule returns the cron schedule (weekdays 08:28 IST)
func (j *PublishGuardJob) Schedule() string {
	return "0 28 8 * * 1-5"
}

// Guard skips holidays; no day lock, EnsurePublished is idempotent
func (j *PublishGuardJob) Guard() scheduler.Guard {
	return scheduler.Guard{TradingDaysOnly: true}
}

// Run publishes only when today's list is missing or empty
func (j *PublishGuardJob) Run(ctx context.Context) error {
	res, err := j.flow.EnsurePublished(ctx, j.source)
	if errors.Is(err, contracts.ErrNotTradingDay) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("publish guard: %w", err)
	}
	logPublish(j.logger, "Publish guard done", res)
	return nil
}

func logPublish(log *logger.Logger, msg string, res *contracts.PublishResult) {
	log.WithFields(map[string]interface{}{
		"key":     res.Key,
		"count":   res.Count,
		"locked":  res.Locked,
		"note":    res.Note,
		"symbols": res.Symbols,
	}).Info(msg)
}
