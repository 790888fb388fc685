package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/aegis-picker/internal/brain"
	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/internal/scheduler"
	"github.com/wonny/aegis-picker/pkg/logger"
)

// Picker runs one picker invocation (brain.Orchestrator)
type Picker interface {
	Run(ctx context.Context, rc brain.RunConfig) (*contracts.RunResult, error)
}

// PickJob runs the pre-open pick
type PickJob struct {
	picker Picker
	logger *logger.Logger
}

// NewPickJob creates a new pick job
func NewPickJob(picker Picker, log *logger.Logger) *PickJob {
	return &PickJob{picker: picker, logger: log}
}

// Name returns the job name
func (j *PickJob) Name() string {
	return "pick"
}

// Schedule returns the cron schedule (weekdays 08:10 IST)
func (j *PickJob) Schedule() string {
	return "0 10 8 * * 1-5"
}

// Guard runs once per trading day
func (j *PickJob) Guard() scheduler.Guard {
	return scheduler.Guard{TradingDaysOnly: true, OncePerDay: true}
}

// Run executes the pick
func (j *PickJob) Run(ctx context.Context) error {
	res, err := j.picker.Run(ctx, brain.RunConfig{})
	if err != nil {
		return fmt.Errorf("pick: %w", err)
	}

	fields := map[string]interface{}{
		"shortlisted": res.Stages.Shortlisted,
		"filtered":    res.Run.FilteredSize,
	}
	if res.Run.Pick != nil {
		fields["pick"] = res.Run.Pick.Symbol
	}
	j.logger.WithFields(fields).Info("Scheduled pick done")
	return nil
}
