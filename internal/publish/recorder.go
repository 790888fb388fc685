package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/metrics"
)

// Recorder appends one PickRun per picker invocation
// ⭐ SSOT: 실행 기록은 호출마다 정확히 1건 (후보 0개, 조기 종료 포함)
type Recorder struct {
	store   contracts.RunStore
	metrics *metrics.Registry
	logger  *logger.Logger
	now     func() time.Time
}

// NewRecorder creates a run recorder
func NewRecorder(store contracts.RunStore, m *metrics.Registry, log *logger.Logger) *Recorder {
	return &Recorder{
		store:   store,
		metrics: m,
		logger:  log.WithModule("recorder"),
		now:     time.Now,
	}
}

// WithClock overrides the time source (tests)
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Record assigns an ID and timestamp when missing and persists run
func (r *Recorder) Record(ctx context.Context, run *contracts.PickRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = r.now()
	}
	if run.TopN == nil {
		run.TopN = []contracts.Candidate{}
	}
	if run.Shortlisted == nil {
		run.Shortlisted = []string{}
	}

	if err := r.store.SaveRun(ctx, run); err != nil {
		r.metrics.CountRun("record_error")
		return fmt.Errorf("record run: %w", err)
	}

	r.metrics.CountRun(runOutcome(run))
	r.logger.WithFields(map[string]interface{}{
		"run_id":        run.ID,
		"date":          run.DateKey,
		"universe":      run.UniverseSize,
		"shortlisted":   run.ShortlistedCount,
		"filtered_size": run.FilteredSize,
		"top_n":         len(run.TopN),
		"note":          run.Note,
	}).Info("Pick run recorded")
	return nil
}

func runOutcome(run *contracts.PickRun) string {
	switch {
	case run.Pick != nil:
		return "picked"
	case run.Note != "":
		return "early_exit"
	default:
		return "empty"
	}
}
