package scheduler

import (
	"context"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the cron schedule expression (with seconds, exchange time zone)
	// Examples: "0 10 8 * * 1-5" (weekdays 08:10)
	Schedule() string
}

// Guard controls when a scheduled tick actually runs a job
type Guard struct {
	TradingDaysOnly bool // 주말/휴장일 건너뜀
	OncePerDay      bool // 프로세스 간 날짜별 1회 (잡 락)
}

// GuardedJob is a Job with run conditions; plain Jobs run on every tick
type GuardedJob interface {
	Job
	Guard() Guard
}

// JobResult is the outcome of one tick
type JobResult struct {
	JobName   string        `json:"job_name"`
	DateKey   string        `json:"date_key"` // 거래소 기준 날짜
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Skipped   string        `json:"skipped,omitempty"` // 건너뛴 사유
	Error     string        `json:"error,omitempty"`
}

// Executed reports whether the job body ran (not skipped by its guard)
func (r JobResult) Executed() bool {
	return r.Skipped == ""
}

// historyLimit caps results kept per job
const historyLimit = 100

// JobHistory keeps the most recent results of one job, oldest first
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a result, dropping the oldest past historyLimit
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > historyLimit {
		h.Results = h.Results[len(h.Results)-historyLimit:]
	}
}

// Last returns the newest result
func (h *JobHistory) Last() (JobResult, bool) {
	if len(h.Results) == 0 {
		return JobResult{}, false
	}
	return h.Results[len(h.Results)-1], true
}

// LastWhere returns the newest result matching keep
func (h *JobHistory) LastWhere(keep func(JobResult) bool) (JobResult, bool) {
	for i := len(h.Results) - 1; i >= 0; i-- {
		if keep(h.Results[i]) {
			return h.Results[i], true
		}
	}
	return JobResult{}, false
}

// Failures returns executed runs that failed after all retries
func (h *JobHistory) Failures() []JobResult {
	failed := make([]JobResult, 0)
	for _, r := range h.Results {
		if r.Executed() && !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}

// SucceededOn reports whether the job completed on the given trading day
func (h *JobHistory) SucceededOn(dateKey string) bool {
	_, ok := h.LastWhere(func(r JobResult) bool {
		return r.Success && r.DateKey == dateKey
	})
	return ok
}

// Counts splits the history into succeeded, failed and skipped runs
func (h *JobHistory) Counts() (ok, failed, skipped int) {
	for _, r := range h.Results {
		switch {
		case !r.Executed():
			skipped++
		case r.Success:
			ok++
		default:
			failed++
		}
	}
	return ok, failed, skipped
}

// SuccessRate is ok/(ok+failed); skipped ticks do not count (0.0 - 1.0)
func (h *JobHistory) SuccessRate() float64 {
	ok, failed, _ := h.Counts()
	if ok+failed == 0 {
		return 0.0
	}
	return float64(ok) / float64(ok+failed)
}
