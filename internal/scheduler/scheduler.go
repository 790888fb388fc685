package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/market"
	"github.com/wonny/aegis-picker/pkg/redis"
)

// Skip reasons recorded in JobResult
const (
	SkipNotTradingDay = "not_trading_day"
	SkipLocked        = "locked"
)

// Locker takes cross-process run-once locks (redis.Lock)
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

// Scheduler manages scheduled jobs
// ⭐ SSOT: 스케줄 관리는 이 스케줄러에서만
type Scheduler struct {
	cron     *cron.Cron
	calendar *market.Calendar
	locker   Locker // optional
	lockTTL  time.Duration
	logger   *logger.Logger
	jobs     map[string]Job
	history  map[string]*JobHistory
	mu       sync.RWMutex
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	// Retry configuration
	maxRetries int
	retryDelay time.Duration
	jobTimeout time.Duration
}

// New creates a scheduler that fires in the exchange time zone; locker may be nil
func New(calendar *market.Calendar, locker Locker, lockTTL time.Duration, log *logger.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithLocation(calendar.Location())),
		calendar:   calendar,
		locker:     locker,
		lockTTL:    lockTTL,
		logger:     log.WithModule("scheduler"),
		jobs:       make(map[string]Job),
		history:    make(map[string]*JobHistory),
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
		maxRetries: 1,
		retryDelay: 1 * time.Minute,
		jobTimeout: 10 * time.Minute,
	}
}

// WithRetry configures retry behavior
func (s *Scheduler) WithRetry(maxRetries int, delay time.Duration) *Scheduler {
	s.maxRetries = maxRetries
	s.retryDelay = delay
	return s
}

// WithClock overrides the time source (tests)
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// AddJob adds a job to the scheduler
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobName := job.Name()

	// Check if job already exists
	if _, exists := s.jobs[jobName]; exists {
		return fmt.Errorf("job %s already exists", jobName)
	}

	// Add job to cron
	_, err := s.cron.AddFunc(job.Schedule(), func() {
		s.runJob(job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", jobName, err)
	}

	// Store job
	s.jobs[jobName] = job
	s.history[jobName] = &JobHistory{}

	s.logger.WithFields(map[string]interface{}{
		"job":      jobName,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// RunJob runs a specific job immediately (outside of schedule), guards included
func (s *Scheduler) RunJob(jobName string) (JobResult, error) {
	s.mu.RLock()
	job, exists := s.jobs[jobName]
	s.mu.RUnlock()

	if !exists {
		return JobResult{}, fmt.Errorf("job %s not found", jobName)
	}

	return s.runJob(job), nil
}

// runJob applies the job's guard, then executes it with retry logic
func (s *Scheduler) runJob(job Job) JobResult {
	jobName := job.Name()
	startTime := time.Now()
	now := s.now()

	result := JobResult{
		JobName:   jobName,
		DateKey:   s.calendar.DateKey(now),
		StartTime: startTime,
	}

	lockName, skip := s.checkGuard(job, now)
	if skip != "" {
		result.Skipped = skip
		result.EndTime = time.Now()
		s.record(result)
		s.logger.WithFields(map[string]interface{}{
			"job":    jobName,
			"reason": skip,
		}).Debug("Job skipped")
		return result
	}

	s.logger.WithField("job", jobName).Info("Job started")

	var lastErr error

	// Try running the job with retries
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		result.Attempts = attempt + 1
		ctx, cancel := context.WithTimeout(s.ctx, s.jobTimeout)
		err := job.Run(ctx)
		cancel()
		if err == nil {
			result.Success = true
			break
		}

		lastErr = err
		s.logger.WithFields(map[string]interface{}{
			"job":     jobName,
			"attempt": attempt + 1,
			"error":   err.Error(),
		}).Warn("Job execution failed")

		// Wait before retry (except on last attempt)
		if attempt < s.maxRetries {
			select {
			case <-s.ctx.Done():
				attempt = s.maxRetries
			case <-time.After(s.retryDelay):
			}
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	if !result.Success {
		result.Error = lastErr.Error()
		// 실패 시 락 해제 → 다음 틱/가드 잡이 재시도 가능
		if lockName != "" {
			if err := s.locker.Release(context.Background(), lockName); err != nil {
				s.logger.WithError(err).WithField("job", jobName).Warn("Failed to release job lock")
			}
		}
	}

	s.record(result)

	// Log completion
	if result.Success {
		s.logger.WithFields(map[string]interface{}{
			"job":      jobName,
			"duration": result.Duration,
		}).Info("Job completed successfully")
	} else {
		s.logger.WithFields(map[string]interface{}{
			"job":      jobName,
			"duration": result.Duration,
			"error":    result.Error,
		}).Error("Job failed after all retries")
	}

	return result
}

// checkGuard returns the lock taken for this run and a skip reason ("" = run)
func (s *Scheduler) checkGuard(job Job, now time.Time) (string, string) {
	guarded, ok := job.(GuardedJob)
	if !ok {
		return "", ""
	}
	g := guarded.Guard()

	if g.TradingDaysOnly && !s.calendar.IsTradingDay(now) {
		return "", SkipNotTradingDay
	}
	if !g.OncePerDay || s.locker == nil {
		return "", ""
	}

	name := redis.JobLockName(job.Name(), s.calendar.DateKey(now))
	acquired, err := s.locker.Acquire(s.ctx, name, s.lockTTL)
	if err != nil {
		// 락 저장소 장애 시에도 실행
		s.logger.WithError(err).WithField("job", job.Name()).Warn("Job lock unavailable, running anyway")
		return "", ""
	}
	if !acquired {
		return "", SkipLocked
	}
	return name, ""
}

func (s *Scheduler) record(result JobResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if history, exists := s.history[result.JobName]; exists {
		history.AddResult(result)
	}
}

// GetJobHistory returns the history for a specific job
func (s *Scheduler) GetJobHistory(jobName string) (*JobHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, exists := s.history[jobName]
	if !exists {
		return nil, fmt.Errorf("job %s not found", jobName)
	}

	return history, nil
}

// GetAllJobs returns all registered job names, sorted
func (s *Scheduler) GetAllJobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]string, 0, len(s.jobs))
	for jobName := range s.jobs {
		jobs = append(jobs, jobName)
	}
	sort.Strings(jobs)

	return jobs
}

// GetJobStats returns statistics for all jobs
func (s *Scheduler) GetJobStats() map[string]JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]JobStats)

	for jobName, history := range s.history {
		ok, failed, skipped := history.Counts()
		st := JobStats{
			JobName:      jobName,
			Schedule:     s.jobs[jobName].Schedule(),
			TotalRuns:    len(history.Results),
			SuccessCount: ok,
			FailureCount: failed,
			SkipCount:    skipped,
			SuccessRate:  history.SuccessRate(),
		}

		if r, found := history.Last(); found {
			st.LastRun = &r.StartTime
		}
		if r, found := history.LastWhere(func(r JobResult) bool { return r.Success }); found {
			st.LastSuccess = &r.StartTime
			st.LastSuccessDate = r.DateKey
		}
		if r, found := history.LastWhere(func(r JobResult) bool { return r.Executed() && !r.Success }); found {
			st.LastFailure = &r.StartTime
		}
		stats[jobName] = st
	}

	return stats
}

// JobStats represents statistics for a job
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SkipCount    int        `json:"skip_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`

	LastSuccessDate string `json:"last_success_date,omitempty"` // 마지막 성공 거래일
}
