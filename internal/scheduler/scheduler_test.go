package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-picker/pkg/config"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/market"
	"github.com/wonny/aegis-picker/pkg/redis"
)

var calendar = market.NewCalendar(config.MarketConfig{Timezone: "Asia/Kolkata"})

// 2026-03-02 (월) 08:10 IST
var monday = time.Date(2026, 3, 2, 8, 10, 0, 0, calendar.Location())
var saturday = time.Date(2026, 3, 7, 8, 10, 0, 0, calendar.Location())

type stubJob struct {
	name  string
	guard *Guard
	errs  []error

	mu    sync.Mutex
	calls int
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return "0 10 8 * * 1-5" }

func (j *stubJob) Run(context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	if len(j.errs) >= j.calls {
		return j.errs[j.calls-1]
	}
	return nil
}

type guardedJob struct {
	*stubJob
}

func (j guardedJob) Guard() Guard { return *j.guard }

type memLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	released []string
	err      error
}

func (l *memLocker) Acquire(_ context.Context, name string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[name] {
		return false, nil
	}
	l.held[name] = true
	return true, nil
}

func (l *memLocker) Release(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
	l.released = append(l.released, name)
	return nil
}

func newTestScheduler(locker Locker, now time.Time) *Scheduler {
	return New(calendar, locker, 90*time.Minute, logger.Nop()).
		WithRetry(0, 0).
		WithClock(func() time.Time { return now })
}

func daily(name string, errs ...error) guardedJob {
	return guardedJob{&stubJob{name: name, guard: &Guard{TradingDaysOnly: true, OncePerDay: true}, errs: errs}}
}

func TestScheduler_AddJob(t *testing.T) {
	s := newTestScheduler(nil, monday)

	require.NoError(t, s.AddJob(&stubJob{name: "b"}))
	require.NoError(t, s.AddJob(&stubJob{name: "a"}))
	assert.ErrorContains(t, s.AddJob(&stubJob{name: "a"}), "already exists")
	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	bad := &badScheduleJob{stubJob{name: "bad"}}
	assert.ErrorContains(t, s.AddJob(bad), "failed to schedule")

	_, err := s.RunJob("missing")
	assert.ErrorContains(t, err, "not found")
}

type badScheduleJob struct{ stubJob }

func (*badScheduleJob) Schedule() string { return "every morning" }

func TestScheduler_OncePerTradingDay(t *testing.T) {
	locker := &memLocker{}
	s := newTestScheduler(locker, monday)
	job := daily("pick")
	require.NoError(t, s.AddJob(job))

	first, err := s.RunJob("pick")
	require.NoError(t, err)
	assert.True(t, first.Success)

	second, err := s.RunJob("pick")
	require.NoError(t, err)
	assert.Equal(t, SkipLocked, second.Skipped)
	assert.Equal(t, 1, job.calls)
	assert.True(t, locker.held[redis.JobLockName("pick", "2026-03-02")])

	stats := s.GetJobStats()["pick"]
	assert.Equal(t, 2, stats.TotalRuns)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 1, stats.SkipCount)
	assert.Equal(t, 1.0, stats.SuccessRate)
	assert.Equal(t, "2026-03-02", stats.LastSuccessDate)
	assert.Nil(t, stats.LastFailure)
}

func TestScheduler_SkipsHolidays(t *testing.T) {
	locker := &memLocker{}
	s := newTestScheduler(locker, saturday)
	job := daily("publish")
	require.NoError(t, s.AddJob(job))

	res, err := s.RunJob("publish")
	require.NoError(t, err)
	assert.Equal(t, SkipNotTradingDay, res.Skipped)
	assert.Zero(t, job.calls)
	assert.Empty(t, locker.held, "no lock taken on a holiday")
}

func TestScheduler_FailureReleasesLock(t *testing.T) {
	locker := &memLocker{}
	s := newTestScheduler(locker, monday)
	job := daily("news", errors.New("feeds down"))
	require.NoError(t, s.AddJob(job))

	res, err := s.RunJob("news")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "feeds down", res.Error)
	assert.Equal(t, []string{redis.JobLockName("news", "2026-03-02")}, locker.released)

	// 다음 실행은 락을 다시 잡고 성공
	res, err = s.RunJob("news")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, job.calls)

	history, err := s.GetJobHistory("news")
	require.NoError(t, err)
	assert.Len(t, history.Failures(), 1)
	assert.True(t, history.SucceededOn("2026-03-02"))
	assert.False(t, history.SucceededOn("2026-03-03"))
	assert.Equal(t, 0.5, history.SuccessRate())
}

func TestScheduler_Retry(t *testing.T) {
	s := newTestScheduler(nil, monday).WithRetry(2, time.Millisecond)
	job := &stubJob{name: "flaky", errs: []error{errors.New("x"), errors.New("y")}}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunJob("flaky")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, job.calls)
	assert.Equal(t, 3, res.Attempts)
}

func TestScheduler_LockStoreDownStillRuns(t *testing.T) {
	s := newTestScheduler(&memLocker{err: errors.New("redis: connection refused")}, monday)
	job := daily("universe")
	require.NoError(t, s.AddJob(job))

	res, err := s.RunJob("universe")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, job.calls)
}

func TestScheduler_RedisLock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	lock := redis.NewLock(redis.Wrap(db), "picker").WithOwner("host:1")
	s := newTestScheduler(lock, monday)
	job := daily("pick")
	require.NoError(t, s.AddJob(job))

	key := "picker:lock:" + redis.JobLockName("pick", "2026-03-02")
	mock.ExpectSetNX(key, "host:1", 90*time.Minute).SetVal(true)
	mock.ExpectSetNX(key, "host:1", 90*time.Minute).SetVal(false)

	first, err := s.RunJob("pick")
	require.NoError(t, err)
	assert.True(t, first.Success)

	second, err := s.RunJob("pick")
	require.NoError(t, err)
	assert.Equal(t, SkipLocked, second.Skipped)

	assert.NoError(t, mock.ExpectationsWereMet())
}
