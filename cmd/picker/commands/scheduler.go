package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-picker/internal/api"
	"github.com/wonny/aegis-picker/internal/scheduler"
	"github.com/wonny/aegis-picker/internal/scheduler/jobs"
	"github.com/wonny/aegis-picker/pkg/redis"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/picker scheduler start
  go run ./cmd/picker scheduler list
  go run ./cmd/picker scheduler run publish`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다 (IST 기준).

등록되는 작업:
- universe:      평일 07:50 (당일 유니버스/별칭 인덱스)
- news:          평일 08:00 (뉴스 피드 수집)
- pick:          평일 08:10 (픽 실행)
- publish:       평일 08:20 (목록 발행)
- publish_guard: 평일 08:28 (미발행 시 재발행)
- news_cleanup:  3일마다 23:59 (오래된 이벤트 삭제)

휴장일에는 건너뛰고, 같은 날 중복 실행은 Redis 락으로 막습니다.
스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Aegis Picker Scheduler ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics endpoint (스케줄러 단독 실행용)
	var metricsDone chan struct{}
	if a.metrics != nil && a.cfg.MetricsPort != "" {
		metricsServer := api.NewMetricsServer(a.cfg, a.metrics, a.log)
		metricsDone = make(chan struct{})
		go func() {
			defer close(metricsDone)
			if err := metricsServer.Run(ctx); err != nil {
				a.log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	// Start scheduler
	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()

	if metricsDone != nil {
		<-metricsDone
	}
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	stats := sched.GetJobStats()

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %-14s %s\n", jobName, stats[jobName].Schedule)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	result, err := sched.RunJob(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	switch {
	case result.Skipped != "":
		fmt.Printf("⏭  Job skipped: %s\n", result.Skipped)
	case result.Success:
		fmt.Printf("✅ Job completed in %.2fs\n", result.Duration.Seconds())
	default:
		return fmt.Errorf("job %s failed: %s", jobName, result.Error)
	}
	return nil
}

// initScheduler registers every picker job on a new scheduler
func initScheduler(a *app) (*scheduler.Scheduler, error) {
	locker := redis.NewLock(a.redis, a.cfg.Redis.Prefix)
	sched := scheduler.New(a.calendar, locker, a.cfg.Picker.JobLockTTL, a.log)

	source := a.flow.Source()

	for _, job := range []scheduler.Job{
		jobs.NewUniverseJob(a.universe, a.calendar, a.log),
		jobs.NewNewsRefreshJob(a.universe, a.ingestor, a.calendar, a.log),
		jobs.NewPickJob(a.orchestrator, a.log),
		jobs.NewPublishJob(a.flow, source, a.log),
		jobs.NewPublishGuardJob(a.flow, source, a.log),
		jobs.NewNewsCleanupJob(a.ingestor, a.log),
	} {
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}

	return sched, nil
}
