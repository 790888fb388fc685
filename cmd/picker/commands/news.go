package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-picker/internal/s4_news"
)

// newsCmd represents the news command
var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "뉴스 수집/후보 관리",
	Long: `뉴스 피드를 수집하고 후보를 조회합니다.

Subcommands:
  refresh     - 피드 수집 1회 (오늘 별칭 인덱스로 매핑)
  candidates  - 현재 뉴스 후보
  cleanup     - 보존 기간 지난 이벤트 삭제

Example:
  go run ./cmd/picker news refresh
  go run ./cmd/picker news candidates --window 120 --limit 10`,
}

var (
	newsRefreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "피드 수집 1회",
		RunE:  runNewsRefresh,
	}

	newsCandidatesCmd = &cobra.Command{
		Use:   "candidates",
		Short: "뉴스 후보 조회",
		RunE:  runNewsCandidates,
	}

	newsCleanupCmd = &cobra.Command{
		Use:   "cleanup",
		Short: "오래된 이벤트 삭제",
		RunE:  runNewsCleanup,
	}
)

var (
	newsWindow int
	newsLimit  int
)

func init() {
	rootCmd.AddCommand(newsCmd)
	newsCmd.AddCommand(newsRefreshCmd)
	newsCmd.AddCommand(newsCandidatesCmd)
	newsCmd.AddCommand(newsCleanupCmd)

	newsCandidatesCmd.Flags().IntVar(&newsWindow, "window", 0, "window in minutes (0 = policy)")
	newsCandidatesCmd.Flags().IntVar(&newsLimit, "limit", 0, "max candidates (0 = policy)")
}

func runNewsRefresh(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	day, err := a.universe.ForDate(cmd.Context(), a.calendar.DateKey(time.Now()))
	if err != nil {
		return fmt.Errorf("day context: %w", err)
	}

	res, err := a.ingestor.RefreshOnce(cmd.Context(), day.Aliases)
	if err != nil {
		return err
	}

	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  News refresh (%s)\n", res.Duration)
	PrintSeparator()
	for _, f := range res.Feeds {
		status := "ok"
		if f.Error != "" {
			status = f.Error
		}
		fmt.Printf("  %-60s %4d  %s\n", f.URL, f.Items, status)
	}
	PrintSeparator()
	fmt.Printf("  Articles : %d\n", res.Articles)
	fmt.Printf("  Mapped   : %d\n", res.Mapped)
	fmt.Printf("  Saved    : %d\n", res.Saved)
	PrintDoubleSeparator()
	return nil
}

func runNewsCandidates(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	q := s4_news.CandidateQuery{WindowMin: newsWindow, Limit: newsLimit}
	if day, err := a.universe.ForDate(cmd.Context(), a.calendar.DateKey(time.Now())); err == nil {
		q.SectorOf = day.Sector
	}

	cands, err := a.newsScorer.Build(cmd.Context(), q)
	if err != nil {
		return err
	}
	return PrintJSON(cands)
}

func runNewsCleanup(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	deleted, err := a.ingestor.Cleanup(cmd.Context(), time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("✅ Deleted %d news events\n", deleted)
	return nil
}
