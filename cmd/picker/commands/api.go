package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-picker/internal/api"
	"github.com/wonny/aegis-picker/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                                - Health check
  POST /api/pick/run?debug=1&reuse=1          - 픽 즉시 실행
  GET  /api/pick/latest?date=YYYY-MM-DD       - 최신 픽 조회
  POST /api/publish?source=&force=1           - 오늘 목록 발행
  GET  /api/news/candidates?window=&limit=    - 뉴스 후보
  POST /api/news/refresh                      - 뉴스 수집 1회
  GET  /api/shortlist                         - 오늘 숏리스트
  GET  /metrics                               - Prometheus

Example:
  go run ./cmd/picker api
  go run ./cmd/picker api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본 PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Aegis Picker API Server ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	// Create handlers
	h := api.Handlers{
		Pick:      handlers.NewPickHandler(a.orchestrator, a.runs, a.calendar, a.log),
		Publish:   handlers.NewPublishHandler(a.flow, a.log),
		News:      handlers.NewNewsHandler(a.newsScorer, a.ingestor, a.universe, a.calendar, a.log),
		Shortlist: handlers.NewShortlistHandler(a.shortlister, a.calendar, a.log),
	}

	// Create router + server
	router := api.NewRouter(h, a.metrics, a.log)
	server := api.New(a.cfg, a.log, router)

	// Serve until Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}
