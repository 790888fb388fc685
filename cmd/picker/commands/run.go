package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/aegis-picker/internal/brain"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "픽 1회 실행",
	Long: `S1 → S2 → (S3 ∥ S4) → S5 → S6 를 한 번 실행하고 PickRun을 기록합니다.

Flags:
  --debug   게이트 탈락 후보 포함
  --reuse   오늘 저장된 숏리스트 재사용
  --json    결과를 JSON으로 출력

Example:
  go run ./cmd/picker run
  go run ./cmd/picker run --debug
  go run ./cmd/picker --dry-run run --json`,
	RunE: runPick,
}

var (
	runDebug bool
	runReuse bool
	runJSON  bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runDebug, "debug", false, "include rejected candidates")
	runCmd.Flags().BoolVar(&runReuse, "reuse", false, "reuse today's saved shortlist")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the result as JSON")
}

func runPick(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.orchestrator.Run(cmd.Context(), brain.RunConfig{
		Debug:          runDebug,
		ReuseShortlist: runReuse,
	})
	if err != nil {
		return err
	}

	if runJSON {
		return PrintJSON(res)
	}
	PrintRunSummary(res)
	return nil
}
