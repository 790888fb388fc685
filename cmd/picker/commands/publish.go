package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-picker/internal/contracts"
)

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "오늘 목록 발행",
	Long: `오늘의 최신 PickRun에서 목록을 골라 발행합니다.
오늘 PickRun이 없거나 통과 후보가 없으면 먼저 픽을 실행합니다.

잠금(lock_until)이 살아 있으면 --force 없이는 덮어쓰지 않습니다.

Example:
  go run ./cmd/picker publish
  go run ./cmd/picker publish --source manual --force`,
	RunE: runPublish,
}

var (
	publishSource string
	publishForce  bool
	publishEnsure bool
)

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVar(&publishSource, "source", "", "publish source (default PUBLISH_SOURCE)")
	publishCmd.Flags().BoolVar(&publishForce, "force", false, "overwrite a locked list")
	publishCmd.Flags().BoolVar(&publishEnsure, "ensure", false, "publish only when today's list is missing or empty")
}

func runPublish(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	var res *contracts.PublishResult
	if publishEnsure {
		res, err = a.flow.EnsurePublished(cmd.Context(), publishSource)
	} else {
		res, err = a.flow.PublishToday(cmd.Context(), publishSource, publishForce)
	}
	if errors.Is(err, contracts.ErrNotTradingDay) {
		PrintWarning("Market holiday, nothing published")
		return nil
	}
	if err != nil {
		return err
	}

	PrintPublishResult(res)
	return nil
}
