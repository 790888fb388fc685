package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	policyFile string
	env        string
	verbose    bool
	dryRun     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "picker",
	Short: "Aegis Picker - 장 시작 전 인트라데이 종목 선정",
	Long: `Aegis Picker Unified CLI

NSE F&O 기초자산 중 하루 하나의 매수 후보를 고릅니다.
S1 유니버스 → S2 숏리스트 → (S3 기술 ∥ S4 뉴스) → S5 블렌드/게이트 → S6 기록/발행

Usage:
  go run ./cmd/picker [command]

Examples:
  go run ./cmd/picker api
  go run ./cmd/picker run --debug
  go run ./cmd/picker publish --source preopen
  go run ./cmd/picker news refresh
  go run ./cmd/picker scheduler start
  go run ./cmd/picker migrate --init-merge-set`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&policyFile, "policy", "", "policy YAML (default POLICY_PATH or built-in)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "in-memory stores and a generated market (no DB, no broker)")
}
