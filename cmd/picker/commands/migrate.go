package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-picker/pkg/database"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "DB 스키마 적용",
	Long: `내장된 SQL 마이그레이션을 순서대로 적용합니다 (재실행 안전).

--init-merge-set 은 머지 세트 문서를 생성합니다.
머지 세트는 운영자만 생성하며, 없으면 발행은 머지를 건너뜁니다.

Example:
  go run ./cmd/picker migrate
  go run ./cmd/picker migrate --init-merge-set`,
	RunE: runMigrate,
}

var (
	migrateInitMergeSet bool
)

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVar(&migrateInitMergeSet, "init-merge-set", false, "create the merge set document")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	files, err := db.Migrate(ctx)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Printf("  applied %s\n", f)
	}

	if migrateInitMergeSet {
		created, err := db.InitMergeSet(ctx)
		if err != nil {
			return err
		}
		if created {
			fmt.Println("✅ Merge set created")
		} else {
			fmt.Println("Merge set already exists")
		}
	}

	fmt.Println("✅ Migration complete")
	return nil
}
