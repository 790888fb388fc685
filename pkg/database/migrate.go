package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all embedded SQL files in lexical order.
// Migrations are idempotent (IF NOT EXISTS), so re-running is safe.
func (db *DB) Migrate(ctx context.Context) ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		data, err := fs.ReadFile(migrationsFS, "migrations/"+file)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := db.Pool.Exec(ctx, string(data)); err != nil {
			return nil, fmt.Errorf("apply migration %s: %w", file, err)
		}
	}

	return files, nil
}

// InitMergeSet creates the single merge-set row if it does not exist yet
func (db *DB) InitMergeSet(ctx context.Context) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `INSERT INTO merge_set (id) VALUES (1) ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return false, fmt.Errorf("init merge set: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
