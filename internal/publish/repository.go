package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-picker/internal/contracts"
)

// Repository handles pick runs, published lists and the merge set
// ⭐ SSOT: S6 기록/발행 데이터 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewRepository creates a new publish repository; loc derives legacy date keys
func NewRepository(pool *pgxpool.Pool, loc *time.Location) *Repository {
	if loc == nil {
		loc = time.UTC
	}
	return &Repository{pool: pool, loc: loc}
}

// SaveRun appends one run document
func (r *Repository) SaveRun(ctx context.Context, run *contracts.PickRun) error {
	doc, err := EncodeRun(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	query := `
		INSERT INTO pick_runs (id, date_key, ts, filtered_size, doc_version, doc)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.pool.Exec(ctx, query, run.ID, run.DateKey, run.Timestamp, run.FilteredSize, RunDocVersionCurrent, doc)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// SaveRawRun stores a document as-is (legacy imports)
func (r *Repository) SaveRawRun(ctx context.Context, id, dateKey string, ts time.Time, version int, doc []byte) error {
	query := `
		INSERT INTO pick_runs (id, date_key, ts, doc_version, doc)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.pool.Exec(ctx, query, id, dateKey, ts, version, doc); err != nil {
		return fmt.Errorf("failed to save raw run: %w", err)
	}
	return nil
}

// LatestRun returns the newest run for dateKey ("" = any day), or nil
func (r *Repository) LatestRun(ctx context.Context, dateKey string) (*contracts.PickRun, error) {
	query := `
		SELECT id, doc_version, doc
		FROM pick_runs
		WHERE $1 = '' OR date_key = $1
		ORDER BY ts DESC
		LIMIT 1
	`

	var (
		id      string
		version int
		doc     []byte
	)
	err := r.pool.QueryRow(ctx, query, dateKey).Scan(&id, &version, &doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	return DecodeRun(version, id, doc, r.loc)
}

// RunsSince returns runs at or after since, oldest first
func (r *Repository) RunsSince(ctx context.Context, since time.Time) ([]contracts.PickRun, error) {
	query := `
		SELECT id, doc_version, doc
		FROM pick_runs
		WHERE ts >= $1
		ORDER BY ts ASC
	`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]contracts.PickRun, 0)
	for rows.Next() {
		var (
			id      string
			version int
			doc     []byte
		)
		if err := rows.Scan(&id, &version, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run, err := DecodeRun(version, id, doc, r.loc)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

const listColumns = `date_key, source, symbols, lock_until, created_at, pick_run_id, meta`

// PublishLocked writes list in one statement: insert, or replace only when the stored
// row holds no live lock at now (or force). The stored row is returned either way.
func (r *Repository) PublishLocked(ctx context.Context, list contracts.PublishedList, now time.Time, force bool) (*contracts.PublishedList, bool, error) {
	query := `
		INSERT INTO published_lists (` + listColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (date_key, source) DO UPDATE SET
			symbols = EXCLUDED.symbols,
			lock_until = EXCLUDED.lock_until,
			created_at = EXCLUDED.created_at,
			pick_run_id = EXCLUDED.pick_run_id,
			meta = EXCLUDED.meta
		WHERE $8
			OR published_lists.lock_until IS NULL
			OR published_lists.lock_until <= $5
		RETURNING ` + listColumns

	meta := list.Meta
	if meta == nil {
		meta = map[string]interface{}{}
	}
	symbols := list.Symbols
	if symbols == nil {
		symbols = []string{}
	}

	stored, err := scanList(r.pool.QueryRow(ctx, query,
		list.DateKey, list.Source, symbols, list.LockUntil, now, list.PickRunID, meta, force,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		// 잠금 유지: 기존 행 반환
		existing, err := r.Get(ctx, list.DateKey, list.Source)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to publish list: %w", err)
	}
	return stored, true, nil
}

// Get returns the published list for (dateKey, source), or nil
func (r *Repository) Get(ctx context.Context, dateKey, source string) (*contracts.PublishedList, error) {
	query := `SELECT ` + listColumns + ` FROM published_lists WHERE date_key = $1 AND source = $2`

	list, err := scanList(r.pool.QueryRow(ctx, query, dateKey, source))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get published list: %w", err)
	}
	return list, nil
}

func scanList(row pgx.Row) (*contracts.PublishedList, error) {
	var l contracts.PublishedList
	if err := row.Scan(&l.DateKey, &l.Source, &l.Symbols, &l.LockUntil, &l.CreatedAt, &l.PickRunID, &l.Meta); err != nil {
		return nil, err
	}
	return &l, nil
}

// InitMergeSet creates the merge set document if it does not exist
func (r *Repository) InitMergeSet(ctx context.Context) (bool, error) {
	tag, err := r.pool.Exec(ctx, `INSERT INTO merge_set (id) VALUES (1) ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return false, fmt.Errorf("failed to init merge set: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MergeSet returns the merge set symbols
func (r *Repository) MergeSet(ctx context.Context) ([]string, error) {
	var symbols []string
	err := r.pool.QueryRow(ctx, `SELECT symbols FROM merge_set WHERE id = 1`).Scan(&symbols)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrMergeSetMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merge set: %w", err)
	}
	return symbols, nil
}

// Union appends symbols not yet in the merge set, keeping existing order.
// The set is never created here.
func (r *Repository) Union(ctx context.Context, symbols []string) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var current []string
	err = tx.QueryRow(ctx, `SELECT symbols FROM merge_set WHERE id = 1 FOR UPDATE`).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, contracts.ErrMergeSetMissing
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock merge set: %w", err)
	}

	merged, added := unionSymbols(current, symbols)
	if added == 0 {
		return 0, nil
	}

	if _, err := tx.Exec(ctx, `UPDATE merge_set SET symbols = $1, updated_at = NOW() WHERE id = 1`, merged); err != nil {
		return 0, fmt.Errorf("failed to update merge set: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return added, nil
}

// unionSymbols appends new members of add to current in order
func unionSymbols(current, add []string) ([]string, int) {
	seen := make(map[string]bool, len(current)+len(add))
	merged := make([]string, 0, len(current)+len(add))
	for _, s := range current {
		seen[s] = true
		merged = append(merged, s)
	}
	added := 0
	for _, s := range add {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		merged = append(merged, s)
		added++
	}
	return merged, added
}
