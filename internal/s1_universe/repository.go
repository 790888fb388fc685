package s1_universe

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-picker/internal/contracts"
)

// Repository handles data persistence for S1
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SaveSnapshot replaces the universe stored for dateKey
func (r *Repository) SaveSnapshot(ctx context.Context, dateKey string, universe []contracts.UniverseEntry) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM universe_snapshots WHERE date_key = $1`, dateKey); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	rows := make([][]interface{}, len(universe))
	for i, u := range universe {
		rows[i] = []interface{}{dateKey, u.Symbol, u.InstrumentToken, u.CompanyName, u.TickSize, u.Sector}
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"universe_snapshots"},
		[]string{"date_key", "symbol", "instrument_token", "company_name", "tick_size", "sector"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy snapshot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// LoadSnapshot returns the universe saved for dateKey (empty when none)
func (r *Repository) LoadSnapshot(ctx context.Context, dateKey string) ([]contracts.UniverseEntry, error) {
	query := `
		SELECT symbol, instrument_token, company_name, tick_size, sector
		FROM universe_snapshots
		WHERE date_key = $1
		ORDER BY symbol
	`

	rows, err := r.db.Query(ctx, query, dateKey)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	var out []contracts.UniverseEntry
	for rows.Next() {
		var u contracts.UniverseEntry
		if err := rows.Scan(&u.Symbol, &u.InstrumentToken, &u.CompanyName, &u.TickSize, &u.Sector); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, u)
	}

	return out, rows.Err()
}
