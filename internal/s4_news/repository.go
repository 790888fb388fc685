package s4_news

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-picker/internal/contracts"
)

// Repository persists news events in PostgreSQL
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SaveEvents inserts events, skipping IDs that already exist
func (r *Repository) SaveEvents(ctx context.Context, events []contracts.NewsEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO news_events (id, article_id, symbol, title, description, url, source_host, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(query, e.ID, e.ArticleID, e.Symbol, e.Title, e.Description, e.URL, e.SourceHost, e.Timestamp)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range events {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert news event: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

// EventsSince returns events at or after since, ordered by (ts, id).
// An empty symbols filter returns every symbol.
func (r *Repository) EventsSince(ctx context.Context, since time.Time, symbols []string) ([]contracts.NewsEvent, error) {
	if symbols == nil {
		symbols = []string{}
	}

	query := `
		SELECT id, article_id, symbol, title, description, url, source_host, ts
		FROM news_events
		WHERE ts >= $1
		  AND (cardinality($2::text[]) = 0 OR symbol = ANY($2::text[]))
		ORDER BY ts, id
	`

	rows, err := r.db.Query(ctx, query, since, symbols)
	if err != nil {
		return nil, fmt.Errorf("query news events: %w", err)
	}
	defer rows.Close()

	var out []contracts.NewsEvent
	for rows.Next() {
		var e contracts.NewsEvent
		if err := rows.Scan(&e.ID, &e.ArticleID, &e.Symbol, &e.Title, &e.Description, &e.URL, &e.SourceHost, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan news event: %w", err)
		}
		out = append(out, e)
	}

	return out, rows.Err()
}

// DeleteBefore removes events older than before
func (r *Repository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM news_events WHERE ts < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete news events: %w", err)
	}
	return tag.RowsAffected(), nil
}
