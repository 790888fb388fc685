package s2_shortlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles shortlist persistence
// ⭐ SSOT: 숏리스트 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new shortlist repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save upserts the shortlist for its date key
func (r *Repository) Save(ctx context.Context, res *Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal shortlist: %w", err)
	}

	query := `
		INSERT INTO shortlists (date_key, live, relaxed, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (date_key) DO UPDATE SET
			live = EXCLUDED.live,
			relaxed = EXCLUDED.relaxed,
			payload = EXCLUDED.payload,
			created_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, res.DateKey, res.Live, res.Relaxed, payload); err != nil {
		return fmt.Errorf("failed to save shortlist: %w", err)
	}
	return nil
}

// Load returns the shortlist saved for dateKey, or nil
func (r *Repository) Load(ctx context.Context, dateKey string) (*Result, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT payload FROM shortlists WHERE date_key = $1`, dateKey).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load shortlist: %w", err)
	}

	var res Result
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shortlist: %w", err)
	}
	return &res, nil
}
