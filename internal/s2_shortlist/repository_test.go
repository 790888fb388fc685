package s2_shortlist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/pkg/database/dbtest"
)

func TestRepositorySaveLoad(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db.Pool)
	ctx := context.Background()

	got, err := repo.Load(ctx, "2026-03-02")
	require.NoError(t, err)
	assert.Nil(t, got)

	spread := 0.001
	res := &Result{
		DateKey:  "2026-03-02",
		Live:     true,
		Universe: 2,
		Rows:     []contracts.ShortlistRow{{Symbol: "NSE:A", Last: 102, SpreadPct: &spread}},
		Filtered: map[string]int{"no_depth": 1},
		BuiltAt:  builtAt,
	}
	require.NoError(t, repo.Save(ctx, res))

	res.Relaxed = true
	require.NoError(t, repo.Save(ctx, res))

	got, err = repo.Load(ctx, "2026-03-02")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Relaxed)
	assert.Equal(t, []string{"NSE:A"}, got.Symbols())
	require.NotNil(t, got.Rows[0].SpreadPct)
	assert.InDelta(t, 0.001, *got.Rows[0].SpreadPct, 1e-12)
	assert.True(t, got.BuiltAt.Equal(builtAt))
}
