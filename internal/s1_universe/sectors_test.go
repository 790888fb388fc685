package s1_universe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-picker/internal/contracts"
)

func TestSectorSourceFillsMissingSectors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sectors.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
"NSE:HAL": defence
"NSE:BEL": defence
"NSE:INFY": it
`), 0o600))

	sectors, err := LoadSectorFile(path)
	require.NoError(t, err)

	inner := &countingSource{universe: []contracts.UniverseEntry{
		{Symbol: "NSE:HAL"},
		{Symbol: "NSE:INFY", Sector: "software"},
		{Symbol: "NSE:SBIN"},
	}}
	got, err := NewSectorSource(inner, sectors).Universe(context.Background(), "2025-01-06")
	require.NoError(t, err)

	assert.Equal(t, "defence", got[0].Sector)
	assert.Equal(t, "software", got[1].Sector, "existing sector kept")
	assert.Empty(t, got[2].Sector)
}

func TestSectorSourceErrors(t *testing.T) {
	_, err := LoadSectorFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	inner := &countingSource{err: errors.New("instruments down")}
	_, err = NewSectorSource(inner, nil).Universe(context.Background(), "2025-01-06")
	assert.Error(t, err)
}
