package s2_shortlist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/pkg/logger"
)

func TestBatches(t *testing.T) {
	symbols := make([]string, 450)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("S%d", i)
	}

	tests := []struct {
		name  string
		size  int
		sizes []int
	}{
		{"default size", 0, []int{200, 200, 50}},
		{"exact", 150, []int{150, 150, 150}},
		{"larger than input", 1000, []int{450}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := Batches(symbols, tt.size)
			require.Len(t, batches, len(tt.sizes))
			for i, b := range batches {
				assert.Len(t, b, tt.sizes[i])
			}
			assert.Equal(t, "S0", batches[0][0])
		})
	}

	assert.Empty(t, Batches(nil, 10))
}

// batchMarket fails the batches whose first symbol is in fail
type batchMarket struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls int
}

func (m *batchMarket) QuoteBatch(_ context.Context, symbols []string) (map[string]contracts.Quote, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.fail[symbols[0]] {
		return nil, errors.New("upstream 502")
	}
	out := make(map[string]contracts.Quote, len(symbols))
	for _, s := range symbols {
		out[s] = contracts.Quote{LastPrice: 100}
	}
	return out, nil
}

func (m *batchMarket) Historical(context.Context, int64, time.Time, time.Time, contracts.Granularity) ([]contracts.Bar, error) {
	return nil, nil
}

func TestFetchQuotes(t *testing.T) {
	symbols := []string{"A", "B", "C", "D", "E"}

	t.Run("skips failed batch", func(t *testing.T) {
		m := &batchMarket{fail: map[string]bool{"C": true}}
		quotes, err := FetchQuotes(context.Background(), m, symbols, 2, logger.Nop())
		require.NoError(t, err)
		assert.Equal(t, 3, m.calls)
		assert.Len(t, quotes, 3)
		assert.NotContains(t, quotes, "C")
		assert.NotContains(t, quotes, "D")
	})

	t.Run("fails when every batch fails", func(t *testing.T) {
		m := &batchMarket{fail: map[string]bool{"A": true, "C": true, "E": true}}
		_, err := FetchQuotes(context.Background(), m, symbols, 2, logger.Nop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upstream 502")
	})

	t.Run("empty input", func(t *testing.T) {
		m := &batchMarket{}
		quotes, err := FetchQuotes(context.Background(), m, nil, 2, logger.Nop())
		require.NoError(t, err)
		assert.Empty(t, quotes)
		assert.Zero(t, m.calls)
	})
}
