package s2_shortlist

import (
	"context"
	"fmt"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/internal/pool"
	"github.com/wonny/aegis-picker/pkg/logger"
)

// DefaultQuoteBatchSize is the number of symbols per quote request
const DefaultQuoteBatchSize = 200

// quoteWorkers: 시세 API 레이트리밋(초당 3회) 범위
const quoteWorkers = 3

// Batches splits symbols into consecutive chunks of at most size
func Batches(symbols []string, size int) [][]string {
	if size <= 0 {
		size = DefaultQuoteBatchSize
	}
	var out [][]string
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		out = append(out, symbols[start:end])
	}
	return out
}

// FetchQuotes retrieves quotes in batches under the worker pool.
// A failed batch is logged and skipped; the call fails only when every batch fails.
func FetchQuotes(ctx context.Context, market contracts.MarketData, symbols []string, batchSize int, log *logger.Logger) (map[string]contracts.Quote, error) {
	batches := Batches(symbols, batchSize)
	if len(batches) == 0 {
		return map[string]contracts.Quote{}, nil
	}

	results := pool.Map(ctx, batches, quoteWorkers, market.QuoteBatch)

	quotes := make(map[string]contracts.Quote, len(symbols))
	var lastErr error
	failed := 0
	for i, r := range results {
		if r.Err != nil {
			failed++
			lastErr = r.Err
			log.WithError(r.Err).WithFields(map[string]interface{}{
				"batch": i,
				"size":  len(batches[i]),
			}).Warn("Quote batch failed")
			continue
		}
		for sym, q := range r.Value {
			quotes[sym] = q
		}
	}

	if failed == len(batches) {
		return nil, fmt.Errorf("all %d quote batches failed: %w", failed, lastErr)
	}
	return quotes, nil
}
