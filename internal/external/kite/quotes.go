package kite

import (
	"context"
	"fmt"
	"net/url"

	"github.com/wonny/aegis-picker/internal/contracts"
)

// MaxQuoteInstruments is the per-call instrument limit of the quote endpoint
const MaxQuoteInstruments = 500

// QuoteBatch implements contracts.MarketData.
// Symbols unknown to the broker are absent from the result.
func (c *Client) QuoteBatch(ctx context.Context, symbols []string) (map[string]contracts.Quote, error) {
	out := make(map[string]contracts.Quote, len(symbols))
	for start := 0; start < len(symbols); start += MaxQuoteInstruments {
		end := start + MaxQuoteInstruments
		if end > len(symbols) {
			end = len(symbols)
		}

		query := url.Values{}
		for _, s := range symbols[start:end] {
			query.Add("i", s)
		}

		body, err := c.get(ctx, "/quote", query)
		if err != nil {
			return nil, fmt.Errorf("quote: %w", err)
		}
		data, err := decodeData[map[string]contracts.Quote](body)
		if err != nil {
			return nil, fmt.Errorf("quote: %w", err)
		}
		for sym, q := range data {
			out[sym] = q
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"requested": len(symbols),
		"received":  len(out),
	}).Debug("Quotes fetched")

	return out, nil
}
