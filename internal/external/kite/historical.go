package kite

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/wonny/aegis-picker/internal/contracts"
)

const (
	queryTimeLayout  = "2006-01-02 15:04:05"
	candleTimeLayout = "2006-01-02T15:04:05-0700"
)

// Historical implements contracts.MarketData
func (c *Client) Historical(ctx context.Context, token int64, from, to time.Time, g contracts.Granularity) ([]contracts.Bar, error) {
	interval, err := intervalOf(g)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("from", from.In(c.loc).Format(queryTimeLayout))
	query.Set("to", to.In(c.loc).Format(queryTimeLayout))

	path := fmt.Sprintf("/instruments/historical/%d/%s", token, interval)
	body, err := c.get(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("historical %d: %w", token, err)
	}

	data, err := decodeData[struct {
		Candles [][]json.RawMessage `json:"candles"`
	}](body)
	if err != nil {
		return nil, fmt.Errorf("historical %d: %w", token, err)
	}

	bars := make([]contracts.Bar, 0, len(data.Candles))
	for i, raw := range data.Candles {
		bar, err := parseCandle(raw)
		if err != nil {
			return nil, fmt.Errorf("historical %d candle %d: %w", token, i, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func intervalOf(g contracts.Granularity) (string, error) {
	switch g {
	case contracts.GranularityDay:
		return "day", nil
	case contracts.GranularityMinute:
		return "minute", nil
	default:
		return "", fmt.Errorf("unsupported granularity %q", g)
	}
}

// parseCandle decodes [time, open, high, low, close, volume]
func parseCandle(raw []json.RawMessage) (contracts.Bar, error) {
	if len(raw) < 6 {
		return contracts.Bar{}, fmt.Errorf("expected 6 fields, got %d", len(raw))
	}

	var ts string
	if err := json.Unmarshal(raw[0], &ts); err != nil {
		return contracts.Bar{}, fmt.Errorf("time: %w", err)
	}
	t, err := time.Parse(candleTimeLayout, ts)
	if err != nil {
		return contracts.Bar{}, fmt.Errorf("time %q: %w", ts, err)
	}

	var vals [4]float64
	for i := range vals {
		if err := json.Unmarshal(raw[i+1], &vals[i]); err != nil {
			return contracts.Bar{}, fmt.Errorf("price field %d: %w", i+1, err)
		}
	}
	var volume float64
	if err := json.Unmarshal(raw[5], &volume); err != nil {
		return contracts.Bar{}, fmt.Errorf("volume: %w", err)
	}

	return contracts.Bar{
		Time:   t,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: int64(volume),
	}, nil
}
