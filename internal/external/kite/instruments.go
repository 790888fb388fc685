package kite

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/wonny/aegis-picker/internal/contracts"
)

// DefaultExchanges are the instrument dumps the universe builder needs
var DefaultExchanges = []string{"NSE", "NFO"}

// InstrumentSource loads the instrument master for a set of exchanges
type InstrumentSource struct {
	client    *Client
	exchanges []string
}

// NewInstrumentSource creates a source; empty exchanges uses DefaultExchanges
func NewInstrumentSource(client *Client, exchanges ...string) *InstrumentSource {
	if len(exchanges) == 0 {
		exchanges = DefaultExchanges
	}
	return &InstrumentSource{client: client, exchanges: exchanges}
}

// Instruments implements contracts.InstrumentSource
func (s *InstrumentSource) Instruments(ctx context.Context) ([]contracts.Instrument, error) {
	var all []contracts.Instrument
	for _, exch := range s.exchanges {
		body, err := s.client.get(ctx, "/instruments/"+exch, nil)
		if err != nil {
			return nil, fmt.Errorf("instruments %s: %w", exch, err)
		}
		rows, err := ParseInstruments(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("instruments %s: %w", exch, err)
		}
		all = append(all, rows...)
	}

	s.client.logger.WithFields(map[string]interface{}{
		"exchanges":   s.exchanges,
		"instruments": len(all),
	}).Info("Instrument master loaded")

	return all, nil
}

// ParseInstruments reads the instrument master CSV.
// Columns are located by header name; rows with an unparseable token are skipped.
func ParseInstruments(r io.Reader) ([]contracts.Instrument, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	for _, required := range []string{"instrument_token", "tradingsymbol", "exchange"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var out []contracts.Instrument
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		token, err := strconv.ParseInt(field(rec, "instrument_token"), 10, 64)
		if err != nil {
			continue
		}
		tick, _ := strconv.ParseFloat(field(rec, "tick_size"), 64)
		lot, _ := strconv.Atoi(field(rec, "lot_size"))

		out = append(out, contracts.Instrument{
			InstrumentToken: token,
			Exchange:        field(rec, "exchange"),
			TradingSymbol:   field(rec, "tradingsymbol"),
			Name:            field(rec, "name"),
			InstrumentType:  field(rec, "instrument_type"),
			Segment:         field(rec, "segment"),
			TickSize:        tick,
			LotSize:         lot,
		})
	}
	return out, nil
}
