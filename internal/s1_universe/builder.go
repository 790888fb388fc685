package s1_universe

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wonny/aegis-picker/internal/contracts"
)

// Config holds universe filter criteria
type Config struct {
	CashExchange  string   `yaml:"cash_exchange"`  // 현물 거래소 (NSE)
	DerivExchange string   `yaml:"deriv_exchange"` // 파생 거래소 (NFO)
	Exclude       []string `yaml:"exclude"`        // 제외 심볼 (EXCH:TICKER)
	MaxSize       int      `yaml:"max_size"`       // 0 = 제한 없음
}

// DefaultConfig returns the F&O-underlying universe settings
func DefaultConfig() Config {
	return Config{
		CashExchange:  "NSE",
		DerivExchange: "NFO",
		MaxSize:       250,
	}
}

// Builder derives the day's universe from the instrument master:
// cash equities whose company also has stock futures or options.
type Builder struct {
	source contracts.InstrumentSource
	config Config
}

// NewBuilder creates a new Universe Builder
func NewBuilder(source contracts.InstrumentSource, config Config) *Builder {
	return &Builder{
		source: source,
		config: config,
	}
}

// Universe implements contracts.UniverseSource
// ⭐ SSOT: S1 유니버스 생성
func (b *Builder) Universe(ctx context.Context, dateKey string) ([]contracts.UniverseEntry, error) {
	instruments, err := b.source.Instruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load instruments for %s: %w", dateKey, err)
	}
	return b.Build(instruments), nil
}

// Build filters the instrument master into a deduplicated, symbol-sorted universe
func (b *Builder) Build(instruments []contracts.Instrument) []contracts.UniverseEntry {
	// 파생상품이 상장된 기초자산 이름
	fnoNames := make(map[string]struct{})
	for _, in := range instruments {
		if in.Exchange != b.config.DerivExchange {
			continue
		}
		if in.InstrumentType == "FUT" || in.InstrumentType == "OPTSTK" || in.InstrumentType == "CE" || in.InstrumentType == "PE" {
			fnoNames[in.Name] = struct{}{}
		}
	}

	excluded := make(map[string]struct{}, len(b.config.Exclude))
	for _, s := range b.config.Exclude {
		excluded[strings.ToUpper(s)] = struct{}{}
	}

	seen := make(map[string]struct{})
	var out []contracts.UniverseEntry
	for _, in := range instruments {
		if in.Exchange != b.config.CashExchange || in.InstrumentType != "EQ" {
			continue
		}
		if _, ok := fnoNames[in.Name]; !ok {
			continue
		}

		symbol := in.Exchange + ":" + in.TradingSymbol
		if _, ok := excluded[symbol]; ok {
			continue
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}

		out = append(out, contracts.UniverseEntry{
			Symbol:          symbol,
			InstrumentToken: in.InstrumentToken,
			CompanyName:     in.Name,
			TickSize:        in.TickSize,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })

	if b.config.MaxSize > 0 && len(out) > b.config.MaxSize {
		out = out[:b.config.MaxSize]
	}
	return out
}
