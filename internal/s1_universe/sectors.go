package s1_universe

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/aegis-picker/internal/contracts"
)

// SectorSource fills missing sectors from a symbol → sector map.
// The instrument master carries no sector, so the per-sector cap needs this
// when the universe comes from the broker.
type SectorSource struct {
	source  contracts.UniverseSource
	sectors map[string]string
}

// NewSectorSource wraps source with the given map
func NewSectorSource(source contracts.UniverseSource, sectors map[string]string) *SectorSource {
	return &SectorSource{source: source, sectors: sectors}
}

// LoadSectorFile reads a YAML mapping of symbol to sector
// 예: "NSE:HAL": Defence
func LoadSectorFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sector file: %w", err)
	}

	var sectors map[string]string
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&sectors); err != nil {
		return nil, fmt.Errorf("decode sector file: %w", err)
	}
	return sectors, nil
}

// Universe implements contracts.UniverseSource; sectors already set are kept
func (s *SectorSource) Universe(ctx context.Context, dateKey string) ([]contracts.UniverseEntry, error) {
	entries, err := s.source.Universe(ctx, dateKey)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Sector != "" {
			continue
		}
		entries[i].Sector = s.sectors[entries[i].Symbol]
	}
	return entries, nil
}
