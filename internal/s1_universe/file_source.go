package s1_universe

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/aegis-picker/internal/contracts"
)

// FileSource reads a fixed universe from a YAML file (off-hours runs, tests, sector tags)
type FileSource struct {
	path string
}

type fileEntry struct {
	Symbol string  `yaml:"symbol"`
	Token  int64   `yaml:"token"`
	Name   string  `yaml:"name"`
	Tick   float64 `yaml:"tick_size"`
	Sector string  `yaml:"sector"`
}

// NewFileSource creates a FileSource for path
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Universe implements contracts.UniverseSource; the same list is served for every date key
func (f *FileSource) Universe(_ context.Context, _ string) ([]contracts.UniverseEntry, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read universe file: %w", err)
	}
	return ParseUniverseYAML(data)
}

// ParseUniverseYAML decodes a list of universe entries, rejecting unknown fields and duplicates
func ParseUniverseYAML(data []byte) ([]contracts.UniverseEntry, error) {
	var rows []fileEntry
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode universe file: %w", err)
	}

	seen := make(map[string]struct{}, len(rows))
	out := make([]contracts.UniverseEntry, 0, len(rows))
	for _, r := range rows {
		if r.Symbol == "" {
			return nil, fmt.Errorf("universe entry without symbol")
		}
		if _, dup := seen[r.Symbol]; dup {
			return nil, fmt.Errorf("duplicate universe symbol %s", r.Symbol)
		}
		seen[r.Symbol] = struct{}{}

		tick := r.Tick
		if tick == 0 {
			tick = 0.05
		}
		out = append(out, contracts.UniverseEntry{
			Symbol:          r.Symbol,
			InstrumentToken: r.Token,
			CompanyName:     r.Name,
			TickSize:        tick,
			Sector:          r.Sector,
		})
	}
	return out, nil
}
