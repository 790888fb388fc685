package publish

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/aegis-picker/internal/contracts"
)

// Run document versions stored in pick_runs.doc_version
const (
	RunDocVersionLegacy  = 1
	RunDocVersionCurrent = 2
)

// RunDocV2 is the canonical stored run document
type RunDocV2 struct {
	Version int `json:"version"`
	contracts.PickRun
}

// RunDocV1 is the legacy run document (top5/shortlisted item lists, camelCase keys)
type RunDocV1 struct {
	TS           time.Time              `json:"ts"`
	DateKey      string                 `json:"dateKey"`
	Pick         *legacyItem            `json:"pick"`
	Top5         []legacyItem           `json:"top5"`
	Shortlisted  []legacyItem           `json:"shortlisted"`
	UniverseSize int                    `json:"universeSize"`
	FilteredSize int                    `json:"filteredSize"`
	Rules        map[string]interface{} `json:"rules"`
}

// legacyItem accepts a bare symbol string or an object in any of the historical shapes
type legacyItem struct {
	Symbol       string
	TechTotal    float64
	NewsScore    float64
	BlendedTotal float64
}

func (l *legacyItem) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		l.Symbol = normalizeSymbol(s)
		return nil
	}

	var raw struct {
		Symbol        string   `json:"symbol"`
		TradingSymbol string   `json:"tradingsymbol"`
		Exchange      string   `json:"exchange"`
		Ticker        string   `json:"ticker"`
		TechTotal     *float64 `json:"techTotal"`
		TechScore     *float64 `json:"techScore"`
		NewsScore     *float64 `json:"newsScore"`
		BlendedTotal  *float64 `json:"blendedTotal"`
		Total         *float64 `json:"total"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch {
	case raw.Symbol != "":
		l.Symbol = raw.Symbol
	case raw.TradingSymbol != "":
		l.Symbol = raw.TradingSymbol
	case raw.Exchange != "" && raw.Ticker != "":
		l.Symbol = raw.Exchange + ":" + raw.Ticker
	}
	l.Symbol = normalizeSymbol(l.Symbol)
	l.TechTotal = firstOf(raw.TechTotal, raw.TechScore)
	l.NewsScore = firstOf(raw.NewsScore)
	l.BlendedTotal = firstOf(raw.BlendedTotal, raw.Total)
	return nil
}

func (l legacyItem) candidate() contracts.Candidate {
	return contracts.Candidate{
		Symbol:       l.Symbol,
		TechScore:    l.TechTotal,
		NewsScore:    l.NewsScore,
		BlendedTotal: l.BlendedTotal,
	}
}

// toPickRun converts the legacy shape at the ingress boundary
func (d RunDocV1) toPickRun(id string, loc *time.Location) contracts.PickRun {
	run := contracts.PickRun{
		ID:           id,
		Timestamp:    d.TS,
		DateKey:      d.DateKey,
		UniverseSize: d.UniverseSize,
		FilteredSize: d.FilteredSize,
		TopN:         []contracts.Candidate{},
		Shortlisted:  []string{},
	}
	if run.DateKey == "" && !d.TS.IsZero() {
		run.DateKey = d.TS.In(loc).Format("2006-01-02")
	}

	for _, it := range d.Top5 {
		if it.Symbol != "" {
			run.TopN = append(run.TopN, it.candidate())
		}
	}
	for _, it := range d.Shortlisted {
		if it.Symbol != "" {
			run.Shortlisted = append(run.Shortlisted, it.Symbol)
		}
	}
	run.ShortlistedCount = len(run.Shortlisted)

	if d.Pick != nil && d.Pick.Symbol != "" {
		p := d.Pick.candidate()
		run.Pick = &p
	} else if len(run.TopN) > 0 {
		p := run.TopN[0]
		run.Pick = &p
	}

	if v, ok := d.Rules["live"].(bool); ok {
		run.Rules.Live = v
	}
	return run
}

// EncodeRun serializes a run as the current document version
func EncodeRun(run *contracts.PickRun) ([]byte, error) {
	return json.Marshal(RunDocV2{Version: RunDocVersionCurrent, PickRun: *run})
}

// DecodeRun converts a stored document of any known version into a PickRun.
// version 0 sniffs the shape: a "top5" key marks the legacy document.
// Legacy date keys are derived in loc when absent.
func DecodeRun(version int, id string, doc []byte, loc *time.Location) (*contracts.PickRun, error) {
	if version == 0 {
		version = sniffVersion(doc)
	}

	switch version {
	case RunDocVersionCurrent:
		var d RunDocV2
		if err := json.Unmarshal(doc, &d); err != nil {
			return nil, fmt.Errorf("decode run v2: %w", err)
		}
		run := d.PickRun
		if run.ID == "" {
			run.ID = id
		}
		return &run, nil

	case RunDocVersionLegacy:
		var d RunDocV1
		if err := json.Unmarshal(doc, &d); err != nil {
			return nil, fmt.Errorf("decode run v1: %w", err)
		}
		run := d.toPickRun(id, loc)
		return &run, nil

	default:
		return nil, fmt.Errorf("unknown run document version %d", version)
	}
}

func sniffVersion(doc []byte) int {
	var peek map[string]json.RawMessage
	if err := json.Unmarshal(doc, &peek); err != nil {
		return RunDocVersionCurrent
	}
	if _, ok := peek["top5"]; ok {
		return RunDocVersionLegacy
	}
	return RunDocVersionCurrent
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func firstOf(vals ...*float64) float64 {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return 0
}
