package s4_news

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/wonny/aegis-picker/internal/s1_universe"
)

const (
	// DefaultMapThreshold is the minimum window/alias similarity for a fuzzy hit
	DefaultMapThreshold = 0.88

	// DefaultMapMax is the number of symbols one article may map to
	DefaultMapMax = 3

	// shortAliasRunes 이하 별칭(HAL, ITC, BEL)은 단어 단위로만 매칭
	shortAliasRunes = 3

	maxWindowWords = 3
)

// Mapper resolves free text to universe symbols
type Mapper struct {
	aliases   []s1_universe.Alias
	threshold float64
}

// NewMapper creates a mapper over the day's alias index
func NewMapper(index *s1_universe.AliasIndex, threshold float64) *Mapper {
	if threshold <= 0 {
		threshold = DefaultMapThreshold
	}
	var aliases []s1_universe.Alias
	if index != nil {
		aliases = index.Aliases()
	}
	return &Mapper{aliases: aliases, threshold: threshold}
}

// Map returns at most max symbols mentioned in text, best match first.
// Containment hits win outright; fuzzy window matching runs only when there are none.
func (m *Mapper) Map(text string, max int) []string {
	if max <= 0 {
		max = DefaultMapMax
	}
	q := NormalizeText(text)
	if q == "" {
		return nil
	}
	tokens := strings.Fields(q)

	if hits := m.contained(q, tokens, max); len(hits) > 0 {
		return hits
	}
	return m.fuzzy(tokens, max)
}

func (m *Mapper) contained(q string, tokens []string, max int) []string {
	var hits []string
	seen := make(map[string]struct{})

	for _, a := range m.aliases {
		if _, ok := seen[a.Symbol]; ok {
			continue
		}
		if !containsAlias(q, tokens, a.Key) {
			continue
		}
		seen[a.Symbol] = struct{}{}
		hits = append(hits, a.Symbol)
		if len(hits) >= max {
			break
		}
	}
	return hits
}

func containsAlias(q string, tokens []string, key string) bool {
	if utf8.RuneCountInString(key) > shortAliasRunes {
		return strings.Contains(q, key)
	}
	for _, t := range tokens {
		if t == key {
			return true
		}
	}
	return false
}

type fuzzyHit struct {
	symbol string
	score  float64
}

func (m *Mapper) fuzzy(tokens []string, max int) []string {
	windows := slidingWindows(tokens, maxWindowWords)

	var hits []fuzzyHit
	for _, a := range m.aliases {
		for _, w := range windows {
			if s := Similarity(a.Key, w); s >= m.threshold {
				hits = append(hits, fuzzyHit{symbol: a.Symbol, score: s})
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	var out []string
	seen := make(map[string]struct{})
	for _, h := range hits {
		if _, ok := seen[h.symbol]; ok {
			continue
		}
		seen[h.symbol] = struct{}{}
		out = append(out, h.symbol)
		if len(out) >= max {
			break
		}
	}
	return out
}

// slidingWindows joins every run of 1..n adjacent tokens without spaces
// 예: ["hindustan","aeronautics"] → hindustan, aeronautics, hindustanaeronautics
func slidingWindows(tokens []string, n int) []string {
	var out []string
	seen := make(map[string]struct{})
	for size := 1; size <= n; size++ {
		for i := 0; i+size <= len(tokens); i++ {
			w := strings.Join(tokens[i:i+size], "")
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}
