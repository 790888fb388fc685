package s1_universe

import (
	"regexp"
	"strings"

	"github.com/wonny/aegis-picker/internal/contracts"
)

var (
	legalSuffix = regexp.MustCompile(`\b(limited|ltd|inc|co)\b`)
	nonAlnum    = regexp.MustCompile(`[^a-z0-9]`)
)

// Alias is one lookup key and the symbol it resolves to
type Alias struct {
	Key    string
	Symbol string
}

// AliasIndex maps lower-cased names and tickers to universe symbols.
// 반복 순서는 유니버스 삽입 순서 (결정적)
type AliasIndex struct {
	aliases []Alias
	seen    map[string]struct{}
}

// NewAliasIndex builds the index from the day's universe.
// A key claimed by an earlier entry keeps its first symbol.
func NewAliasIndex(universe []contracts.UniverseEntry) *AliasIndex {
	idx := &AliasIndex{seen: make(map[string]struct{}, len(universe)*3)}

	for _, u := range universe {
		name := strings.ToLower(strings.TrimSpace(u.CompanyName))

		idx.add(strings.ToLower(u.Ticker()), u.Symbol)
		idx.add(name, u.Symbol)
		idx.add(CompactName(name), u.Symbol)
	}
	return idx
}

func (a *AliasIndex) add(key, symbol string) {
	if key == "" {
		return
	}
	if _, ok := a.seen[key]; ok {
		return
	}
	a.seen[key] = struct{}{}
	a.aliases = append(a.aliases, Alias{Key: key, Symbol: symbol})
}

// Aliases returns the aliases in insertion order
func (a *AliasIndex) Aliases() []Alias {
	return a.aliases
}

// Len returns the number of aliases
func (a *AliasIndex) Len() int {
	return len(a.aliases)
}

// CompactName strips legal suffixes and every non-alphanumeric rune
// 예: "hindustan aeronautics ltd." → "hindustanaeronautics"
func CompactName(lowerName string) string {
	s := legalSuffix.ReplaceAllString(lowerName, "")
	return nonAlnum.ReplaceAllString(s, "")
}
