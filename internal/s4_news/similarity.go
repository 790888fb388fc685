package s4_news

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	legalSuffix = regexp.MustCompile(`\b(limited|ltd|inc|co)\b`)
	titleNoise  = regexp.MustCompile(`\b(limited|ltd|inc|co|the|a|an|to|for|of|and|on|in|with)\b`)
	punctuation = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Similarity returns the Sørensen–Dice coefficient of the character bigrams
// of a and b, ignoring whitespace. Identical inputs score 1.
func Similarity(a, b string) float64 {
	x := stripSpace(a)
	y := stripSpace(b)
	if x == y {
		return 1
	}
	rx, ry := []rune(x), []rune(y)
	if len(rx) < 2 || len(ry) < 2 {
		return 0
	}

	type bigram [2]rune
	counts := make(map[bigram]int, len(rx))
	for i := 0; i < len(rx)-1; i++ {
		counts[bigram{rx[i], rx[i+1]}]++
	}

	common := 0
	for i := 0; i < len(ry)-1; i++ {
		g := bigram{ry[i], ry[i+1]}
		if counts[g] > 0 {
			counts[g]--
			common++
		}
	}
	return 2 * float64(common) / float64(len(rx)+len(ry)-2)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// NormalizeText prepares free text for alias matching
// 소문자 → 법인 접미사 제거 → 구두점 제거 → 공백 정리
func NormalizeText(s string) string {
	s = strings.ToLower(s)
	s = legalSuffix.ReplaceAllString(s, "")
	s = punctuation.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// NormalizeTitle prepares a headline for clustering.
// Stop words and punctuation become spaces so "5,000" and "5 000" compare equal.
func NormalizeTitle(s string) string {
	s = strings.ToLower(s)
	s = titleNoise.ReplaceAllString(s, " ")
	s = punctuation.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
