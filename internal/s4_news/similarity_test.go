package s4_news

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "infosys", "infosys", 1},
		{"both empty", "", "", 1},
		{"whitespace ignored", "hindustan aeronautics", "hindustanaeronautics", 1},
		{"classic pair", "night", "nacht", 0.25},
		{"too short", "a", "ab", 0},
		{"disjoint", "abc", "xyz", 0},
		{"suffix", "hindustanaeronautic", "hindustanaeronautics", 36.0 / 37.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
			assert.InDelta(t, tt.want, Similarity(tt.b, tt.a), 1e-9)
		})
	}
}

func TestSimilarityRepeatedBigrams(t *testing.T) {
	// "aaaa" has three "aa" bigrams, "aa" has one → 2·1/(3+1)
	assert.InDelta(t, 0.5, Similarity("aaaa", "aa"), 1e-9)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hindustan aeronautics shares", NormalizeText("Hindustan Aeronautics Ltd. shares!"))
	assert.Equal(t, "lt bags order", NormalizeText("L&T bags order"))
	assert.Equal(t, "", NormalizeText("  ...  "))

	assert.Equal(t, "hal bags rs 5 000 crore order from defence ministry",
		NormalizeTitle("HAL bags Rs 5,000 crore order from the defence ministry"))
	assert.Equal(t, "l t wins deal", NormalizeTitle("L&T wins a deal"))
}
