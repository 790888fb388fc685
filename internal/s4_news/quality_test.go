package s4_news

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/aegis-picker/internal/contracts"
)

func TestSourceQuality(t *testing.T) {
	tests := []struct {
		host string
		want float64
	}{
		{"bloomberg.com", 0.95},
		{"www.reuters.com", 0.9},
		{"LiveMint.com", 0.85},
		{"m.economictimes.indiatimes.com", 0.85},
		{"cnbctv18.com", 0.8},
		{"timesofindia.indiatimes.com", 0.65},
		{"nseindia.com", 1.0},
		{"indiatimes.com", DefaultSourceWeight},
		{"example.org", DefaultSourceWeight},
		{"", DefaultSourceWeight},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SourceQuality(tt.host), tt.host)
	}
}

func TestIsOfficial(t *testing.T) {
	assert.True(t, IsOfficial("nseindia.com"))
	assert.True(t, IsOfficial("www.nseindia.com"))
	assert.False(t, IsOfficial("reuters.com"))
	assert.False(t, IsOfficial("fakenseindia.com"))
}

func TestMeanSourceQuality(t *testing.T) {
	assert.Equal(t, DefaultSourceWeight, MeanSourceQuality(nil))
	assert.InDelta(t, 0.9, MeanSourceQuality([]string{"livemint.com", "bloomberg.com"}), 1e-9)
}

func TestHasHedgeWords(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Infosys reportedly in talks", true},
		{"Sources say deal is near", true},
		{"Board may consider split", true},
		{"Promoter mulling stake sale", true},
		{"Market RUMOUR lifts stock", true},
		{"Mayor inaugurates plant", false},
		{"Infosys wins deal", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HasHedgeWords(tt.text), tt.text)
	}
}

func TestFreshness(t *testing.T) {
	assert.InDelta(t, 1.0, Freshness(0, 120), 1e-9)
	assert.InDelta(t, 0.5, Freshness(120, 120), 1e-9)
	assert.InDelta(t, 0.25, Freshness(240, 120), 1e-9)
	assert.InDelta(t, 1.0, Freshness(-5, 120), 1e-9, "future timestamps clamp to now")
	assert.InDelta(t, 0.5, Freshness(120, 0), 1e-9, "default half-life")
}

func TestNovelty(t *testing.T) {
	assert.Equal(t, 1.0, Novelty(0))
	assert.Equal(t, 1.0, Novelty(1))
	assert.InDelta(t, 0.8, Novelty(2), 1e-9)
	assert.InDelta(t, 0.2, Novelty(5), 1e-9)
	assert.Equal(t, 0.0, Novelty(6))
	assert.Equal(t, 0.0, Novelty(10))
}

func TestSignedImpact(t *testing.T) {
	assert.Equal(t, 0.7, SignedImpact(contracts.DirectionPositive, 0.7))
	assert.Equal(t, -0.7, SignedImpact(contracts.DirectionNegative, 0.7))
	assert.InDelta(t, 0.04, SignedImpact(contracts.DirectionNeutral, 0.2), 1e-9)
}
