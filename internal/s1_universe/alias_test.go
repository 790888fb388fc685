package s1_universe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/aegis-picker/internal/contracts"
)

func TestAliasIndex(t *testing.T) {
	universe := []contracts.UniverseEntry{
		{Symbol: "NSE:HAL", CompanyName: "Hindustan Aeronautics Ltd."},
		{Symbol: "NSE:HDFCBANK", CompanyName: "HDFC Bank Limited"},
		{Symbol: "NSE:HAL2", CompanyName: "hal"}, // "hal" 키는 이미 선점됨
	}

	idx := NewAliasIndex(universe)

	keys := make(map[string]string)
	var order []string
	for _, a := range idx.Aliases() {
		keys[a.Key] = a.Symbol
		order = append(order, a.Key)
	}

	assert.Equal(t, "NSE:HAL", keys["hal"])
	assert.Equal(t, "NSE:HAL", keys["hindustan aeronautics ltd."])
	assert.Equal(t, "NSE:HAL", keys["hindustanaeronautics"])
	assert.Equal(t, "NSE:HDFCBANK", keys["hdfcbank"])
	assert.Equal(t, "NSE:HDFCBANK", keys["hdfc bank limited"])
	assert.Equal(t, "NSE:HAL2", keys["hal2"])
	assert.Equal(t, []string{"hal", "hindustan aeronautics ltd.", "hindustanaeronautics"}, order[:3])
}

func TestCompactName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"reliance industries limited", "relianceindustries"},
		{"larsen & toubro ltd", "larsentoubro"},
		{"coal india", "coalindia"}, // 단어 경계에서만 "co" 제거
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CompactName(tt.in), tt.in)
	}
}
