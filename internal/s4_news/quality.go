package s4_news

import (
	"math"
	"regexp"
	"strings"

	"github.com/wonny/aegis-picker/internal/contracts"
)

// DefaultSourceWeight applies to hosts missing from the quality table
const DefaultSourceWeight = 0.6

var sourceWeights = map[string]float64{
	"livemint.com":                 0.85,
	"economictimes.indiatimes.com": 0.85,
	"moneycontrol.com":             0.85,
	"cnbctv18.com":                 0.8,
	"timesofindia.indiatimes.com":  0.65,
	"reuters.com":                  0.9,
	"bloomberg.com":                0.95,
	"nseindia.com":                 1.0, // 공시
}

var officialHosts = map[string]struct{}{
	"nseindia.com": {},
}

var hedgeWords = regexp.MustCompile(`(?i)\b(reportedly|sources say|may|considering|mulling|rumour|rumor|speculation)\b`)

// CanonicalHost lower-cases a host and drops a leading "www."
func CanonicalHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(h, "www.")
}

// lookupHost matches the host or its nearest listed parent domain
// 예: m.economictimes.indiatimes.com → economictimes.indiatimes.com
func lookupHost[V any](table map[string]V, host string) (V, bool) {
	h := CanonicalHost(host)
	for h != "" {
		if v, ok := table[h]; ok {
			return v, true
		}
		i := strings.IndexByte(h, '.')
		if i < 0 {
			break
		}
		h = h[i+1:]
	}
	var zero V
	return zero, false
}

// SourceQuality returns the quality weight of a host
func SourceQuality(host string) float64 {
	if w, ok := lookupHost(sourceWeights, host); ok {
		return w
	}
	return DefaultSourceWeight
}

// IsOfficial reports whether host is an exchange filing feed
func IsOfficial(host string) bool {
	_, ok := lookupHost(officialHosts, host)
	return ok
}

// MeanSourceQuality averages the host weights; no hosts scores the default
func MeanSourceQuality(hosts []string) float64 {
	if len(hosts) == 0 {
		return DefaultSourceWeight
	}
	sum := 0.0
	for _, h := range hosts {
		sum += SourceQuality(h)
	}
	return sum / float64(len(hosts))
}

// HasHedgeWords reports whether text reads as rumor
func HasHedgeWords(text string) bool {
	return hedgeWords.MatchString(text)
}

// Freshness decays by half every halfLifeMin minutes since last
func Freshness(ageMin, halfLifeMin float64) float64 {
	if ageMin < 0 {
		ageMin = 0
	}
	if halfLifeMin <= 0 {
		halfLifeMin = 120
	}
	return math.Pow(0.5, ageMin/halfLifeMin)
}

// Novelty falls by 0.2 for every extra same-symbol story in the window
func Novelty(sameSymbolClusters int) float64 {
	if sameSymbolClusters <= 0 {
		return 1
	}
	return math.Max(0, 1-float64(sameSymbolClusters-1)/5)
}

// SignedImpact applies the catalyst direction to its impact
func SignedImpact(direction contracts.Direction, impact float64) float64 {
	switch direction {
	case contracts.DirectionPositive:
		return impact
	case contracts.DirectionNegative:
		return -impact
	default:
		return 0.2 * impact
	}
}
