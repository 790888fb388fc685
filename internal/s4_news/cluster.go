package s4_news

import (
	"sort"
	"time"

	"github.com/wonny/aegis-picker/internal/contracts"
)

// ClusterConfig controls story clustering
type ClusterConfig struct {
	WindowMin    int     // 이 시간(분) 이상 조용한 클러스터는 종료
	SimThreshold float64 // 대표 제목과의 최소 유사도
}

// DefaultClusterConfig returns the standard clustering parameters
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{
		WindowMin:    120,
		SimThreshold: 0.84,
	}
}

type openCluster struct {
	cluster    contracts.StoryCluster
	norms      []string  // 멤버별 정규화 제목
	centrality []float64 // 멤버별 다른 멤버와의 유사도 합
}

// Cluster groups events into per-symbol stories.
// Events are ordered by (timestamp, id) first, so the result does not depend
// on arrival order. Output is sorted by symbol, then FirstSeen.
func Cluster(events []contracts.NewsEvent, cfg ClusterConfig) []contracts.StoryCluster {
	if cfg.WindowMin <= 0 {
		cfg.WindowMin = DefaultClusterConfig().WindowMin
	}
	if cfg.SimThreshold <= 0 {
		cfg.SimThreshold = DefaultClusterConfig().SimThreshold
	}
	window := time.Duration(cfg.WindowMin) * time.Minute

	bySymbol := make(map[string][]contracts.NewsEvent)
	for _, ev := range events {
		bySymbol[ev.Symbol] = append(bySymbol[ev.Symbol], ev)
	}
	symbols := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var out []contracts.StoryCluster
	for _, sym := range symbols {
		out = append(out, clusterSymbol(bySymbol[sym], window, cfg.SimThreshold)...)
	}
	return out
}

func clusterSymbol(events []contracts.NewsEvent, window time.Duration, threshold float64) []contracts.StoryCluster {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		return events[i].ID < events[j].ID
	})

	var done []contracts.StoryCluster
	var open []*openCluster

	for _, ev := range events {
		// 1. 유휴 클러스터 종료
		kept := open[:0]
		for _, c := range open {
			if ev.Timestamp.Sub(c.cluster.LastSeen) >= window {
				done = append(done, c.cluster)
				continue
			}
			kept = append(kept, c)
		}
		open = kept

		// 2. 가장 유사한 클러스터 (동점이면 먼저 찾은 것)
		norm := NormalizeTitle(ev.Title)
		best, bestSim := -1, -1.0
		for i, c := range open {
			if s := Similarity(norm, c.cluster.Representative); s > bestSim {
				best, bestSim = i, s
			}
		}

		if best >= 0 && bestSim >= threshold {
			attach(open[best], ev, norm)
			continue
		}

		// 3. 새 클러스터
		c := &openCluster{
			cluster: contracts.StoryCluster{
				Symbol:         ev.Symbol,
				Representative: norm,
				Members:        []contracts.NewsEvent{ev},
				FirstSeen:      ev.Timestamp,
				LastSeen:       ev.Timestamp,
			},
			norms:      []string{norm},
			centrality: []float64{0},
		}
		if ev.SourceHost != "" {
			c.cluster.Sources = []string{ev.SourceHost}
		}
		open = append(open, c)
	}

	for _, c := range open {
		done = append(done, c.cluster)
	}
	sort.SliceStable(done, func(i, j int) bool {
		return done[i].FirstSeen.Before(done[j].FirstSeen)
	})
	return done
}

func attach(c *openCluster, ev contracts.NewsEvent, norm string) {
	c.cluster.Members = append(c.cluster.Members, ev)
	c.cluster.LastSeen = ev.Timestamp
	if ev.SourceHost != "" && !c.cluster.HasSource(ev.SourceHost) {
		c.cluster.Sources = append(c.cluster.Sources, ev.SourceHost)
	}

	// 대표 = 다른 멤버들과의 유사도 합이 가장 큰 제목 (동점이면 먼저 들어온 것)
	sum := 0.0
	for i, other := range c.norms {
		s := Similarity(norm, other)
		c.centrality[i] += s
		sum += s
	}
	c.norms = append(c.norms, norm)
	c.centrality = append(c.centrality, sum)

	best := 0
	for i := 1; i < len(c.centrality); i++ {
		if c.centrality[i] > c.centrality[best] {
			best = i
		}
	}
	c.cluster.Representative = c.norms[best]
}
