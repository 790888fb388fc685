package contracts

import "time"

// FeedItem is one raw article pulled from a news feed
type FeedItem struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	SourceHost  string    `json:"source_host"`
	PublishedAt time.Time `json:"published_at"`
}

// NewsEvent is an article mapped to one symbol
// ⭐ SSOT: ID = sha1(url|title) + ":" + symbol (기사×종목 단위 멱등 키)
type NewsEvent struct {
	ID          string    `json:"id"`
	ArticleID   string    `json:"article_id"`
	Symbol      string    `json:"symbol"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	SourceHost  string    `json:"source_host"`
	Timestamp   time.Time `json:"timestamp"`
}

// StoryCluster groups near-duplicate headlines about one symbol
type StoryCluster struct {
	Symbol         string      `json:"symbol"`
	Representative string      `json:"representative"` // 정규화된 대표 제목
	Members        []NewsEvent `json:"members"`
	Sources        []string    `json:"sources"` // 호스트 집합 (삽입 순서)
	FirstSeen      time.Time   `json:"first_seen"`
	LastSeen       time.Time   `json:"last_seen"`
}

// Hits returns the number of member events
func (c StoryCluster) Hits() int {
	return len(c.Members)
}

// HasSource reports whether host already contributed to the cluster
func (c StoryCluster) HasSource(host string) bool {
	for _, s := range c.Sources {
		if s == host {
			return true
		}
	}
	return false
}

// Direction is the sign of a catalyst
type Direction string

const (
	DirectionPositive Direction = "pos"
	DirectionNegative Direction = "neg"
	DirectionNeutral  Direction = "neu"
)

// Valid reports whether d is one of the known directions
func (d Direction) Valid() bool {
	return d == DirectionPositive || d == DirectionNegative || d == DirectionNeutral
}

// Provenance records which classifier produced a tag
type Provenance string

const (
	ProvenanceRule  Provenance = "rule"
	ProvenanceModel Provenance = "model"
)

// CatalystTag is the classification of a headline
type CatalystTag struct {
	Catalyst   string     `json:"catalyst"`
	Direction  Direction  `json:"direction"`
	Impact     float64    `json:"impact"`
	Confidence float64    `json:"confidence"`
	Provenance Provenance `json:"provenance"`
}

// NewsCandidate is the scored news view of one symbol (S4)
type NewsCandidate struct {
	Symbol         string     `json:"symbol"`
	Score          float64    `json:"score"`
	Catalyst       string     `json:"catalyst"`
	Direction      Direction  `json:"direction"`
	Impact         float64    `json:"impact"`
	Provenance     Provenance `json:"provenance"`
	Freshness      float64    `json:"freshness"`
	Specificity    float64    `json:"specificity"`
	Novelty        float64    `json:"novelty"`
	RumorPenalty   float64    `json:"rumor_penalty"`
	SourceCount    int        `json:"source_count"`
	Hits           int        `json:"hits"`
	LastSeen       time.Time  `json:"last_seen"`
	SampleHeadline string     `json:"sample_headline"`
	SampleURL      string     `json:"sample_url"`
	Reasons        []string   `json:"reasons"`
}
