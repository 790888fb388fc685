package s4_news

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/metrics"
)

const (
	ruleConfidence  = 0.6
	modelConfidence = 0.8

	// DefaultModelTimeout bounds one model classification
	DefaultModelTimeout = 4 * time.Second
)

// Fall-through reasons (metrics label)
const (
	FallbackTimeout     = "timeout"
	FallbackError       = "error"
	FallbackUnparseable = "unparseable"
)

type catalystRule struct {
	catalyst  string
	direction contracts.Direction
	impact    float64
	keywords  []string
}

// ⭐ SSOT: 순서가 우선순위 (첫 매칭 규칙 채택)
var catalystRules = []catalystRule{
	{"earnings_beat", contracts.DirectionPositive, 0.8, []string{"beats estimates", "beat estimates", "profit surges", "record profit"}},
	{"earnings_miss", contracts.DirectionNegative, 0.8, []string{"misses estimates", "loss widens", "profit falls"}},
	{"order_win", contracts.DirectionPositive, 0.7, []string{"wins order", "bags order", "contract win", "secures order"}},
	{"regulatory_ok", contracts.DirectionPositive, 0.7, []string{"approval", "clears", "green light", "nod from"}},
	{"pledge_increase", contracts.DirectionNegative, 0.7, []string{"promoter pledge", "pledge increased"}},
	{"pledge_release", contracts.DirectionPositive, 0.5, []string{"pledge reduced", "pledge released"}},
	{"buyback", contracts.DirectionPositive, 0.5, []string{"buyback"}},
	{"mna", contracts.DirectionPositive, 0.4, []string{"acquisition", "merger", "amalgamation"}},
	{"downgrade", contracts.DirectionNegative, 0.6, []string{"downgrade"}},
	{"upgrade", contracts.DirectionPositive, 0.6, []string{"upgrade"}},
	{"raid_fraud", contracts.DirectionNegative, 0.9, []string{"raid", "fraud", "probe", "ed raids", "cbi raids"}},
	{"accident_fire", contracts.DirectionNegative, 0.8, []string{"fire", "accident", "blast", "shutdown"}},
}

// Catalysts lists the rule table's catalyst names in priority order
func Catalysts() []string {
	out := make([]string, 0, len(catalystRules)+1)
	for _, r := range catalystRules {
		out = append(out, r.catalyst)
	}
	return append(out, "other")
}

// RuleClassifier tags headlines with the ordered keyword table
type RuleClassifier struct{}

// Tag returns the first matching rule, or a neutral "other" tag
func (RuleClassifier) Tag(title, body string) contracts.CatalystTag {
	text := strings.ToLower(title + " " + body)
	for _, r := range catalystRules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return contracts.CatalystTag{
					Catalyst:   r.catalyst,
					Direction:  r.direction,
					Impact:     r.impact,
					Confidence: ruleConfidence,
					Provenance: contracts.ProvenanceRule,
				}
			}
		}
	}
	return contracts.CatalystTag{
		Catalyst:   "other",
		Direction:  contracts.DirectionNeutral,
		Impact:     0.2,
		Confidence: 0.4,
		Provenance: contracts.ProvenanceRule,
	}
}

// Classify implements contracts.CatalystModel; it never fails
func (r RuleClassifier) Classify(_ context.Context, title, body string) (contracts.CatalystTag, error) {
	return r.Tag(title, body), nil
}

// FallbackClassifier tries the model first and falls through to the rule table
// on timeout, error, or an unusable reply.
type FallbackClassifier struct {
	model   contracts.CatalystModel
	rules   RuleClassifier
	timeout time.Duration
	metrics *metrics.Registry
	logger  *logger.Logger
}

// NewFallbackClassifier creates a classifier; a nil model means rules only
func NewFallbackClassifier(model contracts.CatalystModel, timeout time.Duration, m *metrics.Registry, log *logger.Logger) *FallbackClassifier {
	if timeout <= 0 {
		timeout = DefaultModelTimeout
	}
	return &FallbackClassifier{
		model:   model,
		timeout: timeout,
		metrics: m,
		logger:  log.WithModule("catalyst"),
	}
}

// Classify implements contracts.CatalystModel; it never fails
func (c *FallbackClassifier) Classify(ctx context.Context, title, body string) (contracts.CatalystTag, error) {
	tag, _ := c.classify(ctx, title, body)
	return tag, nil
}

// classify returns the tag and the fall-through reason ("" when the model answered)
func (c *FallbackClassifier) classify(ctx context.Context, title, body string) (contracts.CatalystTag, string) {
	if c.model == nil {
		return c.rules.Tag(title, body), ""
	}

	mctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tag, err := c.model.Classify(mctx, title, body)
	if err == nil {
		if normalized, ok := normalizeModelTag(tag); ok {
			return normalized, ""
		}
		err = contracts.ErrUnparseable
	}

	reason := FallbackError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = FallbackTimeout
	case errors.Is(err, contracts.ErrUnparseable):
		reason = FallbackUnparseable
	}
	c.metrics.CountFallback(reason)
	c.logger.WithError(err).WithField("reason", reason).Debug("Catalyst model fell through to rules")

	return c.rules.Tag(title, body), reason
}

func normalizeModelTag(tag contracts.CatalystTag) (contracts.CatalystTag, bool) {
	tag.Catalyst = strings.TrimSpace(tag.Catalyst)
	tag.Direction = contracts.Direction(strings.ToLower(string(tag.Direction)))
	if tag.Catalyst == "" || !tag.Direction.Valid() || math.IsNaN(tag.Impact) {
		return tag, false
	}
	tag.Impact = clamp01(tag.Impact)
	tag.Confidence = modelConfidence
	tag.Provenance = contracts.ProvenanceModel
	return tag, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
