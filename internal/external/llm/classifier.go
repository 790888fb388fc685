package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/pkg/config"
	"github.com/wonny/aegis-picker/pkg/logger"
)

const defaultMaxTokens = 120

// replyPattern pulls the three fields out of a loosely formatted JSON reply
var replyPattern = regexp.MustCompile(`(?is)"catalyst"\s*:\s*"([^"]+)".*?"direction"\s*:\s*"([^"]+)".*?"impact"\s*:\s*([\d.]+)`)

type messageCreator interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Classifier asks a Claude model for the catalyst of one headline.
// It implements contracts.CatalystModel; callers own the timeout and the rule fallback.
type Classifier struct {
	messages  messageCreator
	model     string
	maxTokens int64
	catalysts []string
	logger    *logger.Logger
}

// NewClassifier creates a classifier; catalysts lists the labels the model may answer with
func NewClassifier(cfg config.LLMConfig, catalysts []string, log *logger.Logger, opts ...option.RequestOption) *Classifier {
	// 재시도는 상위 폴백이 담당
	opts = append([]option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}, opts...)
	client := anthropic.NewClient(opts...)

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Classifier{
		messages:  &client.Messages,
		model:     cfg.Model,
		maxTokens: maxTokens,
		catalysts: catalysts,
		logger:    log.WithModule("llm"),
	}
}

// Classify implements contracts.CatalystModel
func (c *Classifier) Classify(ctx context.Context, title, body string) (contracts.CatalystTag, error) {
	resp, err := c.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(c.prompt(title, body))),
		},
	})
	if err != nil {
		return contracts.CatalystTag{}, fmt.Errorf("classify headline: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	tag, err := ParseReply(text.String())
	if err != nil {
		c.logger.WithField("reply", text.String()).Debug("Unparseable model reply")
		return contracts.CatalystTag{}, err
	}
	return tag, nil
}

func (c *Classifier) prompt(title, body string) string {
	return fmt.Sprintf(`Classify the main catalyst for this stock headline for intraday trading.
Return compact JSON only: {"catalyst":"%s","direction":"pos|neg|neu","impact":0.0-1.0}

Title: %q
Body: %q`, strings.Join(c.catalysts, "|"), title, body)
}

// ParseReply extracts catalyst, direction and impact from a model reply.
// Impact is clamped to [0,1]; anything else yields ErrUnparseable.
func ParseReply(text string) (contracts.CatalystTag, error) {
	m := replyPattern.FindStringSubmatch(text)
	if m == nil {
		return contracts.CatalystTag{}, contracts.ErrUnparseable
	}

	impact, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return contracts.CatalystTag{}, fmt.Errorf("impact %q: %w", m[3], contracts.ErrUnparseable)
	}
	impact = max(0, min(1, impact))

	direction := normalizeDirection(m[2])
	if !direction.Valid() {
		return contracts.CatalystTag{}, fmt.Errorf("direction %q: %w", m[2], contracts.ErrUnparseable)
	}

	return contracts.CatalystTag{
		Catalyst:   strings.ToLower(strings.TrimSpace(m[1])),
		Direction:  direction,
		Impact:     impact,
		Provenance: contracts.ProvenanceModel,
	}, nil
}

func normalizeDirection(s string) contracts.Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pos", "positive":
		return contracts.DirectionPositive
	case "neg", "negative":
		return contracts.DirectionNegative
	case "neu", "neutral":
		return contracts.DirectionNeutral
	default:
		return contracts.Direction(s)
	}
}
