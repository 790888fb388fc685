package rss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wonny/aegis-picker/internal/contracts"
	"github.com/wonny/aegis-picker/pkg/httputil"
	"github.com/wonny/aegis-picker/pkg/logger"
)

// browserUA: 일부 언론사 피드는 봇 UA를 차단
const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// maxFeedBytes caps one feed body
const maxFeedBytes = 8 << 20

// Client fetches RSS and Atom feeds
// ⭐ SSOT: 뉴스 피드 HTTP 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	now        func() time.Time
}

// NewClient creates a new feed client
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithModule("rss"),
		now:        time.Now,
	}
}

// Fetch implements contracts.FeedFetcher
func (c *Client) Fetch(ctx context.Context, url string) ([]contracts.FeedItem, error) {
	headers := http.Header{}
	headers.Set("User-Agent", browserUA)
	headers.Set("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := c.httpClient.GetWithHeaders(ctx, url, headers)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	items, err := Parse(io.LimitReader(resp.Body, maxFeedBytes), c.now())
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", url, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"url":   url,
		"items": len(items),
	}).Debug("Fetched feed")

	return items, nil
}
