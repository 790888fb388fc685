package kite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/wonny/aegis-picker/pkg/config"
	"github.com/wonny/aegis-picker/pkg/httputil"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/metrics"
)

const (
	apiVersion = "3"

	// 연속 실패 시 차단, 30초 후 1건으로 재시도
	breakerFailures = 5
	breakerTimeout  = 30 * time.Second

	maxErrorBody = 512
)

// APIError is a non-2xx response from the broker API
type APIError struct {
	Status    int
	ErrorType string
	Message   string
}

func (e *APIError) Error() string {
	if e.ErrorType != "" {
		return fmt.Sprintf("kite %d %s: %s", e.Status, e.ErrorType, e.Message)
	}
	return fmt.Sprintf("kite %d: %s", e.Status, e.Message)
}

// Client talks to the Kite Connect REST API
// ⭐ SSOT: 시세/히스토리/종목 마스터 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	breaker    *gobreaker.CircuitBreaker
	cfg        config.KiteConfig
	loc        *time.Location
	logger     *logger.Logger
}

// NewClient creates a rate-limited, circuit-broken client.
// Retries are disabled; every call already carries a per-call deadline.
func NewClient(cfg config.KiteConfig, loc *time.Location, m *metrics.Registry, log *logger.Logger) *Client {
	log = log.WithModule("kite")

	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	httpClient := httputil.NewWithTimeout(log, cfg.Timeout).
		DisableRetry().
		WithRateLimiter(rate.NewLimiter(limit, burst))

	settings := gobreaker.Settings{
		Name:        "kite",
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.SetBreakerState(name, int(to))
			log.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	if loc == nil {
		loc = time.UTC
	}

	return &Client{
		httpClient: httpClient,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		cfg:        cfg,
		loc:        loc,
		logger:     log,
	}
}

// isSuccessful keeps caller-side failures from tripping the breaker
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status < 500 && apiErr.Status != http.StatusTooManyRequests
	}
	return false
}

// get performs an authenticated GET and returns the body of a 2xx response
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, endpoint)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("kite %s: %w", path, err)
		}
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	headers := http.Header{}
	headers.Set("X-Kite-Version", apiVersion)
	headers.Set("Authorization", fmt.Sprintf("token %s:%s", c.cfg.APIKey, c.cfg.AccessToken))

	resp, err := c.httpClient.GetWithHeaders(ctx, endpoint, headers)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode, Message: string(body)}

	var envelope struct {
		Message   string `json:"message"`
		ErrorType string `json:"error_type"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Message != "" {
		apiErr.Message = envelope.Message
		apiErr.ErrorType = envelope.ErrorType
	}
	return apiErr
}

// envelope is the JSON wrapper of every REST response
type envelope[T any] struct {
	Status string `json:"status"`
	Data   T      `json:"data"`
}

func decodeData[T any](body []byte) (T, error) {
	var env envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		var zero T
		return zero, fmt.Errorf("decode response: %w", err)
	}
	return env.Data, nil
}
