package adapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/ff-name-registry/internal/logger"
)

// maxResponseBody caps how much of a response body is kept for diagnostics
const maxResponseBody = 4 * 1024

// HTTPResponse is the outcome of a request that reached the server
type HTTPResponse struct {
	StatusCode int
	Body       []byte
}

// HTTPClient defines an interface for HTTP client operations to enable mocking
//
//go:generate mockgen -source=http.go -destination=../mocks/http.go -package=mocks -mock_names=HTTPClient=MockHTTPClient
type HTTPClient interface {
	// PostJSON posts a JSON body with extra headers. Rate limiting (429) and
	// server errors (5xx) are retried with exponential backoff; any other
	// non-2xx status is returned as an error together with the response.
	PostJSON(ctx context.Context, url string, body []byte, headers map[string]string) (*HTTPResponse, error)
}

// RetryPolicy configures the backoff used for retryable responses
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy is used when a zero policy is given
var DefaultRetryPolicy = RetryPolicy{
	InitialInterval: 2 * time.Second,
	MaxInterval:     30 * time.Second,
	MaxElapsedTime:  1 * time.Minute,
}

// RealHTTPClient implements HTTPClient using the standard http package
type RealHTTPClient struct {
	client *http.Client
	policy RetryPolicy
}

// NewHTTPClient creates a new real HTTP client
func NewHTTPClient(timeout time.Duration, policy RetryPolicy) HTTPClient {
	if policy == (RetryPolicy{}) {
		policy = DefaultRetryPolicy
	}
	return &RealHTTPClient{
		client: &http.Client{Timeout: timeout},
		policy: policy,
	}
}

// PostJSON posts body and retries retryable responses
func (c *RealHTTPClient) PostJSON(ctx context.Context, url string, body []byte, headers map[string]string) (*HTTPResponse, error) {
	var last *HTTPResponse

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			// Network errors are retryable
			return fmt.Errorf("failed to perform request: %w", err)
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				logger.WarnCtx(ctx, "failed to close response body", zap.Error(err), zap.String("url", url))
			}
		}()

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		last = &HTTPResponse{StatusCode: resp.StatusCode, Body: respBody}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			logger.WarnCtx(ctx, "retryable response, backing off", zap.String("url", url), zap.Int("status", resp.StatusCode))
			return fmt.Errorf("retryable status code %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(respBody)))
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.policy.InitialInterval
	b.MaxInterval = c.policy.MaxInterval
	b.MaxElapsedTime = c.policy.MaxElapsedTime
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return last, fmt.Errorf("request failed after retries: %w", err)
	}
	return last, nil
}
