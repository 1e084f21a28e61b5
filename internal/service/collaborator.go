package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"surveyflow/internal/metrics"
)

var ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

// collaboratorClient performs JSON calls to an external service with retry on
// 429/5xx and a circuit breaker around the whole retry loop.
type collaboratorClient struct {
	name        string
	token       string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
	breaker     *gobreaker.CircuitBreaker
	logger      *zap.Logger
	metrics     *metrics.Collector
}

type collaboratorResponse struct {
	status int
	body   []byte
}

func newCollaboratorClient(name, token string, timeout time.Duration, maxRetries int, logger *zap.Logger, m *metrics.Collector) *collaboratorClient {
	logger = logger.With(zap.String("collaborator", name))
	return &collaboratorClient{
		name:        name,
		token:       token,
		httpClient:  &http.Client{Timeout: timeout},
		maxRetries:  maxRetries,
		baseBackoff: time.Second,
		logger:      logger,
		metrics:     m,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 5,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < 5 {
					return false
				}
				return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.8
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
	}
}

// postJSON sends payload and returns the final status and body. Client errors
// (4xx other than 429) are returned to the caller, not treated as failures.
func (c *collaboratorClient) postJSON(ctx context.Context, url string, payload any, headers map[string]string) (*collaboratorResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, http.MethodPost, url, body, headers)
	})
	if c.metrics != nil {
		c.metrics.ObserveCollaborator(c.name, start, err)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w", c.name, ErrCollaboratorUnavailable)
	}
	if err != nil {
		return nil, err
	}
	return result.(*collaboratorResponse), nil
}

func (c *collaboratorClient) doRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*collaboratorResponse, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseBackoff
			c.logger.Debug("retrying request", zap.Int("attempt", attempt), zap.Duration("backoff", backoff), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("%s returned %d", c.name, resp.StatusCode)
			continue
		}

		c.logger.Debug("request completed", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return &collaboratorResponse{status: resp.StatusCode, body: respBody}, nil
	}

	c.logger.Error("max retries exceeded", zap.String("url", url), zap.Error(lastErr))
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
