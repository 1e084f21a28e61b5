package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"surveyflow/internal/config"
	"surveyflow/internal/metrics"
)

// VerifyResult is the verification service's verdict on a page of answers
type VerifyResult struct {
	Valid   bool              `json:"valid"`
	Errors  map[string]string `json:"errors,omitempty"` // Keyed by question sequence number
	Message string            `json:"message,omitempty"`
}

// FieldErrors converts the keyed errors to sequence numbers, skipping malformed keys
func (r *VerifyResult) FieldErrors() map[int]string {
	if len(r.Errors) == 0 {
		return nil
	}
	out := make(map[int]string, len(r.Errors))
	for k, msg := range r.Errors {
		if sn, err := strconv.Atoi(k); err == nil {
			out[sn] = msg
		}
	}
	return out
}

// Verifier confirms verifiable answers before the respondent leaves a page
type Verifier interface {
	Verify(ctx context.Context, surveyID string, fields map[string]any) (*VerifyResult, error)
}

// VerifyClient calls the remote verification endpoint
type VerifyClient struct {
	url    string
	client *collaboratorClient
}

// NewVerifyClient returns nil when no verification URL is configured
func NewVerifyClient(cfg config.CollaboratorConfig, logger *zap.Logger, m *metrics.Collector) *VerifyClient {
	if cfg.VerifyURL == "" {
		return nil
	}
	return &VerifyClient{
		url:    cfg.VerifyURL,
		client: newCollaboratorClient("verify", cfg.Token, cfg.Timeout, cfg.MaxRetries, logger, m),
	}
}

// Verify posts {sn: value} for the page's verifiable fields. Rejections come
// back as 200 or as 400/422 with the same body.
func (c *VerifyClient) Verify(ctx context.Context, surveyID string, fields map[string]any) (*VerifyResult, error) {
	resp, err := c.client.postJSON(ctx, c.url, fields, map[string]string{"X-Survey-ID": surveyID})
	if err != nil {
		return nil, fmt.Errorf("failed to verify answers: %w", err)
	}

	switch {
	case resp.status >= 200 && resp.status < 300,
		resp.status == http.StatusBadRequest,
		resp.status == http.StatusUnprocessableEntity:
	default:
		return nil, fmt.Errorf("verification returned unexpected status %d", resp.status)
	}

	var result VerifyResult
	if err := json.Unmarshal(resp.body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse verification response: %w", err)
	}
	if resp.status >= 400 {
		result.Valid = false
	}
	return &result, nil
}
