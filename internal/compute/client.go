// Package compute invokes the trusted server-side callable functions.
// Phase-critical computation (ranking results, evaluation results, topic
// extraction, crowdsource evaluation) runs there; this client only carries
// the request/response envelope.
package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"quizdeck/internal/config"
	"quizdeck/internal/domain"
)

// Callable function names.
const (
	FuncComputeRankingResults    = "computeRankingResults"
	FuncComputeEvaluationResults = "computeEvaluationResults"
	FuncExtractTopics            = "extractTopics"
	FuncEvaluateSubmissions      = "evaluateSubmissions"
)

// Response is the callable-function envelope. Data holds the typed payload
// for the caller to decode.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Invoker is the contract the state machine and crowdsource flow depend
// on; swapped for a fake in tests.
type Invoker interface {
	Invoke(ctx context.Context, name string, payload any) (*Response, error)
}

// Client is the HTTP implementation of Invoker.
type Client struct {
	cfg    config.Compute
	client *http.Client
	logger *zap.Logger
}

// NewClient builds a client from compute config.
func NewClient(cfg config.Compute, logger *zap.Logger) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Invoke posts the payload to the named function. A transport failure, a
// non-2xx status, or a success=false envelope all wrap
// domain.ErrRemoteCompute so callers revert their phase transitions and
// the failure surfaces as retryable.
func (c *Client) Invoke(ctx context.Context, name string, payload any) (*Response, error) {
	if !c.cfg.IsEnabled() {
		return nil, fmt.Errorf("%w: endpoint not configured", domain.ErrRemoteCompute)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint(name), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w: %w", name, domain.ErrRemoteCompute, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("compute call failed",
			zap.String("function", name),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("invoke %s: %w: status %d", name, domain.ErrRemoteCompute, resp.StatusCode)
	}

	var envelope Response
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", name, err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("invoke %s: %w: %s", name, domain.ErrRemoteCompute, envelope.Error)
	}
	return &envelope, nil
}
