package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"launchpro/internal/config"
	"launchpro/internal/services"
)

// ApprovalStatus enumerates the states the content approval workflow reports.
type ApprovalStatus string

const (
	StatusPending   ApprovalStatus = "pending"
	StatusPublished ApprovalStatus = "published"
	StatusRejected  ApprovalStatus = "rejected"
)

// Result is the outcome of one approval check.
type Result struct {
	Status            ApprovalStatus `json:"status"`
	ApprovedContentID string         `json:"approved_content_id"`
	RejectionReason   string         `json:"rejection_reason"`
}

// Client talks to the content approval service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an approval client from configuration.
func NewClient(cfg config.Approval, opts ...Option) *Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Check queries the approval workflow for one article request. A single call
// per campaign per cycle; transient failures surface as errors for the next
// cycle to retry.
func (c *Client) Check(ctx context.Context, requestID string) (Result, error) {
	if strings.TrimSpace(requestID) == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "approval", "check", "article request id is empty", nil)
	}
	endpoint := fmt.Sprintf("%s/v1/requests/%s", c.baseURL, url.PathEscape(requestID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build approval request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "approval", "check", "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Result{}, services.Wrap(services.ErrNotFound, "approval", "check", "request "+requestID+" not found", nil)
	case resp.StatusCode >= 500:
		return Result{}, services.Wrap(services.ErrTransient, "approval", "check", fmt.Sprintf("status %d", resp.StatusCode), nil)
	case resp.StatusCode >= 300:
		return Result{}, services.Wrap(services.ErrExternal, "approval", "check", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "approval", "check", "read body", err)
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return Result{}, services.Wrap(services.ErrExternal, "approval", "check", "decode response", err)
	}
	result.Status = ApprovalStatus(strings.ToLower(strings.TrimSpace(string(result.Status))))
	return result, nil
}
