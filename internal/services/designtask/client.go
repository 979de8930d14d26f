// Package designtask wraps the external design service used to order creative
// assets for a campaign.
package designtask

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"launchpro/internal/config"
	"launchpro/internal/services"
)

const (
	defaultRequestTimeout = 15 * time.Second
	maxResponseBytes      = 1 << 20
)

// TaskStatus is the state the design service reports for a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskInProcess TaskStatus = "in_process"
	TaskCompleted TaskStatus = "completed"
)

// Task is one remote design task.
type Task struct {
	ID           string
	Status       TaskStatus
	DeliveryLink string
}

// Client talks to the design service's task API.
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

// NewClient constructs a design task client using the supplied configuration.
func NewClient(cfg config.DesignTasks, opts ...Option) *Client {
	timeout := defaultRequestTimeout
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type createTaskRequest struct {
	CampaignName string `json:"campaign_name"`
	ArticleLink  string `json:"article_link"`
	Brief        string `json:"brief,omitempty"`
}

type taskResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	DeliveryLink string `json:"delivery_link"`
}

// CreateTask orders a new design task and returns its remote id.
func (c *Client) CreateTask(ctx context.Context, campaignName, articleLink, brief string) (string, error) {
	if strings.TrimSpace(articleLink) == "" {
		return "", services.Wrap(services.ErrConfiguration, "designtask", "create_task", "article link required", nil)
	}
	body := createTaskRequest{
		CampaignName: strings.TrimSpace(campaignName),
		ArticleLink:  strings.TrimSpace(articleLink),
		Brief:        strings.TrimSpace(brief),
	}
	var decoded taskResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/tasks", body, &decoded, "create_task"); err != nil {
		return "", err
	}
	taskID := strings.TrimSpace(decoded.ID)
	if taskID == "" {
		return "", services.Wrap(services.ErrExternal, "designtask", "create_task", "service returned empty task id", nil)
	}
	return taskID, nil
}

// GetTaskByID reads one remote design task.
func (c *Client) GetTaskByID(ctx context.Context, taskID string) (Task, error) {
	var empty Task
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return empty, services.Wrap(services.ErrConfiguration, "designtask", "get_task", "task id required", nil)
	}
	var decoded taskResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/tasks/"+taskID, nil, &decoded, "get_task"); err != nil {
		return empty, err
	}
	return Task{
		ID:           strings.TrimSpace(decoded.ID),
		Status:       TaskStatus(strings.ToLower(strings.TrimSpace(decoded.Status))),
		DeliveryLink: strings.TrimSpace(decoded.DeliveryLink),
	}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, target any, op string) error {
	if c.baseURL == "" {
		return services.Wrap(services.ErrConfiguration, "designtask", op, "base url required", nil)
	}
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "designtask", op, "encode request body", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "designtask", op, "build request", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "designtask", op, "request aborted", err)
		}
		return services.Wrap(services.ErrTransient, "designtask", op, "http request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return services.Wrap(services.ErrTransient, "designtask", op, "read response body", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "designtask", op, fmt.Sprintf("http %d", resp.StatusCode), nil)
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return services.Wrap(services.ErrTransient, "designtask", op, fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	case resp.StatusCode >= http.StatusMultipleChoices:
		return services.Wrap(services.ErrExternal, "designtask", op, fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}
	if target != nil {
		if err := json.Unmarshal(payload, target); err != nil {
			return services.Wrap(services.ErrExternal, "designtask", op, "decode response", err)
		}
	}
	return nil
}
