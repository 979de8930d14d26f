package adplatform

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
	defaultRequestTimeout = 20 * time.Second
	maxResponseBytes      = 1 << 20
)

// HTTPClient talks to one ad platform's campaign API.
type HTTPClient struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*HTTPClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewHTTPClient constructs a platform client from the supplied configuration.
func NewHTTPClient(cfg config.Platform, opts ...Option) *HTTPClient {
	timeout := defaultRequestTimeout
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	client := &HTTPClient{
		name:       strings.TrimSpace(cfg.Name),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Name returns the configured platform name.
func (c *HTTPClient) Name() string {
	return c.name
}

type createCampaignRequest struct {
	Name              string `json:"name"`
	OfferRef          string `json:"offer_ref"`
	Country           string `json:"country"`
	ApprovedContentID string `json:"approved_content_id,omitempty"`
}

type createCampaignResponse struct {
	ID string `json:"id"`
}

// CreateCampaign creates the remote campaign and returns its platform id. The
// Idempotency-Key header carries req.IdempotencyKey so resending after a crash
// returns the previously created campaign instead of a duplicate.
func (c *HTTPClient) CreateCampaign(ctx context.Context, req CreateRequest) (string, error) {
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return "", services.Wrap(services.ErrConfiguration, c.name, "create_campaign", "idempotency key required", nil)
	}
	body := createCampaignRequest{
		Name:              req.Name,
		OfferRef:          req.OfferRef,
		Country:           req.Country,
		ApprovedContentID: req.ApprovedContentID,
	}
	var decoded createCampaignResponse
	headers := map[string]string{"Idempotency-Key": req.IdempotencyKey}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/campaigns", body, headers, &decoded, "create_campaign"); err != nil {
		return "", err
	}
	remoteID := strings.TrimSpace(decoded.ID)
	if remoteID == "" {
		return "", services.Wrap(services.ErrExternal, c.name, "create_campaign", "platform returned empty campaign id", nil)
	}
	return remoteID, nil
}

type campaignStatusResponse struct {
	Status       string `json:"status"`
	TrackingLink string `json:"tracking_link"`
	DirectLink   string `json:"direct_link"`
}

// GetCampaignStatus reads the remote campaign's status and links.
func (c *HTTPClient) GetCampaignStatus(ctx context.Context, remoteID string) (CampaignStatus, error) {
	var empty CampaignStatus
	remoteID = strings.TrimSpace(remoteID)
	if remoteID == "" {
		return empty, services.Wrap(services.ErrConfiguration, c.name, "campaign_status", "remote campaign id required", nil)
	}
	var decoded campaignStatusResponse
	path := "/v1/campaigns/" + remoteID
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &decoded, "campaign_status"); err != nil {
		return empty, err
	}
	return CampaignStatus{
		Status:       strings.ToLower(strings.TrimSpace(decoded.Status)),
		TrackingLink: strings.TrimSpace(decoded.TrackingLink),
		DirectLink:   strings.TrimSpace(decoded.DirectLink),
	}, nil
}

type launchAdRequest struct {
	Copy       string   `json:"copy"`
	Keywords   []string `json:"keywords,omitempty"`
	Images     []string `json:"images,omitempty"`
	Videos     []string `json:"videos,omitempty"`
	LandingURL string   `json:"landing_url"`
}

type launchAdResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// LaunchAd publishes the ad creative on an already created remote campaign.
func (c *HTTPClient) LaunchAd(ctx context.Context, remoteID string, creative Creative) (LaunchResult, error) {
	var empty LaunchResult
	remoteID = strings.TrimSpace(remoteID)
	if remoteID == "" {
		return empty, services.Wrap(services.ErrConfiguration, c.name, "launch_ad", "remote campaign id required", nil)
	}
	body := launchAdRequest{
		Copy:       creative.Copy,
		Keywords:   creative.Keywords,
		Images:     creative.Images,
		Videos:     creative.Videos,
		LandingURL: creative.LandingURL,
	}
	var decoded launchAdResponse
	path := "/v1/campaigns/" + remoteID + "/ads"
	if err := c.doJSON(ctx, http.MethodPost, path, body, nil, &decoded, "launch_ad"); err != nil {
		return empty, err
	}
	return LaunchResult{Success: decoded.Success, Error: strings.TrimSpace(decoded.Error)}, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, headers map[string]string, target any, op string) error {
	if c.baseURL == "" {
		return services.Wrap(services.ErrConfiguration, c.name, op, "base url required", nil)
	}
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, c.name, op, "encode request body", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, c.name, op, "build request", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, c.name, op, "request aborted", err)
		}
		return services.Wrap(services.ErrTransient, c.name, op, "http request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return services.Wrap(services.ErrTransient, c.name, op, "read response body", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, c.name, op, fmt.Sprintf("http %d: %s", resp.StatusCode, snippet(payload)), nil)
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return services.Wrap(services.ErrTransient, c.name, op, fmt.Sprintf("http %d: %s", resp.StatusCode, snippet(payload)), nil)
	case resp.StatusCode >= http.StatusMultipleChoices:
		return services.Wrap(services.ErrExternal, c.name, op, fmt.Sprintf("http %d: %s", resp.StatusCode, snippet(payload)), nil)
	}
	if target != nil {
		if err := json.Unmarshal(payload, target); err != nil {
			return services.Wrap(services.ErrExternal, c.name, op, "decode response", err)
		}
	}
	return nil
}

func snippet(payload []byte) string {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 200
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
