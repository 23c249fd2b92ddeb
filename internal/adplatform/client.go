// Package adplatform provides read-only clients for the social-ads platform
// APIs the context assembler consumes. Only the read surface needed by turn
// orchestration lives here; campaign CRUD is a different service.
package adplatform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// MetricsReader fetches a human-readable performance summary for a campaign.
type MetricsReader interface {
	MetricsSummary(ctx context.Context, campaignID int64) (string, error)
}

// PlanReader fetches the campaign's creative plan text.
type PlanReader interface {
	CreativePlan(ctx context.Context, campaignID int64) (string, error)
}

// OfferReader fetches the campaign's offer text.
type OfferReader interface {
	Offer(ctx context.Context, campaignID int64) (string, error)
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implements the three read interfaces against the platform's JSON API.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

func (c *Client) MetricsSummary(ctx context.Context, campaignID int64) (string, error) {
	var resp struct {
		Summary string `json:"summary"`
	}
	if err := c.get(ctx, fmt.Sprintf("/v1/campaigns/%d/metrics/summary", campaignID), &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}

func (c *Client) CreativePlan(ctx context.Context, campaignID int64) (string, error) {
	var resp struct {
		Plan string `json:"plan"`
	}
	if err := c.get(ctx, fmt.Sprintf("/v1/campaigns/%d/creative-plan", campaignID), &resp); err != nil {
		return "", err
	}
	return resp.Plan, nil
}

func (c *Client) Offer(ctx context.Context, campaignID int64) (string, error) {
	var resp struct {
		OfferText string `json:"offer_text"`
	}
	if err := c.get(ctx, fmt.Sprintf("/v1/campaigns/%d/offer", campaignID), &resp); err != nil {
		return "", err
	}
	return resp.OfferText, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ad platform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ad platform returned %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
