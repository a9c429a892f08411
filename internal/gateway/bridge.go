package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// BridgeClient is the HTTP client for the execution bridge, the external
// process that performs the actual platform calls.
type BridgeClient struct {
	url    string
	client *http.Client
}

// NewBridgeClient creates a new BridgeClient.
func NewBridgeClient(url string) *BridgeClient {
	return &BridgeClient{
		url:    url,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

type bridgeExecuteRequest struct {
	Action   string `json:"action"`
	Platform string `json:"platform"`
	PostURL  string `json:"post_url"`
	Content  string `json:"content"`
	ParentID string `json:"parent_id,omitempty"`
}

type bridgeExecuteResponse struct {
	PlatformPostID string `json:"platform_post_id"`
	Status         string `json:"status"`
}

// Execute sends one action command to the bridge.
func (c *BridgeClient) Execute(ctx context.Context, req bridgeExecuteRequest) (*bridgeExecuteResponse, error) {
	var resp bridgeExecuteResponse
	if err := c.post(ctx, "/api/execute", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type bridgeMetricsRequest struct {
	Platform string   `json:"platform"`
	PostIDs  []string `json:"post_ids"`
}

type bridgeMetricsEntry struct {
	PostID        string `json:"post_id"`
	Impressions   int    `json:"impressions"`
	Likes         int    `json:"likes"`
	Replies       int    `json:"replies"`
	Reposts       int    `json:"reposts"`
	Clicks        int    `json:"clicks"`
	FollowerDelta int    `json:"follower_delta"`
}

type bridgeMetricsResponse struct {
	Metrics []bridgeMetricsEntry `json:"metrics"`
}

// CollectMetrics asks the bridge to scrape current metrics for the given
// post ids. Ids the bridge cannot resolve are simply absent from the
// response.
func (c *BridgeClient) CollectMetrics(ctx context.Context, platform string, postIDs []string) ([]bridgeMetricsEntry, error) {
	var resp bridgeMetricsResponse
	if err := c.post(ctx, "/api/metrics", bridgeMetricsRequest{Platform: platform, PostIDs: postIDs}, &resp); err != nil {
		return nil, err
	}
	return resp.Metrics, nil
}

// Health checks whether the bridge is alive.
func (c *BridgeClient) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *BridgeClient) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
