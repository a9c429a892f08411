package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"swarmpilot/pkg/models"
)

// Store is the narrow contract of the external graph service.
type Store interface {
	UpsertNodes(ctx context.Context, nodes []models.KnowledgeGraphNode) error
	QueryNodes(ctx context.Context, campaignID string) ([]models.KnowledgeGraphNode, error)
}

// HTTPStoreClient talks to the graph store over HTTP.
type HTTPStoreClient struct {
	url    string
	client *http.Client
}

// NewHTTPStoreClient creates a new HTTPStoreClient.
func NewHTTPStoreClient(url string) *HTTPStoreClient {
	return &HTTPStoreClient{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type upsertRequest struct {
	Nodes []models.KnowledgeGraphNode `json:"nodes"`
}

// UpsertNodes creates or overwrites the given nodes.
func (c *HTTPStoreClient) UpsertNodes(ctx context.Context, nodes []models.KnowledgeGraphNode) error {
	body, err := json.Marshal(upsertRequest{Nodes: nodes})
	if err != nil {
		return fmt.Errorf("marshal nodes: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/nodes", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("upsert nodes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graph store returned status %d", resp.StatusCode)
	}
	return nil
}

type queryResponse struct {
	Nodes []models.KnowledgeGraphNode `json:"nodes"`
}

// QueryNodes returns the stored nodes for one campaign.
func (c *HTTPStoreClient) QueryNodes(ctx context.Context, campaignID string) ([]models.KnowledgeGraphNode, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.url+"/nodes?campaign_id="+url.QueryEscape(campaignID), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph store returned status %d", resp.StatusCode)
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Nodes, nil
}
