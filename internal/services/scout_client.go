package services

import (
	"context"

	"swarmpilot/pkg/models"
)

// HTTPScoutClient talks to the social-scouting service.
type HTTPScoutClient struct {
	url string
}

// NewHTTPScoutClient creates a new HTTPScoutClient.
func NewHTTPScoutClient(url string) *HTTPScoutClient {
	return &HTTPScoutClient{url: url}
}

type candidatesRequest struct {
	Labels    []string `json:"labels"`
	Platforms []string `json:"platforms"`
}

type candidatesResponse struct {
	Posts []models.ScoutedPost `json:"posts"`
}

// FindCandidates returns candidate posts matching the label schema across
// the given platforms.
func (c *HTTPScoutClient) FindCandidates(ctx context.Context, labels []string, platforms []string) ([]models.ScoutedPost, error) {
	var resp candidatesResponse
	if err := postJSON(ctx, "scout", c.url+"/candidates", candidatesRequest{Labels: labels, Platforms: platforms}, &resp); err != nil {
		return nil, err
	}
	return resp.Posts, nil
}
