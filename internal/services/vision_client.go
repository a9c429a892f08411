package services

import "context"

// HTTPVisionClient talks to the vision-analysis service.
type HTTPVisionClient struct {
	url string
}

// NewHTTPVisionClient creates a new HTTPVisionClient.
func NewHTTPVisionClient(url string) *HTTPVisionClient {
	return &HTTPVisionClient{url: url}
}

type analyzeRequest struct {
	MediaRef string `json:"media_ref"`
}

type analyzeResponse struct {
	VisualEntities []string `json:"visual_entities"`
}

// Analyze returns the visual entities detected in the referenced media.
func (c *HTTPVisionClient) Analyze(ctx context.Context, mediaRef string) ([]string, error) {
	var resp analyzeResponse
	if err := postJSON(ctx, "vision", c.url+"/analyze", analyzeRequest{MediaRef: mediaRef}, &resp); err != nil {
		return nil, err
	}
	return resp.VisualEntities, nil
}
