package services

import "context"

// HTTPExtractionClient talks to the entity-extraction service over HTTP.
type HTTPExtractionClient struct {
	url string
}

// NewHTTPExtractionClient creates a new HTTPExtractionClient.
func NewHTTPExtractionClient(url string) *HTTPExtractionClient {
	return &HTTPExtractionClient{url: url}
}

type extractRequest struct {
	Text   string   `json:"text"`
	Labels []string `json:"labels"`
}

type extractResponse struct {
	Entities map[string][]string `json:"entities"`
}

// Extract returns labeled entity spans for the given text. The service
// guarantees spans are substrings of the input; a label may come back
// empty.
func (c *HTTPExtractionClient) Extract(ctx context.Context, text string, labels []string) (map[string][]string, error) {
	var resp extractResponse
	if err := postJSON(ctx, "extraction", c.url+"/extract", extractRequest{Text: text, Labels: labels}, &resp); err != nil {
		return nil, err
	}
	if resp.Entities == nil {
		resp.Entities = map[string][]string{}
	}
	return resp.Entities, nil
}
