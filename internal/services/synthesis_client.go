package services

import (
	"context"

	"swarmpilot/pkg/models"
)

// HTTPSynthesisClient talks to the generative synthesis/validation service.
type HTTPSynthesisClient struct {
	url string
}

// NewHTTPSynthesisClient creates a new HTTPSynthesisClient.
func NewHTTPSynthesisClient(url string) *HTTPSynthesisClient {
	return &HTTPSynthesisClient{url: url}
}

type synthesizeRequest struct {
	Entities map[string][]string `json:"entities"`
	Context  string              `json:"context"`
}

// Synthesize builds a structured profile from extracted entities.
func (c *HTTPSynthesisClient) Synthesize(ctx context.Context, entities map[string][]string, profileContext string) (*SynthesizedProfile, error) {
	var resp SynthesizedProfile
	if err := postJSON(ctx, "synthesis", c.url+"/synthesize", synthesizeRequest{Entities: entities, Context: profileContext}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type draftRequest struct {
	Posts   []models.ScoutedPost `json:"posts"`
	Style   string               `json:"style"`
	Tone    string               `json:"tone"`
	Context string               `json:"context"`
}

type draftResponse struct {
	Actions []DraftedAction `json:"actions"`
}

// Draft asks the service for engagement drafts targeting the given posts,
// written in the requested style and tone.
func (c *HTTPSynthesisClient) Draft(ctx context.Context, posts []models.ScoutedPost, style, tone, campaignContext string) ([]DraftedAction, error) {
	var resp draftResponse
	req := draftRequest{Posts: posts, Style: style, Tone: tone, Context: campaignContext}
	if err := postJSON(ctx, "synthesis", c.url+"/draft", req, &resp); err != nil {
		return nil, err
	}
	return resp.Actions, nil
}

type validateRequest struct {
	Draft          string   `json:"draft"`
	RequiredLabels []string `json:"required_labels"`
}

// Validate checks which required labels a draft covers.
func (c *HTTPSynthesisClient) Validate(ctx context.Context, draft string, requiredLabels []string) (*ValidationResult, error) {
	var resp ValidationResult
	if err := postJSON(ctx, "synthesis", c.url+"/validate", validateRequest{Draft: draft, RequiredLabels: requiredLabels}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
