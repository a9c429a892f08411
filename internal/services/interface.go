// Package services holds the clients for the external collaborator
// services the pipeline calls: entity extraction, synthesis/validation,
// vision analysis, and scouting. Each is a narrow request/response
// contract; this package owns none of their logic.
package services

import (
	"context"
	"fmt"

	"swarmpilot/pkg/models"
)

// Extractor turns raw text into labeled entity spans. Spans are literal
// substrings of the input text.
type Extractor interface {
	Extract(ctx context.Context, text string, labels []string) (map[string][]string, error)
}

// SynthesizedProfile is the structured result of profile synthesis.
type SynthesizedProfile struct {
	Entities       map[string][]string `json:"entities"`
	ScoutingLabels []string            `json:"scouting_labels"`
}

// ValidationResult reports which required labels a draft covers.
type ValidationResult struct {
	Present []string `json:"present"`
	Missing []string `json:"missing"`
}

// DraftedAction is a single planned engagement returned by the
// synthesis service.
type DraftedAction struct {
	PostID   string            `json:"post_id"`
	Action   models.ActionType `json:"action"`
	Content  string            `json:"content"`
	ParentID string            `json:"parent_id,omitempty"`
	Style    string            `json:"style"`
	Tone     string            `json:"tone"`
}

// Synthesizer builds structured profiles and engagement drafts and
// validates draft content against required labels.
type Synthesizer interface {
	Synthesize(ctx context.Context, entities map[string][]string, profileContext string) (*SynthesizedProfile, error)
	Draft(ctx context.Context, posts []models.ScoutedPost, style, tone, campaignContext string) ([]DraftedAction, error)
	Validate(ctx context.Context, draft string, requiredLabels []string) (*ValidationResult, error)
}

// Vision analyzes a media reference into visual entities.
type Vision interface {
	Analyze(ctx context.Context, mediaRef string) ([]string, error)
}

// Scout finds candidate posts for a label schema across platforms.
type Scout interface {
	FindCandidates(ctx context.Context, labels []string, platforms []string) ([]models.ScoutedPost, error)
}

// CollaboratorError wraps a failure of one of the external services. It
// aborts the pipeline stage that issued the call and nothing else.
type CollaboratorError struct {
	Service string
	Err     error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("collaborator %s: %v", e.Service, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
