// Package models defines the domain models for the campaign swarm service
package models

import (
	"time"
)

// CampaignStatus represents the lifecycle status of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft  CampaignStatus = "draft"
	CampaignStatusActive CampaignStatus = "active"
	CampaignStatusPaused CampaignStatus = "paused"
)

// Stage represents one step of the pipeline a campaign moves through
type Stage string

const (
	StageIntent     Stage = "intent"
	StageScouting   Stage = "scouting"
	StageVision     Stage = "vision"
	StageStrategy   Stage = "strategy"
	StageEngagement Stage = "engagement"
	StageCompleted  Stage = "completed"
	StageError      Stage = "error"
)

// StageOrder is the canonical execution order of pipeline stages.
var StageOrder = []Stage{
	StageIntent,
	StageScouting,
	StageVision,
	StageStrategy,
	StageEngagement,
}

// ProductProfile holds the product knowledge a campaign accumulates:
// the raw description plus everything the extraction stage derived from it.
type ProductProfile struct {
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	Entities       map[string][]string `json:"entities,omitempty"`
	ScoutingLabels []string            `json:"scouting_labels,omitempty"`
}

// Campaign represents a marketing campaign driven by the pipeline.
type Campaign struct {
	ID        string         `json:"id" db:"id"`
	Name      string         `json:"name" db:"name"`
	Product   ProductProfile `json:"product"`
	Platforms []string       `json:"platforms" db:"platforms"`
	Status    CampaignStatus `json:"status" db:"status"`
	Pipeline  PipelineStatus `json:"pipeline"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// PipelineStatus tracks where a campaign's current cycle stands.
// Completed is always a prefix of StageOrder; the orchestrator is the
// only writer.
type PipelineStatus struct {
	Stage     Stage   `json:"stage"`
	Completed []Stage `json:"completed"`
	Error     string  `json:"error,omitempty"`
}

// HasCompleted reports whether the given stage is already in Completed.
func (p PipelineStatus) HasCompleted(s Stage) bool {
	for _, c := range p.Completed {
		if c == s {
			return true
		}
	}
	return false
}
