package models

import (
	"time"
)

// AgentName identifies which pipeline agent produced an activity event
type AgentName string

const (
	AgentIntent     AgentName = "intent"
	AgentScout      AgentName = "scout"
	AgentVision     AgentName = "vision"
	AgentStrategy   AgentName = "strategy"
	AgentEngagement AgentName = "engagement"
	AgentLearning   AgentName = "learning"
)

// EventStatus represents the reported state of an agent action
type EventStatus string

const (
	EventStatusRunning EventStatus = "running"
	EventStatusDone    EventStatus = "done"
	EventStatusError   EventStatus = "error"
)

// ActivityEvent is one entry of the append-only activity log. Events are
// immutable once published; Seq is assigned by the bus and is monotonic
// across the whole log.
type ActivityEvent struct {
	Seq        uint64                 `json:"seq"`
	Timestamp  time.Time              `json:"timestamp"`
	CampaignID string                 `json:"campaign_id"`
	Agent      AgentName              `json:"agent"`
	Action     string                 `json:"action"`
	Status     EventStatus            `json:"status"`
	Detail     string                 `json:"detail,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
