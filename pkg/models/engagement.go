package models

import (
	"time"
)

// ActionType represents the kind of platform action an engagement performs
type ActionType string

const (
	ActionComment ActionType = "comment"
	ActionReply   ActionType = "reply"
	ActionRepost  ActionType = "repost"
)

// EngagementMetrics is a snapshot of platform metrics for a single
// posted engagement.
type EngagementMetrics struct {
	Impressions   int `json:"impressions"`
	Likes         int `json:"likes"`
	Replies       int `json:"replies"`
	Reposts       int `json:"reposts"`
	Clicks        int `json:"clicks"`
	FollowerDelta int `json:"follower_delta"`
}

// EngagementRecord is a single action taken on a platform and its
// collected outcome metrics. Metrics fields are only touched by
// metrics-collection cycles.
type EngagementRecord struct {
	ID             string            `json:"id" db:"id"`
	CampaignID     string            `json:"campaign_id" db:"campaign_id"`
	Platform       string            `json:"platform" db:"platform"`
	Action         ActionType        `json:"action" db:"action"`
	TargetURL      string            `json:"target_url" db:"target_url"`
	Content        string            `json:"content" db:"content"`
	StrategyKey    string            `json:"strategy_key" db:"strategy_key"`
	PlatformPostID string            `json:"platform_post_id,omitempty" db:"platform_post_id"`
	Metrics        EngagementMetrics `json:"metrics"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	MetricsAt      *time.Time        `json:"metrics_at,omitempty" db:"metrics_at"`
}

// ScoutedPost is a candidate post discovered by the scouting stage.
type ScoutedPost struct {
	ID             string   `json:"id"`
	CampaignID     string   `json:"campaign_id"`
	Platform       string   `json:"platform"`
	URL            string   `json:"url"`
	Author         string   `json:"author,omitempty"`
	Text           string   `json:"text,omitempty"`
	MediaURLs      []string `json:"media_urls,omitempty"`
	VisualContext  string   `json:"visual_context,omitempty"`
	RelevanceScore float64  `json:"relevance_score"`
}
