package repository

import (
	"context"
	"time"

	"swarmpilot/pkg/models"
)

// Repository is the persistence contract for campaigns, engagements, and
// strategies. Lookups that find nothing return (nil, nil).
type Repository interface {
	CreateCampaign(ctx context.Context, c *models.Campaign) error
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	ListCampaigns(ctx context.Context) ([]*models.Campaign, error)
	UpdateCampaignStatus(ctx context.Context, id string, status models.CampaignStatus) error
	UpdateCampaignProfile(ctx context.Context, id string, profile models.ProductProfile) error
	UpdatePipelineStatus(ctx context.Context, id string, ps models.PipelineStatus) error

	CreateEngagement(ctx context.Context, e *models.EngagementRecord) error
	ListEngagements(ctx context.Context, campaignID string) ([]*models.EngagementRecord, error)
	UpdateEngagementMetrics(ctx context.Context, id string, m models.EngagementMetrics, at time.Time) error

	// GetStrategy looks up a (style, tone) record for a campaign. An empty
	// campaignID addresses the global pool.
	GetStrategy(ctx context.Context, campaignID, style, tone string) (*models.StrategyRecord, error)
	UpsertStrategy(ctx context.Context, s *models.StrategyRecord) error
	// ListStrategies returns records ranked by confidence, then average
	// impressions, then sample size. An empty campaignID returns all.
	ListStrategies(ctx context.Context, campaignID string) ([]*models.StrategyRecord, error)
}
