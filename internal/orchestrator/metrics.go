package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"swarmpilot/pkg/models"
)

// MetricsSummary reports one metrics collection pass.
type MetricsSummary struct {
	CampaignID string         `json:"campaign_id"`
	Requested  int            `json:"requested"`
	Collected  int            `json:"collected"`
	ByPlatform map[string]int `json:"by_platform"`
}

// LearningSummary reports one learning pass.
type LearningSummary struct {
	CampaignID string                  `json:"campaign_id"`
	Strategies []*models.StrategyRecord `json:"strategies"`
	Top        *models.StrategyRecord   `json:"top,omitempty"`
}

// RunMetricsCollection fetches current engagement metrics for every
// published action of a campaign and feeds the outcomes to the
// learner. A platform that fails to answer is logged and skipped;
// the other platforms still collect.
func (o *Orchestrator) RunMetricsCollection(ctx context.Context, campaignID string) (*MetricsSummary, error) {
	campaign, err := o.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign: %w", err)
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}

	engagements, err := o.repo.ListEngagements(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list engagements: %w", err)
	}

	byPlatform := make(map[string][]*models.EngagementRecord)
	for _, e := range engagements {
		if e.PlatformPostID == "" {
			continue
		}
		byPlatform[e.Platform] = append(byPlatform[e.Platform], e)
	}

	summary := &MetricsSummary{
		CampaignID: campaignID,
		ByPlatform: make(map[string]int, len(byPlatform)),
	}
	now := time.Now().UTC()

	for platform, records := range byPlatform {
		summary.Requested += len(records)

		ids := make([]string, len(records))
		recordsByPost := make(map[string]*models.EngagementRecord, len(records))
		for i, r := range records {
			ids[i] = r.PlatformPostID
			recordsByPost[r.PlatformPostID] = r
		}

		results, err := o.gw.CollectMetrics(ctx, platform, ids)
		if err != nil {
			o.logger.Error("metrics collection failed",
				"campaign_id", campaignID, "platform", platform, "error", err)
			continue
		}

		for _, pm := range results {
			if !pm.Found {
				continue
			}
			record, ok := recordsByPost[pm.PostID]
			if !ok {
				continue
			}
			if err := o.repo.UpdateEngagementMetrics(ctx, record.ID, pm.EngagementMetrics, now); err != nil {
				o.logger.Error("persist engagement metrics",
					"campaign_id", campaignID, "engagement_id", record.ID, "error", err)
				continue
			}

			style, tone, ok := splitStrategyKey(record.StrategyKey)
			if ok {
				if err := o.learner.RecordOutcome(ctx, campaignID, style, tone, pm.EngagementMetrics); err != nil {
					o.logger.Error("record strategy outcome",
						"campaign_id", campaignID, "strategy", record.StrategyKey, "error", err)
				}
			}

			summary.Collected++
			summary.ByPlatform[platform]++
		}
	}

	o.emit(campaignID, models.AgentLearning, "metrics_collected", models.EventStatusDone,
		fmt.Sprintf("collected metrics for %d of %d posts", summary.Collected, summary.Requested),
		map[string]interface{}{"by_platform": summary.ByPlatform})
	return summary, nil
}

// RunLearning recomputes the campaign's strategy rankings and reports
// the current leader.
func (o *Orchestrator) RunLearning(ctx context.Context, campaignID string) (*LearningSummary, error) {
	campaign, err := o.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign: %w", err)
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}

	rankings, err := o.learner.Rankings(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("strategy rankings: %w", err)
	}

	summary := &LearningSummary{CampaignID: campaignID, Strategies: rankings}
	if len(rankings) > 0 {
		top := rankings[0]
		summary.Top = top
		o.emit(campaignID, models.AgentLearning, "rankings_updated", models.EventStatusDone,
			fmt.Sprintf("top strategy %s (confidence %.2f)", top.Key(), top.Confidence),
			map[string]interface{}{"strategies": len(rankings)})
	}
	return summary, nil
}

func splitStrategyKey(key string) (style, tone string, ok bool) {
	parts := strings.SplitN(key, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
