// Package graph projects campaign state into typed knowledge graph nodes
// and ships them to the external graph store.
package graph

import (
	"sort"

	"swarmpilot/pkg/models"
)

// Project maps a campaign and its related records onto the corresponding
// node set. The mapping is pure and deterministic: node ids derive from
// source entity ids, so projecting the same state twice yields the same
// nodes and re-projection safely overwrites earlier ones.
func Project(c *models.Campaign, posts []models.ScoutedPost, engagements []*models.EngagementRecord, strategies []*models.StrategyRecord) []models.KnowledgeGraphNode {
	nodes := []models.KnowledgeGraphNode{
		{
			ID:   "campaign:" + c.ID,
			Type: models.NodeCampaign,
			Attrs: map[string]interface{}{
				"name":   c.Name,
				"status": string(c.Status),
				"stage":  string(c.Pipeline.Stage),
			},
		},
		{
			ID:   "product:" + c.ID,
			Type: models.NodeProduct,
			Attrs: map[string]interface{}{
				"name":        c.Product.Name,
				"campaign_id": c.ID,
				"labels":      append([]string(nil), c.Product.ScoutingLabels...),
			},
		},
	}

	platforms := append([]string(nil), c.Platforms...)
	sort.Strings(platforms)
	for _, p := range platforms {
		nodes = append(nodes, models.KnowledgeGraphNode{
			ID:   "platform:" + p,
			Type: models.NodePlatform,
			Attrs: map[string]interface{}{
				"name": p,
			},
		})
	}

	for _, post := range posts {
		nodes = append(nodes, models.KnowledgeGraphNode{
			ID:   "post:" + post.ID,
			Type: models.NodeScoutedPost,
			Attrs: map[string]interface{}{
				"campaign_id":     c.ID,
				"platform":        post.Platform,
				"url":             post.URL,
				"relevance_score": post.RelevanceScore,
				"visual_context":  post.VisualContext,
			},
		})
	}

	for _, e := range engagements {
		nodes = append(nodes, models.KnowledgeGraphNode{
			ID:   "engagement:" + e.ID,
			Type: models.NodeEngagement,
			Attrs: map[string]interface{}{
				"campaign_id":  e.CampaignID,
				"platform":     e.Platform,
				"action":       string(e.Action),
				"strategy_key": e.StrategyKey,
				"impressions":  e.Metrics.Impressions,
				"likes":        e.Metrics.Likes,
			},
		})
	}

	for _, s := range strategies {
		nodes = append(nodes, models.KnowledgeGraphNode{
			ID:   "strategy:" + s.Style + ":" + s.Tone,
			Type: models.NodeStrategy,
			Attrs: map[string]interface{}{
				"style":           s.Style,
				"tone":            s.Tone,
				"confidence":      s.Confidence,
				"sample_size":     s.SampleSize,
				"avg_impressions": s.AvgImpressions,
			},
		})
	}

	return nodes
}
