package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmpilot/pkg/models"
)

func sampleCampaign() *models.Campaign {
	return &models.Campaign{
		ID:   "c1",
		Name: "Launch",
		Product: models.ProductProfile{
			Name:           "GlowBrew",
			ScoutingLabels: []string{"jitters"},
		},
		Platforms: []string{"twitter", "reddit"},
		Status:    models.CampaignStatusActive,
		Pipeline:  models.PipelineStatus{Stage: models.StageCompleted},
	}
}

func TestProjectBuildsTypedNodes(t *testing.T) {
	posts := []models.ScoutedPost{
		{ID: "p1", CampaignID: "c1", Platform: "twitter", URL: "https://t/1", RelevanceScore: 0.8},
	}
	engagements := []*models.EngagementRecord{
		{ID: "e1", CampaignID: "c1", Platform: "twitter", Action: models.ActionComment, StrategyKey: "tip/helpful"},
	}
	strategies := []*models.StrategyRecord{
		{Style: "tip", Tone: "helpful", SampleSize: 3, Confidence: 0.7, AvgImpressions: 120},
	}

	nodes := Project(sampleCampaign(), posts, engagements, strategies)

	byID := make(map[string]models.KnowledgeGraphNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	require.Contains(t, byID, "campaign:c1")
	require.Contains(t, byID, "product:c1")
	require.Contains(t, byID, "platform:twitter")
	require.Contains(t, byID, "platform:reddit")
	require.Contains(t, byID, "post:p1")
	require.Contains(t, byID, "engagement:e1")
	require.Contains(t, byID, "strategy:tip:helpful")

	assert.Equal(t, models.NodeCampaign, byID["campaign:c1"].Type)
	assert.Equal(t, "active", byID["campaign:c1"].Attrs["status"])
	assert.Equal(t, 0.7, byID["strategy:tip:helpful"].Attrs["confidence"])
	assert.Equal(t, "tip/helpful", byID["engagement:e1"].Attrs["strategy_key"])
}

func TestProjectIsDeterministic(t *testing.T) {
	c := sampleCampaign()
	first := Project(c, nil, nil, nil)
	second := Project(c, nil, nil, nil)
	assert.Equal(t, first, second)

	// Platform ordering is stable regardless of input order.
	c.Platforms = []string{"reddit", "twitter"}
	third := Project(c, nil, nil, nil)
	assert.Equal(t, first, third)
}

func TestProjectReprojectionOverwritesInStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	c := sampleCampaign()

	require.NoError(t, store.UpsertNodes(ctx, Project(c, nil, nil, nil)))

	c.Pipeline.Stage = models.StageError
	require.NoError(t, store.UpsertNodes(ctx, Project(c, nil, nil, nil)))

	nodes, err := store.QueryNodes(ctx, "c1")
	require.NoError(t, err)

	var campaignNode *models.KnowledgeGraphNode
	for i := range nodes {
		if nodes[i].ID == "campaign:c1" {
			campaignNode = &nodes[i]
		}
	}
	require.NotNil(t, campaignNode)
	assert.Equal(t, "error", campaignNode.Attrs["stage"])
}

func TestInMemoryStoreFiltersByCampaign(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	c1 := sampleCampaign()
	c2 := sampleCampaign()
	c2.ID = "c2"

	require.NoError(t, store.UpsertNodes(ctx, Project(c1, nil, nil, nil)))
	require.NoError(t, store.UpsertNodes(ctx, Project(c2, nil, nil, nil)))

	nodes, err := store.QueryNodes(ctx, "c2")
	require.NoError(t, err)
	for _, n := range nodes {
		assert.NotEqual(t, "campaign:c1", n.ID)
		assert.NotEqual(t, "product:c1", n.ID)
	}
}
