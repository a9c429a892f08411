package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmpilot/pkg/models"
)

func TestInMemoryStoreCampaignCopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	in := &models.Campaign{
		ID:   "c1",
		Name: "GlowBrew",
		Product: models.ProductProfile{
			Name:           "GlowBrew",
			Description:    "cold brew concentrate",
			Entities:       map[string][]string{"pain_points": {"bitter coffee"}},
			ScoutingLabels: []string{"coffee"},
		},
		Platforms: []string{"twitter"},
		Status:    models.CampaignStatusActive,
		Pipeline:  models.PipelineStatus{Stage: models.StageCompleted, Completed: []models.Stage{models.StageIntent}},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateCampaign(ctx, in))

	// Mutating the caller's struct after Create must not reach the store.
	in.Platforms[0] = "reddit"
	in.Pipeline.Completed[0] = models.StageError
	in.Product.Entities["pain_points"][0] = "mutated"

	got, err := store.GetCampaign(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"twitter"}, got.Platforms)
	assert.Equal(t, []models.Stage{models.StageIntent}, got.Pipeline.Completed)
	assert.Equal(t, []string{"bitter coffee"}, got.Product.Entities["pain_points"])

	// Mutating a retrieved copy must not reach the store either.
	got.Platforms[0] = "instagram"
	got.Pipeline.Completed[0] = models.StageVision
	got.Product.Entities["pain_points"][0] = "mutated again"
	got.Product.ScoutingLabels[0] = "tea"

	again, err := store.GetCampaign(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"twitter"}, again.Platforms)
	assert.Equal(t, []models.Stage{models.StageIntent}, again.Pipeline.Completed)
	assert.Equal(t, []string{"bitter coffee"}, again.Product.Entities["pain_points"])
	assert.Equal(t, []string{"coffee"}, again.Product.ScoutingLabels)
}

func TestInMemoryStoreEngagementMetricsTimeIsIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	require.NoError(t, store.CreateCampaign(ctx, &models.Campaign{ID: "c1"}))
	require.NoError(t, store.CreateEngagement(ctx, &models.EngagementRecord{
		ID: "e1", CampaignID: "c1", Platform: "twitter", Action: models.ActionComment,
	}))

	at := time.Now().UTC()
	require.NoError(t, store.UpdateEngagementMetrics(ctx, "e1",
		models.EngagementMetrics{Impressions: 10}, at))

	list, err := store.ListEngagements(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].MetricsAt)

	// Rewinding the copy's timestamp must leave the stored one intact.
	*list[0].MetricsAt = at.Add(-time.Hour)

	again, err := store.ListEngagements(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, again[0].MetricsAt.Equal(at))
}
