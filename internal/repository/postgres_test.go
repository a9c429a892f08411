package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"swarmpilot/pkg/models"
)

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	store := NewPostgresStore(pool)
	require.NoError(t, store.Migrate(ctx))

	now := time.Now().UTC().Truncate(time.Microsecond)
	campaign := &models.Campaign{
		ID:   uuid.New().String(),
		Name: "Integration Campaign",
		Product: models.ProductProfile{
			Name:        "GlowBrew",
			Description: "cold brew concentrate",
			Entities:    map[string][]string{"category": {"coffee"}},
		},
		Platforms: []string{"twitter", "reddit"},
		Status:    models.CampaignStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	t.Run("campaign round trip", func(t *testing.T) {
		require.NoError(t, store.CreateCampaign(ctx, campaign))

		got, err := store.GetCampaign(ctx, campaign.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, campaign.Name, got.Name)
		assert.Equal(t, campaign.Platforms, got.Platforms)
		assert.Equal(t, campaign.Product.Entities, got.Product.Entities)
		assert.Equal(t, models.CampaignStatusActive, got.Status)
	})

	t.Run("missing campaign is nil nil", func(t *testing.T) {
		got, err := store.GetCampaign(ctx, uuid.New().String())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("update pipeline status", func(t *testing.T) {
		ps := models.PipelineStatus{
			Stage:     models.StageError,
			Completed: []models.Stage{models.StageIntent, models.StageScouting},
			Error:     "vision sidecar down",
		}
		require.NoError(t, store.UpdatePipelineStatus(ctx, campaign.ID, ps))

		got, err := store.GetCampaign(ctx, campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StageError, got.Pipeline.Stage)
		assert.Equal(t, ps.Completed, got.Pipeline.Completed)
		assert.Equal(t, "vision sidecar down", got.Pipeline.Error)
	})

	t.Run("update profile and status", func(t *testing.T) {
		profile := campaign.Product
		profile.ScoutingLabels = []string{"afternoon crash"}
		require.NoError(t, store.UpdateCampaignProfile(ctx, campaign.ID, profile))
		require.NoError(t, store.UpdateCampaignStatus(ctx, campaign.ID, models.CampaignStatusPaused))

		got, err := store.GetCampaign(ctx, campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"afternoon crash"}, got.Product.ScoutingLabels)
		assert.Equal(t, models.CampaignStatusPaused, got.Status)
	})

	t.Run("engagements round trip", func(t *testing.T) {
		first := &models.EngagementRecord{
			ID:             uuid.New().String(),
			CampaignID:     campaign.ID,
			Platform:       "twitter",
			Action:         models.ActionComment,
			TargetURL:      "https://twitter.com/p/1",
			Content:        "nice post",
			StrategyKey:    "tip/helpful",
			PlatformPostID: "ext-1",
			CreatedAt:      now,
		}
		second := &models.EngagementRecord{
			ID:         uuid.New().String(),
			CampaignID: campaign.ID,
			Platform:   "reddit",
			Action:     models.ActionReply,
			CreatedAt:  now.Add(time.Second),
		}
		require.NoError(t, store.CreateEngagement(ctx, first))
		require.NoError(t, store.CreateEngagement(ctx, second))

		list, err := store.ListEngagements(ctx, campaign.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, first.ID, list[0].ID, "oldest first")
		assert.Nil(t, list[0].MetricsAt)

		at := now.Add(time.Minute)
		require.NoError(t, store.UpdateEngagementMetrics(ctx, first.ID,
			models.EngagementMetrics{Impressions: 420, Likes: 17}, at))

		list, err = store.ListEngagements(ctx, campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, 420, list[0].Metrics.Impressions)
		require.NotNil(t, list[0].MetricsAt)
		assert.WithinDuration(t, at, *list[0].MetricsAt, time.Millisecond)
	})

	t.Run("strategy upsert and ranking", func(t *testing.T) {
		top := &models.StrategyRecord{
			ID: uuid.New().String(), CampaignID: campaign.ID,
			Style: "tip", Tone: "helpful",
			SampleSize: 5, AvgImpressions: 300, Confidence: 0.9, UpdatedAt: now,
		}
		low := &models.StrategyRecord{
			ID: uuid.New().String(), CampaignID: campaign.ID,
			Style: "story", Tone: "personal",
			SampleSize: 2, AvgImpressions: 40, Confidence: 0.5, UpdatedAt: now,
		}
		require.NoError(t, store.UpsertStrategy(ctx, top))
		require.NoError(t, store.UpsertStrategy(ctx, low))

		// Re-upserting the same (campaign, style, tone) updates in place.
		top.SampleSize = 6
		top.Confidence = 0.92
		require.NoError(t, store.UpsertStrategy(ctx, top))

		got, err := store.GetStrategy(ctx, campaign.ID, "tip", "helpful")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 6, got.SampleSize)
		assert.InDelta(t, 0.92, got.Confidence, 1e-9)

		ranked, err := store.ListStrategies(ctx, campaign.ID)
		require.NoError(t, err)
		require.Len(t, ranked, 2)
		assert.Equal(t, "tip", ranked[0].Style)
		assert.Equal(t, "story", ranked[1].Style)
	})

	t.Run("global strategy scope", func(t *testing.T) {
		global := &models.StrategyRecord{
			ID: uuid.New().String(), Style: "question", Tone: "curious",
			Confidence: 0.5, UpdatedAt: now,
		}
		require.NoError(t, store.UpsertStrategy(ctx, global))

		got, err := store.GetStrategy(ctx, "", "question", "curious")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Empty(t, got.CampaignID)

		// The campaign-scoped listing excludes global records; the
		// empty scope returns everything.
		scoped, err := store.ListStrategies(ctx, campaign.ID)
		require.NoError(t, err)
		assert.Len(t, scoped, 2)

		all, err := store.ListStrategies(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("missing strategy is nil nil", func(t *testing.T) {
		got, err := store.GetStrategy(ctx, campaign.ID, "nope", "never")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("list campaigns newest first", func(t *testing.T) {
		newer := &models.Campaign{
			ID:        uuid.New().String(),
			Name:      "Newer Campaign",
			Status:    models.CampaignStatusDraft,
			CreatedAt: now.Add(time.Hour),
			UpdatedAt: now.Add(time.Hour),
		}
		require.NoError(t, store.CreateCampaign(ctx, newer))

		list, err := store.ListCampaigns(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer.ID, list[0].ID)
	})
}
