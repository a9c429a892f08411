// Command seed populates the database with a demo campaign and the
// starter strategy pool for local development.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"swarmpilot/internal/config"
	"swarmpilot/internal/logging"
	"swarmpilot/internal/repository"
	"swarmpilot/pkg/models"
)

func main() {
	logger := logging.NewLogger()
	defer logger.Sync()

	root := &cobra.Command{
		Use:           "seed",
		Short:         "Populate the campaign database with demo data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(campaignCmd(logger), strategiesCmd(logger))

	if err := root.Execute(); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func campaignCmd(logger *logging.Logger) *cobra.Command {
	var (
		name        string
		product     string
		description string
		platforms   []string
	)

	cmd := &cobra.Command{
		Use:   "campaign",
		Short: "Create a demo campaign",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, cleanup, err := connect(ctx, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			existing, err := store.ListCampaigns(ctx)
			if err != nil {
				return fmt.Errorf("list campaigns: %w", err)
			}
			for _, c := range existing {
				if c.Name == name {
					logger.Info("campaign already exists", "id", c.ID, "name", name)
					return nil
				}
			}

			now := time.Now().UTC()
			campaign := &models.Campaign{
				ID:   uuid.New().String(),
				Name: name,
				Product: models.ProductProfile{
					Name:        product,
					Description: description,
				},
				Platforms: platforms,
				Status:    models.CampaignStatusDraft,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := store.CreateCampaign(ctx, campaign); err != nil {
				return fmt.Errorf("create campaign: %w", err)
			}

			logger.Info("campaign created", "id", campaign.ID, "name", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "Demo Campaign", "campaign name")
	cmd.Flags().StringVar(&product, "product", "GlowBrew", "product name")
	cmd.Flags().StringVar(&description, "description",
		"GlowBrew is a cold-brew coffee concentrate with adaptogens for focus without jitters.",
		"product description")
	cmd.Flags().StringSliceVar(&platforms, "platforms", []string{"twitter", "reddit"}, "target platforms")
	return cmd
}

func strategiesCmd(logger *logging.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "Install the starter strategy pool into the global scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, cleanup, err := connect(ctx, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			pairs := []struct{ style, tone string }{
				{"testimonial", "casual"},
				{"question", "curious"},
				{"tip", "helpful"},
				{"story", "personal"},
			}
			for _, p := range pairs {
				existing, err := store.GetStrategy(ctx, "", p.style, p.tone)
				if err != nil {
					return fmt.Errorf("lookup strategy %s/%s: %w", p.style, p.tone, err)
				}
				if existing != nil {
					continue
				}
				record := &models.StrategyRecord{
					ID:         uuid.New().String(),
					Style:      p.style,
					Tone:       p.tone,
					Confidence: 0.5,
					UpdatedAt:  time.Now().UTC(),
				}
				if err := store.UpsertStrategy(ctx, record); err != nil {
					return fmt.Errorf("seed strategy %s/%s: %w", p.style, p.tone, err)
				}
				logger.Info("strategy seeded", "style", p.style, "tone", p.tone)
			}
			return nil
		},
	}
}

func connect(ctx context.Context, logger *logging.Logger) (repository.Repository, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	store := repository.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("database connected", "host", cfg.DB.Host, "database", cfg.DB.Name)
	return store, pool.Close, nil
}
