package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"swarmpilot/pkg/models"
)

// Schema is the DDL for the campaign store. Applied by Migrate and by the
// integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS campaigns (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	product    JSONB NOT NULL DEFAULT '{}',
	platforms  JSONB NOT NULL DEFAULT '[]',
	status     TEXT NOT NULL,
	pipeline   JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS engagements (
	id               TEXT PRIMARY KEY,
	campaign_id      TEXT NOT NULL REFERENCES campaigns(id),
	platform         TEXT NOT NULL,
	action           TEXT NOT NULL,
	target_url       TEXT NOT NULL DEFAULT '',
	content          TEXT NOT NULL DEFAULT '',
	strategy_key     TEXT NOT NULL DEFAULT '',
	platform_post_id TEXT NOT NULL DEFAULT '',
	metrics          JSONB NOT NULL DEFAULT '{}',
	created_at       TIMESTAMPTZ NOT NULL,
	metrics_at       TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_engagements_campaign ON engagements(campaign_id);
CREATE TABLE IF NOT EXISTS strategies (
	id              TEXT PRIMARY KEY,
	campaign_id     TEXT NOT NULL DEFAULT '',
	style           TEXT NOT NULL,
	tone            TEXT NOT NULL,
	sample_size     INT NOT NULL DEFAULT 0,
	avg_impressions DOUBLE PRECISION NOT NULL DEFAULT 0,
	avg_likes       DOUBLE PRECISION NOT NULL DEFAULT 0,
	impressions_m2  DOUBLE PRECISION NOT NULL DEFAULT 0,
	confidence      DOUBLE PRECISION NOT NULL DEFAULT 0,
	updated_at      TIMESTAMPTZ NOT NULL,
	UNIQUE (campaign_id, style, tone)
);
`

// PostgresStore is a PostgreSQL implementation of the Repository interface.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	return err
}

// CreateCampaign inserts a new campaign row.
func (s *PostgresStore) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	product, err := json.Marshal(c.Product)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	platforms, err := json.Marshal(c.Platforms)
	if err != nil {
		return fmt.Errorf("marshal platforms: %w", err)
	}
	pipeline, err := json.Marshal(c.Pipeline)
	if err != nil {
		return fmt.Errorf("marshal pipeline: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO campaigns (id, name, product, platforms, status, pipeline, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.Name, product, platforms, c.Status, pipeline, c.CreatedAt, c.UpdatedAt)
	return err
}

func scanCampaign(row pgx.Row) (*models.Campaign, error) {
	var c models.Campaign
	var product, platforms, pipeline []byte
	err := row.Scan(&c.ID, &c.Name, &product, &platforms, &c.Status, &pipeline, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(product, &c.Product); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	if err := json.Unmarshal(platforms, &c.Platforms); err != nil {
		return nil, fmt.Errorf("unmarshal platforms: %w", err)
	}
	if err := json.Unmarshal(pipeline, &c.Pipeline); err != nil {
		return nil, fmt.Errorf("unmarshal pipeline: %w", err)
	}
	return &c, nil
}

const campaignColumns = `id, name, product, platforms, status, pipeline, created_at, updated_at`

// GetCampaign retrieves a campaign by id, or (nil, nil) when absent.
func (s *PostgresStore) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	c, err := scanCampaign(s.db.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// ListCampaigns returns all campaigns, newest first.
func (s *PostgresStore) ListCampaigns(ctx context.Context) ([]*models.Campaign, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCampaignStatus sets the lifecycle status.
func (s *PostgresStore) UpdateCampaignStatus(ctx context.Context, id string, status models.CampaignStatus) error {
	_, err := s.db.Exec(ctx,
		`UPDATE campaigns SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id)
	return err
}

// UpdateCampaignProfile replaces the product profile.
func (s *PostgresStore) UpdateCampaignProfile(ctx context.Context, id string, profile models.ProductProfile) error {
	product, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`UPDATE campaigns SET product = $1, updated_at = $2 WHERE id = $3`,
		product, time.Now().UTC(), id)
	return err
}

// UpdatePipelineStatus overwrites the pipeline status.
func (s *PostgresStore) UpdatePipelineStatus(ctx context.Context, id string, ps models.PipelineStatus) error {
	pipeline, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("marshal pipeline: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`UPDATE campaigns SET pipeline = $1, updated_at = $2 WHERE id = $3`,
		pipeline, time.Now().UTC(), id)
	return err
}

// CreateEngagement inserts a new engagement record.
func (s *PostgresStore) CreateEngagement(ctx context.Context, e *models.EngagementRecord) error {
	metrics, err := json.Marshal(e.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO engagements (id, campaign_id, platform, action, target_url, content, strategy_key, platform_post_id, metrics, created_at, metrics_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.CampaignID, e.Platform, e.Action, e.TargetURL, e.Content, e.StrategyKey, e.PlatformPostID, metrics, e.CreatedAt, e.MetricsAt)
	return err
}

// ListEngagements returns a campaign's engagements, oldest first.
func (s *PostgresStore) ListEngagements(ctx context.Context, campaignID string) ([]*models.EngagementRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, campaign_id, platform, action, target_url, content, strategy_key, platform_post_id, metrics, created_at, metrics_at
		 FROM engagements WHERE campaign_id = $1 ORDER BY created_at`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.EngagementRecord
	for rows.Next() {
		var e models.EngagementRecord
		var metrics []byte
		err := rows.Scan(&e.ID, &e.CampaignID, &e.Platform, &e.Action, &e.TargetURL, &e.Content, &e.StrategyKey, &e.PlatformPostID, &metrics, &e.CreatedAt, &e.MetricsAt)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(metrics, &e.Metrics); err != nil {
			return nil, fmt.Errorf("unmarshal metrics: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// UpdateEngagementMetrics stores a metrics snapshot for one engagement.
func (s *PostgresStore) UpdateEngagementMetrics(ctx context.Context, id string, m models.EngagementMetrics, at time.Time) error {
	metrics, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`UPDATE engagements SET metrics = $1, metrics_at = $2 WHERE id = $3`,
		metrics, at, id)
	return err
}

const strategyColumns = `id, campaign_id, style, tone, sample_size, avg_impressions, avg_likes, impressions_m2, confidence, updated_at`

// GetStrategy retrieves a (style, tone) record, or (nil, nil) when absent.
func (s *PostgresStore) GetStrategy(ctx context.Context, campaignID, style, tone string) (*models.StrategyRecord, error) {
	var r models.StrategyRecord
	err := s.db.QueryRow(ctx,
		`SELECT `+strategyColumns+` FROM strategies WHERE campaign_id = $1 AND style = $2 AND tone = $3`,
		campaignID, style, tone).
		Scan(&r.ID, &r.CampaignID, &r.Style, &r.Tone, &r.SampleSize, &r.AvgImpressions, &r.AvgLikes, &r.ImpressionsM2, &r.Confidence, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpsertStrategy inserts or replaces a strategy record.
func (s *PostgresStore) UpsertStrategy(ctx context.Context, r *models.StrategyRecord) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO strategies (`+strategyColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (campaign_id, style, tone) DO UPDATE SET
			sample_size = EXCLUDED.sample_size,
			avg_impressions = EXCLUDED.avg_impressions,
			avg_likes = EXCLUDED.avg_likes,
			impressions_m2 = EXCLUDED.impressions_m2,
			confidence = EXCLUDED.confidence,
			updated_at = EXCLUDED.updated_at`,
		r.ID, r.CampaignID, r.Style, r.Tone, r.SampleSize, r.AvgImpressions, r.AvgLikes, r.ImpressionsM2, r.Confidence, r.UpdatedAt)
	return err
}

// ListStrategies returns strategies ranked best-first.
func (s *PostgresStore) ListStrategies(ctx context.Context, campaignID string) ([]*models.StrategyRecord, error) {
	query := `SELECT ` + strategyColumns + ` FROM strategies`
	args := []interface{}{}
	if campaignID != "" {
		query += ` WHERE campaign_id = $1`
		args = append(args, campaignID)
	}
	query += ` ORDER BY confidence DESC, avg_impressions DESC, sample_size DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.StrategyRecord
	for rows.Next() {
		var r models.StrategyRecord
		err := rows.Scan(&r.ID, &r.CampaignID, &r.Style, &r.Tone, &r.SampleSize, &r.AvgImpressions, &r.AvgLikes, &r.ImpressionsM2, &r.Confidence, &r.UpdatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
