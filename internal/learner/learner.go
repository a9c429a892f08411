// Package learner maintains the ranked table of (style, tone) strategies
// and turns engagement outcomes into updated running statistics and
// confidence scores.
package learner

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"swarmpilot/internal/logging"
	"swarmpilot/internal/repository"
	"swarmpilot/pkg/models"
)

// seedPairs are the starting strategies offered before any outcome data
// exists. New pairings are created lazily as the synthesis service
// proposes them.
var seedPairs = []struct{ Style, Tone string }{
	{"testimonial", "casual"},
	{"question", "curious"},
	{"tip", "helpful"},
	{"story", "personal"},
}

// Config tunes selection and confidence scoring.
type Config struct {
	// PriorConfidence is the score assigned before any samples exist.
	PriorConfidence float64
	// MinSamples is the exploration threshold: while every known strategy
	// has fewer samples than this, selection stays uniform.
	MinSamples int
	// SaturationHalfLife is the sample count at which the sample-size term
	// of the confidence score reaches one half.
	SaturationHalfLife float64
}

// Learner selects strategies for upcoming engagements and folds observed
// outcomes back into their running statistics.
type Learner struct {
	repo   repository.Repository
	cfg    Config
	logger *logging.Logger

	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a Learner.
func New(repo repository.Repository, cfg Config, logger *logging.Logger) *Learner {
	if cfg.PriorConfidence <= 0 {
		cfg.PriorConfidence = 0.5
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 3
	}
	if cfg.SaturationHalfLife <= 0 {
		cfg.SaturationHalfLife = 5
	}
	return &Learner{
		repo:     repo,
		cfg:      cfg,
		logger:   logger,
		keyLocks: make(map[string]*sync.Mutex),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Select chooses the strategy for the next engagement of a campaign.
// Known campaign strategies are preferred; the global pool is the
// fallback; an empty table yields a fresh seed record carrying the prior
// confidence and zero samples. While every known strategy is below the
// minimum sample threshold, selection explores uniformly instead of
// exploiting the current ranking.
func (l *Learner) Select(ctx context.Context, campaignID string) (*models.StrategyRecord, error) {
	records, err := l.repo.ListStrategies(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list campaign strategies: %w", err)
	}
	if len(records) == 0 && campaignID != "" {
		records, err = l.repo.ListStrategies(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("list global strategies: %w", err)
		}
	}

	if len(records) == 0 {
		return l.seedStrategy(ctx, campaignID)
	}

	lowSample := records[:0:0]
	for _, r := range records {
		if r.SampleSize < l.cfg.MinSamples {
			lowSample = append(lowSample, r)
		}
	}
	if len(lowSample) == len(records) {
		pick := lowSample[l.intn(len(lowSample))]
		l.logger.Debug("strategy selection exploring",
			"campaign_id", campaignID, "strategy", pick.Key(), "samples", pick.SampleSize)
		return pick, nil
	}

	// ListStrategies ranks by confidence, avg impressions, sample size.
	return records[0], nil
}

// RecordOutcome folds one observed metrics snapshot into the named
// strategy's running statistics. Updates to the same key are serialized;
// different keys proceed concurrently.
func (l *Learner) RecordOutcome(ctx context.Context, campaignID, style, tone string, m models.EngagementMetrics) error {
	lock := l.keyLock(campaignID + "|" + models.StrategyKey(style, tone))
	lock.Lock()
	defer lock.Unlock()

	record, err := l.repo.GetStrategy(ctx, campaignID, style, tone)
	if err != nil {
		return fmt.Errorf("get strategy: %w", err)
	}
	if record == nil {
		record = &models.StrategyRecord{
			ID:         uuid.New().String(),
			CampaignID: campaignID,
			Style:      style,
			Tone:       tone,
			Confidence: l.cfg.PriorConfidence,
		}
	}

	n := float64(record.SampleSize)
	impressions := float64(m.Impressions)

	delta := impressions - record.AvgImpressions
	record.AvgImpressions += delta / (n + 1)
	record.ImpressionsM2 += delta * (impressions - record.AvgImpressions)

	record.AvgLikes += (float64(m.Likes) - record.AvgLikes) / (n + 1)
	record.SampleSize++
	record.Confidence = l.confidence(record)
	record.UpdatedAt = time.Now().UTC()

	if err := l.repo.UpsertStrategy(ctx, record); err != nil {
		return fmt.Errorf("upsert strategy: %w", err)
	}
	return nil
}

// Rankings returns the current strategy table, best first.
func (l *Learner) Rankings(ctx context.Context, campaignID string) ([]*models.StrategyRecord, error) {
	return l.repo.ListStrategies(ctx, campaignID)
}

// confidence scores a record in [0,1]: the prior, plus headroom earned by
// sample size (saturating toward 1 with half-life h) and discounted by the
// coefficient of variation of observed impressions. Zero samples score
// exactly the prior; consistent additional samples strictly increase it.
func (l *Learner) confidence(r *models.StrategyRecord) float64 {
	n := float64(r.SampleSize)
	if n == 0 {
		return l.cfg.PriorConfidence
	}

	saturation := n / (n + l.cfg.SaturationHalfLife)

	consistency := 1.0
	if r.AvgImpressions > 0 {
		stddev := math.Sqrt(r.ImpressionsM2 / n)
		cv := stddev / r.AvgImpressions
		consistency = 1 / (1 + cv)
	}

	score := l.cfg.PriorConfidence + (1-l.cfg.PriorConfidence)*saturation*consistency
	return math.Max(0, math.Min(1, score))
}

func (l *Learner) seedStrategy(ctx context.Context, campaignID string) (*models.StrategyRecord, error) {
	pair := seedPairs[l.intn(len(seedPairs))]
	record := &models.StrategyRecord{
		ID:         uuid.New().String(),
		CampaignID: campaignID,
		Style:      pair.Style,
		Tone:       pair.Tone,
		Confidence: l.cfg.PriorConfidence,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := l.repo.UpsertStrategy(ctx, record); err != nil {
		return nil, fmt.Errorf("seed strategy: %w", err)
	}
	l.logger.Info("seeded strategy",
		"campaign_id", campaignID, "style", record.Style, "tone", record.Tone)
	return record, nil
}

// keyLock serializes RecordOutcome per strategy key. Locks are never
// evicted; the map is bounded by the number of distinct strategy keys,
// which grows far slower than outcomes.
func (l *Learner) keyLock(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.keyLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.keyLocks[key] = lock
	}
	return lock
}

func (l *Learner) intn(n int) int {
	l.rngMu.Lock()
	defer l.rngMu.Unlock()
	return l.rng.Intn(n)
}
