package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"swarmpilot/pkg/models"
)

// InMemoryStore is a Repository kept entirely in memory. Used by tests and
// by local development without a database.
type InMemoryStore struct {
	mu          sync.RWMutex
	campaigns   map[string]*models.Campaign
	engagements map[string]*models.EngagementRecord
	strategies  map[string]*models.StrategyRecord
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		campaigns:   make(map[string]*models.Campaign),
		engagements: make(map[string]*models.EngagementRecord),
		strategies:  make(map[string]*models.StrategyRecord),
	}
}

// cloneCampaign copies a campaign including its slices and maps, so the
// store and its callers never share mutable backing storage.
func cloneCampaign(c *models.Campaign) *models.Campaign {
	cp := *c
	cp.Platforms = append([]string(nil), c.Platforms...)
	cp.Pipeline.Completed = append([]models.Stage(nil), c.Pipeline.Completed...)
	cp.Product.ScoutingLabels = append([]string(nil), c.Product.ScoutingLabels...)
	if c.Product.Entities != nil {
		cp.Product.Entities = make(map[string][]string, len(c.Product.Entities))
		for k, v := range c.Product.Entities {
			cp.Product.Entities[k] = append([]string(nil), v...)
		}
	}
	return &cp
}

func cloneEngagement(e *models.EngagementRecord) *models.EngagementRecord {
	cp := *e
	if e.MetricsAt != nil {
		at := *e.MetricsAt
		cp.MetricsAt = &at
	}
	return &cp
}

func (s *InMemoryStore) CreateCampaign(_ context.Context, c *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = cloneCampaign(c)
	return nil
}

func (s *InMemoryStore) GetCampaign(_ context.Context, id string) (*models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, nil
	}
	return cloneCampaign(c), nil
}

func (s *InMemoryStore) ListCampaigns(_ context.Context) ([]*models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Campaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		out = append(out, cloneCampaign(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) UpdateCampaignStatus(_ context.Context, id string, status models.CampaignStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.campaigns[id]; ok {
		c.Status = status
		c.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *InMemoryStore) UpdateCampaignProfile(_ context.Context, id string, profile models.ProductProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.campaigns[id]; ok {
		c.Product = profile
		c.UpdatedAt = time.Now().UTC()
		s.campaigns[id] = cloneCampaign(c)
	}
	return nil
}

func (s *InMemoryStore) UpdatePipelineStatus(_ context.Context, id string, ps models.PipelineStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.campaigns[id]; ok {
		c.Pipeline = ps
		c.UpdatedAt = time.Now().UTC()
		s.campaigns[id] = cloneCampaign(c)
	}
	return nil
}

func (s *InMemoryStore) CreateEngagement(_ context.Context, e *models.EngagementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engagements[e.ID] = cloneEngagement(e)
	return nil
}

func (s *InMemoryStore) ListEngagements(_ context.Context, campaignID string) ([]*models.EngagementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.EngagementRecord
	for _, e := range s.engagements {
		if e.CampaignID == campaignID {
			out = append(out, cloneEngagement(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) UpdateEngagementMetrics(_ context.Context, id string, m models.EngagementMetrics, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.engagements[id]; ok {
		e.Metrics = m
		e.MetricsAt = &at
	}
	return nil
}

func strategyMapKey(campaignID, style, tone string) string {
	return campaignID + "|" + models.StrategyKey(style, tone)
}

func (s *InMemoryStore) GetStrategy(_ context.Context, campaignID, style, tone string) (*models.StrategyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.strategies[strategyMapKey(campaignID, style, tone)]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *InMemoryStore) UpsertStrategy(_ context.Context, r *models.StrategyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.strategies[strategyMapKey(r.CampaignID, r.Style, r.Tone)] = &cp
	return nil
}

func (s *InMemoryStore) ListStrategies(_ context.Context, campaignID string) ([]*models.StrategyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.StrategyRecord
	for _, r := range s.strategies {
		if campaignID == "" || r.CampaignID == campaignID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if out[i].AvgImpressions != out[j].AvgImpressions {
			return out[i].AvgImpressions > out[j].AvgImpressions
		}
		return out[i].SampleSize > out[j].SampleSize
	})
	return out, nil
}
