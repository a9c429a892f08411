package graph

import (
	"context"
	"sort"
	"sync"

	"swarmpilot/pkg/models"
)

// InMemoryStore keeps the projection in process memory. It backs local
// development and tests when no graph service is configured.
type InMemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]models.KnowledgeGraphNode
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nodes: make(map[string]models.KnowledgeGraphNode)}
}

func (s *InMemoryStore) UpsertNodes(ctx context.Context, nodes []models.KnowledgeGraphNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		s.nodes[n.ID] = n
	}
	return nil
}

// QueryNodes returns nodes whose campaign_id attribute matches, or all
// nodes when campaignID is empty, ordered by id for stable output.
func (s *InMemoryStore) QueryNodes(ctx context.Context, campaignID string) ([]models.KnowledgeGraphNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.KnowledgeGraphNode, 0, len(s.nodes))
	for id, n := range s.nodes {
		if campaignID != "" && n.Attrs["campaign_id"] != campaignID && id != "campaign:"+campaignID {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
