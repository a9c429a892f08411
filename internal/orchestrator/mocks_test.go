package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"swarmpilot/internal/gateway"
	"swarmpilot/internal/services"
	"swarmpilot/pkg/models"
)

// stubExtractor returns fixed entities. Inputs containing "poison" fail,
// so tests can break one campaign without touching the others.
type stubExtractor struct {
	calls atomic.Int32
	err   error
}

func (s *stubExtractor) Extract(ctx context.Context, text string, labels []string) (map[string][]string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	if strings.Contains(text, "poison") {
		return nil, errors.New("extraction service unavailable")
	}
	return map[string][]string{
		"product_name": {"GlowBrew"},
		"pain_points":  {"afternoon crash", "jitters"},
	}, nil
}

type stubSynthesizer struct {
	draftCalls   atomic.Int32
	validateMiss []string
	draftErr     error
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, entities map[string][]string, profileContext string) (*services.SynthesizedProfile, error) {
	return &services.SynthesizedProfile{
		Entities:       map[string][]string{"category": {"coffee"}},
		ScoutingLabels: []string{"afternoon crash", "jitters"},
	}, nil
}

func (s *stubSynthesizer) Draft(ctx context.Context, posts []models.ScoutedPost, style, tone, campaignContext string) ([]services.DraftedAction, error) {
	s.draftCalls.Add(1)
	if s.draftErr != nil {
		return nil, s.draftErr
	}
	drafts := make([]services.DraftedAction, 0, len(posts))
	for _, p := range posts {
		drafts = append(drafts, services.DraftedAction{
			PostID:  p.ID,
			Action:  models.ActionComment,
			Content: "drafted for " + p.ID,
			Style:   style,
			Tone:    tone,
		})
	}
	return drafts, nil
}

func (s *stubSynthesizer) Validate(ctx context.Context, draft string, requiredLabels []string) (*services.ValidationResult, error) {
	return &services.ValidationResult{Present: requiredLabels, Missing: s.validateMiss}, nil
}

type stubVision struct {
	calls atomic.Int32
	err   error
}

func (s *stubVision) Analyze(ctx context.Context, mediaRef string) ([]string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return []string{"iced coffee", "desk"}, nil
}

// stubScout optionally blocks on a channel so tests can hold a cycle
// open mid-stage.
type stubScout struct {
	calls atomic.Int32
	posts []models.ScoutedPost
	err   error
	block chan struct{}
}

func (s *stubScout) FindCandidates(ctx context.Context, labels []string, platforms []string) ([]models.ScoutedPost, error) {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.ScoutedPost, len(s.posts))
	copy(out, s.posts)
	return out, nil
}

// fakeAdapter is an in-memory gateway.Adapter.
type fakeAdapter struct {
	mu       sync.Mutex
	executed []gateway.ExecuteRequest
	nextID   int
	err      error
	metrics  map[string]models.EngagementMetrics
}

func (f *fakeAdapter) Execute(ctx context.Context, req gateway.ExecuteRequest) (*gateway.ExecuteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	f.executed = append(f.executed, req)
	return &gateway.ExecuteResult{ExternalID: fmt.Sprintf("ext-%d", f.nextID), Status: "posted"}, nil
}

func (f *fakeAdapter) CollectMetrics(ctx context.Context, postIDs []string) ([]gateway.PostMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]gateway.PostMetrics, 0, len(postIDs))
	for _, id := range postIDs {
		if m, ok := f.metrics[id]; ok {
			out = append(out, gateway.PostMetrics{PostID: id, Found: true, EngagementMetrics: m})
		}
	}
	return out, nil
}

func (f *fakeAdapter) executedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.executed)
}
