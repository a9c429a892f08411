// Package gateway dispatches platform actions (comment, reply, repost)
// through platform-specific adapters with a uniform error contract. The
// gateway performs no retries and holds no campaign state.
package gateway

import (
	"context"
	"fmt"

	"swarmpilot/internal/logging"
	"swarmpilot/pkg/models"
)

// UnsupportedPlatformError reports a platform with no registered adapter.
// It is a configuration problem and is never retried.
type UnsupportedPlatformError struct {
	Platform string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform %q", e.Platform)
}

// ExecutionError reports the failure of a single platform action. Sibling
// actions in the same batch are unaffected.
type ExecutionError struct {
	Platform string
	Action   models.ActionType
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Platform, e.Action, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// ExecuteRequest describes one platform action to perform.
type ExecuteRequest struct {
	Platform string
	Action   models.ActionType
	Target   string
	Content  string
	ParentID string
}

// ExecuteResult is the outcome of a successful action.
type ExecuteResult struct {
	ExternalID string
	Status     string
}

// PostMetrics is the metrics result for one post id. Found is false for
// ids the platform could not resolve; such entries carry zeroed metrics.
type PostMetrics struct {
	PostID string
	Found  bool
	models.EngagementMetrics
}

// Adapter maps the uniform action vocabulary onto one platform.
type Adapter interface {
	Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error)
	CollectMetrics(ctx context.Context, postIDs []string) ([]PostMetrics, error)
}

// Gateway resolves a platform to its adapter and dispatches actions.
type Gateway struct {
	adapters map[string]Adapter
	bridge   *BridgeClient
	logger   *logging.Logger
}

// New creates a Gateway with one bridge-backed adapter per configured
// platform.
func New(bridge *BridgeClient, platforms []string, logger *logging.Logger) *Gateway {
	g := &Gateway{
		adapters: make(map[string]Adapter, len(platforms)),
		bridge:   bridge,
		logger:   logger,
	}
	for _, p := range platforms {
		g.adapters[p] = newBridgeAdapter(p, bridge)
	}
	return g
}

// Register adds or replaces the adapter for a platform.
func (g *Gateway) Register(platform string, a Adapter) {
	g.adapters[platform] = a
}

// Execute performs one platform action. Unsupported platforms fail with
// UnsupportedPlatformError; adapter failures surface as ExecutionError.
// Every successful call returns a fresh externally assigned id; the
// gateway never deduplicates.
func (g *Gateway) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	adapter, ok := g.adapters[req.Platform]
	if !ok {
		return nil, &UnsupportedPlatformError{Platform: req.Platform}
	}

	res, err := adapter.Execute(ctx, req)
	if err != nil {
		return nil, &ExecutionError{Platform: req.Platform, Action: req.Action, Err: err}
	}

	g.logger.Debug("action executed",
		"platform", req.Platform, "action", req.Action, "external_id", res.ExternalID)
	return res, nil
}

// CollectMetrics fetches current metrics for a batch of post ids on one
// platform. The result always has one entry per requested id, in request
// order; ids the platform cannot resolve come back zeroed rather than
// failing the batch.
func (g *Gateway) CollectMetrics(ctx context.Context, platform string, postIDs []string) ([]PostMetrics, error) {
	adapter, ok := g.adapters[platform]
	if !ok {
		return nil, &UnsupportedPlatformError{Platform: platform}
	}

	collected, err := adapter.CollectMetrics(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("collect metrics on %s: %w", platform, err)
	}

	byID := make(map[string]PostMetrics, len(collected))
	for _, m := range collected {
		byID[m.PostID] = m
	}

	out := make([]PostMetrics, 0, len(postIDs))
	for _, id := range postIDs {
		if m, ok := byID[id]; ok {
			m.Found = true
			out = append(out, m)
			continue
		}
		out = append(out, PostMetrics{PostID: id})
	}
	return out, nil
}

// Platforms lists the registered platform names.
func (g *Gateway) Platforms() []string {
	names := make([]string, 0, len(g.adapters))
	for p := range g.adapters {
		names = append(names, p)
	}
	return names
}

// Health reports whether the execution bridge is reachable.
func (g *Gateway) Health(ctx context.Context) bool {
	if g.bridge == nil {
		return false
	}
	return g.bridge.Health(ctx)
}
