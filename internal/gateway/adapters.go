package gateway

import (
	"context"
	"fmt"

	"swarmpilot/pkg/models"
)

// bridgeAdapter maps the uniform action vocabulary onto one platform's
// bridge commands.
type bridgeAdapter struct {
	platform string
	bridge   *BridgeClient
}

func newBridgeAdapter(platform string, bridge *BridgeClient) *bridgeAdapter {
	return &bridgeAdapter{platform: platform, bridge: bridge}
}

func (a *bridgeAdapter) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	action, content := a.mapAction(req.Action, req.Content)
	if action == "" {
		return nil, fmt.Errorf("action %q not supported", req.Action)
	}

	resp, err := a.bridge.Execute(ctx, bridgeExecuteRequest{
		Action:   action,
		Platform: a.platform,
		PostURL:  req.Target,
		Content:  content,
		ParentID: req.ParentID,
	})
	if err != nil {
		return nil, err
	}
	return &ExecuteResult{ExternalID: resp.PlatformPostID, Status: resp.Status}, nil
}

// mapAction translates the uniform vocabulary into what the platform can
// actually do. Instagram has no native repost, so it is approximated as a
// quote comment on the original post.
func (a *bridgeAdapter) mapAction(action models.ActionType, content string) (string, string) {
	switch action {
	case models.ActionComment:
		return "comment", content
	case models.ActionReply:
		return "reply", content
	case models.ActionRepost:
		if a.platform == "instagram" {
			return "comment", "Sharing this: " + content
		}
		return "repost", content
	default:
		return "", ""
	}
}

func (a *bridgeAdapter) CollectMetrics(ctx context.Context, postIDs []string) ([]PostMetrics, error) {
	entries, err := a.bridge.CollectMetrics(ctx, a.platform, postIDs)
	if err != nil {
		return nil, err
	}

	out := make([]PostMetrics, 0, len(entries))
	for _, e := range entries {
		out = append(out, PostMetrics{
			PostID: e.PostID,
			Found:  true,
			EngagementMetrics: models.EngagementMetrics{
				Impressions:   e.Impressions,
				Likes:         e.Likes,
				Replies:       e.Replies,
				Reposts:       e.Reposts,
				Clicks:        e.Clicks,
				FollowerDelta: e.FollowerDelta,
			},
		})
	}
	return out, nil
}
