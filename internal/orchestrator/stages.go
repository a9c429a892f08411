package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"swarmpilot/internal/gateway"
	"swarmpilot/internal/services"
	"swarmpilot/pkg/models"
)

// defaultExtractionLabels are the entity labels pulled from a product
// description when a campaign supplies none of its own.
var defaultExtractionLabels = []string{
	"product_name", "category", "pain_points", "benefits", "ingredients", "target_audience",
}

// cycleState carries intermediate results between stages of one cycle.
type cycleState struct {
	campaign    *models.Campaign
	posts       []models.ScoutedPost
	strategy    *models.StrategyRecord
	drafts      []services.DraftedAction
	engagements []*models.EngagementRecord

	// halt ends the cycle early as completed, e.g. when scouting finds
	// no candidates.
	halt        bool
	stageDetail string
	stageMeta   map[string]interface{}
}

type stageDef struct {
	name  models.Stage
	agent models.AgentName
	run   func(o *Orchestrator, ctx context.Context, cs *cycleState) error
}

var stageTable = []stageDef{
	{models.StageIntent, models.AgentIntent, (*Orchestrator).runIntent},
	{models.StageScouting, models.AgentScout, (*Orchestrator).runScouting},
	{models.StageVision, models.AgentVision, (*Orchestrator).runVision},
	{models.StageStrategy, models.AgentStrategy, (*Orchestrator).runStrategy},
	{models.StageEngagement, models.AgentEngagement, (*Orchestrator).runEngagement},
}

// runIntent extracts entities from the product description and
// synthesizes them into the structured profile the later stages work
// from.
func (o *Orchestrator) runIntent(ctx context.Context, cs *cycleState) error {
	product := cs.campaign.Product

	entities, err := o.extract.Extract(ctx, product.Description, defaultExtractionLabels)
	if err != nil {
		return err
	}

	profile, err := o.synth.Synthesize(ctx, entities, product.Name)
	if err != nil {
		return err
	}

	merged := make(map[string][]string, len(entities)+len(profile.Entities))
	for label, values := range entities {
		merged[label] = values
	}
	for label, values := range profile.Entities {
		merged[label] = values
	}
	product.Entities = merged
	product.ScoutingLabels = profile.ScoutingLabels
	if len(product.ScoutingLabels) == 0 {
		product.ScoutingLabels = merged["pain_points"]
	}

	if err := o.repo.UpdateCampaignProfile(ctx, cs.campaign.ID, product); err != nil {
		return fmt.Errorf("persist product profile: %w", err)
	}
	cs.campaign.Product = product

	cs.stageDetail = fmt.Sprintf("extracted %d entity labels", len(merged))
	cs.stageMeta = map[string]interface{}{"scouting_labels": product.ScoutingLabels}
	return nil
}

// runScouting searches the configured platforms for posts relevant to
// the campaign. Zero candidates ends the cycle as completed.
func (o *Orchestrator) runScouting(ctx context.Context, cs *cycleState) error {
	labels := cs.campaign.Product.ScoutingLabels
	if len(labels) == 0 {
		labels = sortedKeys(cs.campaign.Product.Entities)
	}

	posts, err := o.scout.FindCandidates(ctx, labels, cs.campaign.Platforms)
	if err != nil {
		return err
	}

	for i := range posts {
		if posts[i].ID == "" {
			posts[i].ID = uuid.New().String()
		}
		posts[i].CampaignID = cs.campaign.ID
	}
	cs.posts = posts

	if len(posts) == 0 {
		cs.halt = true
		cs.stageDetail = "no candidate posts found"
		return nil
	}
	cs.stageDetail = fmt.Sprintf("found %d candidate posts", len(posts))
	return nil
}

// runVision enriches scouted posts that carry media with a textual
// description of what the media shows. Posts without media pass
// through untouched.
func (o *Orchestrator) runVision(ctx context.Context, cs *cycleState) error {
	analyzed := 0
	for i := range cs.posts {
		post := &cs.posts[i]
		if len(post.MediaURLs) == 0 {
			continue
		}
		observations, err := o.vision.Analyze(ctx, post.MediaURLs[0])
		if err != nil {
			return err
		}
		post.VisualContext = strings.Join(observations, ", ")
		analyzed++
	}
	cs.stageDetail = fmt.Sprintf("analyzed media on %d of %d posts", analyzed, len(cs.posts))
	return nil
}

// runStrategy picks a style/tone pair from the learner and drafts one
// action per candidate post in that voice. Drafts that fail claim
// validation against the product profile are dropped.
func (o *Orchestrator) runStrategy(ctx context.Context, cs *cycleState) error {
	strategy, err := o.learner.Select(ctx, cs.campaign.ID)
	if err != nil {
		return err
	}
	cs.strategy = strategy

	drafts, err := o.synth.Draft(ctx, cs.posts, strategy.Style, strategy.Tone, profileContext(cs.campaign.Product))
	if err != nil {
		return err
	}

	required := cs.campaign.Product.ScoutingLabels
	kept := drafts[:0]
	dropped := 0
	for _, draft := range drafts {
		result, err := o.synth.Validate(ctx, draft.Content, required)
		if err != nil {
			return err
		}
		if len(result.Missing) > 0 {
			dropped++
			o.logger.Warn("draft failed validation",
				"campaign_id", cs.campaign.ID, "post_id", draft.PostID, "missing", result.Missing)
			continue
		}
		if draft.Style == "" {
			draft.Style = strategy.Style
		}
		if draft.Tone == "" {
			draft.Tone = strategy.Tone
		}
		kept = append(kept, draft)
	}
	cs.drafts = kept

	cs.stageDetail = fmt.Sprintf("strategy %s: %d drafts, %d dropped", strategy.Key(), len(kept), dropped)
	cs.stageMeta = map[string]interface{}{"style": strategy.Style, "tone": strategy.Tone}
	return nil
}

// runEngagement dispatches all drafted actions through the gateway
// concurrently. A single failed action is recorded and skipped; it
// never aborts the batch.
func (o *Orchestrator) runEngagement(ctx context.Context, cs *cycleState) error {
	postsByID := make(map[string]*models.ScoutedPost, len(cs.posts))
	for i := range cs.posts {
		postsByID[cs.posts[i].ID] = &cs.posts[i]
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for _, draft := range cs.drafts {
		post, ok := postsByID[draft.PostID]
		if !ok {
			o.logger.Warn("draft references unknown post", "campaign_id", cs.campaign.ID, "post_id", draft.PostID)
			continue
		}

		wg.Add(1)
		go func(draft services.DraftedAction, post *models.ScoutedPost) {
			defer wg.Done()

			result, err := o.gw.Execute(ctx, gateway.ExecuteRequest{
				Platform: post.Platform,
				Action:   draft.Action,
				Target:   post.URL,
				Content:  draft.Content,
				ParentID: draft.ParentID,
			})
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				o.countAction(ctx, post.Platform, "error")
				o.emit(cs.campaign.ID, models.AgentEngagement, "posted", models.EventStatusError, err.Error(),
					map[string]interface{}{"platform": post.Platform, "target_url": post.URL})
				o.logger.Error("engagement action failed",
					"campaign_id", cs.campaign.ID, "platform", post.Platform, "error", err)
				return
			}

			record := &models.EngagementRecord{
				ID:             uuid.New().String(),
				CampaignID:     cs.campaign.ID,
				Platform:       post.Platform,
				Action:         draft.Action,
				TargetURL:      post.URL,
				Content:        draft.Content,
				StrategyKey:    models.StrategyKey(draft.Style, draft.Tone),
				PlatformPostID: result.ExternalID,
				CreatedAt:      time.Now().UTC(),
			}
			if err := o.repo.CreateEngagement(ctx, record); err != nil {
				o.logger.Error("persist engagement", "campaign_id", cs.campaign.ID, "error", err)
				return
			}

			mu.Lock()
			cs.engagements = append(cs.engagements, record)
			mu.Unlock()
			o.countAction(ctx, post.Platform, "ok")
			o.emit(cs.campaign.ID, models.AgentEngagement, "posted", models.EventStatusDone,
				fmt.Sprintf("%s on %s", draft.Action, post.Platform),
				map[string]interface{}{"platform": post.Platform, "platform_post_id": result.ExternalID})
		}(draft, post)
	}
	wg.Wait()

	cs.stageDetail = fmt.Sprintf("dispatched %d actions, %d failed", len(cs.engagements), failed)
	return nil
}

func (o *Orchestrator) countAction(ctx context.Context, platform, result string) {
	if o.actionCounter != nil {
		o.actionCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("platform", platform),
			attribute.String("result", result),
		))
	}
}

// profileContext flattens the product profile into the free-text
// context the synthesis service drafts against.
func profileContext(product models.ProductProfile) string {
	var b strings.Builder
	b.WriteString(product.Name)
	if product.Description != "" {
		b.WriteString(": ")
		b.WriteString(product.Description)
	}
	for _, label := range sortedKeys(product.Entities) {
		b.WriteString("\n")
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(strings.Join(product.Entities[label], ", "))
	}
	return b.String()
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
