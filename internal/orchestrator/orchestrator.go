// Package orchestrator drives campaigns through the staged pipeline,
// coordinates the swarm across campaigns, and owns the heartbeat
// scheduler.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"swarmpilot/internal/bus"
	"swarmpilot/internal/gateway"
	"swarmpilot/internal/graph"
	"swarmpilot/internal/learner"
	"swarmpilot/internal/logging"
	"swarmpilot/internal/repository"
	"swarmpilot/internal/services"
	"swarmpilot/pkg/models"
)

var (
	// ErrCycleInFlight rejects a RunCycle while another cycle for the same
	// campaign is still running.
	ErrCycleInFlight = errors.New("cycle already in flight for campaign")

	// ErrCampaignNotFound reports an unknown campaign id.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrCampaignPaused reports a cycle request against a paused campaign.
	ErrCampaignPaused = errors.New("campaign is paused")
)

// Deps bundles the collaborators an Orchestrator needs.
type Deps struct {
	Repo        repository.Repository
	Bus         *bus.Bus
	Gateway     *gateway.Gateway
	Learner     *learner.Learner
	Graph       graph.Store
	Extractor   services.Extractor
	Synthesizer services.Synthesizer
	Vision      services.Vision
	Scout       services.Scout
	Logger      *logging.Logger
}

// Orchestrator advances campaigns through the pipeline one stage at a
// time, with at most one cycle in flight per campaign.
type Orchestrator struct {
	repo    repository.Repository
	bus     *bus.Bus
	gw      *gateway.Gateway
	learner *learner.Learner
	graph   graph.Store
	extract services.Extractor
	synth   services.Synthesizer
	vision  services.Vision
	scout   services.Scout
	logger  *logging.Logger

	mu      sync.Mutex
	flights map[string]*sync.Mutex

	cycleCounter  metric.Int64Counter
	actionCounter metric.Int64Counter
}

// New creates an Orchestrator.
func New(d Deps) *Orchestrator {
	meter := otel.Meter("swarmpilot/orchestrator")
	cycles, _ := meter.Int64Counter("pipeline.cycles",
		metric.WithDescription("Pipeline cycles run, by terminal stage"))
	actions, _ := meter.Int64Counter("pipeline.actions",
		metric.WithDescription("Engagement actions dispatched, by result"))

	return &Orchestrator{
		repo:          d.Repo,
		bus:           d.Bus,
		gw:            d.Gateway,
		learner:       d.Learner,
		graph:         d.Graph,
		extract:       d.Extractor,
		synth:         d.Synthesizer,
		vision:        d.Vision,
		scout:         d.Scout,
		logger:        d.Logger,
		flights:       make(map[string]*sync.Mutex),
		cycleCounter:  cycles,
		actionCounter: actions,
	}
}

// LaunchCampaign creates a campaign from a product description and runs
// its first pipeline cycle.
func (o *Orchestrator) LaunchCampaign(ctx context.Context, name, productName, productDescription string, platforms []string) (*models.Campaign, error) {
	if name == "" || productDescription == "" {
		return nil, errors.New("campaign name and product description are required")
	}
	if len(platforms) == 0 {
		platforms = o.gw.Platforms()
	}

	now := time.Now().UTC()
	campaign := &models.Campaign{
		ID:   uuid.New().String(),
		Name: name,
		Product: models.ProductProfile{
			Name:        productName,
			Description: productDescription,
		},
		Platforms: platforms,
		Status:    models.CampaignStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := o.repo.CreateCampaign(ctx, campaign); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	o.logger.Info("campaign launched", "campaign_id", campaign.ID, "name", name)

	if err := o.RunCycle(ctx, campaign.ID); err != nil {
		// The campaign exists and its pipeline status records the
		// failure; callers can retrigger a cycle.
		o.logger.Error("first cycle failed", "campaign_id", campaign.ID, "error", err)
	}

	return o.repo.GetCampaign(ctx, campaign.ID)
}

// RunCycle advances a campaign through the stage sequence, ending in
// completed or error. At most one cycle runs per campaign at a time; a
// concurrent call is rejected with ErrCycleInFlight. After a failed
// cycle, the next call resumes from the failed stage, never recomputing
// completed stages.
func (o *Orchestrator) RunCycle(ctx context.Context, campaignID string) error {
	flight := o.flightFor(campaignID)
	if !flight.TryLock() {
		return ErrCycleInFlight
	}
	defer flight.Unlock()

	campaign, err := o.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}
	if campaign == nil {
		return ErrCampaignNotFound
	}
	if campaign.Status == models.CampaignStatusPaused {
		return ErrCampaignPaused
	}
	if campaign.Status == models.CampaignStatusDraft {
		if err := o.repo.UpdateCampaignStatus(ctx, campaignID, models.CampaignStatusActive); err != nil {
			return fmt.Errorf("activate campaign: %w", err)
		}
		campaign.Status = models.CampaignStatusActive
	}

	ps := campaign.Pipeline
	if ps.Stage == models.StageError {
		// Resume: keep the completed prefix, clear the failure.
		ps.Error = ""
	} else {
		ps = models.PipelineStatus{}
	}

	cs := &cycleState{campaign: campaign}

	for _, def := range stageTable {
		if ps.HasCompleted(def.name) {
			continue
		}

		ps.Stage = def.name
		ps.Error = ""
		if err := o.repo.UpdatePipelineStatus(ctx, campaignID, ps); err != nil {
			return fmt.Errorf("persist pipeline status: %w", err)
		}
		o.emit(campaignID, def.agent, "started", models.EventStatusRunning, "", nil)

		if err := def.run(o, ctx, cs); err != nil {
			ps.Stage = models.StageError
			ps.Error = err.Error()
			if perr := o.repo.UpdatePipelineStatus(ctx, campaignID, ps); perr != nil {
				o.logger.Error("persist pipeline error state", "campaign_id", campaignID, "error", perr)
			}
			o.emit(campaignID, def.agent, "failed", models.EventStatusError, err.Error(), nil)
			o.countCycle(ctx, "error")
			return fmt.Errorf("stage %s: %w", def.name, err)
		}

		ps.Completed = append(ps.Completed, def.name)
		o.emit(campaignID, def.agent, "completed", models.EventStatusDone, cs.stageDetail, cs.stageMeta)
		cs.stageDetail, cs.stageMeta = "", nil

		if cs.halt {
			break
		}
	}

	ps.Stage = models.StageCompleted
	if err := o.repo.UpdatePipelineStatus(ctx, campaignID, ps); err != nil {
		return fmt.Errorf("persist pipeline status: %w", err)
	}
	o.countCycle(ctx, "completed")
	o.projectGraph(ctx, campaignID, cs)

	o.logger.Info("cycle completed",
		"campaign_id", campaignID, "stages", len(ps.Completed), "engagements", len(cs.engagements))
	return nil
}

// Pause stops new cycles from starting for a campaign. An in-flight
// cycle is not interrupted.
func (o *Orchestrator) Pause(ctx context.Context, campaignID string) error {
	return o.setStatus(ctx, campaignID, models.CampaignStatusPaused)
}

// Resume re-enables cycles for a paused campaign.
func (o *Orchestrator) Resume(ctx context.Context, campaignID string) error {
	return o.setStatus(ctx, campaignID, models.CampaignStatusActive)
}

func (o *Orchestrator) setStatus(ctx context.Context, campaignID string, status models.CampaignStatus) error {
	campaign, err := o.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}
	if campaign == nil {
		return ErrCampaignNotFound
	}
	if err := o.repo.UpdateCampaignStatus(ctx, campaignID, status); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	o.logger.Info("campaign status changed", "campaign_id", campaignID, "status", status)
	return nil
}

// flightFor returns the single-flight lock for a campaign, creating it
// lazily so unrelated campaigns never contend. Entries are never evicted;
// the map grows with the number of distinct campaigns seen, which stays
// small for this service.
func (o *Orchestrator) flightFor(campaignID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.flights[campaignID]
	if !ok {
		lock = &sync.Mutex{}
		o.flights[campaignID] = lock
	}
	return lock
}

func (o *Orchestrator) emit(campaignID string, agent models.AgentName, action string, status models.EventStatus, detail string, meta map[string]interface{}) {
	o.bus.Publish(models.ActivityEvent{
		CampaignID: campaignID,
		Agent:      agent,
		Action:     action,
		Status:     status,
		Detail:     detail,
		Metadata:   meta,
	})
}

func (o *Orchestrator) countCycle(ctx context.Context, outcome string) {
	if o.cycleCounter != nil {
		o.cycleCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func (o *Orchestrator) projectGraph(ctx context.Context, campaignID string, cs *cycleState) {
	if o.graph == nil {
		return
	}
	campaign, err := o.repo.GetCampaign(ctx, campaignID)
	if err != nil || campaign == nil {
		return
	}
	engagements, err := o.repo.ListEngagements(ctx, campaignID)
	if err != nil {
		o.logger.Error("list engagements for projection", "campaign_id", campaignID, "error", err)
		return
	}
	strategies, err := o.learner.Rankings(ctx, campaignID)
	if err != nil {
		o.logger.Error("list strategies for projection", "campaign_id", campaignID, "error", err)
		return
	}

	nodes := graph.Project(campaign, cs.posts, engagements, strategies)
	if err := o.graph.UpsertNodes(ctx, nodes); err != nil {
		// The graph is a derived projection; failing to ship it never
		// fails the cycle.
		o.logger.Error("graph projection upsert", "campaign_id", campaignID, "error", err)
	}
}
