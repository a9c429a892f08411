package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"swarmpilot/internal/logging"
	"swarmpilot/internal/repository"
	"swarmpilot/pkg/models"
)

// Heartbeat periodically sweeps all active campaigns: it collects
// engagement metrics, reruns learning where new data arrived, and
// triggers a fresh pipeline cycle. One campaign failing never affects
// the others.
type Heartbeat struct {
	orch     *Orchestrator
	repo     repository.Repository
	interval time.Duration
	limit    int
	logger   *logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHeartbeat creates a stopped Heartbeat. maxConcurrency bounds how
// many campaigns are processed in parallel per tick.
func NewHeartbeat(orch *Orchestrator, repo repository.Repository, interval time.Duration, maxConcurrency int, logger *logging.Logger) *Heartbeat {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Heartbeat{
		orch:     orch,
		repo:     repo,
		interval: interval,
		limit:    maxConcurrency,
		logger:   logger,
	}
}

// Start launches the tick loop. Calling Start on a running Heartbeat
// is a no-op and returns false.
func (h *Heartbeat) Start(ctx context.Context) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = make(chan struct{})
	go h.loop(ctx, h.done)

	h.logger.Info("heartbeat started", "interval", h.interval, "max_concurrency", h.limit)
	return true
}

// Stop cancels the loop and waits for an in-progress tick to finish.
// Stopping a stopped Heartbeat is a no-op.
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel, h.done = nil, nil
	h.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	h.logger.Info("heartbeat stopped")
}

func (h *Heartbeat) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Tick(ctx)
		}
	}
}

// Tick runs one sweep over all campaigns immediately. Exposed so an
// operator endpoint can force a sweep between intervals.
func (h *Heartbeat) Tick(ctx context.Context) {
	campaigns, err := h.repo.ListCampaigns(ctx)
	if err != nil {
		h.logger.Error("heartbeat: list campaigns", "error", err)
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(h.limit)

	swept := 0
	for _, campaign := range campaigns {
		if campaign.Status != models.CampaignStatusActive {
			continue
		}
		swept++
		id := campaign.ID
		g.Go(func() error {
			h.sweep(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	h.logger.Info("heartbeat tick", "campaigns", swept)
}

// sweep processes a single campaign. Failures are logged, never
// propagated, so one broken campaign cannot starve the rest.
func (h *Heartbeat) sweep(ctx context.Context, campaignID string) {
	summary, err := h.orch.RunMetricsCollection(ctx, campaignID)
	if err != nil {
		h.logger.Error("heartbeat: metrics collection", "campaign_id", campaignID, "error", err)
	} else if summary.Collected > 0 {
		if _, err := h.orch.RunLearning(ctx, campaignID); err != nil {
			h.logger.Error("heartbeat: learning", "campaign_id", campaignID, "error", err)
		}
	}

	err = h.orch.RunCycle(ctx, campaignID)
	switch {
	case err == nil:
	case errors.Is(err, ErrCycleInFlight), errors.Is(err, ErrCampaignPaused):
		// A manual cycle is running or the campaign was paused mid
		// sweep; the next tick picks it up.
		h.logger.Debug("heartbeat: cycle skipped", "campaign_id", campaignID, "reason", err)
	default:
		h.logger.Error("heartbeat: cycle failed", "campaign_id", campaignID, "error", err)
	}
}
