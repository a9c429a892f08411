package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"swarmpilot/internal/orchestrator"
)

// LaunchRequest is the payload for creating a campaign.
type LaunchRequest struct {
	Name               string   `json:"name"`
	ProductName        string   `json:"product_name"`
	ProductDescription string   `json:"product_description"`
	Platforms          []string `json:"platforms,omitempty"`
}

// CreateCampaign launches a new campaign and runs its first pipeline
// cycle before responding.
// (POST /api/v1/campaigns)
func (s *Server) CreateCampaign(c echo.Context) error {
	ctx := c.Request().Context()

	var req LaunchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if req.Name == "" || req.ProductDescription == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and product_description are required")
	}

	campaign, err := s.Orch.LaunchCampaign(ctx, req.Name, req.ProductName, req.ProductDescription, req.Platforms)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to launch campaign: "+err.Error())
	}
	return c.JSON(http.StatusCreated, campaign)
}

// ListCampaigns returns all campaigns.
// (GET /api/v1/campaigns)
func (s *Server) ListCampaigns(c echo.Context) error {
	campaigns, err := s.Repo.ListCampaigns(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, campaigns)
}

// GetCampaign returns one campaign by id.
// (GET /api/v1/campaigns/:id)
func (s *Server) GetCampaign(c echo.Context) error {
	campaign, err := s.Repo.GetCampaign(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if campaign == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Campaign not found")
	}
	return c.JSON(http.StatusOK, campaign)
}

// GetCampaignStatus returns just the campaign status and pipeline
// progress, for cheap polling.
// (GET /api/v1/campaigns/:id/status)
func (s *Server) GetCampaignStatus(c echo.Context) error {
	campaign, err := s.Repo.GetCampaign(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if campaign == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Campaign not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":       campaign.ID,
		"status":   campaign.Status,
		"pipeline": campaign.Pipeline,
	})
}

// TriggerCycle runs one pipeline cycle synchronously. A cycle already
// in flight, or a paused campaign, is a conflict.
// (POST /api/v1/campaigns/:id/cycle)
func (s *Server) TriggerCycle(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	err := s.Orch.RunCycle(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, orchestrator.ErrCampaignNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Campaign not found")
	case errors.Is(err, orchestrator.ErrCycleInFlight):
		return echo.NewHTTPError(http.StatusConflict, "A cycle is already in flight for this campaign")
	case errors.Is(err, orchestrator.ErrCampaignPaused):
		return echo.NewHTTPError(http.StatusConflict, "Campaign is paused")
	default:
		// The stage failure is already captured in pipeline status;
		// return the state so the caller sees where the cycle stopped.
		s.Logger.Error("cycle failed", "campaign_id", id, "error", err)
	}

	campaign, gerr := s.Repo.GetCampaign(ctx, id)
	if gerr != nil || campaign == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load campaign after cycle")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":       campaign.ID,
		"status":   campaign.Status,
		"pipeline": campaign.Pipeline,
	})
}

// PauseCampaign stops future cycles for the campaign.
// (POST /api/v1/campaigns/:id/pause)
func (s *Server) PauseCampaign(c echo.Context) error {
	return s.changeStatus(c, s.Orch.Pause)
}

// ResumeCampaign re-enables cycles for a paused campaign.
// (POST /api/v1/campaigns/:id/resume)
func (s *Server) ResumeCampaign(c echo.Context) error {
	return s.changeStatus(c, s.Orch.Resume)
}

func (s *Server) changeStatus(c echo.Context, op func(ctx context.Context, id string) error) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	err := op(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, orchestrator.ErrCampaignNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Campaign not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	campaign, err := s.Repo.GetCampaign(ctx, id)
	if err != nil || campaign == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load campaign")
	}
	return c.JSON(http.StatusOK, campaign)
}

// CollectMetrics runs one metrics collection pass for the campaign.
// (POST /api/v1/campaigns/:id/metrics/collect)
func (s *Server) CollectMetrics(c echo.Context) error {
	summary, err := s.Orch.RunMetricsCollection(c.Request().Context(), c.Param("id"))
	switch {
	case err == nil:
	case errors.Is(err, orchestrator.ErrCampaignNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Campaign not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}

// RunLearning recomputes strategy rankings for the campaign.
// (POST /api/v1/campaigns/:id/learn)
func (s *Server) RunLearning(c echo.Context) error {
	summary, err := s.Orch.RunLearning(c.Request().Context(), c.Param("id"))
	switch {
	case err == nil:
	case errors.Is(err, orchestrator.ErrCampaignNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Campaign not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}

// ListEngagements returns all published actions for a campaign with
// their latest metrics.
// (GET /api/v1/campaigns/:id/engagements)
func (s *Server) ListEngagements(c echo.Context) error {
	engagements, err := s.Repo.ListEngagements(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, engagements)
}

// ListStrategies returns the campaign's strategies ranked by
// confidence.
// (GET /api/v1/campaigns/:id/strategies)
func (s *Server) ListStrategies(c echo.Context) error {
	rankings, err := s.Learner.Rankings(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rankings)
}

// GetCampaignGraph returns the knowledge graph projection for a
// campaign.
// (GET /api/v1/campaigns/:id/graph)
func (s *Server) GetCampaignGraph(c echo.Context) error {
	nodes, err := s.Graph.QueryNodes(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, nodes)
}
