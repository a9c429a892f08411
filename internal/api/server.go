// Package api contains the HTTP handlers for the campaign service
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"swarmpilot/internal/bus"
	"swarmpilot/internal/gateway"
	"swarmpilot/internal/graph"
	"swarmpilot/internal/learner"
	"swarmpilot/internal/logging"
	"swarmpilot/internal/orchestrator"
	"swarmpilot/internal/repository"
)

// Server holds the dependencies for the API server.
type Server struct {
	Orch      *orchestrator.Orchestrator
	Heartbeat *orchestrator.Heartbeat
	Repo      repository.Repository
	Bus       *bus.Bus
	Learner   *learner.Learner
	Gateway   *gateway.Gateway
	Graph     graph.Store
	Logger    *logging.Logger
}

// NewServer creates a new Server.
func NewServer(orch *orchestrator.Orchestrator, hb *orchestrator.Heartbeat, repo repository.Repository, b *bus.Bus, l *learner.Learner, gw *gateway.Gateway, g graph.Store, logger *logging.Logger) *Server {
	return &Server{
		Orch:      orch,
		Heartbeat: hb,
		Repo:      repo,
		Bus:       b,
		Learner:   l,
		Gateway:   gw,
		Graph:     g,
		Logger:    logger,
	}
}

// RegisterRoutes mounts all versioned API routes on the given group.
func (s *Server) RegisterRoutes(g *echo.Group) {
	g.POST("/campaigns", s.CreateCampaign)
	g.GET("/campaigns", s.ListCampaigns)
	g.GET("/campaigns/:id", s.GetCampaign)
	g.GET("/campaigns/:id/status", s.GetCampaignStatus)
	g.POST("/campaigns/:id/cycle", s.TriggerCycle)
	g.POST("/campaigns/:id/pause", s.PauseCampaign)
	g.POST("/campaigns/:id/resume", s.ResumeCampaign)
	g.POST("/campaigns/:id/metrics/collect", s.CollectMetrics)
	g.POST("/campaigns/:id/learn", s.RunLearning)
	g.GET("/campaigns/:id/engagements", s.ListEngagements)
	g.GET("/campaigns/:id/strategies", s.ListStrategies)
	g.GET("/campaigns/:id/graph", s.GetCampaignGraph)

	g.GET("/activity", s.GetActivity)
	g.GET("/activity/stream", s.StreamActivity)

	g.POST("/heartbeat/tick", s.TriggerHeartbeat)
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Gateway   string    `json:"gateway"`
}

// HandleHealth returns basic health status, including whether the
// execution bridge is reachable.
// (GET /health)
func (s *Server) HandleHealth(c echo.Context) error {
	gatewayStatus := "unreachable"
	if s.Gateway.Health(c.Request().Context()) {
		gatewayStatus = "ok"
	}
	return c.JSON(http.StatusOK, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Service:   "swarmpilot",
		Version:   "1.0.0",
		Gateway:   gatewayStatus,
	})
}

// TriggerHeartbeat forces one scheduler sweep outside the interval.
// The sweep outlives the request.
// (POST /api/v1/heartbeat/tick)
func (s *Server) TriggerHeartbeat(c echo.Context) error {
	go s.Heartbeat.Tick(context.WithoutCancel(c.Request().Context()))
	return c.JSON(http.StatusAccepted, map[string]string{"status": "tick started"})
}
