// Package mcp exposes the campaign pipeline to MCP clients as tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"swarmpilot/internal/learner"
	"swarmpilot/internal/orchestrator"
	"swarmpilot/internal/repository"
)

type Server struct {
	mcpServer *server.MCPServer
	orch      *orchestrator.Orchestrator
	repo      repository.Repository
	learner   *learner.Learner
}

func NewServer(orch *orchestrator.Orchestrator, repo repository.Repository, l *learner.Learner) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"SwarmPilot Campaigns",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		orch:    orch,
		repo:    repo,
		learner: l,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"launch_campaign",
			mcp.WithDescription("Create a marketing campaign from a product description and run its first pipeline cycle"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Campaign name")),
			mcp.WithString("product_name", mcp.Description("Product name")),
			mcp.WithString("product_description", mcp.Required(), mcp.Description("Free-text product description")),
		),
		s.handleLaunchCampaign,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"run_cycle",
			mcp.WithDescription("Run one pipeline cycle for a campaign"),
			mcp.WithString("campaign_id", mcp.Required(), mcp.Description("The ID of the campaign")),
		),
		s.handleRunCycle,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"campaign_status",
			mcp.WithDescription("Get a campaign's status and pipeline progress"),
			mcp.WithString("campaign_id", mcp.Required(), mcp.Description("The ID of the campaign")),
		),
		s.handleCampaignStatus,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"strategy_rankings",
			mcp.WithDescription("List a campaign's engagement strategies ranked by confidence"),
			mcp.WithString("campaign_id", mcp.Required(), mcp.Description("The ID of the campaign")),
		),
		s.handleStrategyRankings,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"pause_campaign",
			mcp.WithDescription("Pause a campaign so no new cycles start"),
			mcp.WithString("campaign_id", mcp.Required(), mcp.Description("The ID of the campaign")),
		),
		s.handlePauseCampaign,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"resume_campaign",
			mcp.WithDescription("Resume a paused campaign"),
			mcp.WithString("campaign_id", mcp.Required(), mcp.Description("The ID of the campaign")),
		),
		s.handleResumeCampaign,
	)
}

func (s *Server) handleLaunchCampaign(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return mcp.NewToolResultError("Missing required parameter: name"), nil
	}
	description, ok := args["product_description"].(string)
	if !ok || description == "" {
		return mcp.NewToolResultError("Missing required parameter: product_description"), nil
	}
	productName, _ := args["product_name"].(string)

	campaign, err := s.orch.LaunchCampaign(ctx, name, productName, description, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to launch campaign: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(campaign)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleRunCycle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, result := s.campaignIDArg(request)
	if result != nil {
		return result, nil
	}

	err := s.orch.RunCycle(ctx, id)
	switch {
	case errors.Is(err, orchestrator.ErrCampaignNotFound):
		return mcp.NewToolResultError("Campaign not found"), nil
	case errors.Is(err, orchestrator.ErrCycleInFlight):
		return mcp.NewToolResultError("A cycle is already in flight for this campaign"), nil
	case errors.Is(err, orchestrator.ErrCampaignPaused):
		return mcp.NewToolResultError("Campaign is paused"), nil
	}

	campaign, gerr := s.repo.GetCampaign(ctx, id)
	if gerr != nil || campaign == nil {
		return mcp.NewToolResultError("Failed to load campaign after cycle"), nil
	}

	jsonBytes, _ := json.Marshal(campaign.Pipeline)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Cycle stopped: %v\nPipeline: %s", err, jsonBytes)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleCampaignStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, result := s.campaignIDArg(request)
	if result != nil {
		return result, nil
	}

	campaign, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load campaign: %v", err)), nil
	}
	if campaign == nil {
		return mcp.NewToolResultError("Campaign not found"), nil
	}

	jsonBytes, _ := json.Marshal(campaign)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleStrategyRankings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, result := s.campaignIDArg(request)
	if result != nil {
		return result, nil
	}

	rankings, err := s.learner.Rankings(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load rankings: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(rankings)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handlePauseCampaign(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleStatusChange(ctx, request, s.orch.Pause, "Campaign paused")
}

func (s *Server) handleResumeCampaign(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleStatusChange(ctx, request, s.orch.Resume, "Campaign resumed")
}

func (s *Server) handleStatusChange(ctx context.Context, request mcp.CallToolRequest, op func(context.Context, string) error, okText string) (*mcp.CallToolResult, error) {
	id, result := s.campaignIDArg(request)
	if result != nil {
		return result, nil
	}

	err := op(ctx, id)
	switch {
	case errors.Is(err, orchestrator.ErrCampaignNotFound):
		return mcp.NewToolResultError("Campaign not found"), nil
	case err != nil:
		return mcp.NewToolResultError(fmt.Sprintf("Failed to update campaign: %v", err)), nil
	}
	return mcp.NewToolResultText(okText), nil
}

func (s *Server) campaignIDArg(request mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return "", mcp.NewToolResultError("Invalid arguments type")
	}
	id, ok := args["campaign_id"].(string)
	if !ok || id == "" {
		return "", mcp.NewToolResultError("Missing required parameter: campaign_id")
	}
	return id, nil
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// Use SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
