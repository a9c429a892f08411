package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"swarmpilot/pkg/models"
)

const streamKeepAlive = 15 * time.Second

// GetActivity returns recent activity events, oldest first. Optional
// query params: campaign_id to filter, limit to cap the count.
// (GET /api/v1/activity)
func (s *Server) GetActivity(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}
	campaignID := c.QueryParam("campaign_id")

	events := s.Bus.Snapshot(0)
	if campaignID != "" {
		filtered := events[:0]
		for _, e := range events {
			if e.CampaignID == campaignID {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return c.JSON(http.StatusOK, events)
}

// StreamActivity streams live activity events as server-sent events.
// An optional campaign_id query param narrows the stream to one
// campaign. The connection stays open until the client disconnects.
// (GET /api/v1/activity/stream)
func (s *Server) StreamActivity(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	sub := s.Bus.Subscribe(c.QueryParam("campaign_id"))
	defer sub.Close()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-sub.C:
			if err := writeSSEEvent(w, event); err != nil {
				return nil
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func writeSSEEvent(w *echo.Response, event models.ActivityEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: activity\ndata: %s\n\n", event.Seq, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
