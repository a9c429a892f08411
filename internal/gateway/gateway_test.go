package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmpilot/internal/logging"
	"swarmpilot/pkg/models"
)

// fakeBridge records execute requests and serves canned metrics.
type fakeBridge struct {
	executed []bridgeExecuteRequest
	metrics  map[string]bridgeMetricsEntry
	failWith int
}

func (f *fakeBridge) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/execute", func(w http.ResponseWriter, r *http.Request) {
		if f.failWith != 0 {
			w.WriteHeader(f.failWith)
			return
		}
		var req bridgeExecuteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.executed = append(f.executed, req)
		json.NewEncoder(w).Encode(bridgeExecuteResponse{PlatformPostID: "ext-1", Status: "posted"})
	})
	mux.HandleFunc("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		var req bridgeMetricsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var resp bridgeMetricsResponse
		for _, id := range req.PostIDs {
			if entry, ok := f.metrics[id]; ok {
				resp.Metrics = append(resp.Metrics, entry)
			}
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newTestGateway(t *testing.T, fake *fakeBridge, platforms ...string) *Gateway {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return New(NewBridgeClient(srv.URL), platforms, logging.NewNop())
}

func TestExecuteDispatchesToBridge(t *testing.T) {
	fake := &fakeBridge{}
	gw := newTestGateway(t, fake, "twitter")

	res, err := gw.Execute(context.Background(), ExecuteRequest{
		Platform: "twitter",
		Action:   models.ActionComment,
		Target:   "https://twitter.com/p/1",
		Content:  "nice post",
	})
	require.NoError(t, err)
	assert.Equal(t, "ext-1", res.ExternalID)
	assert.Equal(t, "posted", res.Status)

	require.Len(t, fake.executed, 1)
	assert.Equal(t, "comment", fake.executed[0].Action)
	assert.Equal(t, "twitter", fake.executed[0].Platform)
	assert.Equal(t, "nice post", fake.executed[0].Content)
}

func TestExecuteUnknownPlatformIsConfigError(t *testing.T) {
	gw := newTestGateway(t, &fakeBridge{}, "twitter")

	_, err := gw.Execute(context.Background(), ExecuteRequest{
		Platform: "tiktok",
		Action:   models.ActionComment,
	})
	require.Error(t, err)

	var unsupported *UnsupportedPlatformError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "tiktok", unsupported.Platform)
}

func TestExecuteBridgeFailureWrapsExecutionError(t *testing.T) {
	fake := &fakeBridge{failWith: http.StatusBadGateway}
	gw := newTestGateway(t, fake, "twitter")

	_, err := gw.Execute(context.Background(), ExecuteRequest{
		Platform: "twitter",
		Action:   models.ActionReply,
		Content:  "hello",
	})
	require.Error(t, err)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "twitter", execErr.Platform)
	assert.Equal(t, models.ActionReply, execErr.Action)
}

func TestInstagramRepostBecomesQuoteComment(t *testing.T) {
	fake := &fakeBridge{}
	gw := newTestGateway(t, fake, "instagram", "twitter")

	_, err := gw.Execute(context.Background(), ExecuteRequest{
		Platform: "instagram",
		Action:   models.ActionRepost,
		Content:  "great brew",
	})
	require.NoError(t, err)

	_, err = gw.Execute(context.Background(), ExecuteRequest{
		Platform: "twitter",
		Action:   models.ActionRepost,
		Content:  "great brew",
	})
	require.NoError(t, err)

	require.Len(t, fake.executed, 2)
	assert.Equal(t, "comment", fake.executed[0].Action)
	assert.Equal(t, "Sharing this: great brew", fake.executed[0].Content)
	assert.Equal(t, "repost", fake.executed[1].Action)
	assert.Equal(t, "great brew", fake.executed[1].Content)
}

func TestCollectMetricsKeepsRequestOrderAndZeroesMissing(t *testing.T) {
	fake := &fakeBridge{metrics: map[string]bridgeMetricsEntry{
		"p1": {PostID: "p1", Impressions: 500, Likes: 12},
		"p3": {PostID: "p3", Impressions: 80, Likes: 2},
	}}
	gw := newTestGateway(t, fake, "reddit")

	results, err := gw.CollectMetrics(context.Background(), "reddit", []string{"p1", "p2", "p3"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "p1", results[0].PostID)
	assert.True(t, results[0].Found)
	assert.Equal(t, 500, results[0].Impressions)

	assert.Equal(t, "p2", results[1].PostID)
	assert.False(t, results[1].Found)
	assert.Zero(t, results[1].Impressions)

	assert.Equal(t, "p3", results[2].PostID)
	assert.True(t, results[2].Found)
	assert.Equal(t, 80, results[2].Impressions)
}

func TestCollectMetricsUnknownPlatform(t *testing.T) {
	gw := newTestGateway(t, &fakeBridge{}, "twitter")

	_, err := gw.CollectMetrics(context.Background(), "myspace", []string{"p1"})
	var unsupported *UnsupportedPlatformError
	require.True(t, errors.As(err, &unsupported))
}

func TestHealthReflectsBridge(t *testing.T) {
	gw := newTestGateway(t, &fakeBridge{}, "twitter")
	assert.True(t, gw.Health(context.Background()))

	down := New(NewBridgeClient("http://127.0.0.1:1"), []string{"twitter"}, logging.NewNop())
	assert.False(t, down.Health(context.Background()))
}
