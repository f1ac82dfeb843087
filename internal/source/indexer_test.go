package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AgentMesh-Net/directory-go/internal/registry"
)

func TestIndexerSourceFetchPage(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/agents", r.URL.Path)
		gotQuery = map[string]string{
			"limit":  r.URL.Query().Get("limit"),
			"cursor": r.URL.Query().Get("cursor"),
			"active": r.URL.Query().Get("active"),
			"x402":   r.URL.Query().Get("x402"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{
					"agent_id": "0xabc",
					"display_name": "Ciro Scout",
					"description": "web research",
					"agent_domain": "ciro.example.org",
					"active": true,
					"supports_x402": true,
					"capabilities": ["web-search"],
					"skills": ["summarize"],
					"domains": ["research"],
					"trust_models": ["tee-attestation"]
				}
			],
			"next_cursor": "opaque-token",
			"total": 37
		}`))
	}))
	defer srv.Close()

	active := true
	src := NewIndexerSource(8453, "base-indexer", srv.URL)
	page, err := src.FetchPage(context.Background(), registry.NativeFilter{Active: &active}, 25, "prev-token")
	require.NoError(t, err)

	require.Equal(t, "25", gotQuery["limit"])
	require.Equal(t, "prev-token", gotQuery["cursor"])
	require.Equal(t, "true", gotQuery["active"])
	require.Empty(t, gotQuery["x402"], "unconstrained flags stay off the wire")

	require.Len(t, page.Items, 1)
	agent := page.Items[0]
	require.Equal(t, "0xabc", agent.ID)
	require.Equal(t, int64(8453), agent.ChainID)
	require.Equal(t, "Ciro Scout", agent.Name)
	require.Equal(t, "ciro.example.org", agent.Domain)
	require.True(t, agent.Active)
	require.True(t, agent.SupportsX402)
	require.Equal(t, []string{"web-search"}, agent.Capabilities)
	require.Equal(t, []string{"tee-attestation"}, agent.TrustModels)

	require.Equal(t, "opaque-token", page.NextCursor)
	require.NotNil(t, page.Total)
	require.Equal(t, 37, *page.Total)
}

func TestIndexerSourceUpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewIndexerSource(1, "broken", srv.URL)
	_, err := src.FetchPage(context.Background(), registry.NativeFilter{}, 10, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 502")
}

func TestIndexerSourceMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items": [`))
	}))
	defer srv.Close()

	src := NewIndexerSource(1, "garbled", srv.URL)
	_, err := src.FetchPage(context.Background(), registry.NativeFilter{}, 10, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode")
}
