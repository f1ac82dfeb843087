package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AgentMesh-Net/directory-go/internal/cache"
	"github.com/AgentMesh-Net/directory-go/internal/config"
	"github.com/AgentMesh-Net/directory-go/internal/registry"
)

var errStubCursor = errors.New("stub: bad cursor")

// stubSource serves fixed pages with numeric cursors.
type stubSource struct {
	chainID int64
	pages   [][]registry.Agent
}

func (s *stubSource) ChainID() int64 { return s.chainID }
func (s *stubSource) Name() string   { return fmt.Sprintf("stub-%d", s.chainID) }

func (s *stubSource) FetchPage(_ context.Context, native registry.NativeFilter, _ int, cursor string) (registry.Page, error) {
	idx := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return registry.Page{}, errStubCursor
		}
		idx = n
	}
	if idx >= len(s.pages) {
		return registry.Page{}, nil
	}
	page := registry.Page{}
	for _, a := range s.pages[idx] {
		if native.Active != nil && a.Active != *native.Active {
			continue
		}
		if native.SupportsX402 != nil && a.SupportsX402 != *native.SupportsX402 {
			continue
		}
		page.Items = append(page.Items, a)
	}
	if idx+1 < len(s.pages) {
		page.NextCursor = strconv.Itoa(idx + 1)
	}
	return page, nil
}

func testRouter(sources ...registry.Source) http.Handler {
	searchCache := cache.New[registry.SearchResult](50, time.Minute)
	countCache := cache.New[int](50, time.Minute)
	svc := registry.NewService(sources, searchCache, countCache, 10, nil)
	cfg := config.Config{DefaultPageSize: 50, MaxPageSize: 200}
	return NewRouter(svc, cfg)
}

func doGet(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func agentsFixture() []registry.Agent {
	return []registry.Agent{
		{ID: "0x1", ChainID: 1, Name: "Ciro Scout", Active: true, Capabilities: []string{"web-search"}},
		{ID: "0x2", ChainID: 1, Name: "Ledger Watcher", Active: true, Capabilities: []string{"github", "slack"}},
		{ID: "0x3", ChainID: 1, Name: "Idle Bot", Active: false},
	}
}

func TestSearchAgentsByName(t *testing.T) {
	h := testRouter(&stubSource{chainID: 1, pages: [][]registry.Agent{agentsFixture()}})

	rec := doGet(t, h, "/v1/agents?name=ciro")
	require.Equal(t, http.StatusOK, rec.Code)

	var res registry.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Items, 1)
	require.Equal(t, "0x1", res.Items[0].ID)
	require.NotNil(t, res.TotalMatches)
	require.Equal(t, 1, *res.TotalMatches)
}

func TestSearchAgentsByCapabilityTerms(t *testing.T) {
	h := testRouter(&stubSource{chainID: 1, pages: [][]registry.Agent{agentsFixture()}})

	rec := doGet(t, h, "/v1/agents?capability=git&capability=slack")
	require.Equal(t, http.StatusOK, rec.Code)

	var res registry.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Items, 1)
	require.Equal(t, "0x2", res.Items[0].ID)
}

func TestSearchAgentsInvalidFlag(t *testing.T) {
	h := testRouter(&stubSource{chainID: 1, pages: [][]registry.Agent{agentsFixture()}})

	rec := doGet(t, h, "/v1/agents?active=maybe")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchAgentsInvalidCursor(t *testing.T) {
	h := testRouter(&stubSource{chainID: 1, pages: [][]registry.Agent{agentsFixture()}})

	rec := doGet(t, h, "/v1/agents?cursor=%25%25bogus")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchAgentsUnknownChain(t *testing.T) {
	h := testRouter(&stubSource{chainID: 1, pages: [][]registry.Agent{agentsFixture()}})

	rec := doGet(t, h, "/v1/agents?chains=5")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCountAgents(t *testing.T) {
	h := testRouter(&stubSource{chainID: 1, pages: [][]registry.Agent{agentsFixture()}})

	rec := doGet(t, h, "/v1/agents/count?active=true")
	require.Equal(t, http.StatusOK, rec.Code)

	var res map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, 2, res["total"])
}

func TestCacheStatsEndpoint(t *testing.T) {
	h := testRouter(&stubSource{chainID: 1, pages: [][]registry.Agent{agentsFixture()}})

	doGet(t, h, "/v1/agents?name=ciro")
	rec := doGet(t, h, "/v1/cache/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]cache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Contains(t, stats, "search")
	require.Contains(t, stats, "count")
	require.Equal(t, 1, stats["search"].Size)
}

func TestCacheClearEndpoint(t *testing.T) {
	h := testRouter(&stubSource{chainID: 1, pages: [][]registry.Agent{agentsFixture()}})

	doGet(t, h, "/v1/agents?name=ciro")

	req := httptest.NewRequest(http.MethodPost, "/v1/cache/clear", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	statsRec := doGet(t, h, "/v1/cache/stats")
	var stats map[string]cache.Stats
	require.NoError(t, json.Unmarshal(statsRec.Body.Bytes(), &stats))
	require.Equal(t, 0, stats["search"].Size)
}

func TestHealthAndMeta(t *testing.T) {
	h := testRouter(&stubSource{chainID: 1, pages: [][]registry.Agent{agentsFixture()}})

	rec := doGet(t, h, "/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doGet(t, h, "/v1/meta")
	require.Equal(t, http.StatusOK, rec.Code)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	require.Contains(t, meta, "chains")
}
