package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/AgentMesh-Net/directory-go/internal/registry"
)

// IndexerSource queries an AgentMesh indexer REST API. The indexer
// evaluates the boolean flags natively, paginates with its own opaque
// cursor, and reports exact totals.
type IndexerSource struct {
	chainID int64
	name    string
	baseURL string
	client  *http.Client
}

// NewIndexerSource creates a source backed by the indexer API at baseURL.
func NewIndexerSource(chainID int64, name, baseURL string) *IndexerSource {
	return &IndexerSource{
		chainID: chainID,
		name:    name,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *IndexerSource) ChainID() int64 { return s.chainID }
func (s *IndexerSource) Name() string   { return s.name }

// indexerAgent is the raw wire record of the indexer API.
type indexerAgent struct {
	AgentID      string   `json:"agent_id"`
	DisplayName  string   `json:"display_name"`
	Description  string   `json:"description"`
	AgentDomain  string   `json:"agent_domain"`
	Active       bool     `json:"active"`
	SupportsX402 bool     `json:"supports_x402"`
	Capabilities []string `json:"capabilities"`
	Skills       []string `json:"skills"`
	Domains      []string `json:"domains"`
	TrustModels  []string `json:"trust_models"`
}

type indexerPage struct {
	Items      []indexerAgent `json:"items"`
	NextCursor string         `json:"next_cursor"`
	Total      *int           `json:"total"`
}

func (s *IndexerSource) FetchPage(ctx context.Context, native registry.NativeFilter, pageSize int, cursor string) (registry.Page, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(pageSize))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if native.Active != nil {
		q.Set("active", strconv.FormatBool(*native.Active))
	}
	if native.SupportsX402 != nil {
		q.Set("x402", strconv.FormatBool(*native.SupportsX402))
	}

	reqURL := s.baseURL + "/v1/agents?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return registry.Page{}, fmt.Errorf("indexer %s: build request: %w", s.name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return registry.Page{}, fmt.Errorf("indexer %s: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return registry.Page{}, fmt.Errorf("indexer %s: status %d: %s", s.name, resp.StatusCode, body)
	}

	var page indexerPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return registry.Page{}, fmt.Errorf("indexer %s: decode: %w", s.name, err)
	}

	out := registry.Page{NextCursor: page.NextCursor, Total: page.Total}
	out.Items = make([]registry.Agent, 0, len(page.Items))
	for _, raw := range page.Items {
		out.Items = append(out.Items, s.mapAgent(raw))
	}
	return out, nil
}

// mapAgent converts a raw indexer record to the normalized form.
func (s *IndexerSource) mapAgent(raw indexerAgent) registry.Agent {
	return registry.Agent{
		ID:           raw.AgentID,
		ChainID:      s.chainID,
		Name:         raw.DisplayName,
		Description:  raw.Description,
		Domain:       raw.AgentDomain,
		Active:       raw.Active,
		SupportsX402: raw.SupportsX402,
		Capabilities: raw.Capabilities,
		Skills:       raw.Skills,
		Domains:      raw.Domains,
		TrustModels:  raw.TrustModels,
	}
}
