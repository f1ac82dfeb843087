// Package registry implements the unified agent search layer: the filter
// model, partial-match predicates, and the cache-backed search and count
// aggregators that fan out over per-chain sources.
package registry

// Agent is the normalized representation of one registry record,
// independent of which chain or backend it came from. The cache and the
// match predicates only ever read it.
type Agent struct {
	ID           string   `json:"id"`
	ChainID      int64    `json:"chain_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Domain       string   `json:"domain,omitempty"`
	Active       bool     `json:"active"`
	SupportsX402 bool     `json:"supports_x402"`
	Capabilities []string `json:"capabilities,omitempty"`
	Skills       []string `json:"skills,omitempty"`
	Domains      []string `json:"domains,omitempty"`
	TrustModels  []string `json:"trust_models,omitempty"`
}

// Filter describes one search request. Absent fields impose no
// constraint; empty term lists are equivalent to absent. Boolean flags
// are tri-state: nil means unconstrained.
type Filter struct {
	Name         string   `json:"name,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	Skills       []string `json:"skills,omitempty"`
	Domains      []string `json:"domains,omitempty"`
	TrustModels  []string `json:"trust_models,omitempty"`
	Active       *bool    `json:"active,omitempty"`
	SupportsX402 *bool    `json:"supports_x402,omitempty"`

	// Chains selects the sources to query. Empty means all configured
	// chains.
	Chains []int64 `json:"chains,omitempty"`
}

// SearchResult is the unified response of the search aggregator.
//
// NextCursor is set only when the underlying page stream is not
// exhausted and no client-side aggregation collapsed it: an aggregated
// scan already gathered everything up to its page budget and therefore
// never carries a cursor. TotalMatches is the exact count when the
// aggregated path ran (count of matches found within the budget), or
// the source-reported total when a single passthrough source provided
// one.
type SearchResult struct {
	Items        []Agent `json:"items"`
	NextCursor   string  `json:"next_cursor,omitempty"`
	TotalMatches *int    `json:"total_matches,omitempty"`
}

// copyResult returns a value-level copy of r: fresh slices at every
// level so that callers mutating the returned value can never corrupt
// the cached one. The UI layer detects changes by reference identity,
// so cache hits must hand back fresh references.
func copyResult(r SearchResult) SearchResult {
	out := SearchResult{NextCursor: r.NextCursor}
	if r.TotalMatches != nil {
		n := *r.TotalMatches
		out.TotalMatches = &n
	}
	if r.Items != nil {
		out.Items = make([]Agent, len(r.Items))
		for i, a := range r.Items {
			out.Items[i] = copyAgent(a)
		}
	}
	return out
}

func copyAgent(a Agent) Agent {
	a.Capabilities = copyStrings(a.Capabilities)
	a.Skills = copyStrings(a.Skills)
	a.Domains = copyStrings(a.Domains)
	a.TrustModels = copyStrings(a.TrustModels)
	return a
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
