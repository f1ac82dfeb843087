package registry

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/AgentMesh-Net/directory-go/internal/cache"
	"github.com/AgentMesh-Net/directory-go/internal/cachekey"
	"github.com/AgentMesh-Net/directory-go/internal/metrics"
)

// Service is the search and count aggregator. It turns the exact-match,
// cursor-paginated per-chain sources into a unified API with substring
// matching, counts and bounded caching. All state is injected; there
// are no package-level singletons, so tests construct isolated
// instances freely.
type Service struct {
	ordered []Source
	byChain map[int64]Source

	searchCache *cache.Store[SearchResult]
	countCache  *cache.Store[int]
	flights     singleflight.Group

	// pageBudget caps the pages scanned per source in one aggregated
	// search, bounding worst-case latency. Count scans ignore it.
	pageBudget int

	metrics *metrics.Metrics
}

// NewService creates the aggregator over the given sources. Source
// order is preserved in multi-chain results. metrics may be nil.
func NewService(sources []Source, searchCache *cache.Store[SearchResult], countCache *cache.Store[int], pageBudget int, m *metrics.Metrics) *Service {
	byChain := make(map[int64]Source, len(sources))
	for _, src := range sources {
		byChain[src.ChainID()] = src
	}
	return &Service{
		ordered:     sources,
		byChain:     byChain,
		searchCache: searchCache,
		countCache:  countCache,
		pageBudget:  pageBudget,
		metrics:     m,
	}
}

// searchParams is the cache-key identity of one search call. Any field
// that can change the response must appear here.
type searchParams struct {
	Filter   Filter `json:"filter"`
	PageSize int    `json:"page_size"`
	Cursor   string `json:"cursor,omitempty"`
}

// Search runs one unified search.
//
// Path selection:
//   - cursor present: single passthrough fetch against the cursor's
//     chain, forwarding the source's own continuation.
//   - no cursor, no client-side constraints: one first-page fetch per
//     selected source.
//   - no cursor, client-side constraints present: budgeted multi-page
//     scan per source with the composite predicate applied here;
//     the result is unpaginated (NextCursor empty) and TotalMatches is
//     the number of matches found within the budget, not necessarily
//     the dataset-wide total.
//
// Cache hits return a value-level copy: the cached result is never
// aliased to callers. Identical concurrent misses share one upstream
// flight. Upstream errors propagate unmodified and nothing partial is
// cached.
func (s *Service) Search(ctx context.Context, f Filter, pageSize int, cursor string) (SearchResult, error) {
	key, err := cachekey.Compute("search", searchParams{Filter: f, PageSize: pageSize, Cursor: cursor})
	if err != nil {
		return SearchResult{}, err
	}

	if res, ok := s.searchCache.Get(key); ok {
		s.observeCache("search", true)
		return copyResult(res), nil
	}
	s.observeCache("search", false)

	v, err, _ := s.flights.Do(key, func() (any, error) {
		if s.metrics != nil {
			s.metrics.SearchesTotal.Inc()
		}
		res, err := s.searchMiss(ctx, f, pageSize, cursor)
		if err != nil {
			return nil, err
		}
		s.searchCache.Set(key, res)
		return res, nil
	})
	if err != nil {
		return SearchResult{}, err
	}
	// Every caller sharing the flight gets its own copy.
	return copyResult(v.(SearchResult)), nil
}

func (s *Service) searchMiss(ctx context.Context, f Filter, pageSize int, cursor string) (SearchResult, error) {
	selected, err := s.selectSources(f)
	if err != nil {
		return SearchResult{}, err
	}

	if cursor != "" {
		return s.continuePage(ctx, f, pageSize, cursor, selected)
	}
	if !RequiresClientFilter(f) {
		return s.firstPage(ctx, f, pageSize, selected)
	}
	return s.aggregate(ctx, f, pageSize, selected)
}

// selectSources resolves the filter's chain selection against the
// configured sources, preserving configuration order.
func (s *Service) selectSources(f Filter) ([]Source, error) {
	if len(f.Chains) == 0 {
		return s.ordered, nil
	}
	want := make(map[int64]bool, len(f.Chains))
	for _, id := range f.Chains {
		if _, ok := s.byChain[id]; !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownChain, id)
		}
		want[id] = true
	}
	var out []Source
	for _, src := range s.ordered {
		if want[src.ChainID()] {
			out = append(out, src)
		}
	}
	return out, nil
}

// continuePage resumes a plain paginated stream. Cursors only ever come
// out of the passthrough path, so client-side evaluation is skipped
// entirely here; the cursor pins exactly one chain.
func (s *Service) continuePage(ctx context.Context, f Filter, pageSize int, cursor string, selected []Source) (SearchResult, error) {
	c, err := DecodeCursor(cursor)
	if err != nil {
		return SearchResult{}, err
	}
	var src Source
	for _, cand := range selected {
		if cand.ChainID() == c.Chain {
			src = cand
			break
		}
	}
	if src == nil {
		return SearchResult{}, fmt.Errorf("%w: chain %d", ErrCursorChainMismatch, c.Chain)
	}

	page, err := s.fetch(ctx, src, nativeOf(f), pageSize, c.Token)
	if err != nil {
		return SearchResult{}, err
	}
	return resultFromPage(src, page), nil
}

// firstPage serves a filter the backends evaluate natively: one page
// per selected source, fetched concurrently, concatenated in
// configuration order. A continuation cursor is only meaningful when a
// single source was queried.
func (s *Service) firstPage(ctx context.Context, f Filter, pageSize int, selected []Source) (SearchResult, error) {
	native := nativeOf(f)

	if len(selected) == 1 {
		page, err := s.fetch(ctx, selected[0], native, pageSize, "")
		if err != nil {
			return SearchResult{}, err
		}
		return resultFromPage(selected[0], page), nil
	}

	pages := make([]Page, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range selected {
		g.Go(func() error {
			page, err := s.fetch(gctx, src, native, pageSize, "")
			if err != nil {
				return err
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SearchResult{}, err
	}

	res := SearchResult{Items: []Agent{}}
	total := 0
	haveTotal := true
	for _, page := range pages {
		res.Items = append(res.Items, page.Items...)
		if page.Total == nil {
			haveTotal = false
		} else {
			total += *page.Total
		}
	}
	if haveTotal {
		res.TotalMatches = &total
	}
	return res, nil
}

// aggregate is the client-side evaluation path: scan successive pages
// per source, apply the composite predicate, stop at stream end or the
// page budget. The result is a single unpaginated batch.
func (s *Service) aggregate(ctx context.Context, f Filter, pageSize int, selected []Source) (SearchResult, error) {
	native := nativeOf(f)

	matches := make([][]Agent, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range selected {
		g.Go(func() error {
			found, err := s.scanSource(gctx, src, f, native, pageSize, s.pageBudget)
			if err != nil {
				return err
			}
			matches[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SearchResult{}, err
	}

	res := SearchResult{Items: []Agent{}}
	for _, found := range matches {
		res.Items = append(res.Items, found...)
	}
	n := len(res.Items)
	res.TotalMatches = &n
	return res, nil
}

// scanSource walks one source's page stream, keeping predicate matches.
// maxPages <= 0 means no budget (exhaustive scan, used by Count).
// Page fetches are sequential: each cursor is only known once the
// previous page resolves.
func (s *Service) scanSource(ctx context.Context, src Source, f Filter, native NativeFilter, pageSize, maxPages int) ([]Agent, error) {
	var found []Agent
	cursor := ""
	for page := 0; ; page++ {
		if maxPages > 0 && page >= maxPages {
			break
		}
		result, err := s.fetch(ctx, src, native, pageSize, cursor)
		if err != nil {
			return nil, err
		}
		for _, agent := range result.Items {
			if MatchesFilter(agent, f) {
				found = append(found, agent)
			}
		}
		if result.NextCursor == "" {
			break
		}
		cursor = result.NextCursor
	}
	return found, nil
}

// fetch wraps Source.FetchPage with instrumentation.
func (s *Service) fetch(ctx context.Context, src Source, native NativeFilter, pageSize int, cursor string) (Page, error) {
	page, err := src.FetchPage(ctx, native, pageSize, cursor)
	if s.metrics != nil {
		if err != nil {
			s.metrics.UpstreamErrors.WithLabelValues(src.Name()).Inc()
		} else {
			s.metrics.UpstreamPages.WithLabelValues(src.Name()).Inc()
		}
	}
	return page, err
}

func (s *Service) observeCache(namespace string, hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHits.WithLabelValues(namespace).Inc()
	} else {
		s.metrics.CacheMisses.WithLabelValues(namespace).Inc()
	}
}

// nativeOf strips the filter down to what sources evaluate exactly.
func nativeOf(f Filter) NativeFilter {
	return NativeFilter{Active: f.Active, SupportsX402: f.SupportsX402}
}

// resultFromPage builds a single-source passthrough result, forwarding
// the source's own continuation wrapped with its chain id.
func resultFromPage(src Source, page Page) SearchResult {
	res := SearchResult{Items: page.Items, TotalMatches: page.Total}
	if res.Items == nil {
		res.Items = []Agent{}
	}
	if page.NextCursor != "" {
		res.NextCursor = EncodeCursor(&Cursor{Chain: src.ChainID(), Token: page.NextCursor})
	}
	return res
}

// Chains returns the configured chain ids in order, for the meta endpoint.
func (s *Service) Chains() []int64 {
	out := make([]int64, 0, len(s.ordered))
	for _, src := range s.ordered {
		out = append(out, src.ChainID())
	}
	return out
}

// CacheStats exposes both cache namespaces for the stats escape hatch.
func (s *Service) CacheStats() map[string]cache.Stats {
	return map[string]cache.Stats{
		"search": s.searchCache.Stats(),
		"count":  s.countCache.Stats(),
	}
}

// ClearCaches empties both caches unconditionally.
func (s *Service) ClearCaches() {
	s.searchCache.Clear()
	s.countCache.Clear()
}

// CleanupCaches sweeps expired entries from both caches and reports how
// many were removed.
func (s *Service) CleanupCaches() int {
	return s.searchCache.Cleanup() + s.countCache.Cleanup()
}
