package registry

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/AgentMesh-Net/directory-go/internal/cachekey"
)

// countScanPageSize is the page size used for exhaustive count scans.
// Counts always visit every page, so the size only tunes request count,
// not correctness.
const countScanPageSize = 100

// countParams is the cache-key identity of one count call. Counts live
// in their own namespace and store: an integer and a SearchResult are
// different value shapes.
type countParams struct {
	Filter Filter `json:"filter"`
}

// Count returns the exact number of agents matching f across every
// selected source. It always scans to true exhaustion with the same
// composite predicate the search path uses, regardless of whether the
// filter needs client-side evaluation: an exact count requires visiting
// every page. No page budget applies; the caller knowingly asked for
// the authoritative total.
func (s *Service) Count(ctx context.Context, f Filter) (int, error) {
	key, err := cachekey.Compute("count", countParams{Filter: f})
	if err != nil {
		return 0, err
	}

	if n, ok := s.countCache.Get(key); ok {
		s.observeCache("count", true)
		return n, nil
	}
	s.observeCache("count", false)

	v, err, _ := s.flights.Do(key, func() (any, error) {
		if s.metrics != nil {
			s.metrics.CountsTotal.Inc()
		}
		n, err := s.countMiss(ctx, f)
		if err != nil {
			return nil, err
		}
		s.countCache.Set(key, n)
		return n, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (s *Service) countMiss(ctx context.Context, f Filter) (int, error) {
	selected, err := s.selectSources(f)
	if err != nil {
		return 0, err
	}

	native := nativeOf(f)
	counts := make([]int, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range selected {
		g.Go(func() error {
			found, err := s.scanSource(gctx, src, f, native, countScanPageSize, 0)
			if err != nil {
				return err
			}
			counts[i] = len(found)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}
