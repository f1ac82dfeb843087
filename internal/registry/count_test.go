package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountScansToExhaustionEvenWithoutClientFilters(t *testing.T) {
	src := newFakeSource(1, namedAgents("a", 5), namedAgents("b", 5), namedAgents("c", 2))
	svc := newTestService(10, src)

	// A flag-only filter would be a single passthrough fetch for
	// search, but an exact count must still visit every page.
	n, err := svc.Count(context.Background(), Filter{Active: boolPtr(true)})
	require.NoError(t, err)
	require.Equal(t, 12, n)
	require.Equal(t, 3, src.callCount())
}

func TestCountIgnoresPageBudget(t *testing.T) {
	src := newFakeSource(1, namedAgents("a", 5), namedAgents("b", 5), namedAgents("c", 5), namedAgents("d", 5))
	svc := newTestService(1, src)

	n, err := svc.Count(context.Background(), Filter{Name: "agent"})
	require.NoError(t, err)
	require.Equal(t, 20, n, "counts run to true exhaustion")
	require.Equal(t, 4, src.callCount())
}

func TestCountUsesSamePredicatesAsSearch(t *testing.T) {
	page1 := namedAgents("a", 10)
	page1[2].Name = "Ciro Prime"
	page2 := namedAgents("b", 10)
	page2[7].Name = "subciro"
	src := newFakeSource(1, page1, page2)
	svc := newTestService(10, src)

	res, err := svc.Search(context.Background(), Filter{Name: "ciro"}, 10, "")
	require.NoError(t, err)

	n, err := svc.Count(context.Background(), Filter{Name: "ciro"})
	require.NoError(t, err)
	require.Equal(t, len(res.Items), n, "page-level and streaming scans must agree on matches")
}

func TestCountIsCachedSeparatelyFromSearch(t *testing.T) {
	src := newFakeSource(1, namedAgents("a", 5))
	svc := newTestService(10, src)
	f := Filter{Name: "agent"}

	_, err := svc.Search(context.Background(), f, 5, "")
	require.NoError(t, err)
	callsAfterSearch := src.callCount()

	// A cached search result must not satisfy a count for the same
	// filter; the shapes live in separate namespaces.
	n, err := svc.Count(context.Background(), f)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Greater(t, src.callCount(), callsAfterSearch)

	// Second count is served from the count cache.
	callsAfterCount := src.callCount()
	n, err = svc.Count(context.Background(), f)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, callsAfterCount, src.callCount())
}

func TestCountAcrossMultipleSources(t *testing.T) {
	src1 := newFakeSource(1, namedAgents("one", 4), namedAgents("more", 4))
	src2 := newFakeSource(2, namedAgents("two", 3))
	svc := newTestService(10, src1, src2)

	n, err := svc.Count(context.Background(), Filter{})
	require.NoError(t, err)
	require.Equal(t, 11, n)
}

func TestCountUnknownChainRejected(t *testing.T) {
	svc := newTestService(10, newFakeSource(1, namedAgents("a", 3)))

	_, err := svc.Count(context.Background(), Filter{Chains: []int64{42}})
	require.ErrorIs(t, err, ErrUnknownChain)
}
