package registry

import "context"

// NativeFilter carries only the constraints a backend can evaluate
// exactly. Free-text and term-list constraints never reach a source;
// the aggregation layer evaluates those itself.
type NativeFilter struct {
	Active       *bool
	SupportsX402 *bool
}

// Page is one page of normalized records from a single source. An
// empty NextCursor means the stream is exhausted. Total is set only
// when the backend can report an exact total cheaply.
type Page struct {
	Items      []Agent
	NextCursor string
	Total      *int
}

// Source is one independent registry backend, queried separately per
// chain. Cursors are opaque to callers and meaningful only to the
// source that produced them, for the exact query that produced them.
// Implementations live in internal/source.
type Source interface {
	ChainID() int64
	Name() string
	FetchPage(ctx context.Context, native NativeFilter, pageSize int, cursor string) (Page, error)
}
