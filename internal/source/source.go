// Package source implements the per-chain paginated query primitives
// the aggregation layer is built on: an AgentMesh indexer HTTP API, a
// direct on-chain registry reader, and a Postgres index mirror. Each
// satisfies registry.Source and owns the mapping from its raw record
// shape to the normalized registry.Agent.
package source

import "errors"

// ErrBadCursor is returned by a source handed a cursor it did not produce.
var ErrBadCursor = errors.New("source: malformed cursor")
