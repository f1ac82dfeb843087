package registry

import "errors"

// ErrUnknownChain is returned when a filter selects a chain no source
// is configured for.
var ErrUnknownChain = errors.New("unknown chain")

// ErrBadCursor is returned when a continuation cursor cannot be decoded.
var ErrBadCursor = errors.New("malformed cursor")

// ErrCursorChainMismatch is returned when a cursor's chain is excluded
// by the filter's chain selection.
var ErrCursorChainMismatch = errors.New("cursor chain not in filter selection")
