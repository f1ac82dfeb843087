// Package cachekey derives deterministic, compact cache keys from
// arbitrary parameter values. Two values that are deeply equal up to
// map-key order always produce the same key; different sequence order
// or contents produce different keys.
package cachekey

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"golang.org/x/crypto/sha3"
)

// keyBytes is how much of the digest feeds the rendered key. 16 bytes
// keeps keys short while leaving collisions out of practical reach;
// collision resistance is not a security requirement here, only
// key-space compactness.
const keyBytes = 16

// Compute marshals v to JSON, applies RFC 8785 (JCS) canonicalization
// so that map-key order never influences the result, and renders a
// truncated keccak-256 digest in base 36.
//
// Errors are returned, never swallowed: a value the canonicalizer
// cannot handle must fail the caller's operation rather than silently
// bypass the cache.
func Compute(prefix string, v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("cachekey: marshal: %w", err)
	}
	canonical, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("cachekey: canonicalize: %w", err)
	}

	h := sha3.NewLegacyKeccak256()
	h.Write(canonical)
	digest := h.Sum(nil)

	key := new(big.Int).SetBytes(digest[:keyBytes]).Text(36)
	return prefix + ":" + key, nil
}
