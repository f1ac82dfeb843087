package registry

import (
	"encoding/base64"
	"encoding/json"
)

// Cursor is the opaque continuation token handed to API callers. It
// pins the chain the underlying stream belongs to, so continuing a
// paginated query always targets exactly one source; Token is the
// source's own cursor and is meaningful only to that source.
type Cursor struct {
	Chain int64  `json:"c"`
	Token string `json:"t"`
}

// EncodeCursor encodes a cursor into an opaque string.
func EncodeCursor(c *Cursor) string {
	if c == nil {
		return ""
	}
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor decodes an opaque cursor string. Returns ErrBadCursor
// for anything that did not come out of EncodeCursor.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrBadCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, ErrBadCursor
	}
	if c.Chain == 0 || c.Token == "" {
		return nil, ErrBadCursor
	}
	return &c, nil
}
