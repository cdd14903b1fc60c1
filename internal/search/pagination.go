package search

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// cursorPayload is the opaque structure encoded into a pagination
// cursor token. GlobalOffset is used only for cross-backend merges
// (OR-mode fan-out), where a single backend's own offset is meaningless.
type cursorPayload struct {
	Offset       int  `json:"offset,omitempty"`
	GlobalOffset *int `json:"_global_offset,omitempty"`
}

// ClampLimit clamps silently into [1,100]; a caller-supplied 0 or
// negative limit falls back to 20 rather than being treated as
// "unlimited".
func ClampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// OffsetFromPage converts 1-indexed page+limit into a flat offset.
func OffsetFromPage(page, limit int) int {
	if page <= 1 {
		return 0
	}
	return (page - 1) * limit
}

// EncodeCursor renders an offset as an opaque base64url cursor token.
func EncodeCursor(offset int) string {
	raw, _ := json.Marshal(cursorPayload{Offset: offset})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// EncodeGlobalCursor renders a cross-backend merge offset.
func EncodeGlobalCursor(globalOffset int) string {
	raw, _ := json.Marshal(cursorPayload{GlobalOffset: &globalOffset})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a cursor token back into an offset. An empty
// token decodes to offset 0 with no error, so callers can treat "no
// cursor yet" and "cursor for offset 0" identically.
func DecodeCursor(cursor string) (offset int, err error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("search: invalid cursor: %w", err)
	}
	var p cursorPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return 0, fmt.Errorf("search: invalid cursor payload: %w", err)
	}
	if p.GlobalOffset != nil {
		return *p.GlobalOffset, nil
	}
	return p.Offset, nil
}

// ResolveOffset implements the page/offset/cursor precedence: an
// explicit cursor wins, then an explicit offset, then page*limit,
// defaulting to 0. page=P,limit=L must equal offset=(P-1)*L,limit=L
// for the same stable result set — both paths resolve here to the
// identical arithmetic.
func ResolveOffset(cursor string, offset *int, page *int, limit int) (int, error) {
	if cursor != "" {
		return DecodeCursor(cursor)
	}
	if offset != nil {
		return *offset, nil
	}
	if page != nil {
		return OffsetFromPage(*page, limit), nil
	}
	return 0, nil
}
