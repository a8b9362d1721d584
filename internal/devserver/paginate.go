package devserver

import (
	"encoding/base64"
	"net/http"
	"strconv"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// parsePagination extracts cursor and limit from query parameters.
// limit defaults to 20 and is silently capped at 100.
func parsePagination(r *http.Request) (offset, limit int, ok bool) {
	limit = defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset, ok = decodeCursor(r.URL.Query().Get("cursor"))
	return offset, limit, ok
}

// encodeCursor encodes the offset of the next page as an opaque cursor.
func encodeCursor(offset int) string {
	return base64.URLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

// decodeCursor decodes an opaque cursor back to an offset. An empty cursor
// is the first page.
func decodeCursor(cursor string) (int, bool) {
	if cursor == "" {
		return 0, true
	}
	b, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(string(b))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
