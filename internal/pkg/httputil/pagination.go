package httputil

import (
	"errors"
	"net/http"
	"strconv"
)

// Pagination is a parsed limit/offset pair.
type Pagination struct {
	Limit  int
	Offset int
}

// Pagination errors.
var (
	ErrInvalidLimit  = errors.New("limit must be a positive integer")
	ErrInvalidOffset = errors.New("offset must be a non-negative integer")
)

// ParsePagination reads limit and offset query parameters.
// Limits above maxLimit are capped rather than rejected.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) (Pagination, error) {
	p := Pagination{Limit: defaultLimit}

	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			return Pagination{}, ErrInvalidLimit
		}
		if parsed > maxLimit {
			parsed = maxLimit
		}
		p.Limit = parsed
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil || parsed < 0 {
			return Pagination{}, ErrInvalidOffset
		}
		p.Offset = parsed
	}

	return p, nil
}
