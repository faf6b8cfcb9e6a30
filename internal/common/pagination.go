package common

import (
	"net/http"
	"strconv"
)

// Pagination is the metadata envelope attached to list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// ParsePagination reads `page` and `limit` from the query string. Missing or
// non-positive values fall back to page 1 and the given default page size.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	page, perPage = 1, defaultPerPage
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		perPage = v
	}
	return page, perPage
}

// Bounds clamps the page window to a list of n items.
func (p Pagination) Bounds(n int) (start, end int) {
	start = (p.Page - 1) * p.PerPage
	if start > n {
		start = n
	}
	end = start + p.PerPage
	if end > n {
		end = n
	}
	return start, end
}
