package params

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// URL: /api/private/brand?page=2&limit=20&search=acme
// → ParsePagination() → Pagination{Limit:20, Page:2, Offset:20, Search:"acme"}
// → SQL: SELECT ... WHERE name LIKE '%acme%' LIMIT 20 OFFSET 20
// → ComputeMeta(total) fills TotalPages, HasNext, HasPrev
// Pagination holds pagination info and computed metadata.
type Pagination struct {
	Limit      int    `json:"limit"`
	Offset     int    `json:"-"`
	Page       int    `json:"page"`
	Search     string `json:"-"`
	Total      int64  `json:"total"`
	TotalPages int    `json:"totalPages"`
	HasNext    bool   `json:"hasNext"`
	HasPrev    bool   `json:"hasPrev"`
}

// ParsePagination parses ?page=...&limit=...&search=... safely. Keys are case sensitive.
func ParsePagination(q url.Values) Pagination {
	p := Pagination{
		Limit: DefaultLimit,
		Page:  1,
	}

	if limitStr := strings.TrimSpace(q.Get("limit")); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			switch {
			case limit <= 0:
				p.Limit = DefaultLimit
			default:
				p.Limit = min(limit, MaxLimit)
			}
		}
	}

	if pageStr := strings.TrimSpace(q.Get("page")); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			p.Page = page
		}
	}

	p.Search = strings.TrimSpace(q.Get("search"))
	p.Offset = (p.Page - 1) * p.Limit
	return p
}

// New builds a Pagination from already parsed values, applying the same bounds.
func New(page, limit int, search string) Pagination {
	if page < 1 {
		page = 1
	}
	limit = clamp(limit, 1, MaxLimit)
	return Pagination{
		Page:   page,
		Limit:  limit,
		Search: strings.TrimSpace(search),
		Offset: (page - 1) * limit,
	}
}

// ComputeMeta updates pagination after fetching total count.
func (p *Pagination) ComputeMeta(total int64) {
	p.Total = total
	p.TotalPages = 0
	if p.Limit > 0 {
		p.TotalPages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	p.HasPrev = p.Page > 1
	p.HasNext = int64(p.Page*p.Limit) < total
}

// Window parses the skip/take pair used by the storefront listings.
// take <= 0 means "no limit".
func Window(q url.Values) (skip, take int) {
	if v, err := strconv.Atoi(strings.TrimSpace(q.Get("skip"))); err == nil && v > 0 {
		skip = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(q.Get("take"))); err == nil && v > 0 {
		take = min(v, MaxLimit)
	}
	return skip, take
}

// Bool reads a boolean query flag ("true", "1"); anything else is false.
func Bool(q url.Values, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(q.Get(key)))
	return err == nil && v
}

func clamp(v, lo, hi int) int {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
