package models

import "math"

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	MaxPage      = 1_000_000
)

// PageRequest selects one page of a result set. Page is 1-based.
type PageRequest struct {
	Page  int `json:"page" validate:"min=1,max=1000000"`
	Limit int `json:"limit" validate:"min=1,max=100"`
}

// Normalize fills in defaults for zero values and clamps the page and the limit.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset is the number of rows to skip. It saturates instead of overflowing.
func (p PageRequest) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// Window returns the [start, end) bounds of the page inside a slice of n items.
func (p PageRequest) Window(n int) (int, int) {
	start := min(max(p.Offset(), 0), n)
	end := n
	if p.Limit >= 0 && p.Limit < n-start {
		end = start + p.Limit
	}
	return start, end
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// NewPagination builds the pagination block for total matching rows.
func NewPagination(total int, p PageRequest) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{Total: total, Page: p.Page, Limit: p.Limit, Pages: pages}
}
