package pagination

import (
	"math"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 100
)

// Params holds 1-based page pagination extracted from a request.
type Params struct {
	Page  int
	Limit int
}

// New clamps page to at least 1 and limit to [1, MaxLimit].
func New(page, limit int) Params {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

// Parse reads raw query values. Missing or non-numeric values fall back to
// the defaults; numeric values are clamped by New.
func Parse(page, limit string) Params {
	p, err := strconv.Atoi(strings.TrimSpace(page))
	if err != nil {
		p = DefaultPage
	}
	l, err := strconv.Atoi(strings.TrimSpace(limit))
	if err != nil {
		l = DefaultLimit
	}
	return New(p, l)
}

// FromContext extracts pagination parameters from the echo context.
func FromContext(c echo.Context) Params {
	return Parse(c.QueryParam("page"), c.QueryParam("limit"))
}

// Offset is the number of rows skipped before this page. It saturates at
// math.MaxInt, which every store reads as past the end.
func (p Params) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// Meta describes where a page sits inside the full filtered set.
type Meta struct {
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"totalPages"`
	HasPrev    bool `json:"hasPrev"`
	HasNext    bool `json:"hasNext"`
}

func NewMeta(p Params, total int) Meta {
	totalPages := 0
	if total > 0 && p.Limit > 0 {
		totalPages = (total + p.Limit - 1) / p.Limit
	}
	return Meta{
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: totalPages,
		HasPrev:    p.Page > 1,
		HasNext:    p.Page < totalPages,
	}
}

// Page wraps a paginated API response. Items is never nil so it encodes as [].
type Page[T any] struct {
	Items []T `json:"items"`
	Meta
}

func NewPage[T any](items []T, p Params, total int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Items: items, Meta: NewMeta(p, total)}
}
