package pagination

import (
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultPage      = 1
	DefaultLimit     = 10
	MaxLimit         = 100
	DefaultSortBy    = "createdAt"
	DefaultSortOrder = "desc"
)

// OptionKeys are the query parameters that control paging and ordering.
var OptionKeys = []string{"page", "limit", "sortBy", "sortOrder"}

// Options holds pagination and ordering parameters extracted from a request.
type Options struct {
	Page      int
	Limit     int
	Skip      int
	SortBy    string
	SortOrder string
}

// Pick keeps only the allow-listed, non-empty keys of a query.
func Pick(query url.Values, keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v := strings.TrimSpace(query.Get(k)); v != "" {
			out[k] = v
		}
	}
	return out
}

// Calculate applies defaults to raw paging options.
func Calculate(raw map[string]string) Options {
	page := positiveInt(raw["page"], DefaultPage)
	limit := positiveInt(raw["limit"], DefaultLimit)
	if limit > MaxLimit {
		limit = MaxLimit
	}

	sortBy := raw["sortBy"]
	if sortBy == "" {
		sortBy = DefaultSortBy
	}
	sortOrder := strings.ToLower(raw["sortOrder"])
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = DefaultSortOrder
	}

	return Options{
		Page:      page,
		Limit:     limit,
		Skip:      (page - 1) * limit,
		SortBy:    sortBy,
		SortOrder: sortOrder,
	}
}

// FromQuery is Calculate over the option keys of a request query.
func FromQuery(query url.Values) Options {
	return Calculate(Pick(query, OptionKeys...))
}

// Sortable maps the public sortBy values of one list endpoint to columns.
type Sortable map[string]string

// Column resolves SortBy against the allow-list. Unknown keys fall back to
// the createdAt column, or to fallback when the endpoint has no createdAt.
func (o Options) Column(s Sortable) string {
	if col, ok := s[o.SortBy]; ok {
		return col
	}
	if col, ok := s[DefaultSortBy]; ok {
		return col
	}
	for _, col := range s {
		return col
	}
	return "created_at"
}

// Apply adds ORDER BY, OFFSET and LIMIT to a query.
func (o Options) Apply(db *gorm.DB, s Sortable) *gorm.DB {
	return db.
		Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column(s)}, Desc: o.SortOrder == "desc"}).
		Offset(o.Skip).
		Limit(o.Limit)
}

// Meta describes a page of results.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewMeta computes page metadata; TotalPages rounds up.
func NewMeta(o Options, total int64) Meta {
	pages := 0
	if o.Limit > 0 {
		pages = int((total + int64(o.Limit) - 1) / int64(o.Limit))
	}
	return Meta{Page: o.Page, Limit: o.Limit, Total: total, TotalPages: pages}
}

// Result is a page of records with its metadata.
type Result[T any] struct {
	Meta Meta `json:"meta"`
	Data []T  `json:"data"`
}

func positiveInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
