// Package admin is the schema-driven CRUD framework behind the dashboard:
// paged queries, tables, filter panels, details views, forms, and the
// per-resource container that ties them to a remote data source.
package admin

import (
	"maps"
	"net/url"
	"strconv"
	"strings"
)

// Default page settings.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest identifies one query against a resource. Together with the
// resource name and locale it forms the cache key of the result.
//
// Transitions are value methods so a request is never mutated in place.
// Every transition touching Search, Filters, PageSize or Sort resets Page to 1.
type PageRequest struct {
	Page     int
	PageSize int
	Search   string
	Sort     string
	Filters  map[string]string
}

// NewPageRequest returns the first page with the given size.
func NewPageRequest(pageSize int) PageRequest {
	return PageRequest{Page: 1, PageSize: clampPageSize(pageSize)}
}

// WithPage moves to page p. Pages below 1 are clamped.
func (r PageRequest) WithPage(p int) PageRequest {
	r.Filters = maps.Clone(r.Filters)
	r.Page = max(p, 1)
	return r
}

// WithPageSize changes the page size and returns to the first page.
func (r PageRequest) WithPageSize(n int) PageRequest {
	r.Filters = maps.Clone(r.Filters)
	r.PageSize = clampPageSize(n)
	r.Page = 1
	return r
}

// WithSearch sets the search term and returns to the first page.
func (r PageRequest) WithSearch(term string) PageRequest {
	r.Filters = maps.Clone(r.Filters)
	r.Search = strings.TrimSpace(term)
	r.Page = 1
	return r
}

// WithFilter sets one filter and returns to the first page. An empty value
// removes the key, since "" means "no filter".
func (r PageRequest) WithFilter(key, value string) PageRequest {
	f := maps.Clone(r.Filters)
	if f == nil {
		f = make(map[string]string)
	}
	if value == "" {
		delete(f, key)
	} else {
		f[key] = value
	}
	r.Filters = f
	r.Page = 1
	return r
}

// WithFilters replaces the filter set and returns to the first page.
func (r PageRequest) WithFilters(filters map[string]string) PageRequest {
	f := make(map[string]string, len(filters))
	for k, v := range filters {
		if v != "" {
			f[k] = v
		}
	}
	r.Filters = f
	r.Page = 1
	return r
}

// ClearFilters drops every filter and returns to the first page.
func (r PageRequest) ClearFilters() PageRequest {
	r.Filters = map[string]string{}
	r.Page = 1
	return r
}

// WithSort sets the "field:dir" sort expression and returns to the first page.
func (r PageRequest) WithSort(sort string) PageRequest {
	r.Filters = maps.Clone(r.Filters)
	r.Sort = sort
	r.Page = 1
	return r
}

// Values encodes the request as query parameters understood by the REST API.
func (r PageRequest) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(max(r.Page, 1)))
	v.Set("pageSize", strconv.Itoa(clampPageSize(r.PageSize)))
	if r.Search != "" {
		v.Set("search", r.Search)
	}
	if r.Sort != "" {
		v.Set("sort", r.Sort)
	}
	for k, val := range r.Filters {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v
}

// ParsePageRequest reads a request from query parameters. Only keys listed
// in filterKeys are taken as filters; everything else is ignored.
func ParsePageRequest(q url.Values, defaultPageSize int, filterKeys []string) PageRequest {
	page, _ := strconv.Atoi(q.Get("page"))
	size, err := strconv.Atoi(q.Get("pageSize"))
	if err != nil || size < 1 {
		size = defaultPageSize
	}
	r := PageRequest{
		Page:     max(page, 1),
		PageSize: clampPageSize(size),
		Search:   strings.TrimSpace(q.Get("search")),
		Sort:     q.Get("sort"),
		Filters:  make(map[string]string),
	}
	for _, k := range filterKeys {
		if v := q.Get(k); v != "" {
			r.Filters[k] = v
		}
	}
	return r
}

func clampPageSize(n int) int {
	switch {
	case n < 1:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	}
	return n
}

// QueryKey identifies a cached page result.
type QueryKey struct {
	Resource string
	Locale   string
	Request  PageRequest
}

// String renders the key canonically: equal requests produce equal strings
// regardless of filter insertion order.
func (k QueryKey) String() string {
	var b strings.Builder
	b.WriteString(k.Resource)
	b.WriteByte('|')
	b.WriteString(k.Locale)
	b.WriteByte('|')
	// url.Values.Encode sorts by key.
	b.WriteString(k.Request.Values().Encode())
	return b.String()
}
