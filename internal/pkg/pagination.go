package pkg

import (
	"context"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/pagination"
	"gorm.io/gorm"

	"github.com/simp-lee/gymadmin/internal/domain"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
	defaultSort     = "id:desc"

	likeSuffix = "__like"
)

// reservedParams are query keys that never become filters.
var reservedParams = map[string]bool{
	"page":      true,
	"pageSize":  true,
	"page_size": true,
	"sort":      true,
	"search":    true,
	"lang":      true,
}

// validFieldName guards every column name interpolated into SQL.
var validFieldName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ParsePageRequest reads page, pageSize (or page_size), search, sort and the
// remaining non-empty query values as filters. Out-of-range numbers fall back
// to the defaults and pageSize is capped at 100.
func ParsePageRequest(c *gin.Context) domain.PageRequest {
	q := c.Request.URL.Query()

	req := domain.PageRequest{
		Page:     positiveInt(q.Get("page"), defaultPage),
		PageSize: min(positiveInt(firstNonEmpty(q.Get("pageSize"), q.Get("page_size")), defaultPageSize), maxPageSize),
		Search:   strings.TrimSpace(q.Get("search")),
		Sort:     firstNonEmpty(strings.TrimSpace(q.Get("sort")), defaultSort),
		Filter:   make(map[string]string),
	}
	for key, values := range q {
		if reservedParams[key] || len(values) == 0 || values[0] == "" {
			continue
		}
		req.Filter[key] = values[0]
	}
	return req
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Paginate loads page req.Page through simp-lee/pagination. total is the row
// count of the filtered query and load fetches one window of it. A page past
// the end is clamped to the last page.
func Paginate[T any](ctx context.Context, req domain.PageRequest, total int64, load func(ctx context.Context, offset, limit int) ([]T, error)) (*pagination.Pagination[T], error) {
	return pagination.NewPaginator(
		pagination.WithItemsPerPage[T](max(req.PageSize, 1)),
		pagination.WithKnownTotal[T](total),
		pagination.WithSliceCallback(load),
	).Paginate(ctx, max(req.Page, 1))
}

// Window limits the query to limit rows starting at offset.
func Window(offset, limit int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(offset).Limit(limit)
	}
}

// Sort orders by "field:asc|desc" when field is in allowed. Rows tied on a
// column other than id are ordered by id in the same direction so pages never
// overlap. Anything else leaves the query unordered.
func Sort(req domain.PageRequest, allowed []string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		field, dir, ok := strings.Cut(req.Sort, ":")
		field, dir = strings.TrimSpace(field), strings.ToLower(strings.TrimSpace(dir))
		if !ok || (dir != "asc" && dir != "desc") || !usable(field, allowed) {
			return db
		}
		db = db.Order(field + " " + dir)
		if field != "id" {
			db = db.Order("id " + dir)
		}
		return db
	}
}

// Filter adds one condition per allowed filter key, in key order. A key
// ending in "__like" matches a substring; any other key matches exactly, with
// "true" and "false" bound as booleans.
func Filter(req domain.PageRequest, allowed []string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		keys := make([]string, 0, len(req.Filter))
		for k := range req.Filter {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		for _, key := range keys {
			value := req.Filter[key]
			if field, like := strings.CutSuffix(key, likeSuffix); like {
				if usable(field, allowed) {
					db = db.Where(field+` LIKE ? ESCAPE '\'`, containsPattern(value))
				}
				continue
			}
			if usable(key, allowed) {
				db = db.Where(key+" = ?", filterValue(value))
			}
		}
		return db
	}
}

// Search matches req.Search as a literal substring of any of fields.
func Search(req domain.PageRequest, fields []string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if req.Search == "" {
			return db
		}
		pattern := containsPattern(req.Search)
		var (
			conds []string
			args  []any
		)
		for _, f := range fields {
			if validFieldName.MatchString(f) {
				conds = append(conds, f+` LIKE ? ESCAPE '\'`)
				args = append(args, pattern)
			}
		}
		if len(conds) == 0 {
			return db
		}
		return db.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
}

// NewPageResult converts a paginator page into the list payload. An empty
// collection has zero pages, and Items is never nil so it encodes as [].
func NewPageResult[T any](p *pagination.Pagination[T]) *domain.PageResult[T] {
	items := p.Items
	if items == nil {
		items = []T{}
	}
	pages := p.TotalPages
	if p.TotalItems == 0 {
		pages = 0
	}
	return &domain.PageResult[T]{
		Items:      items,
		Total:      p.TotalItems,
		Page:       p.CurrentPage,
		PageSize:   p.ItemsPerPage,
		TotalPages: pages,
	}
}

func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

func filterValue(v string) any {
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	return v
}

func usable(field string, allowed []string) bool {
	return validFieldName.MatchString(field) && slices.Contains(allowed, field)
}
