package admin

import (
	"context"
	"fmt"
	"html/template"
	"sync"

	"github.com/simp-lee/pagination"
)

// PageResult is one normalized page of records.
type PageResult[T any] struct {
	Items      []T
	TotalItems int
}

// Pager does the page math of a server-paginated table on top of
// simp-lee/pagination, with the total known from the list response.
type Pager struct {
	Page       int
	PageSize   int
	TotalItems int
}

// paginate runs the paginator with links page numbers in its window. It
// returns nil when PageSize is unset.
func (p Pager) paginate(links int) *pagination.Pagination[struct{}] {
	if p.PageSize <= 0 {
		return nil
	}
	res, err := pagination.NewPaginator(
		pagination.WithItemsPerPage[struct{}](p.PageSize),
		pagination.WithKnownTotal[struct{}](int64(max(p.TotalItems, 0))),
		pagination.WithPagesInRange[struct{}](max(links, 1)),
		pagination.WithSliceCallback(func(context.Context, int, int) ([]struct{}, error) { return nil, nil }),
	).Paginate(context.Background(), max(p.Page, 1))
	if err != nil {
		return nil
	}
	return res
}

// TotalPages is ceil(TotalItems/PageSize); zero items means zero pages.
func (p Pager) TotalPages() int {
	res := p.paginate(1)
	if res == nil || p.TotalItems <= 0 {
		return 0
	}
	return res.TotalPages
}

// HasNext reports whether "next" and "last" are enabled.
func (p Pager) HasNext() bool {
	res := p.paginate(1)
	return res != nil && res.HasNextPage()
}

// HasPrevious reports whether "previous" and "first" are enabled. A page past
// the end still leads back.
func (p Pager) HasPrevious() bool { return p.Page > 1 }

// From is the 1-based index of the first row on the page, 0 when empty.
func (p Pager) From() int {
	if p.TotalItems == 0 || p.PageSize <= 0 {
		return 0
	}
	return min((p.Page-1)*p.PageSize+1, p.TotalItems)
}

// To is the 1-based index of the last row on the page.
func (p Pager) To() int {
	if p.PageSize <= 0 {
		return 0
	}
	return min(p.Page*p.PageSize, p.TotalItems)
}

// Range returns the page links to render: window pages either side of the
// current one, plus the first and last page. Gaps are marked with -1.
func (p Pager) Range(window int) []int {
	window = max(window, 1)
	res := p.paginate(2*window + 1)
	if res == nil || p.TotalItems <= 0 {
		return nil
	}
	lo, hi := res.FirstPageInRange, res.LastPageInRange

	var out []int
	if lo > res.FirstPage {
		out = append(out, res.FirstPage)
		if lo > res.FirstPage+1 {
			out = append(out, -1)
		}
	}
	out = append(out, res.Pages...)
	if hi < res.LastPage {
		if hi < res.LastPage-1 {
			out = append(out, -1)
		}
		out = append(out, res.LastPage)
	}
	return out
}

// TableState is the single display state of a table body.
type TableState int

const (
	TableLoading TableState = iota
	TableEmpty
	TablePopulated
)

func (s TableState) String() string {
	switch s {
	case TableLoading:
		return "loading"
	case TableEmpty:
		return "empty"
	default:
		return "populated"
	}
}

// ColumnSpec declares one table column.
type ColumnSpec[T any] struct {
	ID     string
	Header string
	// Accessor extracts the raw value; it also feeds the default cell.
	Accessor func(T) any
	// Cell renders trusted HTML and wins over Accessor when set.
	Cell     func(T) template.HTML
	Sortable bool
	// FilterPredicate hides rows already on the page; it never pages.
	FilterPredicate func(value any, selected map[string]bool) bool
}

// SortDir is a column sort direction.
type SortDir string

const (
	SortNone SortDir = ""
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// Table renders one page of rows. It never owns the data: the owner passes
// the page in and receives sort changes back.
type Table[T any] struct {
	Columns []ColumnSpec[T]
	RowKey  func(T) string

	mu         sync.Mutex
	selected   map[string]bool
	sortColumn string
	sortDir    SortDir
	predicates map[string]map[string]bool
}

// NewTable creates a table over columns. rowKey identifies rows for selection.
func NewTable[T any](columns []ColumnSpec[T], rowKey func(T) string) *Table[T] {
	return &Table[T]{
		Columns:    columns,
		RowKey:     rowKey,
		selected:   make(map[string]bool),
		predicates: make(map[string]map[string]bool),
	}
}

// State returns the display state; loading wins over everything else.
func (t *Table[T]) State(loading bool, rows []T) TableState {
	switch {
	case loading:
		return TableLoading
	case len(rows) == 0:
		return TableEmpty
	default:
		return TablePopulated
	}
}

// ToggleSelect flips the selection of one row.
func (t *Table[T]) ToggleSelect(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.selected[key] {
		delete(t.selected, key)
		return
	}
	t.selected[key] = true
}

// IsSelected reports whether row key is selected.
func (t *Table[T]) IsSelected(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selected[key]
}

// SelectedCount returns the number of selected rows.
func (t *Table[T]) SelectedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.selected)
}

// ResetSelection clears the selection. Owners call it on page changes.
func (t *Table[T]) ResetSelection() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.selected)
}

// ToggleSort cycles a sortable column asc, desc, none and returns the sort
// expression for PageRequest.Sort. Unknown or unsortable columns keep the
// current sort.
func (t *Table[T]) ToggleSort(columnID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	col, ok := t.column(columnID)
	if !ok || !col.Sortable {
		return t.sortExpr()
	}
	if t.sortColumn != columnID {
		t.sortColumn, t.sortDir = columnID, SortAsc
		return t.sortExpr()
	}
	switch t.sortDir {
	case SortAsc:
		t.sortDir = SortDesc
	case SortDesc:
		t.sortColumn, t.sortDir = "", SortNone
	default:
		t.sortDir = SortAsc
	}
	return t.sortExpr()
}

// SetSort restores the sort state from a "field:dir" expression.
func (t *Table[T]) SetSort(expr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sortColumn, t.sortDir = "", SortNone
	for i := len(expr) - 1; i >= 0; i-- {
		if expr[i] != ':' {
			continue
		}
		dir := SortDir(expr[i+1:])
		if dir == SortAsc || dir == SortDesc {
			t.sortColumn, t.sortDir = expr[:i], dir
		}
		return
	}
}

// SortOf returns the current direction of column id.
func (t *Table[T]) SortOf(id string) SortDir {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sortColumn != id {
		return SortNone
	}
	return t.sortDir
}

func (t *Table[T]) sortExpr() string {
	if t.sortColumn == "" || t.sortDir == SortNone {
		return ""
	}
	return t.sortColumn + ":" + string(t.sortDir)
}

func (t *Table[T]) column(id string) (ColumnSpec[T], bool) {
	for _, c := range t.Columns {
		if c.ID == id {
			return c, true
		}
	}
	return ColumnSpec[T]{}, false
}

// SetColumnFilter sets the selected values of a column predicate. An empty
// selection removes it.
func (t *Table[T]) SetColumnFilter(columnID string, selected map[string]bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(selected) == 0 {
		delete(t.predicates, columnID)
		return
	}
	t.predicates[columnID] = selected
}

// VisibleRows applies column predicates to the rows of the current page.
func (t *Table[T]) VisibleRows(rows []T) []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.predicates) == 0 {
		return rows
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if t.keep(row) {
			out = append(out, row)
		}
	}
	return out
}

func (t *Table[T]) keep(row T) bool {
	for _, col := range t.Columns {
		sel, ok := t.predicates[col.ID]
		if !ok || col.FilterPredicate == nil || col.Accessor == nil {
			continue
		}
		if !col.FilterPredicate(col.Accessor(row), sel) {
			return false
		}
	}
	return true
}

// Render returns the cell HTML of col for row. Plain values are escaped.
func (t *Table[T]) Render(col ColumnSpec[T], row T) template.HTML {
	if col.Cell != nil {
		return col.Cell(row)
	}
	if col.Accessor == nil {
		return ""
	}
	v := col.Accessor(row)
	if v == nil {
		return ""
	}
	return template.HTML(template.HTMLEscapeString(fmt.Sprint(v)))
}
