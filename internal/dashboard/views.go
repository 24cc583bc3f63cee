package dashboard

import (
	"html/template"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/simp-lee/gymadmin/internal/admin"
)

type navItem struct {
	Resource string
	Title    string
	URL      string
	Active   bool
}

type homeCard struct {
	Resource string
	Title    string
	URL      string
	Total    int
	Failed   bool
}

type optionsView struct {
	Field   string
	Options []admin.Option
	MoreURL string
	Append  bool
	Error   string
}

type linkView struct {
	Label    string
	URL      string
	Selected bool
}

type columnView struct {
	ID       string
	Header   string
	Sortable bool
	Sort     admin.SortDir
	SortURL  string
	// Filters narrow the rows of the current page by this column.
	Filters  []linkView
	Filtered bool
}

type rowView struct {
	ID        string
	Active    bool
	Selected  bool
	Cells     []template.HTML
	URL       string
	ToggleURL string
}

type pageLink struct {
	Number  int
	URL     string
	Current bool
	Gap     bool
}

type hiddenInput struct {
	Name  string
	Value string
}

// filterState is the hidden part of the filter form that has to follow the
// table: page size, sort and column filters. Table fragments carry an
// out-of-band copy so the form never submits a stale state.
type filterState struct {
	Inputs []hiddenInput
	OOB    bool
}

type tableView struct {
	Resource    string
	Request     admin.PageRequest
	Columns     []columnView
	Rows        []rowView
	State       string
	Error       string
	SelfURL     string
	RefetchURL  string
	Pager       admin.Pager
	Pages       []pageLink
	PrevURL     string
	NextURL     string
	PageSizes   []linkView
	Summary     string
	Activatable bool
	Hidden      []hiddenInput

	SelectedCount     int
	SelectedLabel     string
	ClearSelectionURL string
}

var pageSizes = []int{10, 20, 50, 100}

// tableState is the part of a table URL that lives outside the PageRequest:
// column filters of the current page and the row selection.
type tableState struct {
	// Filters holds the selected values per column id.
	Filters  map[string]map[string]bool
	Selected []string
	// Toggle flips the selection of one row.
	Toggle string
	// Clear drops the selection.
	Clear bool
}

// tableView renders a container snapshot. Selected rows that are not on the
// loaded page reset the selection, so paging, sorting and resizing all
// start from an empty one.
func (h *Handler) tableView(r *request, snap admin.ContainerSnapshot[Record], st tableState) tableView {
	res := r.screen.Resource
	req := snap.Request
	cf := st.Filters
	cols := r.screen.Columns(r.schema)

	table := admin.NewTable(cols, recordID)
	table.SetSort(req.Sort)
	for id, sel := range cf {
		table.SetColumnFilter(id, sel)
	}

	onPage := make(map[string]bool, len(snap.Result.Items))
	for _, row := range snap.Result.Items {
		onPage[recordID(row)] = true
	}
	stale := st.Clear || snap.Err != nil
	for _, id := range st.Selected {
		if !onPage[id] {
			stale = true
		}
		if !table.IsSelected(id) {
			table.ToggleSelect(id)
		}
	}
	if stale {
		table.ResetSelection()
	}
	if st.Toggle != "" && onPage[st.Toggle] {
		table.ToggleSelect(st.Toggle)
	}
	var selected []string
	for _, row := range snap.Result.Items {
		if id := recordID(row); table.IsSelected(id) {
			selected = append(selected, id)
		}
	}
	keep := tableState{Filters: cf, Selected: selected}
	// page, size and sort links start a new selection
	fresh := tableState{Filters: cf}

	v := tableView{
		Resource:    res,
		Request:     req,
		SelfURL:     rowsURL(res, req, keep),
		RefetchURL:  rowsURL(res, req, keep) + "&refetch=1",
		Pager:       snap.Pager(),
		Activatable: r.screen.Activatable,
		Hidden:      hiddenInputs(req, cf),

		SelectedCount: table.SelectedCount(),
	}
	if v.SelectedCount > 0 {
		v.SelectedLabel = admin.Format(r.tr("table.selected", "{count} selected"), map[string]string{
			"count": strconv.Itoa(v.SelectedCount),
		})
		v.ClearSelectionURL = rowsURL(res, req, tableState{Filters: cf, Selected: selected, Clear: true})
	}

	for _, col := range cols {
		cv := columnView{
			ID:       col.ID,
			Header:   col.Header,
			Sortable: col.Sortable,
			Sort:     table.SortOf(col.ID),
		}
		if col.Sortable {
			next := admin.NewTable(cols, recordID)
			next.SetSort(req.Sort)
			cv.SortURL = rowsURL(res, req.WithSort(next.ToggleSort(col.ID)), fresh)
		}
		if col.FilterPredicate != nil && col.Accessor != nil {
			cv.Filters, cv.Filtered = h.columnFilters(r, col, snap.Result.Items, req, keep)
		}
		v.Columns = append(v.Columns, cv)
	}

	if snap.Err != nil {
		v.State = "error"
		v.Error = r.errorMessage(snap.Err, "errors.load_failed", "Failed to load data")
		return v
	}

	visible := table.VisibleRows(snap.Result.Items)
	v.State = table.State(snap.Loading, visible).String()
	query := req.Values().Encode()
	for _, row := range visible {
		rv := rowView{ID: recordID(row), Active: isActive(row)}
		rv.Selected = table.IsSelected(rv.ID)
		rv.URL = resourceURL(res) + "/" + url.PathEscape(rv.ID) + "?" + query
		rv.ToggleURL = rowsURL(res, req, tableState{Filters: cf, Selected: selected, Toggle: rv.ID})
		for _, col := range cols {
			rv.Cells = append(rv.Cells, table.Render(col, row))
		}
		v.Rows = append(v.Rows, rv)
	}

	p := v.Pager
	for _, n := range p.Range(2) {
		if n < 0 {
			v.Pages = append(v.Pages, pageLink{Gap: true})
			continue
		}
		v.Pages = append(v.Pages, pageLink{Number: n, URL: rowsURL(res, req.WithPage(n), fresh), Current: n == p.Page})
	}
	if p.HasPrevious() {
		v.PrevURL = rowsURL(res, req.WithPage(p.Page-1), fresh)
	}
	if p.HasNext() {
		v.NextURL = rowsURL(res, req.WithPage(p.Page+1), fresh)
	}
	for _, n := range pageSizes {
		v.PageSizes = append(v.PageSizes, linkView{
			Label:    strconv.Itoa(n),
			URL:      rowsURL(res, req.WithPageSize(n), fresh),
			Selected: n == req.PageSize,
		})
	}
	v.Summary = admin.Format(r.tr("table.showing", "Showing {from} to {to} of {total}"), map[string]string{
		"from":  strconv.Itoa(p.From()),
		"to":    strconv.Itoa(p.To()),
		"total": strconv.Itoa(p.TotalItems),
	})
	return v
}

// columnFilters offers the distinct values of col on the current page.
func (h *Handler) columnFilters(r *request, col admin.ColumnSpec[Record], rows []Record, req admin.PageRequest, st tableState) ([]linkView, bool) {
	cf := st.Filters
	seen := map[string]bool{}
	var values []string
	for _, row := range rows {
		s := formatValue(col.Accessor(row))
		if !seen[s] {
			seen[s] = true
			values = append(values, s)
		}
	}
	slices.Sort(values)

	without := make(map[string]map[string]bool, len(cf))
	for k, v := range cf {
		if k != col.ID {
			without[k] = v
		}
	}
	selected := cf[col.ID]
	out := []linkView{{
		Label:    admin.Format(r.tr("filters.all", "All {label}"), map[string]string{"label": col.Header}),
		URL:      rowsURL(r.screen.Resource, req, tableState{Filters: without, Selected: st.Selected}),
		Selected: len(selected) == 0,
	}}
	for _, val := range values {
		only := make(map[string]map[string]bool, len(without)+1)
		for k, v := range without {
			only[k] = v
		}
		only[col.ID] = map[string]bool{val: true}
		out = append(out, linkView{
			Label:    valueLabel(r, val),
			URL:      rowsURL(r.screen.Resource, req, tableState{Filters: only, Selected: st.Selected}),
			Selected: selected[val],
		})
	}
	return out, len(selected) > 0
}

// valueLabel names a column filter value; booleans are statuses.
func valueLabel(r *request, v string) string {
	switch v {
	case "true":
		return r.tr("status.active", "Active")
	case "false":
		return r.tr("status.inactive", "Inactive")
	case "":
		return "-"
	}
	return v
}

func resourceURL(resource string) string {
	return basePath + "/" + url.PathEscape(resource)
}

// rowsURL encodes a page request and table state as a table fragment URL.
func rowsURL(resource string, req admin.PageRequest, st tableState) string {
	q := req.Values()
	for col, vals := range columnFilterValues(st.Filters) {
		q.Set("cf."+col, vals)
	}
	if len(st.Selected) > 0 {
		q.Set("sel", strings.Join(st.Selected, ","))
	}
	if st.Toggle != "" {
		q.Set("toggle", st.Toggle)
	}
	if st.Clear {
		q.Set("clear", "1")
	}
	return resourceURL(resource) + "/rows?" + q.Encode()
}

// columnFilterValues joins the selected values of each filtered column.
func columnFilterValues(cf map[string]map[string]bool) map[string]string {
	out := make(map[string]string, len(cf))
	for col, sel := range cf {
		vals := make([]string, 0, len(sel))
		for v, on := range sel {
			if on {
				vals = append(vals, v)
			}
		}
		if len(vals) > 0 {
			slices.Sort(vals)
			out[col] = strings.Join(vals, ",")
		}
	}
	return out
}

// hiddenInputs lists the filter form fields that carry the table state the
// form has no visible control for.
func hiddenInputs(req admin.PageRequest, cf map[string]map[string]bool) []hiddenInput {
	in := []hiddenInput{{Name: "pageSize", Value: strconv.Itoa(req.PageSize)}}
	if req.Sort != "" {
		in = append(in, hiddenInput{Name: "sort", Value: req.Sort})
	}
	vals := columnFilterValues(cf)
	for _, col := range slices.Sorted(maps.Keys(vals)) {
		in = append(in, hiddenInput{Name: "cf." + col, Value: vals[col]})
	}
	return in
}

// parseTableState reads cf.<column>=v1,v2, sel=id1,id2, toggle=id and
// clear=1 parameters.
func parseTableState(q url.Values) tableState {
	st := tableState{
		Filters:  map[string]map[string]bool{},
		Selected: splitList(q.Get("sel")),
		Toggle:   q.Get("toggle"),
		Clear:    q.Get("clear") == "1",
	}
	for key, vals := range q {
		col, ok := strings.CutPrefix(key, "cf.")
		if !ok || col == "" || len(vals) == 0 {
			continue
		}
		sel := map[string]bool{}
		for _, v := range splitList(vals[0]) {
			sel[v] = true
		}
		if len(sel) > 0 {
			st.Filters[col] = sel
		}
	}
	return st
}

func splitList(s string) []string {
	var out []string
	for v := range strings.SplitSeq(s, ",") {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func optionsURL(resource, field, mode string, page int, search string) string {
	q := url.Values{}
	q.Set("field", field)
	q.Set("mode", mode)
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if search != "" {
		q.Set("search", search)
	}
	return basePath + "/options/" + url.PathEscape(resource) + "?" + q.Encode()
}
