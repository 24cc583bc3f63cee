// Package dashboard renders the back-office pages. Every resource is a
// Screen: column, filter, form and details schemas fed to the generic
// admin components, with records fetched from the REST API.
package dashboard

import (
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"github.com/simp-lee/gymadmin/internal/admin"
)

// Record is one API record as decoded from JSON.
type Record = map[string]any

// Ref points a field at another resource whose records are offered as
// options of a paginated select.
type Ref struct {
	Resource string
	Label    func(rec Record, locale string) string
}

// Screen describes the pages of one resource.
type Screen struct {
	Resource string
	// TitleKey is the catalog key of the plural title; Title is its fallback.
	TitleKey string
	Title    string

	Columns func(s Schema) []admin.ColumnSpec[Record]
	Filters func(s Schema) []admin.FilterSpec
	Form    func(s Schema) [][]admin.FieldSpec
	// Validate is the optional whole-form check run after the field rules.
	Validate func(s Schema) admin.FormValidator
	Details  func(s Schema) admin.Details[Record]

	Refs map[string]Ref
	// FetchDetails makes the details view fetch the full record.
	FetchDetails bool
	Activatable  bool
}

// Schema is what screen definitions build their specs from: the request
// translator and the option sources of Ref fields.
type Schema struct {
	T      admin.Translator
	Locale string
	source func(field string) admin.OptionSource
}

// Tr translates key with a literal fallback.
func (s Schema) Tr(key, fallback string) string {
	return admin.Tr(s.T, key, fallback)
}

// Label returns the translated label of a record field.
func (s Schema) Label(field, fallback string) string {
	return admin.Tr(s.T, "fields."+field, fallback)
}

// Source returns the option source behind a Ref field.
func (s Schema) Source(field string) admin.OptionSource {
	if s.source == nil {
		return nil
	}
	return s.source(field)
}

// Options builds translated options for values under options.<group>.
func (s Schema) Options(group string, values ...string) []admin.Option {
	out := make([]admin.Option, len(values))
	for i, v := range values {
		out[i] = admin.Option{Value: v, Label: s.OptionLabel(group, v)}
	}
	return out
}

// OptionLabel translates one option value, falling back to the value.
func (s Schema) OptionLabel(group, value string) string {
	if value == "" {
		return ""
	}
	return admin.Tr(s.T, "options."+group+"."+value, value)
}

func (s Schema) statusOptions() []admin.Option {
	return []admin.Option{
		{Value: "true", Label: s.Tr("status.active", "Active")},
		{Value: "false", Label: s.Tr("status.inactive", "Inactive")},
	}
}

// recordID renders the id of rec.
func recordID(rec Record) string {
	return formatValue(rec["id"])
}

// formatValue renders a decoded JSON value as form and URL text. Numbers
// never use exponent notation.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func str(rec Record, key string) string {
	return formatValue(rec[key])
}

func isActive(rec Record) bool {
	b, _ := rec["isActive"].(bool)
	return b
}

// dateOnly cuts an RFC 3339 timestamp down to its date.
func dateOnly(v any) string {
	s, _ := v.(string)
	if len(s) >= len(admin.DateLayout) {
		return s[:len(admin.DateLayout)]
	}
	return s
}

// lines splits multi-line text into trimmed non-empty lines. It returns nil
// for blank text so the field is suppressed.
func lines(v any) []string {
	s, _ := v.(string)
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// orNil maps "" to nil so details suppress it.
func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var statusColors = &admin.ColorConfig{
	Colors: map[string]string{"true": "badge-success", "false": "badge-danger"},
}

var difficultyColors = &admin.ColorConfig{
	Colors: map[string]string{
		"beginner":     "badge-success",
		"intermediate": "badge-warning",
		"advanced":     "badge-danger",
	},
}

func badge(class, text string) template.HTML {
	return template.HTML(`<span class="badge ` + template.HTMLEscapeString(class) + `">` +
		template.HTMLEscapeString(text) + `</span>`)
}

func (s Schema) statusBadge(active bool) template.HTML {
	text := s.Tr("status.inactive", "Inactive")
	if active {
		text = s.Tr("status.active", "Active")
	}
	return badge(statusColors.GetColor(active), text)
}

// link renders an external http(s) link; anything else is shown as text.
func link(v any) template.HTML {
	raw, _ := v.(string)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return template.HTML(template.HTMLEscapeString(raw))
	}
	esc := template.HTMLEscapeString(u.String())
	return template.HTML(`<a href="` + esc + `" target="_blank" rel="noopener noreferrer">` + esc + `</a>`)
}

// Column helpers.

func (s Schema) idColumn() admin.ColumnSpec[Record] {
	return admin.ColumnSpec[Record]{
		ID:       "id",
		Header:   s.Label("id", "ID"),
		Accessor: func(r Record) any { return str(r, "id") },
		Sortable: true,
	}
}

func (s Schema) textColumn(id, fallback string, sortable bool) admin.ColumnSpec[Record] {
	return admin.ColumnSpec[Record]{
		ID:       id,
		Header:   s.Label(id, fallback),
		Accessor: func(r Record) any { return str(r, id) },
		Sortable: sortable,
	}
}

func (s Schema) optionColumn(id, fallback, group string) admin.ColumnSpec[Record] {
	return admin.ColumnSpec[Record]{
		ID:       id,
		Header:   s.Label(id, fallback),
		Accessor: func(r Record) any { return s.OptionLabel(group, str(r, id)) },
	}
}

func (s Schema) dateColumn(id, fallback string, sortable bool) admin.ColumnSpec[Record] {
	return admin.ColumnSpec[Record]{
		ID:       id,
		Header:   s.Label(id, fallback),
		Accessor: func(r Record) any { return dateOnly(r[id]) },
		Sortable: sortable,
	}
}

// statusColumn renders the active flag as a badge. Its predicate hides rows
// of the current page by status.
func (s Schema) statusColumn() admin.ColumnSpec[Record] {
	return admin.ColumnSpec[Record]{
		ID:       "isActive",
		Header:   s.Label("isActive", "Status"),
		Accessor: func(r Record) any { return strconv.FormatBool(isActive(r)) },
		Cell:     func(r Record) template.HTML { return s.statusBadge(isActive(r)) },
		FilterPredicate: func(v any, selected map[string]bool) bool {
			return selected[fmt.Sprint(v)]
		},
	}
}

// Detail helpers.

func (s Schema) field(rec Record, key, fallback string) admin.DetailField {
	return admin.DetailField{Label: s.Label(key, fallback), Value: rec[key]}
}

func (s Schema) dateField(rec Record, key, fallback string) admin.DetailField {
	return admin.DetailField{
		Label:  s.Label(key, fallback),
		Value:  rec[key],
		Format: dateOnly,
	}
}

func (s Schema) optionField(rec Record, key, fallback, group string) admin.DetailField {
	return admin.DetailField{
		Label: s.Label(key, fallback),
		Value: orNil(str(rec, key)),
		Format: func(v any) string {
			return s.OptionLabel(group, fmt.Sprint(v))
		},
	}
}

func (s Schema) statusField(rec Record) admin.DetailField {
	return admin.DetailField{
		Label:  s.Label("isActive", "Status"),
		Value:  rec["isActive"],
		Render: func(v any) template.HTML { return s.statusBadge(v == true) },
	}
}

func (s Schema) metaSection(rec Record, tab string) admin.Section {
	return admin.Section{
		Title: s.Tr("sections.meta", "Record"),
		Tab:   tab,
		Fields: []admin.DetailField{
			s.field(rec, "id", "ID"),
			s.dateField(rec, "createdAt", "Created at"),
			s.dateField(rec, "updatedAt", "Updated at"),
		},
	}
}

// Form helpers.

func (s Schema) text(name, fallback string, required bool) admin.FieldSpec {
	return admin.FieldSpec{
		Name:     name,
		Label:    s.Label(name, fallback),
		Type:     admin.FieldText,
		Required: required,
	}
}

func (s Schema) typed(name, fallback string, typ admin.FieldType, required bool) admin.FieldSpec {
	f := s.text(name, fallback, required)
	f.Type = typ
	return f
}

func (s Schema) number(name, fallback string, required bool, lo, hi *float64) admin.FieldSpec {
	f := s.typed(name, fallback, admin.FieldNumber, required)
	f.Rules.Min, f.Rules.Max = lo, hi
	return f
}

func (s Schema) choice(name, fallback string, typ admin.FieldType, required bool, options []admin.Option) admin.FieldSpec {
	f := s.typed(name, fallback, typ, required)
	f.Options = options
	f.Placeholder = s.Tr("forms.select", "Select...")
	return f
}

func (s Schema) remote(name, fallback string) admin.FieldSpec {
	f := s.typed(name, fallback, admin.FieldSelectPagination, false)
	f.Source = s.Source(name)
	f.Placeholder = s.Tr("forms.select", "Select...")
	return f
}

func (s Schema) activeSwitch() admin.FieldSpec {
	return s.typed("isActive", "Status", admin.FieldSwitch, false)
}

// Filter helpers.

func (s Schema) selectFilter(key, fallback string, options []admin.Option) admin.FilterSpec {
	return admin.FilterSpec{Key: key, Label: s.Label(key, fallback), Type: admin.FilterSelect, Options: options}
}

func (s Schema) statusFilter() admin.FilterSpec {
	return s.selectFilter("isActive", "Status", s.statusOptions())
}

func (s Schema) remoteFilter(key, fallback string) admin.FilterSpec {
	return admin.FilterSpec{Key: key, Label: s.Label(key, fallback), Type: admin.FilterSelectPagination, Source: s.Source(key)}
}
