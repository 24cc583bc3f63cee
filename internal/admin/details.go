package admin

import (
	"fmt"
	"html/template"
	"reflect"
	"strings"
)

// NeutralColor is used for values a ColorConfig does not know.
const NeutralColor = "badge-neutral"

// ColorConfig maps raw values such as a status or role to a badge class.
type ColorConfig struct {
	Colors  map[string]string
	Default string
}

// GetColor returns the class for v, falling back to the default and then
// to NeutralColor.
func (c *ColorConfig) GetColor(v any) string {
	if c != nil {
		if cls, ok := c.Colors[fmt.Sprint(deref(v))]; ok && cls != "" {
			return cls
		}
		if c.Default != "" {
			return c.Default
		}
	}
	return NeutralColor
}

// DetailField is one labelled value of a details view.
type DetailField struct {
	Label  string
	Value  any
	Render func(any) template.HTML
	Format func(any) string
	// Colors renders the value as a colored badge.
	Colors *ColorConfig
}

// Section groups fields under a title. Tab selects the pane it appears in.
type Section struct {
	Title  string
	Tab    string
	Fields []DetailField
}

// Tab is one pane of a details view.
type Tab struct {
	ID    string
	Label string
}

// RenderedField is a field ready for the template.
type RenderedField struct {
	Label string
	HTML  template.HTML
}

// RenderedSection is a non-empty section ready for the template.
type RenderedSection struct {
	Title  string
	Fields []RenderedField
}

// Pane is one tab with its sections. All panes are rendered together and
// switched client-side, so switching never refetches the record.
type Pane struct {
	Tab      Tab
	Active   bool
	Sections []RenderedSection
}

// Details describes the read-only view of a record.
type Details[T any] struct {
	Title func(T) string
	Tabs  []Tab
	// Sections is called on every render and must be a pure function of
	// the record.
	Sections func(T) []Section
}

// Build renders record into panes. Empty fields are dropped, sections left
// without fields are dropped, and tabs left without sections are dropped.
func (d Details[T]) Build(record T) []Pane {
	if d.Sections == nil {
		return nil
	}
	tabs := d.Tabs
	if len(tabs) == 0 {
		tabs = []Tab{{ID: "main"}}
	}
	index := make(map[string]int, len(tabs))
	panes := make([]Pane, len(tabs))
	for i, t := range tabs {
		index[t.ID] = i
		panes[i].Tab = t
	}

	for _, s := range d.Sections(record) {
		rs, ok := renderSection(s)
		if !ok {
			continue
		}
		i, known := index[s.Tab]
		if !known {
			i = 0
		}
		panes[i].Sections = append(panes[i].Sections, rs)
	}

	out := panes[:0]
	for _, p := range panes {
		if len(p.Sections) > 0 {
			out = append(out, p)
		}
	}
	if len(out) > 0 {
		out[0].Active = true
	}
	return out
}

// TitleOf returns the view title for record.
func (d Details[T]) TitleOf(record T) string {
	if d.Title == nil {
		return ""
	}
	return d.Title(record)
}

func renderSection(s Section) (RenderedSection, bool) {
	rs := RenderedSection{Title: s.Title}
	for _, f := range s.Fields {
		if IsEmpty(f.Value) {
			continue
		}
		rs.Fields = append(rs.Fields, RenderedField{Label: f.Label, HTML: RenderValue(f)})
	}
	return rs, len(rs.Fields) > 0
}

// IsEmpty reports whether v is nil, a typed nil, or an empty string.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return true
		}
		if rv.Kind() == reflect.Pointer {
			return IsEmpty(rv.Elem().Interface())
		}
	case reflect.String:
		return rv.Len() == 0
	}
	return false
}

// RenderValue renders a field with precedence Render, Format, Colors,
// slice as a bulleted list, then the plain string form.
func RenderValue(f DetailField) template.HTML {
	v := deref(f.Value)
	switch {
	case f.Render != nil:
		return f.Render(v)
	case f.Format != nil:
		return escape(f.Format(v))
	case f.Colors != nil:
		return template.HTML(`<span class="badge ` + template.HTMLEscapeString(f.Colors.GetColor(v)) + `">` +
			template.HTMLEscapeString(fmt.Sprint(v)) + `</span>`)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		var b strings.Builder
		b.WriteString("<ul>")
		for i := range rv.Len() {
			b.WriteString("<li>")
			b.WriteString(template.HTMLEscapeString(fmt.Sprint(deref(rv.Index(i).Interface()))))
			b.WriteString("</li>")
		}
		b.WriteString("</ul>")
		return template.HTML(b.String())
	}
	return escape(fmt.Sprint(v))
}

func escape(s string) template.HTML {
	return template.HTML(template.HTMLEscapeString(s))
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}
