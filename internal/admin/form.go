package admin

import (
	"fmt"
	"maps"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// FieldType is the closed set of form control types.
type FieldType string

const (
	FieldText             FieldType = "text"
	FieldEmail            FieldType = "email"
	FieldPassword         FieldType = "password"
	FieldNumber           FieldType = "number"
	FieldDate             FieldType = "date"
	FieldTextarea         FieldType = "textarea"
	FieldSelect           FieldType = "select"
	FieldSelectPagination FieldType = "selectPagination"
	FieldRadio            FieldType = "radio"
	FieldSwitch           FieldType = "switch"
)

// Renderer names the template block that draws a field type.
type Renderer string

const (
	RenderInput        Renderer = "field-input"
	RenderTextarea     Renderer = "field-textarea"
	RenderSelect       Renderer = "field-select"
	RenderRemoteSelect Renderer = "field-remote-select"
	RenderRadio        Renderer = "field-radio"
	RenderSwitch       Renderer = "field-switch"
)

// renderers has one entry per FieldType; NewForm rejects anything else.
var renderers = map[FieldType]Renderer{
	FieldText:             RenderInput,
	FieldEmail:            RenderInput,
	FieldPassword:         RenderInput,
	FieldNumber:           RenderInput,
	FieldDate:             RenderInput,
	FieldTextarea:         RenderTextarea,
	FieldSelect:           RenderSelect,
	FieldSelectPagination: RenderRemoteSelect,
	FieldRadio:            RenderRadio,
	FieldSwitch:           RenderSwitch,
}

// Renderer returns the renderer of t.
func (t FieldType) Renderer() (Renderer, bool) {
	r, ok := renderers[t]
	return r, ok
}

// DateLayout is the wire format of date fields.
const DateLayout = "2006-01-02"

// Rules are the optional checks of a field, applied in a fixed order after
// the required and type checks.
type Rules struct {
	Min, Max             *float64
	Pattern              *regexp.Regexp
	MinLength, MaxLength int
	// Custom returns an error message, or "" when the value is fine.
	Custom func(value string) string
}

// FieldSpec declares one form field.
type FieldSpec struct {
	Name        string
	Label       string
	Type        FieldType
	Required    bool
	Placeholder string
	Options     []Option
	Source      OptionSource
	Rules       Rules
}

// Renderer returns the template block for the field.
func (f FieldSpec) Renderer() Renderer {
	r, _ := f.Type.Renderer()
	return r
}

// FormError is the single active error of a field. An empty Field marks a
// whole-form error.
type FormError struct {
	Field   string
	Message string
}

// FormState is the state of one create or edit session.
type FormState struct {
	Values        map[string]string
	Touched       map[string]bool
	Errors        []FormError
	ShowAllErrors bool
}

// FormValidator checks the whole form after the per-field pass.
type FormValidator func(values map[string]string) []FormError

// Form is a controlled create/edit form. Fields are laid out in rows but
// validated as one flat list.
type Form struct {
	Rows [][]FieldSpec

	fields   []FieldSpec
	byName   map[string]FieldSpec
	t        Translator
	validate FormValidator

	mu    sync.Mutex
	state FormState
}

var fieldValidator = validator.New()

// NewForm builds a form from rows and initial values. Unknown field types,
// missing names and duplicate names are construction errors.
func NewForm(rows [][]FieldSpec, initial map[string]string, t Translator, v FormValidator) (*Form, error) {
	f := &Form{
		Rows:     rows,
		byName:   make(map[string]FieldSpec),
		t:        t,
		validate: v,
		state: FormState{
			Values:  make(map[string]string),
			Touched: make(map[string]bool),
		},
	}
	for _, row := range rows {
		for _, field := range row {
			if field.Name == "" {
				return nil, fmt.Errorf("form field %q has no name", field.Label)
			}
			if _, ok := field.Type.Renderer(); !ok {
				return nil, fmt.Errorf("form field %q: unsupported type %q", field.Name, field.Type)
			}
			if field.Type == FieldSelectPagination && field.Source == nil {
				return nil, fmt.Errorf("form field %q: selectPagination needs an option source", field.Name)
			}
			if _, dup := f.byName[field.Name]; dup {
				return nil, fmt.Errorf("form field %q declared twice", field.Name)
			}
			f.byName[field.Name] = field
			f.fields = append(f.fields, field)
			f.state.Values[field.Name] = initial[field.Name]
		}
	}
	return f, nil
}

// Fields returns the flattened field list.
func (f *Form) Fields() []FieldSpec { return f.fields }

// Change sets a value. Touched fields are revalidated.
func (f *Form) Change(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byName[name]; !ok {
		return
	}
	f.state.Values[name] = value
	if f.state.Touched[name] {
		f.revalidate(name)
	}
}

// Blur marks a field touched and validates it.
func (f *Form) Blur(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byName[name]; !ok {
		return
	}
	f.state.Touched[name] = true
	f.revalidate(name)
}

// Submit touches every field, turns on ShowAllErrors and validates the
// whole form. onSubmit runs only when no error remains; the returned bool
// reports whether it ran.
func (f *Form) Submit(onSubmit func(values map[string]string) error) (bool, error) {
	f.mu.Lock()
	for _, field := range f.fields {
		f.state.Touched[field.Name] = true
	}
	f.state.ShowAllErrors = true

	var errs []FormError
	for _, field := range f.fields {
		if msg := f.validateField(field, f.state.Values[field.Name]); msg != "" {
			errs = append(errs, FormError{Field: field.Name, Message: msg})
		}
	}
	if f.validate != nil {
		errs = mergeErrors(errs, f.validate(maps.Clone(f.state.Values)))
	}
	f.state.Errors = errs
	values := maps.Clone(f.state.Values)
	f.mu.Unlock()

	if len(errs) > 0 || onSubmit == nil {
		return false, nil
	}
	return true, onSubmit(values)
}

// AddErrors records errors reported after submission, e.g. by the server.
func (f *Form) AddErrors(errs ...FormError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Errors = mergeErrors(f.state.Errors, errs)
}

// VisibleError returns the error to show next to a field: nothing until
// the field is touched or ShowAllErrors is on.
func (f *Form) VisibleError(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.state.ShowAllErrors && !f.state.Touched[name] {
		return ""
	}
	for _, e := range f.state.Errors {
		if e.Field == name {
			return e.Message
		}
	}
	return ""
}

// Errors returns the errors currently shown in the summary list.
func (f *Form) Errors() []FormError {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []FormError
	for _, e := range f.state.Errors {
		if f.state.ShowAllErrors || e.Field == "" || f.state.Touched[e.Field] {
			out = append(out, e)
		}
	}
	return out
}

// State returns a copy of the form state.
func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FormState{
		Values:        maps.Clone(f.state.Values),
		Touched:       maps.Clone(f.state.Touched),
		Errors:        slices.Clone(f.state.Errors),
		ShowAllErrors: f.state.ShowAllErrors,
	}
}

// Value returns the current value of a field.
func (f *Form) Value(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Values[name]
}

// Payload converts the string values into typed JSON values: numbers become
// float64, switches become bool, empty optional values are omitted.
func (f *Form) Payload() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]any, len(f.fields))
	for _, field := range f.fields {
		v := strings.TrimSpace(f.state.Values[field.Name])
		switch field.Type {
		case FieldSwitch:
			out[field.Name] = isTrue(v)
		case FieldNumber:
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				out[field.Name] = n
			}
		case FieldSelectPagination:
			if v == "" {
				continue
			}
			if n, err := strconv.ParseUint(v, 10, 64); err == nil {
				out[field.Name] = n
			} else {
				out[field.Name] = v
			}
		default:
			if v == "" && field.Type != FieldTextarea {
				continue
			}
			out[field.Name] = v
		}
	}
	return out
}

func (f *Form) revalidate(name string) {
	msg := f.validateField(f.byName[name], f.state.Values[name])
	errs := slices.DeleteFunc(f.state.Errors, func(e FormError) bool { return e.Field == name })
	if msg != "" {
		errs = append(errs, FormError{Field: name, Message: msg})
	}
	f.state.Errors = errs
}

// validateField runs the field rules in order and returns the first failure:
// required, empty-optional skip, type, numeric bounds, pattern, length
// bounds, custom.
func (f *Form) validateField(field FieldSpec, raw string) string {
	if field.Type == FieldSwitch {
		return f.custom(field, raw)
	}
	value := strings.TrimSpace(raw)
	label := map[string]string{"label": field.Label}

	if value == "" {
		if field.Required {
			return Format(Tr(f.t, "validation.required", "{label} is required"), label)
		}
		return ""
	}

	var num float64
	switch field.Type {
	case FieldEmail:
		if fieldValidator.Var(value, "email") != nil {
			return Tr(f.t, "validation.email", "Please enter a valid email address")
		}
	case FieldNumber:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Format(Tr(f.t, "validation.number", "{label} must be a number"), label)
		}
		num = n
	case FieldDate:
		if _, err := time.Parse(DateLayout, value); err != nil {
			return Format(Tr(f.t, "validation.date", "{label} must be a valid date"), label)
		}
	}

	if field.Type == FieldNumber {
		if r := field.Rules.Min; r != nil && num < *r {
			return Format(Tr(f.t, "validation.min", "{label} must be at least {min}"),
				map[string]string{"label": field.Label, "min": formatFloat(*r)})
		}
		if r := field.Rules.Max; r != nil && num > *r {
			return Format(Tr(f.t, "validation.max", "{label} must be at most {max}"),
				map[string]string{"label": field.Label, "max": formatFloat(*r)})
		}
	}

	if p := field.Rules.Pattern; p != nil && !p.MatchString(value) {
		return Format(Tr(f.t, "validation.pattern", "{label} has an invalid format"), label)
	}

	n := utf8.RuneCountInString(value)
	if l := field.Rules.MinLength; l > 0 && n < l {
		return Format(Tr(f.t, "validation.min_length", "{label} must be at least {min} characters"),
			map[string]string{"label": field.Label, "min": strconv.Itoa(l)})
	}
	if l := field.Rules.MaxLength; l > 0 && n > l {
		return Format(Tr(f.t, "validation.max_length", "{label} must be at most {max} characters"),
			map[string]string{"label": field.Label, "max": strconv.Itoa(l)})
	}

	return f.custom(field, value)
}

func (f *Form) custom(field FieldSpec, value string) string {
	if field.Rules.Custom == nil {
		return ""
	}
	return field.Rules.Custom(value)
}

// mergeErrors appends extra to errs keeping at most one error per field.
func mergeErrors(errs, extra []FormError) []FormError {
	for _, e := range extra {
		if e.Field != "" && slices.ContainsFunc(errs, func(x FormError) bool { return x.Field == e.Field }) {
			continue
		}
		errs = append(errs, e)
	}
	return errs
}

// Float returns a pointer to v, for Rules.Min and Rules.Max.
func Float(v float64) *float64 { return &v }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func isTrue(v string) bool {
	switch strings.ToLower(v) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}

// HTTPURL is a Custom rule accepting absolute http(s) URLs.
func HTTPURL(message string) func(string) string {
	return func(v string) string {
		u, err := url.Parse(v)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return message
		}
		return ""
	}
}
