package admin

import (
	"fmt"
	"sync"
)

// FilterType is the control kind of a filter.
type FilterType string

const (
	FilterText             FilterType = "text"
	FilterSelect           FilterType = "select"
	FilterSelectPagination FilterType = "selectPagination"
	FilterDate             FilterType = "date"
	FilterNumber           FilterType = "number"
)

// Option is one choice of a select control.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FilterSpec declares one filter control.
type FilterSpec struct {
	Key     string
	Label   string
	Type    FilterType
	Options []Option
	// Source feeds selectPagination filters.
	Source OptionSource
}

// FilterPanel owns the {key: value} filter map of one screen. It relays
// every change to its owner and never resets paging itself.
type FilterPanel struct {
	specs    []FilterSpec
	t        Translator
	onChange func(key, value string)
	onClear  func()

	mu      sync.Mutex
	values  map[string]string
	selects map[string]*PaginatedSelect
}

// NewFilterPanel creates a panel for specs. It returns an error when a
// selectPagination filter has no source or a key is repeated.
func NewFilterPanel(specs []FilterSpec, t Translator, onChange func(key, value string), onClear func()) (*FilterPanel, error) {
	p := &FilterPanel{
		specs:    specs,
		t:        t,
		onChange: onChange,
		onClear:  onClear,
		values:   make(map[string]string, len(specs)),
		selects:  make(map[string]*PaginatedSelect),
	}
	for _, s := range specs {
		if _, dup := p.values[s.Key]; dup {
			return nil, fmt.Errorf("filter %q declared twice", s.Key)
		}
		switch s.Type {
		case FilterText, FilterSelect, FilterDate, FilterNumber:
		case FilterSelectPagination:
			if s.Source == nil {
				return nil, fmt.Errorf("filter %q: selectPagination needs an option source", s.Key)
			}
			p.selects[s.Key] = NewPaginatedSelect(s.Source, DefaultOptionPageSize)
		default:
			return nil, fmt.Errorf("filter %q: unknown type %q", s.Key, s.Type)
		}
		p.values[s.Key] = ""
	}
	return p, nil
}

// Specs returns the declared filters.
func (p *FilterPanel) Specs() []FilterSpec { return p.specs }

// Keys returns the filter keys in declaration order.
func (p *FilterPanel) Keys() []string {
	keys := make([]string, len(p.specs))
	for i, s := range p.specs {
		keys[i] = s.Key
	}
	return keys
}

// Set changes one value and notifies the owner immediately.
func (p *FilterPanel) Set(key, value string) {
	p.mu.Lock()
	if _, ok := p.values[key]; !ok {
		p.mu.Unlock()
		return
	}
	p.values[key] = value
	p.mu.Unlock()
	if p.onChange != nil {
		p.onChange(key, value)
	}
}

// Load replaces the values without notifying, e.g. when restoring a page
// from its URL.
func (p *FilterPanel) Load(values map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k := range p.values {
		p.values[k] = values[k]
	}
}

// Clear resets every key to "" and notifies the owner. Calling it twice
// leaves the same state as calling it once.
func (p *FilterPanel) Clear() {
	p.mu.Lock()
	for k := range p.values {
		p.values[k] = ""
	}
	p.mu.Unlock()
	if p.onClear != nil {
		p.onClear()
	}
}

// Values returns a copy of the current values, including empty ones.
func (p *FilterPanel) Values() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]string, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// Value returns the current value of key.
func (p *FilterPanel) Value(key string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[key]
}

// ActiveCount counts non-empty values.
func (p *FilterPanel) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, v := range p.values {
		if v != "" {
			n++
		}
	}
	return n
}

// SelectOptions returns the options of a plain select filter, led by the
// synthetic "All <label>" option that clears the key.
func (p *FilterPanel) SelectOptions(spec FilterSpec) []Option {
	all := Format(Tr(p.t, "filters.all", "All {label}"), map[string]string{"label": spec.Label})
	out := make([]Option, 0, len(spec.Options)+1)
	out = append(out, Option{Value: "", Label: all})
	return append(out, spec.Options...)
}

// Select returns the paginated select behind a selectPagination filter.
func (p *FilterPanel) Select(key string) (*PaginatedSelect, bool) {
	s, ok := p.selects[key]
	return s, ok
}
