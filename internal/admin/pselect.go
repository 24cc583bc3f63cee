package admin

import (
	"context"
	"slices"
	"sync"
)

// DefaultOptionPageSize is the page size of paginated select sources.
const DefaultOptionPageSize = 20

// OptionQuery asks an OptionSource for one page of options.
type OptionQuery struct {
	Page     int
	PageSize int
	Search   string
	Locale   string
}

// OptionPage is one page of options.
type OptionPage struct {
	Options []Option
	HasMore bool
}

// OptionSource pages and searches the options of a select control.
type OptionSource interface {
	Options(ctx context.Context, q OptionQuery) (OptionPage, error)
}

// PaginatedSelectState is the state of a paginated select control.
type PaginatedSelectState struct {
	Options []Option
	Page    int
	HasMore bool
	Loading bool
	Search  string
}

// PaginatedSelect is a small pager feeding a dropdown, independent of the
// table's own paging. Opening loads the first page once, scrolling near the
// end appends the next page, and searching replaces the list.
type PaginatedSelect struct {
	src      OptionSource
	pageSize int

	mu     sync.Mutex
	state  PaginatedSelectState
	loaded bool
	locale string
	// gen discards responses overtaken by a newer request.
	gen uint64
}

// NewPaginatedSelect creates a select over src.
func NewPaginatedSelect(src OptionSource, pageSize int) *PaginatedSelect {
	if pageSize <= 0 {
		pageSize = DefaultOptionPageSize
	}
	return &PaginatedSelect{src: src, pageSize: pageSize}
}

// SetLocale sets the locale passed to the source.
func (s *PaginatedSelect) SetLocale(locale string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locale = locale
}

// State returns a copy of the current state.
func (s *PaginatedSelect) State() PaginatedSelectState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Options = slices.Clone(s.state.Options)
	return st
}

// Restore resumes from a state rendered earlier, e.g. the page and search
// term carried by an htmx request.
func (s *PaginatedSelect) Restore(st PaginatedSelectState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	s.state.Options = slices.Clone(st.Options)
	s.state.Loading = false
	s.loaded = st.Page > 0
}

// Open loads the first page unless it was loaded already.
func (s *PaginatedSelect) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded || s.state.Loading {
		s.mu.Unlock()
		return nil
	}
	search := s.state.Search
	s.mu.Unlock()
	return s.fetch(ctx, 1, search, false)
}

// LoadMore appends the next page when there is one.
func (s *PaginatedSelect) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if !s.loaded || !s.state.HasMore || s.state.Loading {
		s.mu.Unlock()
		return nil
	}
	next, search := s.state.Page+1, s.state.Search
	s.mu.Unlock()
	return s.fetch(ctx, next, search, true)
}

// Search replaces the option list with the first page of results for term.
func (s *PaginatedSelect) Search(ctx context.Context, term string) error {
	s.mu.Lock()
	s.state.Search = term
	s.mu.Unlock()
	return s.fetch(ctx, 1, term, false)
}

// NearEnd reports whether rendering option index should trigger LoadMore.
func (s *PaginatedSelect) NearEnd(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	const threshold = 3
	return s.state.HasMore && index >= len(s.state.Options)-threshold
}

func (s *PaginatedSelect) fetch(ctx context.Context, page int, search string, appendPage bool) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state.Loading = true
	q := OptionQuery{Page: page, PageSize: s.pageSize, Search: search, Locale: s.locale}
	s.mu.Unlock()

	res, err := s.src.Options(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil
	}
	s.state.Loading = false
	if err != nil {
		return err
	}
	if appendPage {
		s.state.Options = append(s.state.Options, res.Options...)
	} else {
		s.state.Options = slices.Clone(res.Options)
	}
	s.state.Page = page
	s.state.HasMore = res.HasMore
	s.loaded = true
	return nil
}
