package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simp-lee/gymadmin/internal/metrics"
)

// Response is a raw reply of the remote data layer.
type Response struct {
	Status int
	Body   []byte
}

// DataSource is the remote data access layer. Errors are transport
// failures; server-reported failures arrive as a Response and are decoded by
// the container.
type DataSource interface {
	List(ctx context.Context, resource string, req PageRequest, locale string) (Response, error)
	Get(ctx context.Context, resource, id, locale string) (Response, error)
	Create(ctx context.Context, resource string, payload any, locale string) (Response, error)
	Update(ctx context.Context, resource, id string, payload any, locale string) (Response, error)
	Delete(ctx context.Context, resource, id, locale string) (Response, error)
	SetActive(ctx context.Context, resource, id string, active bool, locale string) (Response, error)
}

// ToastType is the severity of a toast.
type ToastType string

const (
	ToastSuccess ToastType = "success"
	ToastError   ToastType = "error"
	ToastInfo    ToastType = "info"
)

// Toast is a transient notification.
type Toast struct {
	ID      string    `json:"id"`
	Type    ToastType `json:"type"`
	Message string    `json:"message"`
}

// Notifier shows toasts.
type Notifier interface {
	Notify(Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Toast)

// Notify implements Notifier.
func (f NotifierFunc) Notify(t Toast) { f(t) }

// Refetcher is the imperative handle a page uses to reload a table.
type Refetcher interface {
	Refetch(ctx context.Context) error
}

// Action is a confirmable row action.
type Action string

const (
	ActionDelete     Action = "delete"
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
)

// ConfirmDialog is an open confirmation for a row action.
type ConfirmDialog struct {
	Action Action
	ID     string
	Title  string
	Body   string
}

// ResourceConfig parameterizes a Container for one resource.
type ResourceConfig[T any] struct {
	Resource string
	PageSize int
	// Normalize turns a list body into a page. Defaults to NormalizePage[T].
	Normalize func(body []byte) (PageResult[T], error)
	// DecodeRecord turns a get-by-id body into a record. Defaults to
	// NormalizeRecord[T].
	DecodeRecord func(body []byte) (T, error)
	RowID        func(T) string
	// FetchDetails makes View fetch the full record instead of using the
	// list row.
	FetchDetails bool
	// IsActive reports the current status of activatable resources.
	IsActive func(T) bool
	// Debounce is how long an attached container waits for a burst of
	// refresh events to settle before it reloads.
	Debounce time.Duration
}

// ContainerOptions carries the collaborators of a Container.
type ContainerOptions struct {
	Translator Translator
	Notifier   Notifier
	Locale     string
	Logger     *slog.Logger
}

// ContainerSnapshot is a consistent copy of the container state.
type ContainerSnapshot[T any] struct {
	Request PageRequest
	Result  PageResult[T]
	Loading bool
	Loaded  bool
	Err     error
	Dialog  *ConfirmDialog
}

// Pager returns the pagination of the snapshot.
func (s ContainerSnapshot[T]) Pager() Pager {
	return Pager{Page: s.Request.Page, PageSize: s.Request.PageSize, TotalItems: s.Result.TotalItems}
}

// Container owns the query state of one resource table, loads pages through
// the shared QueryCache and runs the confirm, mutate, invalidate, toast
// cycle of row actions.
type Container[T any] struct {
	cfg    ResourceConfig[T]
	src    DataSource
	cache  *QueryCache
	t      Translator
	notify Notifier
	locale string
	log    *slog.Logger

	reload *Debouncer[Event]

	mu      sync.Mutex
	req     PageRequest
	result  PageResult[T]
	loading bool
	loaded  bool
	err     error
	gen     uint64
	dialog  *ConfirmDialog
	unsubs  []func()

	ownCache bool
}

// NewContainer creates a container. A nil cache gets a private one.
func NewContainer[T any](cfg ResourceConfig[T], src DataSource, cache *QueryCache, opts ContainerOptions) *Container[T] {
	if cfg.Normalize == nil {
		cfg.Normalize = NormalizePage[T]
	}
	if cfg.DecodeRecord == nil {
		cfg.DecodeRecord = NormalizeRecord[T]
	}
	ownCache := cache == nil
	if ownCache {
		cache = NewQueryCache(0, 0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = NotifierFunc(func(Toast) {})
	}
	if opts.Locale == "" {
		opts.Locale = "en"
	}
	c := &Container[T]{
		cfg:    cfg,
		src:    src,
		cache:  cache,
		t:      opts.Translator,
		notify: opts.Notifier,
		locale: opts.Locale,
		log:    opts.Logger.With(slog.String("resource", cfg.Resource)),
		req:    NewPageRequest(cfg.PageSize),

		ownCache: ownCache,
	}
	c.reload = NewDebouncer(cfg.Debounce, func(ev Event) {
		if err := c.Load(context.Background()); err != nil {
			c.log.Warn("refresh failed", slog.String("event_id", ev.ID), slog.Any("error", err))
		}
	})
	return c
}

// Resource returns the resource name.
func (c *Container[T]) Resource() string { return c.cfg.Resource }

// Locale returns the locale the container fetches in.
func (c *Container[T]) Locale() string { return c.locale }

// Restore replaces the request without fetching.
func (c *Container[T]) Restore(req PageRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.req = req
}

// Request returns the current request.
func (c *Container[T]) Request() PageRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.req
}

// Key returns the cache key of the current request.
func (c *Container[T]) Key() QueryKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key()
}

func (c *Container[T]) key() QueryKey {
	return QueryKey{Resource: c.cfg.Resource, Locale: c.locale, Request: c.req}
}

// Load fetches the page of the current request. When loads overlap, the one
// started last decides the displayed state.
func (c *Container[T]) Load(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	key := c.key()
	c.loading = true
	c.mu.Unlock()

	res, err := Fetch(ctx, c.cache, key, func(ctx context.Context) (PageResult[T], error) {
		return c.fetchPage(ctx, key)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return err
	}
	c.loading = false
	c.loaded = true
	c.err = err
	if err == nil {
		c.result = res
	} else {
		c.result = PageResult[T]{}
		c.log.Warn("load page failed",
			slog.Int("page", key.Request.Page),
			slog.Any("error", err),
		)
	}
	return err
}

func (c *Container[T]) fetchPage(ctx context.Context, key QueryKey) (PageResult[T], error) {
	resp, err := c.src.List(ctx, key.Resource, key.Request, key.Locale)
	if err != nil {
		return PageResult[T]{}, fmt.Errorf("list %s: %w", key.Resource, err)
	}
	if _, err := DecodeEnvelope(resp.Status, resp.Body); err != nil && !errors.Is(err, ErrInvalidResponse) {
		return PageResult[T]{}, err
	}
	return c.cfg.Normalize(resp.Body)
}

// Refetch reloads the current request, bypassing the cache. The request is
// left unchanged.
func (c *Container[T]) Refetch(ctx context.Context) error {
	c.cache.Invalidate(c.Key())
	return c.Load(ctx)
}

// Handle returns the imperative refetch handle.
func (c *Container[T]) Handle() Refetcher { return c }

// SetPage moves to page p.
func (c *Container[T]) SetPage(ctx context.Context, p int) error {
	return c.update(ctx, func(r PageRequest) PageRequest { return r.WithPage(p) })
}

// SetPageSize changes the page size and returns to page 1.
func (c *Container[T]) SetPageSize(ctx context.Context, n int) error {
	return c.update(ctx, func(r PageRequest) PageRequest { return r.WithPageSize(n) })
}

// SetSearch applies a search term and returns to page 1.
func (c *Container[T]) SetSearch(ctx context.Context, term string) error {
	return c.update(ctx, func(r PageRequest) PageRequest { return r.WithSearch(term) })
}

// SetFilter applies one filter value and returns to page 1.
func (c *Container[T]) SetFilter(ctx context.Context, key, value string) error {
	return c.update(ctx, func(r PageRequest) PageRequest { return r.WithFilter(key, value) })
}

// ClearFilters removes every filter and returns to page 1.
func (c *Container[T]) ClearFilters(ctx context.Context) error {
	return c.update(ctx, func(r PageRequest) PageRequest { return r.ClearFilters() })
}

// SetSort applies a field:dir sort expression and returns to page 1.
func (c *Container[T]) SetSort(ctx context.Context, sort string) error {
	return c.update(ctx, func(r PageRequest) PageRequest { return r.WithSort(sort) })
}

func (c *Container[T]) update(ctx context.Context, fn func(PageRequest) PageRequest) error {
	c.mu.Lock()
	c.req = fn(c.req)
	c.mu.Unlock()
	return c.Load(ctx)
}

// Snapshot returns a copy of the current state.
func (c *Container[T]) Snapshot() ContainerSnapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := ContainerSnapshot[T]{
		Request: c.req,
		Result:  c.result,
		Loading: c.loading,
		Loaded:  c.loaded,
		Err:     c.err,
	}
	if c.dialog != nil {
		d := *c.dialog
		s.Dialog = &d
	}
	return s
}

// Attach subscribes the container to refresh events for its resource. Each
// event invalidates the cached pages at once; a container that has loaded
// reloads its request once the events stop arriving for the Debounce delay.
// Close removes the subscription.
func (c *Container[T]) Attach(bus EventBus) {
	unsub := bus.Subscribe(RefreshEvent, func(ev Event) {
		if ev.Resource != "" && ev.Resource != c.cfg.Resource {
			return
		}
		metrics.RefreshEvents.WithLabelValues(c.cfg.Resource).Inc()
		c.cache.InvalidateResource(c.cfg.Resource)
		c.mu.Lock()
		loaded := c.loaded
		c.mu.Unlock()
		if loaded {
			c.reload.Push(ev)
		}
	})
	c.mu.Lock()
	c.unsubs = append(c.unsubs, unsub)
	c.mu.Unlock()
}

// Close drops event subscriptions and any pending reload, and stops a
// private cache.
func (c *Container[T]) Close() {
	c.reload.Cancel()
	c.mu.Lock()
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
	if c.ownCache {
		c.cache.Close()
	}
}

// View returns the record to show in the details view. With FetchDetails it
// fetches the record by id and falls back to row on any failure.
func (c *Container[T]) View(ctx context.Context, row T) T {
	if !c.cfg.FetchDetails || c.cfg.RowID == nil {
		return row
	}
	rec, err := c.Get(ctx, c.cfg.RowID(row))
	if err != nil {
		c.log.Warn("fetch details failed, showing row data", slog.Any("error", err))
		return row
	}
	return rec
}

// Get fetches one record by id.
func (c *Container[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	resp, err := c.src.Get(ctx, c.cfg.Resource, id, c.locale)
	if err != nil {
		return zero, fmt.Errorf("get %s/%s: %w", c.cfg.Resource, id, err)
	}
	if _, err := DecodeEnvelope(resp.Status, resp.Body); err != nil && !errors.Is(err, ErrInvalidResponse) {
		return zero, err
	}
	return c.cfg.DecodeRecord(resp.Body)
}

// RequestDelete opens the delete confirmation for row.
func (c *Container[T]) RequestDelete(row T) ConfirmDialog {
	return c.openDialog(ActionDelete, c.rowID(row))
}

// RequestToggleActive opens the confirmation that flips the status of row.
func (c *Container[T]) RequestToggleActive(row T) ConfirmDialog {
	action := ActionActivate
	if c.cfg.IsActive != nil && c.cfg.IsActive(row) {
		action = ActionDeactivate
	}
	return c.openDialog(action, c.rowID(row))
}

// OpenDialog opens a confirmation for an action on the record with id.
func (c *Container[T]) OpenDialog(action Action, id string) (ConfirmDialog, error) {
	switch action {
	case ActionDelete, ActionActivate, ActionDeactivate:
	default:
		return ConfirmDialog{}, fmt.Errorf("unknown action %q", action)
	}
	return c.openDialog(action, id), nil
}

func (c *Container[T]) openDialog(action Action, id string) ConfirmDialog {
	d := ConfirmDialog{
		Action: action,
		ID:     id,
		Title:  Tr(c.t, "confirm."+string(action)+"_title", dialogTitles[action]),
		Body:   Tr(c.t, "confirm."+string(action)+"_body", dialogBodies[action]),
	}
	c.mu.Lock()
	c.dialog = &d
	c.mu.Unlock()
	return d
}

// CancelDialog closes the confirmation without acting.
func (c *Container[T]) CancelDialog() {
	c.mu.Lock()
	c.dialog = nil
	c.mu.Unlock()
}

// Confirm runs the action of the open dialog.
func (c *Container[T]) Confirm(ctx context.Context) error {
	c.mu.Lock()
	d := c.dialog
	c.mu.Unlock()
	if d == nil {
		return errors.New("no action awaiting confirmation")
	}
	switch d.Action {
	case ActionDelete:
		return c.Delete(ctx, d.ID)
	case ActionActivate:
		return c.SetActive(ctx, d.ID, true)
	default:
		return c.SetActive(ctx, d.ID, false)
	}
}

// Delete removes the record with id. On success the dialog closes and every
// cached page of the resource is invalidated; on failure an error toast is
// shown and the dialog stays open.
func (c *Container[T]) Delete(ctx context.Context, id string) error {
	return c.mutate(ctx, ActionDelete, func(ctx context.Context) (Response, error) {
		return c.src.Delete(ctx, c.cfg.Resource, id, c.locale)
	})
}

// SetActive activates or deactivates the record with id, like Delete.
func (c *Container[T]) SetActive(ctx context.Context, id string, active bool) error {
	action := ActionDeactivate
	if active {
		action = ActionActivate
	}
	return c.mutate(ctx, action, func(ctx context.Context) (Response, error) {
		return c.src.SetActive(ctx, c.cfg.Resource, id, active, c.locale)
	})
}

// Save creates a record when id is empty and updates it otherwise. On
// success the resource is invalidated and a success toast is shown. Failures
// are returned for the form to display.
func (c *Container[T]) Save(ctx context.Context, id string, payload any) (Envelope, error) {
	var (
		resp Response
		err  error
	)
	action, key, fallback := "create", "messages.created", "Created successfully"
	if id == "" {
		resp, err = c.src.Create(ctx, c.cfg.Resource, payload, c.locale)
	} else {
		action, key, fallback = "update", "messages.updated", "Updated successfully"
		resp, err = c.src.Update(ctx, c.cfg.Resource, id, payload, c.locale)
	}
	if err != nil {
		metrics.Mutations.WithLabelValues(c.cfg.Resource, action, "error").Inc()
		return Envelope{}, fmt.Errorf("%s %s: %w", action, c.cfg.Resource, err)
	}
	env, err := DecodeEnvelope(resp.Status, resp.Body)
	if err != nil {
		metrics.Mutations.WithLabelValues(c.cfg.Resource, action, "error").Inc()
		return env, err
	}
	metrics.Mutations.WithLabelValues(c.cfg.Resource, action, "ok").Inc()
	c.cache.InvalidateResource(c.cfg.Resource)
	c.toast(ToastSuccess, c.messageOr(env.Message, key, fallback))
	return env, nil
}

func (c *Container[T]) mutate(ctx context.Context, action Action, call func(context.Context) (Response, error)) error {
	var env Envelope
	resp, err := call(ctx)
	if err == nil {
		env, err = DecodeEnvelope(resp.Status, resp.Body)
	}
	if err != nil {
		metrics.Mutations.WithLabelValues(c.cfg.Resource, string(action), "error").Inc()
		c.log.Warn("mutation failed", slog.String("action", string(action)), slog.Any("error", err))
		var msg Message
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			msg = apiErr.Message
		}
		c.toast(ToastError, c.messageOr(msg, "errors."+string(action)+"_failed", failureMessages[action]))
		return err
	}

	metrics.Mutations.WithLabelValues(c.cfg.Resource, string(action), "ok").Inc()
	c.mu.Lock()
	c.dialog = nil
	c.mu.Unlock()
	c.cache.InvalidateResource(c.cfg.Resource)
	c.toast(ToastSuccess, c.messageOr(env.Message, successKeys[action], successMessages[action]))
	return nil
}

// messageOr prefers the server message in the container locale, then the
// translation of key, then fallback.
func (c *Container[T]) messageOr(m Message, key, fallback string) string {
	if s := m.In(c.locale); s != "" {
		return s
	}
	return Tr(c.t, key, fallback)
}

func (c *Container[T]) toast(typ ToastType, msg string) {
	c.notify.Notify(Toast{ID: uuid.NewString(), Type: typ, Message: msg})
}

func (c *Container[T]) rowID(row T) string {
	if c.cfg.RowID == nil {
		return ""
	}
	return c.cfg.RowID(row)
}

var (
	dialogTitles = map[Action]string{
		ActionDelete:     "Delete item",
		ActionActivate:   "Activate item",
		ActionDeactivate: "Deactivate item",
	}
	dialogBodies = map[Action]string{
		ActionDelete:     "Are you sure you want to delete this item? This cannot be undone.",
		ActionActivate:   "Are you sure you want to activate this item?",
		ActionDeactivate: "Are you sure you want to deactivate this item?",
	}
	failureMessages = map[Action]string{
		ActionDelete:     "Failed to delete item",
		ActionActivate:   "Failed to activate item",
		ActionDeactivate: "Failed to deactivate item",
	}
	successKeys = map[Action]string{
		ActionDelete:     "messages.deleted",
		ActionActivate:   "messages.activated",
		ActionDeactivate: "messages.deactivated",
	}
	successMessages = map[Action]string{
		ActionDelete:     "Deleted successfully",
		ActionActivate:   "Activated successfully",
		ActionDeactivate: "Deactivated successfully",
	}
)
