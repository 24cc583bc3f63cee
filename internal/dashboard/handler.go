package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/simp-lee/gymadmin/internal/admin"
	"github.com/simp-lee/gymadmin/internal/apiclient"
	"github.com/simp-lee/gymadmin/internal/i18n"
	"github.com/simp-lee/gymadmin/internal/metrics"
	"github.com/simp-lee/gymadmin/internal/middleware"
	"github.com/simp-lee/gymadmin/internal/pkg"
)

// basePath is where the dashboard is mounted.
const basePath = "/dashboard"

// Backend is the remote data layer the dashboard reads and writes through.
// *apiclient.Client implements it.
type Backend interface {
	admin.DataSource
	Options(resource string, label apiclient.LabelFunc) admin.OptionSource
}

var _ Backend = (*apiclient.Client)(nil)

// Deps holds the collaborators of a Handler. Only Backend is required.
type Deps struct {
	Backend  Backend
	Cache    *admin.QueryCache
	Bus      admin.EventBus
	Catalog  *i18n.Catalog
	Screens  []*Screen
	PageSize int
	Debounce time.Duration
	Logger   *slog.Logger
}

// Handler serves the dashboard pages and htmx fragments.
type Handler struct {
	backend  Backend
	cache    *admin.QueryCache
	bus      admin.EventBus
	catalog  *i18n.Catalog
	screens  map[string]*Screen
	order    []*Screen
	pageSize int
	debounce time.Duration
	log      *slog.Logger
	unsub    func()

	// summaries hold one single-row page per screen for the record totals
	// of the home page. They stay attached to the bus for the life of the
	// handler.
	summaries map[string]*admin.Container[Record]
}

// NewHandler creates a Handler and subscribes it to refresh events, which
// invalidate the cached pages of the named resource.
func NewHandler(d Deps) (*Handler, error) {
	if d.Backend == nil {
		return nil, errors.New("dashboard: backend is required")
	}
	if d.Cache == nil {
		d.Cache = admin.NewQueryCache(0, 0)
	}
	if d.Bus == nil {
		d.Bus = admin.NewLocalBus()
	}
	if d.Catalog == nil {
		d.Catalog = i18n.Default()
	}
	if d.Screens == nil {
		d.Screens = Screens()
	}
	if d.PageSize <= 0 {
		d.PageSize = admin.DefaultPageSize
	}
	if d.Debounce <= 0 {
		d.Debounce = admin.DefaultDebounce
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	h := &Handler{
		backend:  d.Backend,
		cache:    d.Cache,
		bus:      d.Bus,
		catalog:  d.Catalog,
		screens:  make(map[string]*Screen, len(d.Screens)),
		pageSize: d.PageSize,
		debounce: d.Debounce,
		log:      d.Logger.With(slog.String("component", "dashboard")),
	}
	for _, s := range d.Screens {
		if s == nil || s.Resource == "" || s.Columns == nil {
			return nil, errors.New("dashboard: screen needs a resource and columns")
		}
		if _, dup := h.screens[s.Resource]; dup {
			return nil, fmt.Errorf("dashboard: screen %q declared twice", s.Resource)
		}
		h.screens[s.Resource] = s
		h.order = append(h.order, s)
	}
	h.unsub = h.bus.Subscribe(admin.RefreshEvent, h.onRefresh)

	h.summaries = make(map[string]*admin.Container[Record], len(h.order))
	l := h.catalog.For(i18n.English)
	for _, s := range h.order {
		ctr := admin.NewContainer(admin.ResourceConfig[Record]{
			Resource: s.Resource,
			PageSize: 1,
			RowID:    recordID,
			IsActive: isActive,
			Debounce: h.debounce,
		}, h.backend, h.cache, admin.ContainerOptions{
			Translator: l,
			Locale:     l.Locale(),
			Logger:     h.log,
		})
		ctr.Attach(h.bus)
		h.summaries[s.Resource] = ctr
	}
	return h, nil
}

// Close drops the event subscriptions and stops the cache sweeper.
func (h *Handler) Close() {
	if h.unsub != nil {
		h.unsub()
		h.unsub = nil
	}
	for _, ctr := range h.summaries {
		ctr.Close()
	}
	h.cache.Close()
}

func (h *Handler) onRefresh(ev admin.Event) {
	if ev.Resource != "" {
		h.invalidate(ev.Resource)
		return
	}
	for _, s := range h.order {
		h.invalidate(s.Resource)
	}
}

func (h *Handler) invalidate(resource string) {
	metrics.RefreshEvents.WithLabelValues(resource).Inc()
	h.cache.InvalidateResource(resource)
}

// publish announces a change of resource to every dashboard instance.
func (h *Handler) publish(ctx context.Context, resource string) error {
	if err := h.bus.Publish(ctx, admin.NewEvent(admin.RefreshEvent, resource)); err != nil {
		h.log.WarnContext(ctx, "publish refresh event failed",
			slog.String("resource", resource),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

// request is the per-request view of one resource screen.
type request struct {
	c      *gin.Context
	screen *Screen
	locale string
	l      i18n.Localizer
	schema Schema
	ctr    *admin.Container[Record]
}

// begin resolves the :resource parameter. It renders 404 and returns false
// for unknown resources.
func (h *Handler) begin(c *gin.Context) (*request, bool) {
	screen, ok := h.screens[c.Param("resource")]
	if !ok {
		h.fail(c, h.catalog.For(pkg.Locale(c)), http.StatusNotFound)
		return nil, false
	}
	return h.newRequest(c, screen), true
}

func (h *Handler) newRequest(c *gin.Context, screen *Screen) *request {
	l := h.catalog.For(pkg.Locale(c))
	r := &request{c: c, screen: screen, locale: l.Locale(), l: l}
	r.schema = h.schema(screen, l)
	r.ctr = h.container(screen, l, admin.NotifierFunc(func(t admin.Toast) {
		pkg.ShowToast(c, t.Message, string(t.Type))
	}))
	return r
}

func (h *Handler) schema(screen *Screen, l i18n.Localizer) Schema {
	locale := l.Locale()
	return Schema{
		T:      l,
		Locale: locale,
		source: func(field string) admin.OptionSource {
			ref, ok := screen.Refs[field]
			if !ok {
				return nil
			}
			return h.backend.Options(ref.Resource, func(rec map[string]any) string {
				return ref.Label(rec, locale)
			})
		},
	}
}

func (h *Handler) container(screen *Screen, l i18n.Localizer, n admin.Notifier) *admin.Container[Record] {
	return admin.NewContainer(admin.ResourceConfig[Record]{
		Resource:     screen.Resource,
		PageSize:     h.pageSize,
		RowID:        recordID,
		IsActive:     isActive,
		FetchDetails: screen.FetchDetails,
		Debounce:     h.debounce,
	}, h.backend, h.cache, admin.ContainerOptions{
		Translator: l,
		Notifier:   n,
		Locale:     l.Locale(),
		Logger:     h.log,
	})
}

func (s *Screen) title(t admin.Translator) string {
	return admin.Tr(t, s.TitleKey, s.Title)
}

func (r *request) tr(key, fallback string) string {
	return admin.Tr(r.l, key, fallback)
}

// view adds the data every page template expects.
func (h *Handler) view(c *gin.Context, l i18n.Localizer, current string, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	nav := make([]navItem, len(h.order))
	for i, s := range h.order {
		nav[i] = navItem{
			Resource: s.Resource,
			Title:    s.title(l),
			URL:      resourceURL(s.Resource),
			Active:   s.Resource == current,
		}
	}
	data["L"] = l
	data["Locale"] = l.Locale()
	data["Dir"] = i18n.Dir(l.Locale())
	data["CSRFToken"] = middleware.GetCSRFToken(c)
	data["RequestID"] = middleware.GetRequestID(c)
	data["Nav"] = nav
	data["Path"] = c.Request.URL.Path
	return data
}

func (h *Handler) render(c *gin.Context, r *request, status int, name string, data gin.H) {
	c.HTML(status, name, h.view(c, r.l, r.screen.Resource, data))
}

var errorPages = map[int]string{
	http.StatusBadRequest:          "errors/400.html",
	http.StatusNotFound:            "errors/404.html",
	http.StatusInternalServerError: "errors/500.html",
}

// fail reports an error status. htmx requests keep their DOM and get an
// error toast; full page loads get the error page.
func (h *Handler) fail(c *gin.Context, l i18n.Localizer, status int) {
	msg := admin.Tr(l, "errors.load_failed", "Failed to load data")
	switch status {
	case http.StatusNotFound:
		msg = admin.Tr(l, "errors.page_not_found", "Page not found")
	case http.StatusBadRequest:
		msg = admin.Tr(l, "errors.bad_request", "Invalid request")
	}
	if pkg.IsHTMX(c) {
		pkg.Reswap(c, "none")
		pkg.ShowToast(c, msg, string(admin.ToastError))
		c.Status(status)
		return
	}
	page, ok := errorPages[status]
	if !ok {
		page = errorPages[http.StatusInternalServerError]
	}
	c.HTML(status, page, h.view(c, l, "", gin.H{"Code": status, "Message": msg}))
}

// failLoad maps a failed record fetch to 404 or 500.
func (h *Handler) failLoad(r *request, err error) {
	status := http.StatusInternalServerError
	var apiErr *admin.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		status = http.StatusNotFound
	}
	h.log.WarnContext(r.c.Request.Context(), "load record failed",
		slog.String("resource", r.screen.Resource),
		slog.String("id", r.c.Param("id")),
		slog.Any("error", err),
	)
	h.fail(r.c, r.l, status)
}

// errorMessage prefers the server message of an API error.
func (r *request) errorMessage(err error, key, fallback string) string {
	var apiErr *admin.APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.Message.In(r.locale); msg != "" {
			return msg
		}
	}
	return r.tr(key, fallback)
}

// Home renders the overview with the record total of every resource.
// GET /dashboard
func (h *Handler) Home(c *gin.Context) {
	l := h.catalog.For(pkg.Locale(c))
	cards := make([]homeCard, len(h.order))

	var g errgroup.Group
	g.SetLimit(4)
	for i, s := range h.order {
		cards[i] = homeCard{Resource: s.Resource, Title: s.title(l), URL: resourceURL(s.Resource)}
		g.Go(func() error {
			ctr := h.summaries[s.Resource]
			if err := ctr.Load(c.Request.Context()); err != nil {
				cards[i].Failed = true
				return nil
			}
			cards[i].Total = ctr.Snapshot().Result.TotalItems
			return nil
		})
	}
	_ = g.Wait()

	c.HTML(http.StatusOK, "dashboard/home.html", h.view(c, l, "", gin.H{
		"Cards": cards,
	}))
}

// List renders the list page of a resource with its filters and first page.
// GET /dashboard/:resource
func (h *Handler) List(c *gin.Context) {
	r, ok := h.begin(c)
	if !ok {
		return
	}
	defer r.ctr.Close()

	panel, err := h.filterPanel(r)
	if err != nil {
		h.log.Error("build filter panel", slog.String("resource", r.screen.Resource), slog.Any("error", err))
		h.fail(c, r.l, http.StatusInternalServerError)
		return
	}
	q := c.Request.URL.Query()
	req := admin.ParsePageRequest(q, h.pageSize, panel.Keys())
	panel.Load(req.Filters)

	r.ctr.Restore(req)
	_ = r.ctr.Load(c.Request.Context())
	table := h.tableView(r, r.ctr.Snapshot(), parseTableState(q))

	h.render(c, r, http.StatusOK, "dashboard/list.html", gin.H{
		"Title":       r.screen.title(r.l),
		"Resource":    r.screen.Resource,
		"Filters":     h.filterViews(r, panel),
		"ActiveCount": panel.ActiveCount(),
		"Search":      req.Search,
		"RowsURL":     resourceURL(r.screen.Resource) + "/rows",
		"NewURL":      resourceURL(r.screen.Resource) + "/new",
		"DebounceMS":  h.debounce.Milliseconds(),
		"Table":       table,
		"FilterState": filterState{Inputs: table.Hidden},
	})
}

// Rows renders the table fragment for the query in the URL, along with an
// out-of-band copy of the hidden filter form state. refetch=1 bypasses the
// cached page.
// GET /dashboard/:resource/rows
func (h *Handler) Rows(c *gin.Context) {
	r, ok := h.begin(c)
	if !ok {
		return
	}
	defer r.ctr.Close()

	ctx := c.Request.Context()
	q := c.Request.URL.Query()
	r.ctr.Restore(admin.ParsePageRequest(q, h.pageSize, h.filterKeys(r)))
	if q.Get("refetch") == "1" {
		_ = r.ctr.Handle().Refetch(ctx)
	} else {
		_ = r.ctr.Load(ctx)
	}

	table := h.tableView(r, r.ctr.Snapshot(), parseTableState(q))
	h.render(c, r, http.StatusOK, "dashboard/rows.html", gin.H{
		"Table":       table,
		"FilterState": filterState{Inputs: table.Hidden, OOB: true},
	})
}

// Refresh invalidates cached pages and tells every open table to reload.
// An empty resource refreshes everything.
// POST /dashboard/refresh
func (h *Handler) Refresh(c *gin.Context) {
	l := h.catalog.For(pkg.Locale(c))
	resource := formOrQuery(c, "resource")
	if resource != "" {
		if _, ok := h.screens[resource]; !ok {
			h.fail(c, l, http.StatusNotFound)
			return
		}
	}

	h.onRefresh(admin.Event{Name: admin.RefreshEvent, Resource: resource})
	if err := h.publish(c.Request.Context(), resource); err != nil {
		pkg.ShowToast(c, admin.Tr(l, "errors.refresh_failed", "Failed to refresh data"), string(admin.ToastError))
	} else {
		pkg.ShowToast(c, admin.Tr(l, "messages.refreshed", "Data refreshed"), string(admin.ToastSuccess))
	}
	pkg.Trigger(c, admin.RefreshEvent, gin.H{"resource": resource})
	pkg.Reswap(c, "none")
	c.Status(http.StatusOK)
}

// Options renders one page of options of a remote select.
// GET /dashboard/options/:resource?field=&mode=open|more|search&page=&search=
func (h *Handler) Options(c *gin.Context) {
	r, ok := h.begin(c)
	if !ok {
		return
	}
	defer r.ctr.Close()

	field := c.Query("field")
	src := r.schema.Source(field)
	if src == nil {
		h.fail(c, r.l, http.StatusNotFound)
		return
	}

	sel := admin.NewPaginatedSelect(src, admin.DefaultOptionPageSize)
	sel.SetLocale(r.locale)
	search := c.Query("search")
	mode := c.DefaultQuery("mode", "open")
	ctx := c.Request.Context()

	var err error
	switch mode {
	case "more":
		page, _ := strconv.Atoi(c.Query("page"))
		sel.Restore(admin.PaginatedSelectState{Page: max(page, 1), HasMore: true, Search: search})
		err = sel.LoadMore(ctx)
	case "search":
		err = sel.Search(ctx, search)
	default:
		mode = "open"
		if search != "" {
			err = sel.Search(ctx, search)
		} else {
			err = sel.Open(ctx)
		}
	}

	view := optionsView{Field: field, Append: mode == "more"}
	if err != nil {
		h.log.WarnContext(ctx, "load options failed",
			slog.String("resource", r.screen.Resource),
			slog.String("field", field),
			slog.Any("error", err),
		)
		view.Error = r.errorMessage(err, "errors.load_failed", "Failed to load data")
	}
	st := sel.State()
	view.Options = st.Options
	if st.HasMore {
		view.MoreURL = optionsURL(r.screen.Resource, field, "more", st.Page, st.Search)
	}
	h.render(c, r, http.StatusOK, "dashboard/options.html", gin.H{"Select": view})
}

func (h *Handler) filterPanel(r *request) (*admin.FilterPanel, error) {
	var specs []admin.FilterSpec
	if r.screen.Filters != nil {
		specs = r.screen.Filters(r.schema)
	}
	return admin.NewFilterPanel(specs, r.l, nil, nil)
}

func (h *Handler) filterKeys(r *request) []string {
	panel, err := h.filterPanel(r)
	if err != nil {
		return nil
	}
	return panel.Keys()
}

// refLabel resolves the option label of a Ref field value, falling back to
// the raw id.
func (h *Handler) refLabel(ctx context.Context, r *request, field, id string) string {
	ref, ok := r.screen.Refs[field]
	if !ok || id == "" {
		return id
	}
	resp, err := h.backend.Get(ctx, ref.Resource, id, r.locale)
	if err != nil {
		return id
	}
	if _, err := admin.DecodeEnvelope(resp.Status, resp.Body); err != nil {
		return id
	}
	rec, err := admin.NormalizeRecord[Record](resp.Body)
	if err != nil {
		return id
	}
	if label := ref.Label(rec, r.locale); label != "" {
		return label
	}
	return id
}

func formOrQuery(c *gin.Context, key string) string {
	if v, ok := c.GetPostForm(key); ok {
		return v
	}
	return c.Query(key)
}
