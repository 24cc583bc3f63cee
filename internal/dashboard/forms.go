package dashboard

import (
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gymadmin/internal/admin"
	"github.com/simp-lee/gymadmin/internal/pkg"
)

// labelSuffix names the hidden input carrying the label of a remote select.
const labelSuffix = "__label"

type filterView struct {
	admin.FilterSpec
	Value         string
	Choices       []admin.Option
	SelectedLabel string
	OptionsURL    string
}

func (h *Handler) filterViews(r *request, panel *admin.FilterPanel) []filterView {
	ctx := r.c.Request.Context()
	var out []filterView
	for _, spec := range panel.Specs() {
		fv := filterView{FilterSpec: spec, Value: panel.Value(spec.Key)}
		switch spec.Type {
		case admin.FilterSelect:
			fv.Choices = panel.SelectOptions(spec)
		case admin.FilterSelectPagination:
			fv.OptionsURL = optionsURL(r.screen.Resource, spec.Key, "open", 0, "")
			if fv.Value != "" {
				fv.SelectedLabel = h.refLabel(ctx, r, spec.Key, fv.Value)
			}
		}
		out = append(out, fv)
	}
	return out
}

type fieldView struct {
	admin.FieldSpec
	Block         string
	Value         string
	Error         string
	Checked       bool
	SelectedLabel string
	OptionsURL    string
	ValidateURL   string
}

type formView struct {
	Title     string
	Rows      [][]fieldView
	Errors    []string
	Action    string
	Method    string
	IsEdit    bool
	CancelURL string
}

func (h *Handler) newForm(r *request, initial map[string]string) (*admin.Form, error) {
	if r.screen.Form == nil {
		return nil, errors.New("resource has no form")
	}
	var validate admin.FormValidator
	if r.screen.Validate != nil {
		validate = r.screen.Validate(r.schema)
	}
	return admin.NewForm(r.screen.Form(r.schema), initial, r.l, validate)
}

// initialValues turns a record into form values: dates lose their time,
// switches become "true" or "false".
func initialValues(rows [][]admin.FieldSpec, rec Record) map[string]string {
	out := make(map[string]string)
	for _, row := range rows {
		for _, f := range row {
			v, ok := rec[f.Name]
			switch {
			case f.Type == admin.FieldSwitch && !ok:
				out[f.Name] = "true"
			case f.Type == admin.FieldSwitch:
				b, _ := v.(bool)
				out[f.Name] = strconv.FormatBool(b)
			case f.Type == admin.FieldDate:
				out[f.Name] = dateOnly(v)
			default:
				out[f.Name] = formatValue(v)
			}
		}
	}
	return out
}

// readForm copies the posted values into form. An unchecked switch is not
// posted and reads as false.
func readForm(c *gin.Context, form *admin.Form) {
	for _, f := range form.Fields() {
		v := c.PostForm(f.Name)
		if f.Type == admin.FieldSwitch {
			v = strconv.FormatBool(checked(v))
		}
		form.Change(f.Name, v)
	}
}

func checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}

func (h *Handler) formView(r *request, form *admin.Form, id string, labels map[string]string) formView {
	res := r.screen.Resource
	v := formView{
		Title:     admin.Format(r.tr("forms.create_title", "New {resource}"), map[string]string{"resource": r.screen.title(r.l)}),
		Action:    resourceURL(res),
		Method:    "post",
		CancelURL: resourceURL(res),
	}
	if id != "" {
		v.Title = admin.Format(r.tr("forms.edit_title", "Edit {resource}"), map[string]string{"resource": r.screen.title(r.l)})
		v.Action = resourceURL(res) + "/" + url.PathEscape(id)
		v.Method = "put"
		v.IsEdit = true
	}
	validate := resourceURL(res) + "/validate?field="
	for _, row := range form.Rows {
		var fields []fieldView
		for _, f := range row {
			fv := fieldView{
				FieldSpec:   f,
				Block:       string(f.Renderer()),
				Value:       form.Value(f.Name),
				Error:       form.VisibleError(f.Name),
				ValidateURL: validate + url.QueryEscape(f.Name),
			}
			switch f.Type {
			case admin.FieldSwitch:
				fv.Checked = checked(fv.Value)
			case admin.FieldSelectPagination:
				fv.OptionsURL = optionsURL(res, f.Name, "open", 0, "")
				fv.SelectedLabel = labels[f.Name]
			}
			fields = append(fields, fv)
		}
		v.Rows = append(v.Rows, fields)
	}
	for _, e := range form.Errors() {
		if e.Field == "" {
			v.Errors = append(v.Errors, e.Message)
		}
	}
	return v
}

// renderForm renders the whole page, or only the form for htmx submissions.
func (h *Handler) renderForm(r *request, form *admin.Form, id string, labels map[string]string) {
	name := "dashboard/form.html"
	if pkg.IsHTMX(r.c) && r.c.Request.Method != http.MethodGet {
		name = "dashboard/form_fragment.html"
	}
	h.render(r.c, r, http.StatusOK, name, gin.H{
		"Title":    r.screen.title(r.l),
		"Resource": r.screen.Resource,
		"Form":     h.formView(r, form, id, labels),
	})
}

// refLabels resolves the labels of the Ref fields set in values.
func (h *Handler) refLabels(r *request, values map[string]string) map[string]string {
	out := make(map[string]string, len(r.screen.Refs))
	for field := range r.screen.Refs {
		if id := values[field]; id != "" {
			out[field] = h.refLabel(r.c.Request.Context(), r, field, id)
		}
	}
	return out
}

// postedLabels keeps the labels the browser already showed, resolving the
// ones it did not send.
func (h *Handler) postedLabels(r *request, form *admin.Form) map[string]string {
	out := make(map[string]string, len(r.screen.Refs))
	for field := range r.screen.Refs {
		id := form.Value(field)
		if id == "" {
			continue
		}
		if label := r.c.PostForm(field + labelSuffix); label != "" {
			out[field] = label
			continue
		}
		out[field] = h.refLabel(r.c.Request.Context(), r, field, id)
	}
	return out
}

// New renders the create form.
// GET /dashboard/:resource/new
func (h *Handler) New(c *gin.Context) {
	r, ok := h.begin(c)
	if !ok {
		return
	}
	defer r.ctr.Close()

	var rows [][]admin.FieldSpec
	if r.screen.Form != nil {
		rows = r.screen.Form(r.schema)
	}
	form, err := h.newForm(r, initialValues(rows, nil))
	if err != nil {
		h.log.Error("build form", slog.String("resource", r.screen.Resource), slog.Any("error", err))
		h.fail(c, r.l, http.StatusInternalServerError)
		return
	}
	h.renderForm(r, form, "", nil)
}

// Edit renders the edit form filled with the current record.
// GET /dashboard/:resource/:id/edit
func (h *Handler) Edit(c *gin.Context) {
	r, ok := h.begin(c)
	if !ok {
		return
	}
	defer r.ctr.Close()

	id := c.Param("id")
	rec, err := r.ctr.Get(c.Request.Context(), id)
	if err != nil {
		h.failLoad(r, err)
		return
	}
	if r.screen.Form == nil {
		h.fail(c, r.l, http.StatusNotFound)
		return
	}
	values := initialValues(r.screen.Form(r.schema), rec)
	form, err := h.newForm(r, values)
	if err != nil {
		h.log.Error("build form", slog.String("resource", r.screen.Resource), slog.Any("error", err))
		h.fail(c, r.l, http.StatusInternalServerError)
		return
	}
	h.renderForm(r, form, id, h.refLabels(r, values))
}

// Save validates a submitted form and creates or updates the record. On
// success the browser is sent back to the list; otherwise the form is
// rendered again with its errors.
// POST /dashboard/:resource
// PUT /dashboard/:resource/:id
func (h *Handler) Save(c *gin.Context) {
	r, ok := h.begin(c)
	if !ok {
		return
	}
	defer r.ctr.Close()

	id := c.Param("id")
	form, err := h.newForm(r, nil)
	if err != nil {
		h.log.Error("build form", slog.String("resource", r.screen.Resource), slog.Any("error", err))
		h.fail(c, r.l, http.StatusInternalServerError)
		return
	}
	readForm(c, form)

	ctx := c.Request.Context()
	ran, err := form.Submit(func(map[string]string) error {
		_, err := r.ctr.Save(ctx, id, form.Payload())
		return err
	})
	if ran && err == nil {
		_ = h.publish(ctx, r.screen.Resource)
		pkg.Redirect(c, resourceURL(r.screen.Resource))
		c.Status(http.StatusOK)
		return
	}
	if err != nil {
		h.log.WarnContext(ctx, "save record failed",
			slog.String("resource", r.screen.Resource),
			slog.String("id", id),
			slog.Any("error", err),
		)
		addSaveErrors(r, form, err)
	}
	h.renderForm(r, form, id, h.postedLabels(r, form))
}

// addSaveErrors shows a failed save on the form: field errors reported by
// the API next to their fields, the message at the top.
func addSaveErrors(r *request, form *admin.Form, err error) {
	var apiErr *admin.APIError
	if errors.As(err, &apiErr) {
		for _, field := range slices.Sorted(maps.Keys(apiErr.Fields)) {
			form.AddErrors(admin.FormError{Field: field, Message: apiErr.Fields[field]})
		}
	}
	form.AddErrors(admin.FormError{Message: r.errorMessage(err, "errors.save_failed", "Failed to save")})
}

// Validate checks one field after it loses focus and renders its error.
// POST /dashboard/:resource/validate?field=
func (h *Handler) Validate(c *gin.Context) {
	r, ok := h.begin(c)
	if !ok {
		return
	}
	defer r.ctr.Close()

	form, err := h.newForm(r, nil)
	if err != nil {
		h.fail(c, r.l, http.StatusInternalServerError)
		return
	}
	field := c.Query("field")
	readForm(c, form)
	form.Blur(field)
	h.render(c, r, http.StatusOK, "dashboard/field_error.html", gin.H{
		"Field": field,
		"Error": form.VisibleError(field),
	})
}
