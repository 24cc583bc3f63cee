package dashboard

import (
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gymadmin/internal/admin"
	"github.com/simp-lee/gymadmin/internal/pkg"
)

// Details renders one record. The row is taken from the cached page the
// link came from when possible.
// GET /dashboard/:resource/:id
func (h *Handler) Details(c *gin.Context) {
	r, ok := h.begin(c)
	if !ok {
		return
	}
	defer r.ctr.Close()

	ctx := c.Request.Context()
	id := c.Param("id")
	q := c.Request.URL.Query()
	r.ctr.Restore(admin.ParsePageRequest(q, h.pageSize, h.filterKeys(r)))

	var rec Record
	if err := r.ctr.Load(ctx); err == nil {
		for _, row := range r.ctr.Snapshot().Result.Items {
			if recordID(row) == id {
				rec = r.ctr.View(ctx, row)
				break
			}
		}
	}
	if rec == nil {
		got, err := r.ctr.Get(ctx, id)
		if err != nil {
			h.failLoad(r, err)
			return
		}
		rec = got
	}

	if len(r.screen.Refs) > 0 {
		rec = maps.Clone(rec)
		for field := range r.screen.Refs {
			if v := str(rec, field); v != "" {
				rec[field] = h.refLabel(ctx, r, field, v)
			}
		}
	}

	var (
		title = id
		panes []admin.Pane
	)
	if r.screen.Details != nil {
		d := r.screen.Details(r.schema)
		if t := d.TitleOf(rec); t != "" {
			title = t
		}
		panes = d.Build(rec)
	}

	base := resourceURL(r.screen.Resource)
	self := base + "/" + url.PathEscape(id)
	back := base
	if len(q) > 0 {
		back += "?" + q.Encode()
	}
	toggle := admin.ActionActivate
	if isActive(rec) {
		toggle = admin.ActionDeactivate
	}
	h.render(c, r, http.StatusOK, "dashboard/details.html", gin.H{
		"Title":       r.screen.title(r.l),
		"Resource":    r.screen.Resource,
		"RecordTitle": title,
		"Panes":       panes,
		"Active":      isActive(rec),
		"Activatable": r.screen.Activatable,
		"EditURL":     self + "/edit",
		"DeleteURL":   confirmURL(r.screen.Resource, id, admin.ActionDelete, base),
		"ToggleURL":   confirmURL(r.screen.Resource, id, toggle, ""),
		"ToggleLabel": r.tr("actions."+string(toggle), string(toggle)),
		"BackURL":     back,
	})
}

// Confirm renders the confirmation dialog of a row action. The direction
// of a status change follows the current state of the record, whichever of
// activate or deactivate was asked for.
// GET /dashboard/:resource/:id/confirm?action=delete|activate|deactivate
func (h *Handler) Confirm(c *gin.Context) {
	r, ok := h.begin(c)
	if !ok {
		return
	}
	defer r.ctr.Close()

	action := admin.Action(c.Query("action"))
	switch action {
	case admin.ActionDelete:
	case admin.ActionActivate, admin.ActionDeactivate:
		if !r.screen.Activatable {
			h.fail(c, r.l, http.StatusBadRequest)
			return
		}
	default:
		h.fail(c, r.l, http.StatusBadRequest)
		return
	}
	id := c.Param("id")
	rec, err := r.ctr.Get(c.Request.Context(), id)
	if err != nil {
		h.failLoad(r, err)
		return
	}
	var d admin.ConfirmDialog
	if action == admin.ActionDelete {
		d = r.ctr.RequestDelete(rec)
	} else {
		d = r.ctr.RequestToggleActive(rec)
	}

	self := resourceURL(r.screen.Resource) + "/" + url.PathEscape(id)
	data := gin.H{
		"Dialog":   d,
		"Redirect": safeRedirect(c.Query("redirect")),
	}
	switch d.Action {
	case admin.ActionDelete:
		data["Method"], data["URL"] = "delete", self
	default:
		data["Method"], data["URL"] = "patch", self+"/active"
		data["ActiveValue"] = strconv.FormatBool(d.Action == admin.ActionActivate)
	}
	h.render(c, r, http.StatusOK, "dashboard/confirm.html", data)
}

// Delete removes a record.
// DELETE /dashboard/:resource/:id
func (h *Handler) Delete(c *gin.Context) {
	r, ok := h.begin(c)
	if !ok {
		return
	}
	defer r.ctr.Close()

	h.confirm(r, admin.ActionDelete)
}

// SetActive activates or deactivates a record.
// PATCH /dashboard/:resource/:id/active
func (h *Handler) SetActive(c *gin.Context) {
	r, ok := h.begin(c)
	if !ok {
		return
	}
	defer r.ctr.Close()

	active, err := strconv.ParseBool(formOrQuery(c, "active"))
	if err != nil || !r.screen.Activatable {
		h.fail(c, r.l, http.StatusBadRequest)
		return
	}
	action := admin.ActionDeactivate
	if active {
		action = admin.ActionActivate
	}
	h.confirm(r, action)
}

// confirm runs a confirmed row action through the container dialog. A
// failure keeps the page and leaves the error toast to the container.
func (h *Handler) confirm(r *request, action admin.Action) {
	c := r.c
	if _, err := r.ctr.OpenDialog(action, c.Param("id")); err != nil {
		h.fail(c, r.l, http.StatusBadRequest)
		return
	}
	if err := r.ctr.Confirm(c.Request.Context()); err != nil {
		pkg.Reswap(c, "none")
		c.Status(http.StatusOK)
		return
	}
	h.mutated(r)
}

// mutated finishes a successful row action: other dashboards are told to
// refresh, the page reloads its table and closes the dialog.
func (h *Handler) mutated(r *request) {
	c := r.c
	_ = h.publish(c.Request.Context(), r.screen.Resource)
	pkg.Trigger(c, admin.RefreshEvent, gin.H{"resource": r.screen.Resource})
	pkg.Trigger(c, "closeModal", nil)
	if to := safeRedirect(formOrQuery(c, "redirect")); to != "" {
		pkg.Redirect(c, to)
	}
	pkg.Reswap(c, "none")
	c.Status(http.StatusOK)
}

func confirmURL(resource, id string, action admin.Action, redirect string) string {
	q := url.Values{}
	q.Set("action", string(action))
	if redirect != "" {
		q.Set("redirect", redirect)
	}
	return resourceURL(resource) + "/" + url.PathEscape(id) + "/confirm?" + q.Encode()
}

// safeRedirect accepts only dashboard paths.
func safeRedirect(to string) string {
	if to == basePath || strings.HasPrefix(to, basePath+"/") {
		return to
	}
	return ""
}
