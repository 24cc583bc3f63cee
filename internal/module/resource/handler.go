package resource

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gymadmin/internal/domain"
	"github.com/simp-lee/gymadmin/internal/middleware"
	"github.com/simp-lee/gymadmin/internal/pkg"
)

// Definition describes one REST resource.
type Definition[T any] struct {
	// Name is the URL segment, e.g. "members".
	Name  string
	Query Query
	// NewPayload returns a pointer to an empty request body.
	NewPayload func() Payload[T]
	// Activatable resources expose PATCH /:id/active.
	Activatable bool
}

// SetActiveRequest is the body of PATCH /:id/active.
type SetActiveRequest struct {
	Active *bool `json:"active" form:"active" binding:"required"`
}

// Handler serves the REST API of one resource.
type Handler[T any] struct {
	def Definition[T]
	svc *Service[T]
}

// NewHandler creates a Handler for def backed by svc.
func NewHandler[T any](def Definition[T], svc *Service[T]) *Handler[T] {
	if def.Name == "" || def.NewPayload == nil {
		panic("resource.NewHandler: definition needs a name and a payload constructor")
	}
	return &Handler[T]{def: def, svc: svc}
}

// Name returns the resource URL segment.
func (h *Handler[T]) Name() string {
	return h.def.Name
}

// Service returns the service behind the handler.
func (h *Handler[T]) Service() *Service[T] {
	return h.svc
}

// Register mounts the resource routes on g, each behind a permission check
// by az for the action it performs. A nil az checks nothing.
func (h *Handler[T]) Register(g *gin.RouterGroup, az domain.Authorizer) {
	may := func(action string) gin.HandlerFunc {
		return middleware.Authorize(az, h.def.Name, action)
	}
	r := g.Group("/" + h.def.Name)
	r.GET("", may(domain.ActionRead), h.List)
	r.POST("", may(domain.ActionCreate), h.Create)
	r.GET("/:id", may(domain.ActionRead), h.Get)
	r.PUT("/:id", may(domain.ActionUpdate), h.Update)
	r.DELETE("/:id", may(domain.ActionDelete), h.Delete)
	if h.def.Activatable {
		r.PATCH("/:id/active", may(domain.ActionActivate), h.SetActive)
	}
}

// Create handles POST /<resource>.
func (h *Handler[T]) Create(c *gin.Context) {
	p := h.def.NewPayload()
	if !pkg.BindAndValidate(c, p) {
		return
	}

	entity, err := h.svc.Create(c.Request.Context(), p)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Message(c, "messages.created", entity)
}

// Get handles GET /<resource>/:id.
func (h *Handler[T]) Get(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	entity, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, entity)
}

// List handles GET /<resource>.
func (h *Handler[T]) List(c *gin.Context) {
	req := pkg.ParsePageRequest(c)

	result, err := h.svc.List(c.Request.Context(), req)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.List(c, result)
}

// Update handles PUT /<resource>/:id.
func (h *Handler[T]) Update(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	p := h.def.NewPayload()
	if !pkg.BindAndValidate(c, p) {
		return
	}

	entity, err := h.svc.Update(c.Request.Context(), id, p)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Message(c, "messages.updated", entity)
}

// SetActive handles PATCH /<resource>/:id/active.
func (h *Handler[T]) SetActive(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	var req SetActiveRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	if err := h.svc.SetActive(c.Request.Context(), id, *req.Active); err != nil {
		pkg.Error(c, err)
		return
	}

	key := "messages.deactivated"
	if *req.Active {
		key = "messages.activated"
	}
	pkg.Message(c, key, nil)
}

// Delete handles DELETE /<resource>/:id.
func (h *Handler[T]) Delete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Message(c, "messages.deleted", nil)
}

// parseID extracts and validates the :id path parameter.
func parseID(c *gin.Context) (uint, error) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
