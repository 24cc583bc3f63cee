package dashboard

import "github.com/gin-gonic/gin"

// Module mounts the dashboard under /dashboard on the page group.
type Module struct {
	h *Handler
}

// NewModule creates the dashboard route module.
func NewModule(h *Handler) *Module {
	return &Module{h: h}
}

// RegisterRoutes registers the dashboard pages. The dashboard has no API
// routes of its own; it reads the REST API through its Backend.
func (m *Module) RegisterRoutes(_ *gin.RouterGroup, pages *gin.RouterGroup) {
	h := m.h
	g := pages.Group(basePath)

	g.GET("", h.Home)
	g.POST("/refresh", h.Refresh)
	g.GET("/options/:resource", h.Options)

	g.GET("/:resource", h.List)
	g.POST("/:resource", h.Save)
	g.GET("/:resource/rows", h.Rows)
	g.GET("/:resource/new", h.New)
	g.POST("/:resource/validate", h.Validate)
	g.GET("/:resource/:id", h.Details)
	g.PUT("/:resource/:id", h.Save)
	g.DELETE("/:resource/:id", h.Delete)
	g.GET("/:resource/:id/edit", h.Edit)
	g.GET("/:resource/:id/confirm", h.Confirm)
	g.PATCH("/:resource/:id/active", h.SetActive)
}

// Close releases the handler's event subscription.
func (m *Module) Close() {
	m.h.Close()
}
