package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gymadmin/internal/domain"
	"github.com/simp-lee/gymadmin/internal/middleware"
	"github.com/simp-lee/gymadmin/internal/pkg"
)

// Handler serves the /auth API routes.
type Handler struct {
	svc Service
}

// NewHandler creates a Handler. It panics if svc is nil.
func NewHandler(svc Service) *Handler {
	if svc == nil {
		panic("auth.NewHandler: service must not be nil")
	}
	return &Handler{svc: svc}
}

// RegisterRoutes mounts login, register and me under api. The auth module has
// no dashboard pages.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup, _ *gin.RouterGroup) {
	g := api.Group("/auth")
	g.POST("/login", h.login)
	g.POST("/register", h.register)
	g.GET("/me", h.me)
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	session, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, session)
}

func (h *Handler) register(c *gin.Context) {
	var req RegisterRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	var by *domain.Principal
	if p, ok := middleware.GetPrincipal(c); ok {
		by = &p
	}
	user, err := h.svc.Register(c.Request.Context(), req, by)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Message(c, "messages.registered", newAccount(user))
}

func (h *Handler) me(c *gin.Context) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		pkg.Error(c, domain.ErrUnauthorized)
		return
	}
	user, err := h.svc.Account(c.Request.Context(), p.UserID)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, newAccount(user))
}
