package resource

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gymadmin/internal/domain"
)

// Routable is a resource handler that can mount its own routes.
type Routable interface {
	Name() string
	Register(g *gin.RouterGroup, az domain.Authorizer)
}

// Module implements the app.Module interface for a set of REST resources.
type Module struct {
	handlers   []Routable
	authorizer domain.Authorizer
}

// NewModule creates a Module serving handlers.
// Panics if a handler is nil or two handlers share a name.
func NewModule(handlers ...Routable) *Module {
	seen := make(map[string]struct{}, len(handlers))
	for _, h := range handlers {
		if h == nil {
			panic("resource.NewModule: handler must not be nil")
		}
		if _, dup := seen[h.Name()]; dup {
			panic("resource.NewModule: duplicate resource " + h.Name())
		}
		seen[h.Name()] = struct{}{}
	}
	return &Module{handlers: handlers}
}

// Guard makes every route check its caller's permission with az.
func (m *Module) Guard(az domain.Authorizer) *Module {
	m.authorizer = az
	return m
}

// Names lists the served resources in registration order.
func (m *Module) Names() []string {
	names := make([]string, 0, len(m.handlers))
	for _, h := range m.handlers {
		names = append(names, h.Name())
	}
	return names
}

// RegisterRoutes registers every resource under api. Resources have no
// server-rendered pages of their own; the dashboard renders them.
func (m *Module) RegisterRoutes(api *gin.RouterGroup, _ *gin.RouterGroup) {
	for _, h := range m.handlers {
		h.Register(api, m.authorizer)
	}
}
