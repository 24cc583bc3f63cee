package app

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gymadmin/internal/i18n"
	"github.com/simp-lee/gymadmin/internal/middleware"
	"github.com/simp-lee/gymadmin/internal/pkg"
)

// renderError answers a failed request in the form the client asked for:
// an error page for browsers, the JSON envelope with a bilingual message
// otherwise. key names the catalog message.
func renderError(c *gin.Context, catalog *i18n.Catalog, code int, key string) {
	if prefersJSON(c) || !acceptsHTML(c) {
		c.JSON(code, pkg.Response{Code: code, Message: catalog.Localized(key)})
		return
	}
	middleware.ErrorPage(c, catalog.For(pkg.Locale(c)), code, key)
}

// prefersJSON is true when JSON is named and HTML is not, so that
// "application/json, */*" still gets JSON.
func prefersJSON(c *gin.Context) bool {
	accept := strings.ToLower(c.GetHeader("Accept"))
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// acceptsHTML matches text/html, */* and an empty Accept header.
func acceptsHTML(c *gin.Context) bool {
	accept := strings.ToLower(strings.TrimSpace(c.GetHeader("Accept")))
	return accept == "" || strings.Contains(accept, "text/html") || strings.Contains(accept, "*/*")
}
