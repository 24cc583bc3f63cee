package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gymadmin/internal/i18n"
)

// errorPages maps statuses to their templates; others use the 500 page.
var errorPages = map[int]string{
	http.StatusBadRequest:          "errors/400.html",
	http.StatusNotFound:            "errors/404.html",
	http.StatusInternalServerError: "errors/500.html",
}

// ErrorPage renders the error page for code with the catalog message key in
// the localizer's language. Without an HTML renderer the answer degrades to
// plain "<code> <status text>".
func ErrorPage(c *gin.Context, l i18n.Localizer, code int, key string) {
	defer func() {
		if recover() != nil {
			c.Data(code, "text/plain; charset=utf-8", fmt.Appendf(nil, "%d %s", code, http.StatusText(code)))
		}
	}()

	page, ok := errorPages[code]
	if !ok {
		page = errorPages[http.StatusInternalServerError]
	}
	c.HTML(code, page, gin.H{
		"L":         l,
		"Locale":    l.Locale(),
		"Dir":       i18n.Dir(l.Locale()),
		"Code":      code,
		"Message":   l.T(key),
		"RequestID": GetRequestID(c),
	})
}
