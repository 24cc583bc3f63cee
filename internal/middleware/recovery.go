package middleware

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gymadmin/internal/i18n"
	"github.com/simp-lee/gymadmin/internal/pkg"
)

// Recovery turns a panic into a 500 and logs it with the stack.
//
// htmx requests get an empty body with an error toast so the page stays in
// place, browsers get errors/500.html, and API clients get the envelope
//
//	{"code": 500, "message": {"arabic": "...", "english": "..."}, "data": null}
//
// A panic caused by the client hanging up is logged without a stack and
// nothing is written.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			attrs := []any{
				slog.Any("panic", rec),
				slog.String("method", c.Request.Method),
				slog.String("path", c.Request.URL.Path),
			}
			if clientGone(rec) {
				logger.WarnContext(c.Request.Context(), "client connection lost", attrs...)
				c.Abort()
				return
			}
			logger.ErrorContext(c.Request.Context(), "panic recovered",
				append(attrs, slog.String("stack", string(debug.Stack())))...)
			c.Abort()
			respondInternalError(c)
		}()
		c.Next()
	}
}

func respondInternalError(c *gin.Context) {
	const status = http.StatusInternalServerError
	catalog := i18n.Default()
	locale := pkg.Locale(c)

	switch {
	case pkg.IsHTMX(c):
		pkg.Reswap(c, "none")
		pkg.ShowToast(c, catalog.T(locale, "errors.internal"), "error")
		c.Status(status)
	case acceptsHTML(c):
		ErrorPage(c, catalog.For(locale), status, "errors.internal")
	default:
		c.JSON(status, pkg.Response{Code: status, Message: catalog.Localized("errors.internal")})
	}
}

// clientGone reports panics from writing to a connection the client closed.
func clientGone(rec any) bool {
	err, ok := rec.(error)
	if !ok {
		return false
	}
	if errors.Is(err, http.ErrAbortHandler) || errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		var sysErr *os.SyscallError
		if errors.As(opErr, &sysErr) {
			msg := strings.ToLower(sysErr.Error())
			return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
		}
	}
	return false
}

func acceptsHTML(c *gin.Context) bool {
	return strings.Contains(strings.ToLower(c.GetHeader("Accept")), "text/html")
}
