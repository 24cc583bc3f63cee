package pkg

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/pagination"

	"github.com/simp-lee/gymadmin/internal/domain"
	"github.com/simp-lee/gymadmin/internal/i18n"
)

// LocaleKey is the gin context key holding the negotiated locale.
const LocaleKey = "locale"

// Response is the standard JSON envelope for API responses.
// Message is a plain string on success and a domain.LocalizedText on failure.
type Response struct {
	Code    int `json:"code"`
	Message any `json:"message"`
	Data    any `json:"data"`
}

// Locale returns the locale negotiated for the request, defaulting to English.
func Locale(c *gin.Context) string {
	if v, ok := c.Get(LocaleKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return i18n.English
}

// Success sends a 200 JSON response with the given data.
func Success(c *gin.Context, data any) {
	Message(c, "messages.success", data)
}

// Message sends a 200 JSON response whose message is the translation of key
// in the request locale.
func Message(c *gin.Context, key string, data any) {
	msg := i18n.Default().T(Locale(c), key)
	if msg == "" {
		msg = "success"
	}
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: msg,
		Data:    data,
	})
}

// Error answers err with the status its domain code maps to, 500 for
// anything else. The message carries both languages; an AppError's own
// message replaces the English catalog text since it names the problem.
func Error(c *gin.Context, err error) {
	status := domain.HTTPStatusCode(err)
	msg := i18n.Default().Localized(domain.MessageKey(err))
	var appErr *domain.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		msg.English = appErr.Message
	}
	if msg.English == "" {
		msg.English = "internal error"
	}
	c.JSON(status, Response{Code: status, Message: msg})
}

// List sends one page of a collection.
func List[T any](c *gin.Context, page *pagination.Pagination[T]) {
	Success(c, NewPageResult(page))
}
