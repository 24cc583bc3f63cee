package pkg

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/gymadmin/internal/domain"
	"github.com/simp-lee/gymadmin/internal/i18n"
)

// ValidationErrorResponse is the 400 envelope listing each invalid field.
type ValidationErrorResponse struct {
	Code    int                  `json:"code"`
	Message domain.LocalizedText `json:"message"`
	Errors  map[string]string    `json:"errors"`
}

// ValidationError answers a failed bind with 400. Fields are keyed by their
// lowercased Go names; BindAndValidate can do better.
func ValidationError(c *gin.Context, err error) {
	respondInvalid(c, err, nil)
}

// BindAndValidate binds the request into obj. On failure it has already
// answered 400, keying field errors by obj's json names:
//
//	if !pkg.BindAndValidate(c, &req) { return }
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		respondInvalid(c, err, obj)
		return false
	}
	return true
}

func respondInvalid(c *gin.Context, err error, obj any) {
	catalog := i18n.Default()

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		// Malformed body.
		msg := catalog.Localized("errors.bad_request")
		msg.English = "bad request"
		c.JSON(http.StatusBadRequest, Response{Code: http.StatusBadRequest, Message: msg})
		return
	}

	msg := catalog.Localized("errors.validation")
	if msg.English == "" {
		msg.English = "validation error"
	}
	t := structType(obj)
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[jsonName(t, fe)] = fieldMessage(fe)
	}
	c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		Code:    http.StatusBadRequest,
		Message: msg,
		Errors:  fields,
	})
}

func structType(obj any) reflect.Type {
	if obj == nil {
		return nil
	}
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

// jsonName returns the json tag name of the failing field, or its
// lowercased Go name.
func jsonName(t reflect.Type, fe validator.FieldError) string {
	if t != nil {
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
				return name
			}
		}
	}
	return strings.ToLower(fe.Field())
}

var fixedFieldMessages = map[string]string{
	"required": "This field is required",
	"email":    "Must be a valid email address",
	"url":      "Must be a valid URL",
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := fixedFieldMessages[fe.Tag()]; ok {
		return msg
	}
	param := fe.Param()
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "oneof":
		return "Must be one of: " + param
	case "min", "gte":
		return "Must be at least " + param + unit
	case "max", "lte":
		return "Must be at most " + param + unit
	}
	if param != "" {
		return "Failed " + fe.Tag() + "=" + param
	}
	return "Failed " + fe.Tag()
}
