package domain

import (
	"errors"
	"net/http"
)

// Error codes carried by AppError.
const (
	CodeNotFound      = 1
	CodeAlreadyExists = 2
	CodeValidation    = 3
	CodeInternal      = 4
	CodeUnauthorized  = 5
	CodeForbidden     = 6
)

// kind describes how one error code surfaces to clients.
type kind struct {
	status int
	key    string // catalog key of the localized message
}

var kinds = map[int]kind{
	CodeNotFound:      {http.StatusNotFound, "errors.not_found"},
	CodeAlreadyExists: {http.StatusConflict, "errors.already_exists"},
	CodeValidation:    {http.StatusBadRequest, "errors.validation"},
	CodeInternal:      {http.StatusInternalServerError, "errors.internal"},
	CodeUnauthorized:  {http.StatusUnauthorized, "errors.unauthorized"},
	CodeForbidden:     {http.StatusForbidden, "errors.forbidden"},
}

// AppError is a failure the API reports with a specific status. Message is
// the English text sent to clients; Err stays server side.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Sentinels for the common cases. Match categories with the Is* helpers,
// which compare codes, rather than errors.Is, which compares pointers.
var (
	ErrNotFound      = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists = &AppError{Code: CodeAlreadyExists, Message: "already exists"}
	ErrValidation    = &AppError{Code: CodeValidation, Message: "validation error"}
	ErrInternal      = &AppError{Code: CodeInternal, Message: "internal error"}
	ErrUnauthorized  = &AppError{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden     = &AppError{Code: CodeForbidden, Message: "forbidden"}
)

// NewAppError creates an AppError wrapping err, which may be nil.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func IsNotFound(err error) bool      { return hasCode(err, CodeNotFound) }
func IsAlreadyExists(err error) bool { return hasCode(err, CodeAlreadyExists) }
func IsValidation(err error) bool    { return hasCode(err, CodeValidation) }
func IsInternal(err error) bool      { return hasCode(err, CodeInternal) }
func IsUnauthorized(err error) bool  { return hasCode(err, CodeUnauthorized) }
func IsForbidden(err error) bool     { return hasCode(err, CodeForbidden) }

// HTTPStatusCode maps err to a response status. Anything that is not an
// AppError with a known code is a 500.
func HTTPStatusCode(err error) int {
	return kindOf(err).status
}

// MessageKey returns the catalog key describing err's category, such as
// "errors.not_found".
func MessageKey(err error) string {
	return kindOf(err).key
}

func kindOf(err error) kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if k, ok := kinds[appErr.Code]; ok {
			return k
		}
	}
	return kinds[CodeInternal]
}

func hasCode(err error, code int) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
