package admin

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidResponse reports a body that matches none of the known shapes.
var ErrInvalidResponse = errors.New("Invalid API response structure")

// Message is a server message: either a plain string or an
// {arabic, english} object.
type Message struct {
	Arabic  string `json:"arabic"`
	English string `json:"english"`
}

// UnmarshalJSON accepts both shapes.
func (m *Message) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = Message{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = Message{English: s, Arabic: s}
		return nil
	}
	type plain Message
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*m = Message(p)
	return nil
}

// In returns the message for locale, defaulting to English.
func (m Message) In(locale string) string {
	if locale == "ar" && m.Arabic != "" {
		return m.Arabic
	}
	if m.English != "" {
		return m.English
	}
	return m.Arabic
}

// Envelope is the {code, message, data} wrapper of API responses.
type Envelope struct {
	Code    int             `json:"code"`
	Message Message         `json:"message"`
	Data    json.RawMessage `json:"data"`
	// Errors holds per-field validation messages of a rejected write.
	Errors map[string]string `json:"errors,omitempty"`
}

// OK reports whether the server signalled success.
func (e Envelope) OK() bool { return e.Code == http.StatusOK }

// APIError is a failure reported by the server inside an envelope.
type APIError struct {
	Status  int
	Code    int
	Message Message
	// Fields maps field names to validation messages, when the server sent any.
	Fields map[string]string
}

func (e *APIError) Error() string {
	if msg := e.Message.In("en"); msg != "" {
		return fmt.Sprintf("api error %d: %s", e.Code, msg)
	}
	return fmt.Sprintf("api error %d", e.Code)
}

// DecodeEnvelope parses body and turns a non-200 code into an *APIError.
func DecodeEnvelope(status int, body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if status != http.StatusOK {
			return env, &APIError{Status: status, Code: status}
		}
		return env, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if env.Code == 0 {
		env.Code = status
	}
	if !env.OK() {
		return env, &APIError{Status: status, Code: env.Code, Message: env.Message, Fields: env.Errors}
	}
	return env, nil
}

// NormalizePage turns a list response into a PageResult. It accepts the
// page at the top level or under data, data.data or response.data. A page
// is an object holding an item array under "data" or "items" and a total
// under "totalItems" or "total", or a bare array.
func NormalizePage[T any](body []byte) (PageResult[T], error) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return PageResult[T]{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	candidates := []any{
		root,
		dig(root, "data"),
		dig(root, "data", "data"),
		dig(root, "response", "data"),
	}
	for _, c := range candidates {
		items, total, ok := pageShape(c)
		if !ok {
			continue
		}
		return decodePage[T](items, total)
	}
	return PageResult[T]{}, ErrInvalidResponse
}

// NormalizeRecord extracts one record from a get-by-id response, unwrapping
// data and response.data.
func NormalizeRecord[T any](body []byte) (T, error) {
	var zero T
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	for _, c := range []any{dig(root, "data"), dig(root, "response", "data"), root} {
		obj, ok := c.(map[string]any)
		if !ok || isEnvelope(obj) {
			continue
		}
		raw, err := json.Marshal(obj)
		if err != nil {
			return zero, err
		}
		var out T
		if err := json.Unmarshal(raw, &out); err != nil {
			return zero, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		return out, nil
	}
	return zero, ErrInvalidResponse
}

// isEnvelope reports whether obj looks like a wrapper rather than a record.
func isEnvelope(obj map[string]any) bool {
	_, hasCode := obj["code"]
	_, hasData := obj["data"]
	_, hasResponse := obj["response"]
	return (hasCode && hasData) || hasResponse
}

func dig(v any, path ...string) any {
	for _, p := range path {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = obj[p]
	}
	return v
}

func pageShape(v any) ([]any, int, bool) {
	switch x := v.(type) {
	case []any:
		return x, len(x), true
	case map[string]any:
		items, ok := x["data"].([]any)
		if !ok {
			items, ok = x["items"].([]any)
		}
		if !ok {
			return nil, 0, false
		}
		total := len(items)
		for _, k := range []string{"totalItems", "total"} {
			if n, ok := x[k].(float64); ok && n >= 0 {
				total = int(n)
				break
			}
		}
		return items, total, true
	}
	return nil, 0, false
}

func decodePage[T any](items []any, total int) (PageResult[T], error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return PageResult[T]{}, err
	}
	out := PageResult[T]{TotalItems: total}
	if err := json.Unmarshal(raw, &out.Items); err != nil {
		return PageResult[T]{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if out.Items == nil {
		out.Items = []T{}
	}
	return out, nil
}
