package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gymadmin/internal/domain"
	"github.com/simp-lee/gymadmin/internal/middleware"
	"github.com/simp-lee/gymadmin/internal/pkg"
)

type envelope struct {
	Code    int             `json:"code"`
	Message json.RawMessage `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// newAuthAPI mounts the handler behind bearer auth and the role policy the
// way the server does.
func newAuthAPI(t *testing.T) (*gin.Engine, *Tokens) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, tokens := newTestService(t, newTestPolicy(t))

	r := gin.New()
	api := r.Group("/api/v1", middleware.Auth(tokens, []string{"/api/v1/auth/login", "/api/v1/auth/register"}))
	NewHandler(svc).RegisterRoutes(api, nil)
	return r, tokens
}

func do(r *gin.Engine, method, path, body, token string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func decode(t *testing.T, raw json.RawMessage, v any) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func TestHandler_RegisterLoginMe(t *testing.T) {
	r, _ := newAuthAPI(t)

	w, env := do(r, http.MethodPost, "/api/v1/auth/register",
		`{"name":"Salma","email":"salma@gym.example","password":"barbell-123"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("register status = %d; body: %s", w.Code, w.Body.String())
	}
	if string(env.Message) != `"Registered successfully"` {
		t.Errorf("message = %s", env.Message)
	}
	var registered Account
	decode(t, env.Data, &registered)
	if registered.Role != domain.RoleAdmin {
		t.Errorf("role = %q, want admin", registered.Role)
	}
	if strings.Contains(w.Body.String(), "passwordHash") {
		t.Error("response leaks the password hash")
	}

	w, env = do(r, http.MethodPost, "/api/v1/auth/login",
		`{"email":"salma@gym.example","password":"barbell-123"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d; body: %s", w.Code, w.Body.String())
	}
	var session Session
	decode(t, env.Data, &session)
	if session.Token == "" || session.Account.ID != registered.ID {
		t.Fatalf("session = %+v", session)
	}

	w, env = do(r, http.MethodGet, "/api/v1/auth/me", "", session.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d; body: %s", w.Code, w.Body.String())
	}
	var me Account
	decode(t, env.Data, &me)
	if me.Email != "salma@gym.example" {
		t.Errorf("me = %+v", me)
	}
}

func TestHandler_RegisterAfterFirstAccountNeedsAdmin(t *testing.T) {
	r, tokens := newAuthAPI(t)
	_, _ = do(r, http.MethodPost, "/api/v1/auth/register",
		`{"name":"Salma","email":"salma@gym.example","password":"barbell-123"}`, "")
	_, env := do(r, http.MethodPost, "/api/v1/auth/login",
		`{"email":"salma@gym.example","password":"barbell-123"}`, "")
	var owner Session
	decode(t, env.Data, &owner)

	editorToken, _, err := tokens.Issue(owner.Account.ID+1, domain.RoleEditor, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tests := []struct {
		name       string
		email      string
		token      string
		wantStatus int
	}{
		{"anonymous", "omar@gym.example", "", http.StatusUnauthorized},
		{"invalid token counts as anonymous", "omar@gym.example", owner.Token + "x", http.StatusUnauthorized},
		{"editor", "omar@gym.example", editorToken, http.StatusForbidden},
		{"admin", "omar@gym.example", owner.Token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(r, http.MethodPost, "/api/v1/auth/register",
				`{"name":"Omar","email":"`+tt.email+`","password":"barbell-123"}`, tt.token)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var added Account
			decode(t, env.Data, &added)
			if added.Role != domain.RoleEditor {
				t.Errorf("role = %q, want editor", added.Role)
			}
		})
	}
}

func TestHandler_Errors(t *testing.T) {
	r, tokens := newAuthAPI(t)
	_, _ = do(r, http.MethodPost, "/api/v1/auth/register",
		`{"name":"Salma","email":"salma@gym.example","password":"barbell-123"}`, "")
	serviceToken, _, err := tokens.Issue(0, domain.RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		token      string
		wantStatus int
	}{
		{"register missing fields", http.MethodPost, "/api/v1/auth/register", `{"name":"","email":"","password":""}`, "", http.StatusBadRequest},
		{"register duplicate email", http.MethodPost, "/api/v1/auth/register", `{"name":"Salma","email":"salma@gym.example","password":"barbell-123"}`, serviceToken, http.StatusConflict},
		{"login missing fields", http.MethodPost, "/api/v1/auth/login", `{}`, "", http.StatusBadRequest},
		{"login wrong password", http.MethodPost, "/api/v1/auth/login", `{"email":"salma@gym.example","password":"dumbbell-123"}`, "", http.StatusUnauthorized},
		{"me anonymous", http.MethodGet, "/api/v1/auth/me", "", "", http.StatusUnauthorized},
		{"me with forged token", http.MethodGet, "/api/v1/auth/me", "", serviceToken + "x", http.StatusUnauthorized},
		{"me with service token", http.MethodGet, "/api/v1/auth/me", "", serviceToken, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(r, tt.method, tt.path, tt.body, tt.token)
			if w.Code != tt.wantStatus || env.Code != tt.wantStatus {
				t.Fatalf("status = %d, code = %d, want %d; body: %s", w.Code, env.Code, tt.wantStatus, w.Body.String())
			}

			var msg domain.LocalizedText
			if err := json.Unmarshal(env.Message, &msg); err != nil {
				t.Fatalf("errors carry a localized message: %v", err)
			}
			if msg.Arabic == "" {
				t.Errorf("message has no Arabic text: %s", env.Message)
			}
		})
	}
}

func TestHandler_ValidationErrorsUseJSONNames(t *testing.T) {
	r, _ := newAuthAPI(t)

	w, _ := do(r, http.MethodPost, "/api/v1/auth/register", `{"name":"Salma","email":"not-an-email","password":"short"}`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp pkg.ValidationErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, field := range []string{"email", "password"} {
		if _, ok := resp.Errors[field]; !ok {
			t.Errorf("errors %v lack %q", resp.Errors, field)
		}
	}
}

func TestNewHandler_PanicsOnNilService(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewHandler(nil)
}
