package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gymadmin/internal/domain"
)

type stubVerifier struct {
	tokens map[string]domain.Principal
}

func (s stubVerifier) Verify(_ context.Context, token string) (domain.Principal, error) {
	p, ok := s.tokens[token]
	if !ok {
		return domain.Principal{}, errors.New("invalid token")
	}
	return p, nil
}

func setupAuthRouter() *gin.Engine {
	r := gin.New()
	verifier := stubVerifier{tokens: map[string]domain.Principal{
		"good": {UserID: 7, Role: domain.RoleAdmin},
	}}
	r.Use(Auth(verifier, []string{"/api/v1/auth/login", "/api/v1/public/"}))
	handler := func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, p.Role)
	}
	r.GET("/api/v1/members", handler)
	r.POST("/api/v1/auth/login", handler)
	r.GET("/api/v1/public/terms", handler)
	return r
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		authHeader string
		wantStatus int
		wantBody   string
	}{
		{name: "missing token", method: http.MethodGet, path: "/api/v1/members", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", method: http.MethodGet, path: "/api/v1/members", authHeader: "Basic good", wantStatus: http.StatusUnauthorized},
		{name: "empty bearer", method: http.MethodGet, path: "/api/v1/members", authHeader: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", method: http.MethodGet, path: "/api/v1/members", authHeader: "Bearer bad", wantStatus: http.StatusUnauthorized},
		{name: "valid token", method: http.MethodGet, path: "/api/v1/members", authHeader: "Bearer good", wantStatus: http.StatusOK, wantBody: domain.RoleAdmin},
		{name: "scheme is case insensitive", method: http.MethodGet, path: "/api/v1/members", authHeader: "bearer good", wantStatus: http.StatusOK, wantBody: domain.RoleAdmin},
		{name: "exact public path", method: http.MethodPost, path: "/api/v1/auth/login", wantStatus: http.StatusOK, wantBody: "anonymous"},
		{name: "public subtree", method: http.MethodGet, path: "/api/v1/public/terms", wantStatus: http.StatusOK, wantBody: "anonymous"},
		{name: "public path with valid token", method: http.MethodPost, path: "/api/v1/auth/login", authHeader: "Bearer good", wantStatus: http.StatusOK, wantBody: domain.RoleAdmin},
		{name: "public path ignores invalid token", method: http.MethodPost, path: "/api/v1/auth/login", authHeader: "Bearer bad", wantStatus: http.StatusOK, wantBody: "anonymous"},
	}

	r := setupAuthRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

type stubAuthorizer struct {
	allowed map[string]bool // role + " " + action
	err     error
	calls   int
}

func (s *stubAuthorizer) Allow(_ context.Context, who domain.Principal, resource, action string) (bool, error) {
	s.calls++
	if resource != "members" {
		return false, nil
	}
	return s.allowed[who.Role+" "+action], s.err
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name       string
		az         *stubAuthorizer
		principal  *domain.Principal
		wantStatus int
		wantCalls  int
	}{
		{
			name:       "allowed",
			az:         &stubAuthorizer{allowed: map[string]bool{"admin delete": true}},
			principal:  &domain.Principal{UserID: 1, Role: domain.RoleAdmin},
			wantStatus: http.StatusNoContent,
			wantCalls:  1,
		},
		{
			name:       "denied",
			az:         &stubAuthorizer{allowed: map[string]bool{"admin delete": true}},
			principal:  &domain.Principal{UserID: 2, Role: domain.RoleEditor},
			wantStatus: http.StatusForbidden,
			wantCalls:  1,
		},
		{
			name:       "authorizer failure",
			az:         &stubAuthorizer{err: errors.New("store offline")},
			principal:  &domain.Principal{UserID: 1, Role: domain.RoleAdmin},
			wantStatus: http.StatusInternalServerError,
			wantCalls:  1,
		},
		{
			name:       "no principal",
			az:         &stubAuthorizer{},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "no authorizer",
			principal:  &domain.Principal{UserID: 2, Role: domain.RoleEditor},
			wantStatus: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(func(c *gin.Context) {
				if tt.principal != nil {
					c.Set(principalContextKey, *tt.principal)
				}
			})
			var az domain.Authorizer
			if tt.az != nil {
				az = tt.az
			}
			r.DELETE("/api/v1/members/:id", Authorize(az, "members", domain.ActionDelete), func(c *gin.Context) {
				c.Status(http.StatusNoContent)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/members/3", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.az != nil && tt.az.calls != tt.wantCalls {
				t.Errorf("Allow calls = %d, want %d", tt.az.calls, tt.wantCalls)
			}
		})
	}
}
