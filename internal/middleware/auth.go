package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gymadmin/internal/domain"
	"github.com/simp-lee/gymadmin/internal/pkg"
)

const principalContextKey = "principal"

// TokenVerifier validates a bearer token and returns the caller it was issued to.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Principal, error)
}

// Auth returns a gin middleware that requires a valid "Authorization: Bearer"
// token on every request except those whose path is listed in publicPaths.
// A public path entry ending in "/" matches the whole subtree.
//
// Public paths still accept a token: a valid one stores the principal, an
// invalid one is ignored.
//
// On success the principal is stored in gin.Context and can be read with
// GetPrincipal. Missing or invalid tokens get a 401 JSON envelope.
func Auth(verifier TokenVerifier, publicPaths []string) gin.HandlerFunc {
	exact := make(map[string]struct{}, len(publicPaths))
	var prefixes []string
	for _, p := range publicPaths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, "/") {
			prefixes = append(prefixes, p)
			continue
		}
		exact[p] = struct{}{}
	}

	isPublic := func(path string) bool {
		if _, ok := exact[path]; ok {
			return true
		}
		for _, p := range prefixes {
			if strings.HasPrefix(path, p) {
				return true
			}
		}
		return false
	}

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if isPublic(c.Request.URL.Path) {
			// A valid token still identifies the caller of a public route.
			if ok {
				if principal, err := verifier.Verify(c.Request.Context(), token); err == nil {
					c.Set(principalContextKey, principal)
				}
			}
			c.Next()
			return
		}
		if !ok {
			pkg.Error(c, domain.ErrUnauthorized)
			c.Abort()
			return
		}

		principal, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			pkg.Error(c, domain.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(principalContextKey, principal)
		c.Next()
	}
}

// Authorize returns a gin middleware that lets a request through only when
// az allows its principal to perform action on resource. Requests without a
// principal pass, as do all requests when az is nil; both happen only with
// authentication turned off. Denials get a 403 JSON envelope.
func Authorize(az domain.Authorizer, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if az == nil || !ok {
			c.Next()
			return
		}
		allowed, err := az.Allow(c.Request.Context(), principal, resource, action)
		if err != nil {
			_ = c.Error(fmt.Errorf("authorize %s %s: %w", action, resource, err))
			pkg.Error(c, domain.ErrInternal)
			c.Abort()
			return
		}
		if !allowed {
			pkg.Error(c, domain.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the authenticated caller, if any.
func GetPrincipal(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(principalContextKey)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
