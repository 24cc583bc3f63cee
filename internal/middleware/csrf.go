package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gymadmin/internal/i18n"
	"github.com/simp-lee/gymadmin/internal/pkg"
)

const (
	csrfCookieName = "_csrf_token"
	csrfFormField  = "_csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfContextKey = "CSRFToken"
	csrfNonceBytes = 32
)

// CSRF guards the dashboard's form and htmx submissions with a signed
// double-submit token of the form hex(nonce) "." base64url(HMAC-SHA256).
//
// Safe requests get a token cookie (readable by scripts, SameSite=Strict)
// unless they already carry a valid one; the token is also exposed to
// templates through GetCSRFToken. Mutating requests must echo the cookie in
// the X-CSRF-Token header or the _csrf_token form field. The REST API uses
// bearer tokens and is not mounted behind this middleware.
func CSRF(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, pkg.Response{
				Code:    http.StatusInternalServerError,
				Message: "csrf secret is required",
			})
		}
	}

	g := csrfGuard{secret: secret, secure: gin.Mode() == gin.ReleaseMode}
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			g.issue(c)
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			g.verify(c)
		default:
			c.Next()
		}
	}
}

type csrfGuard struct {
	secret string
	secure bool
}

func (g csrfGuard) issue(c *gin.Context) {
	token, _ := c.Cookie(csrfCookieName)
	if !validToken(token, g.secret) {
		var err error
		if token, err = generateToken(g.secret); err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, pkg.Response{
				Code:    http.StatusInternalServerError,
				Message: i18n.Default().Localized("errors.internal"),
			})
			return
		}
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     csrfCookieName,
			Value:    token,
			Path:     "/",
			Secure:   g.secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
	c.Set(csrfContextKey, token)
	c.Next()
}

func (g csrfGuard) verify(c *gin.Context) {
	cookie, _ := c.Cookie(csrfCookieName)
	submitted := c.GetHeader(csrfHeaderName)
	if submitted == "" {
		submitted = c.PostForm(csrfFormField)
	}

	switch {
	case cookie == "" || submitted == "":
		rejectCSRF(c, "CSRF token missing")
	case !validToken(cookie, g.secret) || subtle.ConstantTimeCompare([]byte(cookie), []byte(submitted)) != 1:
		rejectCSRF(c, "CSRF token invalid")
	default:
		c.Set(csrfContextKey, cookie)
		c.Next()
	}
}

// rejectCSRF aborts with 403. reason stands in when the catalog lacks an
// English text.
func rejectCSRF(c *gin.Context, reason string) {
	msg := i18n.Default().Localized("errors.csrf")
	if msg.English == "" {
		msg.English = reason
	}
	if pkg.IsHTMX(c) {
		pkg.Reswap(c, "none")
		pkg.ShowToast(c, msg.In(pkg.Locale(c)), "error")
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
	c.AbortWithStatusJSON(http.StatusForbidden, pkg.Response{
		Code:    http.StatusForbidden,
		Message: msg,
	})
}

// GetCSRFToken returns the token for the current page, or "".
func GetCSRFToken(c *gin.Context) string {
	return c.GetString(csrfContextKey)
}

func generateToken(secret string) (string, error) {
	nonce := make([]byte, csrfNonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	n := hex.EncodeToString(nonce)
	return n + "." + sign(n, secret), nil
}

func sign(nonce, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// validToken reports whether token carries a signature made with secret.
func validToken(token, secret string) bool {
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || nonce == "" || sig == "" {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(sign(nonce, secret)))
}
