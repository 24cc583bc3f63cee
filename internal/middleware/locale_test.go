package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gymadmin/internal/pkg"
)

func setupLocaleRouter(defaultLocale string) *gin.Engine {
	r := gin.New()
	r.Use(Locale(defaultLocale))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, pkg.Locale(c))
	})
	return r
}

func TestLocale_Resolution(t *testing.T) {
	tests := []struct {
		name          string
		defaultLocale string
		query         string
		cookie        string
		accept        string
		want          string
	}{
		{name: "default when nothing set", defaultLocale: "en", want: "en"},
		{name: "configured default", defaultLocale: "ar", want: "ar"},
		{name: "query wins", defaultLocale: "en", query: "ar", cookie: "en", accept: "en-US", want: "ar"},
		{name: "query region subtag", defaultLocale: "en", query: "ar-EG", want: "ar"},
		{name: "unsupported query falls back to english", defaultLocale: "ar", query: "fr", want: "en"},
		{name: "cookie before header", defaultLocale: "en", cookie: "ar", accept: "en", want: "ar"},
		{name: "accept-language", defaultLocale: "en", accept: "ar-SA,ar;q=0.9,en;q=0.8", want: "ar"},
		{name: "accept-language quality order", defaultLocale: "ar", accept: "en;q=0.9,ar;q=0.1", want: "en"},
		{name: "unsupported accept-language uses default", defaultLocale: "ar", accept: "de-DE", want: "ar"},
		{name: "malformed accept-language uses default", defaultLocale: "ar", accept: ";;;", want: "ar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupLocaleRouter(tt.defaultLocale)
			target := "/"
			if tt.query != "" {
				target += "?lang=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "lang", Value: tt.cookie})
			}
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if got := w.Body.String(); got != tt.want {
				t.Errorf("locale = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocale_QueryPersistsCookie(t *testing.T) {
	r := setupLocaleRouter("en")

	req := httptest.NewRequest(http.MethodGet, "/?lang=ar", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "lang" {
			found = true
			if c.Value != "ar" {
				t.Errorf("cookie value = %q, want ar", c.Value)
			}
		}
	}
	if !found {
		t.Fatal("expected lang cookie to be set")
	}
}
