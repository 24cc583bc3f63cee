package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/simp-lee/gymadmin/internal/i18n"
	"github.com/simp-lee/gymadmin/internal/pkg"
)

const (
	localeQueryParam = "lang"
	localeCookieName = "lang"
	localeCookieAge  = 365 * 24 * 60 * 60
)

var localeMatcher = language.NewMatcher([]language.Tag{
	language.English, // first tag is the matcher's fallback
	language.Arabic,
})

// Locale returns a gin middleware that negotiates the request locale and
// stores it in gin.Context under pkg.LocaleKey.
//
// Resolution order:
//   - ?lang= query parameter (also persisted in the "lang" cookie)
//   - "lang" cookie
//   - Accept-Language header
//   - defaultLocale
//
// Only "en" and "ar" are supported; anything else resolves to the closest
// match or English.
func Locale(defaultLocale string) gin.HandlerFunc {
	defaultLocale = i18n.Normalize(defaultLocale)
	secure := gin.Mode() == gin.ReleaseMode

	return func(c *gin.Context) {
		locale := ""
		if q := strings.TrimSpace(c.Query(localeQueryParam)); q != "" {
			locale = matchLocale(q)
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     localeCookieName,
				Value:    locale,
				Path:     "/",
				MaxAge:   localeCookieAge,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		if locale == "" {
			if v, err := c.Cookie(localeCookieName); err == nil && v != "" {
				locale = matchLocale(v)
			}
		}
		if locale == "" {
			if header := c.GetHeader("Accept-Language"); header != "" {
				locale = matchAcceptLanguage(header)
			}
		}
		if locale == "" {
			locale = defaultLocale
		}

		c.Set(pkg.LocaleKey, locale)
		c.Next()
	}
}

func matchLocale(value string) string {
	tag, err := language.Parse(value)
	if err != nil {
		return i18n.Normalize(value)
	}
	_, idx, _ := localeMatcher.Match(tag)
	return supportedAt(idx)
}

// matchAcceptLanguage returns "" when the header cannot be parsed or nothing
// in it is supported, so the configured default applies.
func matchAcceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return ""
	}
	return supportedAt(idx)
}

func supportedAt(idx int) string {
	if idx == 1 {
		return i18n.Arabic
	}
	return i18n.English
}
