// Package i18n holds the English and Arabic message catalogs used by the API
// and the dashboard.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"

	"github.com/simp-lee/gymadmin/internal/domain"
)

// Supported locales. The first entry is the default.
const (
	English = "en"
	Arabic  = "ar"
)

// Supported lists every locale with a catalog, default first.
var Supported = []string{English, Arabic}

//go:embed locales/*.yaml
var localesFS embed.FS

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Catalog maps locale -> flattened key -> message.
type Catalog struct {
	messages map[string]map[string]string
}

// Default returns the catalog built from the embedded locale files.
// It panics if the embedded files are malformed, which is a build defect.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(localesFS, "locales")
		if err != nil {
			panic(fmt.Sprintf("i18n: load embedded catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Load reads every <locale>.yaml file in dir. Nested YAML maps are flattened
// with "." so that {errors: {not_found: ...}} becomes "errors.not_found".
func Load(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}

	c := &Catalog{messages: make(map[string]map[string]string)}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		locale := strings.TrimSuffix(e.Name(), ".yaml")

		b, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		raw, err := yaml.Parser().Unmarshal(b)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}

		flat, _ := maps.Flatten(raw, nil, ".")
		msgs := make(map[string]string, len(flat))
		for k, v := range flat {
			msgs[k] = fmt.Sprint(v)
		}
		c.messages[locale] = msgs
	}
	return c, nil
}

// T returns the message for key in locale, or "" if there is none.
func (c *Catalog) T(locale, key string) string {
	if c == nil {
		return ""
	}
	return c.messages[Normalize(locale)][key]
}

// Localized returns the message for key in both languages.
func (c *Catalog) Localized(key string) domain.LocalizedText {
	return domain.LocalizedText{
		Arabic:  c.T(Arabic, key),
		English: c.T(English, key),
	}
}

// For returns a translator bound to locale.
func (c *Catalog) For(locale string) Localizer {
	return Localizer{catalog: c, locale: Normalize(locale)}
}

// Localizer translates keys for one locale.
type Localizer struct {
	catalog *Catalog
	locale  string
}

// T returns the message for key, or "" if there is none.
func (l Localizer) T(key string) string {
	return l.catalog.T(l.locale, key)
}

// Locale returns the bound locale.
func (l Localizer) Locale() string {
	return l.locale
}

// Normalize maps any locale tag to a supported locale, defaulting to English.
// "ar", "ar-EG" and "AR" all map to Arabic.
func Normalize(locale string) string {
	base, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(locale)), "-")
	base, _, _ = strings.Cut(base, "_")
	for _, s := range Supported {
		if base == s {
			return s
		}
	}
	return English
}

// Dir returns the text direction for locale, "rtl" or "ltr".
func Dir(locale string) string {
	if Normalize(locale) == Arabic {
		return "rtl"
	}
	return "ltr"
}
