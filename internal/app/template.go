package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin/render"

	"github.com/simp-lee/gymadmin/internal/admin"
)

const templateRoot = "templates"

// TemplateRenderer is the Gin HTML renderer of the dashboard. Files under
// templates/layouts and templates/partials form a base set; every other
// file is a page parsed on its own clone of that set, so full pages can call
// {{ template "base" . }} while htmx fragments render alone.
//
// In debug mode the tree is parsed again on every render.
type TemplateRenderer struct {
	fs    fs.FS
	funcs template.FuncMap
	debug bool
	pages map[string]*template.Template
}

var _ render.HTMLRender = (*TemplateRenderer)(nil)

// NewTemplateRenderer creates a renderer over fsys, which holds:
//
//	templates/
//	  layouts/    page skeleton (base.html)
//	  partials/   shared blocks: table, filters, form fields
//	  dashboard/  pages and htmx fragments
//	  errors/     error pages
func NewTemplateRenderer(fsys fs.FS, debug bool) (*TemplateRenderer, error) {
	r := &TemplateRenderer{fs: fsys, funcs: templateFuncMap(), debug: debug}
	if debug {
		return r, nil
	}
	pages, err := r.load()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.pages = pages
	return r, nil
}

// Instance returns the render of a page named by its path under templates/,
// e.g. "dashboard/list.html".
func (r *TemplateRenderer) Instance(name string, data any) render.Render {
	pages := r.pages
	if r.debug {
		var err error
		if pages, err = r.load(); err != nil {
			return &htmlPage{name: name, err: err}
		}
	}
	return &htmlPage{tmpl: pages[name], name: name, data: data}
}

func (r *TemplateRenderer) load() (map[string]*template.Template, error) {
	shared, pages, err := listTemplates(r.fs)
	if err != nil {
		return nil, err
	}

	base := template.New("").Funcs(r.funcs)
	for _, path := range shared {
		if err := parseFile(base, r.fs, path); err != nil {
			return nil, err
		}
	}

	out := make(map[string]*template.Template, len(pages))
	for _, path := range pages {
		page, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone base for %s: %w", path, err)
		}
		if err := parseFile(page, r.fs, path); err != nil {
			return nil, err
		}
		out[relTemplate(path)] = page
	}
	return out, nil
}

// listTemplates walks templates/ and splits the .html files into the shared
// base set and pages.
func listTemplates(fsys fs.FS) (shared, pages []string, err error) {
	err = fs.WalkDir(fsys, templateRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".html") {
			return err
		}
		switch dir, _, _ := strings.Cut(relTemplate(path), "/"); dir {
		case "layouts", "partials":
			shared = append(shared, path)
		default:
			pages = append(pages, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", templateRoot, err)
	}
	return shared, pages, nil
}

func parseFile(t *template.Template, fsys fs.FS, path string) error {
	src, err := fs.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if _, err := t.New(relTemplate(path)).Parse(string(src)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func relTemplate(path string) string {
	return strings.TrimPrefix(path, templateRoot+"/")
}

// templateFuncMap returns the helpers available to every template.
func templateFuncMap() template.FuncMap {
	return template.FuncMap{
		// json marshals v for use in attributes read by JavaScript, such as
		// hx-vals.
		"json": func(v any) template.JS {
			b, err := json.Marshal(v)
			if err != nil {
				return template.JS("null")
			}
			return template.JS(b)
		},

		// t translates key with the page localizer, showing the key itself
		// when it has no translation.
		"t": func(l admin.Translator, key string) string {
			return admin.Tr(l, key, key)
		},

		// tf translates key and fills its {name} placeholders from
		// name/value pairs: {{ tf .L "table.page" "page" 2 "pages" 9 }}.
		"tf": func(l admin.Translator, key string, pairs ...any) string {
			args := make(map[string]string, len(pairs)/2)
			for i := 0; i+1 < len(pairs); i += 2 {
				args[fmt.Sprint(pairs[i])] = fmt.Sprint(pairs[i+1])
			}
			return admin.Format(admin.Tr(l, key, key), args)
		},

		// dict builds a map from key/value pairs so partials can take
		// several arguments.
		"dict": func(pairs ...any) (map[string]any, error) {
			if len(pairs)%2 != 0 {
				return nil, errors.New("dict needs an even number of arguments")
			}
			m := make(map[string]any, len(pairs)/2)
			for i := 0; i < len(pairs); i += 2 {
				k, ok := pairs[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
				}
				m[k] = pairs[i+1]
			}
			return m, nil
		},

		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },

		// year is shown in the footer.
		"year": func() int { return time.Now().Year() },
	}
}

type htmlPage struct {
	tmpl *template.Template
	name string
	data any
	err  error
}

func (p *htmlPage) Render(w http.ResponseWriter) error {
	p.WriteContentType(w)
	switch {
	case p.err != nil:
		return p.err
	case p.tmpl == nil:
		return fmt.Errorf("template %q not found", p.name)
	}
	return p.tmpl.ExecuteTemplate(w, p.name, p.data)
}

func (p *htmlPage) WriteContentType(w http.ResponseWriter) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
}
