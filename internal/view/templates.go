package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/maxidea1024/gatrix-sub012/internal/shared"
	"github.com/maxidea1024/gatrix-sub012/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
	nav       []NavItem
}

// NavItem is one entry of the sidebar.
type NavItem struct {
	Title string
	Path  string
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Nav         []NavItem
	Data        any
}

// Config customises the engine.
type Config struct {
	Nav []NavItem
}

// NewEngine parses templates at build-time.
func NewEngine(cfg Config) (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"formTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02T15:04")
		},
		"join":     strings.Join,
		"contains": func(list []string, v string) bool { return slices.Contains(list, v) },
		"add":      func(a, b int) int { return a + b },
		"sub":      func(a, b int) int { return a - b },
		"active": func(current, path string) bool {
			return current == path || strings.HasPrefix(current, path+"/")
		},
	}
	tree, err := web.Templates()
	if err != nil {
		return nil, err
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(tree, "layouts/*.html", "partials/*.html", "pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl, nav: cfg.Nav}, nil
}

// Has reports whether a named template exists.
func (e *Engine) Has(name string) bool {
	return e != nil && e.templates.Lookup(name) != nil
}

// Render executes a named template with TemplateData and writes it with
// status. Nothing is written when execution fails.
func (e *Engine) Render(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	if data.Nav == nil {
		data.Nav = e.nav
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
