package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

const layoutFile = "templates/layout.tmpl"

// Engine renders pages embedded in the package. Each page is parsed together
// with the shared layout so every page can define its own "content" block.
type Engine struct {
	pages map[string]*template.Template
}

// New initialises an Engine by parsing all embedded templates.
func New() (*Engine, error) {
	files, err := fs.Glob(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(file), ".tmpl")
		t, err := template.New(name).Funcs(funcs).ParseFS(templatesFS, layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page templates found")
	}

	return &Engine{pages: pages}, nil
}

// Has reports whether a page with the given name exists.
func (e *Engine) Has(name string) bool {
	if e == nil {
		return false
	}
	_, ok := e.pages[name]
	return ok
}

// Render executes the named page with the provided data into w. The page is
// buffered first so a template error never leaves a half-written response.
func (e *Engine) Render(w io.Writer, name string, data any) error {
	if e == nil {
		return fmt.Errorf("nil engine")
	}
	t, ok := e.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	buf := bytes.NewBuffer(nil)
	if err := t.ExecuteTemplate(buf, "layout", data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// Static serves the embedded stylesheet and other assets. Mount it behind
// http.StripPrefix("/static/", ...).
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Mon, 02 Jan 2006 15:04")
	},
	"query": url.QueryEscape,
	"hours": func(v float64) string {
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
	},
}
