// Package render is the html/template renderer block templates are executed
// with. Built-in block templates are embedded; a directory can override or
// extend them.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-pageblocks/pkg/interfaces"
)

//go:embed templates
var embedded embed.FS

type Renderer struct {
	tpl *template.Template
}

var _ interfaces.TemplateRenderer = (*Renderer)(nil)

type Option func(*options)

type options struct {
	dir   string
	funcs template.FuncMap
}

// WithDir parses every .html and .tmpl file below dir after the embedded
// templates, so {{ define }} blocks with the same name replace them.
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = strings.TrimSpace(dir)
	}
}

// WithFuncs adds template functions.
func WithFuncs(funcs template.FuncMap) Option {
	return func(o *options) {
		for name, fn := range funcs {
			o.funcs[name] = fn
		}
	}
}

func New(opts ...Option) (*Renderer, error) {
	o := options{funcs: template.FuncMap{"safeHTML": safeHTML}}
	for _, opt := range opts {
		opt(&o)
	}

	tpl, err := template.New("pageblocks").Funcs(o.funcs).ParseFS(embedded, "templates/blocks/*.html")
	if err != nil {
		return nil, fmt.Errorf("render: parse embedded templates: %w", err)
	}
	if o.dir != "" {
		files, err := templateFiles(o.dir)
		if err != nil {
			return nil, err
		}
		if len(files) > 0 {
			if tpl, err = tpl.ParseFiles(files...); err != nil {
				return nil, fmt.Errorf("render: parse %s: %w", o.dir, err)
			}
		}
	}
	return &Renderer{tpl: tpl}, nil
}

// HasTemplate reports whether name was parsed.
func (r *Renderer) HasTemplate(name string) bool {
	return r.tpl.Lookup(name) != nil
}

// Render executes the named template. The markup is returned and also written
// to every non nil writer in out.
func (r *Renderer) Render(name string, data any, out ...io.Writer) (string, error) {
	if !r.HasTemplate(name) {
		return "", fmt.Errorf("render: template %q not found", name)
	}
	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render: %s: %w", name, err)
	}
	for _, w := range out {
		if w == nil {
			continue
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func templateFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".html", ".tmpl":
			files = append(files, path)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("render: walk %s: %w", dir, err)
	}
	return files, nil
}

func safeHTML(value any) template.HTML {
	switch v := value.(type) {
	case nil:
		return ""
	case template.HTML:
		return v
	case string:
		return template.HTML(v)
	default:
		return template.HTML(fmt.Sprint(v))
	}
}
