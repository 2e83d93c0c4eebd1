package blog

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

//go:embed templates
var embeddedTemplates embed.FS

var templateFuncs = template.FuncMap{
	"markdown": markdownFilter,
	"excerpt":  Excerpt,
	"date":     formatDate,
	"inc":      func(i int) int { return i + 1 },
	"pluralize": func(n int, singular, plural string) string {
		if n == 1 {
			return singular
		}
		return plural
	},
}

// formatDate renders t as "Mar. 10, 2026, 9:05 a.m.".
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	meridiem := "a.m."
	if t.Hour() >= 12 {
		meridiem = "p.m."
	}
	return t.Format("Jan. 2, 2006, 3:04 ") + meridiem
}

// Renderer holds one parsed template set per page, each combining the base
// layout, the shared includes and the page itself.
type Renderer struct {
	mu    sync.RWMutex
	fsys  fs.FS
	pages map[string]*template.Template
}

// NewRenderer parses the templates embedded in the binary.
func NewRenderer() (*Renderer, error) {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, err
	}
	return NewRendererFS(sub)
}

// NewRendererFS parses templates from fsys, laid out as base.html,
// includes/*.html and one file per page.
func NewRendererFS(fsys fs.FS) (*Renderer, error) {
	r := &Renderer{fsys: fsys}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Renderer) load() error {
	names, err := fs.Glob(r.fsys, "*.html")
	if err != nil {
		return err
	}
	includes, err := fs.Glob(r.fsys, "includes/*.html")
	if err != nil {
		return err
	}
	pages := make(map[string]*template.Template)
	for _, name := range names {
		if name == "base.html" {
			continue
		}
		files := append([]string{"base.html"}, includes...)
		files = append(files, name)
		ts, err := template.New(path.Base(name)).Funcs(templateFuncs).ParseFS(r.fsys, files...)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = ts
	}
	r.mu.Lock()
	r.pages = pages
	r.mu.Unlock()
	return nil
}

// Render executes page into a buffer first so a failing template never sends
// a partial response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	r.mu.RLock()
	ts, ok := r.pages[page]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("template %s does not exist", page)
	}
	buf := new(bytes.Buffer)
	if err := ts.ExecuteTemplate(buf, "base", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// WatchDir reloads templates from dir whenever a file there changes. It
// returns once the watcher is set up; watching stops when ctx is done.
func WatchDir(ctx context.Context, r *Renderer, dir string, logger *slog.Logger) error {
	r.mu.Lock()
	r.fsys = os.DirFS(dir)
	r.mu.Unlock()
	if err := r.load(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, d := range []string{dir, filepath.Join(dir, "includes")} {
		if err := watcher.Add(d); err != nil {
			watcher.Close()
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, ".html") {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					if err := r.load(); err != nil {
						logger.Error("template reload failed", slog.String("file", event.Name), slog.Any("error", err))
						continue
					}
					logger.Debug("templates reloaded", slog.String("file", event.Name))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("template watcher", slog.Any("error", err))
			}
		}
	}()
	return nil
}
