package blog

import (
	"context"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRendererPages(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	for _, page := range []string{"list.html", "detail.html", "share.html", "comment.html", "search.html"} {
		assert.Contains(t, r.pages, page)
	}
	assert.NotContains(t, r.pages, "base.html")

	rec := httptest.NewRecorder()
	assert.Error(t, r.Render(rec, http.StatusOK, "missing.html", nil))
	assert.Zero(t, rec.Body.Len(), "nothing written on failure")
}

func TestWatchDirReloads(t *testing.T) {
	dir := t.TempDir()
	sub, err := fs.Sub(embeddedTemplates, "templates")
	require.NoError(t, err)
	require.NoError(t, os.CopyFS(dir, sub))

	r, err := NewRenderer()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, WatchDir(ctx, r, dir, testLogger()))

	page := `{{define "title"}}t{{end}}{{define "content"}}reloaded from disk{{end}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "search.html"), []byte(page), 0o644))

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		if err := r.Render(rec, http.StatusOK, "search.html", SearchViewData{}); err != nil {
			return false
		}
		return strings.Contains(rec.Body.String(), "reloaded from disk")
	}, 5*time.Second, 50*time.Millisecond)
}

func TestFormatDate(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"morning", time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC), "Mar. 10, 2026, 9:05 a.m."},
		{"evening", time.Date(2026, 3, 10, 21, 5, 0, 0, time.UTC), "Mar. 10, 2026, 9:05 p.m."},
		{"midnight", time.Date(2026, 3, 10, 0, 30, 0, 0, time.UTC), "Mar. 10, 2026, 12:30 a.m."},
		{"noon", time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), "Mar. 10, 2026, 12:00 p.m."},
		{"site zone", time.Date(2026, 3, 10, 10, 5, 0, 0, time.UTC).In(madrid), "Mar. 10, 2026, 11:05 a.m."},
		{"zero", time.Time{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDate(tt.in))
		})
	}
}

func TestDateFuncInTemplates(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = r.Render(rec, http.StatusOK, "list.html", ListViewData{
		Posts: []Post{{
			ID:      1,
			Title:   "Morning Post",
			Slug:    "morning-post",
			Body:    "Early.",
			Author:  "admin",
			Publish: time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC),
			Status:  StatusPublished,
		}},
		Page: NewPaginator(PostsPerPage).Page(1, "1"),
	})
	require.NoError(t, err)
	assert.Contains(t, rec.Body.String(), "9:05 a.m.")
	assert.NotContains(t, rec.Body.String(), "9:05 p.m.")
}
