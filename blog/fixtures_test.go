package blog

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*MemStore, *Author) {
	t.Helper()
	s := NewMemStore(time.UTC)
	s.now = func() time.Time { return baseTime }
	a, err := NewAuthor("admin", "admin@example.com")
	require.NoError(t, err)
	require.NoError(t, s.CreateAuthor(context.Background(), a))
	return s, a
}

type postFixture struct {
	title   string
	body    string
	publish time.Time
	status  Status
	tags    []string
}

func addPost(t *testing.T, s *MemStore, a *Author, fx postFixture) *Post {
	t.Helper()
	if fx.status == "" {
		fx.status = StatusPublished
	}
	if fx.publish.IsZero() {
		fx.publish = baseTime
	}
	p := &Post{
		Title:    fx.title,
		Slug:     Slugify(fx.title),
		AuthorID: a.ID,
		Body:     fx.body,
		Publish:  fx.publish,
		Status:   fx.status,
	}
	require.NoError(t, s.CreatePost(context.Background(), p, fx.tags))
	return p
}

func postIDs[T any](items []T, id func(T) int64) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, id(it))
	}
	return out
}

func searchIDs(rs []SearchResult) []int64 {
	return postIDs(rs, func(r SearchResult) int64 { return r.Post.ID })
}

func relatedIDs(rs []RelatedPost) []int64 {
	return postIDs(rs, func(r RelatedPost) int64 { return r.Post.ID })
}

func listIDs(ps []Post) []int64 {
	return postIDs(ps, func(p Post) int64 { return p.ID })
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
