package blog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreListPostsFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t)
	p1 := addPost(t, s, a, postFixture{title: "One", tags: []string{"go"}, publish: baseTime.Add(-3 * time.Hour)})
	p2 := addPost(t, s, a, postFixture{title: "Two", publish: baseTime.Add(-2 * time.Hour)})
	p3 := addPost(t, s, a, postFixture{title: "Three", tags: []string{"Go"}, publish: baseTime.Add(-1 * time.Hour)})
	addPost(t, s, a, postFixture{title: "Draft", status: StatusDraft, tags: []string{"go"}})

	published := PostFilter{Status: StatusPublished}
	n, err := s.CountPosts(ctx, published)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := s.CountPosts(ctx, PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, all, "zero filter means no constraint")

	posts, err := s.ListPosts(ctx, published, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{p3.ID, p2.ID}, listIDs(posts))
	assert.Equal(t, "admin", posts[0].Author)

	posts, err = s.ListPosts(ctx, published, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{p1.ID}, listIDs(posts))

	tag, err := s.GetTagBySlug(ctx, "go")
	require.NoError(t, err)
	posts, err = s.ListPosts(ctx, PostFilter{Status: StatusPublished, TagID: tag.ID}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{p3.ID, p1.ID}, listIDs(posts), "tag names differing only in case share a slug")
}

func TestMemStoreSlugUniquePerDay(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t)
	addPost(t, s, a, postFixture{title: "Hello", publish: baseTime})

	dup := &Post{Title: "Hello", Slug: "hello", AuthorID: a.ID, Publish: baseTime.Add(3 * time.Hour)}
	assert.ErrorIs(t, s.CreatePost(ctx, dup, nil), ErrDuplicateSlug)

	nextDay := &Post{Title: "Hello", Slug: "hello", AuthorID: a.ID, Publish: baseTime.Add(24 * time.Hour)}
	assert.NoError(t, s.CreatePost(ctx, nextDay, nil))
}

func TestMemStoreSlugDayFollowsLocation(t *testing.T) {
	ctx := context.Background()
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	s := NewMemStore(ny)
	a, err := NewAuthor("admin", "")
	require.NoError(t, err)
	require.NoError(t, s.CreateAuthor(ctx, a))

	// 03:00 and 06:00 UTC fall on Feb 28 and Mar 1 in New York.
	first := &Post{Title: "Hi", Slug: "hi", AuthorID: a.ID, Publish: time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)}
	second := &Post{Title: "Hi", Slug: "hi", AuthorID: a.ID, Publish: time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)}
	require.NoError(t, s.CreatePost(ctx, first, nil))
	require.NoError(t, s.CreatePost(ctx, second, nil))

	start, end := DayBounds(time.Date(2026, 2, 28, 0, 0, 0, 0, ny), ny)
	got, err := s.GetPostByDate(ctx, "hi", start, end, StatusDraft)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestMemStoreGetPost(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t)
	pub := addPost(t, s, a, postFixture{title: "Public", tags: []string{"b", "a"}})
	draft := addPost(t, s, a, postFixture{title: "Hidden", status: StatusDraft})

	got, err := s.GetPost(ctx, pub.ID, StatusPublished)
	require.NoError(t, err)
	assert.Equal(t, "Public", got.Title)
	require.Len(t, got.Tags, 2)
	assert.Equal(t, "a", got.Tags[0].Name)

	_, err = s.GetPost(ctx, draft.ID, StatusPublished)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetPost(ctx, draft.ID, "")
	assert.NoError(t, err)
	_, err = s.GetPost(ctx, 999, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStoreComments(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t)
	p := addPost(t, s, a, postFixture{title: "Post"})

	c1 := &Comment{PostID: p.ID, Name: "Ann", Email: "ann@example.com", Body: "First", Active: true}
	c2 := &Comment{PostID: p.ID, Name: "Bob", Email: "bob@example.com", Body: "Second", Active: true}
	require.NoError(t, s.CreateComment(ctx, c1))
	require.NoError(t, s.CreateComment(ctx, c2))
	assert.Equal(t, baseTime, c1.Created)

	require.NoError(t, s.SetCommentActive(ctx, c2.ID, false))
	active, err := s.ListComments(ctx, p.ID, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Ann", active[0].Name)

	every, err := s.ListComments(ctx, p.ID, false)
	require.NoError(t, err)
	assert.Len(t, every, 2)

	assert.ErrorIs(t, s.CreateComment(ctx, &Comment{PostID: 999}), ErrNotFound)
	assert.ErrorIs(t, s.SetCommentActive(ctx, 999, true), ErrNotFound)

	require.NoError(t, s.DeletePost(ctx, p.ID))
	every, err = s.ListComments(ctx, p.ID, false)
	require.NoError(t, err)
	assert.Empty(t, every, "comments go with their post")
	assert.ErrorIs(t, s.DeletePost(ctx, p.ID), ErrNotFound)
}

func TestMemStoreAuthors(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	dup, err := NewAuthor("admin", "other@example.com")
	require.NoError(t, err)
	assert.ErrorIs(t, s.CreateAuthor(ctx, dup), ErrDuplicateUsername)

	got, err := s.GetAuthorByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", got.Email)

	_, err = s.GetAuthorByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.CreatePost(ctx, &Post{Title: "x", Slug: "x", AuthorID: "missing"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStoreTagsAreShared(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t)
	addPost(t, s, a, postFixture{title: "One", tags: []string{"Web Dev", "go"}})
	p := addPost(t, s, a, postFixture{title: "Two", tags: []string{"web dev", "go", "go"}})
	assert.Len(t, p.Tags, 2, "duplicate names link once")

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 2)

	_, err = s.GetTagBySlug(ctx, "web-dev")
	assert.NoError(t, err)

	err = s.CreatePost(ctx, &Post{Title: "Bad", Slug: "bad", AuthorID: a.ID}, []string{"!!!"})
	assert.Error(t, err)
}

func TestMemStoreRejectedTagsLeaveNothing(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t)

	err := s.CreatePost(ctx, &Post{Title: "Bad", Slug: "bad", AuthorID: a.ID}, []string{"go", "!!!"})
	require.Error(t, err)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags, "no tag kept from a rejected post")
	n, err := s.CountPosts(ctx, PostFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)

	p := &Post{Title: "Bad", Slug: "bad", AuthorID: a.ID}
	require.NoError(t, s.CreatePost(ctx, p, []string{"go"}))
	require.Len(t, p.Tags, 1)
	assert.Equal(t, int64(1), p.Tags[0].ID)
}

func TestMemStoreScheduledPosts(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t)
	due := &Post{Title: "Due", Slug: "due", AuthorID: a.ID, Publish: baseTime.Add(-time.Minute), Scheduled: true}
	later := &Post{Title: "Later", Slug: "later", AuthorID: a.ID, Publish: baseTime.Add(time.Hour), Scheduled: true}
	manual := &Post{Title: "Manual", Slug: "manual", AuthorID: a.ID, Publish: baseTime.Add(-time.Hour)}
	for _, p := range []*Post{due, later, manual} {
		require.NoError(t, s.CreatePost(ctx, p, nil))
	}

	got, err := s.DueScheduledPosts(ctx, baseTime)
	require.NoError(t, err)
	assert.Equal(t, []int64{due.ID}, listIDs(got))

	require.NoError(t, s.PublishPost(ctx, due.ID))
	p, err := s.GetPost(ctx, due.ID, StatusPublished)
	require.NoError(t, err)
	assert.False(t, p.Scheduled)
	assert.ErrorIs(t, s.PublishPost(ctx, 999), ErrNotFound)
}
