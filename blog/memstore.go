package blog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-process Store. It backs the server when no database is
// configured and is the store used by the package tests. Similarity and rank
// are computed in Go with the same definitions the SQL store relies on.
type MemStore struct {
	mu  sync.RWMutex
	loc *time.Location
	now func() time.Time

	authors  map[string]*Author
	posts    map[int64]*Post
	postTags map[int64][]int64
	tags     map[int64]*Tag
	comments map[int64]*Comment

	nextPostID    int64
	nextTagID     int64
	nextCommentID int64
}

func NewMemStore(loc *time.Location) *MemStore {
	if loc == nil {
		loc = time.UTC
	}
	return &MemStore{
		loc:      loc,
		now:      time.Now,
		authors:  make(map[string]*Author),
		posts:    make(map[int64]*Post),
		postTags: make(map[int64][]int64),
		tags:     make(map[int64]*Tag),
		comments: make(map[int64]*Comment),
	}
}

func (m *MemStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemStore) Close() {}

// hydrate returns a copy of p with author name and tags filled. Caller holds mu.
func (m *MemStore) hydrate(p *Post) Post {
	out := *p
	out.Publish = p.Publish.In(m.loc)
	if a, ok := m.authors[p.AuthorID]; ok {
		out.Author = a.Username
	}
	out.Tags = nil
	for _, id := range m.postTags[p.ID] {
		if t, ok := m.tags[id]; ok {
			out.Tags = append(out.Tags, *t)
		}
	}
	sort.Slice(out.Tags, func(i, j int) bool { return out.Tags[i].Name < out.Tags[j].Name })
	return out
}

func (m *MemStore) hasTag(postID, tagID int64) bool {
	for _, id := range m.postTags[postID] {
		if id == tagID {
			return true
		}
	}
	return false
}

func (m *MemStore) matches(p *Post, f PostFilter) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.TagID != 0 && !m.hasTag(p.ID, f.TagID) {
		return false
	}
	return true
}

func newestFirst(a, b *Post) bool {
	if !a.Publish.Equal(b.Publish) {
		return a.Publish.After(b.Publish)
	}
	return a.ID > b.ID
}

func (m *MemStore) filtered(f PostFilter) []*Post {
	var out []*Post
	for _, p := range m.posts {
		if m.matches(p, f) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newestFirst(out[i], out[j]) })
	return out
}

func (m *MemStore) ListPosts(ctx context.Context, f PostFilter, limit, offset int) ([]Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.filtered(f)
	if offset >= len(all) {
		return nil, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	posts := make([]Post, 0, end-offset)
	for _, p := range all[offset:end] {
		posts = append(posts, m.hydrate(p))
	}
	return posts, nil
}

func (m *MemStore) CountPosts(ctx context.Context, f PostFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.filtered(f)), nil
}

func (m *MemStore) GetPost(ctx context.Context, id int64, status Status) (*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[id]
	if !ok || (status != "" && p.Status != status) {
		return nil, ErrNotFound
	}
	out := m.hydrate(p)
	return &out, nil
}

func (m *MemStore) GetPostByDate(ctx context.Context, slug string, dayStart, dayEnd time.Time, status Status) (*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.filtered(PostFilter{Status: status}) {
		if p.Slug == slug && !p.Publish.Before(dayStart) && p.Publish.Before(dayEnd) {
			out := m.hydrate(p)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemStore) GetTagBySlug(ctx context.Context, slug string) (*Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tags {
		if t.Slug == slug {
			out := *t
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemStore) ListTags(ctx context.Context) ([]Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tags := make([]Tag, 0, len(m.tags))
	for _, t := range m.tags {
		tags = append(tags, *t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

func (m *MemStore) SearchPosts(ctx context.Context, query string, status Status, minSimilarity float64) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var results []SearchResult
	for _, p := range m.filtered(PostFilter{Status: status}) {
		sim := TrigramSimilarity(p.Title, query)
		if sim <= minSimilarity {
			continue
		}
		results = append(results, SearchResult{
			Post:       m.hydrate(p),
			Similarity: sim,
			Rank:       WeightedRank(p.Title, p.Body, query),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	return results, nil
}

func (m *MemStore) PostsSharingTags(ctx context.Context, tagIDs []int64, excludeID int64, status Status, limit int) ([]RelatedPost, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[int64]bool, len(tagIDs))
	for _, id := range tagIDs {
		wanted[id] = true
	}
	var related []RelatedPost
	for _, p := range m.filtered(PostFilter{Status: status}) {
		if p.ID == excludeID {
			continue
		}
		same := 0
		for _, id := range m.postTags[p.ID] {
			if wanted[id] {
				same++
			}
		}
		if same > 0 {
			related = append(related, RelatedPost{Post: m.hydrate(p), SameTags: same})
		}
	}
	sort.SliceStable(related, func(i, j int) bool {
		return related[i].SameTags > related[j].SameTags
	})
	if limit > 0 && len(related) > limit {
		related = related[:limit]
	}
	return related, nil
}

func (m *MemStore) ListComments(ctx context.Context, postID int64, activeOnly bool) ([]Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Comment
	for _, c := range m.comments {
		if c.PostID == postID && (!activeOnly || c.Active) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemStore) CreateComment(ctx context.Context, c *Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[c.PostID]; !ok {
		return ErrNotFound
	}
	m.nextCommentID++
	now := m.now()
	c.ID = m.nextCommentID
	c.Created, c.Updated = now, now
	stored := *c
	m.comments[c.ID] = &stored
	return nil
}

func (m *MemStore) SetCommentActive(ctx context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return ErrNotFound
	}
	c.Active = active
	c.Updated = m.now()
	return nil
}

func (m *MemStore) CreateAuthor(ctx context.Context, a *Author) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.authors {
		if existing.Username == a.Username {
			return ErrDuplicateUsername
		}
	}
	stored := *a
	m.authors[a.ID] = &stored
	return nil
}

func (m *MemStore) GetAuthorByUsername(ctx context.Context, username string) (*Author, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.authors {
		if a.Username == username {
			out := *a
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemStore) CreatePost(ctx context.Context, p *Post, tagNames []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.authors[p.AuthorID]; !ok {
		return fmt.Errorf("author %s: %w", p.AuthorID, ErrNotFound)
	}
	now := m.now()
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if p.Publish.IsZero() {
		p.Publish = now
	}
	p.Publish = p.Publish.In(m.loc)
	dayStart, dayEnd := DayBounds(p.Publish, m.loc)
	for _, other := range m.posts {
		if other.Slug == p.Slug && !other.Publish.Before(dayStart) && other.Publish.Before(dayEnd) {
			return ErrDuplicateSlug
		}
	}

	type tagField struct{ name, slug string }
	fields := make([]tagField, 0, len(tagNames))
	for _, raw := range tagNames {
		name, slug, err := tagFields(raw)
		if err != nil {
			return err
		}
		fields = append(fields, tagField{name, slug})
	}

	tagIDs := make([]int64, 0, len(fields))
	p.Tags = p.Tags[:0]
	for _, f := range fields {
		t := m.upsertTag(f.name, f.slug)
		dup := false
		for _, id := range tagIDs {
			dup = dup || id == t.ID
		}
		if !dup {
			tagIDs = append(tagIDs, t.ID)
			p.Tags = append(p.Tags, *t)
		}
	}

	m.nextPostID++
	p.ID = m.nextPostID
	p.Created, p.Updated = now, now
	stored := *p
	stored.Tags = nil
	m.posts[p.ID] = &stored
	m.postTags[p.ID] = tagIDs
	return nil
}

// upsertTag finds a tag by name, then by slug, else creates it. Caller holds mu.
func (m *MemStore) upsertTag(name, slug string) *Tag {
	var bySlug *Tag
	for _, t := range m.tags {
		if t.Name == name {
			return t
		}
		if t.Slug == slug {
			bySlug = t
		}
	}
	if bySlug != nil {
		return bySlug
	}
	m.nextTagID++
	t := &Tag{ID: m.nextTagID, Name: name, Slug: slug}
	m.tags[t.ID] = t
	return t
}

func (m *MemStore) PublishPost(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = StatusPublished
	p.Scheduled = false
	p.Updated = m.now()
	return nil
}

func (m *MemStore) DeletePost(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return ErrNotFound
	}
	delete(m.posts, id)
	delete(m.postTags, id)
	for cid, c := range m.comments {
		if c.PostID == id {
			delete(m.comments, cid)
		}
	}
	return nil
}

func (m *MemStore) DueScheduledPosts(ctx context.Context, now time.Time) ([]Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var due []Post
	for _, p := range m.posts {
		if p.Status == StatusDraft && p.Scheduled && !p.Publish.After(now) {
			due = append(due, m.hydrate(p))
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].Publish.Before(due[j].Publish) })
	return due, nil
}
