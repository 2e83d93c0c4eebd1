package blog

import (
	"context"
	"time"
)

// PostReader is the read side of the content store.
type PostReader interface {
	ListPosts(ctx context.Context, f PostFilter, limit, offset int) ([]Post, error)
	CountPosts(ctx context.Context, f PostFilter) (int, error)
	GetPost(ctx context.Context, id int64, status Status) (*Post, error)
	// GetPostByDate finds a post by slug whose publish timestamp lies in [dayStart, dayEnd).
	GetPostByDate(ctx context.Context, slug string, dayStart, dayEnd time.Time, status Status) (*Post, error)
	GetTagBySlug(ctx context.Context, slug string) (*Tag, error)
	ListTags(ctx context.Context) ([]Tag, error)
}

// ScoringStore exposes the relevance primitives used by Searcher and Recommender.
type ScoringStore interface {
	// SearchPosts returns posts with the given status whose title similarity to
	// query is greater than minSimilarity, ordered by similarity descending.
	SearchPosts(ctx context.Context, query string, status Status, minSimilarity float64) ([]SearchResult, error)
	// PostsSharingTags returns posts with the given status, other than excludeID,
	// sharing at least one of tagIDs, ordered by shared count then publish, newest first.
	PostsSharingTags(ctx context.Context, tagIDs []int64, excludeID int64, status Status, limit int) ([]RelatedPost, error)
}

// CommentStore holds post comments.
type CommentStore interface {
	ListComments(ctx context.Context, postID int64, activeOnly bool) ([]Comment, error)
	CreateComment(ctx context.Context, c *Comment) error
	SetCommentActive(ctx context.Context, id int64, active bool) error
}

// PostWriter is the authoring side used by the admin CLI and scheduler.
type PostWriter interface {
	CreateAuthor(ctx context.Context, a *Author) error
	GetAuthorByUsername(ctx context.Context, username string) (*Author, error)
	CreatePost(ctx context.Context, p *Post, tagNames []string) error
	PublishPost(ctx context.Context, id int64) error
	DeletePost(ctx context.Context, id int64) error
	DueScheduledPosts(ctx context.Context, now time.Time) ([]Post, error)
}

// Store is the full content store.
type Store interface {
	PostReader
	ScoringStore
	CommentStore
	PostWriter
	Ping(ctx context.Context) error
	Close()
}

var (
	_ Store = (*Database)(nil)
	_ Store = (*MemStore)(nil)
)
