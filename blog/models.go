// blog/models.go
package blog

import (
	"fmt"
	"time"
)

// Status is the publication state of a post. Values match the stored column.
type Status string

const (
	StatusDraft     Status = "DF"
	StatusPublished Status = "PB"
)

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "Draft"
	case StatusPublished:
		return "Published"
	}
	return string(s)
}

// ParseStatus accepts either the stored code or the human label.
func ParseStatus(v string) (Status, error) {
	switch v {
	case "DF", "draft", "Draft":
		return StatusDraft, nil
	case "PB", "published", "Published":
		return StatusPublished, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, v)
}

// Tag is a free-form label shared across posts.
type Tag struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// Post is a blog entry. Slug is unique within its publish date.
type Post struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Slug      string    `json:"slug" db:"slug"`
	AuthorID  string    `json:"author_id" db:"author_id"`
	Author    string    `json:"author" db:"author"` // username, filled by joins
	Body      string    `json:"body" db:"body"`
	Publish   time.Time `json:"publish" db:"publish"`
	Created   time.Time `json:"created" db:"created"`
	Updated   time.Time `json:"updated" db:"updated"`
	Status    Status    `json:"status" db:"status"`
	Scheduled bool      `json:"scheduled" db:"scheduled"`
	Tags      []Tag     `json:"tags"`
}

func (p *Post) String() string {
	return p.Title
}

// Published reports whether the post is publicly visible.
func (p *Post) Published() bool {
	return p.Status == StatusPublished
}

// AbsoluteURL is the canonical detail path, keyed by publish date and slug.
// Month and day are not zero padded.
func (p *Post) AbsoluteURL() string {
	return fmt.Sprintf("%s/%d/%d/%d/%s/", BasePath,
		p.Publish.Year(), int(p.Publish.Month()), p.Publish.Day(), p.Slug)
}

// TagIDs returns the ids of the post's tags in order.
func (p *Post) TagIDs() []int64 {
	ids := make([]int64, 0, len(p.Tags))
	for _, t := range p.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// Comment belongs to exactly one post. Active is the moderation gate.
type Comment struct {
	ID      int64     `json:"id" db:"id"`
	PostID  int64     `json:"post_id" db:"post_id"`
	Name    string    `json:"name" db:"name"`
	Email   string    `json:"email" db:"email"`
	Body    string    `json:"body" db:"body"`
	Created time.Time `json:"created" db:"created"`
	Updated time.Time `json:"updated" db:"updated"`
	Active  bool      `json:"active" db:"active"`
}

func (c *Comment) String() string {
	return fmt.Sprintf("Comment by %s on post %d", c.Name, c.PostID)
}

// PostFilter narrows post listings. Zero values mean "no constraint";
// callers that want only public posts must set Status explicitly.
type PostFilter struct {
	Status Status
	TagID  int64
}

// SearchResult pairs a post with its similarity and weighted rank scores.
type SearchResult struct {
	Post       Post    `json:"post"`
	Similarity float64 `json:"similarity"`
	Rank       float64 `json:"rank"`
}

// RelatedPost is a candidate sharing SameTags tags with the target post.
type RelatedPost struct {
	Post     Post `json:"post"`
	SameTags int  `json:"same_tags"`
}

// DayBounds returns the [start, end) instants of the calendar day containing t in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	start := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
