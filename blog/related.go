package blog

import (
	"context"
	"sort"
)

// MaxSimilarPosts caps the related posts shown under a post.
const MaxSimilarPosts = 4

// Recommender finds published posts related to a post by shared tags.
type Recommender struct {
	store ScoringStore
}

func NewRecommender(store ScoringStore) *Recommender {
	return &Recommender{store: store}
}

// Similar returns up to MaxSimilarPosts other published posts sharing at least
// one tag with p, ordered by shared tag count then publish time, newest first.
// A post without tags has no similar posts.
func (r *Recommender) Similar(ctx context.Context, p *Post) ([]RelatedPost, error) {
	tagIDs := p.TagIDs()
	if len(tagIDs) == 0 {
		return nil, nil
	}
	candidates, err := r.store.PostsSharingTags(ctx, tagIDs, p.ID, StatusPublished, MaxSimilarPosts)
	if err != nil {
		return nil, err
	}

	related := candidates[:0]
	for _, c := range candidates {
		if c.Post.ID != p.ID && c.Post.Status == StatusPublished && c.SameTags > 0 {
			related = append(related, c)
		}
	}
	sort.SliceStable(related, func(i, j int) bool {
		if related[i].SameTags != related[j].SameTags {
			return related[i].SameTags > related[j].SameTags
		}
		return related[i].Post.Publish.After(related[j].Post.Publish)
	})
	if len(related) > MaxSimilarPosts {
		related = related[:MaxSimilarPosts]
	}
	return related, nil
}
