package blog

import (
	"context"
	"sort"
	"strings"
)

// SimilarityThreshold is the minimum title similarity a result must exceed.
const SimilarityThreshold = 0.1

// Searcher ranks published posts for a free-text query.
type Searcher struct {
	store ScoringStore
}

func NewSearcher(store ScoringStore) *Searcher {
	return &Searcher{store: store}
}

// Search returns published posts whose title trigram similarity to query is
// above SimilarityThreshold, most similar first. Each result also carries the
// weighted title/body rank; it is informational and never reorders results.
func (s *Searcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	found, err := s.store.SearchPosts(ctx, query, StatusPublished, SimilarityThreshold)
	if err != nil {
		return nil, err
	}

	results := found[:0]
	for _, r := range found {
		if r.Post.Status == StatusPublished && r.Similarity > SimilarityThreshold {
			results = append(results, r)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	return results, nil
}
