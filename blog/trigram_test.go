package blog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrigramSet(t *testing.T) {
	got := trigramSet("Cat")
	assert.Len(t, got, 4)
	for _, tri := range []string{"  c", " ca", "cat", "at "} {
		assert.Contains(t, got, tri)
	}

	assert.Empty(t, trigramSet("  !? "))
	assert.Len(t, trigramSet("cat cat"), 4, "repeated words add nothing")
}

func TestTrigramSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "Gardening", "gardening", 1},
		{"misspelled", "Gardening Tips", "gardn", 4.0 / 17},
		{"nothing shared", "Gardening Tips", "zzzzzzz", 0},
		{"empty side", "", "anything", 0},
		{"extra words", "Go concurrency patterns", "go", 3.0 / 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TrigramSimilarity(tt.a, tt.b), 1e-9)
			assert.InDelta(t, tt.want, TrigramSimilarity(tt.b, tt.a), 1e-9, "symmetric")
		})
	}
}

func TestWeightedRank(t *testing.T) {
	assert.Zero(t, WeightedRank("Gardening Tips", "Soil and water.", "tomato"))
	assert.Zero(t, WeightedRank("Gardening Tips", "Soil.", "gardening tomato"), "every term must match")
	assert.Zero(t, WeightedRank("Gardening Tips", "Soil.", "  "))

	inTitle := WeightedRank("Tomato care", "", "tomato")
	inBody := WeightedRank("Care", "tomato", "tomato")
	assert.Greater(t, inTitle, inBody, "title matches weigh more")
	assert.Greater(t, WeightedRank("Care", "tomato tomato tomato", "tomato"), inBody)
}
