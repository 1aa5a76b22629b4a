package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	t.Run("identical strings score 1", func(t *testing.T) {
		assert.Equal(t, 1.0, Score("Harris County", "Harris County"))
	})

	t.Run("case and whitespace are ignored", func(t *testing.T) {
		assert.Equal(t, 1.0, Score("  HARRIS county ", "harris County"))
	})

	t.Run("empty strings score 0", func(t *testing.T) {
		assert.Equal(t, 0.0, Score("", "Harris"))
		assert.Equal(t, 0.0, Score("Harris", ""))
	})

	t.Run("near misses score high", func(t *testing.T) {
		assert.Greater(t, Score("median_rent", "MedianRent"), 0.85)
	})

	t.Run("unrelated strings score low", func(t *testing.T) {
		assert.Less(t, Score("xylophone", "Harris"), 0.6)
	})
}

func TestBestMatch(t *testing.T) {
	columns := []string{"ZipCode", "ZMediumRent", "ZMediumValue", "State"}

	t.Run("exact candidate wins", func(t *testing.T) {
		best, score, ok := BestMatch("zipcode", columns, 0.85)
		assert.True(t, ok)
		assert.Equal(t, "ZipCode", best)
		assert.Equal(t, 1.0, score)
	})

	t.Run("near miss resolves to closest candidate", func(t *testing.T) {
		best, _, ok := BestMatch("ZMedianRent", columns, 0.85)
		assert.True(t, ok)
		assert.Equal(t, "ZMediumRent", best)
	})

	t.Run("no candidate above floor", func(t *testing.T) {
		best, _, ok := BestMatch("population", columns, 0.85)
		assert.False(t, ok)
		assert.Empty(t, best)
	})

	t.Run("empty candidate list", func(t *testing.T) {
		_, _, ok := BestMatch("anything", nil, 0.5)
		assert.False(t, ok)
	})
}
