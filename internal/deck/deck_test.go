package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countFaces(cards []string) map[string]int {
	counts := make(map[string]int)
	for _, card := range cards {
		counts[card]++
	}
	return counts
}

func TestGenerate(t *testing.T) {
	t.Run("Every face appears exactly twice", func(t *testing.T) {
		for pairs := 1; pairs <= 32; pairs++ {
			// When: generating a deck of n pairs
			cards, err := Generate(pairs)

			// Then: the length is 2n and the multiset holds n faces twice each
			require.NoError(t, err)
			assert.Len(t, cards, 2*pairs)

			counts := countFaces(cards)
			assert.Len(t, counts, pairs)
			for face, count := range counts {
				assert.Equal(t, 2, count, "face %s", face)
			}
		}
	})

	t.Run("Fails on non-positive pair count", func(t *testing.T) {
		for _, pairs := range []int{0, -1} {
			cards, err := Generate(pairs)

			require.ErrorIs(t, err, ErrInvalidPairCount)
			assert.Nil(t, cards)
		}
	})
}

func TestFromFaces(t *testing.T) {
	t.Run("Draws distinct faces from the catalogue", func(t *testing.T) {
		// Given: a catalogue with duplicates and blanks
		faces := []string{"cat", "dog", "cat", "", "owl", "fox"}

		// When: building a deck of three pairs
		cards, err := FromFaces(faces, 3)

		// Then: three distinct catalogue faces appear twice each
		require.NoError(t, err)
		assert.Len(t, cards, 6)

		counts := countFaces(cards)
		assert.Len(t, counts, 3)
		for face, count := range counts {
			assert.Contains(t, []string{"cat", "dog", "owl", "fox"}, face)
			assert.Equal(t, 2, count)
		}
	})

	t.Run("Fails when the catalogue is too small", func(t *testing.T) {
		_, err := FromFaces([]string{"cat", "cat"}, 2)

		require.ErrorIs(t, err, ErrNotEnoughFaces)
	})

	t.Run("Does not reorder the caller's slice", func(t *testing.T) {
		faces := []string{"a", "b", "c", "d"}

		_, err := FromFaces(faces, 2)

		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d"}, faces)
	})
}
