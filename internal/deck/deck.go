// Package deck builds shuffled sequences of paired card face values.
package deck

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
)

// DefaultPairCount - pairs on a standard 4x4 board.
const DefaultPairCount = 8

var (
	ErrInvalidPairCount = errors.New("pair count must be positive")
	ErrNotEnoughFaces   = errors.New("not enough distinct card faces")
)

// Generate - returns 2*pairCount face values where each of pairCount distinct faces appears exactly twice.
func Generate(pairCount int) ([]string, error) {
	if pairCount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPairCount, pairCount)
	}

	faces := make([]string, pairCount)
	for i := range faces {
		faces[i] = strconv.Itoa(i)
	}

	return build(faces), nil
}

// FromFaces - draws pairCount distinct faces from the catalogue and builds a shuffled deck of them.
func FromFaces(faces []string, pairCount int) ([]string, error) {
	if pairCount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPairCount, pairCount)
	}

	distinct := unique(faces)
	if len(distinct) < pairCount {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrNotEnoughFaces, pairCount, len(distinct))
	}

	rand.Shuffle(len(distinct), func(i, j int) {
		distinct[i], distinct[j] = distinct[j], distinct[i]
	})

	return build(distinct[:pairCount]), nil
}

func build(faces []string) []string {
	cards := make([]string, 0, len(faces)*2)
	for _, face := range faces {
		cards = append(cards, face, face)
	}

	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})

	return cards
}

func unique(faces []string) []string {
	seen := make(map[string]struct{}, len(faces))
	out := make([]string, 0, len(faces))

	for _, face := range faces {
		if _, ok := seen[face]; ok || face == "" {
			continue
		}
		seen[face] = struct{}{}
		out = append(out, face)
	}

	return out
}
