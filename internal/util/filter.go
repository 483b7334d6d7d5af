package util

import "github.com/sahilm/fuzzy"

type keySource[T any] struct {
	items []T
	key   func(T) string
}

func (s keySource[T]) String(i int) string { return s.key(s.items[i]) }
func (s keySource[T]) Len() int            { return len(s.items) }

// FuzzyFilter returns the items whose key matches pattern, best match first.
// An empty pattern returns items unchanged.
func FuzzyFilter[T any](items []T, pattern string, key func(T) string) []T {
	if pattern == "" {
		return items
	}

	matches := fuzzy.FindFrom(pattern, keySource[T]{items: items, key: key})
	out := make([]T, 0, len(matches))
	for _, m := range matches {
		out = append(out, items[m.Index])
	}
	return out
}
