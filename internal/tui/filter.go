package tui

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/marquee/internal/domain"
)

// movieSource implements fuzzy.Source over lowercase titles
type movieSource []domain.StoredMovie

func (s movieSource) String(i int) string { return strings.ToLower(s[i].Title) }

func (s movieSource) Len() int { return len(s) }

// filterMovies returns indices into movies matching query, best match first.
// A blank query returns nil, meaning no filter.
func filterMovies(query string, movies []domain.StoredMovie) []int {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	matches := fuzzy.FindFrom(strings.ToLower(query), movieSource(movies))
	out := make([]int, len(matches))
	for i, m := range matches {
		out[i] = m.Index
	}
	return out
}
