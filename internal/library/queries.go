// Package library is the read side of the movie cache.
package library

import (
	"context"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mmcdole/marquee/internal/domain"
)

// Queries provides cache-only reads. It never mutates the store.
type Queries struct {
	store domain.MovieStore
}

// NewQueries creates a new Queries instance.
func NewQueries(store domain.MovieStore) *Queries {
	return &Queries{store: store}
}

// Page returns up to limit movies starting at offset, in list order.
func (q *Queries) Page(ctx context.Context, offset, limit int) ([]domain.StoredMovie, error) {
	if limit <= 0 {
		return nil, nil
	}
	return q.store.List(ctx, offset, limit)
}

func (q *Queries) Count(ctx context.Context) (int, error) {
	return q.store.Count(ctx)
}

// All returns every cached movie in list order.
func (q *Queries) All(ctx context.Context) ([]domain.StoredMovie, error) {
	return q.store.List(ctx, 0, 0)
}

// Search fuzzy matches query against cached titles. Results are ordered by
// match distance, ties keep list order. An empty query returns everything.
func (q *Queries) Search(ctx context.Context, query string) ([]domain.StoredMovie, error) {
	movies, err := q.All(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return movies, nil
	}

	titles := make([]string, len(movies))
	for i, m := range movies {
		titles[i] = m.Title
	}

	ranks := fuzzy.RankFindNormalizedFold(query, titles)
	sort.Stable(ranks)

	results := make([]domain.StoredMovie, 0, len(ranks))
	for _, r := range ranks {
		results = append(results, movies[r.OriginalIndex])
	}
	return results, nil
}
