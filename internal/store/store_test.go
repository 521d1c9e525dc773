package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/marquee/internal/domain"
)

func openTestStore(t *testing.T) *MovieStore {
	t.Helper()
	s, err := Open(t.TempDir(), "https://api.themoviedb.org/3")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func storedRange(first, sortStart int64, n int) []domain.StoredMovie {
	out := make([]domain.StoredMovie, n)
	for i := range out {
		out[i] = domain.StoredMovie{
			Movie:     domain.Movie{ID: first + int64(i), Title: "movie"},
			SortIndex: sortStart + int64(i),
		}
	}
	return out
}

func listIDs(t *testing.T, s *MovieStore) []int64 {
	t.Helper()
	all, err := s.List(context.Background(), 0, 0)
	require.NoError(t, err)
	out := make([]int64, len(all))
	for i, m := range all {
		out[i] = m.Movie.ID
	}
	return out
}

func TestMovieStore_EmptyBounds(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.MinSortIndex(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.MaxSortIndex(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMovieStore_NegativeIndicesSortFirst(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BatchInsert(ctx, storedRange(1, 0, 3)))
	require.NoError(t, s.BatchInsert(ctx, storedRange(100, -2, 2)))
	require.NoError(t, s.BatchInsert(ctx, storedRange(200, 3, 1)))

	assert.Equal(t, []int64{100, 101, 1, 2, 3, 200}, listIDs(t, s))

	min, ok, err := s.MinSortIndex(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(-2), min)

	max, ok, err := s.MaxSortIndex(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(3), max)
}

func TestMovieStore_OverlapOrderedBySortIndex(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BatchInsert(ctx, storedRange(1, 0, 6)))

	got, err := s.Overlap(ctx, []int64{6, 99, 4, 5, 4})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(4), got[0].Movie.ID)
	assert.Equal(t, int64(3), got[0].SortIndex)
	assert.Equal(t, int64(6), got[2].Movie.ID)
	assert.Equal(t, "movie", got[2].Movie.Title)
}

func TestMovieStore_OverlapReturnsDuplicateRows(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BatchInsert(ctx, []domain.StoredMovie{
		{Movie: domain.Movie{ID: 7}, SortIndex: 0},
		{Movie: domain.Movie{ID: 7}, SortIndex: 1},
	}))

	got, err := s.Overlap(ctx, []int64{7})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestMovieStore_BatchInsertRejectsUsedIndex(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BatchInsert(ctx, storedRange(1, 0, 2)))
	err := s.BatchInsert(ctx, append(storedRange(10, 2, 1), storedRange(11, 1, 1)...))
	require.Error(t, err)

	// the failed batch is rolled back as a whole
	assert.Equal(t, []int64{1, 2}, listIDs(t, s))
}

func TestMovieStore_ClearAndReplace(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BatchInsert(ctx, storedRange(1, 0, 6)))
	require.NoError(t, s.Replace(ctx, storedRange(8, 0, 3)))
	assert.Equal(t, []int64{8, 9, 10}, listIDs(t, s))

	got, err := s.Overlap(ctx, []int64{1, 2})
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Clear(ctx))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMovieStore_ApplyCommitsMoviesAndSettingsTogether(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BatchInsert(ctx, storedRange(1, 0, 6)))
	require.NoError(t, s.PutInt("lastPageLoaded", 3))

	// duplicate sort index fails the insert after the clear
	err := s.Apply(ctx, domain.Mutation{
		Clear:   true,
		Insert:  append(storedRange(8, 0, 2), storedRange(10, 1, 1)...),
		Cursors: []domain.CursorWrite{{Key: "lastPageLoaded", Value: 1}},
	})
	require.Error(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, listIDs(t, s))
	v, err := s.GetInt("lastPageLoaded", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, v, "cached setting is not updated by a failed apply")

	require.NoError(t, s.Apply(ctx, domain.Mutation{
		Clear:   true,
		Insert:  storedRange(8, 0, 3),
		Cursors: []domain.CursorWrite{{Key: "lastPageLoaded", Value: 1}, {Key: "pagesTotal", Value: 2}},
	}))
	assert.Equal(t, []int64{8, 9, 10}, listIDs(t, s))
	v, err = s.GetInt("lastPageLoaded", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = s.GetInt("pagesTotal", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestMovieStore_ListPaging(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BatchInsert(ctx, storedRange(1, 0, 10)))

	page, err := s.List(ctx, 4, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, int64(5), page[0].Movie.ID)
	assert.Equal(t, int64(7), page[2].Movie.ID)

	page, err = s.List(ctx, 20, 3)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestMovieStore_CanceledContext(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.BatchInsert(ctx, storedRange(1, 0, 1)), context.Canceled)
	assert.Equal(t, []int64{}, listIDs(t, s))
}

func TestMovieStore_SettingsPersist(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir, "simulated")
	require.NoError(t, err)

	v, err := s.GetInt("lastPageLoaded", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	require.NoError(t, s.PutInt("lastPageLoaded", 3))
	require.NoError(t, s.PutLong("lastRefresh", 1700000000000))
	require.NoError(t, s.Close())

	s, err = Open(dir, "simulated")
	require.NoError(t, err)
	defer s.Close()

	v, err = s.GetInt("lastPageLoaded", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	ts, err := s.GetLong("lastRefresh", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ts)
}

func TestSortKeyOrdering(t *testing.T) {
	t.Parallel()

	values := []int64{-1 << 40, -5, -1, 0, 1, 5, 1 << 40}
	for i := 1; i < len(values); i++ {
		assert.Less(t, string(sortKey(values[i-1])), string(sortKey(values[i])))
		assert.Equal(t, values[i], decodeSortKey(sortKey(values[i])))
	}
}
