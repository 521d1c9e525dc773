package nowplaying

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/mmcdole/marquee/internal/domain"
)

// fakeFetcher serves canned pages and records requested page numbers.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[int]domain.Page
	err   error
	calls []int

	// onFetch runs before the response is returned, outside the lock
	onFetch func(ctx context.Context, number int)
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: make(map[int]domain.Page)}
}

func (f *fakeFetcher) set(p domain.Page) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[p.Number] = p
}

func (f *fakeFetcher) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeFetcher) FetchPage(ctx context.Context, number int) (domain.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, number)
	hook := f.onFetch
	f.mu.Unlock()

	if hook != nil {
		hook(ctx, number)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Page{}, f.err
	}
	if p, ok := f.pages[number]; ok {
		return p, nil
	}
	return domain.Page{Number: number, TotalPages: number}, nil
}

func (f *fakeFetcher) Calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int{}, f.calls...)
}

// memStore is an in-memory SyncStore kept sorted by sort index. Apply
// either fails before touching anything or commits the whole mutation.
type memStore struct {
	mu        sync.Mutex
	rows      []domain.StoredMovie
	insertErr error // fails mutations that insert
	mutations int

	values map[string]int64
	writes int
	putErr error // fails cursor writes
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]int64)}
}

func (s *memStore) Overlap(_ context.Context, ids []int64) ([]domain.StoredMovie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.StoredMovie
	for _, r := range s.rows {
		if want[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) MinSortIndex(context.Context) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rows) == 0 {
		return 0, false, nil
	}
	return s.rows[0].SortIndex, true, nil
}

func (s *memStore) MaxSortIndex(context.Context) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rows) == 0 {
		return 0, false, nil
	}
	return s.rows[len(s.rows)-1].SortIndex, true, nil
}

func (s *memStore) Apply(_ context.Context, m domain.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil && len(m.Insert) > 0 {
		return s.insertErr
	}
	if s.putErr != nil && len(m.Cursors) > 0 {
		return s.putErr
	}

	if m.Clear || len(m.Insert) > 0 {
		s.mutations++
	}
	if m.Clear {
		s.rows = nil
	}
	s.rows = append(s.rows, m.Insert...)
	sort.Slice(s.rows, func(i, j int) bool { return s.rows[i].SortIndex < s.rows[j].SortIndex })
	for _, w := range m.Cursors {
		s.writes++
		s.values[w.Key] = w.Value
	}
	return nil
}

func (s *memStore) BatchInsert(ctx context.Context, movies []domain.StoredMovie) error {
	return s.Apply(ctx, domain.Mutation{Insert: movies})
}

func (s *memStore) Clear(ctx context.Context) error {
	return s.Apply(ctx, domain.Mutation{Clear: true})
}

func (s *memStore) Replace(ctx context.Context, movies []domain.StoredMovie) error {
	return s.Apply(ctx, domain.Mutation{Clear: true, Insert: movies})
}

func (s *memStore) List(_ context.Context, offset, limit int) ([]domain.StoredMovie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offset >= len(s.rows) {
		return nil, nil
	}
	end := len(s.rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return append([]domain.StoredMovie{}, s.rows[offset:end]...), nil
}

func (s *memStore) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows), nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) ids() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.ID
	}
	return out
}

func (s *memStore) sortIndices() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.SortIndex
	}
	return out
}

func (s *memStore) mutationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutations
}

func (s *memStore) GetInt(key string, def int) (int, error) {
	v, err := s.GetLong(key, int64(def))
	return int(v), err
}

func (s *memStore) PutInt(key string, value int) error {
	return s.PutLong(key, int64(value))
}

func (s *memStore) GetLong(key string, def int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return def, nil
}

func (s *memStore) PutLong(key string, value int64) error {
	return s.Apply(context.Background(), domain.Mutation{
		Cursors: []domain.CursorWrite{{Key: key, Value: value}},
	})
}

func (s *memStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// cursorValues returns the persisted lastPageLoaded and totalPages.
func (s *memStore) cursorValues() (int, int) {
	last, _ := s.GetInt(KeyLastPageLoaded, 0)
	total, _ := s.GetInt(KeyTotalPages, 1)
	return last, total
}

var errBoom = errors.New("boom")

func movieIDs(ids ...int64) []domain.Movie {
	out := make([]domain.Movie, len(ids))
	for i, id := range ids {
		out[i] = domain.Movie{ID: id}
	}
	return out
}

func idRange(from, to int64) []int64 {
	var out []int64
	for id := from; id <= to; id++ {
		out = append(out, id)
	}
	return out
}

func page(number, totalPages int, ids ...int64) domain.Page {
	return domain.Page{Items: movieIDs(ids...), Number: number, TotalItems: len(ids) * totalPages, TotalPages: totalPages}
}

// seed stores ids at consecutive sort indices starting at zero
func seed(s *memStore, ids ...int64) {
	for i, id := range ids {
		s.rows = append(s.rows, domain.StoredMovie{Movie: domain.Movie{ID: id}, SortIndex: int64(i)})
	}
}
