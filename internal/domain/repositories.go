package domain

import "context"

// PageFetcher returns exactly one page of the remote Now Playing list.
// Page numbering starts at 1. TotalItems and TotalPages reflect the
// server's view at the time of that single response.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) (Page, error)
}

// MovieStore is the ordered local cache, keyed by sort index.
// Only the sync coordinator mutates it; readers may run concurrently.
type MovieStore interface {
	// Overlap returns the stored movies whose IDs are among ids,
	// ordered by ascending sort index.
	Overlap(ctx context.Context, ids []int64) ([]StoredMovie, error)

	// MinSortIndex and MaxSortIndex report ok=false on an empty store.
	MinSortIndex(ctx context.Context) (int64, bool, error)
	MaxSortIndex(ctx context.Context) (int64, bool, error)

	// Apply commits a Mutation, cursor writes included, in one transaction.
	// Nothing is changed when it fails.
	Apply(ctx context.Context, m Mutation) error

	BatchInsert(ctx context.Context, movies []StoredMovie) error
	Clear(ctx context.Context) error

	// Replace clears the store and inserts movies in one transaction.
	Replace(ctx context.Context, movies []StoredMovie) error

	// Read side
	List(ctx context.Context, offset, limit int) ([]StoredMovie, error)
	Count(ctx context.Context) (int, error)

	Close() error
}

// CursorStore is durable key/value persistence for small counters.
type CursorStore interface {
	GetInt(key string, def int) (int, error)
	PutInt(key string, value int) error
	GetLong(key string, def int64) (int64, error)
	PutLong(key string, value int64) error
}

// SyncStore is a MovieStore that also persists the sync cursors.
type SyncStore interface {
	MovieStore
	CursorStore
}

// Mutation is one atomic change of the cache: an optional clear, then the
// inserts, then the cursor writes.
type Mutation struct {
	Clear   bool
	Insert  []StoredMovie
	Cursors []CursorWrite
}

// Empty reports whether applying m would change nothing.
func (m Mutation) Empty() bool {
	return !m.Clear && len(m.Insert) == 0 && len(m.Cursors) == 0
}

// CursorWrite sets one persisted cursor value.
type CursorWrite struct {
	Key   string
	Value int64
}
