// Package simulator provides an offline Now Playing source whose list keeps
// growing at the head, which shifts every page the way the real API does.
package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/mmcdole/marquee/internal/domain"
)

// Defaults
const (
	DefaultInitialCount = 90
	DefaultAddInterval  = 5 * time.Second
	DefaultPageSize     = 20
)

// Options configures a Fetcher. Zero values select the defaults.
type Options struct {
	InitialCount int
	AddInterval  time.Duration
	PageSize     int
	Latency      time.Duration    // artificial delay per fetch
	Now          func() time.Time // clock, for tests
}

// Fetcher implements domain.PageFetcher over a synthetic list.
//
// At start the list holds InitialCount movies with IDs 1..InitialCount.
// Every AddInterval one more movie appears in front of the current head,
// with IDs continuing after InitialCount.
type Fetcher struct {
	initial  int64
	interval time.Duration
	pageSize int64
	latency  time.Duration
	now      func() time.Time
	start    time.Time

	mu       sync.Mutex
	reversed bool
}

// New creates a Fetcher whose clock starts now
func New(opts Options) *Fetcher {
	f := &Fetcher{
		initial:  DefaultInitialCount,
		interval: DefaultAddInterval,
		pageSize: DefaultPageSize,
		latency:  opts.Latency,
		now:      time.Now,
	}
	if opts.InitialCount > 0 {
		f.initial = int64(opts.InitialCount)
	}
	if opts.AddInterval > 0 {
		f.interval = opts.AddInterval
	}
	if opts.PageSize > 0 {
		f.pageSize = int64(opts.PageSize)
	}
	if opts.Now != nil {
		f.now = opts.Now
	}
	f.start = f.now()
	return f
}

// SetReversed flips the order of items within every page. Reversed pages no
// longer line up with cached ones, which forces a rebuild.
func (f *Fetcher) SetReversed(reversed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reversed = reversed
}

// FetchPage returns the requested page of the list as it looks right now
func (f *Fetcher) FetchPage(ctx context.Context, page int) (domain.Page, error) {
	if page < 1 {
		return domain.Page{}, fmt.Errorf("invalid page number %d", page)
	}

	if f.latency > 0 {
		select {
		case <-ctx.Done():
			return domain.Page{}, ctx.Err()
		case <-time.After(f.latency):
		}
	}

	f.mu.Lock()
	reversed := f.reversed
	f.mu.Unlock()

	added := int64(f.now().Sub(f.start) / f.interval)
	total := f.initial + added
	totalPages := (total + f.pageSize - 1) / f.pageSize

	// positions are relative to the original head; new movies sit at negative positions
	first := -added + int64(page-1)*f.pageSize
	last := min(f.initial, first+f.pageSize)

	var items []domain.Movie
	for pos := first; pos < last; pos++ {
		items = append(items, f.movieAt(pos))
	}
	if reversed {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}

	return domain.Page{
		Items:      items,
		Number:     page,
		TotalItems: int(total),
		TotalPages: int(totalPages),
	}, nil
}

// movieAt builds the movie at a position relative to the original head
func (f *Fetcher) movieAt(pos int64) domain.Movie {
	id := pos + 1
	label := pos + 1
	if pos < 0 {
		id = f.initial - pos
		label = pos
	}
	released := f.start.Add(-time.Duration(pos) * f.interval)

	return domain.Movie{
		ID:          id,
		Title:       fmt.Sprintf("Movie #%d / %s", label, released.Format("15:04:05 2006-01-02")),
		Overview:    fmt.Sprintf("Description of the movie %d / %d.", id, label),
		ReleaseDate: released,
		VoteAverage: rand.New(rand.NewSource(id)).Float64() * 10, //nolint:gosec // deterministic fake rating
	}
}
