package simulator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/marquee/internal/domain"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func pageIDs(p domain.Page) []int64 {
	ids := make([]int64, len(p.Items))
	for i, m := range p.Items {
		ids[i] = m.ID
	}
	return ids
}

func TestFetcher_InitialList(t *testing.T) {
	t.Parallel()
	clk := &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	f := New(Options{Now: clk.Now})
	ctx := context.Background()

	p1, err := f.FetchPage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 90, p1.TotalItems)
	assert.Equal(t, 5, p1.TotalPages)
	require.Len(t, p1.Items, 20)
	assert.Equal(t, int64(1), p1.Items[0].ID)
	assert.Equal(t, int64(20), p1.Items[19].ID)

	p5, err := f.FetchPage(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, p5.Items, 10)
	assert.Equal(t, int64(90), p5.Items[9].ID)

	p6, err := f.FetchPage(ctx, 6)
	require.NoError(t, err)
	assert.Empty(t, p6.Items)
}

func TestFetcher_NewMoviesShiftPages(t *testing.T) {
	t.Parallel()
	clk := &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	f := New(Options{Now: clk.Now, PageSize: 5, InitialCount: 10})
	ctx := context.Background()

	clk.Advance(2*DefaultAddInterval + time.Second)

	p1, err := f.FetchPage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{12, 11, 1, 2, 3}, pageIDs(p1))
	assert.Equal(t, 12, p1.TotalItems)
	assert.Equal(t, 3, p1.TotalPages)

	p2, err := f.FetchPage(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5, 6, 7, 8}, pageIDs(p2))

	p3, err := f.FetchPage(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 10}, pageIDs(p3))
}

func TestFetcher_Reversed(t *testing.T) {
	t.Parallel()
	f := New(Options{PageSize: 3, InitialCount: 6})
	f.SetReversed(true)

	p, err := f.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, pageIDs(p))
}

func TestFetcher_StableMovieContent(t *testing.T) {
	t.Parallel()
	clk := &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	f := New(Options{Now: clk.Now})
	ctx := context.Background()

	before, err := f.FetchPage(ctx, 1)
	require.NoError(t, err)
	clk.Advance(DefaultAddInterval)
	after, err := f.FetchPage(ctx, 1)
	require.NoError(t, err)

	// movie 1 moved one slot down but is otherwise identical
	assert.Equal(t, before.Items[0], after.Items[1])
}

func TestFetcher_LatencyHonorsContext(t *testing.T) {
	t.Parallel()
	f := New(Options{Latency: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.FetchPage(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
