package nowplaying

import (
	"fmt"
	"sync"
	"time"

	"github.com/mmcdole/marquee/internal/domain"
)

// Persisted cursor keys
const (
	KeyLastHeadRefresh = "lastRefresh"
	KeyLastPageLoaded  = "lastPageLoaded"
	KeyTotalPages      = "pagesTotal"
)

// Cursors holds the pagination state in memory and writes every change
// through to a CursorStore. Setters skip the write when nothing changed.
//
// The coordinator does not use the setters. It plans a cursorState,
// persists its writes together with the store mutation, and only then
// commits the plan to memory.
type Cursors struct {
	store domain.CursorStore

	mu              sync.RWMutex
	lastPageLoaded  int
	totalPages      int
	lastHeadRefresh int64 // epoch millis
}

// cursorState is one full set of cursor values.
type cursorState struct {
	lastPageLoaded  int
	totalPages      int
	lastHeadRefresh int64
}

// defaultCursorState is the state of an empty cache.
var defaultCursorState = cursorState{totalPages: 1}

// LoadCursors reads the persisted cursors, falling back to defaults.
func LoadCursors(store domain.CursorStore) (*Cursors, error) {
	c := &Cursors{store: store}

	var err error
	if c.lastPageLoaded, err = store.GetInt(KeyLastPageLoaded, 0); err != nil {
		return nil, fmt.Errorf("reading %s: %w", KeyLastPageLoaded, err)
	}
	if c.totalPages, err = store.GetInt(KeyTotalPages, 1); err != nil {
		return nil, fmt.Errorf("reading %s: %w", KeyTotalPages, err)
	}
	if c.lastHeadRefresh, err = store.GetLong(KeyLastHeadRefresh, 0); err != nil {
		return nil, fmt.Errorf("reading %s: %w", KeyLastHeadRefresh, err)
	}
	return c, nil
}

func (c *Cursors) LastPageLoaded() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastPageLoaded
}

func (c *Cursors) TotalPages() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalPages
}

// LastHeadRefresh returns the time of the last successful page 1 apply,
// or the zero time if there was none.
func (c *Cursors) LastHeadRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return millisToTime(c.lastHeadRefresh)
}

// Snapshot returns a copy of all three cursors.
func (c *Cursors) Snapshot() domain.CursorSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.CursorSnapshot{
		LastPageLoaded:  c.lastPageLoaded,
		TotalPages:      c.totalPages,
		LastHeadRefresh: millisToTime(c.lastHeadRefresh),
	}
}

func (c *Cursors) SetLastPageLoaded(v int) error {
	return c.setInt(&c.lastPageLoaded, KeyLastPageLoaded, v)
}

func (c *Cursors) SetTotalPages(v int) error {
	return c.setInt(&c.totalPages, KeyTotalPages, v)
}

func (c *Cursors) SetLastHeadRefresh(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := t.UnixMilli()
	if t.IsZero() {
		v = 0
	}
	if c.lastHeadRefresh == v {
		return nil
	}
	if err := c.store.PutLong(KeyLastHeadRefresh, v); err != nil {
		return fmt.Errorf("writing %s: %w", KeyLastHeadRefresh, err)
	}
	c.lastHeadRefresh = v
	return nil
}

// state returns the current values.
func (c *Cursors) state() cursorState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cursorState{
		lastPageLoaded:  c.lastPageLoaded,
		totalPages:      c.totalPages,
		lastHeadRefresh: c.lastHeadRefresh,
	}
}

// writes lists the store writes that turn the current values into next.
func (c *Cursors) writes(next cursorState) []domain.CursorWrite {
	cur := c.state()

	var out []domain.CursorWrite
	if next.totalPages != cur.totalPages {
		out = append(out, domain.CursorWrite{Key: KeyTotalPages, Value: int64(next.totalPages)})
	}
	if next.lastPageLoaded != cur.lastPageLoaded {
		out = append(out, domain.CursorWrite{Key: KeyLastPageLoaded, Value: int64(next.lastPageLoaded)})
	}
	if next.lastHeadRefresh != cur.lastHeadRefresh {
		out = append(out, domain.CursorWrite{Key: KeyLastHeadRefresh, Value: next.lastHeadRefresh})
	}
	return out
}

// commit adopts next. Its writes must already be persisted.
func (c *Cursors) commit(next cursorState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPageLoaded = next.lastPageLoaded
	c.totalPages = next.totalPages
	c.lastHeadRefresh = next.lastHeadRefresh
}

// Reset restores the defaults used after the cache is discarded.
func (c *Cursors) Reset() error {
	if err := c.SetTotalPages(1); err != nil {
		return err
	}
	if err := c.SetLastPageLoaded(0); err != nil {
		return err
	}
	return c.SetLastHeadRefresh(time.Time{})
}

func (c *Cursors) setInt(field *int, key string, v int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if *field == v {
		return nil
	}
	if err := c.store.PutInt(key, v); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	*field = v
	return nil
}

func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
