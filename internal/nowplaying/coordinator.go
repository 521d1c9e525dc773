// Package nowplaying keeps the local Now Playing cache in step with the
// remote list. A Coordinator owns the pagination cursors, serializes every
// store mutation, and exposes head refresh and next page loading as two
// independently observable operations.
package nowplaying

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/reconcile"
)

// Operation names, used as singleflight keys and telemetry attributes
const (
	OpRefreshHead  = "refresh_head"
	OpLoadNextPage = "load_next_page"
)

// Defaults
const (
	DefaultHeadRefreshTTL = 10 * time.Minute
	DefaultMaxAutoPages   = 20
)

// Option configures a Coordinator
type Option func(*Coordinator)

// WithHeadRefreshTTL sets how long page 1 stays fresh for RefreshHeadIfStale
func WithHeadRefreshTTL(ttl time.Duration) Option {
	return func(c *Coordinator) { c.headTTL = ttl }
}

// WithMaxAutoPages caps the pages one LoadNextPage call may fetch while
// skipping pages that add nothing.
func WithMaxAutoPages(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxAutoPages = n
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLogger sets the logger. A nil logger keeps slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFetchTimeout bounds every single page fetch. Zero means no bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.fetchTimeout = d }
}

// Coordinator is the single writer of a SyncStore.
type Coordinator struct {
	fetcher domain.PageFetcher
	store   domain.SyncStore
	cursors *Cursors

	headTTL      time.Duration
	maxAutoPages int
	fetchTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger

	// applyMu guards overlap, decision, apply and cursor update as one unit
	applyMu sync.Mutex
	group   singleflight.Group

	head *Status
	tail *Status

	otel instruments
}

// New creates a Coordinator, loading the persisted cursors from store.
// Every cache change and the cursor writes it implies are committed to
// store together.
func New(fetcher domain.PageFetcher, store domain.SyncStore, opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		fetcher:      fetcher,
		store:        store,
		headTTL:      DefaultHeadRefreshTTL,
		maxAutoPages: DefaultMaxAutoPages,
		now:          time.Now,
		logger:       slog.Default(),
		head:         newStatus(),
		tail:         newStatus(),
	}
	for _, opt := range opts {
		opt(c)
	}

	cursors, err := LoadCursors(store)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStore, err)
	}
	c.cursors = cursors
	c.otel = newInstruments(c.logger)

	return c, nil
}

// HeadStatus reports busy state and failures of RefreshHead.
func (c *Coordinator) HeadStatus() *Status { return c.head }

// TailStatus reports busy state and failures of LoadNextPage.
func (c *Coordinator) TailStatus() *Status { return c.tail }

// Cursors returns the current pagination cursors.
func (c *Coordinator) Cursors() domain.CursorSnapshot { return c.cursors.Snapshot() }

// RefreshHead fetches page 1 and merges it into the head of the cache,
// rebuilding the cache when the two can no longer be lined up.
func (c *Coordinator) RefreshHead(ctx context.Context) (domain.SyncResult, error) {
	return c.run(ctx, OpRefreshHead, c.head, c.refreshHead)
}

// RefreshHeadIfStale runs RefreshHead only when the last head refresh is
// older than the configured TTL.
func (c *Coordinator) RefreshHeadIfStale(ctx context.Context) (domain.SyncResult, error) {
	last := c.cursors.LastHeadRefresh()
	if !last.IsZero() && c.now().Sub(last) <= c.headTTL {
		c.logger.Debug("head is fresh, skipping refresh", "lastRefresh", last)
		return domain.SyncResult{Skipped: true}, nil
	}
	return c.RefreshHead(ctx)
}

// LoadNextPage appends the page after the last loaded one. Pages that add
// nothing new are skipped automatically, up to the configured cap.
func (c *Coordinator) LoadNextPage(ctx context.Context) (domain.SyncResult, error) {
	return c.run(ctx, OpLoadNextPage, c.tail, c.loadNextPage)
}

// run coalesces concurrent calls of one operation and drives its status.
// The work itself outlives ctx so an apply is never abandoned halfway.
func (c *Coordinator) run(ctx context.Context, op string, status *Status, fn func(context.Context) (domain.SyncResult, error)) (domain.SyncResult, error) {
	ch := c.group.DoChan(op, func() (interface{}, error) {
		runCtx, span := c.otel.tracer.Start(context.WithoutCancel(ctx), "nowplaying."+op)
		defer span.End()

		status.setBusy(true)
		start := c.now()
		c.logger.Debug("sync started", "op", op)

		res, err := fn(runCtx)

		attrs := metric.WithAttributes(attribute.String("op", op))
		if res.Added > 0 {
			c.otel.cntAdded.Add(runCtx, int64(res.Added), attrs)
		}
		c.otel.histDuration.Record(runCtx, c.now().Sub(start).Seconds(), attrs)
		span.SetAttributes(
			attribute.Int("sync.added", res.Added),
			attribute.Int("sync.pages", res.Pages),
			attribute.Bool("sync.invalidated", res.Invalidated),
		)

		status.setBusy(false)
		if err != nil {
			c.otel.cntErrors.Add(runCtx, 1, attrs)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.Error("sync failed", "op", op, "error", err)
			status.publishError(err)
			return res, err
		}

		c.logger.Info("sync complete", "op", op,
			"added", res.Added, "pages", res.Pages, "invalidated", res.Invalidated, "skipped", res.Skipped)
		return res, nil
	})

	select {
	case <-ctx.Done():
		return domain.SyncResult{}, ctx.Err()
	case r := <-ch:
		res, _ := r.Val.(domain.SyncResult)
		return res, r.Err
	}
}

// Reset discards the cache and restores the default cursors in one commit.
func (c *Coordinator) Reset(ctx context.Context) error {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	if err := c.apply(ctx, domain.Mutation{Clear: true}, defaultCursorState); err != nil {
		return storeErr("resetting", err)
	}
	return nil
}

// === Head ===

func (c *Coordinator) refreshHead(ctx context.Context) (domain.SyncResult, error) {
	var res domain.SyncResult

	page, err := c.fetch(ctx, 1)
	if err != nil {
		return res, err
	}
	res.Pages = 1

	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	added, invalidated, err := c.applyHead(ctx, page)
	res.Added, res.Invalidated = added, invalidated
	return res, err
}

// applyHead must be called with applyMu held.
func (c *Coordinator) applyHead(ctx context.Context, page domain.Page) (int, bool, error) {
	overlap, err := c.store.Overlap(ctx, page.IDs())
	if err != nil {
		return 0, false, storeErr("reading overlap", err)
	}
	minIdx, hasMin, err := c.store.MinSortIndex(ctx)
	if err != nil {
		return 0, false, storeErr("reading min sort index", err)
	}

	d := reconcile.DecideHead(reconcile.HeadInput{
		Candidate:    page,
		Overlap:      overlap,
		FirstLoad:    c.cursors.LastPageLoaded() == 0,
		MinSortIndex: minIdx,
		HasMin:       hasMin,
	})
	c.logDecision(ctx, OpRefreshHead, page, len(overlap), d)

	var m domain.Mutation
	switch d.Action {
	case reconcile.Prepend:
		m.Insert = reconcile.Assign(d.Items, reconcile.PrependIndices(len(d.Items), minIdx, hasMin))
	case reconcile.Invalidate:
		m.Clear = true
	case reconcile.InvalidateAndReplace:
		m.Clear = true
		m.Insert = reconcile.Assign(d.Items, reconcile.PrependIndices(len(d.Items), 0, false))
	}

	next := c.cursors.state()
	invalidated := d.Action.Invalidates()
	if invalidated {
		next = defaultCursorState
	}
	if err := c.apply(ctx, m, c.pageLoaded(next, page)); err != nil {
		return 0, false, storeErr("applying head page", err)
	}
	return len(d.Items), invalidated, nil
}

// === Tail ===

func (c *Coordinator) loadNextPage(ctx context.Context) (domain.SyncResult, error) {
	var res domain.SyncResult

	for fetched := 0; ; fetched++ {
		cur := c.cursors.Snapshot()
		if reconcile.Exhausted(cur.LastPageLoaded, cur.TotalPages) {
			if fetched == 0 {
				c.logger.Debug("last page already loaded", "page", cur.LastPageLoaded)
				res.Skipped = true
			}
			return res, nil
		}
		if fetched >= c.maxAutoPages {
			c.logger.Warn("stopping page auto-continuation", "pages", fetched, "lastPage", cur.LastPageLoaded)
			return res, nil
		}

		next := cur.LastPageLoaded + 1
		page, err := c.fetch(ctx, next)
		if err != nil {
			return res, err
		}
		res.Pages++

		outcome, err := c.applyTail(ctx, next, page)
		if err != nil {
			return res, err
		}

		switch {
		case outcome.stale:
			c.logger.Debug("discarding stale page", "page", next)
			continue
		case outcome.invalidated:
			// The tail alone cannot be trusted after a clear, rebuild from page 1
			res.Invalidated = true
			head, err := c.refreshHead(ctx)
			res.Pages += head.Pages
			res.Added += head.Added
			return res, err
		case outcome.done:
			return res, nil
		}

		res.Added += outcome.added
		if outcome.added > 0 {
			return res, nil
		}
	}
}

type tailOutcome struct {
	added       int
	stale       bool // cursors moved while fetching
	invalidated bool // store and cursors were cleared
	done        bool // nothing left to load
}

func (c *Coordinator) applyTail(ctx context.Context, requested int, page domain.Page) (tailOutcome, error) {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	cur := c.cursors.Snapshot()
	if cur.LastPageLoaded+1 != requested {
		return tailOutcome{stale: true}, nil
	}

	overlap, err := c.store.Overlap(ctx, page.IDs())
	if err != nil {
		return tailOutcome{}, storeErr("reading overlap", err)
	}
	maxIdx, hasMax, err := c.store.MaxSortIndex(ctx)
	if err != nil {
		return tailOutcome{}, storeErr("reading max sort index", err)
	}

	d := reconcile.DecideTail(reconcile.TailInput{
		Candidate:      page,
		Overlap:        overlap,
		LastPageLoaded: cur.LastPageLoaded,
		TotalPages:     cur.TotalPages,
		MaxSortIndex:   maxIdx,
		HasMax:         hasMax,
	})
	c.logDecision(ctx, OpLoadNextPage, page, len(overlap), d)

	switch d.Action {
	case reconcile.NoFetch:
		return tailOutcome{done: true}, nil
	case reconcile.NoOp:
		// An empty page ends the chain
		if err := c.apply(ctx, domain.Mutation{}, c.pageLoaded(c.cursors.state(), page)); err != nil {
			return tailOutcome{}, storeErr("recording empty page", err)
		}
		return tailOutcome{done: true}, nil
	case reconcile.Append:
		var m domain.Mutation
		if len(d.Items) > 0 {
			m.Insert = reconcile.Assign(d.Items, reconcile.AppendIndices(len(d.Items), maxIdx, hasMax))
		}
		if err := c.apply(ctx, m, c.pageLoaded(c.cursors.state(), page)); err != nil {
			return tailOutcome{}, storeErr("appending", err)
		}
		return tailOutcome{added: len(d.Items)}, nil
	default:
		if err := c.apply(ctx, domain.Mutation{Clear: true}, defaultCursorState); err != nil {
			return tailOutcome{}, storeErr("clearing", err)
		}
		return tailOutcome{invalidated: true}, nil
	}
}

// === Shared ===

func (c *Coordinator) fetch(ctx context.Context, number int) (domain.Page, error) {
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}

	page, err := c.fetcher.FetchPage(ctx, number)
	if err != nil {
		return domain.Page{}, fmt.Errorf("%w: page %d: %w", domain.ErrFetch, number, err)
	}
	c.otel.cntPages.Add(ctx, 1)
	return page, nil
}

// pageLoaded returns the cursors s advanced past page.
func (c *Coordinator) pageLoaded(s cursorState, page domain.Page) cursorState {
	s.lastPageLoaded = max(s.lastPageLoaded, page.Number)
	if page.Number == 1 {
		s.lastHeadRefresh = c.now().UnixMilli()
	}
	s.totalPages = page.TotalPages
	return s
}

// apply commits m together with the cursor writes leading to next, then
// adopts next in memory. On error neither the store nor the cursors change.
// Must be called with applyMu held.
func (c *Coordinator) apply(ctx context.Context, m domain.Mutation, next cursorState) error {
	m.Cursors = c.cursors.writes(next)
	if !m.Empty() {
		if err := c.store.Apply(ctx, m); err != nil {
			return err
		}
	}
	c.cursors.commit(next)
	return nil
}

func (c *Coordinator) logDecision(ctx context.Context, op string, page domain.Page, overlap int, d reconcile.Decision) {
	attrs := metric.WithAttributes(attribute.String("op", op))
	if d.Action.Invalidates() {
		c.otel.cntInvalidated.Add(ctx, 1, attrs)
		c.logger.Info("cache invalidated", "op", op, "page", page.Number, "reason", d.Reason)
	} else {
		c.logger.Debug("page reconciled", "op", op, "page", page.Number,
			"items", len(page.Items), "overlap", overlap, "action", d.Action.String(), "reason", d.Reason)
	}
}

func storeErr(what string, err error) error {
	if errors.Is(err, domain.ErrStore) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStore, what, err)
}
