package domain

import "time"

// CursorSnapshot is a point-in-time copy of the pagination cursors.
type CursorSnapshot struct {
	LastPageLoaded  int
	TotalPages      int
	LastHeadRefresh time.Time
}

// SyncResult summarizes one sync operation.
type SyncResult struct {
	Added       int  // movies inserted by this run
	Pages       int  // pages fetched (including auto-continuation)
	Invalidated bool // cache was cleared and rebuilt
	Skipped     bool // nothing fetched (fresh head, or no more pages)
}
