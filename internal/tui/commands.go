package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/marquee/internal/library"
	"github.com/mmcdole/marquee/internal/nowplaying"
)

// Command factories for async operations

const syncTimeout = 2 * time.Minute

// LoadMoviesCmd reads the whole cached list
func LoadMoviesCmd(q *library.Queries) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		movies, err := q.All(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading cache"}
		}
		return MoviesLoadedMsg{Movies: movies}
	}
}

// StartupSyncCmd refreshes the head unconditionally when the cache is empty,
// otherwise only when it is stale.
func StartupSyncCmd(c *nowplaying.Coordinator, q *library.Queries) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()

		n, err := q.Count(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: "reading cache"}
		}
		refresh := c.RefreshHeadIfStale
		if n == 0 {
			refresh = c.RefreshHead
		}
		res, err := refresh(ctx)
		return SyncDoneMsg{Op: nowplaying.OpRefreshHead, Result: res, Err: err}
	}
}

// RefreshHeadCmd pulls page 1 and reconciles it
func RefreshHeadCmd(c *nowplaying.Coordinator) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()

		res, err := c.RefreshHead(ctx)
		return SyncDoneMsg{Op: nowplaying.OpRefreshHead, Result: res, Err: err}
	}
}

// LoadNextPageCmd extends the tail
func LoadNextPageCmd(c *nowplaying.Coordinator) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()

		res, err := c.LoadNextPage(ctx)
		return SyncDoneMsg{Op: nowplaying.OpLoadNextPage, Result: res, Err: err}
	}
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
