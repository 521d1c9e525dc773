package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/marquee/internal/domain"
)

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// MoviesLoadedMsg carries the cached list read after a sync
type MoviesLoadedMsg struct {
	Movies []domain.StoredMovie
}

// SyncDoneMsg signals that a coordinator operation returned
type SyncDoneMsg struct {
	Op     string
	Result domain.SyncResult
	Err    error
}

// BusyMsg reports an operation's busy flag. NextCmd keeps listening.
type BusyMsg struct {
	Op      string
	Busy    bool
	NextCmd tea.Cmd
}

// SyncErrMsg is one error from an operation's error stream
type SyncErrMsg struct {
	Op      string
	Err     error
	NextCmd tea.Cmd
}

// ClearStatusMsg clears the footer status
type ClearStatusMsg struct{}
