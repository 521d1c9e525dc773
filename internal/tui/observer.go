package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/marquee/internal/nowplaying"
)

// statusFeed holds the subscriptions for one operation.
type statusFeed struct {
	op     string
	busy   <-chan bool
	errs   <-chan error
	cancel []func()
}

func subscribe(op string, status *nowplaying.Status) *statusFeed {
	busy, unsubBusy := status.SubscribeBusy()
	errs, unsubErrs := status.SubscribeErrors()
	return &statusFeed{
		op:     op,
		busy:   busy,
		errs:   errs,
		cancel: []func(){unsubBusy, unsubErrs},
	}
}

// listen returns the commands that wait for the next busy and error values.
func (f *statusFeed) listen() tea.Cmd {
	return tea.Batch(f.listenBusy(), f.listenErrors())
}

func (f *statusFeed) listenBusy() tea.Cmd {
	return func() tea.Msg {
		busy, ok := <-f.busy
		if !ok {
			return nil
		}
		return BusyMsg{Op: f.op, Busy: busy, NextCmd: f.listenBusy()}
	}
}

func (f *statusFeed) listenErrors() tea.Cmd {
	return func() tea.Msg {
		err, ok := <-f.errs
		if !ok {
			return nil
		}
		return SyncErrMsg{Op: f.op, Err: err, NextCmd: f.listenErrors()}
	}
}

func (f *statusFeed) close() {
	for _, c := range f.cancel {
		c()
	}
}
