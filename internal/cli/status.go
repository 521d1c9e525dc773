package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmcdole/marquee/internal/reconcile"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cache size and sync cursors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			count, err := a.queries.Count(cmd.Context())
			if err != nil {
				return err
			}
			snap := a.coordinator.Cursors()

			refreshed := "never"
			stale := true
			if !snap.LastHeadRefresh.IsZero() {
				age := time.Since(snap.LastHeadRefresh).Truncate(time.Second)
				refreshed = fmt.Sprintf("%s (%s ago)", snap.LastHeadRefresh.Local().Format(time.DateTime), age)
				stale = age > a.cfg.Sync.HeadRefreshTTL
			}

			w := rootOpts.Out
			fmt.Fprintf(w, "Source:        %s\n", a.cfg.Remote.Type)
			fmt.Fprintf(w, "Cache:         %s (%s)\n", a.cfg.Cache.Dir, a.cfg.Cache.Backend)
			fmt.Fprintf(w, "Movies:        %d\n", count)
			fmt.Fprintf(w, "Pages loaded:  %d of %d\n", snap.LastPageLoaded, snap.TotalPages)
			fmt.Fprintf(w, "Exhausted:     %t\n", reconcile.Exhausted(snap.LastPageLoaded, snap.TotalPages))
			fmt.Fprintf(w, "Head refresh:  %s\n", refreshed)
			fmt.Fprintf(w, "Head stale:    %t\n", stale)
			return nil
		},
	}
}
