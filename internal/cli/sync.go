package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mmcdole/marquee/internal/domain"
)

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Merge the current first page into the cache",
		Long: `Fetch page 1 of the remote list and merge new movies into the head of the
cache. Skips the fetch when the last refresh is younger than
sync.head_refresh_ttl, unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			refresh := a.coordinator.RefreshHeadIfStale
			if force {
				refresh = a.coordinator.RefreshHead
			}
			res, err := refresh(cmd.Context())
			if err != nil {
				return err
			}
			printResult(rootOpts.Out, res)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "refresh even when the head is fresh")
	return cmd
}

// NewNextCommand creates the next command.
func NewNextCommand(rootOpts *RootOptions) *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Load more movies at the end of the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pages < 1 {
				return fmt.Errorf("--pages must be at least 1")
			}

			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			var total domain.SyncResult
			for i := 0; i < pages; i++ {
				res, err := a.coordinator.LoadNextPage(cmd.Context())
				if err != nil {
					return err
				}
				total.Added += res.Added
				total.Pages += res.Pages
				total.Invalidated = total.Invalidated || res.Invalidated
				if res.Skipped {
					total.Skipped = total.Pages == 0
					break
				}
			}
			printResult(rootOpts.Out, total)
			return nil
		},
	}

	cmd.Flags().IntVarP(&pages, "pages", "n", 1, "number of loads to run")
	return cmd
}

func printResult(w io.Writer, res domain.SyncResult) {
	switch {
	case res.Skipped:
		fmt.Fprintln(w, "Nothing to do")
	case res.Invalidated:
		fmt.Fprintf(w, "List changed upstream, rebuilt cache: %d movies from %d pages\n", res.Added, res.Pages)
	default:
		fmt.Fprintf(w, "Added %d movies from %d pages\n", res.Added, res.Pages)
	}
}
