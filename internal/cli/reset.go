package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmcdole/marquee/internal/config"
)

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop the cached list",
		Long: `Drop the cached list and sync cursors for the configured source. With --all,
remove the whole cache directory, including other sources.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				cfg, err := loadConfig(rootOpts)
				if err != nil {
					return err
				}
				if err := config.ClearCache(cfg.Cache.Dir); err != nil {
					return err
				}
				fmt.Fprintf(rootOpts.Out, "Removed %s\n", cfg.Cache.Dir)
				return nil
			}

			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.coordinator.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(rootOpts.Out, "Cache cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "remove the cache for every source")
	return cmd
}
