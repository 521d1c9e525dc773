// Package cli implements the marquee command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	Verbose    bool

	Out io.Writer
	Err io.Writer
}

// NewRootCommand creates the root command. Without a subcommand it opens
// the interactive browser.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{Out: os.Stdout, Err: os.Stderr}

	cmd := &cobra.Command{
		Use:   "marquee",
		Short: "Browse the movies now playing in theaters",
		Long: `marquee keeps a local, ordered cache of the Now Playing movie list and
keeps it in step with the remote list as it shifts between visits.

Run without arguments to open the interactive browser.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.Out = cmd.OutOrStdout()
			opts.Err = cmd.ErrOrStderr()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowser(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default ~/.config/marquee/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewRefreshCommand(opts))
	cmd.AddCommand(NewNextCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewVersionCommand(version))

	return cmd
}

// NewVersionCommand prints the build version.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "marquee %s\n", version)
		},
	}
}
