// Package main is the entry point for treewatch, an agent that samples the
// aggregated resource usage of process trees on a fixed interval.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "treewatch",
		Short:         "Sample CPU and memory usage of process trees",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newRunCmd(),
		newSampleCmd(),
		newDrainCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Show version and exit",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "treewatch %s\n", version)
			},
		},
	)
	return root
}
