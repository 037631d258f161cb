package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Guliveer/vitalis/treewatch/internal/collector"
)

func newSampleCmd() *cobra.Command {
	var (
		pid      int32
		ticks    int
		interval time.Duration
		logLevel string
	)
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print one JSON snapshot per tick for a single process tree",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval <= 0 {
				return fmt.Errorf("interval must be positive")
			}
			logger := initLogger(logLevel, "", cmd.ErrOrStderr())
			defer logger.Sync()

			tree, err := collector.NewTreeCollector("", pid, collector.NewPsutilSource(), logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			enc := json.NewEncoder(cmd.OutOrStdout())
			for i := 0; ticks <= 0 || i < ticks; i++ {
				if i > 0 {
					select {
					case <-ctx.Done():
						return nil
					case <-ticker.C:
					}
				}
				snap, err := tree.Collect(ctx)
				if err != nil {
					return err
				}
				if err := enc.Encode(snap); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Int32Var(&pid, "pid", 0, "Root pid of the process tree")
	cmd.Flags().IntVar(&ticks, "ticks", 3, "Number of ticks to sample (0 = until interrupted)")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Time between ticks")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("pid")
	return cmd
}
