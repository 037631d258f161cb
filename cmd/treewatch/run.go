package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/treewatch/internal/buffer"
	"github.com/Guliveer/vitalis/treewatch/internal/collector"
	"github.com/Guliveer/vitalis/treewatch/internal/config"
	"github.com/Guliveer/vitalis/treewatch/internal/models"
	"github.com/Guliveer/vitalis/treewatch/internal/scheduler"
)

func newRunCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sample configured process trees until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configPath == "" {
				configPath = config.Locate()
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logger := initLogger(cfg.Logging.Level, cfg.Logging.File, os.Stdout)
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runAgent(ctx, cfg, logger)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to configuration file (default: search standard locations)")
	return cmd
}

// runAgent wires one tree collector per target into the scheduler and spools
// every batch. It blocks until ctx is cancelled.
func runAgent(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	spool, err := buffer.New(cfg.Spool.Dir, cfg.Spool.MaxSizeMB, logger)
	if err != nil {
		return fmt.Errorf("open spool: %w", err)
	}

	source := collector.NewPsutilSource()
	registry := collector.NewRegistry(logger)
	for _, target := range cfg.Targets {
		pid, err := target.ResolvePID()
		if err != nil {
			return err
		}
		tree, err := collector.NewTreeCollector(target.Name, pid, source, logger)
		if err != nil {
			return fmt.Errorf("target %q: %w", target.Name, err)
		}
		if err := registry.Register(tree); err != nil {
			return err
		}
	}
	if err := registry.Register(collector.NewMemoryCollector()); err != nil {
		return err
	}

	sched := scheduler.New(registry, cfg, logger)
	sched.OnBatchReady(func(batch models.Batch) {
		if err := spool.Store(batch); err != nil {
			logger.Error("Failed to spool batch", zap.Error(err))
		}
	})

	logger.Info("treewatch running",
		zap.String("version", version),
		zap.Int("targets", len(cfg.Targets)),
		zap.String("spool", spool.Dir()),
		zap.Duration("interval", cfg.Collection.Interval.Duration),
		zap.Duration("batch_interval", cfg.Collection.BatchInterval.Duration))
	sched.Start(ctx)
	logger.Info("treewatch stopped")
	return nil
}
