package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/treewatch/internal/buffer"
)

func newDrainCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Print spooled snapshots as JSON lines and remove them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			spool, err := buffer.New(dir, 0, zap.NewNop())
			if err != nil {
				return err
			}
			batches, err := spool.RetrieveAll()
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, batch := range batches {
				for _, snap := range batch.Snapshots {
					if err := enc.Encode(snap); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "./spool", "Spool directory")
	return cmd
}
