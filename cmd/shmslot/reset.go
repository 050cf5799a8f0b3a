package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bft-labs/shmslot/pkg/segment"
)

func newResetCommand(c *cli) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove the segment so both sides start clean",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := c.cfg.Channel()
			mgr, err := lib.NewManager(segment.WithLogger(c.logger))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			h, err := mgr.Open(lib.Key())
			if errors.Is(err, segment.ErrSegmentNotFound) {
				fmt.Fprintf(out, "no segment for key %s\n", lib.Key())
				return nil
			}
			if err != nil {
				return err
			}

			info, err := mgr.Stat(h)
			if err != nil {
				return err
			}
			if info.Attached > 0 && !force {
				return fmt.Errorf("segment %s is attached by %d process(es); stop them or pass --force", info.Name, info.Attached)
			}
			if err := mgr.Destroy(h); err != nil {
				return err
			}
			fmt.Fprintf(out, "removed %s (%s)\n", info.Name, lib.Key())
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "remove even while processes are attached")
	return cmd
}
