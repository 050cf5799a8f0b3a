package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bft-labs/shmslot/pkg/segment"
)

func newKeyCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "key [key]",
		Short: "Print the segment key derived from seed and salt, or parse one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := c.cfg.Channel().Key()
			if len(args) == 1 {
				var err error
				if key, err = segment.ParseKey(args[0]); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", key, int32(key))
			return nil
		},
	}
}
