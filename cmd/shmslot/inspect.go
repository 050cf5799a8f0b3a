package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bft-labs/shmslot/internal/monitor"
	"github.com/bft-labs/shmslot/pkg/segment"
)

func newInspectCommand(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the segment and the current frame without consuming it",
		RunE: func(cmd *cobra.Command, args []string) error {
			probe, err := monitor.OpenProbe(c.cfg.Channel(), segment.WithLogger(c.logger))
			if err != nil {
				return err
			}
			defer probe.Close()

			s, err := probe.Sample()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			fmt.Fprintln(out, monitor.Render(s))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the sample as JSON")
	return cmd
}
