package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/bft-labs/shmslot/internal/monitor"
)

func newMonitorCommand(c *cli) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Live view of the slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			probe, err := monitor.OpenProbe(c.cfg.Channel())
			if err != nil {
				return err
			}
			defer probe.Close()

			ctx, cancel := c.runContext()
			defer cancel()

			p := tea.NewProgram(monitor.NewModel(probe, interval),
				tea.WithContext(ctx),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			_, err = p.Run()
			if err != nil && ctx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 250*time.Millisecond, "refresh interval")
	return cmd
}
