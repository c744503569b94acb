package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vidfetch/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.DefaultRequirements(
				cfg.YtDlpBinary(), cfg.FFmpegBinary(), cfg.FFprobeBinary(), cfg.WhisperBinary(),
			))
			rows := make([][]string, 0, len(statuses))
			missing := 0
			for _, s := range statuses {
				state := "ok"
				if !s.Available {
					state = "missing"
					if s.Optional {
						state = "missing (optional)"
					} else {
						missing++
					}
				}
				rows = append(rows, []string{s.Name, state, s.Command, dash(s.Detail), s.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Tool", "Status", "Command", "Detail", "Used for"}, rows, nil,
			))
			if missing > 0 {
				return fmt.Errorf("%d required tool(s) missing", missing)
			}
			return nil
		},
	}
}
