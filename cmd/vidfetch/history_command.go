package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vidfetch/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent download jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cfg.History.Enabled {
				fmt.Fprintln(out, "Job history is disabled; set [history] enabled = true to record downloads")
				return nil
			}
			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				detail := e.ErrorMessage
				if detail == "" {
					detail = e.Format
				}
				rows = append(rows, []string{
					e.FinishedAt.Local().Format(time.DateTime),
					e.Reference,
					e.Path,
					e.State,
					humanBytes(e.Bytes),
					e.Duration.Round(time.Millisecond).String(),
					dash(detail),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Finished", "Reference", "Path", "State", "Bytes", "Took", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultListLimit, "Maximum number of jobs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}
