package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vidfetch/internal/captions"
	"vidfetch/internal/language"
)

func newCaptionsCommand(ctx *commandContext) *cobra.Command {
	var formatName string
	var output string

	cmd := &cobra.Command{
		Use:   "captions <file>",
		Short: "Extract captions from a local video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := captions.ParseFormat(formatName)
			if err != nil {
				return err
			}
			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("input file: %w", err)
			}
			kit, err := ctx.toolkit()
			if err != nil {
				return err
			}
			result, err := kit.captions().Extract(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rendered := captions.Render(result.Entries, format)
			if output == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), rendered)
				return err
			}
			if err := os.WriteFile(output, []byte(rendered), 0o644); err != nil {
				return fmt.Errorf("write captions: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d captions (%s, %s) to %s\n",
				len(result.Entries), result.Method, language.DisplayName(result.Language), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&formatName, "format", "f", string(captions.FormatNameSRT), "Output format: srt, vtt, or txt")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}
