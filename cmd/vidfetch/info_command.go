package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vidfetch/internal/extractor"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info <platform> <ref>",
		Short: "Show metadata and available formats for a video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := extractor.ParseReference(args[0], args[1])
			if err != nil {
				return err
			}
			kit, err := ctx.toolkit()
			if err != nil {
				return err
			}
			info, err := kit.extractor.FetchInfo(cmd.Context(), ref)
			if err != nil {
				return err
			}
			video := extractor.VideoFormats(info.Formats)
			audio := extractor.AudioFormats(info.Formats)

			if asJSON {
				summary := *info
				summary.Formats = nil
				return writeJSON(cmd, map[string]any{
					"info":         summary,
					"formats":      video,
					"audioFormats": audio,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Title:    %s\n", info.Title)
			fmt.Fprintf(out, "Uploader: %s\n", dash(info.Uploader))
			fmt.Fprintf(out, "Duration: %s\n", formatDuration(info.Duration))
			if info.WebpageURL != "" {
				fmt.Fprintf(out, "URL:      %s\n", info.WebpageURL)
			}
			rows := make([][]string, 0, len(video)+len(audio))
			for _, f := range append(video, audio...) {
				rows = append(rows, []string{
					f.FormatID,
					f.QualityLabel,
					dash(f.Container),
					yesNo(f.HasVideo),
					yesNo(f.HasAudio),
					humanBytes(f.Filesize),
				})
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No downloadable formats reported")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Format", "Quality", "Container", "Video", "Audio", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the response as JSON")
	return cmd
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return strconv.Itoa(m) + ":" + fmt.Sprintf("%02d", s)
}
