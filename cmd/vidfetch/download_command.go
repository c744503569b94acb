package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidfetch/internal/extractor"
	"vidfetch/internal/history"
	"vidfetch/internal/transform"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var (
		formatID string
		quality  string
		start    float64
		end      float64
		h264     bool
		output   string
	)

	cmd := &cobra.Command{
		Use:   "download <platform> <ref>",
		Short: "Download a video, optionally clipped and re-encoded",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := extractor.ParseReference(args[0], args[1])
			if err != nil {
				return err
			}
			req := transform.Request{
				Reference: ref,
				FormatID:  strings.TrimSpace(formatID),
				Quality:   strings.TrimSpace(quality),
				Encoding:  transform.EncodingOriginal,
			}
			if h264 {
				req.Encoding = transform.EncodingH264
			}
			startSet, endSet := cmd.Flags().Changed("start"), cmd.Flags().Changed("end")
			if startSet != endSet {
				return errors.New("--start and --end must be given together")
			}
			if startSet {
				if err := transform.ValidateClip(start, end, 0); err != nil {
					return err
				}
				req.Clip = &transform.ClipRange{Start: start, End: end}
			}

			kit, err := ctx.toolkit()
			if err != nil {
				return err
			}
			var recorder transform.Recorder
			if kit.cfg.History.Enabled {
				store, err := history.Open(kit.cfg.History.Path)
				if err != nil {
					return err
				}
				defer store.Close()
				recorder = store
			}
			pipeline, err := kit.pipeline(recorder)
			if err != nil {
				return err
			}

			stream, err := pipeline.Open(cmd.Context(), req)
			if err != nil {
				return err
			}
			defer stream.Close()

			target := strings.TrimSpace(output)
			if target == "" {
				target = stream.Filename()
			}
			if info, err := os.Stat(target); err == nil && info.IsDir() {
				target = filepath.Join(target, stream.Filename())
			}
			written, err := writeStream(target, stream)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s, %s)\n", target, humanBytes(written), stream.Job().Elapsed().Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&formatID, "format", "f", "", "Format id to download")
	cmd.Flags().StringVarP(&quality, "quality", "q", "", "Quality label to download (for example 720p)")
	cmd.Flags().Float64Var(&start, "start", 0, "Clip start in seconds")
	cmd.Flags().Float64Var(&end, "end", 0, "Clip end in seconds")
	cmd.Flags().BoolVar(&h264, "h264", false, "Re-encode to H.264/AAC")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file or directory (default: suggested filename)")
	return cmd
}

// writeStream copies the stream into a sibling temp file and renames it into
// place, so an interrupted download never leaves a truncated target.
func writeStream(target string, r io.Reader) (int64, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return 0, fmt.Errorf("create output file: %w", err)
	}
	written, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		if copyErr != nil {
			return written, copyErr
		}
		return written, fmt.Errorf("close output file: %w", closeErr)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return written, fmt.Errorf("finalize output file: %w", err)
	}
	return written, nil
}
