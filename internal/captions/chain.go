package captions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vidfetch/internal/deps"
	"vidfetch/internal/language"
	"vidfetch/internal/logging"
	"vidfetch/internal/media/ffprobe"
	"vidfetch/internal/metrics"
	"vidfetch/internal/runner"
	"vidfetch/internal/services"
)

// Defaults for the speech fallback.
const (
	DefaultWhisperModel   = "base"
	DefaultSpeechLanguage = "en"
)

// ErrNoSpeechEngine is returned when a file has no usable embedded captions
// and the speech engine cannot be invoked.
var ErrNoSpeechEngine = services.Wrap(services.ErrUnsupported, "captions", "speech fallback",
	"no embedded captions found and no speech engine available (install openai-whisper)", nil)

// Options configures a Chain. Empty binaries resolve through the deps search
// order.
type Options struct {
	Runner         runner.Runner
	FFmpeg         string
	FFprobe        string
	Whisper        string
	WhisperModel   string
	SpeechLanguage string
	// TempRoot is where isolated work dirs are created; empty uses os.TempDir.
	TempRoot string
	Logger   *slog.Logger
}

// Chain extracts captions from a local media file: embedded subtitle streams
// first, speech recognition when none yield entries.
type Chain struct {
	runner         runner.Runner
	ffmpeg         string
	ffprobe        string
	whisper        string
	model          string
	speechLanguage string
	tempRoot       string
	logger         *slog.Logger
}

// NewChain constructs a Chain.
func NewChain(opts Options) *Chain {
	return &Chain{
		runner:         opts.Runner,
		ffmpeg:         binaryOr(opts.FFmpeg, deps.FFmpegCommand),
		ffprobe:        binaryOr(opts.FFprobe, deps.FFprobeCommand),
		whisper:        binaryOr(opts.Whisper, deps.WhisperCommand),
		model:          valueOr(opts.WhisperModel, DefaultWhisperModel),
		speechLanguage: valueOr(opts.SpeechLanguage, DefaultSpeechLanguage),
		tempRoot:       strings.TrimSpace(opts.TempRoot),
		logger:         logging.NewComponentLogger(opts.Logger, "captions"),
	}
}

// Extract runs the chain against path. Embedded extraction problems fall
// through to speech; a speech failure is terminal.
func (c *Chain) Extract(ctx context.Context, path string) (Result, error) {
	logger := logging.WithContext(ctx, c.logger).With(logging.String("file", filepath.Base(path)))
	if err := ctx.Err(); err != nil {
		return Result{}, services.Wrap(services.ErrCancelled, "captions", "extract", "", err)
	}

	streams, err := ffprobe.ProbeSubtitles(ctx, c.runner, c.ffprobe, path)
	if err != nil {
		if cancelled(ctx, err) {
			return Result{}, err
		}
		logger.Debug("subtitle probe failed; treating as no embedded streams", logging.Error(err))
		streams = nil
	}

	if len(streams) > 0 {
		stream := streams[0]
		entries, err := c.extractEmbedded(ctx, path, stream.Index)
		switch {
		case err != nil && cancelled(ctx, err):
			return Result{}, err
		case err != nil:
			logging.WarnWithContext(logger, "embedded subtitle extraction failed", "caption_embedded_failed",
				logging.Int("stream_index", stream.Index),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the subtitle codec may be image based"),
				logging.String(logging.FieldImpact, "falling back to speech recognition"),
			)
		case len(entries) > 0:
			lang := language.Canonicalize(stream.Language)
			metrics.CaptionExtractionsTotal.WithLabelValues(string(MethodEmbedded), "success").Inc()
			logger.Info("captions extracted from embedded stream",
				logging.Int("stream_index", stream.Index),
				logging.String("language", lang),
				logging.Int("entries", len(entries)),
			)
			return Result{Entries: entries, Method: MethodEmbedded, Language: lang}, nil
		default:
			logger.Info("embedded subtitles produced no entries; falling back to speech",
				logging.Int("stream_index", stream.Index))
		}
	}

	result, err := c.transcribe(ctx, path)
	if err != nil {
		metrics.CaptionExtractionsTotal.WithLabelValues(string(MethodSpeech), string(services.KindOf(err))).Inc()
		return Result{}, err
	}
	metrics.CaptionExtractionsTotal.WithLabelValues(string(MethodSpeech), "success").Inc()
	logger.Info("captions transcribed from speech", logging.Int("entries", len(result.Entries)))
	return result, nil
}

// SpeechAvailable reports whether the speech engine answers --help with a
// zero exit.
func (c *Chain) SpeechAvailable(ctx context.Context) (bool, error) {
	_, err := c.runner.Run(ctx, runner.Command{Name: c.whisper, Args: []string{"--help"}})
	if err == nil {
		return true, nil
	}
	if cancelled(ctx, err) {
		return false, err
	}
	return false, nil
}

func (c *Chain) extractEmbedded(ctx context.Context, path string, index int) ([]Entry, error) {
	dir, err := os.MkdirTemp(c.tempRoot, "caption-extract-")
	if err != nil {
		return nil, fmt.Errorf("create caption work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "captions.srt")
	args := []string{"-i", path, "-map", "0:" + strconv.Itoa(index), "-f", "srt", "-y", out}
	if _, err := c.runner.Run(ctx, runner.Command{Name: c.ffmpeg, Args: args}); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(out)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read extracted subtitles: %w", err)
	}
	return ParseSRT(string(data)), nil
}

func (c *Chain) transcribe(ctx context.Context, path string) (Result, error) {
	available, err := c.SpeechAvailable(ctx)
	if err != nil {
		return Result{}, err
	}
	if !available {
		return Result{}, ErrNoSpeechEngine
	}

	dir, err := os.MkdirTemp(c.tempRoot, "whisper-")
	if err != nil {
		return Result{}, fmt.Errorf("create speech work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	args := []string{path, "--model", c.model, "--output_format", "vtt", "--output_dir", dir, "--verbose", "False"}
	if _, err := c.runner.Run(ctx, runner.Command{Name: c.whisper, Args: args}); err != nil {
		return Result{}, fmt.Errorf("speech transcription: %w", err)
	}

	vtt, err := firstVTT(dir)
	if err != nil {
		return Result{}, err
	}
	entries := ParseVTT(vtt)
	if len(entries) == 0 {
		return Result{}, services.Wrap(services.ErrParse, "captions", "speech fallback", "no audible speech", nil)
	}
	return Result{Entries: entries, Method: MethodSpeech, Language: c.speechLanguage}, nil
}

func firstVTT(dir string) (string, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read speech output dir: %w", err)
	}
	for _, item := range items {
		if item.IsDir() || !strings.EqualFold(filepath.Ext(item.Name()), ".vtt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, item.Name()))
		if err != nil {
			return "", fmt.Errorf("read speech output: %w", err)
		}
		return string(data), nil
	}
	return "", services.Wrap(services.ErrParse, "captions", "speech fallback", "speech engine produced no vtt output", nil)
}

func cancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || services.KindOf(err) == services.KindCancelled
}

func binaryOr(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return deps.Resolve(fallback)
}

func valueOr(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}
