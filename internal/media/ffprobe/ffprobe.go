package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"vidfetch/internal/language"
	"vidfetch/internal/runner"
	"vidfetch/internal/services"
)

// Result represents the parsed stream list from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index       int               `json:"index"`
	CodecName   string            `json:"codec_name"`
	CodecType   string            `json:"codec_type"`
	Tags        map[string]string `json:"tags"`
	Disposition map[string]int    `json:"disposition"`
}

// SubtitleStream is one embedded subtitle track.
type SubtitleStream struct {
	Index    int
	Codec    string
	Language string
	Title    string
	Default  bool
	Forced   bool
}

// SubtitleArgs is the argument list for a subtitle-only probe.
func SubtitleArgs(path string) []string {
	return []string{"-v", "quiet", "-print_format", "json", "-show_streams", "-select_streams", "s", path}
}

// ProbeSubtitles runs ffprobe against path and returns its subtitle streams in
// container order.
func ProbeSubtitles(ctx context.Context, r runner.Runner, binary, path string) ([]SubtitleStream, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, "ffprobe", "probe subtitles", "empty path", nil)
	}
	result, err := r.Run(ctx, runner.Command{Name: binary, Args: SubtitleArgs(path)})
	if err != nil {
		return nil, err
	}
	return ParseSubtitles(result.Stdout)
}

// ParseSubtitles decodes ffprobe JSON output into subtitle streams. Streams
// of other types are ignored. A missing language tag becomes "und".
func ParseSubtitles(data []byte) ([]SubtitleStream, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, services.Wrap(services.ErrParse, "ffprobe", "parse", "malformed ffprobe json", err)
	}
	var streams []SubtitleStream
	for _, s := range result.Streams {
		if s.CodecType != "" && !strings.EqualFold(s.CodecType, "subtitle") {
			continue
		}
		lang := language.ExtractFromTags(s.Tags)
		if lang == "" {
			lang = language.Undetermined
		}
		streams = append(streams, SubtitleStream{
			Index:    s.Index,
			Codec:    s.CodecName,
			Language: lang,
			Title:    strings.TrimSpace(s.Tags["title"]),
			Default:  s.Disposition["default"] == 1,
			Forced:   s.Disposition["forced"] == 1,
		})
	}
	return streams, nil
}
