package captions

import (
	"fmt"
	"strings"

	"vidfetch/internal/services"
)

// Entry is one timed caption line. Times are in seconds.
type Entry struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// End is Start plus Duration.
func (e Entry) End() float64 {
	return e.Start + e.Duration
}

// Method records which branch of the chain produced a result.
type Method string

const (
	MethodEmbedded Method = "embedded"
	MethodSpeech   Method = "speech"
)

// Result is the immutable outcome of one chain run.
type Result struct {
	Entries  []Entry `json:"entries"`
	Method   Method  `json:"method"`
	Language string  `json:"language,omitempty"`
}

// Format is a caption serialization.
type Format string

const (
	FormatNameSRT  Format = "srt"
	FormatNameVTT  Format = "vtt"
	FormatNameText Format = "txt"
)

// Formats lists the supported serializations.
var Formats = []Format{FormatNameSRT, FormatNameVTT, FormatNameText}

// ParseFormat validates a format name. "text" is accepted for txt.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "srt":
		return FormatNameSRT, nil
	case "vtt", "webvtt":
		return FormatNameVTT, nil
	case "txt", "text":
		return FormatNameText, nil
	default:
		return "", services.Wrap(services.ErrValidation, "captions", "parse format",
			fmt.Sprintf("unsupported caption format %q (supported: srt, vtt, txt)", value), nil)
	}
}

// Render serializes entries in the given format.
func Render(entries []Entry, format Format) string {
	switch format {
	case FormatNameVTT:
		return FormatVTT(entries)
	case FormatNameText:
		return FormatText(entries)
	default:
		return FormatSRT(entries)
	}
}

// ContentType is the HTTP media type for a format.
func ContentType(format Format) string {
	switch format {
	case FormatNameVTT:
		return "text/vtt"
	case FormatNameText:
		return "text/plain"
	default:
		return "application/x-subrip"
	}
}

// Filename is the suggested download name for a result in format.
func Filename(language string, format Format) string {
	if strings.TrimSpace(language) == "" {
		language = "und"
	}
	return "captions_" + language + "." + string(format)
}

// FormatText renders one caption per line without timing.
func FormatText(entries []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
