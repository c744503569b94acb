package transform

import (
	"math"
	"strings"

	"vidfetch/internal/extractor"
	"vidfetch/internal/services"
)

// MinClipSeconds is the shortest clip accepted.
const MinClipSeconds = 1.0

// Encoding selects the output codec.
type Encoding string

const (
	EncodingOriginal Encoding = "original"
	EncodingH264     Encoding = "h264"
)

// ParseEncoding maps a request value to an Encoding. Unknown values fall back
// to the original encoding.
func ParseEncoding(value string) Encoding {
	if strings.EqualFold(strings.TrimSpace(value), string(EncodingH264)) {
		return EncodingH264
	}
	return EncodingOriginal
}

// ClipRange is a time window in seconds.
type ClipRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Length is the clip duration in seconds.
func (c ClipRange) Length() float64 { return c.End - c.Start }

// ValidateClip checks a clip window against the media duration. A
// durationHint of zero or less skips the upper bound check.
func ValidateClip(start, end, durationHint float64) error {
	var msg string
	switch {
	case math.IsNaN(start) || math.IsNaN(end) || math.IsInf(start, 0) || math.IsInf(end, 0):
		msg = "clip times must be finite numbers"
	case start < 0:
		msg = "start time cannot be negative"
	case end <= start:
		msg = "end time must be after start time"
	case durationHint > 0 && end > durationHint:
		msg = "end time exceeds video duration"
	case end-start < MinClipSeconds:
		msg = "clip must be at least 1 second long"
	default:
		return nil
	}
	return services.Wrap(services.ErrValidation, "transform", "validate clip", msg, nil)
}

// Request describes one download. Either FormatID or Quality must resolve
// against the reference's formats; non-YouTube references may omit both and
// take the extractor's best muxed format.
type Request struct {
	Reference extractor.Reference
	FormatID  string
	Quality   string
	Clip      *ClipRange
	Encoding  Encoding
}

func (r Request) describeFormat() string {
	if r.FormatID != "" {
		return r.FormatID
	}
	if r.Quality != "" {
		return extractor.NormalizeQuality(r.Quality)
	}
	return "best"
}
