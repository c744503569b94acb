package extractor

import (
	"cmp"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"vidfetch/internal/services"
)

// Format is one selectable encoding of a video, derived read-only from
// extractor output.
type Format struct {
	FormatID     string  `json:"formatId"`
	QualityLabel string  `json:"qualityLabel"`
	Container    string  `json:"container"`
	HasVideo     bool    `json:"hasVideo"`
	HasAudio     bool    `json:"hasAudio"`
	Bitrate      float64 `json:"bitrate,omitempty"`
	AudioBitrate float64 `json:"audioBitrate,omitempty"`
	MimeType     string  `json:"mimeType,omitempty"`
	Protocol     string  `json:"protocol,omitempty"`
	Height       int     `json:"height,omitempty"`
	FPS          float64 `json:"fps,omitempty"`
	Filesize     int64   `json:"filesize,omitempty"`
}

// Muxed reports whether the format already carries audio and video.
func (f Format) Muxed() bool {
	return f.HasVideo && f.HasAudio
}

// VideoOnly reports a video stream that needs an audio track merged in.
func (f Format) VideoOnly() bool {
	return f.HasVideo && !f.HasAudio
}

var (
	noteLabelPattern   = regexp.MustCompile(`^\d{3,4}p\d{0,3}$`)
	leadingDigits      = regexp.MustCompile(`^\d+`)
	videoHeightPattern = regexp.MustCompile(`^(\d+)p`)
)

// qualityLabel derives "<height>p" for video, "<abr>kbps" for audio-only, and
// "" for anything else (storyboards, manifests without codecs).
func qualityLabel(hasVideo, hasAudio bool, height int, note string, abr float64) string {
	switch {
	case hasVideo && height > 0:
		if note = strings.TrimSpace(note); noteLabelPattern.MatchString(note) {
			return note
		}
		return strconv.Itoa(height) + "p"
	case !hasVideo && hasAudio && abr > 0:
		return strconv.Itoa(int(math.Round(abr))) + "kbps"
	default:
		return ""
	}
}

// QualityNumber returns the numeric prefix of a label ("1080p60" -> 1080).
func QualityNumber(label string) (int, bool) {
	digits := leadingDigits.FindString(strings.TrimSpace(label))
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// HeightFromLabel extracts the pixel height from a video label. Audio labels
// and unparseable labels return false.
func HeightFromLabel(label string) (int, bool) {
	match := videoHeightPattern.FindStringSubmatch(strings.TrimSpace(label))
	if match == nil {
		return 0, false
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// NormalizeQuality accepts "720" as shorthand for "720p".
func NormalizeQuality(quality string) string {
	q := strings.ToLower(strings.TrimSpace(quality))
	if q == "" {
		return ""
	}
	if _, err := strconv.Atoi(q); err == nil {
		return q + "p"
	}
	return q
}

// SortByQuality orders formats by numeric label prefix, highest first. Labels
// without a number go last; ties keep their input order.
func SortByQuality(formats []Format) []Format {
	sorted := slices.Clone(formats)
	slices.SortStableFunc(sorted, func(a, b Format) int {
		an, aok := QualityNumber(a.QualityLabel)
		bn, bok := QualityNumber(b.QualityLabel)
		switch {
		case aok && bok:
			return cmp.Compare(bn, an)
		case aok:
			return -1
		case bok:
			return 1
		default:
			return 0
		}
	})
	return sorted
}

// DedupByQuality keeps one format per non-empty label, in first-seen label
// order. The first muxed format for a label wins; otherwise the first seen.
func DedupByQuality(formats []Format) []Format {
	index := make(map[string]int)
	out := make([]Format, 0, len(formats))
	for _, f := range formats {
		if f.QualityLabel == "" {
			continue
		}
		pos, seen := index[f.QualityLabel]
		if !seen {
			index[f.QualityLabel] = len(out)
			out = append(out, f)
			continue
		}
		if !out[pos].Muxed() && f.Muxed() {
			out[pos] = f
		}
	}
	return out
}

// VideoFormats returns formats carrying video, deduplicated and sorted.
func VideoFormats(formats []Format) []Format {
	var video []Format
	for _, f := range formats {
		if f.HasVideo {
			video = append(video, f)
		}
	}
	return SortByQuality(DedupByQuality(video))
}

// AudioFormats returns audio-only formats, deduplicated and sorted.
func AudioFormats(formats []Format) []Format {
	var audio []Format
	for _, f := range formats {
		if f.HasAudio && !f.HasVideo {
			audio = append(audio, f)
		}
	}
	return SortByQuality(DedupByQuality(audio))
}

// Resolve picks the format a download refers to. An explicit id beats a
// quality label; for a label the first muxed match wins.
func Resolve(formats []Format, formatID, quality string) (Format, error) {
	if id := strings.TrimSpace(formatID); id != "" {
		for _, f := range formats {
			if f.FormatID == id {
				return f, nil
			}
		}
		return Format{}, services.Wrap(services.ErrValidation, "extractor", "resolve format", fmt.Sprintf("format %q is not available", id), nil)
	}
	label := NormalizeQuality(quality)
	if label == "" {
		return Format{}, services.Wrap(services.ErrValidation, "extractor", "resolve format", "a format id or quality is required", nil)
	}
	match := matchQuality(formats, func(f Format) bool {
		return strings.EqualFold(f.QualityLabel, label)
	})
	if match == nil {
		// "720p" also covers "720p60" and friends.
		if height, ok := HeightFromLabel(label); ok {
			match = matchQuality(formats, func(f Format) bool {
				h, ok := HeightFromLabel(f.QualityLabel)
				return ok && h == height
			})
		}
	}
	if match == nil {
		return Format{}, services.Wrap(services.ErrValidation, "extractor", "resolve format", fmt.Sprintf("quality %q is not available", label), nil)
	}
	return *match, nil
}

// matchQuality returns the first muxed format accepted by keep, else the first
// accepted format of any kind.
func matchQuality(formats []Format, keep func(Format) bool) *Format {
	var match *Format
	for i := range formats {
		if !keep(formats[i]) {
			continue
		}
		if formats[i].Muxed() {
			return &formats[i]
		}
		if match == nil {
			match = &formats[i]
		}
	}
	return match
}
