package transform

import (
	"fmt"
	"strconv"
	"strings"

	"vidfetch/internal/extractor"
	"vidfetch/internal/textutil"
)

// Path is the acquisition route a job takes.
type Path string

const (
	// PathNone labels jobs rejected before acquisition started.
	PathNone   Path = "none"
	PathDirect Path = "direct"
	PathFile   Path = "file"
)

// ContentType is the media type of every transform output.
const ContentType = "video/mp4"

// bestFormat stands in for the extractor's own pick on platforms that expose
// a single muxed stream.
var bestFormat = extractor.Format{FormatID: "best", QualityLabel: "best", Container: "mp4", HasVideo: true, HasAudio: true}

type plan struct {
	path     Path
	selector string
	clip     *ClipRange
	encode   bool
}

// planFor picks the acquisition route. Anything other than an untouched muxed
// format goes through a temp file.
func planFor(req Request, format extractor.Format) plan {
	p := plan{clip: req.Clip, encode: req.Encoding == EncodingH264}
	if format.Muxed() && p.clip == nil && !p.encode {
		p.path = PathDirect
		p.selector = format.FormatID
		if req.Reference.Platform != extractor.PlatformYouTube {
			p.selector = bestFormat.FormatID
		}
		return p
	}
	p.path = PathFile
	p.selector = Selector(format)
	return p
}

// Selector builds the extractor format expression for a file download. With a
// known height the order is: muxed at that height, a video+audio pair at that
// height, best at or below it, then best overall.
func Selector(format extractor.Format) string {
	if format.FormatID == bestFormat.FormatID {
		return "best"
	}
	height := format.Height
	if height <= 0 && format.HasVideo {
		height, _ = extractor.HeightFromLabel(format.QualityLabel)
	}
	if height > 0 {
		h := strconv.Itoa(height)
		return fmt.Sprintf("best[height=%s][vcodec!=none][acodec!=none]/bestvideo[height=%s]+bestaudio/best[height<=%s]/best", h, h, h)
	}
	if format.VideoOnly() {
		return fmt.Sprintf("%s+bestaudio/%s/best", format.FormatID, format.FormatID)
	}
	return fmt.Sprintf("%s/best", format.FormatID)
}

// ClipArgs trims src to [start, end] by stream copy.
func ClipArgs(src, dst string, clip ClipRange) []string {
	return []string{
		"-ss", formatSeconds(clip.Start),
		"-to", formatSeconds(clip.End),
		"-i", src,
		"-c", "copy",
		"-movflags", "+faststart",
		"-avoid_negative_ts", "make_zero",
		"-y", dst,
	}
}

// EncodeArgs re-encodes src as broadly compatible H.264/AAC.
func EncodeArgs(src, dst string) []string {
	return []string{
		"-i", src,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-profile:v", "high",
		"-level:v", "4.1",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-ar", "48000",
		"-ac", "2",
		"-movflags", "+faststart",
		"-y", dst,
	}
}

// Filename is the attachment name offered to the client.
func Filename(title, quality string, encoding Encoding, clip *ClipRange) string {
	var b strings.Builder
	b.WriteString(textutil.SanitizeTitle(title))
	b.WriteByte('_')
	b.WriteString(quality)
	if encoding == EncodingH264 {
		b.WriteString("_h264")
	}
	if clip != nil {
		fmt.Fprintf(&b, "_clip_%ss-%ss", formatSeconds(clip.Start), formatSeconds(clip.End))
	}
	b.WriteString(".mp4")
	return b.String()
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
