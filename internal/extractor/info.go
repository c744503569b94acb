package extractor

import (
	"bytes"
	"encoding/json"
	"strings"

	"vidfetch/internal/services"
)

// Info is the normalized metadata document for one reference.
type Info struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Duration    float64     `json:"duration"`
	Thumbnail   string      `json:"thumbnail,omitempty"`
	Thumbnails  []Thumbnail `json:"thumbnails,omitempty"`
	Uploader    string      `json:"uploader,omitempty"`
	UploaderURL string      `json:"uploaderUrl,omitempty"`
	ViewCount   int64       `json:"viewCount"`
	LikeCount   int64       `json:"likeCount,omitempty"`
	UploadDate  string      `json:"uploadDate,omitempty"`
	WebpageURL  string      `json:"webpageUrl,omitempty"`
	Extractor   string      `json:"extractor,omitempty"`
	Formats     []Format    `json:"formats,omitempty"`
}

// Thumbnail is one preview image candidate.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// rawInfo carries only the extractor fields this package consumes.
type rawInfo struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Duration    float64        `json:"duration"`
	Thumbnail   string         `json:"thumbnail"`
	Thumbnails  []rawThumbnail `json:"thumbnails"`
	Uploader    string         `json:"uploader"`
	Creator     string         `json:"creator"`
	Channel     string         `json:"channel"`
	UploaderURL string         `json:"uploader_url"`
	ViewCount   float64        `json:"view_count"`
	LikeCount   float64        `json:"like_count"`
	UploadDate  string         `json:"upload_date"`
	WebpageURL  string         `json:"webpage_url"`
	Extractor   string         `json:"extractor_key"`
	Formats     *[]rawFormat   `json:"formats,omitempty"`
}

type rawThumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type rawFormat struct {
	FormatID   string  `json:"format_id"`
	FormatNote string  `json:"format_note"`
	Ext        string  `json:"ext"`
	VCodec     string  `json:"vcodec"`
	ACodec     string  `json:"acodec"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	TBR        float64 `json:"tbr"`
	ABR        float64 `json:"abr"`
	Protocol   string  `json:"protocol"`
	Filesize   float64 `json:"filesize"`
	FilesizeEx float64 `json:"filesize_approx"`
}

// ParseInfo decodes one extractor metadata document. A document without an
// id, a title, or a formats array is rejected rather than defaulted.
func ParseInfo(data []byte) (*Info, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrParse, "extractor", "parse info", "empty metadata output", nil)
	}
	var raw rawInfo
	// Only the first document matters if the tool emitted several lines.
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
		return nil, services.Wrap(services.ErrParse, "extractor", "parse info", "malformed metadata json", err)
	}
	switch {
	case strings.TrimSpace(raw.ID) == "":
		return nil, services.Wrap(services.ErrParse, "extractor", "parse info", "metadata is missing id", nil)
	case strings.TrimSpace(raw.Title) == "":
		return nil, services.Wrap(services.ErrParse, "extractor", "parse info", "metadata is missing title", nil)
	case raw.Formats == nil:
		return nil, services.Wrap(services.ErrParse, "extractor", "parse info", "metadata is missing formats", nil)
	}
	return raw.normalize(), nil
}

func (r rawInfo) normalize() *Info {
	info := &Info{
		ID:          strings.TrimSpace(r.ID),
		Title:       strings.TrimSpace(strings.ReplaceAll(r.Title, "\n", " ")),
		Description: r.Description,
		Duration:    r.Duration,
		Thumbnail:   r.Thumbnail,
		Uploader:    firstNonEmpty(r.Uploader, r.Creator, r.Channel),
		UploaderURL: r.UploaderURL,
		ViewCount:   int64(r.ViewCount),
		LikeCount:   int64(r.LikeCount),
		UploadDate:  r.UploadDate,
		WebpageURL:  r.WebpageURL,
		Extractor:   r.Extractor,
	}
	for _, t := range r.Thumbnails {
		if t.URL == "" {
			continue
		}
		info.Thumbnails = append(info.Thumbnails, Thumbnail(t))
	}
	if info.Thumbnail == "" && len(info.Thumbnails) > 0 {
		info.Thumbnail = info.Thumbnails[len(info.Thumbnails)-1].URL
	}
	info.Formats = make([]Format, 0, len(*r.Formats))
	for _, f := range *r.Formats {
		info.Formats = append(info.Formats, f.normalize())
	}
	return info
}

func (f rawFormat) normalize() Format {
	hasVideo := f.VCodec != "none" && (f.VCodec != "" || f.Height > 0)
	hasAudio := f.ACodec != "none" && f.ACodec != ""
	size := f.Filesize
	if size <= 0 {
		size = f.FilesizeEx
	}
	return Format{
		FormatID:     f.FormatID,
		QualityLabel: qualityLabel(hasVideo, hasAudio, f.Height, f.FormatNote, f.ABR),
		Container:    f.Ext,
		HasVideo:     hasVideo,
		HasAudio:     hasAudio,
		Bitrate:      f.TBR,
		AudioBitrate: f.ABR,
		MimeType:     mimeType(hasVideo, hasAudio, f.Ext),
		Protocol:     f.Protocol,
		Height:       f.Height,
		FPS:          f.FPS,
		Filesize:     int64(size),
	}
}

func mimeType(hasVideo, hasAudio bool, ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "mhtml" {
		return ""
	}
	if ext == "m4a" {
		return "audio/mp4"
	}
	switch {
	case hasVideo:
		return "video/" + ext
	case hasAudio:
		return "audio/" + ext
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
