package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"vidfetch/internal/services"
)

// Platform identifies the content site a reference belongs to.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformTikTok    Platform = "tiktok"
)

// ParsePlatform normalizes a platform name. "x" is accepted for twitter.
func ParsePlatform(value string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "youtube", "yt":
		return PlatformYouTube, nil
	case "instagram", "ig":
		return PlatformInstagram, nil
	case "twitter", "x":
		return PlatformTwitter, nil
	case "tiktok":
		return PlatformTikTok, nil
	case "":
		return "", services.Wrap(services.ErrValidation, "extractor", "parse platform", "platform is required", nil)
	default:
		return "", services.Wrap(services.ErrValidation, "extractor", "parse platform", fmt.Sprintf("unsupported platform %q", value), nil)
	}
}

// Reference is an immutable pointer to one video: a platform plus either a
// platform id or a URL.
type Reference struct {
	Platform Platform
	Value    string
}

// ParseReference validates a platform/value pair. YouTube accepts bare video
// ids; the other platforms require an http(s) URL.
func ParseReference(platform, value string) (Reference, error) {
	p, err := ParsePlatform(platform)
	if err != nil {
		return Reference{}, err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return Reference{}, services.Wrap(services.ErrValidation, "extractor", "parse reference", "reference value is required", nil)
	}
	if p != PlatformYouTube && !isURL(value) {
		return Reference{}, services.Wrap(services.ErrValidation, "extractor", "parse reference",
			fmt.Sprintf("%s references must be http(s) URLs", p), nil)
	}
	if strings.ContainsAny(value, " \t\r\n") {
		return Reference{}, services.Wrap(services.ErrValidation, "extractor", "parse reference", "reference contains whitespace", nil)
	}
	return Reference{Platform: p, Value: value}, nil
}

// URL is the address handed to the extractor.
func (r Reference) URL() string {
	if isURL(r.Value) {
		return r.Value
	}
	if r.Platform == PlatformYouTube {
		return "https://www.youtube.com/watch?v=" + url.QueryEscape(r.Value)
	}
	return r.Value
}

// CacheKey is the metadata cache key, stable per platform and value.
func (r Reference) CacheKey() string {
	return string(r.Platform) + ":info:" + r.Value
}

func (r Reference) String() string {
	return string(r.Platform) + ":" + r.Value
}

func isURL(value string) bool {
	lower := strings.ToLower(value)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	parsed, err := url.Parse(value)
	return err == nil && parsed.Host != ""
}
