// Package ffprobe wraps the subtitle-stream probe used by the caption chain.
//
// ProbeSubtitles runs ffprobe through a runner.Runner and returns the
// subtitle streams of a media file with their index, codec, and language tag.
package ffprobe
