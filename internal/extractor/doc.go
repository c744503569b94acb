// Package extractor drives yt-dlp in metadata mode and normalizes its output.
//
// References pair a platform with an id or URL. FetchInfo runs the extractor
// once per cache miss, with concurrent misses for the same reference sharing a
// single invocation, and returns a narrow Info document whose formats carry
// derived quality labels. The quality helpers (SortByQuality, DedupByQuality,
// Resolve) are pure and shared with the transform pipeline.
package extractor
