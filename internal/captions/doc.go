// Package captions turns a local media file into timed caption entries.
//
// The chain probes for embedded subtitle streams and extracts the first one
// as SRT. When there are none, or the first yields nothing, it falls back to
// the whisper speech engine and parses its VTT output. Both paths produce the
// same Entry records. The package also renders entries as srt, vtt, or plain
// text for download.
package captions
