// Package runner spawns external tools (yt-dlp, ffmpeg, ffprobe, whisper) for
// the pipeline and caption chain.
//
// Run buffers stdout and stderr; Start streams stdout through a pipe and keeps
// a bounded stderr tail for diagnostics. Failures are classified with the
// services markers: a binary that cannot be started is ErrSpawn, a non-zero
// exit is a *services.ProcessError, and a context cancellation or Kill is
// ErrCancelled. Children run in their own process group and are killed as a
// group.
package runner
