package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Command names for external tools.
const (
	YtDlpCommand   = "yt-dlp"
	FFmpegCommand  = "ffmpeg"
	FFprobeCommand = "ffprobe"
	WhisperCommand = "whisper"
)

// Requirement defines an external dependency vidfetch relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// DefaultRequirements lists the tools the pipeline and caption chain invoke,
// using already-resolved binary paths.
func DefaultRequirements(ytdlp, ffmpeg, ffprobe, whisper string) []Requirement {
	return []Requirement{
		{Name: "yt-dlp", Command: ytdlp, Description: "Metadata extraction and media download"},
		{Name: "FFmpeg", Command: ffmpeg, Description: "Merging, clipping, encoding, subtitle extraction"},
		{Name: "FFprobe", Command: ffprobe, Description: "Embedded subtitle probing"},
		{Name: "Whisper", Command: whisper, Description: "Speech-to-text caption fallback", Optional: true},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
