package captions

import (
	"regexp"
	"strings"
)

var vttTiming = regexp.MustCompile(`^(?:(\d+):)?(\d{2}):(\d{2})\.(\d{3})\s+-->\s+(?:(\d+):)?(\d{2}):(\d{2})\.(\d{3})`)

// ParseVTT converts WebVTT text into entries. The header, NOTE, STYLE, and
// REGION blocks are skipped, as are cue identifiers and cue settings.
func ParseVTT(content string) []Entry {
	var entries []Entry
	for _, block := range splitBlocks(content) {
		lines := strings.Split(block, "\n")
		head := strings.TrimSpace(lines[0])
		if strings.HasPrefix(head, "WEBVTT") || head == "NOTE" || strings.HasPrefix(head, "NOTE ") ||
			head == "STYLE" || head == "REGION" {
			continue
		}
		for i, line := range lines {
			m := vttTiming.FindStringSubmatch(strings.TrimSpace(line))
			if m == nil {
				if i == 0 {
					// cue identifier
					continue
				}
				break
			}
			start, okStart := clockSeconds(m[1], m[2], m[3], m[4])
			end, okEnd := clockSeconds(m[5], m[6], m[7], m[8])
			if !okStart || !okEnd || end < start {
				break
			}
			if text := cleanText(lines[i+1:]); text != "" {
				entries = append(entries, Entry{Start: start, Duration: end - start, Text: text})
			}
			break
		}
	}
	return entries
}

// FormatVTT renders entries as WebVTT.
func FormatVTT(entries []Entry) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n")
	for _, e := range entries {
		b.WriteByte('\n')
		b.WriteString(formatClock(e.Start, '.'))
		b.WriteString(" --> ")
		b.WriteString(formatClock(e.End(), '.'))
		b.WriteByte('\n')
		b.WriteString(e.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
