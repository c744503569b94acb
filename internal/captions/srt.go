package captions

import (
	"regexp"
	"strconv"
	"strings"
)

var srtTiming = regexp.MustCompile(`(\d+):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d+):(\d{2}):(\d{2})[,.](\d{3})`)

// ParseSRT converts SubRip text into entries. The timing line may appear
// anywhere in a block; comma and dot are both accepted as the millisecond
// separator. Blocks without valid timing or text are skipped.
func ParseSRT(content string) []Entry {
	var entries []Entry
	for _, block := range splitBlocks(content) {
		lines := strings.Split(block, "\n")
		for i, line := range lines {
			if !strings.Contains(line, "-->") {
				continue
			}
			m := srtTiming.FindStringSubmatch(line)
			if m == nil {
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

// FormatSRT renders entries as SubRip, numbering cues from 1.
func FormatSRT(entries []Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte('\n')
		b.WriteString(formatClock(e.Start, ','))
		b.WriteString(" --> ")
		b.WriteString(formatClock(e.End(), ','))
		b.WriteByte('\n')
		b.WriteString(e.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
