package captions

import (
	"fmt"
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	blockSeparator = regexp.MustCompile(`\n\s*\n`)
	tagPattern     = regexp.MustCompile(`<[^>]*>`)
	stylePattern   = regexp.MustCompile(`\{[^}]*\}`)
)

// splitBlocks normalizes line endings and splits on blank lines.
func splitBlocks(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	return blockSeparator.Split(content, -1)
}

// cleanText joins cue lines and strips HTML-style and SSA-style markup.
func cleanText(lines []string) string {
	joined := strings.Join(lines, " ")
	joined = tagPattern.ReplaceAllString(joined, "")
	joined = stylePattern.ReplaceAllString(joined, "")
	joined = html.UnescapeString(joined)
	return strings.Join(strings.Fields(joined), " ")
}

func clockSeconds(hours, minutes, seconds, millis string) (float64, bool) {
	h := 0
	if hours != "" {
		var err error
		if h, err = strconv.Atoi(hours); err != nil {
			return 0, false
		}
	}
	m, errM := strconv.Atoi(minutes)
	s, errS := strconv.Atoi(seconds)
	ms, errMS := strconv.Atoi(millis)
	if errM != nil || errS != nil || errMS != nil || m > 59 || s > 59 {
		return 0, false
	}
	return float64(h*3600+m*60+s) + float64(ms)/1000, true
}

// splitClock breaks seconds into h, m, s, ms with millisecond rounding.
func splitClock(seconds float64) (int64, int64, int64, int64) {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(math.Round(seconds * 1000))
	return total / 3_600_000, total / 60_000 % 60, total / 1000 % 60, total % 1000
}

func formatClock(seconds float64, sep byte) string {
	h, m, s, ms := splitClock(seconds)
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms)
}
