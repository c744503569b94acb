package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxTitleLength bounds the title portion of generated download names.
const MaxTitleLength = 100

// stripMarks decomposes accented letters and drops the combining marks, so
// "Café" becomes "Cafe" before the ASCII filter runs.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}

// SanitizeTitle turns a video title into the stem of a download filename:
// ASCII letters, digits, and hyphens are kept, whitespace runs become single
// underscores, everything else is dropped, and the result is cut to
// MaxTitleLength. An empty result falls back to "video".
func SanitizeTitle(title string) string {
	folded, _, err := transform.String(stripMarks, title)
	if err != nil {
		folded = title
	}
	var b strings.Builder
	pendingSpace := false
	for _, r := range strings.TrimSpace(folded) {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-'):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSpace = false
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > MaxTitleLength {
		out = strings.TrimRight(out[:MaxTitleLength], "_")
	}
	if out == "" {
		return "video"
	}
	return out
}
