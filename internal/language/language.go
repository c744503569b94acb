package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Undetermined is the ISO 639-2 code for an unknown language.
const Undetermined = "und"

// bibliographic maps ISO 639-2/B codes, common in container metadata, to their
// terminology form. x/text only understands the latter.
var bibliographic = map[string]string{
	"alb": "sqi",
	"arm": "hye",
	"baq": "eus",
	"bur": "mya",
	"chi": "zho",
	"cze": "ces",
	"dut": "nld",
	"fre": "fra",
	"geo": "kat",
	"ger": "deu",
	"gre": "ell",
	"ice": "isl",
	"mac": "mkd",
	"mao": "mri",
	"may": "msa",
	"per": "fas",
	"rum": "ron",
	"slo": "slk",
	"tib": "bod",
	"wel": "cym",
}

// words covers the full names some muxers write instead of codes.
var words = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
}

// Canonicalize converts a stream language tag ("eng", "fre", "en_US",
// "English") into its shortest BCP 47 form ("en", "fr", "en-US"). Empty and
// unrecognized input yields "und".
func Canonicalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(code, "\u0000", "")))
	code = strings.ReplaceAll(code, "_", "-")
	if code == "" || code == Undetermined {
		return Undetermined
	}
	if mapped, ok := words[code]; ok {
		return mapped
	}
	base, rest, _ := strings.Cut(code, "-")
	if mapped, ok := bibliographic[base]; ok {
		code = mapped
		if rest != "" {
			code += "-" + rest
		}
	}
	tag, err := language.Parse(code)
	if err != nil {
		return Undetermined
	}
	return tag.String()
}

// DisplayName returns the English name for a language code, "Unknown" for
// undetermined input, or the uppercased code when no name is known.
func DisplayName(code string) string {
	canonical := Canonicalize(code)
	if canonical == Undetermined {
		return "Unknown"
	}
	tag, err := language.Parse(canonical)
	if err == nil {
		if name := display.English.Tags().Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// ExtractFromTags returns the raw language value from stream metadata tags.
// Checks common tag keys: language, LANGUAGE, Language, language_ietf, lang, LANG.
func ExtractFromTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"}
	for _, key := range keys {
		if value, ok := tags[key]; ok {
			value = strings.TrimSpace(strings.ReplaceAll(value, "\u0000", ""))
			if value != "" {
				return strings.ToLower(value)
			}
		}
	}
	return ""
}
