// Package language canonicalizes the language tags found in media stream
// metadata. ISO 639-2 codes (both bibliographic and terminology forms), BCP 47
// tags, and plain English names all reduce to the shortest BCP 47 form via
// golang.org/x/text/language.
package language
