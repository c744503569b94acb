// Package config loads, normalizes, and validates vidfetch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// UPLOADS_DIR and VIDFETCH_COOKIES_FILE. Binary accessors resolve the
// extractor, transcoder, probe, and speech engine through the deps search
// order unless a path is pinned in [binaries].
package config
