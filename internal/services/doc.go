// Package services defines shared utilities consumed by the pipeline, caption
// chain, and HTTP collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can tell a
//     missing binary from a failed exit, a parse error, or a bad request.
//   - ProcessError, which carries the exit code and a short stderr tail from
//     external tools without exposing full diagnostic output.
//
// Use KindOf when an outer surface needs to translate failures into status
// codes; never match on error strings.
package services
