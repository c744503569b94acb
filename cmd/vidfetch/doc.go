// Package main hosts the vidfetch CLI entrypoint and command graph.
//
// The Cobra command tree either runs the HTTP server (serve) or drives the
// same internal packages directly from the terminal: metadata lookups,
// downloads with optional clipping and re-encoding, caption extraction from
// local files, dependency checks, and job history. Configuration resolution
// and logger construction live in commandContext so each subcommand only
// wires the pieces it needs.
package main
