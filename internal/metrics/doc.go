// Package metrics provides Prometheus instrumentation for vidfetch.
//
// All collectors are registered on the default registry through promauto and
// prefixed with "vidfetch_". The HTTP server exposes them on /metrics.
//
// # Metric Categories
//
//   - HTTP: request counts, latency, and in-flight gauge by route
//   - Cache: metadata cache hits, misses, and evictions
//   - Process: external tool spawns, failures by error kind, running gauge
//   - Jobs: transform job outcomes by acquisition path and duration
//   - Captions and uploads: chain outcomes, stored, rejected, and reaped files
package metrics
