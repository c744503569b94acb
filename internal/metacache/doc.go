// Package metacache provides the in-memory TTL cache that fronts extractor
// metadata lookups.
//
// Caches are explicitly constructed and owned: New builds one, Start runs the
// periodic sweep, Close stops it. There is no package-level instance.
package metacache
