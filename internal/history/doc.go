// Package history persists finished transform jobs in SQLite so operators can
// review recent downloads with `vidfetch history`.
//
// The store is optional; when disabled the pipeline never opens it.
package history
