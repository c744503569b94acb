// Package uploads stores user-supplied videos under opaque random ids and
// reaps them after a retention window.
//
// Ids are 32 lowercase hex characters. Anything else resolves to not-found
// before the filesystem is consulted, so an id can never be used to walk out
// of the upload root.
package uploads
