// Package httpapi exposes the pipeline over HTTP.
//
// Handlers are thin: they parse query and form input, call into the
// extractor, transform, uploads, and captions packages, and map the error
// taxonomy onto status codes. Routing uses gorilla/mux; every request passes
// through request id, metrics, and logging middleware.
package httpapi
