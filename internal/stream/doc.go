// Package stream answers byte-range requests for library resources.
//
// Every request walks the same phases: the path is resolved and a shared
// handle is borrowed from the library cache, the Range header is evaluated
// against the handle size, and the selected interval is streamed back. The
// handle is returned to the cache exactly once, either when the body stream
// is closed by the HTTP server or, for responses without a body, before the
// handler returns.
package stream
