// Package server hosts the Fiber HTTP service, request middleware chain, and
// library registry glue that maps Host/port to a media library and its
// handle cache. The app built here is only the host: request IDs, host
// routing, diagnostics bypass and error rendering. Serving bytes is the job
// of the MediaHandler injected through AppOptions.
package server
