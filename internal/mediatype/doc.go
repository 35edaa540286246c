// Package mediatype keeps the registry of file extension profiles used to
// answer two questions about a resource: which Content-Type to send, and
// which HTML element the player page should embed. Built-in profiles are
// registered in init; libraries may override the Content-Type per
// extension through configuration.
package mediatype
