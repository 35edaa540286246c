// Package cache owns the open file handles of a media library. A Cache maps
// validated library-relative keys to a single shared Handle per file, so a
// player issuing many sequential Range requests for the same video reuses one
// descriptor instead of reopening it. Handles are reference counted: every
// successful Acquire must be balanced by exactly one Release, and the
// underlying file is closed once the last borrower releases it.
//
// All filesystem access goes through an afero.Fs confined to the library
// root. Upload writes use temp file + rename so readers never observe a
// partially written file.
package cache
