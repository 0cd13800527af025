// This package implements a reader for MaxMind DB binary files: an
// immutable, file-backed mapping from IP addresses to structured
// geolocation records.
//
// mmdb is the core of the geoipd project. You can treat the rest of
// the application as an _example_ on how to use this library: how to
// keep a database handle, how to refresh it, how to serve lookups over
// HTTP.
//
// A database file is consumed as a single byte buffer. Its layout is a
// bit-level binary search tree keyed by address prefixes, a small
// separator, a pointer-linked data section with the actual records and
// a trailing metadata block describing the geometry of everything
// before it.
//
// Reader is the main entity of the package. It is created once per
// file, never mutates and serves any number of concurrent Lookup calls
// without locking. Refreshing a database means building a brand new
// Reader and dropping the old one; lookups in flight keep working
// against the instance they started with.
package mmdb
