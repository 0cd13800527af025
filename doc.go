// Geoipd is a self-hosted IP geolocation service built around a single
// database file in the MaxMind DB binary format.
//
// Idea is simple: you have an IP address like 1.2.3.4 and you want to
// know where this user comes from. Instead of calling a paid web
// service per request, geoipd answers from a local database with the
// same HTTP protocol the GeoIP2 web service speaks, so existing client
// libraries keep working.
//
// Tool itself is organized into 3 logical parts:
//
// Mmdb
//
// mmdb is the core package: a pure reader of the database format. It
// knows nothing about HTTP, files on disk or caching. If you need to
// embed database lookups into your own program, this package is all
// you need.
//
// Geodb
//
// geodb wires the reader into an operable whole: it owns the current
// database file, reloads it atomically, caches lookups, downloads
// fresh editions and keeps usage counters.
//
// Geoipd
//
// A main package itself is an example of how to wire both mmdb and
// geodb. But this is a full example which provides CLI. Resulting
// binary starts http server and you can use it in your infrastructure
// as is.
package main
