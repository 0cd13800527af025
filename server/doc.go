// server exposes the database over HTTP with the path layout and error
// vocabulary of the MaxMind GeoIP2 web service, so off-the-shelf client
// libraries can be pointed at it.
package server
