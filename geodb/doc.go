// geodb owns everything around an opened database that the mmdb package
// deliberately does not: which file to read, when to replace it, how to
// cache lookups and how to count usage. The mmdb.Reader is immutable, so
// a reload is a plain swap of the current instance. Lookups in flight
// finish on the instance they started with.
package geodb
