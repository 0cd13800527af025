// Package mmdbtest hand-constructs small database files so tests can
// exercise the reader without shipping binary fixtures.
//
// A Builder collects CIDR-to-record assignments, then Build emits a
// complete file: packed search tree, separator, data section with
// de-duplicated values behind format pointers, marker and metadata.
// This is test support only, not a production write path.
package mmdbtest
