package mmdb

import (
	"errors"
	"fmt"
)

// Errors returned while opening a database. Any of them means the file
// cannot be served at all; there is no point in retrying because a
// broken file stays broken.
var (
	// ErrMetadataNotFound is returned if the metadata marker is
	// absent within the trailing search window of the file.
	ErrMetadataNotFound = errors.New("metadata marker was not found")

	// ErrMetadataMalformed is returned if the metadata block cannot
	// be decoded or misses required keys.
	ErrMetadataMalformed = errors.New("metadata section is malformed")

	// ErrOutOfBounds is returned on any access past the end of the
	// database buffer.
	ErrOutOfBounds = errors.New("access is out of database bounds")
)

// Errors returned by Lookup. They are scoped to a single call: the
// reader stays usable and concurrent lookups are not affected.
var (
	// ErrAddressFamilyMismatch is returned on a lookup of an IPv6
	// address within a database built for IPv4 only.
	ErrAddressFamilyMismatch = errors.New("cannot look up an IPv6 address in an IPv4 database")

	// ErrTreeCorrupt is returned if a search tree record references
	// something outside of the file geometry.
	ErrTreeCorrupt = errors.New("search tree is corrupted")

	// ErrDataCorrupt is a common ancestor for every data section
	// failure. errors.Is(err, ErrDataCorrupt) matches all of them.
	ErrDataCorrupt = errors.New("data section is corrupted")
)

// Specific data section failures. Each wraps ErrDataCorrupt so callers
// which do not care about details can match on the umbrella error.
var (
	ErrTruncatedData    = fmt.Errorf("%w: declared length exceeds the buffer", ErrDataCorrupt)
	ErrUnknownTypeTag   = fmt.Errorf("%w: unknown type tag", ErrDataCorrupt)
	ErrInvalidEncoding  = fmt.Errorf("%w: string is not valid utf-8", ErrDataCorrupt)
	ErrPointerLoop      = fmt.Errorf("%w: pointer resolves to another pointer", ErrDataCorrupt)
	ErrRecursionTooDeep = fmt.Errorf("%w: value nesting is too deep", ErrDataCorrupt)
)
