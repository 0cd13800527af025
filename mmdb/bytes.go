package mmdb

import "fmt"

// byteSource is a bounds-checked, read-only view over raw database
// contents. Nothing ever writes through it, so any number of goroutines
// may read concurrently.
type byteSource []byte

func (b byteSource) Len() int {
	return len(b)
}

func (b byteSource) ReadU8(offset int) (byte, error) {
	if offset < 0 || offset >= len(b) {
		return 0, fmt.Errorf("%w: byte at %d, buffer size %d", ErrOutOfBounds, offset, len(b))
	}

	return b[offset], nil
}

func (b byteSource) Slice(offset, length int) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > len(b) {
		return nil, fmt.Errorf("%w: %d bytes at %d, buffer size %d",
			ErrOutOfBounds, length, offset, len(b))
	}

	return b[offset : offset+length], nil
}
