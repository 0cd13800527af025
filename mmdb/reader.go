package mmdb

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// Reader is an opened database. It is immutable: once built it serves
// any number of concurrent Lookup calls without locking. To pick up a
// new database file, build a new Reader and drop this one; lookups in
// flight are unaffected.
type Reader struct {
	Metadata Metadata

	tree      searchTree
	data      decoder
	ipv4Start uint
}

// Open reads the whole file into memory and builds a Reader over it.
func Open(path string) (*Reader, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read database file: %w", err)
	}

	return FromBytes(content)
}

// FromBytes builds a Reader over raw database contents. The buffer is
// captured for the whole lifetime of the Reader and must not be
// mutated afterwards.
//
// Metadata is located and decoded here so a broken file fails the open
// instead of the first lookup.
func FromBytes(buffer []byte) (*Reader, error) {
	source := byteSource(buffer)

	metadataStart, err := locateMetadata(source)
	if err != nil {
		return nil, err
	}

	metadata, err := decodeMetadata(source[metadataStart:])
	if err != nil {
		return nil, err
	}

	nodeByteSize := metadata.RecordSize * 2 / 8
	dataEnd := metadataStart - len(metadataStartMarker)

	// node_count comes straight from the file, so the tree size is
	// bounded against the buffer before any slice arithmetic: a rogue
	// value must not overflow int on its way to an offset.
	if dataEnd < dataSectionSeparatorSize ||
		uint64(metadata.NodeCount) > uint64(dataEnd-dataSectionSeparatorSize)/uint64(nodeByteSize) {
		return nil, fmt.Errorf("%w: search tree of %d nodes does not fit the file",
			ErrMetadataMalformed, metadata.NodeCount)
	}

	treeSize := int(metadata.NodeCount) * int(nodeByteSize)
	dataStart := treeSize + dataSectionSeparatorSize

	rv := &Reader{
		Metadata: metadata,
		tree: searchTree{
			buffer:       source[:treeSize],
			nodeCount:    metadata.NodeCount,
			recordSize:   metadata.RecordSize,
			nodeByteSize: nodeByteSize,
		},
		data: decoder{buffer: source[dataStart:dataEnd]},
	}

	if metadata.IPVersion == 6 {
		start, err := rv.tree.ipv4StartNode()
		if err != nil {
			return nil, err
		}

		rv.ipv4Start = start
	}

	return rv, nil
}

// Lookup resolves a single IP address into its record. A missing
// address is a normal outcome and is reported as (nil, nil); errors
// mean either an address the database cannot answer for or a corrupted
// file.
func (r *Reader) Lookup(ip net.IP) (Value, error) {
	if ip == nil {
		return nil, errors.New("ip address is required")
	}

	address := ip.To4()
	fromNode := uint(0)

	if address != nil {
		// An IPv6 database keeps IPv4 addresses under the ::/96
		// mapped prefix. The subtree root is precomputed at open.
		if r.Metadata.IPVersion == 6 {
			fromNode = r.ipv4Start
		}
	} else {
		address = ip.To16()
		if address == nil {
			return nil, fmt.Errorf("incorrect ip address %q", ip.String())
		}

		if r.Metadata.IPVersion == 4 {
			return nil, ErrAddressFamilyMismatch
		}
	}

	offset, found, err := r.tree.walk(address, fromNode)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, nil
	}

	if offset < 0 || offset >= r.data.buffer.Len() {
		return nil, fmt.Errorf("%w: record resolves to %d, outside of the data section",
			ErrTreeCorrupt, offset)
	}

	value, _, err := r.data.Decode(offset)
	if err != nil {
		return nil, err
	}

	return value, nil
}
