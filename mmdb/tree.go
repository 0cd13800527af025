package mmdb

import "fmt"

// dataSectionSeparatorSize is the fixed gap of zero bytes between the
// search tree and the data section. Data-pointing records carry this
// constant inside their values, so it is subtracted out while
// classifying a record.
const dataSectionSeparatorSize = 16

// searchTree walks the binary trie over address bits. The buffer is
// cut to exactly nodeCount*nodeByteSize bytes, so no node read can ever
// escape the tree section.
type searchTree struct {
	buffer       byteSource
	nodeCount    uint
	recordSize   uint
	nodeByteSize uint
}

// Unpacking of one packed node into its left and right records, one
// pure function per record width. The 28-bit layout is the tricky one:
// the middle byte carries the high nibble of the left record in its
// high half and the high nibble of the right record in its low half.

func unpackNode24(node []byte) (uint, uint) {
	left := uint(node[0])<<16 | uint(node[1])<<8 | uint(node[2])
	right := uint(node[3])<<16 | uint(node[4])<<8 | uint(node[5])

	return left, right
}

func unpackNode28(node []byte) (uint, uint) {
	left := uint(node[3]&0xf0)<<20 | uint(node[0])<<16 | uint(node[1])<<8 | uint(node[2])
	right := uint(node[3]&0x0f)<<24 | uint(node[4])<<16 | uint(node[5])<<8 | uint(node[6])

	return left, right
}

func unpackNode32(node []byte) (uint, uint) {
	left := uint(node[0])<<24 | uint(node[1])<<16 | uint(node[2])<<8 | uint(node[3])
	right := uint(node[4])<<24 | uint(node[5])<<16 | uint(node[6])<<8 | uint(node[7])

	return left, right
}

func (t searchTree) readNode(index uint) (uint, uint, error) {
	raw, err := t.buffer.Slice(int(index*t.nodeByteSize), int(t.nodeByteSize))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: node %d does not fit the tree section", ErrTreeCorrupt, index)
	}

	switch t.recordSize {
	case 24:
		left, right := unpackNode24(raw)

		return left, right, nil
	case 28:
		left, right := unpackNode28(raw)

		return left, right, nil
	default:
		left, right := unpackNode32(raw)

		return left, right, nil
	}
}

// walk pushes address bits most significant first through the tree
// starting at the given node. It returns the data section offset and
// true if a record was found; absent addresses return false with no
// error.
func (t searchTree) walk(address []byte, fromNode uint) (int, bool, error) {
	node := fromNode

	for i := 0; i < len(address)*8 && node < t.nodeCount; i++ {
		left, right, err := t.readNode(node)
		if err != nil {
			return 0, false, err
		}

		if address[i>>3]&(0x80>>uint(i&7)) == 0 {
			node = left
		} else {
			node = right
		}
	}

	switch {
	case node < t.nodeCount:
		// Bits ran out while still standing on a node: there is no
		// record left to classify, so nothing is stored here.
		return 0, false, nil
	case node == t.nodeCount:
		return 0, false, nil
	}

	return int(node - t.nodeCount - dataSectionSeparatorSize), true, nil
}

// ipv4StartNode finds the node the IPv4 subtree hangs off in an IPv6
// database: the one reached after the 96 zero bits of the IPv4-mapped
// prefix. Computed once at open time.
func (t searchTree) ipv4StartNode() (uint, error) {
	node := uint(0)

	for i := 0; i < 96 && node < t.nodeCount; i++ {
		left, _, err := t.readNode(node)
		if err != nil {
			return 0, err
		}

		node = left
	}

	return node, nil
}
