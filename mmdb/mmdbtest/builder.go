package mmdbtest

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/9seconds/geoipd/mmdb"
)

const dataSectionSeparatorSize = 16

var metadataStartMarker = []byte("\xab\xcd\xefMaxMind.com")

type trieNode struct {
	children [2]*trieNode
	value    mmdb.Value
	index    int
}

// Builder assembles a synthetic database. Zero value is usable: an
// IPv4 tree with 24-bit records and no networks.
type Builder struct {
	RecordSize   uint
	IPVersion    uint
	DatabaseType string
	Languages    []string
	Description  map[string]string

	root trieNode
}

func (b *Builder) recordSize() uint {
	if b.RecordSize == 0 {
		return 24
	}

	return b.RecordSize
}

func (b *Builder) ipVersion() uint {
	if b.IPVersion == 0 {
		return 4
	}

	return b.IPVersion
}

// Add routes every address of the network to the given record. IPv4
// networks added to an IPv6 tree are placed under the ::/96 mapped
// prefix, the same path the reader walks for them.
func (b *Builder) Add(cidr string, value mmdb.Value) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("cannot parse cidr %s: %w", cidr, err)
	}

	prefixLen, _ := network.Mask.Size()
	address := network.IP.To4()

	switch {
	case b.ipVersion() == 6 && address != nil:
		address = append(make([]byte, 12), address...)
		prefixLen += 96
	case b.ipVersion() == 6:
		address = network.IP.To16()
	case address == nil:
		return fmt.Errorf("cannot add %s to an ipv4 tree", cidr)
	}

	node := &b.root

	for i := 0; i < prefixLen; i++ {
		if node.value != nil {
			return fmt.Errorf("%s overlaps an already added network", cidr)
		}

		bit := address[i>>3] >> (7 - uint(i)&7) & 1

		if node.children[bit] == nil {
			node.children[bit] = &trieNode{}
		}

		node = node.children[bit]
	}

	if node.value != nil || node.children[0] != nil || node.children[1] != nil {
		return fmt.Errorf("%s overlaps an already added network", cidr)
	}

	node.value = value

	return nil
}

// Build emits the complete database file.
func (b *Builder) Build() ([]byte, error) {
	internal := b.enumerate()
	nodeCount := len(internal)

	data := newDataWriter()
	leafOffsets := map[*trieNode]int{}

	for _, node := range internal {
		for _, child := range node.children {
			if child == nil || child.value == nil {
				continue
			}

			offset, err := data.write(child.value)
			if err != nil {
				return nil, err
			}

			leafOffsets[child] = offset
		}
	}

	recordSize := b.recordSize()
	nodeByteSize := int(recordSize) * 2 / 8
	maxRecord := uint(1)<<recordSize - 1
	tree := make([]byte, nodeCount*nodeByteSize)

	for _, node := range internal {
		records := [2]uint{}

		for i, child := range node.children {
			switch {
			case child == nil:
				records[i] = uint(nodeCount)
			case child.value != nil:
				records[i] = uint(nodeCount) + dataSectionSeparatorSize + uint(leafOffsets[child])
			default:
				records[i] = uint(child.index)
			}

			if records[i] > maxRecord {
				return nil, fmt.Errorf("record %d does not fit into %d bits", records[i], recordSize)
			}
		}

		packRecords(tree[node.index*nodeByteSize:], recordSize, records[0], records[1])
	}

	metadata, err := Encode(b.metadata(nodeCount))
	if err != nil {
		return nil, err
	}

	rv := make([]byte, 0,
		len(tree)+dataSectionSeparatorSize+len(data.buffer)+len(metadataStartMarker)+len(metadata))
	rv = append(rv, tree...)
	rv = append(rv, make([]byte, dataSectionSeparatorSize)...)
	rv = append(rv, data.buffer...)
	rv = append(rv, metadataStartMarker...)
	rv = append(rv, metadata...)

	return rv, nil
}

// enumerate collects internal nodes breadth-first and numbers them.
// Leaves hold values and are referenced through records only.
func (b *Builder) enumerate() []*trieNode {
	rv := []*trieNode{}
	queue := []*trieNode{&b.root}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		node.index = len(rv)
		rv = append(rv, node)

		for _, child := range node.children {
			if child != nil && child.value == nil {
				queue = append(queue, child)
			}
		}
	}

	return rv
}

func (b *Builder) metadata(nodeCount int) mmdb.Map {
	databaseType := b.DatabaseType
	if databaseType == "" {
		databaseType = "Test-City"
	}

	languages := mmdb.Array{}
	for _, v := range b.Languages {
		languages = append(languages, mmdb.String(v))
	}

	description := mmdb.Map{}
	for k, v := range b.Description {
		description = append(description, mmdb.MapEntry{Key: mmdb.String(k), Value: mmdb.String(v)})
	}

	return mmdb.Map{
		{Key: "binary_format_major_version", Value: mmdb.Uint16(2)},
		{Key: "binary_format_minor_version", Value: mmdb.Uint16(0)},
		{Key: "build_epoch", Value: mmdb.Uint64(time.Now().Unix())},
		{Key: "database_type", Value: mmdb.String(databaseType)},
		{Key: "description", Value: description},
		{Key: "ip_version", Value: mmdb.Uint16(b.ipVersion())},
		{Key: "languages", Value: languages},
		{Key: "node_count", Value: mmdb.Uint32(nodeCount)},
		{Key: "record_size", Value: mmdb.Uint16(b.recordSize())},
	}
}

func packRecords(dst []byte, recordSize, left, right uint) {
	switch recordSize {
	case 24:
		dst[0], dst[1], dst[2] = byte(left>>16), byte(left>>8), byte(left)
		dst[3], dst[4], dst[5] = byte(right>>16), byte(right>>8), byte(right)
	case 28:
		dst[0], dst[1], dst[2] = byte(left>>16), byte(left>>8), byte(left)
		dst[3] = (byte(left>>24)&0x0f)<<4 | byte(right>>24)&0x0f
		dst[4], dst[5], dst[6] = byte(right>>16), byte(right>>8), byte(right)
	default:
		binary.BigEndian.PutUint32(dst[0:4], uint32(left))
		binary.BigEndian.PutUint32(dst[4:8], uint32(right))
	}
}

// dataWriter emits values into the data section, de-duplicating them
// the way real files do: a value seen before is referenced through a
// format pointer instead of being written again.
type dataWriter struct {
	buffer  []byte
	offsets map[string]int
}

func newDataWriter() *dataWriter {
	return &dataWriter{offsets: map[string]int{}}
}

func (d *dataWriter) write(value mmdb.Value) (int, error) {
	key, err := Encode(value)
	if err != nil {
		return 0, err
	}

	if offset, ok := d.offsets[string(key)]; ok {
		return offset, nil
	}

	offset := len(d.buffer)
	d.offsets[string(key)] = offset

	return offset, d.writeInline(value)
}

func (d *dataWriter) writeChild(value mmdb.Value) error {
	key, err := Encode(value)
	if err != nil {
		return err
	}

	if offset, ok := d.offsets[string(key)]; ok {
		d.buffer = AppendPointer(d.buffer, offset)

		return nil
	}

	d.offsets[string(key)] = len(d.buffer)

	return d.writeInline(value)
}

func (d *dataWriter) writeInline(value mmdb.Value) error {
	switch v := value.(type) {
	case mmdb.Map:
		d.buffer = appendControl(d.buffer, typeMap, len(v))

		for _, entry := range v {
			if err := d.writeChild(entry.Key); err != nil {
				return err
			}

			if err := d.writeChild(entry.Value); err != nil {
				return err
			}
		}
	case mmdb.Array:
		d.buffer = appendControl(d.buffer, typeArray, len(v))

		for _, item := range v {
			if err := d.writeChild(item); err != nil {
				return err
			}
		}
	default:
		encoded, err := Encode(value)
		if err != nil {
			return err
		}

		d.buffer = append(d.buffer, encoded...)
	}

	return nil
}
