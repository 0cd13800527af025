package mmdb

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// Type tags of the data section. The first byte of every value carries
// one of these in its top 3 bits; tags past 7 are stored through the
// extended escape (tag 0, real tag is the next byte + 7). The mapping
// is fixed by the binary format and must be reproduced exactly.
const (
	typeExtended  = 0
	typePointer   = 1
	typeString    = 2
	typeDouble    = 3
	typeBytes     = 4
	typeUint16    = 5
	typeUint32    = 6
	typeMap       = 7
	typeInt32     = 8
	typeUint64    = 9
	typeUint128   = 10
	typeArray     = 11
	typeContainer = 12
	typeEnd       = 13
	typeBool      = 14
	typeFloat     = 15
)

// maxDecodeDepth caps value nesting and pointer hops. The format
// promises acyclic data but a corrupted or adversarial file must not
// blow the stack or hang the engine.
const maxDecodeDepth = 512

// Bias constants of the four pointer encodings. An n-th encoding
// carries the sum of all smaller address spaces so that every offset
// has exactly one representation.
const (
	pointerBias2 = 2048
	pointerBias3 = 526336
)

// decoder reads values of the self-describing data section. The buffer
// is the section itself, nothing more: this way both root offsets
// coming from the search tree and pointer targets live in a single
// coordinate space.
type decoder struct {
	buffer byteSource
}

// Decode reads a single value rooted at the given offset. The second
// result is the offset right past the bytes consumed at the original
// position. For pointers that is the short pointer encoding itself,
// not the target value: callers walking sibling entries of a map rely
// on this.
func (d decoder) Decode(offset int) (Value, int, error) {
	return d.decode(offset, 0)
}

func (d decoder) decode(offset, depth int) (Value, int, error) {
	if depth > maxDecodeDepth {
		return nil, 0, ErrRecursionTooDeep
	}

	ctrl, err := d.buffer.ReadU8(offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: no control byte at %d", ErrTruncatedData, offset)
	}

	typeNum := int(ctrl >> 5)
	offset++

	if typeNum == typePointer {
		return d.decodePointer(ctrl, offset, depth)
	}

	if typeNum == typeExtended {
		ext, err := d.buffer.ReadU8(offset)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: no extended type byte at %d", ErrTruncatedData, offset)
		}

		typeNum = int(ext) + 7
		offset++
	}

	size, offset, err := d.decodeSize(ctrl, offset)
	if err != nil {
		return nil, 0, err
	}

	switch typeNum {
	case typeString:
		raw, err := d.buffer.Slice(offset, size)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: string of %d bytes at %d", ErrTruncatedData, size, offset)
		}

		if !utf8.Valid(raw) {
			return nil, 0, fmt.Errorf("%w: at %d", ErrInvalidEncoding, offset)
		}

		return String(raw), offset + size, nil
	case typeDouble:
		if size != 8 {
			return nil, 0, fmt.Errorf("%w: double declares %d bytes instead of 8", ErrDataCorrupt, size)
		}

		raw, err := d.buffer.Slice(offset, 8)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: double at %d", ErrTruncatedData, offset)
		}

		return Double(math.Float64frombits(binary.BigEndian.Uint64(raw))), offset + 8, nil
	case typeBytes:
		raw, err := d.buffer.Slice(offset, size)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %d raw bytes at %d", ErrTruncatedData, size, offset)
		}

		// Copied so decoded values never alias the database buffer.
		rv := make(Bytes, size)
		copy(rv, raw)

		return rv, offset + size, nil
	case typeUint16:
		value, next, err := d.decodeUint(offset, size, 2)

		return Uint16(value), next, err
	case typeUint32:
		value, next, err := d.decodeUint(offset, size, 4)

		return Uint32(value), next, err
	case typeMap:
		return d.decodeMap(size, offset, depth)
	case typeInt32:
		value, next, err := d.decodeUint(offset, size, 4)

		return Int32(int32(uint32(value))), next, err
	case typeUint64:
		value, next, err := d.decodeUint(offset, size, 8)

		return Uint64(value), next, err
	case typeUint128:
		if size > 16 {
			return nil, 0, fmt.Errorf("%w: uint128 declares %d bytes", ErrDataCorrupt, size)
		}

		raw, err := d.buffer.Slice(offset, size)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: uint128 at %d", ErrTruncatedData, offset)
		}

		rv := &Uint128{}
		rv.SetBytes(raw)

		return rv, offset + size, nil
	case typeArray:
		return d.decodeArray(size, offset, depth)
	case typeContainer:
		return nil, 0, fmt.Errorf("%w: reserved container tag at %d", ErrUnknownTypeTag, offset)
	case typeEnd:
		// The end marker is a structural sentinel. It must never be
		// reachable through the tree or a container.
		return nil, 0, fmt.Errorf("%w: unexpected end marker at %d", ErrDataCorrupt, offset)
	case typeBool:
		if size > 1 {
			return nil, 0, fmt.Errorf("%w: boolean declares size %d", ErrDataCorrupt, size)
		}

		return Bool(size == 1), offset, nil
	case typeFloat:
		if size != 4 {
			return nil, 0, fmt.Errorf("%w: float declares %d bytes instead of 4", ErrDataCorrupt, size)
		}

		raw, err := d.buffer.Slice(offset, 4)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: float at %d", ErrTruncatedData, offset)
		}

		return Float(math.Float32frombits(binary.BigEndian.Uint32(raw))), offset + 4, nil
	}

	return nil, 0, fmt.Errorf("%w: %d", ErrUnknownTypeTag, typeNum)
}

// decodeSize reads the payload size from the low 5 bits of the control
// byte. Values past 28 escape into 1, 2 or 3 extra bytes which encode
// the excess over what the previous representation could carry.
func (d decoder) decodeSize(ctrl byte, offset int) (int, int, error) {
	size := int(ctrl & 0x1f)

	if size < 29 {
		return size, offset, nil
	}

	extraBytes := size - 28

	raw, err := d.buffer.Slice(offset, extraBytes)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: extended size at %d", ErrTruncatedData, offset)
	}

	switch extraBytes {
	case 1:
		size = 29 + int(raw[0])
	case 2:
		size = 285 + int(binary.BigEndian.Uint16(raw))
	default:
		size = 65821 + int(uint32(raw[0])<<16|uint32(raw[1])<<8|uint32(raw[2]))
	}

	return size, offset + extraBytes, nil
}

func (d decoder) decodeUint(offset, size, maxSize int) (uint64, int, error) {
	if size > maxSize {
		return 0, 0, fmt.Errorf("%w: integer declares %d bytes, at most %d allowed",
			ErrDataCorrupt, size, maxSize)
	}

	raw, err := d.buffer.Slice(offset, size)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: integer of %d bytes at %d", ErrTruncatedData, size, offset)
	}

	// A zero size is legal and means a zero value.
	value := uint64(0)
	for _, b := range raw {
		value = value<<8 | uint64(b)
	}

	return value, offset + size, nil
}

func (d decoder) decodePointer(ctrl byte, offset, depth int) (Value, int, error) {
	pointerSize := int((ctrl>>3)&0x3) + 1
	prefix := int(ctrl & 0x7)

	raw, err := d.buffer.Slice(offset, pointerSize)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: pointer bytes at %d", ErrTruncatedData, offset)
	}

	next := offset + pointerSize

	var target int

	switch pointerSize {
	case 1:
		target = prefix<<8 | int(raw[0])
	case 2:
		target = pointerBias2 + (prefix<<16 | int(raw[0])<<8 | int(raw[1]))
	case 3:
		target = pointerBias3 + (prefix<<24 | int(raw[0])<<16 | int(raw[1])<<8 | int(raw[2]))
	default:
		target = int(binary.BigEndian.Uint32(raw))
	}

	targetCtrl, err := d.buffer.ReadU8(target)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: pointer target %d", ErrTruncatedData, target)
	}

	// The format forbids pointer chains. Refusing them outright also
	// guarantees resolution terminates on adversarial input.
	if targetCtrl>>5 == typePointer {
		return nil, 0, fmt.Errorf("%w: at %d", ErrPointerLoop, target)
	}

	value, _, err := d.decode(target, depth+1)
	if err != nil {
		return nil, 0, err
	}

	return value, next, nil
}

func (d decoder) decodeMap(count, offset, depth int) (Value, int, error) {
	rv := make(Map, 0, count)
	seen := make(map[string]struct{}, count)

	for i := 0; i < count; i++ {
		keyValue, next, err := d.decode(offset, depth+1)
		if err != nil {
			return nil, 0, err
		}

		key, ok := keyValue.(String)
		if !ok {
			return nil, 0, fmt.Errorf("%w: map key is %T, not a string", ErrDataCorrupt, keyValue)
		}

		if _, ok := seen[string(key)]; ok {
			return nil, 0, fmt.Errorf("%w: duplicated map key %q", ErrDataCorrupt, string(key))
		}

		seen[string(key)] = struct{}{}

		value, next, err := d.decode(next, depth+1)
		if err != nil {
			return nil, 0, err
		}

		rv = append(rv, MapEntry{Key: key, Value: value})
		offset = next
	}

	return rv, offset, nil
}

func (d decoder) decodeArray(count, offset, depth int) (Value, int, error) {
	rv := make(Array, 0, count)

	for i := 0; i < count; i++ {
		value, next, err := d.decode(offset, depth+1)
		if err != nil {
			return nil, 0, err
		}

		rv = append(rv, value)
		offset = next
	}

	return rv, offset, nil
}
