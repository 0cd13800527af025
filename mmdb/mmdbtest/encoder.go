package mmdbtest

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/9seconds/geoipd/mmdb"
)

// Type tags and pointer biases of the binary format, mirrored from the
// reader side.
const (
	typeString  = 2
	typeDouble  = 3
	typeBytes   = 4
	typeUint16  = 5
	typeUint32  = 6
	typeMap     = 7
	typeInt32   = 8
	typeUint64  = 9
	typeUint128 = 10
	typeArray   = 11
	typeBool    = 14
	typeFloat   = 15

	pointerBias2 = 2048
	pointerBias3 = 526336
)

// Encode serializes a value fully inline, without any format pointers.
func Encode(value mmdb.Value) ([]byte, error) {
	return appendValue(nil, value)
}

func appendValue(dst []byte, value mmdb.Value) ([]byte, error) {
	var err error

	switch v := value.(type) {
	case mmdb.String:
		dst = appendControl(dst, typeString, len(v))
		dst = append(dst, v...)
	case mmdb.Double:
		dst = appendControl(dst, typeDouble, 8)
		dst = append(dst, make([]byte, 8)...)
		binary.BigEndian.PutUint64(dst[len(dst)-8:], math.Float64bits(float64(v)))
	case mmdb.Bytes:
		dst = appendControl(dst, typeBytes, len(v))
		dst = append(dst, v...)
	case mmdb.Uint16:
		dst = appendUint(dst, typeUint16, uint64(v))
	case mmdb.Uint32:
		dst = appendUint(dst, typeUint32, uint64(v))
	case mmdb.Int32:
		dst = appendControl(dst, typeInt32, 4)
		dst = append(dst, make([]byte, 4)...)
		binary.BigEndian.PutUint32(dst[len(dst)-4:], uint32(v))
	case mmdb.Uint64:
		dst = appendUint(dst, typeUint64, uint64(v))
	case *mmdb.Uint128:
		raw := v.Bytes()
		dst = appendControl(dst, typeUint128, len(raw))
		dst = append(dst, raw...)
	case mmdb.Bool:
		size := 0
		if v {
			size = 1
		}

		dst = appendControl(dst, typeBool, size)
	case mmdb.Float:
		dst = appendControl(dst, typeFloat, 4)
		dst = append(dst, make([]byte, 4)...)
		binary.BigEndian.PutUint32(dst[len(dst)-4:], math.Float32bits(float32(v)))
	case mmdb.Map:
		dst = appendControl(dst, typeMap, len(v))

		for _, entry := range v {
			if dst, err = appendValue(dst, entry.Key); err != nil {
				return nil, err
			}

			if dst, err = appendValue(dst, entry.Value); err != nil {
				return nil, err
			}
		}
	case mmdb.Array:
		dst = appendControl(dst, typeArray, len(v))

		for _, item := range v {
			if dst, err = appendValue(dst, item); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("cannot encode %T", value)
	}

	return dst, nil
}

// appendControl emits the control byte, the extended type byte for
// tags past 7 and the extra size bytes for sizes past 28.
func appendControl(dst []byte, typeNum, size int) []byte {
	ctrl := byte(0)
	extended := typeNum > 7

	if !extended {
		ctrl = byte(typeNum) << 5
	}

	var sizeBytes []byte

	switch {
	case size < 29:
		ctrl |= byte(size)
	case size < 29+256:
		ctrl |= 29
		sizeBytes = []byte{byte(size - 29)}
	case size < 285+65536:
		ctrl |= 30
		excess := size - 285
		sizeBytes = []byte{byte(excess >> 8), byte(excess)}
	default:
		ctrl |= 31
		excess := size - 65821
		sizeBytes = []byte{byte(excess >> 16), byte(excess >> 8), byte(excess)}
	}

	dst = append(dst, ctrl)

	if extended {
		dst = append(dst, byte(typeNum-7))
	}

	return append(dst, sizeBytes...)
}

func appendUint(dst []byte, typeNum int, value uint64) []byte {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, value)

	start := 0
	for start < 8 && raw[start] == 0 {
		start++
	}

	dst = appendControl(dst, typeNum, 8-start)

	return append(dst, raw[start:]...)
}

// AppendPointer emits the shortest pointer encoding for the target
// offset: 11, 19, 27 or 32 bits wide, each with its own bias.
func AppendPointer(dst []byte, target int) []byte {
	const pointerCtrl = byte(1) << 5

	switch {
	case target < pointerBias2:
		return append(dst, pointerCtrl|byte(target>>8), byte(target))
	case target < pointerBias3:
		excess := target - pointerBias2

		return append(dst, pointerCtrl|0x08|byte(excess>>16), byte(excess>>8), byte(excess))
	case target < pointerBias3+1<<27:
		excess := target - pointerBias3

		return append(dst,
			pointerCtrl|0x10|byte(excess>>24), byte(excess>>16), byte(excess>>8), byte(excess))
	default:
		dst = append(dst, pointerCtrl|0x18, 0, 0, 0, 0)
		binary.BigEndian.PutUint32(dst[len(dst)-4:], uint32(target))

		return dst
	}
}
