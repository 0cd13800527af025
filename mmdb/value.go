package mmdb

import (
	"bytes"
	"encoding/json"
	"math/big"
)

// Value is a single decoded entity of the data section. This is a
// closed set: the only implementations live in this file. Pointers of
// the on-disk format are resolved during decoding and never appear
// among values.
//
// Every variant marshals to JSON the way you would expect from a
// geolocation record: maps keep the order of the file, byte sequences
// become base64 strings, Uint128 stays an arbitrary precision number.
type Value interface {
	isValue()
}

type (
	String string
	Double float64
	Bytes  []byte
	Uint16 uint16
	Uint32 uint32
	Int32  int32
	Uint64 uint64
	Bool   bool
	Float  float32
	Array  []Value
)

// Uint128 keeps 128-bit unsigned integers which do not fit any native
// Go type.
type Uint128 struct {
	big.Int
}

func (String) isValue()   {}
func (Double) isValue()   {}
func (Bytes) isValue()    {}
func (Uint16) isValue()   {}
func (Uint32) isValue()   {}
func (Int32) isValue()    {}
func (Uint64) isValue()   {}
func (Bool) isValue()     {}
func (Float) isValue()    {}
func (Array) isValue()    {}
func (*Uint128) isValue() {}
func (Map) isValue()      {}

// MapEntry is a single key/value pair of a Map.
type MapEntry struct {
	Key   String
	Value Value
}

// Map is an ordered mapping. Keys are unique, iteration and JSON
// marshalling keep the insertion order of the file.
type Map []MapEntry

// Get returns the value stored under the key or nil if there is none.
func (m Map) Get(key string) Value {
	for i := range m {
		if string(m[i].Key) == key {
			return m[i].Value
		}
	}

	return nil
}

func (m Map) MarshalJSON() ([]byte, error) {
	buf := bytes.Buffer{}

	buf.WriteByte('{')

	for i, entry := range m {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(string(entry.Key))
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(entry.Value)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}
