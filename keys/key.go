// Package keys defines the total-order key abstraction the B+ tree indexes
// on. The teacher compares raw []byte with bytes.Compare; this generalizes
// that single comparator into an interface so the tree isn't locked to one
// key encoding.
package keys

import (
	"bytes"
	"encoding/binary"
)

// Key is any value with a total order and a fixed or self-describing wire
// encoding. Compare must agree with the encoding's byte order so that keys
// stored on a page stay sorted after a round trip through Bytes/Decode.
type Key interface {
	// Compare returns <0, 0, >0 as k is less than, equal to, or greater
	// than other. Comparing keys of different concrete types is undefined.
	Compare(other Key) int
	// Bytes returns the on-disk encoding of the key.
	Bytes() []byte
}

// Decoder rebuilds a Key from the bytes a matching Key.Bytes() produced.
// The tree is parametric over one Decoder per index, chosen at open time.
type Decoder func(b []byte) Key

// IntKey is a fixed-width signed 64-bit key, stored big-endian so that
// byte-wise and numeric comparison agree.
type IntKey int64

func (k IntKey) Compare(other Key) int {
	o := other.(IntKey)
	switch {
	case k < o:
		return -1
	case k > o:
		return 1
	default:
		return 0
	}
}

func (k IntKey) Bytes() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(k)^(1<<63))
	return buf
}

// DecodeIntKey is the Decoder for IntKey.
func DecodeIntKey(b []byte) Key {
	return IntKey(int64(binary.BigEndian.Uint64(b) ^ (1 << 63)))
}

// StringKey is a variable-length key compared lexicographically.
type StringKey string

func (k StringKey) Compare(other Key) int {
	return bytes.Compare([]byte(k), []byte(other.(StringKey)))
}

func (k StringKey) Bytes() []byte {
	return []byte(k)
}

// DecodeStringKey is the Decoder for StringKey.
func DecodeStringKey(b []byte) Key {
	cp := make([]byte, len(b))
	copy(cp, b)
	return StringKey(cp)
}
