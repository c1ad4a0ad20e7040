package bnode

import "bytes"

// BlockIndex addresses a block on the device. 0 is reserved: it means "null"
// in payload slots, and is the fixed position of the superblock.
type BlockIndex uint64

// Key is a fixed-width, lexicographically-compared byte buffer.
type Key []byte

// Value is a fixed-width opaque byte buffer.
type Value []byte

// Compare orders two keys lexicographically over their raw bytes.
func (k Key) Compare(other Key) int {
	return bytes.Compare(k, other)
}

// Equal reports whether two keys are byte-identical.
func (k Key) Equal(other Key) bool {
	return bytes.Equal(k, other)
}

// Clone returns an independent copy of the key, safe to retain past the
// lifetime of the block buffer it was read from.
func (k Key) Clone() Key {
	out := make(Key, len(k))
	copy(out, k)
	return out
}

// Clone returns an independent copy of the value.
func (v Value) Clone() Value {
	out := make(Value, len(v))
	copy(out, v)
	return out
}
